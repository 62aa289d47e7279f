// Package kafka publishes cluster assignments to a sink topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/weatherlab/station-clustering/internal/config"
	"github.com/weatherlab/station-clustering/internal/observability"
	"github.com/weatherlab/station-clustering/internal/pipeline"
)

// Writer produces assignment messages to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Load serializes and publishes every assignment of a run to the sink topic
// in a single WriteMessages call, keyed by station ID so repeated runs for
// the same station land in the same partition.
func (w *Writer) Load(ctx context.Context, result pipeline.Result) error {
	if len(result.Assignments) == 0 {
		return nil
	}

	processedAt := result.Run.FinishedAt.Format(time.RFC3339)
	msgs := make([]kafkago.Message, len(result.Assignments))
	for i, a := range result.Assignments {
		value, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("serialize assignment %s: %w", a.StationID, err)
		}
		msgs[i] = kafkago.Message{
			Key:   []byte(a.StationID),
			Value: value,
			Headers: []kafkago.Header{
				{Key: "run_id", Value: []byte(a.RunID)},
				{Key: "processed_at", Value: []byte(processedAt)},
			},
		}
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish assignments: %w", err)
	}
	w.metrics.AssignmentsPublished.Add(float64(len(msgs)))
	w.logger.Debug("assignments published", "run_id", result.Run.ID, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}
