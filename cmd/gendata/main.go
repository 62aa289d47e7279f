// Command gendata writes a synthetic station CSV with known cluster
// structure, for local development and test fixtures. Stations are drawn
// from Gaussian blobs around a handful of Canadian city coordinates, with a
// band of uniform noise stations mixed in.
//
// Usage:
//
//	go run ./cmd/gendata -out testdata/stations_blobs.csv -n 600 -noise 40
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
)

// blobCenters are [lat, lon, meanTemp] triples around which stations are
// generated. Temperatures get per-station jitter.
var blobCenters = [][3]float64{
	{49.25, -123.1, 18.0}, // Vancouver
	{51.05, -114.1, 16.5}, // Calgary
	{43.65, -79.4, 22.1},  // Toronto
	{45.5, -73.6, 21.2},   // Montreal
}

func main() {
	out := flag.String("out", "", "output CSV path")
	n := flag.Int("n", 600, "number of clustered stations, split across blobs")
	noise := flag.Int("noise", 40, "number of uniformly scattered noise stations")
	stddev := flag.Float64("stddev", 0.35, "blob standard deviation in degrees")
	seed := flag.Int64("seed", 1000, "RNG seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*out, *n, *noise, *stddev, *seed); err != nil {
		log.Fatal(err)
	}
}

func run(out string, n, noise int, stddev float64, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Stn_Name", "Lat", "Long", "Prov", "Tm", "Tx", "Tn", "P", "HDD", "CDD", "Stn_No"}); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		c := blobCenters[i%len(blobCenters)]
		lat := c[0] + rng.NormFloat64()*stddev
		lon := c[1] + rng.NormFloat64()*stddev
		tm := c[2] + rng.NormFloat64()*1.5
		if err := writeStation(w, i, lat, lon, tm, rng); err != nil {
			return err
		}
	}

	// Noise stations scattered across the whole box get sparse surroundings.
	for i := 0; i < noise; i++ {
		lat := 41 + rng.Float64()*23   // 41..64
		lon := -139 + rng.Float64()*88 // -139..-51
		tm := 5 + rng.Float64()*20
		if err := writeStation(w, n+i, lat, lon, tm, rng); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	log.Printf("wrote %d stations to %s", n+noise, out)
	return nil
}

func writeStation(w *csv.Writer, i int, lat, lon, tm float64, rng *rand.Rand) error {
	tx := tm + 8 + rng.Float64()*4
	tn := tm - 8 - rng.Float64()*4
	return w.Write([]string{
		fmt.Sprintf("SYNTH STN %04d", i),
		strconv.FormatFloat(lat, 'f', 3, 64),
		strconv.FormatFloat(lon, 'f', 3, 64),
		"XX",
		strconv.FormatFloat(tm, 'f', 1, 64),
		strconv.FormatFloat(tx, 'f', 1, 64),
		strconv.FormatFloat(tn, 'f', 1, 64),
		strconv.FormatFloat(20+rng.Float64()*80, 'f', 1, 64),
		"",
		"",
		fmt.Sprintf("999%04d", i),
	})
}
