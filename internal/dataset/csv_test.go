package dataset

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleCSV = `Stn_Name,Lat,Long,Prov,Tm,DwTm,D,Tx,DwTx,Tn,DwTn,P,DwP,HDD,CDD,Stn_No
CHEMAINUS,48.935,-123.742,BC,13.5,0,0.2,30.0,0,-2.5,0,178.8,0,273.3,0.0,1011500
COWICHAN LAKE,48.829,-124.052,BC,12.1,0,NA,29.1,0,-4.0,0,NA,0,300.1,0.0,1012040
BROKEN ROW,not-a-lat,-120.0,BC,10.0,0,0,20.0,0,0.0,0,50.0,0,100.0,0.0,9999999
NO TEMP,50.000,-110.000,AB,NA,31,NA,NA,31,NA,31,NA,31,NA,NA,3010010
`

func TestRead(t *testing.T) {
	result, err := Read(strings.NewReader(sampleCSV), discardLogger())
	require.NoError(t, err)

	require.Len(t, result.Stations, 3)
	assert.Equal(t, 1, result.Skipped, "row with bad coordinates is skipped")

	first := result.Stations[0]
	assert.Equal(t, "CHEMAINUS", first.Name)
	assert.Equal(t, "BC", first.Province)
	assert.InDelta(t, 48.935, first.Lat, 1e-9)
	require.NotNil(t, first.MeanTemp)
	assert.InDelta(t, 13.5, *first.MeanTemp, 1e-9)

	second := result.Stations[1]
	assert.Nil(t, second.Precip, "NA precipitation parses to nil")

	// The no-temperature station survives reading; cleaning handles it later.
	third := result.Stations[2]
	assert.Equal(t, "NO TEMP", third.Name)
	assert.Nil(t, third.MeanTemp)
}

func TestRead_ColumnOrderIndependent(t *testing.T) {
	csv := "Lat,Stn_Name,Tm,Long\n49.1,SHUFFLED,15.5,-122.5\n"

	result, err := Read(strings.NewReader(csv), discardLogger())
	require.NoError(t, err)

	require.Len(t, result.Stations, 1)
	assert.Equal(t, "SHUFFLED", result.Stations[0].Name)
	assert.InDelta(t, 49.1, result.Stations[0].Lat, 1e-9)
	require.NotNil(t, result.Stations[0].MeanTemp)
}

func TestRead_MissingRequiredColumn(t *testing.T) {
	csv := "Stn_Name,Tm\nX,10.0\n"

	_, err := Read(strings.NewReader(csv), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lat")
}

func TestRead_RaggedRow(t *testing.T) {
	csv := "Stn_Name,Lat,Long,Tm\nSHORT,49.0,-120.0\n"

	result, err := Read(strings.NewReader(csv), discardLogger())
	require.NoError(t, err)

	require.Len(t, result.Stations, 1)
	assert.Nil(t, result.Stations[0].MeanTemp, "absent trailing column reads as missing")
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""), discardLogger())
	assert.Error(t, err)
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := ReadFile("does/not/exist.csv", discardLogger())
	assert.Error(t, err)
}
