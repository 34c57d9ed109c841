package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"truckspot/internal/geo"
	"truckspot/internal/models"
)

func TestWriteCheckInHistory(t *testing.T) {
	started := time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)
	ended := started.Add(95 * time.Minute)

	checkins := []models.CheckIn{
		{
			ID:        "s1",
			TruckID:   1,
			Position:  geo.Point{Lat: 59.33, Lng: 18.06},
			StartedAt: started,
			EndedAt:   &ended,
		},
		{
			ID:        "s2",
			TruckID:   99,
			Position:  geo.Point{Lat: 59.34, Lng: 18.07},
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	err := WriteCheckInHistory(&buf, map[int64]string{1: "Taco Truck"}, checkins)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, headerColumns, rows[0])

	assert.Equal(t, "Taco Truck", rows[1][0])
	assert.Equal(t, "2026-08-24T11:00:00Z", rows[1][1])
	assert.Equal(t, "2026-08-24T12:35:00Z", rows[1][2])
	assert.Equal(t, "1h35m0s", rows[1][3])

	// Unknown truck falls back to its ID; open session has no end.
	assert.Equal(t, "#99", rows[2][0])
	assert.Len(t, rows[2], 6)
	assert.Empty(t, rows[2][2])
}

func TestWriteCheckInHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCheckInHistory(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
