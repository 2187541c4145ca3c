package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"gcs2autoclass/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := Report{
		Outcomes: []Outcome{
			{
				Project:  "proj-1",
				Bucket:   "bucket-a",
				Status:   StatusSucceeded,
				Attempts: 2,
				Info: storage.BucketInfo{
					StorageClass:         "STANDARD",
					Location:             "EU",
					LocationType:         "multi-region",
					AutoclassEnabled:     true,
					TerminalStorageClass: "ARCHIVE",
				},
				StartedAt:  start,
				FinishedAt: start.Add(1500 * time.Millisecond),
			},
			{
				Project:  "proj-1",
				Bucket:   "bucket-b",
				Status:   StatusFailedPermanent,
				Attempts: 1,
				Err:      "get bucket attrs bucket-b: 404 not found",
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])

	assert.Equal(t, "proj-1", rows[1][0])
	assert.Equal(t, "bucket-a", rows[1][1])
	assert.Equal(t, "STANDARD", rows[1][2])
	assert.Equal(t, "EU", rows[1][3])
	assert.Equal(t, "true", rows[1][5])
	assert.Equal(t, "ARCHIVE", rows[1][6])
	assert.Equal(t, "Succeeded", rows[1][8])
	assert.Equal(t, "2", rows[1][9])
	assert.Equal(t, "", rows[1][10])
	assert.Equal(t, "1500", rows[1][11])

	assert.Equal(t, "bucket-b", rows[2][1])
	assert.Equal(t, "FailedPermanent", rows[2][8])
	assert.Equal(t, "1", rows[2][9])
	assert.Equal(t, "get bucket attrs bucket-b: 404 not found", rows[2][10])
}
