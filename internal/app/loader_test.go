package app

import (
	"os"
	"path/filepath"
	"testing"

	"gcs2autoclass/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buckets.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBucketList(t *testing.T) {
	path := writeList(t, `
# production buckets
bucket-a
bucket-b

other-project,bucket-c
  bucket-d
`)

	tasks, err := LoadBucketList(path, "default-project", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []worker.Task{
		{Project: "default-project", Bucket: "bucket-a"},
		{Project: "default-project", Bucket: "bucket-b"},
		{Project: "other-project", Bucket: "bucket-c"},
		{Project: "default-project", Bucket: "bucket-d"},
	}, tasks)
}

func TestLoadBucketListDropsDuplicates(t *testing.T) {
	path := writeList(t, "bucket-a\nbucket-b\nbucket-a\n")

	tasks, err := LoadBucketList(path, "p", zap.NewNop())
	require.NoError(t, err)

	require.Len(t, tasks, 2)
	assert.Equal(t, "bucket-a", tasks[0].Bucket)
	assert.Equal(t, "bucket-b", tasks[1].Bucket)
}

func TestLoadBucketListEmptyFile(t *testing.T) {
	path := writeList(t, "\n# only comments\n\n")

	_, err := LoadBucketList(path, "p", zap.NewNop())
	assert.Error(t, err)
}

func TestLoadBucketListEmptyBucketName(t *testing.T) {
	path := writeList(t, "proj-a,\n")

	_, err := LoadBucketList(path, "p", zap.NewNop())
	assert.Error(t, err)
}

func TestLoadBucketListMissingFile(t *testing.T) {
	_, err := LoadBucketList(filepath.Join(t.TempDir(), "nope.txt"), "p", zap.NewNop())
	assert.Error(t, err)
}
