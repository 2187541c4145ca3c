package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gcs2autoclass/internal/worker"

	"go.uber.org/zap"
)

// LoadBucketList reads the input file into an ordered, deduplicated task
// list. Each line is either a bucket name or "project,bucket"; blank lines
// and lines starting with '#' are skipped. Bucket names without an explicit
// project use defaultProject.
func LoadBucketList(path, defaultProject string, logger *zap.Logger) ([]worker.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket list: %w", err)
	}
	defer f.Close()

	var tasks []worker.Task
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		project := defaultProject
		bucket := line
		if idx := strings.Index(line, ","); idx >= 0 {
			project = strings.TrimSpace(line[:idx])
			bucket = strings.TrimSpace(line[idx+1:])
		}

		if bucket == "" {
			return nil, fmt.Errorf("line %d: empty bucket name", lineNo)
		}

		if _, dup := seen[bucket]; dup {
			logger.Warn("Duplicate bucket dropped",
				zap.String("bucket", bucket),
				zap.Int("line", lineNo),
			)
			continue
		}
		seen[bucket] = struct{}{}

		tasks = append(tasks, worker.Task{Project: project, Bucket: bucket})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bucket list: %w", err)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("bucket list %s is empty", path)
	}

	return tasks, nil
}
