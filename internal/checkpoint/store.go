package checkpoint

import (
	"time"
)

// Status represents the persisted state of a bucket migration.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is a bucket migration record in the checkpoint store.
type Record struct {
	Project   string    `json:"project"`
	Bucket    string    `json:"bucket"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for checkpoint persistence. Resumed runs use
// it to skip buckets already migrated in a previous run.
type Store interface {
	Get(project, bucket string) (*Record, error)
	Save(record *Record) error
	ListFailed() ([]*Record, error)
	Close() error
}

// NopStore is a Store that persists nothing, used when checkpointing is
// disabled.
type NopStore struct{}

func (NopStore) Get(project, bucket string) (*Record, error) { return nil, nil }
func (NopStore) Save(record *Record) error                   { return nil }
func (NopStore) ListFailed() ([]*Record, error)              { return nil, nil }
func (NopStore) Close() error                                { return nil }
