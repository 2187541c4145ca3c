package storage

import (
	"context"
	"errors"
	"fmt"
)

// Terminal storage classes accepted by GCS Autoclass.
const (
	TerminalClassArchive  = "ARCHIVE"
	TerminalClassNearline = "NEARLINE"
)

// BucketInfo contains the control-plane state of a bucket.
type BucketInfo struct {
	Name                 string
	StorageClass         string
	Location             string
	LocationType         string
	AutoclassEnabled     bool
	TerminalStorageClass string
	RequesterPays        bool
}

// Migrated reports whether the bucket already has Autoclass enabled with
// the given terminal storage class.
func (b BucketInfo) Migrated(terminalClass string) bool {
	return b.AutoclassEnabled && b.TerminalStorageClass == terminalClass
}

// Client defines the bucket control-plane operations used by the migration.
// Both mutations are idempotent on the remote side and safe to call
// concurrently for different bucket names.
type Client interface {
	BucketAttrs(ctx context.Context, project, bucket string) (BucketInfo, error)
	EnableAutoclass(ctx context.Context, project, bucket string) error
	SetTerminalStorageClass(ctx context.Context, project, bucket, class string) error
}

// ErrorKind classifies a remote failure as retryable or not.
type ErrorKind int

const (
	// KindTransient marks failures that a retry may fix: rate limits,
	// timeouts, server-side errors.
	KindTransient ErrorKind = iota

	// KindPermanent marks failures that retries cannot fix: not-found,
	// permission-denied, invalid arguments.
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// RemoteError wraps an error returned by the remote API together with its
// retry classification. The retry policy depends on this contract.
type RemoteError struct {
	Op     string
	Bucket string
	Kind   ErrorKind
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err carries a transient remote classification.
func IsTransient(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == KindTransient
}
