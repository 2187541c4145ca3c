package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSClient implements the Client interface using the Google Cloud Storage SDK.
type GCSClient struct {
	client *gcs.Client
}

// NewGCSClient creates a new GCS client using application default credentials.
func NewGCSClient(ctx context.Context, opts ...option.ClientOption) (*GCSClient, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSClient{client: client}, nil
}

// BucketAttrs reads the current bucket state.
func (c *GCSClient) BucketAttrs(ctx context.Context, project, bucket string) (BucketInfo, error) {
	attrs, err := c.handle(project, bucket).Attrs(ctx)
	if err != nil {
		return BucketInfo{}, classify("get bucket attrs", bucket, err)
	}

	info := BucketInfo{
		Name:          attrs.Name,
		StorageClass:  attrs.StorageClass,
		Location:      attrs.Location,
		LocationType:  attrs.LocationType,
		RequesterPays: attrs.RequesterPays,
	}
	if attrs.Autoclass != nil {
		info.AutoclassEnabled = attrs.Autoclass.Enabled
		info.TerminalStorageClass = attrs.Autoclass.TerminalStorageClass
	}

	return info, nil
}

// EnableAutoclass turns on automatic storage-class tiering for the bucket.
// Enabling an already-enabled bucket is a no-op on the remote side.
func (c *GCSClient) EnableAutoclass(ctx context.Context, project, bucket string) error {
	_, err := c.handle(project, bucket).Update(ctx, gcs.BucketAttrsToUpdate{
		Autoclass: &gcs.Autoclass{Enabled: true},
	})
	if err != nil {
		return classify("enable autoclass", bucket, err)
	}
	return nil
}

// SetTerminalStorageClass sets the coldest tier objects can reach under
// Autoclass. The update keeps Autoclass enabled; the API rejects a terminal
// class on a bucket without Autoclass, which is why enabling always runs first.
func (c *GCSClient) SetTerminalStorageClass(ctx context.Context, project, bucket, class string) error {
	_, err := c.handle(project, bucket).Update(ctx, gcs.BucketAttrsToUpdate{
		Autoclass: &gcs.Autoclass{Enabled: true, TerminalStorageClass: class},
	})
	if err != nil {
		return classify("set terminal storage class", bucket, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *GCSClient) Close() error {
	return c.client.Close()
}

// handle returns the bucket handle, billing requester-pays operations to the
// owning project so that attr reads on such buckets do not fail.
func (c *GCSClient) handle(project, bucket string) *gcs.BucketHandle {
	h := c.client.Bucket(bucket)
	if project != "" {
		h = h.UserProject(project)
	}
	return h
}

// classify maps an SDK error onto the transient/permanent taxonomy.
// Unknown errors are treated as permanent so an unclassified failure is
// surfaced instead of retried blindly.
func classify(op, bucket string, err error) *RemoteError {
	kind := KindPermanent

	var apiErr *googleapi.Error
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			kind = KindTransient
		}
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTransient
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTransient
	}

	return &RemoteError{Op: op, Bucket: bucket, Kind: kind, Err: err}
}
