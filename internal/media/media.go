// Package media describes the assets the gateway proxies to a remote media
// provider: the resource records it lists, the metadata it attaches, and the
// Store interface backends implement.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Kind is the provider resource type.
type Kind string

// Supported resource kinds.
const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

var (
	// ErrInvalidKind indicates an unsupported resource kind.
	ErrInvalidKind = errors.New("invalid media kind")
	// ErrUpstream indicates the remote media provider rejected or failed a call.
	ErrUpstream = errors.New("media provider error")
)

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindImage
}

// UpstreamError records which provider operation failed.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the provider error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Upstream wraps err as a failure of op. It returns nil for a nil err.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}

// Resource is one stored asset as reported by the provider.
type Resource struct {
	PublicID  string
	URL       string
	Format    string
	Bytes     int64
	Width     int
	Height    int
	CreatedAt time.Time
	Tags      []string
	Context   map[string]string
}

// Descriptor is the provider's own description of a created asset, passed
// through to clients unchanged.
type Descriptor = json.RawMessage

// UploadInput is a single asset upload. Body is read once and not retained.
// Backends upload in parts when Body is also an io.ReaderAt of Size bytes.
type UploadInput struct {
	Kind        Kind
	Folder      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Metadata    Metadata
	Tags        []string
}

// ListQuery selects resources of one kind under a path prefix.
type ListQuery struct {
	Kind       Kind
	Prefix     string
	MaxResults int
}

// UpdateInput rewrites context keys and replaces the tags of a resource.
// Context keys not named are left alone.
type UpdateInput struct {
	Kind     Kind
	PublicID string
	Context  map[string]string
	Tags     []string
}

// DestroyInput deletes a resource.
type DestroyInput struct {
	Kind       Kind
	PublicID   string
	Invalidate bool
}

// Store is the remote media provider.
type Store interface {
	Upload(ctx context.Context, in UploadInput) (Descriptor, error)
	List(ctx context.Context, q ListQuery) ([]Resource, error)
	Update(ctx context.Context, in UpdateInput) error
	Destroy(ctx context.Context, in DestroyInput) (string, error)
}
