package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Attachment references a payment-proof artifact stored in the object store.
type Attachment struct {
	ID          uuid.UUID
	ObjectKey   string
	URL         string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

type AttachmentStore interface {
	// Put uploads the artifact and returns its public URL. Implementations
	// wrap transport/storage failures in ErrUploadFailed.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}
