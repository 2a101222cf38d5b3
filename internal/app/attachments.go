package app

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const attachmentFormField = "attachments"

var allowedAttachmentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// collectAttachments validates and uploads every payment-proof artifact
// before the reservation transaction commits, so a committed reservation
// never lacks an attachment it promised. Objects uploaded by a request that
// subsequently fails are never referenced and lapse via bucket lifecycle.
func (app *Application) collectAttachments(r *http.Request, ownerID *uuid.UUID) ([]domain.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	files := r.MultipartForm.File[attachmentFormField]
	if len(files) == 0 {
		return nil, nil
	}

	if app.attachmentStore == nil {
		return nil, fmt.Errorf("attachment uploads are not enabled")
	}

	if len(files) > app.config.Hold.MaxAttachments {
		return nil, fmt.Errorf("at most %d attachments are allowed", app.config.Hold.MaxAttachments)
	}

	for _, fh := range files {
		if err := validateAttachment(fh, app.config.Hold.MaxAttachmentBytes); err != nil {
			return nil, err
		}
	}

	owner := "anonymous"
	if ownerID != nil {
		owner = ownerID.String()
	}

	uploadedAt := time.Now().UTC().Unix()
	attachments := make([]domain.Attachment, len(files))

	g, ctx := errgroup.WithContext(r.Context())

	for i, fh := range files {
		g.Go(func() error {
			contentType := fh.Header.Get("Content-Type")
			key := fmt.Sprintf("payment-proof/%s/%d/%d%s", owner, uploadedAt, i, allowedAttachmentTypes[contentType])

			f, err := fh.Open()
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
			}
			defer f.Close()

			url, err := app.attachmentStore.Put(ctx, key, contentType, f, fh.Size)
			if err != nil {
				return err
			}

			attachments[i] = domain.Attachment{
				ObjectKey:   key,
				URL:         url,
				ContentType: contentType,
				Size:        fh.Size,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return attachments, nil
}

func validateAttachment(fh *multipart.FileHeader, maxBytes int64) error {
	contentType := fh.Header.Get("Content-Type")

	if _, ok := allowedAttachmentTypes[contentType]; !ok {
		return fmt.Errorf("attachment %q has unsupported content type %q", fh.Filename, contentType)
	}

	if fh.Size > maxBytes {
		return fmt.Errorf("attachment %q exceeds the %d byte limit", fh.Filename, maxBytes)
	}

	return nil
}
