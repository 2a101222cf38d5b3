package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/blackticket/reservation-service/internal/mocks"
	"github.com/blackticket/reservation-service/internal/validator"
	"github.com/go-chi/chi/v5"
)

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config: Config{
			Env: "test",
			Hold: HoldConfig{
				Duration:           600 * time.Second,
				MaxAttachments:     5,
				MaxAttachmentBytes: 5 * 1024 * 1024,
			},
		},
		validator:       validator.NewValidator(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:         newMetrics(),
		reservationRepo: &mocks.MockReservationRepo{},
		catalogRepo:     &mocks.MockCatalogRepo{},
		userRepo:        &mocks.MockUserRepo{},
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	jsonData, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(method, url, bytes.NewReader(jsonData))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

type filePart struct {
	name        string
	contentType string
	content     []byte
}

func executeMultipartRequest(t *testing.T, url string, payload any, files []filePart) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	jsonData, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("payload", string(jsonData)); err != nil {
		t.Fatal(err)
	}

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename=%q`, f.name))
		header.Set("Content-Type", f.contentType)

		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := part.Write(f.content); err != nil {
			t.Fatal(err)
		}
	}

	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, url, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	return w, r
}

// withURLParam injects a chi route parameter so handlers can be exercised
// without the full router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func ptr[T any](v T) *T {
	return &v
}
