package mocks

import (
	"context"
	"io"

	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockAttachmentStore struct {
	mock.Mock
	domain.AttachmentStore
}

func (m *MockAttachmentStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, key, contentType, body, size)
	return args.String(0), args.Error(1)
}
