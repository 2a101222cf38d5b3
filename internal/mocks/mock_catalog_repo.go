package mocks

import (
	"context"
	"time"

	"github.com/blackticket/reservation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCatalogRepo struct {
	mock.Mock
	domain.CatalogRepository
}

func (m *MockCatalogRepo) GetShowSlot(
	ctx context.Context,
	movieID uuid.UUID,
	date time.Time,
	startTime, screenID string) (*domain.ShowSlot, error) {

	args := m.Called(ctx, movieID, date, startTime, screenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShowSlot), args.Error(1)
}

func (m *MockCatalogRepo) GetSchedule(ctx context.Context, movieID uuid.UUID) (*domain.MovieSchedule, error) {
	args := m.Called(ctx, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MovieSchedule), args.Error(1)
}
