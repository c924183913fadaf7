package mocks

import (
	"context"

	"portfolioapi/internal/ingest"
	"portfolioapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, f ingest.File, folder string) (model.AssetRef, error) {
	args := m.Called(ctx, f, folder)
	return args.Get(0).(model.AssetRef), args.Error(1)
}
