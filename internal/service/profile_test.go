package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
	repoMocks "portfolioapi/internal/repository/mocks"
)

func TestProfileService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(mRepo *repoMocks.MockProfileRepository)
		wantName   string
		wantErr    error
	}{
		{
			name: "stored profile",
			setupMocks: func(mRepo *repoMocks.MockProfileRepository) {
				mRepo.On("Get", ctx, model.ProfileID).Return(&model.Profile{ID: model.ProfileID, Name: "Dina"}, nil)
			},
			wantName: "Dina",
		},
		{
			name: "default when never saved",
			setupMocks: func(mRepo *repoMocks.MockProfileRepository) {
				mRepo.On("Get", ctx, model.ProfileID).Return(nil, repository.ErrNotFound)
			},
			wantName: DefaultProfile().Name,
		},
		{
			name: "store error",
			setupMocks: func(mRepo *repoMocks.MockProfileRepository) {
				mRepo.On("Get", ctx, model.ProfileID).Return(nil, errors.New("unavailable"))
			},
			wantErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockProfileRepository)
			tt.setupMocks(mRepo)
			svc := NewProfileService(mRepo, zap.NewNop())

			p, err := svc.Get(ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, p.Name)
				assert.Equal(t, model.ProfileID, p.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestProfileService_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mRepo := new(repoMocks.MockProfileRepository)
	svc := NewProfileService(mRepo, nil).(*profileService)
	svc.now = func() time.Time { return now }

	mRepo.On("Upsert", ctx, mock.MatchedBy(func(p *model.Profile) bool {
		return p.ID == model.ProfileID && p.UpdatedAt.Equal(now) && p.Name == "Dina"
	})).Return(func(p *model.Profile) *model.Profile { return p }, nil).Once()

	p, err := svc.Update(ctx, model.Profile{ID: "spoofed", Name: "Dina"})
	require.NoError(t, err)
	assert.Equal(t, model.ProfileID, p.ID)

	mRepo.On("Upsert", ctx, mock.Anything).Return(nil, errors.New("deadline exceeded")).Once()
	_, err = svc.Update(ctx, model.Profile{Name: "Dina"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	mRepo.AssertExpectations(t)
}
