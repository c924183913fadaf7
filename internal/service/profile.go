package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
)

// ProfileService reads and writes the singleton profile document.
type ProfileService interface {
	// Get returns the stored profile, or DefaultProfile when none has been saved yet.
	Get(ctx context.Context) (*model.Profile, error)
	// Update upserts the profile. createdAt is kept from the first write.
	Update(ctx context.Context, p model.Profile) (*model.Profile, error)
}

type profileService struct {
	repo repository.ProfileRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewProfileService constructs a ProfileService. A nil log discards output.
func NewProfileService(repo repository.ProfileRepository, log *zap.Logger) ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &profileService{repo: repo, log: log, now: time.Now}
}

func (s *profileService) Get(ctx context.Context) (*model.Profile, error) {
	p, err := s.repo.Get(ctx, model.ProfileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return DefaultProfile(), nil
		}
		return nil, storeErr("get profile", err)
	}
	return p, nil
}

func (s *profileService) Update(ctx context.Context, p model.Profile) (*model.Profile, error) {
	now := s.now().UTC()
	p.ID = model.ProfileID
	p.CreatedAt = now
	p.UpdatedAt = now

	stored, err := s.repo.Upsert(ctx, &p)
	if err != nil {
		return nil, storeErr("upsert profile", err)
	}
	s.log.Info("profile updated", zap.Time("updated_at", stored.UpdatedAt))
	return stored, nil
}

// DefaultProfile is served until the owner saves a profile. It is never persisted.
func DefaultProfile() *model.Profile {
	return &model.Profile{
		ID:         model.ProfileID,
		Name:       "Your Name",
		Title:      "Product Designer",
		About:      "Tell visitors about yourself.",
		Education:  []model.Education{},
		Experience: []model.Experience{},
		Skills:     []model.Skill{},
		Software:   []model.Skill{},
		Languages:  []model.Language{},
		Interests:  []string{},
		Activities: []string{},
	}
}
