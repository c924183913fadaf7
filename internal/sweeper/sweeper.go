// Package sweeper reconciles the blob store against the catalog and removes
// images that no project references any more.
package sweeper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"portfolioapi/internal/assetref"
	"portfolioapi/internal/repository"
	"portfolioapi/internal/storage"
)

// Result summarizes one sweep.
type Result struct {
	Scanned    int `json:"scanned"`
	Referenced int `json:"referenced"`
	TooYoung   int `json:"tooYoung"`
	Deleted    int `json:"deleted"`
	Failed     int `json:"failed"`
}

// Sweeper deletes unreferenced blobs under one folder. Blobs younger than grace are
// kept so uploads of a create that has not written its document yet survive.
type Sweeper struct {
	repo   repository.ProjectRepository
	store  storage.Storage
	folder string
	grace  time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// New returns a sweeper for blobs under folder. Blobs younger than grace are
// never deleted so uploads whose document write is still in flight survive.
func New(repo repository.ProjectRepository, store storage.Storage, folder string, grace time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		repo:   repo,
		store:  store,
		folder: strings.Trim(folder, "/"),
		grace:  grace,
		log:    log.With(zap.String("component", "sweeper")),
		now:    time.Now,
	}
}

// Sweep runs one reconciliation pass. Only listing failures are returned;
// per-blob delete failures are logged and counted.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result

	projects, err := s.repo.List(ctx, repository.ProjectQuery{})
	if err != nil {
		return res, fmt.Errorf("list projects: %w", err)
	}
	referenced := make(map[string]struct{})
	for _, p := range projects {
		for _, u := range p.Images {
			if path, err := assetref.DecodePath(u); err == nil {
				referenced[path] = struct{}{}
			}
		}
	}

	objects, err := s.store.List(ctx, s.folder+"/")
	if err != nil {
		return res, fmt.Errorf("list blobs: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	for _, obj := range objects {
		res.Scanned++
		if _, ok := referenced[obj.Key]; ok {
			res.Referenced++
			continue
		}
		if obj.LastModified.After(cutoff) {
			res.TooYoung++
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			res.Failed++
			s.log.Warn("orphan delete failed",
				zap.String("event", "partial_cleanup"),
				zap.String("storage_path", obj.Key),
				zap.Error(err),
			)
			continue
		}
		res.Deleted++
		s.log.Debug("orphan deleted", zap.String("storage_path", obj.Key))
	}

	s.log.Info("sweep finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("deleted", res.Deleted),
		zap.Int("failed", res.Failed),
		zap.Int("too_young", res.TooYoung),
	)
	return res, nil
}

// Schedule runs Sweep on a six-field cron spec (seconds first) until Stop is called
// on the returned cron. Overlapping runs are skipped.
func (s *Sweeper) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	s.log.Info("sweep scheduled", zap.String("schedule", spec))
	return c, nil
}
