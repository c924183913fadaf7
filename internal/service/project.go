package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolioapi/internal/assetref"
	"portfolioapi/internal/cache"
	"portfolioapi/internal/ingest"
	"portfolioapi/internal/model"
	"portfolioapi/internal/ordering"
	"portfolioapi/internal/repository"
	"portfolioapi/internal/storage"
)

// CategoryAll is the pseudo-category that matches every project.
const CategoryAll = "all"

// ingestConcurrency bounds parallel uploads within one create or update.
const ingestConcurrency = 4

var tracer = otel.Tracer("portfolioapi/internal/service")

// Ingester turns one uploaded file into a stored asset reference.
type Ingester interface {
	Ingest(ctx context.Context, f ingest.File, folder string) (model.AssetRef, error)
}

// ProjectService is the authoritative CRUD surface over projects. It is the only
// component that writes to both the document store and the blob store for project data.
type ProjectService interface {
	// List returns every project, newest first.
	List(ctx context.Context) ([]model.Project, error)

	// ListByCategory returns projects whose category equals category exactly, newest first.
	ListByCategory(ctx context.Context, category string) ([]model.Project, error)

	// GetByID returns nil and no error when the project does not exist.
	GetByID(ctx context.Context, id string) (*model.Project, error)

	// Create ingests every file in order and writes one document. Any ingestion
	// failure aborts the create before a document is written.
	Create(ctx context.Context, fields model.ProjectFields, files []ingest.File) (*model.Project, error)

	// Update applies patch, appends the ingested files to the image baseline and writes the document.
	Update(ctx context.Context, id string, patch model.ProjectPatch, files []ingest.File) (*model.Project, error)

	// DeleteImage removes the first occurrence of imageURL and then deletes its blob best-effort.
	DeleteImage(ctx context.Context, id, imageURL string) ([]model.AssetRef, error)

	// Delete removes every blob of the project best-effort, then the document.
	Delete(ctx context.Context, id string) (string, error)

	// ListCategories returns "all" followed by the distinct categories in first-seen order of List.
	ListCategories(ctx context.Context) ([]string, error)

	// Reorder previews an ordering operation without persisting it.
	Reorder(images []string, op ordering.Op, index int) ([]string, error)
}

// Option configures a project service.
type Option func(*projectService)

// WithCache enables list caching. Every mutation invalidates it.
func WithCache(c cache.ProjectLists) Option {
	return func(s *projectService) { s.cache = c }
}

// WithLogger sets the logger used for cleanup warnings and lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(s *projectService) { s.log = l }
}

// WithMetrics records ingestion and cleanup counters on m.
func WithMetrics(m *Metrics) Option {
	return func(s *projectService) { s.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *projectService) { s.now = now }
}

// WithFolder sets the blob folder new images are stored under.
func WithFolder(folder string) Option {
	return func(s *projectService) { s.folder = folder }
}

type projectService struct {
	repo     repository.ProjectRepository
	store    storage.Storage
	ingester Ingester
	cache    cache.ProjectLists
	log      *zap.Logger
	metrics  *Metrics
	now      func() time.Time
	folder   string
}

// NewProjectService constructs a ProjectService.
func NewProjectService(repo repository.ProjectRepository, store storage.Storage, ingester Ingester, opts ...Option) ProjectService {
	s := &projectService{
		repo:     repo,
		store:    store,
		ingester: ingester,
		cache:    cache.Nop{},
		log:      zap.NewNop(),
		now:      time.Now,
		folder:   "projects",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *projectService) List(ctx context.Context) ([]model.Project, error) {
	return s.list(ctx, "")
}

func (s *projectService) ListByCategory(ctx context.Context, category string) ([]model.Project, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	return s.list(ctx, category)
}

func (s *projectService) list(ctx context.Context, category string) (_ []model.Project, err error) {
	ctx, span := tracer.Start(ctx, "ProjectService.List", trace.WithAttributes(attribute.String("category", category)))
	defer func() { endSpan(span, err) }()

	// The generation is read before the store so a listing fetched across a
	// mutation is written under a retired generation.
	gen, cerr := s.cache.Generation(ctx)
	if cerr != nil {
		s.log.Debug("list cache unavailable", zap.Error(cerr))
	} else {
		items, ok, cerr := s.cache.Get(ctx, gen, category)
		if cerr != nil {
			s.log.Debug("list cache read failed", zap.Error(cerr))
		}
		if ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return items, nil
		}
	}

	items, err := s.repo.List(ctx, repository.ProjectQuery{Category: category})
	if err != nil {
		return nil, storeErr("list projects", err)
	}
	if cerr == nil {
		if cerr := s.cache.Set(ctx, gen, category, items); cerr != nil {
			s.log.Debug("list cache write failed", zap.Error(cerr))
		}
	}
	return items, nil
}

func (s *projectService) GetByID(ctx context.Context, id string) (*model.Project, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, storeErr("get project", err)
	}
	return p, nil
}

func (s *projectService) Create(ctx context.Context, fields model.ProjectFields, files []ingest.File) (_ *model.Project, err error) {
	ctx, span := tracer.Start(ctx, "ProjectService.Create", trace.WithAttributes(attribute.Int("files", len(files))))
	defer func() { endSpan(span, err) }()

	if err := validateFields(fields.Title, fields.Category, fields.Description, fields.Year); err != nil {
		return nil, err
	}

	refs, err := s.ingestAll(ctx, files)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &model.Project{
		Title:         fields.Title,
		Category:      fields.Category,
		Year:          fields.Year,
		Description:   fields.Description,
		Challenge:     fields.Challenge,
		Solution:      fields.Solution,
		DesignProcess: fields.DesignProcess,
		Mentors:       nonNil(fields.Mentors),
		Materials:     nonNil(fields.Materials),
		Awards:        nonNil(fields.Awards),
		Images:        ordering.Append([]string{}, urlsOf(refs)...),
		Featured:      fields.Featured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	stored, err := s.repo.Create(ctx, p)
	if err != nil {
		s.retainUploads("", refs, err)
		return nil, storeErr("create project", err)
	}

	s.invalidate(ctx)
	s.metrics.ingested(len(refs))
	s.log.Info("project created", zap.String("project_id", stored.ID), zap.Int("images", len(stored.Images)))
	return stored, nil
}

func (s *projectService) Update(ctx context.Context, id string, patch model.ProjectPatch, files []ingest.File) (_ *model.Project, err error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	ctx, span := tracer.Start(ctx, "ProjectService.Update", trace.WithAttributes(
		attribute.String("project_id", id),
		attribute.Int("files", len(files)),
	))
	defer func() { endSpan(span, err) }()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get project", err)
	}

	next := *existing
	patch.Apply(&next)
	if err := validateFields(next.Title, next.Category, next.Description, next.Year); err != nil {
		return nil, err
	}

	baseline := existing.Images
	if patch.Images != nil {
		baseline = *patch.Images
		if err := s.checkBaseline(id, existing.Images, baseline); err != nil {
			return nil, err
		}
	}

	refs, err := s.ingestAll(ctx, files)
	if err != nil {
		return nil, err
	}

	next.Images = ordering.Append(nonNil(baseline), urlsOf(refs)...)
	next.UpdatedAt = s.now().UTC()

	stored, err := s.repo.Update(ctx, &next)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.rollback(ctx, refs, storeErr("update project", err))
		}
		s.retainUploads(id, refs, err)
		return nil, storeErr("update project", err)
	}

	s.invalidate(ctx)
	s.metrics.ingested(len(refs))
	s.log.Info("project updated", zap.String("project_id", id), zap.Int("images", len(stored.Images)))
	return stored, nil
}

// checkBaseline rejects caller-supplied URLs that are neither stored already nor decodable,
// and flags baselines that differ from the stored set. The write still proceeds in the
// latter case: the caller's list wins.
func (s *projectService) checkBaseline(id string, stored, baseline []string) error {
	var added, dropped int
	for _, u := range baseline {
		if slices.Contains(stored, u) {
			continue
		}
		if _, err := assetref.DecodePath(u); err != nil {
			return fmt.Errorf("%w: image %q: %v", ErrInvalidInput, u, err)
		}
		added++
	}
	for _, u := range stored {
		if !slices.Contains(baseline, u) {
			dropped++
		}
	}
	if added > 0 || dropped > 0 {
		s.log.Warn("image baseline differs from stored images",
			zap.String("event", "image_baseline_diverged"),
			zap.String("project_id", id),
			zap.Int("added", added),
			zap.Int("dropped", dropped),
		)
	}
	return nil
}

func (s *projectService) DeleteImage(ctx context.Context, id, imageURL string) (_ []model.AssetRef, err error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	ctx, span := tracer.Start(ctx, "ProjectService.DeleteImage", trace.WithAttributes(attribute.String("project_id", id)))
	defer func() { endSpan(span, err) }()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get project", err)
	}
	if !slices.Contains(p.Images, imageURL) {
		return assetRefs(p.Images), nil
	}

	ctx = context.WithoutCancel(ctx)
	next := *p
	next.Images = ordering.Remove(p.Images, imageURL)
	next.UpdatedAt = s.now().UTC()

	stored, err := s.repo.Update(ctx, &next)
	if err != nil {
		return nil, storeErr("update project", err)
	}
	s.invalidate(ctx)

	s.deleteBlob(ctx, id, imageURL)
	return assetRefs(stored.Images), nil
}

func (s *projectService) Delete(ctx context.Context, id string) (_ string, err error) {
	if id == "" {
		return "", ErrIDRequired
	}
	ctx, span := tracer.Start(ctx, "ProjectService.Delete", trace.WithAttributes(attribute.String("project_id", id)))
	defer func() { endSpan(span, err) }()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", storeErr("get project", err)
	}

	// Once started, cleanup runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	for _, u := range p.Images {
		s.deleteBlob(ctx, id, u)
	}

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", storeErr("delete project", err)
	}

	s.invalidate(ctx)
	s.log.Info("project deleted", zap.String("project_id", id), zap.Int("images", len(p.Images)))
	return id, nil
}

func (s *projectService) ListCategories(ctx context.Context) ([]string, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(items), nil
}

// Categories returns "all" followed by each distinct category in order of first appearance.
func Categories(items []model.Project) []string {
	out := []string{CategoryAll}
	seen := make(map[string]struct{}, len(items))
	for _, p := range items {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

func (s *projectService) Reorder(images []string, op ordering.Op, index int) ([]string, error) {
	out, err := ordering.Apply(images, op, index)
	if err != nil {
		if errors.Is(err, ordering.ErrIndexOutOfRange) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return out, nil
}

// ingestAll uploads files concurrently and returns their refs in input order.
// On failure every blob uploaded by this call is removed again.
func (s *projectService) ingestAll(ctx context.Context, files []ingest.File) ([]model.AssetRef, error) {
	if len(files) == 0 {
		return nil, nil
	}
	refs := make([]model.AssetRef, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for i, f := range files {
		g.Go(func() error {
			ref, err := s.ingester.Ingest(gctx, f, s.folder)
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, ErrIngestion) {
			err = fmt.Errorf("%w: %v", ErrIngestion, err)
		}
		return nil, s.rollback(ctx, refs, err)
	}
	return refs, nil
}

// rollback deletes blobs uploaded by a call that is about to fail and returns cause,
// annotated when a rollback delete fails too.
func (s *projectService) rollback(ctx context.Context, refs []model.AssetRef, cause error) error {
	ctx = context.WithoutCancel(ctx)
	var failed []string
	for _, r := range refs {
		if r.Path == "" {
			continue
		}
		if err := s.store.Delete(ctx, r.Path); err != nil {
			s.metrics.cleanupFailed()
			s.log.Warn("rollback delete failed",
				zap.String("event", "partial_cleanup"),
				zap.String("storage_path", r.Path),
				zap.Error(err),
			)
			failed = append(failed, r.Path)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w; rollback delete failed for %s", cause, strings.Join(failed, ", "))
	}
	return cause
}

// retainUploads logs blobs left behind by a failed document write. The write may
// have been applied, so they are not deleted here; the sweeper reclaims the ones
// that end up unreferenced.
func (s *projectService) retainUploads(projectID string, refs []model.AssetRef, cause error) {
	for _, r := range refs {
		s.log.Warn("document write failed, upload left for sweep",
			zap.String("event", "upload_retained"),
			zap.String("project_id", projectID),
			zap.String("storage_path", r.Path),
			zap.Error(cause),
		)
	}
}

// deleteBlob removes the blob behind imageURL. Failures are logged, never returned.
func (s *projectService) deleteBlob(ctx context.Context, projectID, imageURL string) {
	p, err := assetref.DecodePath(imageURL)
	if err != nil {
		s.metrics.cleanupFailed()
		s.log.Warn("image url not decodable, blob left orphaned",
			zap.String("event", "partial_cleanup"),
			zap.String("project_id", projectID),
			zap.String("image_url", imageURL),
			zap.Error(err),
		)
		return
	}
	if err := s.store.Delete(ctx, p); err != nil {
		s.metrics.cleanupFailed()
		s.log.Warn("blob delete failed",
			zap.String("event", "partial_cleanup"),
			zap.String("project_id", projectID),
			zap.String("image_url", imageURL),
			zap.String("storage_path", p),
			zap.Error(err),
		)
	}
}

func (s *projectService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("list cache invalidation failed", zap.Error(err))
	}
}

func validateFields(title, category, description, year string) error {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"title", title},
		{"category", category},
		{"description", description},
		{"year", year},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func assetRefs(urls []string) []model.AssetRef {
	out := make([]model.AssetRef, 0, len(urls))
	for _, u := range urls {
		ref := model.AssetRef{URL: u}
		if p, err := assetref.DecodePath(u); err == nil {
			ref.Path = p
			ref.FileName = path.Base(p)
		}
		out = append(out, ref)
	}
	return out
}

func urlsOf(refs []model.AssetRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.URL
	}
	return out
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return slices.Clone(v)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
