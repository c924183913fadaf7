package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"portfolioapi/internal/assetref"
	"portfolioapi/internal/cache"
	"portfolioapi/internal/ingest"
	ingestMocks "portfolioapi/internal/ingest/mocks"
	"portfolioapi/internal/model"
	"portfolioapi/internal/ordering"
	"portfolioapi/internal/repository"
	repoMocks "portfolioapi/internal/repository/mocks"
	storeMocks "portfolioapi/internal/storage/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func urlFor(p string) string {
	return assetref.EncodeURL("http://localhost:8080", "media", p, "")
}

func refFor(name string) model.AssetRef {
	p := "projects/" + name
	return model.AssetRef{URL: urlFor(p), Path: p, FileName: name}
}

func fileNamed(name string) ingest.File {
	return ingest.File{Name: name, Content: strings.NewReader(name)}
}

func matchFile(name string) any {
	return mock.MatchedBy(func(f ingest.File) bool { return f.Name == name })
}

type fixture struct {
	svc     ProjectService
	repo    *repoMocks.MockProjectRepository
	store   *storeMocks.MockStorage
	ing     *ingestMocks.MockIngester
	logs    *observer.ObservedLogs
	metrics *Metrics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		repo:    new(repoMocks.MockProjectRepository),
		store:   new(storeMocks.MockStorage),
		ing:     new(ingestMocks.MockIngester),
		logs:    logs,
		metrics: m,
	}
	opts = append([]Option{
		WithLogger(zap.New(core)),
		WithMetrics(m),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	f.svc = NewProjectService(f.repo, f.store, f.ing, opts...)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.ing.AssertExpectations(t)
}

func validFields() model.ProjectFields {
	return model.ProjectFields{Title: "T", Category: "c", Description: "d", Year: "2024"}
}

func TestProjectService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first from store", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("List", mock.Anything, repository.ProjectQuery{}).
			Return([]model.Project{{ID: "p2"}, {ID: "p1"}}, nil)

		items, err := f.svc.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, "p2", items[0].ID)
		f.assertExpectations(t)
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused"))

		_, err := f.svc.List(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "refused")
	})

	t.Run("by category is exact", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("List", mock.Anything, repository.ProjectQuery{Category: "Design"}).
			Return([]model.Project{}, nil)

		items, err := f.svc.ListByCategory(ctx, "Design")
		require.NoError(t, err)
		assert.Empty(t, items)
		f.assertExpectations(t)
	})

	t.Run("by empty category", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ListByCategory(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestProjectService_CacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := newFixture(t, WithCache(cache.NewRedis(client, time.Minute)))
	f.repo.On("List", mock.Anything, repository.ProjectQuery{}).
		Return([]model.Project{{ID: "p1"}}, nil).Twice()
	f.repo.On("Create", mock.Anything, mock.Anything).
		Return(func(p *model.Project) *model.Project {
			out := *p
			out.ID = "p2"
			return &out
		}, nil)

	_, err := f.svc.List(ctx)
	require.NoError(t, err)
	_, err = f.svc.List(ctx)
	require.NoError(t, err)
	f.repo.AssertNumberOfCalls(t, "List", 1)

	_, err = f.svc.Create(ctx, validFields(), nil)
	require.NoError(t, err)

	_, err = f.svc.List(ctx)
	require.NoError(t, err)
	f.repo.AssertNumberOfCalls(t, "List", 2)
}

func TestProjectService_ListFetchedAcrossMutationIsNotServed(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	lists := cache.NewRedis(client, time.Minute)

	f := newFixture(t, WithCache(lists))
	// A mutation commits and invalidates while the first read is in flight.
	f.repo.On("List", mock.Anything, repository.ProjectQuery{}).
		Run(func(mock.Arguments) { require.NoError(t, lists.Invalidate(ctx)) }).
		Return([]model.Project{{ID: "p1"}}, nil).Once()
	f.repo.On("List", mock.Anything, repository.ProjectQuery{}).
		Return([]model.Project{{ID: "p2"}, {ID: "p1"}}, nil).Once()

	items, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	f.repo.AssertNumberOfCalls(t, "List", 2)
}

func TestProjectService_ListWithoutCacheGeneration(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, mr.Set("catalog:projects:generation", "garbage"))

	f := newFixture(t, WithCache(cache.NewRedis(client, time.Minute)))
	f.repo.On("List", mock.Anything, repository.ProjectQuery{}).Return([]model.Project{{ID: "p1"}}, nil).Twice()

	for range 2 {
		_, err := f.svc.List(ctx)
		require.NoError(t, err)
	}
	f.repo.AssertNumberOfCalls(t, "List", 2)
	assert.Len(t, mr.Keys(), 1)
}

func TestProjectService_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockProjectRepository)
		want       *model.Project
		wantErr    error
	}{
		{
			name: "found",
			id:   "p1",
			setupMocks: func(mRepo *repoMocks.MockProjectRepository) {
				mRepo.On("FindByID", ctx, "p1").Return(&model.Project{ID: "p1"}, nil)
			},
			want: &model.Project{ID: "p1"},
		},
		{
			name: "absent is not an error",
			id:   "missing",
			setupMocks: func(mRepo *repoMocks.MockProjectRepository) {
				mRepo.On("FindByID", ctx, "missing").Return(nil, repository.ErrNotFound)
			},
		},
		{
			name: "store error",
			id:   "p1",
			setupMocks: func(mRepo *repoMocks.MockProjectRepository) {
				mRepo.On("FindByID", ctx, "p1").Return(nil, errors.New("timeout"))
			},
			wantErr: ErrStoreUnavailable,
		},
		{
			name:       "id required",
			setupMocks: func(mRepo *repoMocks.MockProjectRepository) {},
			wantErr:    ErrIDRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f.repo)

			got, err := f.svc.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			f.repo.AssertExpectations(t)
		})
	}
}

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	a, b, c := refFor("a.jpg"), refFor("b.jpg"), refFor("c.jpg")

	echoCreate := func(p *model.Project) *model.Project {
		out := *p
		out.ID = "new-id"
		return &out
	}

	tests := []struct {
		name       string
		fields     model.ProjectFields
		files      []ingest.File
		setupMocks func(f *fixture)
		wantErr    error
		wantErrMsg string
		check      func(t *testing.T, f *fixture, p *model.Project)
	}{
		{
			name:   "images keep input order",
			fields: validFields(),
			files:  []ingest.File{fileNamed("a.jpg"), fileNamed("b.jpg"), fileNamed("c.jpg")},
			setupMocks: func(f *fixture) {
				// The first upload finishes last.
				f.ing.On("Ingest", mock.Anything, matchFile("a.jpg"), "projects").After(30*time.Millisecond).Return(a, nil)
				f.ing.On("Ingest", mock.Anything, matchFile("b.jpg"), "projects").Return(b, nil)
				f.ing.On("Ingest", mock.Anything, matchFile("c.jpg"), "projects").Return(c, nil)
				f.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Project) bool {
					return p.ID == "" && p.CreatedAt.Equal(fixedNow) && p.UpdatedAt.Equal(fixedNow)
				})).Return(echoCreate, nil)
			},
			check: func(t *testing.T, f *fixture, p *model.Project) {
				assert.Equal(t, "new-id", p.ID)
				assert.Equal(t, []string{a.URL, b.URL, c.URL}, p.Images)
				assert.Equal(t, a.URL, p.PrimaryImage())
				assert.Equal(t, []string{}, p.Mentors)
				assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.imagesIngested))
			},
		},
		{
			name:   "no images",
			fields: validFields(),
			setupMocks: func(f *fixture) {
				f.repo.On("Create", mock.Anything, mock.Anything).Return(echoCreate, nil)
			},
			check: func(t *testing.T, f *fixture, p *model.Project) {
				assert.Equal(t, []string{}, p.Images)
			},
		},
		{
			name:       "missing required fields",
			fields:     model.ProjectFields{Title: "T", Category: "  "},
			files:      []ingest.File{fileNamed("a.jpg")},
			setupMocks: func(f *fixture) {},
			wantErr:    ErrInvalidInput,
			wantErrMsg: "category, description, year required",
		},
		{
			name:   "second of three fails ingestion",
			fields: validFields(),
			files:  []ingest.File{fileNamed("a.jpg"), fileNamed("b_bad.jpg"), fileNamed("c.jpg")},
			setupMocks: func(f *fixture) {
				f.ing.On("Ingest", mock.Anything, matchFile("a.jpg"), "projects").Return(a, nil)
				f.ing.On("Ingest", mock.Anything, matchFile("b_bad.jpg"), "projects").
					Return(model.AssetRef{}, errors.Join(ingest.ErrIngestion, errors.New("unsupported format")))
				f.ing.On("Ingest", mock.Anything, matchFile("c.jpg"), "projects").Return(c, nil)
				f.store.On("Delete", mock.Anything, a.Path).Return(nil)
				f.store.On("Delete", mock.Anything, c.Path).Return(nil)
			},
			wantErr: ErrIngestion,
			check: func(t *testing.T, f *fixture, _ *model.Project) {
				f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name:   "store write fails and uploads are kept",
			fields: validFields(),
			files:  []ingest.File{fileNamed("a.jpg")},
			setupMocks: func(f *fixture) {
				f.ing.On("Ingest", mock.Anything, matchFile("a.jpg"), "projects").Return(a, nil)
				f.repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("deadline exceeded"))
			},
			wantErr: ErrStoreUnavailable,
			check: func(t *testing.T, f *fixture, _ *model.Project) {
				f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
				kept := f.logs.FilterField(zap.String("event", "upload_retained")).All()
				require.Len(t, kept, 1)
				assert.Equal(t, a.Path, kept[0].ContextMap()["storage_path"])
			},
		},
		{
			name:   "rollback failure is reported",
			fields: validFields(),
			files:  []ingest.File{fileNamed("a.jpg"), fileNamed("b_bad.jpg")},
			setupMocks: func(f *fixture) {
				f.ing.On("Ingest", mock.Anything, matchFile("a.jpg"), "projects").Return(a, nil)
				f.ing.On("Ingest", mock.Anything, matchFile("b_bad.jpg"), "projects").
					Return(model.AssetRef{}, errors.New("unsupported format"))
				f.store.On("Delete", mock.Anything, a.Path).Return(errors.New("bucket offline"))
			},
			wantErr:    ErrIngestion,
			wantErrMsg: "rollback delete failed for " + a.Path,
			check: func(t *testing.T, f *fixture, _ *model.Project) {
				assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.cleanupFailures))
				f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f)

			p, err := f.svc.Create(ctx, tt.fields, tt.files)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
			} else {
				require.NoError(t, err)
			}
			if tt.wantErrMsg != "" {
				assert.ErrorContains(t, err, tt.wantErrMsg)
			}
			if tt.check != nil {
				tt.check(t, f, p)
			}
			f.assertExpectations(t)
		})
	}
}

func TestProjectService_Update(t *testing.T) {
	ctx := context.Background()
	a, b, c := refFor("a.jpg"), refFor("b.jpg"), refFor("c.jpg")
	created := fixedNow.Add(-48 * time.Hour)

	stored := func() *model.Project {
		return &model.Project{
			ID: "p1", Title: "Old", Category: "c", Description: "d", Year: "2023",
			Images: []string{a.URL, b.URL}, CreatedAt: created, UpdatedAt: created,
		}
	}
	echoUpdate := func(p *model.Project) *model.Project {
		out := *p
		return &out
	}
	title := "New"
	empty := ""

	tests := []struct {
		name       string
		patch      model.ProjectPatch
		files      []ingest.File
		setupMocks func(f *fixture)
		wantErr    error
		check      func(t *testing.T, f *fixture, p *model.Project)
	}{
		{
			name:  "caller baseline plus appended uploads",
			patch: model.ProjectPatch{Title: &title, Images: &[]string{b.URL, a.URL}},
			files: []ingest.File{fileNamed("c.jpg")},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
				f.ing.On("Ingest", mock.Anything, matchFile("c.jpg"), "projects").Return(c, nil)
				f.repo.On("Update", mock.Anything, mock.Anything).Return(echoUpdate, nil)
			},
			check: func(t *testing.T, f *fixture, p *model.Project) {
				assert.Equal(t, []string{b.URL, a.URL, c.URL}, p.Images)
				assert.Equal(t, "New", p.Title)
				assert.Equal(t, "2023", p.Year)
				assert.True(t, p.CreatedAt.Equal(created))
				assert.True(t, p.UpdatedAt.Equal(fixedNow))
				assert.Zero(t, f.logs.FilterField(zap.String("event", "image_baseline_diverged")).Len())
			},
		},
		{
			name:  "nil images keeps stored list",
			patch: model.ProjectPatch{Title: &title},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
				f.repo.On("Update", mock.Anything, mock.Anything).Return(echoUpdate, nil)
			},
			check: func(t *testing.T, f *fixture, p *model.Project) {
				assert.Equal(t, []string{a.URL, b.URL}, p.Images)
			},
		},
		{
			name:  "diverging baseline is logged and wins",
			patch: model.ProjectPatch{Images: &[]string{b.URL}},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
				f.repo.On("Update", mock.Anything, mock.Anything).Return(echoUpdate, nil)
			},
			check: func(t *testing.T, f *fixture, p *model.Project) {
				assert.Equal(t, []string{b.URL}, p.Images)
				entries := f.logs.FilterField(zap.String("event", "image_baseline_diverged")).All()
				require.Len(t, entries, 1)
				assert.Equal(t, int64(1), entries[0].ContextMap()["dropped"])
			},
		},
		{
			name:  "undecodable new baseline url",
			patch: model.ProjectPatch{Images: &[]string{a.URL, "https://example.com/x.png"}},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
			},
			wantErr: ErrInvalidInput,
		},
		{
			name:  "required field cleared",
			patch: model.ProjectPatch{Title: &empty},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
			},
			wantErr: ErrInvalidInput,
		},
		{
			name:  "ingestion failure writes nothing",
			files: []ingest.File{fileNamed("c.jpg")},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
				f.ing.On("Ingest", mock.Anything, matchFile("c.jpg"), "projects").
					Return(model.AssetRef{}, errors.New("connection reset"))
			},
			wantErr: ErrIngestion,
			check: func(t *testing.T, f *fixture, _ *model.Project) {
				f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			},
		},
		{
			name: "not found",
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "removed between read and write",
			files: []ingest.File{fileNamed("c.jpg")},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
				f.ing.On("Ingest", mock.Anything, matchFile("c.jpg"), "projects").Return(c, nil)
				f.repo.On("Update", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
				f.store.On("Delete", mock.Anything, c.Path).Return(nil)
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "write fails after it may have been applied",
			files: []ingest.File{fileNamed("c.jpg")},
			setupMocks: func(f *fixture) {
				f.repo.On("FindByID", mock.Anything, "p1").Return(stored(), nil)
				f.ing.On("Ingest", mock.Anything, matchFile("c.jpg"), "projects").Return(c, nil)
				f.repo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Project) bool {
					return slices.Contains(p.Images, c.URL)
				})).Return(nil, errors.New("rpc error: code = Unavailable"))
			},
			wantErr: ErrStoreUnavailable,
			check: func(t *testing.T, f *fixture, _ *model.Project) {
				f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
				kept := f.logs.FilterField(zap.String("event", "upload_retained")).All()
				require.Len(t, kept, 1)
				assert.Equal(t, c.Path, kept[0].ContextMap()["storage_path"])
				assert.Equal(t, "p1", kept[0].ContextMap()["project_id"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f)

			p, err := f.svc.Update(ctx, "p1", tt.patch, tt.files)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
			} else {
				require.NoError(t, err)
			}
			if tt.check != nil {
				tt.check(t, f, p)
			}
			f.assertExpectations(t)
		})
	}
}

func TestProjectService_DeleteImage(t *testing.T) {
	ctx := context.Background()
	a, b := refFor("a.jpg"), refFor("b.jpg")
	echoUpdate := func(p *model.Project) *model.Project {
		out := *p
		return &out
	}

	t.Run("removes entry then blob", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(&model.Project{ID: "p1", Images: []string{a.URL, b.URL}}, nil)
		f.repo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Project) bool {
			return len(p.Images) == 1 && p.UpdatedAt.Equal(fixedNow)
		})).Return(echoUpdate, nil)
		f.store.On("Delete", mock.Anything, a.Path).Return(nil)

		refs, err := f.svc.DeleteImage(ctx, "p1", a.URL)
		require.NoError(t, err)
		assert.Equal(t, []model.AssetRef{b}, refs)
		f.assertExpectations(t)
	})

	t.Run("undecodable url updates document without blob delete", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").
			Return(&model.Project{ID: "p1", Images: []string{"not-a-valid-url", b.URL}}, nil)
		f.repo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Project) bool {
			return len(p.Images) == 1 && p.Images[0] == b.URL
		})).Return(echoUpdate, nil)

		refs, err := f.svc.DeleteImage(ctx, "p1", "not-a-valid-url")
		require.NoError(t, err)
		assert.Len(t, refs, 1)
		f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

		warn := f.logs.FilterField(zap.String("event", "partial_cleanup")).All()
		require.Len(t, warn, 1)
		assert.Equal(t, "not-a-valid-url", warn[0].ContextMap()["image_url"])
		f.assertExpectations(t)
	})

	t.Run("blob delete failure is a warning", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(&model.Project{ID: "p1", Images: []string{a.URL}}, nil)
		f.repo.On("Update", mock.Anything, mock.Anything).Return(echoUpdate, nil)
		f.store.On("Delete", mock.Anything, a.Path).Return(errors.New("403"))

		refs, err := f.svc.DeleteImage(ctx, "p1", a.URL)
		require.NoError(t, err)
		assert.Empty(t, refs)
		assert.Equal(t, 1, f.logs.FilterField(zap.String("storage_path", a.Path)).Len())
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.cleanupFailures))
	})

	t.Run("document write failure keeps the blob", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(&model.Project{ID: "p1", Images: []string{a.URL}}, nil)
		f.repo.On("Update", mock.Anything, mock.Anything).Return(nil, errors.New("rpc error: code = Unavailable"))

		_, err := f.svc.DeleteImage(ctx, "p1", a.URL)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("url not on project", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(&model.Project{ID: "p1", Images: []string{a.URL}}, nil)

		refs, err := f.svc.DeleteImage(ctx, "p1", b.URL)
		require.NoError(t, err)
		assert.Equal(t, []model.AssetRef{a}, refs)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("project not found", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(nil, repository.ErrNotFound)

		_, err := f.svc.DeleteImage(ctx, "p1", a.URL)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProjectService_Delete(t *testing.T) {
	a, b, c := refFor("a.jpg"), refFor("b.jpg"), refFor("c.jpg")

	t.Run("blobs first, failures skipped, document always removed", func(t *testing.T) {
		f := newFixture(t)
		var (
			mu    sync.Mutex
			calls []string
		)
		record := func(name string) func(mock.Arguments) {
			return func(mock.Arguments) {
				mu.Lock()
				defer mu.Unlock()
				calls = append(calls, name)
			}
		}

		f.repo.On("FindByID", mock.Anything, "p1").
			Return(&model.Project{ID: "p1", Images: []string{a.URL, b.URL, c.URL}}, nil)
		f.store.On("Delete", mock.Anything, a.Path).Run(record("blob:a")).Return(nil)
		f.store.On("Delete", mock.Anything, b.Path).Run(record("blob:b")).Return(errors.New("permission denied"))
		f.store.On("Delete", mock.Anything, c.Path).Run(record("blob:c")).Return(nil)
		f.repo.On("Delete", mock.Anything, "p1").Run(record("doc")).Return(nil)

		// A cancelled caller does not abort the cleanup.
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		id, err := f.svc.Delete(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", id)
		assert.Equal(t, []string{"blob:a", "blob:b", "blob:c", "doc"}, calls)

		warn := f.logs.FilterField(zap.String("event", "partial_cleanup")).All()
		require.Len(t, warn, 1)
		assert.Equal(t, b.Path, warn[0].ContextMap()["storage_path"])
		assert.Equal(t, "p1", warn[0].ContextMap()["project_id"])
		assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
		f.assertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(nil, repository.ErrNotFound)

		_, err := f.svc.Delete(context.Background(), "p1")
		assert.ErrorIs(t, err, ErrNotFound)
		f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("document delete error propagates", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "p1").Return(&model.Project{ID: "p1"}, nil)
		f.repo.On("Delete", mock.Anything, "p1").Return(errors.New("read-only transaction"))

		_, err := f.svc.Delete(context.Background(), "p1")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("id required", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Delete(context.Background(), "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestProjectService_ListCategories(t *testing.T) {
	f := newFixture(t)
	f.repo.On("List", mock.Anything, repository.ProjectQuery{}).Return([]model.Project{
		{ID: "3", Category: "design"},
		{ID: "2", Category: "design"},
		{ID: "1", Category: "visual"},
	}, nil)

	got, err := f.svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"all", "design", "visual"}, got)

	assert.Equal(t, []string{"all"}, Categories(nil))
}

func TestProjectService_Reorder(t *testing.T) {
	f := newFixture(t)
	list := []string{"a", "b", "c"}

	got, err := f.svc.Reorder(list, ordering.OpSetPrimary, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, got)
	assert.Equal(t, []string{"a", "b", "c"}, list)

	_, err = f.svc.Reorder(list, ordering.OpMoveUp, 3)
	assert.ErrorIs(t, err, ordering.ErrIndexOutOfRange)

	_, err = f.svc.Reorder(list, ordering.Op("shuffle"), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
