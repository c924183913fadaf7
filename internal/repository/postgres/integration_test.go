//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"portfolioapi/internal/database/migration"
	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("portfolio"),
		tcpostgres.WithUsername("portfolio"),
		tcpostgres.WithPassword("portfolio"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migration.EnsureMigrated(ctx, db, zap.NewNop(), "testcontainer"))
	return db
}

func TestProjectPostgres_Integration(t *testing.T) {
	db := startPostgres(t)
	repo := NewProjectPostgres(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	mk := func(title, category string, age time.Duration) *model.Project {
		at := base.Add(-age)
		p, err := repo.Create(ctx, &model.Project{
			Title: title, Category: category, Year: "2024", Description: "d",
			Images: []string{title + "-1", title + "-2"}, CreatedAt: at, UpdatedAt: at,
		})
		require.NoError(t, err)
		require.NotEmpty(t, p.ID)
		return p
	}
	oldest := mk("a", "design", 2*time.Hour)
	mk("b", "Design", time.Hour)
	newest := mk("c", "design", 0)

	all, err := repo.List(ctx, repository.ProjectQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID)

	design, err := repo.List(ctx, repository.ProjectQuery{Category: "design"})
	require.NoError(t, err)
	require.Len(t, design, 2)
	assert.Equal(t, oldest.ID, design[1].ID)

	oldest.Images = []string{"a-2", "a-1"}
	oldest.UpdatedAt = base.Add(time.Minute)
	updated, err := repo.Update(ctx, oldest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-2", "a-1"}, updated.Images)
	assert.True(t, updated.CreatedAt.Equal(base.Add(-2*time.Hour)))

	require.NoError(t, repo.Delete(ctx, oldest.ID))
	_, err = repo.FindByID(ctx, oldest.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, oldest.ID), repository.ErrNotFound)

	profiles := NewProfilePostgres(db)
	first, err := profiles.Upsert(ctx, &model.Profile{ID: model.ProfileID, Name: "Dina", CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)
	second, err := profiles.Upsert(ctx, &model.Profile{ID: model.ProfileID, Name: "Dina R", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, "Dina R", second.Name)
}
