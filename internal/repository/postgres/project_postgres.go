package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
)

// ProjectPostgres is a PostgreSQL implementation of repository.ProjectRepository.
// String sequences are stored as JSONB arrays so their order survives round-trips.
type ProjectPostgres struct {
	db *sql.DB
}

// NewProjectPostgres creates a new ProjectPostgres repository.
func NewProjectPostgres(db *sql.DB) *ProjectPostgres {
	return &ProjectPostgres{db: db}
}

var _ repository.ProjectRepository = (*ProjectPostgres)(nil)

const projectColumns = `id, title, category, year, description, challenge, solution, design_process,
		mentors, materials, awards, images, featured, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		p                                  model.Project
		mentors, materials, awards, images []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Category,
		&p.Year,
		&p.Description,
		&p.Challenge,
		&p.Solution,
		&p.DesignProcess,
		&mentors,
		&materials,
		&awards,
		&images,
		&p.Featured,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw []byte
		dst *[]string
	}{
		{mentors, &p.Mentors},
		{materials, &p.Materials},
		{awards, &p.Awards},
		{images, &p.Images},
	} {
		if err := decodeStrings(f.raw, f.dst); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func decodeStrings(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode jsonb array: %w", err)
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

// encodeStrings renders a JSONB literal; nil slices become [] so the column stays NOT NULL.
func encodeStrings(v []string) string {
	if v == nil {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// List returns projects ordered by newest first, optionally filtered by category.
func (r *ProjectPostgres) List(ctx context.Context, q repository.ProjectQuery) ([]model.Project, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q.Category != "" {
		rows, err = r.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE category = $1
		ORDER BY created_at DESC, id DESC
	`, q.Category)
	} else {
		rows, err = r.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		ORDER BY created_at DESC, id DESC
	`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID fetches a single project by its ID.
func (r *ProjectPostgres) FindByID(ctx context.Context, id string) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1
	`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts a new project row; the database assigns the id.
func (r *ProjectPostgres) Create(ctx context.Context, p *model.Project) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO projects (title, category, year, description, challenge, solution, design_process,
			mentors, materials, awards, images, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+projectColumns,
		p.Title,
		p.Category,
		p.Year,
		p.Description,
		p.Challenge,
		p.Solution,
		p.DesignProcess,
		encodeStrings(p.Mentors),
		encodeStrings(p.Materials),
		encodeStrings(p.Awards),
		encodeStrings(p.Images),
		p.Featured,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return scanProject(row)
}

// Update overwrites every mutable column of an existing project. created_at is never rewritten.
func (r *ProjectPostgres) Update(ctx context.Context, p *model.Project) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE projects SET
			title = $2, category = $3, year = $4, description = $5, challenge = $6, solution = $7,
			design_process = $8, mentors = $9, materials = $10, awards = $11, images = $12,
			featured = $13, updated_at = $14
		WHERE id = $1
		RETURNING `+projectColumns,
		p.ID,
		p.Title,
		p.Category,
		p.Year,
		p.Description,
		p.Challenge,
		p.Solution,
		p.DesignProcess,
		encodeStrings(p.Mentors),
		encodeStrings(p.Materials),
		encodeStrings(p.Awards),
		encodeStrings(p.Images),
		p.Featured,
		p.UpdatedAt,
	)
	out, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// Delete removes a project by ID.
func (r *ProjectPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
