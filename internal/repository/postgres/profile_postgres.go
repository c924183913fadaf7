package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
)

// ProfilePostgres stores the profile body as one JSONB document keyed by id.
type ProfilePostgres struct {
	db *sql.DB
}

func NewProfilePostgres(db *sql.DB) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

var _ repository.ProfileRepository = (*ProfilePostgres)(nil)

func (r *ProfilePostgres) Get(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, data, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Upsert writes the profile. On conflict the first created_at is kept.
func (r *ProfilePostgres) Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING id, data, created_at, updated_at
	`, p.ID, string(body), p.CreatedAt, p.UpdatedAt)
	return scanProfile(row)
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var (
		id               string
		data             []byte
		created, updated time.Time
	)
	if err := row.Scan(&id, &data, &created, &updated); err != nil {
		return nil, err
	}
	var out model.Profile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	// Row columns win over anything embedded in the JSON body.
	out.ID, out.CreatedAt, out.UpdatedAt = id, created, updated
	return &out, nil
}
