// Package repository contains the document store abstractions for the catalog.
// Implementations live in subpackages (postgres, firestore).
package repository

import (
	"context"
	"errors"

	"portfolioapi/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ProjectQuery filters List. An empty Category matches every project.
type ProjectQuery struct {
	Category string
}

// ProjectRepository defines data access for projects. No business logic here.
type ProjectRepository interface {
	// List returns projects ordered by created_at descending.
	// Category is an exact, case-sensitive equality filter.
	List(ctx context.Context, q ProjectQuery) ([]model.Project, error)

	// FindByID returns ErrNotFound when the id does not exist.
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// Create inserts a project and returns it with the store-assigned ID.
	Create(ctx context.Context, p *model.Project) (*model.Project, error)

	// Update overwrites an existing project. Returns ErrNotFound if absent.
	Update(ctx context.Context, p *model.Project) (*model.Project, error)

	// Delete removes a project by ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// ProfileRepository persists the singleton profile document.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error)
}
