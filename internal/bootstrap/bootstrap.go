// Package bootstrap opens the document store, blob store and authorizer selected by configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"portfolioapi/internal/auth"
	"portfolioapi/internal/config"
	"portfolioapi/internal/database"
	fb "portfolioapi/internal/firebase"
	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
	"portfolioapi/internal/repository/firestore"
	"portfolioapi/internal/repository/postgres"
	"portfolioapi/internal/storage"
)

// Backends are the opened stores. Close releases them in reverse order.
type Backends struct {
	Projects repository.ProjectRepository
	Profiles repository.ProfileRepository
	Store    storage.Storage

	app     *firebase.App
	closers []func() error
}

// Open connects every backend cfg selects. On error nothing is left open.
func Open(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (_ *Backends, err error) {
	b := &Backends{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	switch cfg.DocStore {
	case config.DocStorePostgres:
		db, err := database.OpenCatalog(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		b.Projects = postgres.NewProjectPostgres(db)
		b.Profiles = postgres.NewProfilePostgres(db)
	case config.DocStoreFirestore:
		app, err := b.firebaseApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.Projects = firestore.NewProjectFirestore(client)
		b.Profiles = firestore.NewProfileFirestore(client)
	default:
		return nil, fmt.Errorf("unknown DOC_STORE %q", cfg.DocStore)
	}

	switch cfg.BlobStore {
	case config.BlobStoreMinIO:
		b.Store, err = storage.NewMinIO(cfg.MinIO, cfg.PublicBaseURL)
	case config.BlobStoreFirebase:
		var app *firebase.App
		if app, err = b.firebaseApp(ctx, cfg.Firebase); err == nil {
			b.Store, err = storage.NewFirebase(ctx, app, cfg.Firebase.StorageBucket)
		}
	case config.BlobStoreSupabase:
		b.Store, err = storage.NewSupabase(cfg.Supabase, cfg.PublicBaseURL)
	default:
		err = fmt.Errorf("unknown BLOB_STORE %q", cfg.BlobStore)
	}
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	log.Info("backends opened",
		zap.String("doc_store", cfg.DocStore),
		zap.String("blob_store", cfg.BlobStore),
		zap.String("bucket", b.Store.Bucket()),
	)
	return b, nil
}

// Authorizer builds the admin predicate for cfg.Auth.Mode.
func (b *Backends) Authorizer(ctx context.Context, cfg *config.AppConfig) (auth.Authorizer, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeFirebase:
		app, err := b.firebaseApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("open firebase auth: %w", err)
		}
		return auth.NewFirebase(client, cfg.Auth.AdminEmails), nil
	case config.AuthModeJWT:
		return auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.AdminEmails), nil
	case config.AuthModeNone:
		return auth.AllowAll{}, nil
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.Auth.Mode)
	}
}

// Ping reports whether the document store answers. An absent profile still counts as reachable.
func (b *Backends) Ping(ctx context.Context) error {
	_, err := b.Profiles.Get(ctx, model.ProfileID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// Close releases every opened backend and joins their errors.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// firebaseApp initializes the shared Firebase app once.
func (b *Backends) firebaseApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	if b.app != nil {
		return b.app, nil
	}
	app, err := fb.NewApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.app = app
	return app, nil
}
