package firestore

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"

	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
)

// ProfileFirestore stores the profile under the same camelCase keys the JSON API uses.
type ProfileFirestore struct {
	client *firestore.Client
	col    *firestore.CollectionRef
}

// NewProfileFirestore stores the profile in the ProfileCollection of client.
func NewProfileFirestore(client *firestore.Client) *ProfileFirestore {
	return &ProfileFirestore{client: client, col: client.Collection(ProfileCollection)}
}

var _ repository.ProfileRepository = (*ProfileFirestore)(nil)

func (r *ProfileFirestore) Get(ctx context.Context, id string) (*model.Profile, error) {
	snap, err := r.col.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return profileFromData(snap.Ref.ID, snap.Data())
}

// Upsert writes the profile inside a transaction so an existing createdAt is preserved.
func (r *ProfileFirestore) Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	ref := r.col.Doc(p.ID)
	out := *p
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if existing, err := profileFromData(ref.ID, snap.Data()); err == nil && !existing.CreatedAt.IsZero() {
				out.CreatedAt = existing.CreatedAt
			}
		case !isNotFound(err):
			return err
		}
		data, err := profileToData(&out)
		if err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// profileToData flattens the profile through its JSON form; timestamps stay native.
func profileToData(p *model.Profile) (map[string]any, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	delete(m, "id")
	m["createdAt"] = p.CreatedAt
	m["updatedAt"] = p.UpdatedAt
	return m, nil
}

func profileFromData(id string, m map[string]any) (*model.Profile, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	var p model.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	p.ID = id
	return &p, nil
}
