package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"portfolioapi/internal/model"
	"portfolioapi/internal/repository"
)

// Collection names shared with the web client.
const (
	ProjectsCollection = "projects"
	ProfileCollection  = "profile"
)

// projectDoc is the stored shape of a project; the document id is not a field.
type projectDoc struct {
	Title         string    `firestore:"title"`
	Category      string    `firestore:"category"`
	Year          string    `firestore:"year"`
	Description   string    `firestore:"description"`
	Challenge     string    `firestore:"challenge"`
	Solution      string    `firestore:"solution"`
	DesignProcess string    `firestore:"designProcess"`
	Mentors       []string  `firestore:"mentors"`
	Materials     []string  `firestore:"materials"`
	Awards        []string  `firestore:"awards"`
	Images        []string  `firestore:"images"`
	Featured      bool      `firestore:"featured"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func toProjectDoc(p *model.Project) projectDoc {
	return projectDoc{
		Title:         p.Title,
		Category:      p.Category,
		Year:          p.Year,
		Description:   p.Description,
		Challenge:     p.Challenge,
		Solution:      p.Solution,
		DesignProcess: p.DesignProcess,
		Mentors:       nonNil(p.Mentors),
		Materials:     nonNil(p.Materials),
		Awards:        nonNil(p.Awards),
		Images:        nonNil(p.Images),
		Featured:      p.Featured,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (d projectDoc) toModel(id string) model.Project {
	return model.Project{
		ID:            id,
		Title:         d.Title,
		Category:      d.Category,
		Year:          d.Year,
		Description:   d.Description,
		Challenge:     d.Challenge,
		Solution:      d.Solution,
		DesignProcess: d.DesignProcess,
		Mentors:       nonNil(d.Mentors),
		Materials:     nonNil(d.Materials),
		Awards:        nonNil(d.Awards),
		Images:        nonNil(d.Images),
		Featured:      d.Featured,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ProjectFirestore implements repository.ProjectRepository on a Firestore collection.
type ProjectFirestore struct {
	col *firestore.CollectionRef
}

// NewProjectFirestore stores projects in the ProjectsCollection of client.
func NewProjectFirestore(client *firestore.Client) *ProjectFirestore {
	return &ProjectFirestore{col: client.Collection(ProjectsCollection)}
}

var _ repository.ProjectRepository = (*ProjectFirestore)(nil)

// List runs an equality + createdAt descending query. A category filter needs a
// composite index (category ASC, createdAt DESC).
func (r *ProjectFirestore) List(ctx context.Context, q repository.ProjectQuery) ([]model.Project, error) {
	query := r.col.OrderBy("createdAt", firestore.Desc)
	if q.Category != "" {
		query = r.col.Where("category", "==", q.Category).OrderBy("createdAt", firestore.Desc)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	items := make([]model.Project, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var d projectDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, err
		}
		items = append(items, d.toModel(snap.Ref.ID))
	}
	return items, nil
}

func (r *ProjectFirestore) FindByID(ctx context.Context, id string) (*model.Project, error) {
	snap, err := r.col.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var d projectDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	p := d.toModel(snap.Ref.ID)
	return &p, nil
}

// Create adds a document with a Firestore-generated id.
func (r *ProjectFirestore) Create(ctx context.Context, p *model.Project) (*model.Project, error) {
	ref, _, err := r.col.Add(ctx, toProjectDoc(p))
	if err != nil {
		return nil, err
	}
	out := *p
	out.ID = ref.ID
	return &out, nil
}

// Update rewrites every mutable field and returns the model as written. Firestore
// rejects the update with NotFound when the doc is absent.
func (r *ProjectFirestore) Update(ctx context.Context, p *model.Project) (*model.Project, error) {
	d := toProjectDoc(p)
	_, err := r.col.Doc(p.ID).Update(ctx, []firestore.Update{
		{Path: "title", Value: d.Title},
		{Path: "category", Value: d.Category},
		{Path: "year", Value: d.Year},
		{Path: "description", Value: d.Description},
		{Path: "challenge", Value: d.Challenge},
		{Path: "solution", Value: d.Solution},
		{Path: "designProcess", Value: d.DesignProcess},
		{Path: "mentors", Value: d.Mentors},
		{Path: "materials", Value: d.Materials},
		{Path: "awards", Value: d.Awards},
		{Path: "images", Value: d.Images},
		{Path: "featured", Value: d.Featured},
		{Path: "updatedAt", Value: d.UpdatedAt},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	out := d.toModel(p.ID)
	return &out, nil
}

func (r *ProjectFirestore) Delete(ctx context.Context, id string) error {
	_, err := r.col.Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if isNotFound(err) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}
