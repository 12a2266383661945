package persistence

import (
	"context"
)

// EntryFilter narrows ListEntries. Empty members do not filter.
type EntryFilter struct {
	Owner       string
	HobbyTypeID string
}

// Store is the storage backend of the persistence service. Lookups of
// missing rows return an error wrapping ErrNotFound; uniqueness violations
// return an error wrapping ErrConflict.
//
// A Store can operate in either a non-transactional (default) or
// transactional mode. StartTransaction returns a new Store bound to the
// transaction; Commit and Rollback are only meaningful on that instance.
type Store interface {
	CreateHobbyType(ctx context.Context, ht *HobbyType) error
	GetHobbyType(ctx context.Context, id string) (*HobbyType, error)
	ListHobbyTypes(ctx context.Context, owner string) ([]*HobbyType, error)
	UpdateHobbyType(ctx context.Context, ht *HobbyType) error
	// DeleteHobbyType removes the hobby type with its fields, entries and views.
	DeleteHobbyType(ctx context.Context, id string) error

	// CreateField stores a new field. Keys are unique per hobby type.
	CreateField(ctx context.Context, f *Field) error
	UpdateField(ctx context.Context, f *Field) error
	DeleteField(ctx context.Context, hobbyTypeID, key string) error
	// ListFields returns the fields of a hobby type ordered by their order
	// value, then by insertion.
	ListFields(ctx context.Context, hobbyTypeID string) ([]*Field, error)

	// CreateEntry stores a new entry. Titles are globally unique.
	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, id string) (*Entry, error)
	UpdateEntry(ctx context.Context, e *Entry) error
	DeleteEntry(ctx context.Context, id string) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error)

	// CreateTag stores a new tag. Name and slug are unique per owner.
	CreateTag(ctx context.Context, t *Tag) error
	// GetTags returns the tags that exist among ids, in no particular order.
	GetTags(ctx context.Context, ids []string) ([]*Tag, error)
	ListTags(ctx context.Context, owner string) ([]*Tag, error)
	DeleteTag(ctx context.Context, id string) error

	// CreateView stores a new saved view. Names are unique per owner and
	// hobby type.
	CreateView(ctx context.Context, v *SavedView) error
	GetView(ctx context.Context, id string) (*SavedView, error)
	ListViews(ctx context.Context, owner, hobbyTypeID string) ([]*SavedView, error)
	DeleteView(ctx context.Context, id string) error

	StartTransaction(ctx context.Context) (Store, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
