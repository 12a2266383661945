package persistence

import (
	"fmt"
	"time"

	"github.com/asaidimu/go-hobbies/core/schema"
)

// HobbyType is a user owned collection type. Its fields form the schema every
// entry of the type is validated against.
type HobbyType struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Field is a stored field definition of a hobby type.
type Field struct {
	ID          string                 `json:"id"`
	HobbyTypeID string                 `json:"hobby_type_id"`
	Definition  schema.FieldDefinition `json:"definition"`
	CreatedAt   time.Time              `json:"created_at"`
}

// EntryStatus is the progress state of an entry.
type EntryStatus string

const (
	StatusBacklog    EntryStatus = "backlog"
	StatusInProgress EntryStatus = "in_progress"
	StatusDone       EntryStatus = "done"
)

// ParseEntryStatus validates a status string. The empty string maps to
// StatusBacklog.
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch EntryStatus(s) {
	case "", StatusBacklog:
		return StatusBacklog, nil
	case StatusInProgress, StatusDone:
		return EntryStatus(s), nil
	}
	return "", fmt.Errorf("%w: '%s' is not a valid status", ErrInvalidInput, s)
}

// Entry is one record of a hobby type. Data holds the user defined fields.
type Entry struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	HobbyTypeID string          `json:"hobby_type_id"`
	Title       string          `json:"title"`
	Status      EntryStatus     `json:"status"`
	Tags        []string        `json:"tags"`
	Data        schema.Document `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Document flattens the entry into the shape the query processor works on.
// Timestamps stay time.Time so they order correctly. "tags" holds the slugs
// of the entry's tags, looked up in tagSlugs by id; "tag_ids" holds the ids.
func (e *Entry) Document(tagSlugs map[string]string) schema.Document {
	data := e.Data
	if data == nil {
		data = schema.Document{}
	}
	ids := make([]any, 0, len(e.Tags))
	slugs := make([]any, 0, len(e.Tags))
	for _, id := range e.Tags {
		ids = append(ids, id)
		if slug, ok := tagSlugs[id]; ok {
			slugs = append(slugs, slug)
		}
	}
	return schema.Document{
		"id":            e.ID,
		"title":         e.Title,
		"status":        string(e.Status),
		"tags":          slugs,
		"tag_ids":       ids,
		"hobby_type_id": e.HobbyTypeID,
		"created_at":    e.CreatedAt,
		"updated_at":    e.UpdatedAt,
		"data":          map[string]any(data),
	}
}

// Tag is a per owner label that can be attached to entries.
type Tag struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedView is a named filter and sort over the entries of one hobby type.
type SavedView struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	HobbyTypeID string         `json:"hobby_type_id"`
	Name        string         `json:"name"`
	Filters     map[string]any `json:"filters"`
	Sort        []string       `json:"sort"`
	CreatedAt   time.Time      `json:"created_at"`
}

// HobbyTypeInput carries the user supplied attributes of a hobby type.
type HobbyTypeInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Color       string `json:"color,omitempty"`
}

// EntryInput carries the user supplied attributes of a new entry.
type EntryInput struct {
	HobbyTypeID string          `json:"hobby_type_id"`
	Title       string          `json:"title"`
	Status      string          `json:"status,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Data        schema.Document `json:"data"`
}

// EntryUpdate lists the attributes to change. Nil members are left as they
// are. Data replaces the whole record; the result is always revalidated.
type EntryUpdate struct {
	HobbyTypeID *string          `json:"hobby_type_id,omitempty"`
	Title       *string          `json:"title,omitempty"`
	Status      *string          `json:"status,omitempty"`
	Tags        *[]string        `json:"tags,omitempty"`
	Data        *schema.Document `json:"data,omitempty"`
}

// SavedViewInput carries the user supplied attributes of a saved view.
type SavedViewInput struct {
	HobbyTypeID string         `json:"hobby_type_id"`
	Name        string         `json:"name"`
	Filters     map[string]any `json:"filters,omitempty"`
	Sort        []string       `json:"sort,omitempty"`
}
