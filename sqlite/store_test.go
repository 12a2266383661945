package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seedHobbyType(t *testing.T, s *SQLiteStore, id, owner, name string) *persistence.HobbyType {
	t.Helper()
	ht := &persistence.HobbyType{
		ID: id, Owner: owner, Name: name, Slug: name,
		CreatedAt: baseTime, UpdatedAt: baseTime,
	}
	require.NoError(t, s.CreateHobbyType(context.Background(), ht))
	return ht
}

func seedField(t *testing.T, s *SQLiteStore, id, hobbyTypeID, key string, order int) {
	t.Helper()
	f := &persistence.Field{
		ID:          id,
		HobbyTypeID: hobbyTypeID,
		Definition: schema.FieldDefinition{
			Key: key, Label: key, Type: schema.FieldTypeText,
			Options: schema.NoOptions{}, Order: order,
		},
		CreatedAt: baseTime,
	}
	require.NoError(t, s.CreateField(context.Background(), f))
}

func TestMigrateCreatesTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"hobby_types", "fields", "entries", "tags", "entry_tags", "saved_views"} {
		ok, err := s.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, ok, table)
	}
	ok, err := s.TableExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// Running it twice is harmless.
	require.NoError(t, s.Migrate(ctx))
}

func TestHobbyTypeCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedHobbyType(t, s, "ht-2", "alice", "movies")
	seedHobbyType(t, s, "ht-1", "alice", "books")
	seedHobbyType(t, s, "ht-3", "bob", "games")

	got, err := s.GetHobbyType(ctx, "ht-2")
	require.NoError(t, err)
	assert.Equal(t, "movies", got.Name)
	assert.True(t, baseTime.Equal(got.CreatedAt))

	list, err := s.ListHobbyTypes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "books", list[0].Name)
	assert.Equal(t, "movies", list[1].Name)

	t.Run("duplicate name per owner conflicts", func(t *testing.T) {
		err := s.CreateHobbyType(ctx, &persistence.HobbyType{
			ID: "ht-4", Owner: "alice", Name: "books", Slug: "books-2",
			CreatedAt: baseTime, UpdatedAt: baseTime,
		})
		assert.ErrorIs(t, err, persistence.ErrConflict)
	})

	t.Run("same name for another owner is fine", func(t *testing.T) {
		seedHobbyType(t, s, "ht-5", "bob", "books")
	})

	t.Run("update", func(t *testing.T) {
		got.Description = "films"
		got.UpdatedAt = baseTime.Add(time.Hour)
		require.NoError(t, s.UpdateHobbyType(ctx, got))
		again, err := s.GetHobbyType(ctx, "ht-2")
		require.NoError(t, err)
		assert.Equal(t, "films", again.Description)
		assert.True(t, got.UpdatedAt.Equal(again.UpdatedAt))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.GetHobbyType(ctx, "nope")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		assert.ErrorIs(t, s.DeleteHobbyType(ctx, "nope"), persistence.ErrNotFound)
	})
}

func TestFieldsOrderAndUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHobbyType(t, s, "ht", "alice", "movies")

	seedField(t, s, "f1", "ht", "rating", 2)
	seedField(t, s, "f2", "ht", "director", 1)
	seedField(t, s, "f3", "ht", "genre", 2)

	fields, err := s.ListFields(ctx, "ht")
	require.NoError(t, err)
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Definition.Key
	}
	assert.Equal(t, []string{"director", "rating", "genre"}, keys)
	assert.Equal(t, schema.FieldTypeText, fields[0].Definition.Type)

	err = s.CreateField(ctx, &persistence.Field{
		ID: "f4", HobbyTypeID: "ht",
		Definition: schema.FieldDefinition{Key: "rating", Type: schema.FieldTypeText, Options: schema.NoOptions{}},
		CreatedAt:  baseTime,
	})
	assert.ErrorIs(t, err, persistence.ErrConflict)

	err = s.CreateField(ctx, &persistence.Field{
		ID: "f5", HobbyTypeID: "ghost",
		Definition: schema.FieldDefinition{Key: "x", Type: schema.FieldTypeText, Options: schema.NoOptions{}},
		CreatedAt:  baseTime,
	})
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	fields[0].Definition.Order = 9
	require.NoError(t, s.UpdateField(ctx, fields[0]))
	fields, err = s.ListFields(ctx, "ht")
	require.NoError(t, err)
	assert.Equal(t, "director", fields[2].Definition.Key)

	require.NoError(t, s.DeleteField(ctx, "ht", "genre"))
	assert.ErrorIs(t, s.DeleteField(ctx, "ht", "genre"), persistence.ErrNotFound)
}

func TestEntriesWithTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHobbyType(t, s, "ht", "alice", "movies")
	require.NoError(t, s.CreateTag(ctx, &persistence.Tag{ID: "t1", Owner: "alice", Name: "sci-fi", Slug: "sci-fi", CreatedAt: baseTime}))
	require.NoError(t, s.CreateTag(ctx, &persistence.Tag{ID: "t2", Owner: "alice", Name: "classic", Slug: "classic", CreatedAt: baseTime}))

	e := &persistence.Entry{
		ID: "e1", Owner: "alice", HobbyTypeID: "ht", Title: "Alien",
		Status: persistence.StatusDone, Tags: []string{"t2", "t1"},
		Data:      schema.Document{"rating": 9.0, "cast": []any{"Weaver"}},
		CreatedAt: baseTime, UpdatedAt: baseTime,
	}
	require.NoError(t, s.CreateEntry(ctx, e))

	got, err := s.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t1"}, got.Tags)
	assert.Equal(t, 9.0, got.Data["rating"])
	assert.Equal(t, []any{"Weaver"}, got.Data["cast"])
	assert.Equal(t, persistence.StatusDone, got.Status)

	t.Run("title is unique", func(t *testing.T) {
		dup := *e
		dup.ID = "e2"
		dup.Tags = nil
		assert.ErrorIs(t, s.CreateEntry(ctx, &dup), persistence.ErrConflict)
		_, err := s.GetEntry(ctx, "e2")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("update replaces tags", func(t *testing.T) {
		got.Tags = []string{"t1"}
		got.UpdatedAt = baseTime.Add(time.Minute)
		require.NoError(t, s.UpdateEntry(ctx, got))
		again, err := s.GetEntry(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, again.Tags)
	})

	t.Run("deleting a tag detaches it", func(t *testing.T) {
		require.NoError(t, s.DeleteTag(ctx, "t1"))
		again, err := s.GetEntry(ctx, "e1")
		require.NoError(t, err)
		assert.Empty(t, again.Tags)
	})

	t.Run("list filters and orders by update time", func(t *testing.T) {
		require.NoError(t, s.CreateEntry(ctx, &persistence.Entry{
			ID: "e3", Owner: "alice", HobbyTypeID: "ht", Title: "Heat",
			Status: persistence.StatusBacklog, Data: schema.Document{},
			CreatedAt: baseTime, UpdatedAt: baseTime.Add(time.Hour),
		}))
		list, err := s.ListEntries(ctx, persistence.EntryFilter{Owner: "alice", HobbyTypeID: "ht"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Heat", list[0].Title)
		assert.Equal(t, "Alien", list[1].Title)

		list, err = s.ListEntries(ctx, persistence.EntryFilter{Owner: "bob"})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("deleting the hobby type cascades", func(t *testing.T) {
		require.NoError(t, s.DeleteHobbyType(ctx, "ht"))
		_, err := s.GetEntry(ctx, "e1")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func TestTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTag(ctx, &persistence.Tag{ID: "t1", Owner: "alice", Name: "b", Slug: "b", CreatedAt: baseTime}))
	require.NoError(t, s.CreateTag(ctx, &persistence.Tag{ID: "t2", Owner: "alice", Name: "a", Slug: "a", CreatedAt: baseTime}))
	require.NoError(t, s.CreateTag(ctx, &persistence.Tag{ID: "t3", Owner: "bob", Name: "a", Slug: "a", CreatedAt: baseTime}))

	err := s.CreateTag(ctx, &persistence.Tag{ID: "t4", Owner: "alice", Name: "a", Slug: "a-2", CreatedAt: baseTime})
	assert.ErrorIs(t, err, persistence.ErrConflict)

	list, err := s.ListTags(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	got, err := s.GetTags(ctx, []string{"t1", "t3", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.GetTags(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSavedViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHobbyType(t, s, "ht", "alice", "movies")

	v := &persistence.SavedView{
		ID: "v1", Owner: "alice", HobbyTypeID: "ht", Name: "top",
		Filters:   map[string]any{"rating": map[string]any{"gte": 8.0}},
		Sort:      []string{"-data.rating"},
		CreatedAt: baseTime,
	}
	require.NoError(t, s.CreateView(ctx, v))

	got, err := s.GetView(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, v.Filters, got.Filters)
	assert.Equal(t, v.Sort, got.Sort)

	dup := *v
	dup.ID = "v2"
	assert.ErrorIs(t, s.CreateView(ctx, &dup), persistence.ErrConflict)

	list, err := s.ListViews(ctx, "alice", "ht")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteView(ctx, "v1"))
	_, err = s.GetView(ctx, "v1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestTransactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHobbyType(t, s, "ht", "alice", "movies")

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := s.StartTransaction(ctx)
		require.NoError(t, err)
		seedField(t, tx.(*SQLiteStore), "f1", "ht", "rating", 0)
		require.NoError(t, tx.Rollback(ctx))

		fields, err := s.ListFields(ctx, "ht")
		require.NoError(t, err)
		assert.Empty(t, fields)
	})

	t.Run("commit keeps writes", func(t *testing.T) {
		tx, err := s.StartTransaction(ctx)
		require.NoError(t, err)
		seedField(t, tx.(*SQLiteStore), "f1", "ht", "rating", 0)

		_, err = tx.StartTransaction(ctx)
		assert.Error(t, err)

		require.NoError(t, tx.Commit(ctx))
		fields, err := s.ListFields(ctx, "ht")
		require.NoError(t, err)
		assert.Len(t, fields, 1)
	})

	t.Run("commit outside a transaction", func(t *testing.T) {
		assert.Error(t, s.Commit(ctx))
		assert.Error(t, s.Rollback(ctx))
	})
}
