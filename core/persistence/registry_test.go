package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pausingStore serves fields from memory. When pause is set, the next
// ListFields reads its snapshot, signals loaded and waits for release.
type pausingStore struct {
	Store
	mu      sync.Mutex
	fields  []*Field
	pause   bool
	loaded  chan struct{}
	release chan struct{}
}

func (s *pausingStore) ListFields(_ context.Context, _ string) ([]*Field, error) {
	s.mu.Lock()
	out := append([]*Field(nil), s.fields...)
	pause := s.pause
	s.pause = false
	s.mu.Unlock()

	if pause {
		s.loaded <- struct{}{}
		<-s.release
	}
	return out, nil
}

func (s *pausingStore) addField(def schema.FieldDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = append(s.fields, &Field{ID: def.Key, HobbyTypeID: "movies", Definition: def})
}

func TestSchemaRegistry_CachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := &pausingStore{}
	ht := &HobbyType{ID: "movies", Name: "Movies"}

	r, err := NewSchemaRegistry(4, nil)
	require.NoError(t, err)

	first, err := r.Validator(ctx, store, ht)
	require.NoError(t, err)
	second, err := r.Validator(ctx, store, ht)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())

	r.Invalidate(ht.ID)
	assert.Equal(t, 0, r.Len())
}

func TestSchemaRegistry_EditDuringLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := &pausingStore{
		pause:   true,
		loaded:  make(chan struct{}),
		release: make(chan struct{}),
	}
	ht := &HobbyType{ID: "movies", Name: "Movies"}

	r, err := NewSchemaRegistry(4, nil)
	require.NoError(t, err)

	done := make(chan *schema.Validator)
	go func() {
		v, err := r.Validator(ctx, store, ht)
		assert.NoError(t, err)
		done <- v
	}()

	// The load above has read an empty schema; a field is added and the
	// registry invalidated before it finishes.
	<-store.loaded
	store.addField(schema.FieldDefinition{
		Key: "director", Label: "Director", Type: schema.FieldTypeText, Required: true,
		Options: schema.NoOptions{},
	})
	r.Invalidate(ht.ID)
	close(store.release)

	outdated := <-done
	assert.Empty(t, outdated.Schema().Fields)
	assert.Equal(t, 0, r.Len())

	v, err := r.Validator(ctx, store, ht)
	require.NoError(t, err)
	require.Len(t, v.Schema().Fields, 1)
	result := v.Validate(schema.Document{})
	assert.False(t, result.Valid)
	assert.Equal(t, "This field is required.", result.Errors["director"])
}
