package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/asaidimu/go-hobbies/core/schema"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultSchemaCacheSize is the number of hobby type validators kept in memory.
const DefaultSchemaCacheSize = 128

// SchemaRegistry hands out validators for hobby types. Each validator is built
// from a snapshot of the stored fields and cached until a field of the hobby
// type changes.
//
// Every Invalidate bumps a per hobby type generation. A validator is only
// cached if the generation did not move while its fields were loaded, so a
// snapshot taken before a field edit never outlives the edit.
type SchemaRegistry struct {
	cache       *lru.Cache[string, *schema.Validator]
	mu          sync.Mutex
	generations map[string]uint64
	opts        []schema.Option
	logger      *zap.Logger
}

// NewSchemaRegistry creates a registry caching up to size validators. The
// options are applied to every validator it builds.
func NewSchemaRegistry(size int, logger *zap.Logger, opts ...schema.Option) (*SchemaRegistry, error) {
	if size <= 0 {
		size = DefaultSchemaCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := lru.New[string, *schema.Validator](size)
	if err != nil {
		return nil, err
	}
	validatorOpts := append([]schema.Option{schema.WithLogger(logger)}, opts...)
	return &SchemaRegistry{
		cache:       c,
		generations: make(map[string]uint64),
		opts:        validatorOpts,
		logger:      logger,
	}, nil
}

// Validator returns the validator for ht, loading its fields from store on a
// cache miss.
func (r *SchemaRegistry) Validator(ctx context.Context, store Store, ht *HobbyType) (*schema.Validator, error) {
	if v, ok := r.cache.Get(ht.ID); ok {
		return v, nil
	}

	r.mu.Lock()
	gen := r.generations[ht.ID]
	r.mu.Unlock()

	s, err := loadSchema(ctx, store, ht)
	if err != nil {
		return nil, err
	}
	v := schema.NewValidator(s, r.opts...)

	r.mu.Lock()
	current := r.generations[ht.ID] == gen
	if current {
		r.cache.Add(ht.ID, v)
	}
	r.mu.Unlock()

	r.logger.Debug("Built validator",
		zap.String("hobby_type", ht.ID),
		zap.Int("fields", len(s.Fields)),
		zap.Bool("cached", current))
	return v, nil
}

// Invalidate drops the cached validator of a hobby type and prevents any
// validator loaded before this call from being cached.
func (r *SchemaRegistry) Invalidate(hobbyTypeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[hobbyTypeID]++
	r.cache.Remove(hobbyTypeID)
}

// Len returns the number of cached validators.
func (r *SchemaRegistry) Len() int {
	return r.cache.Len()
}

func loadSchema(ctx context.Context, store Store, ht *HobbyType) (*schema.Schema, error) {
	fields, err := store.ListFields(ctx, ht.ID)
	if err != nil {
		return nil, fmt.Errorf("loading fields of hobby type '%s': %w", ht.ID, err)
	}
	defs := make([]*schema.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		def := f.Definition
		defs = append(defs, &def)
	}
	s := schema.NewSchema(ht.Name, defs)
	s.Description = ht.Description
	return s, nil
}
