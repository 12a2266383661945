// Package persistence stores hobby types, their field schemas, entries, tags
// and saved views. Every entry write is validated against the current schema
// of its hobby type before it reaches the Store.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/go-hobbies/core/query"
	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/asaidimu/go-hobbies/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAuditWorkers is the number of entries audited concurrently.
const DefaultAuditWorkers = 4

// Option configures a Persistence service.
type Option func(*Persistence)

// WithLogger sets the service logger. It is also handed to every validator.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Persistence) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the recorder that receives validation and operation outcomes.
func WithMetrics(m MetricsRecorder) Option {
	return func(p *Persistence) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithValidatorOptions sets options applied to every validator, such as the
// rejection policy or the index mode.
func WithValidatorOptions(opts ...schema.Option) Option {
	return func(p *Persistence) { p.validatorOpts = append(p.validatorOpts, opts...) }
}

// WithSchemaCacheSize sets how many hobby type validators are cached.
func WithSchemaCacheSize(n int) Option {
	return func(p *Persistence) { p.cacheSize = n }
}

// WithAuditWorkers sets how many entries Audit checks concurrently.
func WithAuditWorkers(n int) Option {
	return func(p *Persistence) {
		if n > 0 {
			p.auditWorkers = n
		}
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Persistence) {
		if now != nil {
			p.now = now
		}
	}
}

// Persistence is the service used by every caller. All methods take the
// acting owner: objects of other owners are invisible and reported as
// ErrNotFound, except for writes that reference another owner's hobby type,
// which fail with ErrForbidden.
type Persistence struct {
	store         Store
	registry      *SchemaRegistry
	processor     *query.DataProcessor
	bus           *events.TypedEventBus[PersistenceEvent]
	metrics       MetricsRecorder
	logger        *zap.Logger
	validatorOpts []schema.Option
	cacheSize     int
	auditWorkers  int
	now           func() time.Time
	subscriptions map[string]*SubscriptionInfo
	subMu         sync.RWMutex
}

// NewPersistence creates the service on top of store.
func NewPersistence(store Store, opts ...Option) (*Persistence, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	bus, err := events.NewTypedEventBus[PersistenceEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}

	p := &Persistence{
		store:         store,
		bus:           bus,
		metrics:       nopMetrics{},
		logger:        zap.NewNop(),
		cacheSize:     DefaultSchemaCacheSize,
		auditWorkers:  DefaultAuditWorkers,
		now:           func() time.Time { return time.Now().UTC() },
		subscriptions: make(map[string]*SubscriptionInfo),
	}
	for _, opt := range opts {
		opt(p)
	}

	registry, err := NewSchemaRegistry(p.cacheSize, p.logger, p.validatorOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not initialize schema registry: %w", err)
	}
	p.registry = registry
	p.processor = query.NewDataProcessor(p.logger)
	return p, nil
}

// Processor returns the query processor used for saved views, so callers can
// register custom filter operators.
func (p *Persistence) Processor() *query.DataProcessor {
	return p.processor
}

func (p *Persistence) emitEvent(event PersistenceEvent) {
	if p.bus != nil {
		p.bus.Emit(string(event.Type), event)
	}
}

// withEventEmission wraps an operation with start, success, and failure events.
func (p *Persistence) withEventEmission(
	op operation,
	owner string,
	hobbyType string,
	input any,
	fn func() (any, error),
) (any, error) {
	startTime := time.Now()
	p.emitEvent(createEvent(op.start, op.name, owner, hobbyType, input, nil, nil, nil, startTime))

	result, err := fn()
	p.metrics.ObserveOperation(op.name, err)

	if err != nil {
		errStr := err.Error()
		p.emitEvent(createEvent(op.failed, op.name, owner, hobbyType, input, nil, &errStr, issuesOf(err), startTime))
		p.logger.Debug("Operation failed", zap.String("operation", op.name), zap.String("owner", owner), zap.Error(err))
		return nil, err
	}

	p.emitEvent(createEvent(op.success, op.name, owner, hobbyType, input, result, nil, nil, startTime))
	return result, nil
}

// ownedHobbyType returns the hobby type if owner can see it.
func (p *Persistence) ownedHobbyType(ctx context.Context, store Store, owner, id string) (*HobbyType, error) {
	ht, err := store.GetHobbyType(ctx, id)
	if err != nil {
		return nil, err
	}
	if ht.Owner != owner {
		return nil, notFound("hobby type", id)
	}
	return ht, nil
}

// writableHobbyType returns the hobby type an entry is written under.
func (p *Persistence) writableHobbyType(ctx context.Context, store Store, owner, id string) (*HobbyType, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: hobby_type is required", ErrInvalidInput)
	}
	ht, err := store.GetHobbyType(ctx, id)
	if err != nil {
		return nil, err
	}
	if ht.Owner != owner {
		return nil, ErrForbidden
	}
	return ht, nil
}

// ---- hobby types ----

// CreateHobbyType creates a hobby type. The slug is derived from the name.
func (p *Persistence) CreateHobbyType(ctx context.Context, owner string, in HobbyTypeInput) (*HobbyType, error) {
	result, err := p.withEventEmission(opCreateHobbyType, owner, "", in, func() (any, error) {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		slug := utils.Slugify(name)
		if slug == "" {
			return nil, fmt.Errorf("%w: name must contain at least one letter or digit", ErrInvalidInput)
		}
		now := p.now()
		ht := &HobbyType{
			ID:          uuid.NewString(),
			Owner:       owner,
			Name:        name,
			Slug:        slug,
			Description: in.Description,
			Icon:        in.Icon,
			Color:       in.Color,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := p.store.CreateHobbyType(ctx, ht); err != nil {
			return nil, err
		}
		return ht, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*HobbyType), nil
}

// GetHobbyType returns one hobby type of owner.
func (p *Persistence) GetHobbyType(ctx context.Context, owner, id string) (*HobbyType, error) {
	return p.ownedHobbyType(ctx, p.store, owner, id)
}

// ListHobbyTypes returns the hobby types of owner ordered by name.
func (p *Persistence) ListHobbyTypes(ctx context.Context, owner string) ([]*HobbyType, error) {
	return p.store.ListHobbyTypes(ctx, owner)
}

// UpdateHobbyType replaces the attributes of a hobby type. Renaming it
// regenerates the slug.
func (p *Persistence) UpdateHobbyType(ctx context.Context, owner, id string, in HobbyTypeInput) (*HobbyType, error) {
	result, err := p.withEventEmission(opUpdateHobbyType, owner, id, in, func() (any, error) {
		ht, err := p.ownedHobbyType(ctx, p.store, owner, id)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if name != ht.Name {
			slug := utils.Slugify(name)
			if slug == "" {
				return nil, fmt.Errorf("%w: name must contain at least one letter or digit", ErrInvalidInput)
			}
			ht.Name, ht.Slug = name, slug
		}
		ht.Description, ht.Icon, ht.Color = in.Description, in.Icon, in.Color
		ht.UpdatedAt = p.now()
		if err := p.store.UpdateHobbyType(ctx, ht); err != nil {
			return nil, err
		}
		p.registry.Invalidate(id)
		return ht, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*HobbyType), nil
}

// DeleteHobbyType removes a hobby type together with its fields, entries and
// saved views.
func (p *Persistence) DeleteHobbyType(ctx context.Context, owner, id string) error {
	_, err := p.withEventEmission(opDeleteHobbyType, owner, id, nil, func() (any, error) {
		if _, err := p.ownedHobbyType(ctx, p.store, owner, id); err != nil {
			return nil, err
		}
		if err := p.store.DeleteHobbyType(ctx, id); err != nil {
			return nil, err
		}
		p.registry.Invalidate(id)
		return nil, nil
	})
	return err
}

// ---- fields ----

func prepareDefinition(def schema.FieldDefinition) (schema.FieldDefinition, error) {
	if def.Options == nil {
		opts, err := schema.DecodeOptions(def.Type, nil)
		if err != nil {
			return def, err
		}
		def.Options = opts
	}
	if strings.TrimSpace(def.Label) == "" {
		def.Label = def.Key
	}
	if err := def.Validate(); err != nil {
		return def, err
	}
	return def, nil
}

// AddField adds a field to the schema of a hobby type. Entries already stored
// are not revalidated.
func (p *Persistence) AddField(ctx context.Context, owner, hobbyTypeID string, def schema.FieldDefinition) (*Field, error) {
	result, err := p.withEventEmission(opCreateField, owner, hobbyTypeID, def, func() (any, error) {
		if _, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID); err != nil {
			return nil, err
		}
		return p.addField(ctx, p.store, hobbyTypeID, def)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Field), nil
}

func (p *Persistence) addField(ctx context.Context, store Store, hobbyTypeID string, def schema.FieldDefinition) (*Field, error) {
	def, err := prepareDefinition(def)
	if err != nil {
		return nil, err
	}
	if err := checkLabel(ctx, store, hobbyTypeID, def, ""); err != nil {
		return nil, err
	}
	f := &Field{
		ID:          uuid.NewString(),
		HobbyTypeID: hobbyTypeID,
		Definition:  def,
		CreatedAt:   p.now(),
	}
	if err := store.CreateField(ctx, f); err != nil {
		return nil, err
	}
	p.registry.Invalidate(hobbyTypeID)
	return f, nil
}

// UpdateField replaces the definition of the field stored under key. The new
// definition may carry a different key.
func (p *Persistence) UpdateField(ctx context.Context, owner, hobbyTypeID, key string, def schema.FieldDefinition) (*Field, error) {
	result, err := p.withEventEmission(opUpdateField, owner, hobbyTypeID, def, func() (any, error) {
		if _, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID); err != nil {
			return nil, err
		}
		existing, err := p.findField(ctx, hobbyTypeID, key)
		if err != nil {
			return nil, err
		}
		def, err := prepareDefinition(def)
		if err != nil {
			return nil, err
		}
		if err := checkLabel(ctx, p.store, hobbyTypeID, def, existing.ID); err != nil {
			return nil, err
		}
		existing.Definition = def
		if err := p.store.UpdateField(ctx, existing); err != nil {
			return nil, err
		}
		p.registry.Invalidate(hobbyTypeID)
		return existing, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Field), nil
}

// RemoveField deletes a field. Values stored under its key in existing
// entries are kept; they surface as unknown keys on the next update.
func (p *Persistence) RemoveField(ctx context.Context, owner, hobbyTypeID, key string) error {
	_, err := p.withEventEmission(opDeleteField, owner, hobbyTypeID, key, func() (any, error) {
		if _, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID); err != nil {
			return nil, err
		}
		if err := p.store.DeleteField(ctx, hobbyTypeID, key); err != nil {
			return nil, err
		}
		p.registry.Invalidate(hobbyTypeID)
		return nil, nil
	})
	return err
}

// checkLabel rejects def when another field of the hobby type, other than
// the one stored under skipID, already uses its label.
func checkLabel(ctx context.Context, store Store, hobbyTypeID string, def schema.FieldDefinition, skipID string) error {
	fields, err := store.ListFields(ctx, hobbyTypeID)
	if err != nil {
		return err
	}
	defs := make([]*schema.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		if f.ID == skipID {
			continue
		}
		d := f.Definition
		defs = append(defs, &d)
	}
	if schema.NewSchema(hobbyTypeID, defs).FindByLabel(def.Label) != nil {
		return &schema.DefinitionError{Field: def.Key, Message: schema.DuplicateLabelMessage}
	}
	return nil
}

func (p *Persistence) findField(ctx context.Context, hobbyTypeID, key string) (*Field, error) {
	fields, err := p.store.ListFields(ctx, hobbyTypeID)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Definition.Key == key {
			return f, nil
		}
	}
	return nil, notFound("field", key)
}

// Fields lists the fields of a hobby type in schema order.
func (p *Persistence) Fields(ctx context.Context, owner, hobbyTypeID string) ([]*Field, error) {
	if _, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID); err != nil {
		return nil, err
	}
	return p.store.ListFields(ctx, hobbyTypeID)
}

// Schema returns a snapshot of the current schema of a hobby type.
func (p *Persistence) Schema(ctx context.Context, owner, hobbyTypeID string) (*schema.Schema, error) {
	ht, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID)
	if err != nil {
		return nil, err
	}
	v, err := p.registry.Validator(ctx, p.store, ht)
	if err != nil {
		return nil, err
	}
	return v.Schema().Clone(), nil
}

// ImportSchema adds every field of s to a hobby type in one transaction.
func (p *Persistence) ImportSchema(ctx context.Context, owner, hobbyTypeID string, s *schema.Schema) ([]*Field, error) {
	result, err := p.withEventEmission(opImportSchema, owner, hobbyTypeID, s, func() (any, error) {
		if s == nil {
			return nil, fmt.Errorf("%w: schema is required", ErrInvalidInput)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID); err != nil {
			return nil, err
		}

		tx, err := p.store.StartTransaction(ctx)
		if err != nil {
			return nil, err
		}
		fields := make([]*Field, 0, len(s.Fields))
		for _, def := range s.Fields {
			f, err := p.addField(ctx, tx, hobbyTypeID, *def)
			if err != nil {
				if rbErr := tx.Rollback(ctx); rbErr != nil {
					p.logger.Warn("Rollback failed", zap.Error(rbErr))
				}
				return nil, fmt.Errorf("importing field '%s': %w", def.Key, err)
			}
			fields = append(fields, f)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		p.registry.Invalidate(hobbyTypeID)
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*Field), nil
}

// ---- entries ----

// validate checks data against the schema of ht. A rejection emits an
// EntryValidationRejected event and returns a *schema.ValidationError.
func (p *Persistence) validate(ctx context.Context, owner string, ht *HobbyType, data schema.Document) error {
	v, err := p.registry.Validator(ctx, p.store, ht)
	if err != nil {
		return err
	}
	result := v.Validate(data)
	p.metrics.ObserveValidation(ht.Name, result)

	err = result.Err()
	if err == nil {
		return nil
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) && verr.Internal() {
		p.logger.Error("Entry rejected by an inconsistent schema",
			zap.String("hobby_type", ht.ID),
			zap.Any("errors", verr.Errors))
	}
	errStr := err.Error()
	p.emitEvent(createEvent(EntryValidationRejected, "validate", owner, ht.ID, data, nil, &errStr, result.Issues, time.Time{}))
	return err
}

// ValidateRecord checks data against a hobby type's schema without storing it.
func (p *Persistence) ValidateRecord(ctx context.Context, owner, hobbyTypeID string, data schema.Document) (*schema.ValidationResult, error) {
	ht, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID)
	if err != nil {
		return nil, err
	}
	v, err := p.registry.Validator(ctx, p.store, ht)
	if err != nil {
		return nil, err
	}
	result := v.Validate(data)
	p.metrics.ObserveValidation(ht.Name, result)
	return result, nil
}

// checkTags verifies that every id names a tag of owner. It returns the ids
// without duplicates, in their original order.
func (p *Persistence) checkTags(ctx context.Context, owner string, ids []string) ([]string, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return unique, nil
	}

	tags, err := p.store.GetTags(ctx, unique)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t.Owner == owner {
			owned[t.ID] = struct{}{}
		}
	}
	var bad []string
	for _, id := range unique {
		if _, ok := owned[id]; !ok {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return nil, invalidTags(bad)
	}
	return unique, nil
}

// CreateEntry validates and stores a new entry.
func (p *Persistence) CreateEntry(ctx context.Context, owner string, in EntryInput) (*Entry, error) {
	result, err := p.withEventEmission(opCreateEntry, owner, in.HobbyTypeID, in, func() (any, error) {
		ht, err := p.writableHobbyType(ctx, p.store, owner, in.HobbyTypeID)
		if err != nil {
			return nil, err
		}
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		status, err := ParseEntryStatus(in.Status)
		if err != nil {
			return nil, err
		}
		tags, err := p.checkTags(ctx, owner, in.Tags)
		if err != nil {
			return nil, err
		}
		data := in.Data
		if data == nil {
			data = schema.Document{}
		}
		if err := p.validate(ctx, owner, ht, data); err != nil {
			return nil, err
		}

		now := p.now()
		e := &Entry{
			ID:          uuid.NewString(),
			Owner:       owner,
			HobbyTypeID: ht.ID,
			Title:       title,
			Status:      status,
			Tags:        tags,
			Data:        data,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := p.store.CreateEntry(ctx, e); err != nil {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Entry), nil
}

// GetEntry returns one entry of owner.
func (p *Persistence) GetEntry(ctx context.Context, owner, id string) (*Entry, error) {
	e, err := p.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Owner != owner {
		return nil, notFound("entry", id)
	}
	return e, nil
}

// UpdateEntry applies upd to an entry and revalidates the result against the
// current schema, even when only the title or status changed.
func (p *Persistence) UpdateEntry(ctx context.Context, owner, id string, upd EntryUpdate) (*Entry, error) {
	result, err := p.withEventEmission(opUpdateEntry, owner, "", upd, func() (any, error) {
		e, err := p.GetEntry(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		if upd.HobbyTypeID != nil {
			e.HobbyTypeID = *upd.HobbyTypeID
		}
		ht, err := p.writableHobbyType(ctx, p.store, owner, e.HobbyTypeID)
		if err != nil {
			return nil, err
		}
		if upd.Title != nil {
			title := strings.TrimSpace(*upd.Title)
			if title == "" {
				return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
			}
			e.Title = title
		}
		if upd.Status != nil {
			status, err := ParseEntryStatus(*upd.Status)
			if err != nil {
				return nil, err
			}
			e.Status = status
		}
		if upd.Tags != nil {
			tags, err := p.checkTags(ctx, owner, *upd.Tags)
			if err != nil {
				return nil, err
			}
			e.Tags = tags
		}
		if upd.Data != nil {
			e.Data = *upd.Data
			if e.Data == nil {
				e.Data = schema.Document{}
			}
		}
		if err := p.validate(ctx, owner, ht, e.Data); err != nil {
			return nil, err
		}

		e.UpdatedAt = p.now()
		if err := p.store.UpdateEntry(ctx, e); err != nil {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Entry), nil
}

// DeleteEntry removes an entry of owner.
func (p *Persistence) DeleteEntry(ctx context.Context, owner, id string) error {
	_, err := p.withEventEmission(opDeleteEntry, owner, "", id, func() (any, error) {
		if _, err := p.GetEntry(ctx, owner, id); err != nil {
			return nil, err
		}
		return nil, p.store.DeleteEntry(ctx, id)
	})
	return err
}

// ListEntries returns the entries of owner, optionally restricted to one
// hobby type.
func (p *Persistence) ListEntries(ctx context.Context, owner, hobbyTypeID string) ([]*Entry, error) {
	if hobbyTypeID != "" {
		if _, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID); err != nil {
			return nil, err
		}
	}
	return p.store.ListEntries(ctx, EntryFilter{Owner: owner, HobbyTypeID: hobbyTypeID})
}

// QueryEntries filters, orders and pages the entries of a hobby type in
// memory. Filters on "tags" match tag slugs; "tag_ids" matches ids.
func (p *Persistence) QueryEntries(ctx context.Context, owner, hobbyTypeID string, dsl *query.QueryDSL) ([]*Entry, error) {
	entries, err := p.ListEntries(ctx, owner, hobbyTypeID)
	if err != nil {
		return nil, err
	}

	tags, err := p.store.ListTags(ctx, owner)
	if err != nil {
		return nil, err
	}
	tagSlugs := make(map[string]string, len(tags))
	for _, t := range tags {
		tagSlugs[t.ID] = t.Slug
	}

	byID := make(map[string]*Entry, len(entries))
	docs := make([]schema.Document, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		docs = append(docs, e.Document(tagSlugs))
	}

	rows, err := p.processor.Process(ctx, docs, dsl)
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- tags ----

// CreateTag creates a tag of owner.
func (p *Persistence) CreateTag(ctx context.Context, owner, name string) (*Tag, error) {
	result, err := p.withEventEmission(opCreateTag, owner, "", name, func() (any, error) {
		name := strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		slug := utils.Slugify(name)
		if slug == "" {
			return nil, fmt.Errorf("%w: name must contain at least one letter or digit", ErrInvalidInput)
		}
		t := &Tag{ID: uuid.NewString(), Owner: owner, Name: name, Slug: slug, CreatedAt: p.now()}
		if err := p.store.CreateTag(ctx, t); err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Tag), nil
}

// ListTags returns the tags of owner ordered by name.
func (p *Persistence) ListTags(ctx context.Context, owner string) ([]*Tag, error) {
	return p.store.ListTags(ctx, owner)
}

// DeleteTag removes a tag of owner and detaches it from entries.
func (p *Persistence) DeleteTag(ctx context.Context, owner, id string) error {
	_, err := p.withEventEmission(opDeleteTag, owner, "", id, func() (any, error) {
		tags, err := p.store.GetTags(ctx, []string{id})
		if err != nil {
			return nil, err
		}
		if len(tags) == 0 || tags[0].Owner != owner {
			return nil, notFound("tag", id)
		}
		return nil, p.store.DeleteTag(ctx, id)
	})
	return err
}

// ---- saved views ----

// CreateView stores a saved view. Its filters and sort keys are parsed up
// front so a broken view is rejected at creation.
func (p *Persistence) CreateView(ctx context.Context, owner string, in SavedViewInput) (*SavedView, error) {
	result, err := p.withEventEmission(opCreateView, owner, in.HobbyTypeID, in, func() (any, error) {
		if _, err := p.ownedHobbyType(ctx, p.store, owner, in.HobbyTypeID); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if _, err := query.ParseView(in.Filters, in.Sort); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filters := in.Filters
		if filters == nil {
			filters = map[string]any{}
		}
		sortKeys := in.Sort
		if sortKeys == nil {
			sortKeys = []string{}
		}
		v := &SavedView{
			ID:          uuid.NewString(),
			Owner:       owner,
			HobbyTypeID: in.HobbyTypeID,
			Name:        name,
			Filters:     filters,
			Sort:        sortKeys,
			CreatedAt:   p.now(),
		}
		if err := p.store.CreateView(ctx, v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*SavedView), nil
}

// GetView returns a saved view of owner.
func (p *Persistence) GetView(ctx context.Context, owner, id string) (*SavedView, error) {
	v, err := p.store.GetView(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Owner != owner {
		return nil, notFound("view", id)
	}
	return v, nil
}

// ListViews returns the saved views of a hobby type ordered by name.
func (p *Persistence) ListViews(ctx context.Context, owner, hobbyTypeID string) ([]*SavedView, error) {
	if _, err := p.ownedHobbyType(ctx, p.store, owner, hobbyTypeID); err != nil {
		return nil, err
	}
	return p.store.ListViews(ctx, owner, hobbyTypeID)
}

// ApplyView returns the entries selected by a saved view, in its order.
func (p *Persistence) ApplyView(ctx context.Context, owner, id string) ([]*Entry, error) {
	v, err := p.GetView(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	dsl, err := query.ParseView(v.Filters, v.Sort)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return p.QueryEntries(ctx, owner, v.HobbyTypeID, dsl)
}

// DeleteView removes a saved view of owner.
func (p *Persistence) DeleteView(ctx context.Context, owner, id string) error {
	_, err := p.withEventEmission(opDeleteView, owner, "", id, func() (any, error) {
		if _, err := p.GetView(ctx, owner, id); err != nil {
			return nil, err
		}
		return nil, p.store.DeleteView(ctx, id)
	})
	return err
}

// ---- subscriptions ----

// RegisterSubscription registers a callback for a specific persistence event. It returns
// a unique ID that can be used to unregister the subscription later.
func (p *Persistence) RegisterSubscription(options RegisterSubscriptionOptions) string {
	p.subMu.Lock()
	unsubscribe := p.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()
	p.subscriptions[id] = &SubscriptionInfo{
		Id:          &id,
		Event:       options.Event,
		Unsubscribe: unsubscribe,
		Label:       options.Label,
		Description: options.Description,
	}
	p.subMu.Unlock()

	p.emitEvent(createEvent(SubscriptionRegister, "register_subscription", "", "",
		map[string]any{"event": options.Event, "label": options.Label},
		map[string]any{"subscriptionId": id}, nil, nil, time.Now()))
	return id
}

// UnregisterSubscription removes a subscription by its ID.
func (p *Persistence) UnregisterSubscription(id string) {
	p.subMu.Lock()
	info, ok := p.subscriptions[id]
	if ok {
		info.Unsubscribe()
		delete(p.subscriptions, id)
	}
	p.subMu.Unlock()

	if ok {
		p.emitEvent(createEvent(SubscriptionUnregister, "unregister_subscription", "", "",
			map[string]any{"subscriptionId": id}, nil, nil, nil, time.Now()))
	}
}

// Subscriptions returns a list of all currently active subscriptions.
func (p *Persistence) Subscriptions() []SubscriptionInfo {
	p.subMu.RLock()
	defer p.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(p.subscriptions))
	for _, sub := range p.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}
