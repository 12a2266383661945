package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/asaidimu/go-hobbies/core/schema"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// atomic runs fn inside a transaction, reusing the current one if any.
func (s *SQLiteStore) atomic(ctx context.Context, fn func(*SQLiteStore) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(NewSQLiteStore(s.db, s.logger, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFoundOr(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s '%s': %w", kind, id, persistence.ErrNotFound)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ---- hobby types ----

const hobbyTypeColumns = `id, owner, name, slug, description, icon, color, created_at, updated_at`

func scanHobbyType(row scanner) (*persistence.HobbyType, error) {
	var ht persistence.HobbyType
	var created, updated string
	if err := row.Scan(&ht.ID, &ht.Owner, &ht.Name, &ht.Slug, &ht.Description, &ht.Icon, &ht.Color, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if ht.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if ht.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &ht, nil
}

func (s *SQLiteStore) CreateHobbyType(ctx context.Context, ht *persistence.HobbyType) error {
	_, err := s.exec(ctx, "hobby type",
		`INSERT INTO hobby_types (`+hobbyTypeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		ht.ID, ht.Owner, ht.Name, ht.Slug, ht.Description, ht.Icon, ht.Color,
		formatTime(ht.CreatedAt), formatTime(ht.UpdatedAt))
	return err
}

func (s *SQLiteStore) GetHobbyType(ctx context.Context, id string) (*persistence.HobbyType, error) {
	row := s.runner().QueryRowContext(ctx, `SELECT `+hobbyTypeColumns+` FROM hobby_types WHERE id = ?;`, id)
	ht, err := scanHobbyType(row)
	if err != nil {
		return nil, notFoundOr("hobby type", id, err)
	}
	return ht, nil
}

func (s *SQLiteStore) ListHobbyTypes(ctx context.Context, owner string) ([]*persistence.HobbyType, error) {
	rows, err := s.runner().QueryContext(ctx,
		`SELECT `+hobbyTypeColumns+` FROM hobby_types WHERE owner = ? ORDER BY name, rowid;`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list hobby types: %w", err)
	}
	defer rows.Close()

	out := []*persistence.HobbyType{}
	for rows.Next() {
		ht, err := scanHobbyType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, ht)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateHobbyType(ctx context.Context, ht *persistence.HobbyType) error {
	return s.execOne(ctx, "hobby type", ht.ID,
		`UPDATE hobby_types SET name = ?, slug = ?, description = ?, icon = ?, color = ?, updated_at = ? WHERE id = ?;`,
		ht.Name, ht.Slug, ht.Description, ht.Icon, ht.Color, formatTime(ht.UpdatedAt), ht.ID)
}

// DeleteHobbyType relies on ON DELETE CASCADE for fields, entries and views.
func (s *SQLiteStore) DeleteHobbyType(ctx context.Context, id string) error {
	return s.execOne(ctx, "hobby type", id, `DELETE FROM hobby_types WHERE id = ?;`, id)
}

// ---- fields ----

func scanField(row scanner) (*persistence.Field, error) {
	var f persistence.Field
	var def, created string
	if err := row.Scan(&f.ID, &f.HobbyTypeID, &def, &created); err != nil {
		return nil, err
	}
	if err := decodeJSON(def, &f.Definition); err != nil {
		return nil, fmt.Errorf("corrupt definition of field '%s': %w", f.ID, err)
	}
	var err error
	if f.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) CreateField(ctx context.Context, f *persistence.Field) error {
	def, err := encodeJSON(f.Definition, "{}")
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, "field",
		`INSERT INTO fields (id, hobby_type_id, key, field_order, definition, created_at) VALUES (?, ?, ?, ?, ?, ?);`,
		f.ID, f.HobbyTypeID, f.Definition.Key, f.Definition.Order, def, formatTime(f.CreatedAt))
	return err
}

func (s *SQLiteStore) UpdateField(ctx context.Context, f *persistence.Field) error {
	def, err := encodeJSON(f.Definition, "{}")
	if err != nil {
		return err
	}
	return s.execOne(ctx, "field", f.ID,
		`UPDATE fields SET key = ?, field_order = ?, definition = ? WHERE id = ?;`,
		f.Definition.Key, f.Definition.Order, def, f.ID)
}

func (s *SQLiteStore) DeleteField(ctx context.Context, hobbyTypeID, key string) error {
	return s.execOne(ctx, "field", key,
		`DELETE FROM fields WHERE hobby_type_id = ? AND key = ?;`, hobbyTypeID, key)
}

func (s *SQLiteStore) ListFields(ctx context.Context, hobbyTypeID string) ([]*persistence.Field, error) {
	rows, err := s.runner().QueryContext(ctx,
		`SELECT id, hobby_type_id, definition, created_at FROM fields WHERE hobby_type_id = ? ORDER BY field_order, rowid;`,
		hobbyTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	out := []*persistence.Field{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ---- entries ----

const entryColumns = `id, owner, hobby_type_id, title, status, data, created_at, updated_at`

func scanEntry(row scanner) (*persistence.Entry, error) {
	var e persistence.Entry
	var status, data, created, updated string
	if err := row.Scan(&e.ID, &e.Owner, &e.HobbyTypeID, &e.Title, &status, &data, &created, &updated); err != nil {
		return nil, err
	}
	e.Status = persistence.EntryStatus(status)
	e.Data = schema.Document{}
	if err := decodeJSON(data, &e.Data); err != nil {
		return nil, fmt.Errorf("corrupt data of entry '%s': %w", e.ID, err)
	}
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	e.Tags = []string{}
	return &e, nil
}

func (s *SQLiteStore) writeEntryTags(ctx context.Context, e *persistence.Entry) error {
	if _, err := s.exec(ctx, "entry tags", `DELETE FROM entry_tags WHERE entry_id = ?;`, e.ID); err != nil {
		return err
	}
	for i, tagID := range e.Tags {
		if _, err := s.exec(ctx, "entry tag",
			`INSERT INTO entry_tags (entry_id, tag_id, position) VALUES (?, ?, ?);`, e.ID, tagID, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CreateEntry(ctx context.Context, e *persistence.Entry) error {
	data, err := encodeJSON(e.Data, "{}")
	if err != nil {
		return err
	}
	return s.atomic(ctx, func(st *SQLiteStore) error {
		if _, err := st.exec(ctx, "entry",
			`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
			e.ID, e.Owner, e.HobbyTypeID, e.Title, string(e.Status), data,
			formatTime(e.CreatedAt), formatTime(e.UpdatedAt)); err != nil {
			return err
		}
		return st.writeEntryTags(ctx, e)
	})
}

func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*persistence.Entry, error) {
	row := s.runner().QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?;`, id)
	e, err := scanEntry(row)
	if err != nil {
		return nil, notFoundOr("entry", id, err)
	}
	if err := s.loadTags(ctx, map[string]*persistence.Entry{e.ID: e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *SQLiteStore) UpdateEntry(ctx context.Context, e *persistence.Entry) error {
	data, err := encodeJSON(e.Data, "{}")
	if err != nil {
		return err
	}
	return s.atomic(ctx, func(st *SQLiteStore) error {
		if err := st.execOne(ctx, "entry", e.ID,
			`UPDATE entries SET hobby_type_id = ?, title = ?, status = ?, data = ?, updated_at = ? WHERE id = ?;`,
			e.HobbyTypeID, e.Title, string(e.Status), data, formatTime(e.UpdatedAt), e.ID); err != nil {
			return err
		}
		return st.writeEntryTags(ctx, e)
	})
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, id string) error {
	return s.execOne(ctx, "entry", id, `DELETE FROM entries WHERE id = ?;`, id)
}

// ListEntries returns matching entries, most recently updated first.
func (s *SQLiteStore) ListEntries(ctx context.Context, filter persistence.EntryFilter) ([]*persistence.Entry, error) {
	var where []string
	var args []any
	if filter.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.HobbyTypeID != "" {
		where = append(where, "hobby_type_id = ?")
		args = append(args, filter.HobbyTypeID)
	}
	stmt := `SELECT ` + entryColumns + ` FROM entries`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY updated_at DESC, rowid DESC;"

	rows, err := s.runner().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	out := []*persistence.Entry{}
	byID := map[string]*persistence.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, e)
		byID[e.ID] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

// loadTags fills the tag ids of the given entries in their stored order.
func (s *SQLiteStore) loadTags(ctx context.Context, entries map[string]*persistence.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]any, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	rows, err := s.runner().QueryContext(ctx,
		`SELECT entry_id, tag_id FROM entry_tags WHERE entry_id IN (`+placeholders(len(ids))+`) ORDER BY entry_id, position;`,
		ids...)
	if err != nil {
		return fmt.Errorf("failed to load entry tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entryID, tagID string
		if err := rows.Scan(&entryID, &tagID); err != nil {
			return err
		}
		if e, ok := entries[entryID]; ok {
			e.Tags = append(e.Tags, tagID)
		}
	}
	return rows.Err()
}

// ---- tags ----

const tagColumns = `id, owner, name, slug, created_at`

func scanTag(row scanner) (*persistence.Tag, error) {
	var t persistence.Tag
	var created string
	if err := row.Scan(&t.ID, &t.Owner, &t.Name, &t.Slug, &created); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) queryTags(ctx context.Context, stmt string, args ...any) ([]*persistence.Tag, error) {
	rows, err := s.runner().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()
	out := []*persistence.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateTag(ctx context.Context, t *persistence.Tag) error {
	_, err := s.exec(ctx, "tag",
		`INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?, ?);`,
		t.ID, t.Owner, t.Name, t.Slug, formatTime(t.CreatedAt))
	return err
}

func (s *SQLiteStore) GetTags(ctx context.Context, ids []string) ([]*persistence.Tag, error) {
	if len(ids) == 0 {
		return []*persistence.Tag{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryTags(ctx, `SELECT `+tagColumns+` FROM tags WHERE id IN (`+placeholders(len(ids))+`);`, args...)
}

func (s *SQLiteStore) ListTags(ctx context.Context, owner string) ([]*persistence.Tag, error) {
	return s.queryTags(ctx, `SELECT `+tagColumns+` FROM tags WHERE owner = ? ORDER BY name, rowid;`, owner)
}

// DeleteTag detaches the tag from entries through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteTag(ctx context.Context, id string) error {
	return s.execOne(ctx, "tag", id, `DELETE FROM tags WHERE id = ?;`, id)
}

// ---- saved views ----

const viewColumns = `id, owner, hobby_type_id, name, filters, sort, created_at`

func scanView(row scanner) (*persistence.SavedView, error) {
	var v persistence.SavedView
	var filters, sortKeys, created string
	if err := row.Scan(&v.ID, &v.Owner, &v.HobbyTypeID, &v.Name, &filters, &sortKeys, &created); err != nil {
		return nil, err
	}
	v.Filters = map[string]any{}
	v.Sort = []string{}
	if err := decodeJSON(filters, &v.Filters); err != nil {
		return nil, fmt.Errorf("corrupt filters of view '%s': %w", v.ID, err)
	}
	if err := decodeJSON(sortKeys, &v.Sort); err != nil {
		return nil, fmt.Errorf("corrupt sort of view '%s': %w", v.ID, err)
	}
	var err error
	if v.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) CreateView(ctx context.Context, v *persistence.SavedView) error {
	filters, err := encodeJSON(v.Filters, "{}")
	if err != nil {
		return err
	}
	sortKeys, err := encodeJSON(v.Sort, "[]")
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, "view",
		`INSERT INTO saved_views (`+viewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		v.ID, v.Owner, v.HobbyTypeID, v.Name, filters, sortKeys, formatTime(v.CreatedAt))
	return err
}

func (s *SQLiteStore) GetView(ctx context.Context, id string) (*persistence.SavedView, error) {
	row := s.runner().QueryRowContext(ctx, `SELECT `+viewColumns+` FROM saved_views WHERE id = ?;`, id)
	v, err := scanView(row)
	if err != nil {
		return nil, notFoundOr("view", id, err)
	}
	return v, nil
}

func (s *SQLiteStore) ListViews(ctx context.Context, owner, hobbyTypeID string) ([]*persistence.SavedView, error) {
	rows, err := s.runner().QueryContext(ctx,
		`SELECT `+viewColumns+` FROM saved_views WHERE owner = ? AND hobby_type_id = ? ORDER BY name, rowid;`,
		owner, hobbyTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()
	out := []*persistence.SavedView{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteView(ctx context.Context, id string) error {
	return s.execOne(ctx, "view", id, `DELETE FROM saved_views WHERE id = ?;`, id)
}
