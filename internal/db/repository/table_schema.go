package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

// Compile-time check.
var _ domain.TableSchemaRepository = (*TableSchemaRepo)(nil)

// TableSchemaRepo implements TableSchemaRepository using SQLite. Schemas are
// stored as their JSON definition keyed by name.
type TableSchemaRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewTableSchemaRepo creates a TableSchemaRepo. read may be nil, in which
// case write serves lookups too.
func NewTableSchemaRepo(write, read *sql.DB) *TableSchemaRepo {
	if read == nil {
		read = write
	}
	return &TableSchemaRepo{write: write, read: read}
}

const selectTableSchema = `SELECT id, name, definition, created_at, updated_at FROM table_schemas`

// Create inserts a new schema. A schema with the same name is a ConflictError.
func (r *TableSchemaRepo) Create(ctx context.Context, s domain.TableSchema) (*domain.StoredSchema, error) {
	def, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	now := formatTime(time.Now())
	id := newID()

	_, err = r.write.ExecContext(ctx,
		`INSERT INTO table_schemas (id, name, definition, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, s.Name, string(def), now, now)
	if err != nil {
		var conflict *domain.ConflictError
		if err = mapDBError(err); errors.As(err, &conflict) {
			return nil, domain.ErrConflict("table schema %q already exists", s.Name)
		}
		return nil, err
	}
	return r.get(ctx, r.write, s.Name)
}

// Upsert inserts s or replaces the definition stored under its name.
func (r *TableSchemaRepo) Upsert(ctx context.Context, s domain.TableSchema) (*domain.StoredSchema, error) {
	def, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	now := formatTime(time.Now())

	_, err = r.write.ExecContext(ctx,
		`INSERT INTO table_schemas (id, name, definition, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET definition = excluded.definition, updated_at = excluded.updated_at`,
		newID(), s.Name, string(def), now, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.get(ctx, r.write, s.Name)
}

// GetByName returns the schema registered under name.
func (r *TableSchemaRepo) GetByName(ctx context.Context, name string) (*domain.StoredSchema, error) {
	return r.get(ctx, r.read, name)
}

// GetMany returns the schemas for names in the given order, skipping repeats.
// Any missing name is a NotFoundError.
func (r *TableSchemaRepo) GetMany(ctx context.Context, names []string) ([]domain.TableSchema, error) {
	out := make([]domain.TableSchema, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		stored, err := r.get(ctx, r.read, name)
		if err != nil {
			return nil, err
		}
		out = append(out, stored.Schema)
	}
	return out, nil
}

// List returns all registered schemas ordered by name.
func (r *TableSchemaRepo) List(ctx context.Context) ([]domain.StoredSchema, error) {
	rows, err := r.read.QueryContext(ctx, selectTableSchema+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.StoredSchema{}
	for rows.Next() {
		stored, err := scanTableSchema(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *stored)
	}
	return out, rows.Err()
}

// Delete removes the schema registered under name.
func (r *TableSchemaRepo) Delete(ctx context.Context, name string) error {
	res, err := r.write.ExecContext(ctx, `DELETE FROM table_schemas WHERE name = ?`, name)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("table schema %q not found", name)
	}
	return nil
}

func (r *TableSchemaRepo) get(ctx context.Context, db *sql.DB, name string) (*domain.StoredSchema, error) {
	stored, err := scanTableSchema(db.QueryRowContext(ctx, selectTableSchema+` WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("table schema %q not found", name)
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	return stored, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTableSchema(row scanner) (*domain.StoredSchema, error) {
	var (
		stored           domain.StoredSchema
		name, def        string
		created, updated string
	)
	if err := row.Scan(&stored.ID, &name, &def, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(def), &stored.Schema); err != nil {
		return nil, fmt.Errorf("decode schema %q: %w", name, err)
	}
	stored.Schema.Name = name
	stored.CreatedAt = parseTime(created)
	stored.UpdatedAt = parseTime(updated)
	return &stored, nil
}
