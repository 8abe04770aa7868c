package semantic

import (
	"context"
	"fmt"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

// RegisterSchema validates s and stores it in the registry. The schema SQL
// must parse in the engine. With replace set an existing schema of the same
// name is overwritten, otherwise it is a ConflictError.
func (s *Service) RegisterSchema(ctx context.Context, schema domain.TableSchema, replace bool) (*domain.StoredSchema, error) {
	if s.schemas == nil {
		return nil, fmt.Errorf("table schema registry is not configured")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.engine.SerializeSQL(ctx, schema.SQL); err != nil {
		return nil, fmt.Errorf("schema %q: %w", schema.Name, err)
	}
	if replace {
		return s.schemas.Upsert(ctx, schema)
	}
	return s.schemas.Create(ctx, schema)
}

// GetSchema returns a registered schema.
func (s *Service) GetSchema(ctx context.Context, name string) (*domain.StoredSchema, error) {
	if s.schemas == nil {
		return nil, domain.ErrNotFound("table schema %q not found", name)
	}
	return s.schemas.GetByName(ctx, name)
}

// ListSchemas returns every registered schema.
func (s *Service) ListSchemas(ctx context.Context) ([]domain.StoredSchema, error) {
	if s.schemas == nil {
		return []domain.StoredSchema{}, nil
	}
	return s.schemas.List(ctx)
}

// DeleteSchema removes a registered schema.
func (s *Service) DeleteSchema(ctx context.Context, name string) error {
	if s.schemas == nil {
		return domain.ErrNotFound("table schema %q not found", name)
	}
	return s.schemas.Delete(ctx, name)
}
