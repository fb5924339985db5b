package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

var specialtyColumns = []interface{}{"id", "name", "icon", "description", "catalog_key"}

// SpecialtyAdapter implements the SpecialtyRepository interface
type SpecialtyAdapter struct {
	db *sqlx.DB
}

// NewSpecialtyAdapter creates a new specialty adapter
func NewSpecialtyAdapter(client *postgres.Client) repositories.SpecialtyRepository {
	return &SpecialtyAdapter{db: newDB(client)}
}

func specialtyWriteErr(err error, name, action string) error {
	if constraint, ok := uniqueConstraint(err); ok && constraint == constraintSpecialty {
		return apperrors.NewConflictError(fmt.Sprintf("specialty %q already exists", name))
	}
	return apperrors.NewInternalError("failed to "+action+" specialty", err)
}

// Create assigns max(ID)+1 and stores the specialty
func (a *SpecialtyAdapter) Create(ctx context.Context, specialty *entities.Specialty) error {
	nextID := dialect.From("specialties").Select(goqu.L("COALESCE(MAX(id), 0) + 1"))
	query, args, err := dialect.Insert("specialties").Prepared(true).
		Rows(goqu.Record{
			"id":          nextID,
			"name":        specialty.Name,
			"icon":        specialty.Icon,
			"description": specialty.Description,
			"catalog_key": specialty.CatalogKey,
		}).
		Returning("id").
		ToSQL()
	if err != nil {
		return buildErr(err)
	}

	if err := a.db.QueryRowxContext(ctx, query, args...).Scan(&specialty.ID); err != nil {
		return specialtyWriteErr(err, specialty.Name, "create")
	}
	return nil
}

func (a *SpecialtyAdapter) getOne(ctx context.Context, where goqu.Ex, notFound string) (*entities.Specialty, error) {
	query, args, err := dialect.From("specialties").Prepared(true).Select(specialtyColumns...).Where(where).ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	specialty := &entities.Specialty{}
	err = a.db.GetContext(ctx, specialty, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get specialty", err)
	}
	return specialty, nil
}

// GetByID retrieves a specialty by ID
func (a *SpecialtyAdapter) GetByID(ctx context.Context, id int64) (*entities.Specialty, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("specialty %d not found", id))
}

// GetByName retrieves a specialty by exact name
func (a *SpecialtyAdapter) GetByName(ctx context.Context, name string) (*entities.Specialty, error) {
	return a.getOne(ctx, goqu.Ex{"name": name}, fmt.Sprintf("specialty %q not found", name))
}

// Update updates a specialty. The catalog key is never changed.
func (a *SpecialtyAdapter) Update(ctx context.Context, specialty *entities.Specialty) error {
	query, args, err := dialect.Update("specialties").Prepared(true).
		Set(goqu.Record{
			"name":        specialty.Name,
			"icon":        specialty.Icon,
			"description": specialty.Description,
		}).
		Where(goqu.Ex{"id": specialty.ID}).
		ToSQL()
	if err != nil {
		return buildErr(err)
	}

	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return specialtyWriteErr(err, specialty.Name, "update")
	}
	return expectRow(result, fmt.Sprintf("specialty %d not found", specialty.ID))
}

// List retrieves all specialties ordered by ID
func (a *SpecialtyAdapter) List(ctx context.Context) ([]*entities.Specialty, error) {
	query, args, err := dialect.From("specialties").Prepared(true).Select(specialtyColumns...).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	out := make([]*entities.Specialty, 0)
	if err := a.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list specialties", err)
	}
	return out, nil
}

// Delete deletes a specialty
func (a *SpecialtyAdapter) Delete(ctx context.Context, id int64) error {
	query, args, err := dialect.Delete("specialties").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return buildErr(err)
	}
	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete specialty", err)
	}
	return expectRow(result, fmt.Sprintf("specialty %d not found", id))
}
