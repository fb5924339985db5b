// Package database implements the repositories on PostgreSQL.
//
// Statements are built with goqu's postgres dialect and rows are scanned with
// sqlx through the entities' db tags. Uniqueness (emails, patient codes,
// specialty names, live doctor slots) is enforced by the indexes in schema.sql.
package database

import (
	"context"
	_ "embed"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL creating every table and index used by the adapters
func Schema() string {
	return schema
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, client *postgres.Client) error {
	return client.Exec(ctx, schema)
}

const (
	uniqueViolation = "23505"

	constraintEmail       = "users_email_key"
	constraintPatientCode = "users_patient_code_key"
	constraintSpecialty   = "specialties_name_key"
	constraintLiveSlot    = "appointments_live_slot_key"
)

var dialect = goqu.Dialect("postgres")

// newDB wraps the client's handle for sqlx scanning
func newDB(client *postgres.Client) *sqlx.DB {
	return sqlx.NewDb(client.DB(), "postgres")
}

// uniqueConstraint returns the violated index name when err is a unique violation
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func buildErr(err error) error {
	return apperrors.NewInternalError("failed to build query", err)
}
