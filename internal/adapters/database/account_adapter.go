package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

var accountColumns = []interface{}{
	"id", "name", "email", "password_hash", "phone", "role", "patient_code",
	"specialty", "hospital_ids", "doctor_id", "created_at", "updated_at",
}

// accountRow mirrors the users table
type accountRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Phone        string         `db:"phone"`
	Role         string         `db:"role"`
	PatientCode  sql.NullString `db:"patient_code"`
	Specialty    string         `db:"specialty"`
	HospitalIDs  pq.Int64Array  `db:"hospital_ids"`
	DoctorID     int64          `db:"doctor_id"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *accountRow) toEntity() *entities.Account {
	a := &entities.Account{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Phone:        r.Phone,
		Role:         entities.Role(r.Role),
		PatientCode:  r.PatientCode.String,
		Specialty:    r.Specialty,
		DoctorID:     r.DoctorID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.HospitalIDs) > 0 {
		a.HospitalIDs = []int64(r.HospitalIDs)
	}
	return a
}

func patientCodeValue(code string) interface{} {
	if code == "" {
		return nil
	}
	return code
}

// AccountAdapter implements the AccountRepository interface
type AccountAdapter struct {
	db *sqlx.DB
}

// NewAccountAdapter creates a new account adapter
func NewAccountAdapter(client *postgres.Client) repositories.AccountRepository {
	return &AccountAdapter{db: newDB(client)}
}

func accountWriteErr(err error, action string) error {
	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case constraintEmail:
			return repositories.NewDuplicateEmailError()
		case constraintPatientCode:
			return &apperrors.AppError{
				Type:    apperrors.ErrorTypeConflict,
				Message: "patient code already assigned",
				Err:     repositories.ErrDuplicatePatientCode,
			}
		}
		return apperrors.NewConflictError("user already exists")
	}
	return apperrors.NewInternalError("failed to "+action+" user", err)
}

// Create assigns the next ID and stores the account
func (a *AccountAdapter) Create(ctx context.Context, account *entities.Account) error {
	record := goqu.Record{
		"name":          account.Name,
		"email":         strings.TrimSpace(account.Email),
		"password_hash": account.PasswordHash,
		"phone":         account.Phone,
		"role":          string(account.Role),
		"patient_code":  patientCodeValue(account.PatientCode),
		"specialty":     account.Specialty,
		"hospital_ids":  pq.Int64Array(account.HospitalIDs),
		"doctor_id":     account.DoctorID,
		"created_at":    account.CreatedAt,
		"updated_at":    account.UpdatedAt,
	}

	query, args, err := dialect.Insert("users").Prepared(true).Rows(record).Returning("id").ToSQL()
	if err != nil {
		return buildErr(err)
	}

	if err := a.db.QueryRowxContext(ctx, query, args...).Scan(&account.ID); err != nil {
		return accountWriteErr(err, "create")
	}
	return nil
}

func (a *AccountAdapter) getOne(ctx context.Context, where goqu.Expression, notFound string) (*entities.Account, error) {
	query, args, err := dialect.From("users").Prepared(true).Select(accountColumns...).Where(where).ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	var row accountRow
	err = a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return row.toEntity(), nil
}

// GetByID retrieves an account by ID
func (a *AccountAdapter) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("user %d not found", id))
}

// GetByIDs retrieves the accounts that exist among ids
func (a *AccountAdapter) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entities.Account, error) {
	out := make(map[int64]*entities.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := dialect.From("users").Prepared(true).Select(accountColumns...).
		Where(goqu.C("id").In(ids)).ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	var rows []accountRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to get users", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].toEntity()
	}
	return out, nil
}

// GetByEmail retrieves an account by email, ignoring case
func (a *AccountAdapter) GetByEmail(ctx context.Context, email string) (*entities.Account, error) {
	where := goqu.L("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	return a.getOne(ctx, where, "user not found")
}

// Update updates profile fields. The stored patient code is kept.
func (a *AccountAdapter) Update(ctx context.Context, account *entities.Account) error {
	record := goqu.Record{
		"name":          account.Name,
		"email":         strings.TrimSpace(account.Email),
		"password_hash": account.PasswordHash,
		"phone":         account.Phone,
		"role":          string(account.Role),
		"specialty":     account.Specialty,
		"hospital_ids":  pq.Int64Array(account.HospitalIDs),
		"doctor_id":     account.DoctorID,
		"updated_at":    account.UpdatedAt,
	}

	query, args, err := dialect.Update("users").Prepared(true).Set(record).Where(goqu.Ex{"id": account.ID}).ToSQL()
	if err != nil {
		return buildErr(err)
	}

	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return accountWriteErr(err, "update")
	}
	return expectRow(result, fmt.Sprintf("user %d not found", account.ID))
}

// AssignPatientCode sets the code of a patient that has none
func (a *AccountAdapter) AssignPatientCode(ctx context.Context, id int64, code string) error {
	query, args, err := dialect.Update("users").Prepared(true).
		Set(goqu.Record{"patient_code": code}).
		Where(goqu.Ex{"id": id, "patient_code": nil}).
		ToSQL()
	if err != nil {
		return buildErr(err)
	}

	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return accountWriteErr(err, "update")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		existing, err := a.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return apperrors.NewConflictError(fmt.Sprintf("user %d already has patient code %s", id, existing.PatientCode))
	}
	return nil
}

// List retrieves accounts ordered by ID, optionally filtered by role
func (a *AccountAdapter) List(ctx context.Context, role entities.Role) ([]*entities.Account, error) {
	ds := dialect.From("users").Prepared(true).Select(accountColumns...).Order(goqu.C("id").Asc())
	if role != "" {
		ds = ds.Where(goqu.Ex{"role": string(role)})
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	var rows []accountRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list users", err)
	}
	out := make([]*entities.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

// PatientCodesWithPrefix returns stored codes starting with prefix
func (a *AccountAdapter) PatientCodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := dialect.From("users").Prepared(true).Select("patient_code").
		Where(goqu.C("patient_code").Like(prefix + "%")).
		Order(goqu.C("patient_code").Asc()).
		ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	var codes []string
	if err := a.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list patient codes", err)
	}
	return codes, nil
}

// Delete deletes an account
func (a *AccountAdapter) Delete(ctx context.Context, id int64) error {
	query, args, err := dialect.Delete("users").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return buildErr(err)
	}
	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete user", err)
	}
	return expectRow(result, fmt.Sprintf("user %d not found", id))
}

func expectRow(result sql.Result, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}
