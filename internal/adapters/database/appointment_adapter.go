package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

var appointmentColumns = []interface{}{
	"id", "patient_id", "patient_name", "patient_code", "doctor_id", "doctor_name",
	"specialty", "hospital_id", "hospital_name", "date", "time", "time_range",
	"status", "notes", "rating", "review", "overdue_auto_completed", "completion_reason",
	"rescheduled_at", "original_date", "original_time", "reschedule_reason",
	"rebooked_from", "cancelled_at", "created_at", "updated_at",
}

func appointmentRecord(a *entities.Appointment) goqu.Record {
	return goqu.Record{
		"patient_id":             a.PatientID,
		"patient_name":           a.PatientName,
		"patient_code":           a.PatientCode,
		"doctor_id":              a.DoctorID,
		"doctor_name":            a.DoctorName,
		"specialty":              a.Specialty,
		"hospital_id":            a.HospitalID,
		"hospital_name":          a.HospitalName,
		"date":                   a.Date,
		"time":                   a.Time,
		"time_range":             a.TimeRange,
		"status":                 string(a.Status),
		"notes":                  a.Notes,
		"rating":                 a.Rating,
		"review":                 a.Review,
		"overdue_auto_completed": a.OverdueAutoCompleted,
		"completion_reason":      string(a.CompletionReason),
		"rescheduled_at":         a.RescheduledAt,
		"original_date":          a.OriginalDate,
		"original_time":          a.OriginalTime,
		"reschedule_reason":      a.RescheduleReason,
		"rebooked_from":          a.RebookedFrom,
		"cancelled_at":           a.CancelledAt,
		"created_at":             a.CreatedAt,
		"updated_at":             a.UpdatedAt,
	}
}

// AppointmentAdapter implements the AppointmentRepository interface.
// The live-slot partial unique index rejects double bookings.
type AppointmentAdapter struct {
	db *sqlx.DB
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{db: newDB(client)}
}

func appointmentWriteErr(err error, action string) error {
	if constraint, ok := uniqueConstraint(err); ok && constraint == constraintLiveSlot {
		return repositories.NewSlotConflictError()
	}
	return apperrors.NewInternalError("failed to "+action+" appointment", err)
}

// Create assigns the next ID and stores the appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	query, args, err := dialect.Insert("appointments").Prepared(true).
		Rows(appointmentRecord(appointment)).
		Returning("id").
		ToSQL()
	if err != nil {
		return buildErr(err)
	}

	if err := a.db.QueryRowxContext(ctx, query, args...).Scan(&appointment.ID); err != nil {
		return appointmentWriteErr(err, "create")
	}
	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id int64) (*entities.Appointment, error) {
	return a.get(ctx, a.db, id, false)
}

func (a *AppointmentAdapter) get(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (*entities.Appointment, error) {
	ds := dialect.From("appointments").Prepared(true).Select(appointmentColumns...).Where(goqu.Ex{"id": id})
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	appointment := &entities.Appointment{}
	err = sqlx.GetContext(ctx, q, appointment, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// Update replaces the stored appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	query, args, err := dialect.Update("appointments").Prepared(true).
		Set(appointmentRecord(appointment)).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return buildErr(err)
	}

	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return appointmentWriteErr(err, "update")
	}
	return expectRow(result, fmt.Sprintf("appointment %d not found", appointment.ID))
}

// TransitionStatus locks the row, checks its status against from and saves
// the mutated record in one transaction
func (a *AppointmentAdapter) TransitionStatus(ctx context.Context, id int64, from []entities.AppointmentStatus, to entities.AppointmentStatus, mutate func(*entities.Appointment)) (*entities.Appointment, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Warn().Err(err).Int64("appointment_id", id).Msg("Failed to roll back appointment transition")
		}
	}()

	existing, err := a.get(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if !repositories.StatusIn(existing.Status, from) {
		return nil, repositories.NewStatusConflictError(id, existing.Status)
	}

	next := existing.Clone()
	next.Status = to
	if mutate != nil {
		mutate(next)
	}
	next.ID = id

	query, args, err := dialect.Update("appointments").Prepared(true).
		Set(appointmentRecord(next)).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, appointmentWriteErr(err, "update")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit appointment transition", err)
	}
	return next, nil
}

// List retrieves appointments matching the filter ordered by ID
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := dialect.From("appointments").Prepared(true).Select(appointmentColumns...)

	ex := goqu.Ex{}
	if filter.PatientID != 0 {
		ex["patient_id"] = filter.PatientID
	}
	if filter.DoctorID != 0 {
		ex["doctor_id"] = filter.DoctorID
	}
	if filter.HospitalID != 0 {
		ex["hospital_id"] = filter.HospitalID
	}
	if filter.Date != "" {
		ex["date"] = filter.Date
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		ex["status"] = statuses
	}
	if len(ex) > 0 {
		ds = ds.Where(ex)
	}
	if filter.DateFrom != "" {
		ds = ds.Where(goqu.C("date").Gte(filter.DateFrom))
	}
	if filter.DateTo != "" {
		ds = ds.Where(goqu.C("date").Lte(filter.DateTo))
	}

	ds = ds.Order(goqu.C("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, buildErr(err)
	}

	out := make([]*entities.Appointment, 0)
	if err := a.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	return out, nil
}

// DeleteByPatient removes every appointment of a patient
func (a *AppointmentAdapter) DeleteByPatient(ctx context.Context, patientID int64) (int, error) {
	return a.deleteWhere(ctx, goqu.Ex{"patient_id": patientID})
}

// DeleteByDoctor removes every appointment of a catalog doctor
func (a *AppointmentAdapter) DeleteByDoctor(ctx context.Context, doctorID int64) (int, error) {
	return a.deleteWhere(ctx, goqu.Ex{"doctor_id": doctorID})
}

func (a *AppointmentAdapter) deleteWhere(ctx context.Context, where goqu.Ex) (int, error) {
	query, args, err := dialect.Delete("appointments").Prepared(true).Where(where).ToSQL()
	if err != nil {
		return 0, buildErr(err)
	}
	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to delete appointments", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return int(n), nil
}
