package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/database"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewFromDB(db), mock
}

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint}
}

var appointmentRowColumns = []string{"id", "patient_id", "doctor_id", "date", "time", "status"}

func TestSchema(t *testing.T) {
	schema := database.Schema()

	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS appointments")
	assert.Contains(t, schema, "appointments_live_slot_key")
	assert.Contains(t, schema, "WHERE status <> 'cancelled'")
	assert.Contains(t, schema, "ADD COLUMN IF NOT EXISTS catalog_key")
	assert.Contains(t, schema, "UPDATE specialties SET catalog_key = name")
}

func TestAppointmentAdapter_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the generated id", func(t *testing.T) {
		// Arrange
		client, mock := setupMockDB(t)
		adapter := database.NewAppointmentAdapter(client)
		mock.ExpectQuery(`INSERT INTO "appointments" .* RETURNING "id"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		appt := &entities.Appointment{PatientID: 1, DoctorID: 2, Date: "2026-03-11", Time: "09:00", Status: entities.AppointmentStatusUpcoming}

		// Act
		err := adapter.Create(ctx, appt)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(42), appt.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps the live slot index to a slot conflict", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAppointmentAdapter(client)
		mock.ExpectQuery(`INSERT INTO "appointments"`).
			WillReturnError(uniqueViolation("appointments_live_slot_key"))

		err := adapter.Create(ctx, &entities.Appointment{PatientID: 1, DoctorID: 2, Date: "2026-03-11", Time: "09:00"})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.Contains(t, err.Error(), repositories.SlotTakenMessage)
	})
}

func TestAppointmentAdapter_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("scans the row", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAppointmentAdapter(client)
		mock.ExpectQuery(`SELECT .* FROM "appointments" WHERE \("id" = \$1\)`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(appointmentRowColumns).AddRow(7, 1, 2, "2026-03-11", "09:00", "upcoming"))

		appt, err := adapter.GetByID(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, int64(7), appt.ID)
		assert.Equal(t, entities.AppointmentStatusUpcoming, appt.Status)
		assert.Nil(t, appt.Rating)
	})

	t.Run("returns not found for a missing row", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAppointmentAdapter(client)
		mock.ExpectQuery(`SELECT .* FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows(appointmentRowColumns))

		_, err := adapter.GetByID(ctx, 99)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestAppointmentAdapter_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	upcoming := []entities.AppointmentStatus{entities.AppointmentStatusUpcoming}

	t.Run("updates a row in an allowed status", func(t *testing.T) {
		// Arrange
		client, mock := setupMockDB(t)
		adapter := database.NewAppointmentAdapter(client)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM "appointments" .* FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(appointmentRowColumns).AddRow(7, 1, 2, "2026-03-11", "09:00", "upcoming"))
		mock.ExpectExec(`UPDATE "appointments" SET .* WHERE \("id" = \$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		cancelledAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

		// Act
		appt, err := adapter.TransitionStatus(ctx, 7, upcoming, entities.AppointmentStatusCancelled, func(a *entities.Appointment) {
			a.CancelledAt = &cancelledAt
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entities.AppointmentStatusCancelled, appt.Status)
		assert.Equal(t, &cancelledAt, appt.CancelledAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a row in another status", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAppointmentAdapter(client)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(appointmentRowColumns).AddRow(7, 1, 2, "2026-03-11", "09:00", "cancelled"))
		mock.ExpectRollback()

		_, err := adapter.TransitionStatus(ctx, 7, upcoming, entities.AppointmentStatusCancelled, nil)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moving onto a live slot is a slot conflict", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAppointmentAdapter(client)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(appointmentRowColumns).AddRow(7, 1, 2, "2026-03-11", "09:00", "upcoming"))
		mock.ExpectExec(`UPDATE "appointments"`).
			WillReturnError(uniqueViolation("appointments_live_slot_key"))
		mock.ExpectRollback()

		_, err := adapter.TransitionStatus(ctx, 7, upcoming, entities.AppointmentStatusUpcoming, func(a *entities.Appointment) {
			a.Time = "09:30"
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), repositories.SlotTakenMessage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAppointmentAdapter_List(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewAppointmentAdapter(client)
	mock.ExpectQuery(`SELECT .* FROM "appointments" WHERE .*"doctor_id" = .* ORDER BY "id" ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns).
			AddRow(1, 1, 2, "2026-03-11", "09:00", "upcoming").
			AddRow(3, 4, 2, "2026-03-12", "10:00", "ongoing"))

	list, err := adapter.List(context.Background(), repositories.AppointmentFilter{
		DoctorID: 2,
		Statuses: []entities.AppointmentStatus{entities.AppointmentStatusUpcoming, entities.AppointmentStatusOngoing},
		DateFrom: "2026-03-10",
		Limit:    10,
	})

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entities.AppointmentStatusOngoing, list[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_DeleteByPatient(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewAppointmentAdapter(client)
	mock.ExpectExec(`DELETE FROM "appointments" WHERE \("patient_id" = \$1\)`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := adapter.DeleteByPatient(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAccountAdapter(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "name", "email", "password_hash", "role", "patient_code", "hospital_ids", "doctor_id"}

	t.Run("looks up email ignoring case", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAccountAdapter(client)
		mock.ExpectQuery(`SELECT .* FROM "users" WHERE \(?LOWER\(email\) = \$1`).
			WithArgs("doctor@example.com").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(2, "Dr. A", "doctor@example.com", "hash", "doctor", nil, "{1,2}", 1))

		account, err := adapter.GetByEmail(ctx, " Doctor@Example.com ")

		require.NoError(t, err)
		assert.Equal(t, entities.RoleDoctor, account.Role)
		assert.Equal(t, []int64{1, 2}, account.HospitalIDs)
		assert.Empty(t, account.PatientCode)
		assert.Equal(t, "hash", account.PasswordHash)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAccountAdapter(client)
		mock.ExpectQuery(`INSERT INTO "users"`).WillReturnError(uniqueViolation("users_email_key"))

		err := adapter.Create(ctx, &entities.Account{Name: "A", Email: "a@example.com", Role: entities.RolePatient})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NotErrorIs(t, err, repositories.ErrDuplicatePatientCode)
	})

	t.Run("duplicate patient code is retryable", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAccountAdapter(client)
		mock.ExpectQuery(`INSERT INTO "users"`).WillReturnError(uniqueViolation("users_patient_code_key"))

		err := adapter.Create(ctx, &entities.Account{Name: "A", Email: "a@example.com", Role: entities.RolePatient, PatientCode: "BN-2603100001"})

		assert.ErrorIs(t, err, repositories.ErrDuplicatePatientCode)
	})

	t.Run("assigning over an existing code is a conflict", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAccountAdapter(client)
		mock.ExpectExec(`UPDATE "users" SET "patient_code"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM "users"`).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(3, "P", "p@example.com", "", "patient", "BN-2603100001", "{}", 0))

		err := adapter.AssignPatientCode(ctx, 3, "BN-2603100002")

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lists codes by prefix", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewAccountAdapter(client)
		mock.ExpectQuery(`SELECT "patient_code" FROM "users" WHERE \("patient_code" LIKE \$1\)`).
			WithArgs("BN-260310%").
			WillReturnRows(sqlmock.NewRows([]string{"patient_code"}).AddRow("BN-2603100001").AddRow("BN-2603100002"))

		codes, err := adapter.PatientCodesWithPrefix(ctx, "BN-260310")

		require.NoError(t, err)
		assert.Equal(t, []string{"BN-2603100001", "BN-2603100002"}, codes)
	})
}

func TestSpecialtyAdapter(t *testing.T) {
	ctx := context.Background()

	t.Run("create takes the next id", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewSpecialtyAdapter(client)
		mock.ExpectQuery(`INSERT INTO "specialties" .*COALESCE\(MAX\(id\), 0\) \+ 1.* RETURNING "id"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

		sp := &entities.Specialty{Name: "Neurology", Icon: "fas fa-brain"}
		err := adapter.Create(ctx, sp)

		require.NoError(t, err)
		assert.Equal(t, int64(5), sp.ID)
	})

	t.Run("duplicate names conflict", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewSpecialtyAdapter(client)
		mock.ExpectExec(`UPDATE "specialties"`).WillReturnError(uniqueViolation("specialties_name_key"))

		err := adapter.Update(ctx, &entities.Specialty{ID: 2, Name: "Neurology", Icon: "fas fa-brain"})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("list carries the catalog key", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewSpecialtyAdapter(client)
		mock.ExpectQuery(`SELECT "id", "name", "icon", "description", "catalog_key" FROM "specialties"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon", "description", "catalog_key"}).
				AddRow(1, "Tim mạch học", "fas fa-heartbeat", "", "Tim mạch").
				AddRow(7, "Thần kinh", "fas fa-brain", "", ""))

		list, err := adapter.List(ctx)

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Tim mạch", list[0].CatalogKey)
		assert.Empty(t, list[1].CatalogKey)
	})

	t.Run("update leaves the catalog key alone", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewSpecialtyAdapter(client)
		mock.ExpectExec(`UPDATE "specialties" SET "description"=\$1,"icon"=\$2,"name"=\$3 WHERE`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := adapter.Update(ctx, &entities.Specialty{ID: 1, Name: "Tim mạch học", Icon: "fas fa-heartbeat", CatalogKey: "other"})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete of a missing row is not found", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewSpecialtyAdapter(client)
		mock.ExpectExec(`DELETE FROM "specialties"`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.Delete(ctx, 9)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestSessionAdapter_Get(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	columns := []string{"token", "account_id", "role", "created_at", "expires_at"}

	t.Run("returns a live session", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewSessionAdapter(client, func() time.Time { return now })
		mock.ExpectQuery(`SELECT .* FROM "sessions"`).
			WillReturnRows(sqlmock.NewRows(columns).AddRow("tok", 4, "admin", now.Add(-time.Hour), now.Add(time.Hour)))

		session, err := adapter.Get(context.Background(), "tok")

		require.NoError(t, err)
		assert.Equal(t, int64(4), session.AccountID)
		assert.Equal(t, entities.RoleAdmin, session.Role)
	})

	t.Run("evicts an expired session", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewSessionAdapter(client, func() time.Time { return now })
		mock.ExpectQuery(`SELECT .* FROM "sessions"`).
			WillReturnRows(sqlmock.NewRows(columns).AddRow("tok", 4, "admin", now.Add(-2*time.Hour), now.Add(-time.Hour)))
		mock.ExpectExec(`DELETE FROM "sessions"`).WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := adapter.Get(context.Background(), "tok")

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
