package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/hospital-booking/backend/internal/application/loaders"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

func TestDashboardService_Patient(t *testing.T) {
	// Arrange
	f := newFixture(t)
	patient := f.patient(t, "a@example.com")
	doctor := f.doctor(t, "d@example.com", 1)

	later := f.book(t, patient, 1, nextWeek, "09:00")
	soon := f.book(t, patient, 1, tomorrow, "14:00")
	soonest := f.book(t, patient, 1, tomorrow, "10:00")
	ongoing := f.book(t, patient, 1, nextWeek, "16:00")
	_, err := f.apptSvc.UpdateStatus(f.ctx, ongoing.ID, services.StatusActionStart, doctor)
	require.NoError(t, err)
	overdue := f.insert(t, patient, 2, "2026-03-01", "09:00", entities.AppointmentStatusUpcoming)
	cancelled := f.book(t, patient, 2, tomorrow, "09:00")
	_, err = f.apptSvc.Cancel(f.ctx, cancelled.ID, patient)
	require.NoError(t, err)

	// Act
	dash, err := f.dashboard.Patient(f.ctx, patient, services.PatientDashboardQuery{})

	// Assert
	require.NoError(t, err)
	require.Equal(t, 4, dash.Upcoming.Total)
	assert.Equal(t, 2, dash.Upcoming.TotalPages)
	require.Len(t, dash.Upcoming.Items, services.DefaultPerPage)
	assert.Equal(t, ongoing.ID, dash.Upcoming.Items[0].ID)
	assert.Equal(t, soonest.ID, dash.Upcoming.Items[1].ID)
	assert.Equal(t, soon.ID, dash.Upcoming.Items[2].ID)

	second, err := f.dashboard.Patient(f.ctx, patient, services.PatientDashboardQuery{Upcoming: services.PageRequest{Page: 2}})
	require.NoError(t, err)
	require.Len(t, second.Upcoming.Items, 1)
	assert.Equal(t, later.ID, second.Upcoming.Items[0].ID)

	require.Equal(t, 1, dash.History.Total)
	assert.Equal(t, overdue.ID, dash.History.Items[0].ID)
	assert.True(t, dash.History.Items[0].OverdueAutoCompleted, "dashboard load runs the sweep")
	assert.Equal(t, 1, dash.Cancelled.Total)
}

func TestDashboardService_Doctor(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, "a@example.com")
	other := f.patient(t, "b@example.com")
	doctor := f.doctor(t, "d@example.com", 1)

	f.book(t, patient, 1, today, "16:00")
	f.book(t, other, 1, tomorrow, "09:00")
	f.book(t, patient, 1, "2026-03-16", "09:00")
	f.book(t, patient, 1, "2026-03-20", "09:00")
	f.insert(t, other, 1, "2026-03-02", "09:00", entities.AppointmentStatusCompleted)
	f.book(t, patient, 2, tomorrow, "09:00")

	t.Run("counts over all the doctor's appointments", func(t *testing.T) {
		dash, err := f.dashboard.Doctor(f.ctx, doctor, services.DoctorDashboardQuery{})

		require.NoError(t, err)
		assert.Equal(t, 1, dash.Stats.Today)
		assert.Equal(t, 3, dash.Stats.Week)
		assert.Equal(t, 1, dash.Stats.Completed)
		assert.Equal(t, 2, dash.Stats.Patients)
		assert.Len(t, dash.Appointments, 5)
	})

	t.Run("filters by day keyword", func(t *testing.T) {
		dash, err := f.dashboard.Doctor(f.ctx, doctor, services.DoctorDashboardQuery{Date: "tomorrow"})

		require.NoError(t, err)
		assert.Equal(t, tomorrow, dash.Date)
		require.Len(t, dash.Appointments, 1)
		assert.Equal(t, other.ID, dash.Appointments[0].PatientID)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := f.dashboard.Doctor(f.ctx, doctor, services.DoctorDashboardQuery{Date: "next week"})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("patients are forbidden", func(t *testing.T) {
		_, err := f.dashboard.Doctor(f.ctx, patient, services.DoctorDashboardQuery{})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})
}

func TestDashboardService_Admin(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	patient := f.patient(t, "a@example.com")
	f.book(t, patient, 1, tomorrow, "09:00")
	f.book(t, patient, 3, tomorrow, "09:00")

	ctx := loaders.WithLoaders(f.ctx, loaders.NewLoaders(f.accounts))
	dash, err := f.dashboard.Admin(ctx, admin, 0)

	require.NoError(t, err)
	require.Len(t, dash.Appointments, 2)
	assert.Equal(t, "a@example.com", dash.Appointments[0].PatientEmail)
	assert.Equal(t, "0123456789", dash.Appointments[0].PatientPhone)
	assert.Equal(t, 1, dash.Stats.Patients)
	assert.Equal(t, 2, dash.Stats.Appointments)

	filtered, err := f.dashboard.Admin(f.ctx, admin, 2)
	require.NoError(t, err)
	require.Len(t, filtered.Appointments, 1)
	assert.Equal(t, int64(3), filtered.Appointments[0].DoctorID)
}
