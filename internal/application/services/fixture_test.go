package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/cache"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/events"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/memory"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

var ict = time.FixedZone("ICT", 7*60*60)

// 2026-03-10 09:15 local; the 08:00-09:00 slots have started
var fixedNow = time.Date(2026, 3, 10, 9, 15, 0, 0, ict)

const (
	today    = "2026-03-10"
	tomorrow = "2026-03-11"
	nextWeek = "2026-03-17"
)

type fixture struct {
	ctx context.Context
	now time.Time

	appointments *memory.AppointmentStore
	accounts     *memory.AccountStore
	specialties  *memory.SpecialtyStore
	sessions     *memory.SessionStore
	cache        *cache.MemoryAdapter
	bus          *events.MemoryEventBus

	clock        *services.Clock
	catalog      *services.Catalog
	directory    *services.DoctorDirectory
	availability *services.AvailabilityChecker
	reconciler   *services.ReconciliationService
	codes        *services.PatientCodeGenerator
	accountSvc   *services.AccountService
	sessionSvc   *services.SessionService
	specialtySvc *services.SpecialtyService
	apptSvc      *services.AppointmentService
	wizard       *services.BookingWizard
	wizardSvc    *services.WizardService
	dashboard    *services.DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), now: fixedNow}
	nowFn := func() time.Time { return f.now }

	f.appointments = memory.NewAppointmentStore()
	f.accounts = memory.NewAccountStore()
	f.specialties = memory.NewSpecialtyStore()
	f.sessions = memory.NewSessionStore(nowFn)
	f.cache = cache.NewMemoryAdapter(nowFn)
	f.bus = events.NewMemoryEventBus()
	t.Cleanup(func() { _ = f.bus.Close() })

	f.clock = services.NewClock(ict, nowFn)
	f.catalog = services.DefaultCatalog()
	for _, sp := range services.DefaultSpecialties() {
		require.NoError(t, f.specialties.Create(f.ctx, sp))
	}

	f.directory = services.NewDoctorDirectory(f.catalog, f.specialties, nil)
	f.availability = services.NewAvailabilityChecker(f.appointments, f.catalog, f.clock)
	f.reconciler = services.NewReconciliationService(f.appointments, f.clock, f.bus)
	f.codes = services.NewPatientCodeGenerator(f.accounts, f.clock)
	f.accountSvc = services.NewAccountService(f.accounts, f.appointments, f.sessions, f.codes, f.catalog, f.clock).
		WithBcryptCost(bcrypt.MinCost).
		WithEventBus(f.bus)
	f.sessionSvc = services.NewSessionService(f.accounts, f.sessions, f.clock, 24*time.Hour)
	f.specialtySvc = services.NewSpecialtyService(f.specialties, f.accounts, f.directory)
	f.apptSvc = services.NewAppointmentService(f.appointments, f.accounts, f.directory, f.availability, f.reconciler, f.clock, f.bus)
	f.wizard = services.NewBookingWizard(f.directory, f.availability, f.clock)
	f.wizardSvc = services.NewWizardService(f.wizard, f.apptSvc, f.availability, f.cache, f.clock, 30*time.Minute)
	f.dashboard = services.NewDashboardService(f.apptSvc, f.accountSvc, f.accounts, f.clock)
	return f
}

func (f *fixture) patient(t *testing.T, email string) *entities.Account {
	t.Helper()
	a, err := f.accountSvc.Register(f.ctx, services.RegisterRequest{
		Name:     "Patient " + email,
		Email:    email,
		Phone:    "0123456789",
		Password: "secret",
		Role:     entities.RolePatient,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) doctor(t *testing.T, email string, doctorID int64) *entities.Account {
	t.Helper()
	a, err := f.accountSvc.CreateUser(f.ctx, services.RegisterRequest{
		Name:     "Doctor " + email,
		Email:    email,
		Phone:    "0987654321",
		Password: "secret",
		Role:     entities.RoleDoctor,
		DoctorID: doctorID,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) admin(t *testing.T) *entities.Account {
	t.Helper()
	a, err := f.accountSvc.CreateUser(f.ctx, services.RegisterRequest{
		Name:     "Admin",
		Email:    "admin@example.com",
		Phone:    "0111222333",
		Password: "secret",
		Role:     entities.RoleAdmin,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) book(t *testing.T, patient *entities.Account, doctorID int64, date, slot string) *entities.Appointment {
	t.Helper()
	a, err := f.apptSvc.Book(f.ctx, services.BookingRequest{DoctorID: doctorID, Date: date, Time: slot}, patient)
	require.NoError(t, err)
	return a
}

// insert stores an appointment directly, bypassing the past-date check
func (f *fixture) insert(t *testing.T, patient *entities.Account, doctorID int64, date, slot string, status entities.AppointmentStatus) *entities.Appointment {
	t.Helper()
	a := &entities.Appointment{
		PatientID: patient.ID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      slot,
		Status:    status,
	}
	require.NoError(t, f.appointments.Create(f.ctx, a))
	return a
}
