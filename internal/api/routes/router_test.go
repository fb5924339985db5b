package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/cache"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/events"
	"github.com/zatekoja/hospital-booking/backend/internal/adapters/memory"
	"github.com/zatekoja/hospital-booking/backend/internal/api/handlers"
	"github.com/zatekoja/hospital-booking/backend/internal/api/routes"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

var ict = time.FixedZone("ICT", 7*60*60)

const tomorrow = "2026-03-11"

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	accounts *services.AccountService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 3, 10, 9, 15, 0, 0, ict) }

	appointments := memory.NewAppointmentStore()
	accounts := memory.NewAccountStore()
	specialties := memory.NewSpecialtyStore()
	sessions := memory.NewSessionStore(now)
	drafts := cache.NewMemoryAdapter(now)
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	clock := services.NewClock(ict, now)
	catalog := services.DefaultCatalog()
	for _, sp := range services.DefaultSpecialties() {
		require.NoError(t, specialties.Create(ctx, sp))
	}
	directory := services.NewDoctorDirectory(catalog, specialties, nil)
	availability := services.NewAvailabilityChecker(appointments, catalog, clock)
	reconciler := services.NewReconciliationService(appointments, clock, bus)
	codes := services.NewPatientCodeGenerator(accounts, clock)
	accountSvc := services.NewAccountService(accounts, appointments, sessions, codes, catalog, clock).
		WithBcryptCost(bcrypt.MinCost).
		WithEventBus(bus)
	sessionSvc := services.NewSessionService(accounts, sessions, clock, 24*time.Hour)
	specialtySvc := services.NewSpecialtyService(specialties, accounts, directory)
	apptSvc := services.NewAppointmentService(appointments, accounts, directory, availability, reconciler, clock, bus)
	wizardSvc := services.NewWizardService(services.NewBookingWizard(directory, availability, clock), apptSvc, availability, drafts, clock, 30*time.Minute)
	dashboard := services.NewDashboardService(apptSvc, accountSvc, accounts, clock)

	router := routes.NewRouter(routes.Handlers{
		Auth:        handlers.NewAuthHandler(accountSvc, sessionSvc),
		Catalog:     handlers.NewCatalogHandler(catalog, directory, specialtySvc, availability),
		Appointment: handlers.NewAppointmentHandler(apptSvc),
		Booking:     handlers.NewBookingHandler(wizardSvc),
		Dashboard:   handlers.NewDashboardHandler(dashboard),
		Admin:       handlers.NewAdminHandler(accountSvc, specialtySvc),
		SSE:         handlers.NewSSEHandler(bus, nil),
	}, sessionSvc, accounts, []string{"http://localhost:3000"}, nil)

	return &testAPI{t: t, handler: router.SetupRoutes(), accounts: accountSvc}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func (a *testAPI) register(email string, role entities.Role, doctorID int64) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name":     "User " + email,
		"email":    email,
		"phone":    "0123456789",
		"password": "secret",
		"role":     role,
		"doctorId": doctorID,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *testAPI) login(email string, role entities.Role) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"email":    email,
		"password": "secret",
		"role":     role,
	})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(a.t, w, &resp)
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func (a *testAPI) patientToken(email string) string {
	a.register(email, entities.RolePatient, 0)
	return a.login(email, entities.RolePatient)
}

func (a *testAPI) adminToken() string {
	_, err := a.accounts.CreateUser(context.Background(), services.RegisterRequest{
		Name:     "Admin",
		Email:    "admin@example.com",
		Phone:    "0111222333",
		Password: "secret",
		Role:     entities.RoleAdmin,
	})
	require.NoError(a.t, err)
	return a.login("admin@example.com", entities.RoleAdmin)
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_Auth(t *testing.T) {
	api := newTestAPI(t)
	token := api.patientToken("a@example.com")

	t.Run("me returns the session's account", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/auth/me", token, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var me entities.Account
		decode(t, w, &me)
		assert.Equal(t, "a@example.com", me.Email)
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{
			"name": "Again", "email": "A@example.com", "phone": "1", "password": "secret", "role": "patient",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("public registration cannot link a catalog doctor", func(t *testing.T) {
		victim := api.patientToken("victim@example.com")
		w := api.do(http.MethodPost, "/api/appointments", victim, map[string]interface{}{"doctorId": 1, "date": "2026-03-11", "time": "10:00"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = api.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{
			"name": "Intruder", "email": "intruder@example.com", "phone": "0123456789",
			"password": "secret", "role": "doctor", "doctorId": 1,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = api.do(http.MethodPost, "/api/auth/login", "", map[string]interface{}{
			"email": "intruder@example.com", "password": "secret", "role": "doctor",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong role is rejected", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/auth/login", "", map[string]interface{}{
			"email": "a@example.com", "password": "secret", "role": "doctor",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body is a validation error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		api.handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body errorBody
		decode(t, w, &body)
		assert.Equal(t, "VALIDATION", body.Type)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = api.do(http.MethodGet, "/api/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRouter_RequiresSession(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/appointments", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "UNAUTHORIZED", body.Type)
}

func TestRouter_Catalog(t *testing.T) {
	api := newTestAPI(t)

	t.Run("filters doctors by specialty and hospital", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/doctors?specialty=Tim%20m%E1%BA%A1ch&hospitalId=2", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var doctors []entities.Doctor
		decode(t, w, &doctors)
		require.Len(t, doctors, 1)
		assert.Equal(t, int64(7), doctors[0].ID)
	})

	t.Run("slots of an unknown doctor are not found", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/doctors/99/slots?date="+tomorrow, "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("calendar covers the month", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/doctors/1/calendar?month=2026-04", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Days []entities.CalendarDay `json:"days"`
		}
		decode(t, w, &resp)
		assert.Len(t, resp.Days, 30)
	})

	t.Run("invalid hospital id", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/doctors?hospitalId=abc", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouter_BookingConflict(t *testing.T) {
	api := newTestAPI(t)
	first := api.patientToken("a@example.com")
	second := api.patientToken("b@example.com")
	req := map[string]interface{}{"doctorId": 1, "date": tomorrow, "time": "09:00"}

	w := api.do(http.MethodPost, "/api/appointments", first, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booked entities.Appointment
	decode(t, w, &booked)

	w = api.do(http.MethodPost, "/api/appointments", second, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	t.Run("other patients cannot read the appointment", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/appointments/"+itoa(booked.ID), second, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("slot grid marks the slot booked", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/doctors/1/slots?date="+tomorrow, "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var slots []entities.SlotView
		decode(t, w, &slots)
		require.NotEmpty(t, slots)
		assert.True(t, slots[2].Booked)
		assert.False(t, slots[3].Booked)
	})

	t.Run("cancel frees the slot", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/appointments/"+itoa(booked.ID)+"/cancel", first, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = api.do(http.MethodPost, "/api/appointments", second, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestRouter_Wizard(t *testing.T) {
	api := newTestAPI(t)
	token := api.patientToken("a@example.com")

	w := api.do(http.MethodPost, "/api/bookings", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view services.DraftView
	decode(t, w, &view)
	require.Equal(t, entities.StepSpecialty, view.Draft.Step)
	base := "/api/bookings/" + view.Draft.ID

	w = api.do(http.MethodPost, base+"/next", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "specialty is required first")

	w = api.do(http.MethodPatch, base, token, map[string]interface{}{
		"specialty": "Tim mạch", "doctorId": 1, "date": tomorrow, "time": "10:00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	assert.NotEmpty(t, view.Slots)

	w = api.do(http.MethodPost, base+"/step", token, map[string]interface{}{"step": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodPost, base+"/confirm", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var appt entities.Appointment
	decode(t, w, &appt)
	assert.Equal(t, "10:00", appt.Time)

	w = api.do(http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "confirmed drafts are dropped")
}

func TestRouter_Admin(t *testing.T) {
	api := newTestAPI(t)
	patient := api.patientToken("a@example.com")
	admin := api.adminToken()

	t.Run("patients are forbidden", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/admin/users", patient, nil)

		require.Equal(t, http.StatusForbidden, w.Code)
		var body errorBody
		decode(t, w, &body)
		assert.Equal(t, "FORBIDDEN", body.Type)
	})

	t.Run("lists users by role", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/admin/users?role=patient", admin, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var users []entities.Account
		decode(t, w, &users)
		require.Len(t, users, 1)
		assert.Equal(t, "a@example.com", users[0].Email)
	})

	t.Run("specialty lifecycle", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/admin/specialties", admin, map[string]string{"name": "Thần kinh", "icon": "🧠"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created entities.Specialty
		decode(t, w, &created)

		w = api.do(http.MethodPost, "/api/admin/specialties", admin, map[string]string{"name": "thần kinh"})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = api.do(http.MethodDelete, "/api/admin/specialties/"+itoa(created.ID), admin, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("admin dashboard", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/dashboard/admin", admin, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var dash services.AdminDashboard
		decode(t, w, &dash)
		assert.Equal(t, 1, dash.Stats.Patients)
	})
}

func TestRouter_CORS(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/hospitals", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	api.handler.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
