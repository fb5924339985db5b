package routes

import (
	"net/http"

	"github.com/zatekoja/hospital-booking/backend/internal/api/handlers"
	"github.com/zatekoja/hospital-booking/backend/internal/api/middleware"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/observability"
)

// Handlers groups the route handlers
type Handlers struct {
	Auth        *handlers.AuthHandler
	Catalog     *handlers.CatalogHandler
	Appointment *handlers.AppointmentHandler
	Booking     *handlers.BookingHandler
	Dashboard   *handlers.DashboardHandler
	Admin       *handlers.AdminHandler
	SSE         *handlers.SSEHandler
}

// Router holds all route handlers
type Router struct {
	mux            *http.ServeMux
	handlers       Handlers
	sessions       middleware.SessionResolver
	accounts       repositories.AccountRepository
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. metrics may be nil.
func NewRouter(
	h Handlers,
	sessions middleware.SessionResolver,
	accounts repositories.AccountRepository,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		handlers:       h,
		sessions:       sessions,
		accounts:       accounts,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

type chain []func(http.Handler) http.Handler

func (c chain) then(fn http.HandlerFunc) http.Handler {
	var h http.Handler = fn
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}

// SetupRoutes registers every endpoint and wraps the mux in the middleware stack
func (r *Router) SetupRoutes() http.Handler {
	h := r.handlers
	authed := chain{middleware.Authenticate(r.sessions, handlers.WriteError)}
	admin := append(chain{}, authed...)
	admin = append(admin, middleware.RequireRole(handlers.WriteError, entities.RoleAdmin))
	withLoaders := append(chain{}, authed...)
	withLoaders = append(withLoaders, middleware.Dataloaders(r.accounts))

	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Auth endpoints
	r.mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	r.mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	r.mux.Handle("POST /api/auth/logout", authed.then(h.Auth.Logout))
	r.mux.Handle("GET /api/auth/me", authed.then(h.Auth.Me))

	// Catalog endpoints
	r.mux.HandleFunc("GET /api/hospitals", h.Catalog.ListHospitals)
	r.mux.HandleFunc("GET /api/specialties", h.Catalog.ListSpecialties)
	r.mux.HandleFunc("GET /api/doctors", h.Catalog.ListDoctors)
	r.mux.HandleFunc("GET /api/doctors/search", h.Catalog.SearchDoctors)
	r.mux.HandleFunc("GET /api/doctors/{id}/slots", h.Catalog.GetDoctorSlots)
	r.mux.HandleFunc("GET /api/doctors/{id}/calendar", h.Catalog.GetDoctorCalendar)

	// Appointment endpoints
	r.mux.Handle("GET /api/appointments", authed.then(h.Appointment.ListAppointments))
	r.mux.Handle("POST /api/appointments", authed.then(h.Appointment.BookAppointment))
	r.mux.Handle("GET /api/appointments/{id}", authed.then(h.Appointment.GetAppointment))
	r.mux.Handle("POST /api/appointments/{id}/reschedule", authed.then(h.Appointment.RescheduleAppointment))
	r.mux.Handle("POST /api/appointments/{id}/rebook", authed.then(h.Appointment.RebookAppointment))
	r.mux.Handle("POST /api/appointments/{id}/cancel", authed.then(h.Appointment.CancelAppointment))
	r.mux.Handle("POST /api/appointments/{id}/status", authed.then(h.Appointment.UpdateStatus))
	r.mux.Handle("POST /api/appointments/{id}/review", authed.then(h.Appointment.AddReview))

	// Booking wizard endpoints
	r.mux.Handle("POST /api/bookings", authed.then(h.Booking.StartBooking))
	r.mux.Handle("GET /api/bookings/{id}", authed.then(h.Booking.GetBooking))
	r.mux.Handle("PATCH /api/bookings/{id}", authed.then(h.Booking.UpdateBooking))
	r.mux.Handle("DELETE /api/bookings/{id}", authed.then(h.Booking.DiscardBooking))
	r.mux.Handle("POST /api/bookings/{id}/next", authed.then(h.Booking.NextStep))
	r.mux.Handle("POST /api/bookings/{id}/back", authed.then(h.Booking.PreviousStep))
	r.mux.Handle("POST /api/bookings/{id}/step", authed.then(h.Booking.GoToStep))
	r.mux.Handle("POST /api/bookings/{id}/confirm", authed.then(h.Booking.ConfirmBooking))

	// Dashboard endpoints
	r.mux.Handle("GET /api/dashboard/patient", authed.then(h.Dashboard.PatientDashboard))
	r.mux.Handle("GET /api/dashboard/doctor", authed.then(h.Dashboard.DoctorDashboard))
	r.mux.Handle("GET /api/dashboard/admin", withLoaders.then(h.Dashboard.AdminDashboard))

	// Real-time updates
	r.mux.Handle("GET /api/stream/appointments", authed.then(h.SSE.StreamAppointments))

	// Admin endpoints
	r.mux.Handle("GET /api/admin/users", admin.then(h.Admin.ListUsers))
	r.mux.Handle("POST /api/admin/users", admin.then(h.Admin.CreateUser))
	r.mux.Handle("DELETE /api/admin/users/{id}", admin.then(h.Admin.DeleteUser))
	r.mux.Handle("POST /api/admin/specialties", admin.then(h.Admin.CreateSpecialty))
	r.mux.Handle("PUT /api/admin/specialties/{id}", admin.then(h.Admin.UpdateSpecialty))
	r.mux.Handle("DELETE /api/admin/specialties/{id}", admin.then(h.Admin.DeleteSpecialty))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
