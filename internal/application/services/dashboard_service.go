package services

import (
	"context"
	"sort"

	"github.com/zatekoja/hospital-booking/backend/internal/application/loaders"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// DefaultPerPage is the dashboard page size
const DefaultPerPage = 3

// PageRequest selects one page of a list; zero values mean page 1 of DefaultPerPage
type PageRequest struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	return p
}

// AppointmentPage is one page of appointments
type AppointmentPage struct {
	Items      []*entities.Appointment `json:"items"`
	Page       int                     `json:"page"`
	PerPage    int                     `json:"perPage"`
	Total      int                     `json:"total"`
	TotalPages int                     `json:"totalPages"`
}

func newPage(items []*entities.Appointment, req PageRequest) AppointmentPage {
	req = req.normalize()
	total := len(items)
	pages := (total + req.PerPage - 1) / req.PerPage
	if pages == 0 {
		pages = 1
	}
	if req.Page > pages {
		req.Page = pages
	}
	start := (req.Page - 1) * req.PerPage
	end := start + req.PerPage
	if end > total {
		end = total
	}
	return AppointmentPage{
		Items:      append([]*entities.Appointment{}, items[start:end]...),
		Page:       req.Page,
		PerPage:    req.PerPage,
		Total:      total,
		TotalPages: pages,
	}
}

// PatientDashboardQuery pages each of the patient's lists independently
type PatientDashboardQuery struct {
	Upcoming  PageRequest
	History   PageRequest
	Cancelled PageRequest
}

// PatientDashboard is the patient's view of their appointments
type PatientDashboard struct {
	Upcoming  AppointmentPage `json:"upcoming"`
	History   AppointmentPage `json:"history"`
	Cancelled AppointmentPage `json:"cancelled"`
}

// DoctorDashboardQuery filters the doctor's list. Date is "today",
// "tomorrow", a YYYY-MM-DD date or empty for all.
type DoctorDashboardQuery struct {
	Date       string
	HospitalID int64
}

// DoctorStats are the counters at the top of the doctor dashboard
type DoctorStats struct {
	Today     int `json:"today"`
	Week      int `json:"week"`
	Completed int `json:"completed"`
	Patients  int `json:"patients"`
}

// DoctorDashboard is the doctor's view of their appointments
type DoctorDashboard struct {
	Stats        DoctorStats             `json:"stats"`
	Date         string                  `json:"date,omitempty"`
	Appointments []*entities.Appointment `json:"appointments"`
}

// AdminAppointment is an appointment with the patient's contact details
type AdminAppointment struct {
	*entities.Appointment
	PatientEmail string `json:"patientEmail,omitempty"`
	PatientPhone string `json:"patientPhone,omitempty"`
}

// AdminDashboard is the admin overview
type AdminDashboard struct {
	Stats        *UserStats          `json:"stats"`
	Appointments []*AdminAppointment `json:"appointments"`
}

// DashboardService assembles the per-role dashboards. Every load runs the
// overdue sweep through AppointmentService.ListForUser first.
type DashboardService struct {
	appointments *AppointmentService
	accounts     *AccountService
	accountRepo  repositories.AccountRepository
	clock        *Clock
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(appointments *AppointmentService, accounts *AccountService, accountRepo repositories.AccountRepository, clock *Clock) *DashboardService {
	return &DashboardService{appointments: appointments, accounts: accounts, accountRepo: accountRepo, clock: clock}
}

func byDateTime(list []*entities.Appointment, desc bool) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return (a.Date < b.Date) != desc
		}
		if a.Time != b.Time {
			return (a.Time < b.Time) != desc
		}
		return a.ID < b.ID
	})
}

// Patient builds the patient dashboard. Upcoming lists ongoing visits first,
// then by date and time; history and cancelled lists are newest first.
func (s *DashboardService) Patient(ctx context.Context, actor *entities.Account, q PatientDashboardQuery) (*PatientDashboard, error) {
	if actor == nil || actor.Role != entities.RolePatient {
		return nil, apperrors.NewForbiddenError("patient access required")
	}
	all, err := s.appointments.ListForUser(ctx, actor, 0)
	if err != nil {
		return nil, err
	}

	var upcoming, history, cancelled []*entities.Appointment
	for _, a := range all {
		switch a.Status {
		case entities.AppointmentStatusUpcoming, entities.AppointmentStatusOngoing:
			upcoming = append(upcoming, a)
		case entities.AppointmentStatusCompleted, entities.AppointmentStatusExamined:
			history = append(history, a)
		case entities.AppointmentStatusCancelled:
			cancelled = append(cancelled, a)
		}
	}

	byDateTime(upcoming, false)
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Status == entities.AppointmentStatusOngoing && upcoming[j].Status != entities.AppointmentStatusOngoing
	})
	byDateTime(history, true)
	byDateTime(cancelled, true)

	return &PatientDashboard{
		Upcoming:  newPage(upcoming, q.Upcoming),
		History:   newPage(history, q.History),
		Cancelled: newPage(cancelled, q.Cancelled),
	}, nil
}

func (s *DashboardService) resolveDate(date string) (string, error) {
	switch date {
	case "":
		return "", nil
	case "today":
		return s.clock.Today(), nil
	case "tomorrow":
		return s.clock.AddDays(s.clock.Today(), 1)
	default:
		if _, err := s.clock.ParseDate(date); err != nil {
			return "", err
		}
		return date, nil
	}
}

// Doctor builds the doctor dashboard. Stats cover every hospital; the list
// honours the date and hospital filters and is ordered by date and time.
func (s *DashboardService) Doctor(ctx context.Context, actor *entities.Account, q DoctorDashboardQuery) (*DoctorDashboard, error) {
	if actor == nil || actor.Role != entities.RoleDoctor {
		return nil, apperrors.NewForbiddenError("doctor access required")
	}
	date, err := s.resolveDate(q.Date)
	if err != nil {
		return nil, err
	}
	all, err := s.appointments.ListForUser(ctx, actor, 0)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	weekEnd, err := s.clock.AddDays(today, 6)
	if err != nil {
		return nil, err
	}

	dash := &DoctorDashboard{Date: date, Appointments: []*entities.Appointment{}}
	patients := make(map[int64]struct{})
	for _, a := range all {
		if a.Date == today {
			dash.Stats.Today++
		}
		if a.Date >= today && a.Date <= weekEnd {
			dash.Stats.Week++
		}
		if a.Status == entities.AppointmentStatusCompleted {
			dash.Stats.Completed++
		}
		patients[a.PatientID] = struct{}{}

		if date != "" && a.Date != date {
			continue
		}
		if q.HospitalID != 0 && a.HospitalID != q.HospitalID {
			continue
		}
		dash.Appointments = append(dash.Appointments, a)
	}
	dash.Stats.Patients = len(patients)
	byDateTime(dash.Appointments, false)
	return dash, nil
}

// Admin builds the admin overview, newest appointments first, enriched
// with patient contact details through the batched account loader.
func (s *DashboardService) Admin(ctx context.Context, actor *entities.Account, hospitalID int64) (*AdminDashboard, error) {
	if actor == nil || actor.Role != entities.RoleAdmin {
		return nil, apperrors.NewForbiddenError("admin access required")
	}
	all, err := s.appointments.ListForUser(ctx, actor, hospitalID)
	if err != nil {
		return nil, err
	}
	stats, err := s.accounts.Stats(ctx)
	if err != nil {
		return nil, err
	}
	byDateTime(all, true)

	l := loaders.For(ctx)
	if l == nil {
		l = loaders.NewLoaders(s.accountRepo)
	}
	ids := make([]int64, 0, len(all))
	seen := make(map[int64]bool, len(all))
	for _, a := range all {
		if !seen[a.PatientID] {
			seen[a.PatientID] = true
			ids = append(ids, a.PatientID)
		}
	}
	patients := l.LoadAccounts(ctx, ids)

	out := make([]*AdminAppointment, 0, len(all))
	for _, a := range all {
		row := &AdminAppointment{Appointment: a}
		if p, ok := patients[a.PatientID]; ok {
			row.PatientEmail = p.Email
			row.PatientPhone = p.Phone
		}
		out = append(out, row)
	}
	return &AdminDashboard{Stats: stats, Appointments: out}, nil
}
