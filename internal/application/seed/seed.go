// Package seed loads the demo accounts, specialties and appointments into an empty store.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "123456"

// DefaultAccounts are created when their email is not registered yet
func DefaultAccounts() []services.RegisterRequest {
	return []services.RegisterRequest{
		{Name: "Nguyễn Văn A", Email: "patient@example.com", Phone: "0123456789", Role: entities.RolePatient},
		{Name: "Bác sĩ Trần Thị B", Email: "doctor@example.com", Phone: "0987654321", Role: entities.RoleDoctor, Specialty: "Tim mạch", HospitalIDs: []int64{1, 2}, DoctorID: 1},
		{Name: "Bác sĩ Nguyễn Văn C", Email: "doctor2@example.com", Phone: "0987654322", Role: entities.RoleDoctor, Specialty: "Nội khoa", HospitalIDs: []int64{1}, DoctorID: 2},
		{Name: "Quản lý Lê Văn C", Email: "admin@example.com", Phone: "0111222333", Role: entities.RoleAdmin},
		{Name: "Trần Thị B", Email: "patient2@example.com", Phone: "0123456780", Role: entities.RolePatient},
		{Name: "Lê Văn C", Email: "patient3@example.com", Phone: "0123456781", Role: entities.RolePatient},
		{Name: "Phạm Thị D", Email: "patient4@example.com", Phone: "0123456782", Role: entities.RolePatient},
		{Name: "Hoàng Văn E", Email: "patient5@example.com", Phone: "0123456783", Role: entities.RolePatient},
	}
}

type sampleAppointment struct {
	patientEmail string
	doctorID     int64
	day          int
	time         string
	status       entities.AppointmentStatus
	notes        string
	rating       int
	review       string
}

// the fifth sample sits at 10:30 so it does not share doctor 2's 10:00 slot on the 25th
var sampleAppointments = []sampleAppointment{
	{"patient@example.com", 1, 15, "09:00", entities.AppointmentStatusCompleted, "Khám định kỳ", 5, "Bác sĩ rất tận tâm và chuyên nghiệp"},
	{"patient2@example.com", 1, 19, "15:30", entities.AppointmentStatusUpcoming, "Khám tim mạch", 0, ""},
	{"patient3@example.com", 2, 25, "10:00", entities.AppointmentStatusUpcoming, "Khám sức khỏe tổng quát", 0, ""},
	{"patient4@example.com", 1, 22, "15:30", entities.AppointmentStatusUpcoming, "Khám tim mạch", 0, ""},
	{"patient5@example.com", 2, 25, "10:30", entities.AppointmentStatusUpcoming, "Khám nội khoa", 0, ""},
}

// Result counts what a run created
type Result struct {
	Specialties  int `json:"specialties"`
	Accounts     int `json:"accounts"`
	Appointments int `json:"appointments"`
}

// Seeder fills empty collections with demo data. Running it twice is a no-op.
type Seeder struct {
	accounts     *services.AccountService
	accountRepo  repositories.AccountRepository
	specialties  repositories.SpecialtyRepository
	appointments repositories.AppointmentRepository
	catalog      *services.Catalog
	clock        *services.Clock
}

// NewSeeder creates a new seeder
func NewSeeder(
	accounts *services.AccountService,
	accountRepo repositories.AccountRepository,
	specialties repositories.SpecialtyRepository,
	appointments repositories.AppointmentRepository,
	catalog *services.Catalog,
	clock *services.Clock,
) *Seeder {
	return &Seeder{
		accounts:     accounts,
		accountRepo:  accountRepo,
		specialties:  specialties,
		appointments: appointments,
		catalog:      catalog,
		clock:        clock,
	}
}

// Run seeds specialties and appointments into empty collections and adds
// any default account whose email is missing
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	existing, err := s.specialties.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		for _, sp := range services.DefaultSpecialties() {
			if err := s.specialties.Create(ctx, sp); err != nil {
				return nil, fmt.Errorf("seed specialty %s: %w", sp.Name, err)
			}
			res.Specialties++
		}
	}

	for _, req := range DefaultAccounts() {
		_, err := s.accountRepo.GetByEmail(ctx, req.Email)
		if err == nil {
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
		req.Password = DefaultPassword
		if _, err := s.accounts.CreateUser(ctx, req); err != nil {
			return nil, fmt.Errorf("seed account %s: %w", req.Email, err)
		}
		res.Accounts++
	}

	appointments, err := s.appointments.List(ctx, repositories.AppointmentFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(appointments) == 0 {
		n, err := s.seedAppointments(ctx)
		if err != nil {
			return nil, err
		}
		res.Appointments = n
	}

	log.Info().
		Int("specialties", res.Specialties).
		Int("accounts", res.Accounts).
		Int("appointments", res.Appointments).
		Msg("Seed data loaded")
	return res, nil
}

// seedAppointments places the samples in the current month
func (s *Seeder) seedAppointments(ctx context.Context) (int, error) {
	now := s.clock.Now().In(s.clock.Location())
	created := 0
	for _, sample := range sampleAppointments {
		patient, err := s.accountRepo.GetByEmail(ctx, sample.patientEmail)
		if err != nil {
			return created, err
		}
		doctor, err := s.catalog.Doctor(sample.doctorID)
		if err != nil {
			return created, err
		}
		hospital, err := s.catalog.Hospital(doctor.HospitalID)
		if err != nil {
			return created, err
		}
		slot, err := s.catalog.Slot(sample.time)
		if err != nil {
			return created, err
		}

		a := &entities.Appointment{
			PatientID:    patient.ID,
			PatientName:  patient.Name,
			PatientCode:  patient.PatientCode,
			DoctorID:     doctor.ID,
			DoctorName:   doctor.Name,
			Specialty:    doctor.Specialty,
			HospitalID:   hospital.ID,
			HospitalName: hospital.Name,
			Date:         fmt.Sprintf("%04d-%02d-%02d", now.Year(), int(now.Month()), sample.day),
			Time:         slot.Start,
			TimeRange:    slot.Label(),
			Status:       sample.status,
			Notes:        sample.notes,
			Review:       sample.review,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if sample.status == entities.AppointmentStatusCompleted {
			a.CompletionReason = entities.CompletionReasonManual
		}
		if sample.rating > 0 {
			r := sample.rating
			a.Rating = &r
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return created, fmt.Errorf("seed appointment for %s: %w", sample.patientEmail, err)
		}
		created++
	}
	return created, nil
}
