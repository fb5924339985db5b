package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)
)

// RegisterRequest carries the fields of a new account
type RegisterRequest struct {
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	Password    string        `json:"password"`
	Role        entities.Role `json:"role"`
	Specialty   string        `json:"specialty,omitempty"`
	HospitalIDs []int64       `json:"hospitalIds,omitempty"`
	DoctorID    int64         `json:"doctorId,omitempty"`
}

// UserStats summarises accounts and appointments for the admin dashboard
type UserStats struct {
	Patients     int                                `json:"patients"`
	Doctors      int                                `json:"doctors"`
	Admins       int                                `json:"admins"`
	Appointments int                                `json:"appointments"`
	ByStatus     map[entities.AppointmentStatus]int `json:"byStatus"`
}

// AccountService manages registration and admin user operations
type AccountService struct {
	accounts     repositories.AccountRepository
	appointments repositories.AppointmentRepository
	sessions     repositories.SessionRepository
	codes        *PatientCodeGenerator
	catalog      *Catalog
	clock        *Clock
	events       eventPublisher
	bcryptCost   int
}

// NewAccountService creates a new account service
func NewAccountService(
	accounts repositories.AccountRepository,
	appointments repositories.AppointmentRepository,
	sessions repositories.SessionRepository,
	codes *PatientCodeGenerator,
	catalog *Catalog,
	clock *Clock,
) *AccountService {
	return &AccountService{
		accounts:     accounts,
		appointments: appointments,
		sessions:     sessions,
		codes:        codes,
		catalog:      catalog,
		clock:        clock,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost
func (s *AccountService) WithBcryptCost(cost int) *AccountService {
	s.bcryptCost = cost
	return s
}

// WithEventBus makes cascade deletions visible to open dashboards
func (s *AccountService) WithEventBus(bus providers.EventBus) *AccountService {
	s.events = eventPublisher{bus: bus}
	return s
}

// Register creates a patient or doctor account from the public form.
// Linking an account to a catalog doctor is left to CreateUser.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*entities.Account, error) {
	if req.Role != entities.RolePatient && req.Role != entities.RoleDoctor {
		return nil, apperrors.NewValidationError("role must be patient or doctor")
	}
	if req.DoctorID != 0 {
		return nil, apperrors.NewValidationError("doctor profiles can only be linked by an administrator")
	}
	return s.create(ctx, req)
}

// CreateUser creates an account of any role on behalf of an admin
func (s *AccountService) CreateUser(ctx context.Context, req RegisterRequest) (*entities.Account, error) {
	return s.create(ctx, req)
}

func (s *AccountService) create(ctx context.Context, req RegisterRequest) (*entities.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Password == "" || req.Role == "" {
		return nil, apperrors.NewValidationError("name, email, phone, password and role are required")
	}
	if !req.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role")
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, apperrors.NewValidationError("invalid email")
	}
	if !phonePattern.MatchString(req.Phone) {
		return nil, apperrors.NewValidationError("invalid phone number")
	}

	account := &entities.Account{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		CreatedAt: s.clock.Now(),
		UpdatedAt: s.clock.Now(),
	}

	if req.Role == entities.RoleDoctor {
		if err := s.applyDoctorProfile(account, req); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}
	account.PasswordHash = string(hash)

	if req.Role == entities.RolePatient {
		_, err = s.codes.Assign(ctx, func(code string) error {
			account.PatientCode = code
			return s.accounts.Create(ctx, account)
		})
	} else {
		err = s.accounts.Create(ctx, account)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", account.ID).Str("role", string(account.Role)).Msg("Account created")
	return account, nil
}

func (s *AccountService) applyDoctorProfile(account *entities.Account, req RegisterRequest) error {
	account.Specialty = strings.TrimSpace(req.Specialty)
	account.HospitalIDs = append([]int64(nil), req.HospitalIDs...)
	for _, id := range account.HospitalIDs {
		if _, err := s.catalog.Hospital(id); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
	}
	if req.DoctorID == 0 {
		return nil
	}

	doctor, err := s.catalog.Doctor(req.DoctorID)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	account.DoctorID = doctor.ID
	if account.Specialty == "" {
		account.Specialty = doctor.Specialty
	}
	if len(account.HospitalIDs) == 0 {
		account.HospitalIDs = []int64{doctor.HospitalID}
	}
	return nil
}

// Get returns an account by ID
func (s *AccountService) Get(ctx context.Context, id int64) (*entities.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListUsers returns accounts, optionally restricted to role
func (s *AccountService) ListUsers(ctx context.Context, role entities.Role) ([]*entities.Account, error) {
	if role != "" && !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role")
	}
	return s.accounts.List(ctx, role)
}

// DeleteUser removes an account and every appointment it owns.
// Patients own appointments by patient ID; doctors by their catalog doctor ID.
func (s *AccountService) DeleteUser(ctx context.Context, id int64, actor *entities.Account) error {
	if actor != nil && actor.ID == id {
		return apperrors.NewValidationError("admins cannot delete their own account")
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var owned []*entities.Appointment
	switch {
	case account.Role == entities.RolePatient:
		owned = s.ownedAppointments(ctx, repositories.AppointmentFilter{PatientID: id})
		if _, err := s.appointments.DeleteByPatient(ctx, id); err != nil {
			return err
		}
	case account.Role == entities.RoleDoctor && account.DoctorID != 0:
		owned = s.ownedAppointments(ctx, repositories.AppointmentFilter{DoctorID: account.DoctorID})
		if _, err := s.appointments.DeleteByDoctor(ctx, account.DoctorID); err != nil {
			return err
		}
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.DeleteByAccount(ctx, id); err != nil {
			log.Warn().Err(err).Int64("user_id", id).Msg("Failed to drop sessions of deleted user")
		}
	}

	for _, a := range owned {
		s.events.publish(ctx, entities.AppointmentEventDeleted, a)
	}
	log.Info().Int64("user_id", id).Int("appointments_removed", len(owned)).Msg("Account deleted")
	return nil
}

// ownedAppointments lists what a cascade delete is about to remove so deletion
// events can follow. A failed lookup only costs the events.
func (s *AccountService) ownedAppointments(ctx context.Context, filter repositories.AppointmentFilter) []*entities.Appointment {
	owned, err := s.appointments.List(ctx, filter)
	if err != nil {
		log.Warn().Err(err).
			Int64("patient_id", filter.PatientID).
			Int64("doctor_id", filter.DoctorID).
			Msg("Failed to list appointments before cascade delete, no deletion events will be published")
		return nil
	}
	return owned
}

// Stats counts accounts by role and appointments by status
func (s *AccountService) Stats(ctx context.Context) (*UserStats, error) {
	accounts, err := s.accounts.List(ctx, "")
	if err != nil {
		return nil, err
	}
	appointments, err := s.appointments.List(ctx, repositories.AppointmentFilter{})
	if err != nil {
		return nil, err
	}

	stats := &UserStats{ByStatus: make(map[entities.AppointmentStatus]int)}
	for _, a := range accounts {
		switch a.Role {
		case entities.RolePatient:
			stats.Patients++
		case entities.RoleDoctor:
			stats.Doctors++
		case entities.RoleAdmin:
			stats.Admins++
		}
	}
	for _, a := range appointments {
		stats.ByStatus[a.Status]++
	}
	stats.Appointments = len(appointments)
	return stats, nil
}
