package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// SpecialtyInput carries the editable fields of a specialty
type SpecialtyInput struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// SpecialtyService handles admin CRUD on specialties
type SpecialtyService struct {
	repo      repositories.SpecialtyRepository
	accounts  repositories.AccountRepository
	directory *DoctorDirectory
}

// NewSpecialtyService creates a new specialty service
func NewSpecialtyService(repo repositories.SpecialtyRepository, accounts repositories.AccountRepository, directory *DoctorDirectory) *SpecialtyService {
	return &SpecialtyService{repo: repo, accounts: accounts, directory: directory}
}

func (in *SpecialtyInput) validate() (*entities.Specialty, error) {
	sp := &entities.Specialty{
		Name:        strings.TrimSpace(in.Name),
		Icon:        strings.TrimSpace(in.Icon),
		Description: strings.TrimSpace(in.Description),
	}
	if sp.Name == "" || sp.Icon == "" || sp.Description == "" {
		return nil, apperrors.NewValidationError("name, icon and description are required")
	}
	if !sp.ValidIcon() {
		return nil, apperrors.NewValidationError("icon must start with fas fa-, far fa- or fab fa-")
	}
	return sp, nil
}

// List returns every specialty
func (s *SpecialtyService) List(ctx context.Context) ([]*entities.Specialty, error) {
	return s.repo.List(ctx)
}

// Create adds a specialty
func (s *SpecialtyService) Create(ctx context.Context, in SpecialtyInput) (*entities.Specialty, error) {
	sp, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, err
	}
	log.Info().Int64("specialty_id", sp.ID).Str("name", sp.Name).Msg("Specialty created")
	return sp, nil
}

// Update edits a specialty. A rename is carried over to catalog doctors and
// doctor accounts; appointments keep the name they were booked under.
func (s *SpecialtyService) Update(ctx context.Context, id int64, in SpecialtyInput) (*entities.Specialty, error) {
	sp, err := in.validate()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sp.ID = id
	sp.CatalogKey = existing.CatalogKey
	if err := s.repo.Update(ctx, sp); err != nil {
		return nil, err
	}

	if existing.Name != sp.Name {
		if err := s.propagateRename(ctx, existing.Name, sp.Name); err != nil {
			return nil, err
		}
	}
	return sp, nil
}

func (s *SpecialtyService) propagateRename(ctx context.Context, oldName, newName string) error {
	doctors := 0
	if s.directory != nil {
		doctors = s.directory.RenameSpecialty(ctx, oldName, newName)
	}

	accounts, err := s.accounts.List(ctx, entities.RoleDoctor)
	if err != nil {
		return err
	}
	renamed := 0
	for _, a := range accounts {
		if a.Specialty != oldName {
			continue
		}
		a.Specialty = newName
		if err := s.accounts.Update(ctx, a); err != nil {
			return err
		}
		renamed++
	}

	log.Info().
		Str("from", oldName).
		Str("to", newName).
		Int("catalog_doctors", doctors).
		Int("doctor_accounts", renamed).
		Msg("Specialty renamed")
	return nil
}

// Delete removes a specialty; its doctors stay in the catalog but are no longer offered for booking
func (s *SpecialtyService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("specialty_id", id).Msg("Specialty deleted")
	return nil
}
