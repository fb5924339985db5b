package repositories

import (
	"context"
	"errors"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

// ErrDuplicatePatientCode is returned when a patient code is already taken.
// Callers generating codes regenerate and retry on it.
var ErrDuplicatePatientCode = errors.New("patient code already assigned")

// AccountRepository defines the interface for account data operations.
// Email is unique case-insensitively; a non-empty patient code is unique.
type AccountRepository interface {
	// Create assigns the next ID and stores the account
	Create(ctx context.Context, account *entities.Account) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id int64) (*entities.Account, error)

	// GetByIDs retrieves the accounts that exist among ids, keyed by ID
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*entities.Account, error)

	// GetByEmail retrieves an account by email
	GetByEmail(ctx context.Context, email string) (*entities.Account, error)

	// Update updates mutable profile fields; patient codes are never changed here
	Update(ctx context.Context, account *entities.Account) error

	// AssignPatientCode sets the code of a patient that has none
	AssignPatientCode(ctx context.Context, id int64, code string) error

	// List retrieves accounts, optionally restricted to one role
	List(ctx context.Context, role entities.Role) ([]*entities.Account, error)

	// PatientCodesWithPrefix returns every stored patient code starting with prefix
	PatientCodesWithPrefix(ctx context.Context, prefix string) ([]string, error)

	// Delete deletes an account
	Delete(ctx context.Context, id int64) error
}

// SpecialtyRepository defines the interface for specialty data operations
type SpecialtyRepository interface {
	// Create assigns max(ID)+1 and stores the specialty. Names are unique.
	Create(ctx context.Context, specialty *entities.Specialty) error

	// GetByID retrieves a specialty by ID
	GetByID(ctx context.Context, id int64) (*entities.Specialty, error)

	// GetByName retrieves a specialty by exact name
	GetByName(ctx context.Context, name string) (*entities.Specialty, error)

	// Update updates a specialty
	Update(ctx context.Context, specialty *entities.Specialty) error

	// List retrieves all specialties ordered by ID
	List(ctx context.Context) ([]*entities.Specialty, error)

	// Delete deletes a specialty
	Delete(ctx context.Context, id int64) error
}

// SessionRepository stores authenticated sessions by token
type SessionRepository interface {
	Save(ctx context.Context, session *entities.Session) error
	Get(ctx context.Context, token string) (*entities.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByAccount(ctx context.Context, accountID int64) error
}
