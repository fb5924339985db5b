package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// AccountStore implements repositories.AccountRepository in memory
type AccountStore struct {
	mu      sync.RWMutex
	items   map[int64]*entities.Account
	byEmail map[string]int64
	byCode  map[string]int64
	nextID  int64
}

// NewAccountStore creates an empty store
func NewAccountStore() *AccountStore {
	return &AccountStore{
		items:   make(map[int64]*entities.Account),
		byEmail: make(map[string]int64),
		byCode:  make(map[string]int64),
	}
}

var _ repositories.AccountRepository = (*AccountStore)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create assigns the next ID and stores the account
func (s *AccountStore) Create(ctx context.Context, account *entities.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(account.Email)
	if _, taken := s.byEmail[email]; taken {
		return repositories.NewDuplicateEmailError()
	}
	if account.PatientCode != "" {
		if _, taken := s.byCode[account.PatientCode]; taken {
			return repositories.NewDuplicatePatientCodeError(account.PatientCode)
		}
	}

	s.nextID++
	account.ID = s.nextID
	s.items[account.ID] = account.Clone()
	s.byEmail[email] = account.ID
	if account.PatientCode != "" {
		s.byCode[account.PatientCode] = account.ID
	}
	return nil
}

// GetByID retrieves an account by ID
func (s *AccountStore) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
	}
	return a.Clone(), nil
}

// GetByIDs retrieves the accounts that exist among ids
func (s *AccountStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]*entities.Account, len(ids))
	for _, id := range ids {
		if a, ok := s.items[id]; ok {
			out[id] = a.Clone()
		}
	}
	return out, nil
}

// GetByEmail retrieves an account by email, ignoring case
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	return s.items[id].Clone(), nil
}

// Update updates profile fields. The stored patient code is kept.
func (s *AccountStore) Update(ctx context.Context, account *entities.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[account.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", account.ID))
	}

	oldEmail := normalizeEmail(existing.Email)
	newEmail := normalizeEmail(account.Email)
	if newEmail != oldEmail {
		if _, taken := s.byEmail[newEmail]; taken {
			return repositories.NewDuplicateEmailError()
		}
		delete(s.byEmail, oldEmail)
		s.byEmail[newEmail] = account.ID
	}

	next := account.Clone()
	next.PatientCode = existing.PatientCode
	next.CreatedAt = existing.CreatedAt
	s.items[account.ID] = next
	return nil
}

// AssignPatientCode sets the code of a patient that has none
func (s *AccountStore) AssignPatientCode(ctx context.Context, id int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
	}
	if existing.PatientCode != "" {
		return apperrors.NewConflictError(fmt.Sprintf("user %d already has patient code %s", id, existing.PatientCode))
	}
	if _, taken := s.byCode[code]; taken {
		return repositories.NewDuplicatePatientCodeError(code)
	}

	existing.PatientCode = code
	s.byCode[code] = id
	return nil
}

// List retrieves accounts ordered by ID, optionally filtered by role
func (s *AccountStore) List(ctx context.Context, role entities.Role) ([]*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Account, 0, len(s.items))
	for _, a := range s.items {
		if role == "" || a.Role == role {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PatientCodesWithPrefix returns stored codes starting with prefix
func (s *AccountStore) PatientCodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for code := range s.byCode {
		if strings.HasPrefix(code, prefix) {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Delete deletes an account
func (s *AccountStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
	}
	delete(s.byEmail, normalizeEmail(existing.Email))
	if existing.PatientCode != "" {
		delete(s.byCode, existing.PatientCode)
	}
	delete(s.items, id)
	return nil
}
