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

// SpecialtyStore implements repositories.SpecialtyRepository in memory
type SpecialtyStore struct {
	mu    sync.RWMutex
	items map[int64]*entities.Specialty
}

// NewSpecialtyStore creates an empty store
func NewSpecialtyStore() *SpecialtyStore {
	return &SpecialtyStore{items: make(map[int64]*entities.Specialty)}
}

var _ repositories.SpecialtyRepository = (*SpecialtyStore)(nil)

func (s *SpecialtyStore) nameTaken(name string, exceptID int64) bool {
	for id, sp := range s.items {
		if id != exceptID && strings.EqualFold(sp.Name, name) {
			return true
		}
	}
	return false
}

// Create assigns max(ID)+1 and stores the specialty
func (s *SpecialtyStore) Create(ctx context.Context, specialty *entities.Specialty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(specialty.Name, 0) {
		return apperrors.NewConflictError(fmt.Sprintf("specialty %q already exists", specialty.Name))
	}

	var maxID int64
	for id := range s.items {
		if id > maxID {
			maxID = id
		}
	}
	specialty.ID = maxID + 1
	c := *specialty
	s.items[c.ID] = &c
	return nil
}

// GetByID retrieves a specialty by ID
func (s *SpecialtyStore) GetByID(ctx context.Context, id int64) (*entities.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("specialty %d not found", id))
	}
	c := *sp
	return &c, nil
}

// GetByName retrieves a specialty by name
func (s *SpecialtyStore) GetByName(ctx context.Context, name string) (*entities.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sp := range s.items {
		if sp.Name == name {
			c := *sp
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("specialty %q not found", name))
}

// Update updates a specialty. The catalog key is never changed.
func (s *SpecialtyStore) Update(ctx context.Context, specialty *entities.Specialty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[specialty.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("specialty %d not found", specialty.ID))
	}
	if s.nameTaken(specialty.Name, specialty.ID) {
		return apperrors.NewConflictError(fmt.Sprintf("specialty %q already exists", specialty.Name))
	}
	c := *specialty
	c.CatalogKey = existing.CatalogKey
	s.items[c.ID] = &c
	return nil
}

// List retrieves all specialties ordered by ID
func (s *SpecialtyStore) List(ctx context.Context) ([]*entities.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Specialty, 0, len(s.items))
	for _, sp := range s.items {
		c := *sp
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete deletes a specialty
func (s *SpecialtyStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("specialty %d not found", id))
	}
	delete(s.items, id)
	return nil
}
