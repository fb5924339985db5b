// Package memory holds in-process repositories used by the memory storage
// driver, the CLI and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// AppointmentStore implements repositories.AppointmentRepository in memory
type AppointmentStore struct {
	mu     sync.RWMutex
	items  map[int64]*entities.Appointment
	slots  map[entities.SlotKey]int64
	nextID int64
}

// NewAppointmentStore creates an empty store
func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{
		items: make(map[int64]*entities.Appointment),
		slots: make(map[entities.SlotKey]int64),
	}
}

var _ repositories.AppointmentRepository = (*AppointmentStore)(nil)

// Create assigns the next ID and stores the appointment
func (s *AppointmentStore) Create(ctx context.Context, appointment *entities.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appointment.HoldsSlot() {
		if _, taken := s.slots[appointment.SlotKey()]; taken {
			return repositories.NewSlotConflictError()
		}
	}

	s.nextID++
	appointment.ID = s.nextID
	s.items[appointment.ID] = appointment.Clone()
	if appointment.HoldsSlot() {
		s.slots[appointment.SlotKey()] = appointment.ID
	}
	return nil
}

// GetByID retrieves an appointment by ID
func (s *AppointmentStore) GetByID(ctx context.Context, id int64) (*entities.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment %d not found", id))
	}
	return a.Clone(), nil
}

// Update replaces the stored appointment, moving its slot claim
func (s *AppointmentStore) Update(ctx context.Context, appointment *entities.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[appointment.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment %d not found", appointment.ID))
	}
	return s.save(existing, appointment.Clone())
}

// save swaps existing for next; the caller holds the lock
func (s *AppointmentStore) save(existing, next *entities.Appointment) error {
	if next.HoldsSlot() {
		if holder, taken := s.slots[next.SlotKey()]; taken && holder != next.ID {
			return repositories.NewSlotConflictError()
		}
	}
	if existing.HoldsSlot() {
		if s.slots[existing.SlotKey()] == existing.ID {
			delete(s.slots, existing.SlotKey())
		}
	}
	if next.HoldsSlot() {
		s.slots[next.SlotKey()] = next.ID
	}
	s.items[next.ID] = next
	return nil
}

// TransitionStatus moves the appointment to `to` if its status is in from
func (s *AppointmentStore) TransitionStatus(ctx context.Context, id int64, from []entities.AppointmentStatus, to entities.AppointmentStatus, mutate func(*entities.Appointment)) (*entities.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment %d not found", id))
	}
	if !repositories.StatusIn(existing.Status, from) {
		return nil, repositories.NewStatusConflictError(id, existing.Status)
	}

	next := existing.Clone()
	next.Status = to
	if mutate != nil {
		mutate(next)
	}
	if err := s.save(existing, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// List retrieves appointments matching the filter ordered by ID
func (s *AppointmentStore) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Appointment, 0)
	for _, a := range s.items {
		if filter.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, filter.Offset, filter.Limit), nil
}

// DeleteByPatient removes every appointment of a patient
func (s *AppointmentStore) DeleteByPatient(ctx context.Context, patientID int64) (int, error) {
	return s.deleteWhere(func(a *entities.Appointment) bool { return a.PatientID == patientID }), nil
}

// DeleteByDoctor removes every appointment of a catalog doctor
func (s *AppointmentStore) DeleteByDoctor(ctx context.Context, doctorID int64) (int, error) {
	return s.deleteWhere(func(a *entities.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (s *AppointmentStore) deleteWhere(match func(*entities.Appointment) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, a := range s.items {
		if !match(a) {
			continue
		}
		if a.HoldsSlot() && s.slots[a.SlotKey()] == id {
			delete(s.slots, a.SlotKey())
		}
		delete(s.items, id)
		n++
	}
	return n
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
