package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// SlotKeyFor returns the claim key of a doctor's slot
func SlotKeyFor(k entities.SlotKey) string {
	return fmt.Sprintf("slot:%d:%s:%s", k.DoctorID, k.Date, k.Time)
}

// AppointmentStore implements repositories.AppointmentRepository on Redis.
// A live appointment owns slot:<doctor>:<date>:<time>. The claim key and the
// record are always written in the same transaction.
type AppointmentStore struct {
	rdb *redis.Client
}

// NewAppointmentStore creates a new appointment store
func NewAppointmentStore(rdb *redis.Client) *AppointmentStore {
	return &AppointmentStore{rdb: rdb}
}

var _ repositories.AppointmentRepository = (*AppointmentStore)(nil)

func (s *AppointmentStore) load(ctx context.Context, c redis.Cmdable, id int64) (*entities.Appointment, error) {
	var a entities.Appointment
	found, err := getJSON(ctx, c, keyAppointments, field(id), &a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment %d not found", id))
	}
	return &a, nil
}

// checkClaim decides whether id may take key. The caller must have the key
// under WATCH so a claim written after this check aborts the transaction.
// A claim is only given up when its holder's record exists and has moved
// off the slot. A holder without a record is treated as a write in flight.
func (s *AppointmentStore) checkClaim(ctx context.Context, tx *redis.Tx, key string, id int64) error {
	holder, err := tx.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return apperrors.NewInternalError("failed to read slot claim", err)
	}
	if holder == id {
		return nil
	}

	current, err := s.load(ctx, tx, holder)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return repositories.NewSlotConflictError()
		}
		return err
	}
	if current.HoldsSlot() && SlotKeyFor(current.SlotKey()) == key {
		return repositories.NewSlotConflictError()
	}
	log.Warn().Str("key", key).Int64("stale_holder", holder).Msg("Replacing stale slot claim")
	return nil
}

// Create assigns the next ID and stores the appointment together with its
// slot claim in one transaction
func (s *AppointmentStore) Create(ctx context.Context, appointment *entities.Appointment) error {
	id, err := nextID(ctx, s.rdb, keyAppointments)
	if err != nil {
		return err
	}
	appointment.ID = id

	data, err := json.Marshal(appointment)
	if err != nil {
		return apperrors.NewInternalError("failed to encode appointment", err)
	}

	keys := []string{keyAppointments}
	key := ""
	if appointment.HoldsSlot() {
		key = SlotKeyFor(appointment.SlotKey())
		keys = append(keys, key)
	}

	err = watch(ctx, s.rdb, func(tx *redis.Tx) error {
		if key != "" {
			if err := s.checkClaim(ctx, tx, key, id); err != nil {
				return err
			}
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if key != "" {
				p.Set(ctx, key, id, 0)
			}
			p.HSet(ctx, keyAppointments, field(id), data)
			return nil
		})
		return err
	}, keys...)
	return wrapWriteErr(err, "appointment")
}

// GetByID retrieves an appointment by ID
func (s *AppointmentStore) GetByID(ctx context.Context, id int64) (*entities.Appointment, error) {
	return s.load(ctx, s.rdb, id)
}

// Update replaces the stored appointment, moving its slot claim
func (s *AppointmentStore) Update(ctx context.Context, appointment *entities.Appointment) error {
	_, err := s.save(ctx, appointment.ID, func(*entities.Appointment) (*entities.Appointment, error) {
		return appointment.Clone(), nil
	})
	return err
}

// TransitionStatus moves the appointment to `to` if its status is in from
func (s *AppointmentStore) TransitionStatus(ctx context.Context, id int64, from []entities.AppointmentStatus, to entities.AppointmentStatus, mutate func(*entities.Appointment)) (*entities.Appointment, error) {
	return s.save(ctx, id, func(existing *entities.Appointment) (*entities.Appointment, error) {
		if !repositories.StatusIn(existing.Status, from) {
			return nil, repositories.NewStatusConflictError(id, existing.Status)
		}
		next := existing.Clone()
		next.Status = to
		if mutate != nil {
			mutate(next)
		}
		return next, nil
	})
}

// save reads the appointment under WATCH, lets change build the new version
// and writes it. Taking the new slot, releasing the old one and storing the
// record happen in the same MULTI.
func (s *AppointmentStore) save(ctx context.Context, id int64, change func(existing *entities.Appointment) (*entities.Appointment, error)) (*entities.Appointment, error) {
	var saved *entities.Appointment
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		existing, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := change(existing)
		if err != nil {
			return err
		}
		next.ID = id

		oldKey, newKey := "", ""
		if existing.HoldsSlot() {
			oldKey = SlotKeyFor(existing.SlotKey())
		}
		if next.HoldsSlot() {
			newKey = SlotKeyFor(next.SlotKey())
		}

		if newKey != "" && newKey != oldKey {
			if err := tx.Watch(ctx, newKey).Err(); err != nil {
				return err
			}
			if err := s.checkClaim(ctx, tx, newKey, id); err != nil {
				return err
			}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if newKey != "" && newKey != oldKey {
				p.Set(ctx, newKey, id, 0)
			}
			p.HSet(ctx, keyAppointments, field(id), data)
			if oldKey != "" && oldKey != newKey {
				p.Del(ctx, oldKey)
			}
			return nil
		})
		if err != nil {
			return err
		}
		saved = next
		return nil
	}, keyAppointments)
	if err != nil {
		return nil, wrapWriteErr(err, "appointment")
	}
	return saved, nil
}

func (s *AppointmentStore) all(ctx context.Context, c redis.Cmdable, match func(*entities.Appointment) bool) ([]*entities.Appointment, error) {
	out := make([]*entities.Appointment, 0)
	err := allJSON(ctx, c, keyAppointments, func(data []byte) error {
		var a entities.Appointment
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		if match(&a) {
			out = append(out, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// List retrieves appointments matching the filter ordered by ID
func (s *AppointmentStore) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	out, err := s.all(ctx, s.rdb, filter.Matches)
	if err != nil {
		return nil, err
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return out[:0], nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DeleteByPatient removes every appointment of a patient
func (s *AppointmentStore) DeleteByPatient(ctx context.Context, patientID int64) (int, error) {
	return s.deleteWhere(ctx, func(a *entities.Appointment) bool { return a.PatientID == patientID })
}

// DeleteByDoctor removes every appointment of a catalog doctor
func (s *AppointmentStore) DeleteByDoctor(ctx context.Context, doctorID int64) (int, error) {
	return s.deleteWhere(ctx, func(a *entities.Appointment) bool { return a.DoctorID == doctorID })
}

func (s *AppointmentStore) deleteWhere(ctx context.Context, match func(*entities.Appointment) bool) (int, error) {
	n := 0
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		doomed, err := s.all(ctx, tx, match)
		if err != nil {
			return err
		}
		n = len(doomed)
		if n == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, a := range doomed {
				p.HDel(ctx, keyAppointments, field(a.ID))
				if a.HoldsSlot() {
					p.Del(ctx, SlotKeyFor(a.SlotKey()))
				}
			}
			return nil
		})
		return err
	}, keyAppointments)
	if err != nil {
		return 0, wrapWriteErr(err, "appointments")
	}
	return n, nil
}
