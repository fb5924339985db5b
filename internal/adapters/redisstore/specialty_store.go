package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// SpecialtyStore implements repositories.SpecialtyRepository on Redis
type SpecialtyStore struct {
	rdb *redis.Client
}

// NewSpecialtyStore creates a new specialty store
func NewSpecialtyStore(rdb *redis.Client) *SpecialtyStore {
	return &SpecialtyStore{rdb: rdb}
}

var _ repositories.SpecialtyRepository = (*SpecialtyStore)(nil)

func (s *SpecialtyStore) all(ctx context.Context, c redis.Cmdable) ([]*entities.Specialty, error) {
	out := make([]*entities.Specialty, 0)
	err := allJSON(ctx, c, keySpecialties, func(data []byte) error {
		var sp entities.Specialty
		if err := json.Unmarshal(data, &sp); err != nil {
			return err
		}
		out = append(out, &sp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func nameTaken(list []*entities.Specialty, name string, exceptID int64) bool {
	for _, sp := range list {
		if sp.ID != exceptID && strings.EqualFold(sp.Name, name) {
			return true
		}
	}
	return false
}

// Create assigns max(ID)+1 and stores the specialty
func (s *SpecialtyStore) Create(ctx context.Context, specialty *entities.Specialty) error {
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		list, err := s.all(ctx, tx)
		if err != nil {
			return err
		}
		if nameTaken(list, specialty.Name, 0) {
			return apperrors.NewConflictError(fmt.Sprintf("specialty %q already exists", specialty.Name))
		}
		var maxID int64
		for _, sp := range list {
			if sp.ID > maxID {
				maxID = sp.ID
			}
		}
		next := *specialty
		next.ID = maxID + 1
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, keySpecialties, field(next.ID), data)
			return nil
		})
		if err == nil {
			specialty.ID = next.ID
		}
		return err
	}, keySpecialties)
	return wrapWriteErr(err, "specialty")
}

// GetByID retrieves a specialty by ID
func (s *SpecialtyStore) GetByID(ctx context.Context, id int64) (*entities.Specialty, error) {
	var sp entities.Specialty
	found, err := getJSON(ctx, s.rdb, keySpecialties, field(id), &sp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("specialty %d not found", id))
	}
	return &sp, nil
}

// GetByName retrieves a specialty by exact name
func (s *SpecialtyStore) GetByName(ctx context.Context, name string) (*entities.Specialty, error) {
	list, err := s.all(ctx, s.rdb)
	if err != nil {
		return nil, err
	}
	for _, sp := range list {
		if sp.Name == name {
			return sp, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("specialty %q not found", name))
}

// Update updates a specialty. The catalog key is never changed.
func (s *SpecialtyStore) Update(ctx context.Context, specialty *entities.Specialty) error {
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		list, err := s.all(ctx, tx)
		if err != nil {
			return err
		}
		var existing *entities.Specialty
		for _, sp := range list {
			if sp.ID == specialty.ID {
				existing = sp
				break
			}
		}
		if existing == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("specialty %d not found", specialty.ID))
		}
		if nameTaken(list, specialty.Name, specialty.ID) {
			return apperrors.NewConflictError(fmt.Sprintf("specialty %q already exists", specialty.Name))
		}
		next := *specialty
		next.CatalogKey = existing.CatalogKey
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, keySpecialties, field(specialty.ID), data)
			return nil
		})
		return err
	}, keySpecialties)
	return wrapWriteErr(err, "specialty")
}

// List retrieves all specialties ordered by ID
func (s *SpecialtyStore) List(ctx context.Context) ([]*entities.Specialty, error) {
	return s.all(ctx, s.rdb)
}

// Delete deletes a specialty
func (s *SpecialtyStore) Delete(ctx context.Context, id int64) error {
	n, err := s.rdb.HDel(ctx, keySpecialties, field(id)).Result()
	if err != nil {
		return apperrors.NewInternalError("failed to delete specialty", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("specialty %d not found", id))
	}
	return nil
}
