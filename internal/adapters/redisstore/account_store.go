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

// accountRecord keeps the password hash that the API encoding omits
type accountRecord struct {
	*entities.Account
	PasswordHash string `json:"passwordHash"`
}

func encodeAccount(a *entities.Account) ([]byte, error) {
	return json.Marshal(accountRecord{Account: a, PasswordHash: a.PasswordHash})
}

func decodeAccount(data []byte) (*entities.Account, error) {
	rec := accountRecord{Account: &entities.Account{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	rec.Account.PasswordHash = rec.PasswordHash
	return rec.Account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountStore implements repositories.AccountRepository on Redis
type AccountStore struct {
	rdb *redis.Client
}

// NewAccountStore creates a new account store
func NewAccountStore(rdb *redis.Client) *AccountStore {
	return &AccountStore{rdb: rdb}
}

var _ repositories.AccountRepository = (*AccountStore)(nil)

func (s *AccountStore) load(ctx context.Context, c redis.Cmdable, id int64) (*entities.Account, error) {
	data, err := c.HGet(ctx, keyUsers, field(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read user", err)
	}
	a, err := decodeAccount(data)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to decode user", err)
	}
	return a, nil
}

// Create assigns the next ID and stores the account with its email and patient code claims
func (s *AccountStore) Create(ctx context.Context, account *entities.Account) error {
	email := normalizeEmail(account.Email)
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		taken, err := tx.HExists(ctx, keyEmailIndex, email).Result()
		if err != nil {
			return err
		}
		if taken {
			return repositories.NewDuplicateEmailError()
		}
		if account.PatientCode != "" {
			taken, err := tx.HExists(ctx, keyCodeIndex, account.PatientCode).Result()
			if err != nil {
				return err
			}
			if taken {
				return repositories.NewDuplicatePatientCodeError(account.PatientCode)
			}
		}

		id, err := nextID(ctx, s.rdb, keyUsers)
		if err != nil {
			return err
		}
		account.ID = id
		data, err := encodeAccount(account)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, keyUsers, field(id), data)
			p.HSet(ctx, keyEmailIndex, email, id)
			if account.PatientCode != "" {
				p.HSet(ctx, keyCodeIndex, account.PatientCode, id)
			}
			return nil
		})
		return err
	}, keyEmailIndex, keyCodeIndex)
	return wrapWriteErr(err, "user")
}

// GetByID retrieves an account by ID
func (s *AccountStore) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	return s.load(ctx, s.rdb, id)
}

// GetByIDs retrieves the accounts that exist among ids
func (s *AccountStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entities.Account, error) {
	out := make(map[int64]*entities.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = field(id)
	}
	values, err := s.rdb.HMGet(ctx, keyUsers, fields...).Result()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read users", err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		a, err := decodeAccount([]byte(str))
		if err != nil {
			return nil, apperrors.NewInternalError("failed to decode user", err)
		}
		out[ids[i]] = a
	}
	return out, nil
}

// GetByEmail retrieves an account by email, ignoring case
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*entities.Account, error) {
	id, err := s.rdb.HGet(ctx, keyEmailIndex, normalizeEmail(email)).Int64()
	if err == redis.Nil {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read email index", err)
	}
	return s.load(ctx, s.rdb, id)
}

// Update updates profile fields. The stored patient code is kept.
func (s *AccountStore) Update(ctx context.Context, account *entities.Account) error {
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		existing, err := s.load(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		oldEmail := normalizeEmail(existing.Email)
		newEmail := normalizeEmail(account.Email)
		if newEmail != oldEmail {
			taken, err := tx.HExists(ctx, keyEmailIndex, newEmail).Result()
			if err != nil {
				return err
			}
			if taken {
				return repositories.NewDuplicateEmailError()
			}
		}

		next := account.Clone()
		next.PatientCode = existing.PatientCode
		next.CreatedAt = existing.CreatedAt
		data, err := encodeAccount(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, keyUsers, field(account.ID), data)
			if newEmail != oldEmail {
				p.HDel(ctx, keyEmailIndex, oldEmail)
				p.HSet(ctx, keyEmailIndex, newEmail, account.ID)
			}
			return nil
		})
		return err
	}, keyUsers, keyEmailIndex)
	return wrapWriteErr(err, "user")
}

// AssignPatientCode sets the code of a patient that has none
func (s *AccountStore) AssignPatientCode(ctx context.Context, id int64, code string) error {
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		existing, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing.PatientCode != "" {
			return apperrors.NewConflictError(fmt.Sprintf("user %d already has patient code %s", id, existing.PatientCode))
		}
		taken, err := tx.HExists(ctx, keyCodeIndex, code).Result()
		if err != nil {
			return err
		}
		if taken {
			return repositories.NewDuplicatePatientCodeError(code)
		}

		existing.PatientCode = code
		data, err := encodeAccount(existing)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, keyUsers, field(id), data)
			p.HSet(ctx, keyCodeIndex, code, id)
			return nil
		})
		return err
	}, keyUsers, keyCodeIndex)
	return wrapWriteErr(err, "patient code")
}

// List retrieves accounts ordered by ID, optionally filtered by role
func (s *AccountStore) List(ctx context.Context, role entities.Role) ([]*entities.Account, error) {
	out := make([]*entities.Account, 0)
	err := allJSON(ctx, s.rdb, keyUsers, func(data []byte) error {
		a, err := decodeAccount(data)
		if err != nil {
			return err
		}
		if role == "" || a.Role == role {
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PatientCodesWithPrefix returns stored codes starting with prefix
func (s *AccountStore) PatientCodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.rdb.HScan(ctx, keyCodeIndex, 0, prefix+"*", 100).Iterator()
	// HSCAN yields field, value pairs
	for i := 0; iter.Next(ctx); i++ {
		if i%2 == 0 {
			out = append(out, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to scan patient codes", err)
	}
	sort.Strings(out)
	return out, nil
}

// Delete deletes an account and releases its email and patient code
func (s *AccountStore) Delete(ctx context.Context, id int64) error {
	err := watch(ctx, s.rdb, func(tx *redis.Tx) error {
		existing, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HDel(ctx, keyUsers, field(id))
			p.HDel(ctx, keyEmailIndex, normalizeEmail(existing.Email))
			if existing.PatientCode != "" {
				p.HDel(ctx, keyCodeIndex, existing.PatientCode)
			}
			return nil
		})
		return err
	}, keyUsers)
	return wrapWriteErr(err, "user")
}
