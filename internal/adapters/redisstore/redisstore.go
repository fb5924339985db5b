// Package redisstore persists accounts, appointments, specialties and sessions in Redis.
//
// Records live in one hash per collection (field = id, value = JSON). Unique
// constraints are index hashes and slot claim keys; multi-key writes run in
// WATCH/MULTI transactions that are retried when another writer wins.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/hospital-booking/backend/pkg/retry"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

const (
	keyUsers        = "users"
	keyAppointments = "appointments"
	keySpecialties  = "specialties"

	keyEmailIndex = "idx:users:email"
	keyCodeIndex  = "idx:users:patient_code"

	sessionPrefix     = "currentUser:"
	userSessionPrefix = "sessions:user:"

	txAttempts = 10
)

func seqKey(collection string) string {
	return "seq:" + collection
}

func field(id int64) string {
	return strconv.FormatInt(id, 10)
}

// watch runs fn in an optimistic transaction over keys, retrying when
// a watched key changes before EXEC
func watch(ctx context.Context, rdb *redis.Client, fn func(tx *redis.Tx) error, keys ...string) error {
	cfg := retry.Immediate(txAttempts, func(err error) bool {
		return errors.Is(err, redis.TxFailedErr)
	})
	err := retry.Do(ctx, cfg, func() error {
		return rdb.Watch(ctx, fn, keys...)
	})
	if errors.Is(err, retry.ErrExhausted) {
		return apperrors.NewConflictError("too many concurrent updates, please retry")
	}
	return err
}

// getJSON decodes one hash field into out. found is false when the field is absent.
func getJSON(ctx context.Context, c redis.Cmdable, key, f string, out interface{}) (bool, error) {
	data, err := c.HGet(ctx, key, f).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError(fmt.Sprintf("failed to read %s/%s", key, f), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, apperrors.NewInternalError(fmt.Sprintf("failed to decode %s/%s", key, f), err)
	}
	return true, nil
}

// allJSON decodes every value of a hash with decode
func allJSON(ctx context.Context, c redis.Cmdable, key string, decode func([]byte) error) error {
	values, err := c.HVals(ctx, key).Result()
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to list %s", key), err)
	}
	for _, v := range values {
		if err := decode([]byte(v)); err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to decode %s entry", key), err)
		}
	}
	return nil
}

func nextID(ctx context.Context, c redis.Cmdable, collection string) (int64, error) {
	id, err := c.Incr(ctx, seqKey(collection)).Result()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to allocate id", err)
	}
	return id, nil
}

func wrapWriteErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || errors.Is(err, redis.TxFailedErr) {
		return err
	}
	return apperrors.NewInternalError("failed to write "+what, err)
}
