//go:build integration

package redisstore_test

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/redisstore"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// newTestRedis connects to the database given by TEST_REDIS_HOST and flushes it
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}
	port := os.Getenv("TEST_REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db, _ := strconv.Atoi(os.Getenv("TEST_REDIS_DB"))

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port, DB: db})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func upcoming(patientID, doctorID int64, date, slot string) *entities.Appointment {
	return &entities.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      slot,
		Status:    entities.AppointmentStatusUpcoming,
	}
}

func TestAccountStore_Integration(t *testing.T) {
	ctx := context.Background()
	store := redisstore.NewAccountStore(newTestRedis(t))

	a := &entities.Account{Name: "An", Email: "An@Example.com", PasswordHash: "hash", Role: entities.RolePatient, PatientCode: "BN-2603100001"}
	require.NoError(t, store.Create(ctx, a))
	assert.Equal(t, int64(1), a.ID)

	t.Run("email is unique ignoring case", func(t *testing.T) {
		err := store.Create(ctx, &entities.Account{Name: "B", Email: "an@example.com", Role: entities.RolePatient})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("patient code is unique", func(t *testing.T) {
		err := store.Create(ctx, &entities.Account{Name: "C", Email: "c@example.com", Role: entities.RolePatient, PatientCode: "BN-2603100001"})
		assert.ErrorIs(t, err, repositories.ErrDuplicatePatientCode)
	})

	t.Run("keeps the password hash", func(t *testing.T) {
		got, err := store.GetByEmail(ctx, "AN@example.com")
		require.NoError(t, err)
		assert.Equal(t, "hash", got.PasswordHash)
	})

	t.Run("finds codes by prefix", func(t *testing.T) {
		codes, err := store.PatientCodesWithPrefix(ctx, "BN-260310")
		require.NoError(t, err)
		assert.Equal(t, []string{"BN-2603100001"}, codes)
	})

	t.Run("delete frees the email", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, a.ID))
		require.NoError(t, store.Create(ctx, &entities.Account{Name: "D", Email: "an@example.com", Role: entities.RolePatient}))
	})
}

func TestAppointmentStore_Integration(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	store := redisstore.NewAppointmentStore(rdb)

	t.Run("one winner per slot", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(patient int64) {
				defer wg.Done()
				if err := store.Create(ctx, upcoming(patient, 1, "2026-03-11", "09:00")); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(int64(i + 1))
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("a claim whose record is not written yet holds the slot", func(t *testing.T) {
		// another writer has taken an id and the slot but not stored its record
		pending := upcoming(1, 5, "2026-03-11", "11:00")
		id, err := rdb.Incr(ctx, "seq:appointments").Result()
		require.NoError(t, err)
		pending.ID = id
		require.NoError(t, rdb.Set(ctx, redisstore.SlotKeyFor(pending.SlotKey()), id, 0).Err())

		err = store.Create(ctx, upcoming(2, 5, "2026-03-11", "11:00"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

		data, err := json.Marshal(pending)
		require.NoError(t, err)
		require.NoError(t, rdb.HSet(ctx, "appointments", strconv.FormatInt(id, 10), data).Err())

		live, err := store.List(ctx, repositories.AppointmentFilter{DoctorID: 5, Date: "2026-03-11"})
		require.NoError(t, err)
		require.Len(t, live, 1)
		assert.Equal(t, int64(1), live[0].PatientID)
	})

	t.Run("a claim left behind by a moved appointment is reclaimed", func(t *testing.T) {
		a := upcoming(1, 6, "2026-03-11", "13:00")
		require.NoError(t, store.Create(ctx, a))
		require.NoError(t, rdb.Set(ctx, redisstore.SlotKeyFor(entities.SlotKey{DoctorID: 6, Date: "2026-03-11", Time: "13:30"}), a.ID, 0).Err())

		require.NoError(t, store.Create(ctx, upcoming(2, 6, "2026-03-11", "13:30")))
	})

	t.Run("one winner when rescheduling onto the same slot", func(t *testing.T) {
		slots := []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30"}
		ids := make([]int64, len(slots))
		for i, slot := range slots {
			a := upcoming(int64(i+1), 7, "2026-03-13", slot)
			require.NoError(t, store.Create(ctx, a))
			ids[i] = a.ID
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for _, id := range ids {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, err := store.TransitionStatus(ctx, id, []entities.AppointmentStatus{entities.AppointmentStatusUpcoming}, entities.AppointmentStatusUpcoming, func(next *entities.Appointment) {
					next.Time = "14:00"
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		day, err := store.List(ctx, repositories.AppointmentFilter{DoctorID: 7, Date: "2026-03-13"})
		require.NoError(t, err)
		atTwo := 0
		for _, a := range day {
			if a.Time == "14:00" {
				atTwo++
			}
		}
		assert.Equal(t, 1, atTwo)
	})

	t.Run("cancelling frees the slot", func(t *testing.T) {
		a := upcoming(1, 2, "2026-03-11", "10:00")
		require.NoError(t, store.Create(ctx, a))

		_, err := store.TransitionStatus(ctx, a.ID, []entities.AppointmentStatus{entities.AppointmentStatusUpcoming}, entities.AppointmentStatusCancelled, nil)
		require.NoError(t, err)

		require.NoError(t, store.Create(ctx, upcoming(2, 2, "2026-03-11", "10:00")))
	})

	t.Run("transition guard", func(t *testing.T) {
		a := upcoming(1, 3, "2026-03-11", "08:00")
		require.NoError(t, store.Create(ctx, a))

		_, err := store.TransitionStatus(ctx, a.ID, []entities.AppointmentStatus{entities.AppointmentStatusOngoing}, entities.AppointmentStatusExamined, nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("moving releases the old slot", func(t *testing.T) {
		a := upcoming(1, 4, "2026-03-12", "08:00")
		require.NoError(t, store.Create(ctx, a))

		now := time.Now()
		_, err := store.TransitionStatus(ctx, a.ID, []entities.AppointmentStatus{entities.AppointmentStatusUpcoming}, entities.AppointmentStatusUpcoming, func(next *entities.Appointment) {
			next.Time = "08:30"
			next.RescheduledAt = &now
		})
		require.NoError(t, err)

		require.NoError(t, store.Create(ctx, upcoming(9, 4, "2026-03-12", "08:00")))
		err = store.Create(ctx, upcoming(3, 4, "2026-03-12", "08:30"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("list and delete by patient", func(t *testing.T) {
		list, err := store.List(ctx, repositories.AppointmentFilter{DoctorID: 4})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		n, err := store.DeleteByPatient(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, store.Create(ctx, upcoming(5, 4, "2026-03-12", "08:00")))
	})
}

func TestSpecialtyStore_Integration(t *testing.T) {
	ctx := context.Background()
	store := redisstore.NewSpecialtyStore(newTestRedis(t))

	cardio := &entities.Specialty{Name: "Cardiology", Icon: "fas fa-heart"}
	require.NoError(t, store.Create(ctx, cardio))
	derm := &entities.Specialty{Name: "Dermatology", Icon: "fas fa-hand"}
	require.NoError(t, store.Create(ctx, derm))
	assert.Equal(t, int64(2), derm.ID)

	err := store.Create(ctx, &entities.Specialty{Name: "cardiology", Icon: "fas fa-heart"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	derm.Name = "CARDIOLOGY"
	err = store.Update(ctx, derm)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	require.NoError(t, store.Delete(ctx, cardio.ID))
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Dermatology", list[0].Name)
}

func TestSessionStore_Integration(t *testing.T) {
	ctx := context.Background()
	store := redisstore.NewSessionStore(newTestRedis(t), nil)

	for _, token := range []string{"t1", "t2"} {
		require.NoError(t, store.Save(ctx, &entities.Session{
			Token:     token,
			AccountID: 7,
			Role:      entities.RolePatient,
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.AccountID)

	require.NoError(t, store.DeleteByAccount(ctx, 7))
	_, err = store.Get(ctx, "t2")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
