package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

func (f *fixture) rawAccount(t *testing.T, email string, role entities.Role, code string) *entities.Account {
	t.Helper()
	a := &entities.Account{Name: email, Email: email, Role: role, PatientCode: code, CreatedAt: f.now}
	require.NoError(t, f.accounts.Create(f.ctx, a))
	return a
}

func TestPatientCodeGenerator_Next(t *testing.T) {
	f := newFixture(t)
	f.rawAccount(t, "old@example.com", entities.RolePatient, "BN-2603090042")
	f.rawAccount(t, "a@example.com", entities.RolePatient, "BN-2603100007")
	f.rawAccount(t, "b@example.com", entities.RolePatient, "BN-260310X")

	code, err := f.codes.Next(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, "BN-2603100008", code)
}

func TestPatientCodeGenerator_Assign(t *testing.T) {
	t.Run("regenerates after a duplicate", func(t *testing.T) {
		f := newFixture(t)
		calls := 0

		code, err := f.codes.Assign(f.ctx, func(code string) error {
			calls++
			if calls == 1 {
				return repositories.NewDuplicatePatientCodeError(code)
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, "BN-2603100001", code)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up with a conflict", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.codes.Assign(f.ctx, func(code string) error {
			return repositories.NewDuplicatePatientCodeError(code)
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("other errors are returned as is", func(t *testing.T) {
		f := newFixture(t)
		calls := 0

		_, err := f.codes.Assign(f.ctx, func(code string) error {
			calls++
			return apperrors.NewInternalError("disk full", nil)
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
		assert.Equal(t, 1, calls)
	})
}

func TestPatientCodeGenerator_BackfillCodes(t *testing.T) {
	f := newFixture(t)
	first := f.rawAccount(t, "p1@example.com", entities.RolePatient, "")
	second := f.rawAccount(t, "p2@example.com", entities.RolePatient, "")
	doctor := f.rawAccount(t, "d@example.com", entities.RoleDoctor, "")

	n, err := f.codes.BackfillCodes(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.accounts.GetByID(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "BN-2603100001", got.PatientCode)
	got, err = f.accounts.GetByID(f.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "BN-2603100002", got.PatientCode)
	got, err = f.accounts.GetByID(f.ctx, doctor.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PatientCode)

	// second run has nothing to do
	n, err = f.codes.BackfillCodes(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepScheduler(t *testing.T) {
	f := newFixture(t)

	_, err := services.NewSweepScheduler(f.reconciler, "not a schedule", ict)
	require.Error(t, err)

	s, err := services.NewSweepScheduler(f.reconciler, "*/5 * * * *", ict)
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
