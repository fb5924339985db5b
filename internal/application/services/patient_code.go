package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
	"github.com/zatekoja/hospital-booking/backend/pkg/retry"
)

const (
	patientCodePrefix   = "BN-"
	patientCodeDigits   = 4
	maxDailySequence    = 9999
	patientCodeAttempts = 5
)

// PatientCodeGenerator issues BN-YYMMDD#### codes, sequential per day
type PatientCodeGenerator struct {
	accounts repositories.AccountRepository
	clock    *Clock
}

// NewPatientCodeGenerator creates a new patient code generator
func NewPatientCodeGenerator(accounts repositories.AccountRepository, clock *Clock) *PatientCodeGenerator {
	return &PatientCodeGenerator{accounts: accounts, clock: clock}
}

// Next returns the next unused code for today
func (g *PatientCodeGenerator) Next(ctx context.Context) (string, error) {
	prefix := patientCodePrefix + g.clock.Now().Format("060102")

	codes, err := g.accounts.PatientCodesWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	highest := 0
	for _, code := range codes {
		suffix := strings.TrimPrefix(code, prefix)
		if len(suffix) != patientCodeDigits {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}

	next := highest + 1
	if next > maxDailySequence {
		return "", apperrors.NewInternalError(fmt.Sprintf("patient code sequence exhausted for %s", prefix), nil)
	}
	return fmt.Sprintf("%s%0*d", prefix, patientCodeDigits, next), nil
}

// Assign generates a code and hands it to store, regenerating when store
// reports that another writer took the code first.
func (g *PatientCodeGenerator) Assign(ctx context.Context, store func(code string) error) (string, error) {
	var assigned string
	err := retry.Do(ctx, retry.Immediate(patientCodeAttempts, isDuplicatePatientCode), func() error {
		code, err := g.Next(ctx)
		if err != nil {
			return err
		}
		if err := store(code); err != nil {
			return err
		}
		assigned = code
		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return "", apperrors.NewConflictError("could not allocate a unique patient code, please retry")
		}
		return "", err
	}
	return assigned, nil
}

// BackfillCodes assigns codes to patients that have none and returns how many were assigned
func (g *PatientCodeGenerator) BackfillCodes(ctx context.Context) (int, error) {
	patients, err := g.accounts.List(ctx, entities.RolePatient)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, p := range patients {
		if p.PatientCode != "" {
			continue
		}
		code, err := g.Assign(ctx, func(code string) error {
			return g.accounts.AssignPatientCode(ctx, p.ID, code)
		})
		if err != nil {
			return assigned, fmt.Errorf("failed to assign patient code to user %d: %w", p.ID, err)
		}
		log.Info().Int64("user_id", p.ID).Str("patient_code", code).Msg("Assigned missing patient code")
		assigned++
	}
	return assigned, nil
}

func isDuplicatePatientCode(err error) bool {
	return errors.Is(err, repositories.ErrDuplicatePatientCode)
}
