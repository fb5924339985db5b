package providers

import (
	"context"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
)

// DoctorSearchQuery holds free-text doctor search parameters
type DoctorSearchQuery struct {
	Query      string
	Specialty  string
	HospitalID int64
	Limit      int
}

// DoctorSearchProvider indexes and searches catalog doctors
type DoctorSearchProvider interface {
	// Index upserts doctors into the search index
	Index(ctx context.Context, doctors []*entities.Doctor) error

	// Search returns matching doctor IDs ordered by relevance
	Search(ctx context.Context, query DoctorSearchQuery) ([]int64, error)
}
