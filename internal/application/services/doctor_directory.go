package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
)

// DoctorDirectory lists the catalog doctors that can be booked and searches them
type DoctorDirectory struct {
	catalog     *Catalog
	specialties repositories.SpecialtyRepository
	search      providers.DoctorSearchProvider
}

// NewDoctorDirectory creates a directory. search may be nil, in which case
// queries are matched in memory against the catalog.
func NewDoctorDirectory(catalog *Catalog, specialties repositories.SpecialtyRepository, search providers.DoctorSearchProvider) *DoctorDirectory {
	return &DoctorDirectory{catalog: catalog, specialties: specialties, search: search}
}

// Catalog returns the underlying catalog
func (d *DoctorDirectory) Catalog() *Catalog {
	return d.catalog
}

// Sync brings catalog doctors' specialty names in line with the stored
// specialties, which another process may have renamed
func (d *DoctorDirectory) Sync(ctx context.Context) error {
	_, err := d.specialtyNames(ctx)
	return err
}

func (d *DoctorDirectory) specialtyNames(ctx context.Context) (map[string]bool, error) {
	list, err := d.specialties.List(ctx)
	if err != nil {
		return nil, err
	}
	if n := d.catalog.SyncSpecialties(list); n > 0 {
		log.Info().Int("doctors", n).Msg("Catalog doctors picked up renamed specialties")
		if err := d.Reindex(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh doctor search index after specialty sync")
		}
	}
	names := make(map[string]bool, len(list))
	for _, sp := range list {
		names[sp.Name] = true
	}
	return names, nil
}

// Bookable returns catalog doctors whose specialty still exists
func (d *DoctorDirectory) Bookable(ctx context.Context, filter DoctorFilter) ([]*entities.Doctor, error) {
	names, err := d.specialtyNames(ctx)
	if err != nil {
		return nil, err
	}
	all := d.catalog.Doctors(filter)
	out := make([]*entities.Doctor, 0, len(all))
	for _, doc := range all {
		if names[doc.Specialty] {
			out = append(out, doc)
		}
	}
	return out, nil
}

// IsBookable reports whether a doctor's specialty still exists. A catalog
// doctor's Specialty is refreshed to its current name first.
func (d *DoctorDirectory) IsBookable(ctx context.Context, doctor *entities.Doctor) (bool, error) {
	names, err := d.specialtyNames(ctx)
	if err != nil {
		return false, err
	}
	if current, err := d.catalog.Doctor(doctor.ID); err == nil {
		doctor.Specialty = current.Specialty
	}
	return names[doctor.Specialty], nil
}

// Search finds bookable doctors by name or specialty
func (d *DoctorDirectory) Search(ctx context.Context, query providers.DoctorSearchQuery) ([]*entities.Doctor, error) {
	bookable, err := d.Bookable(ctx, DoctorFilter{Specialty: query.Specialty, HospitalID: query.HospitalID})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query.Query) == "" {
		return limitDoctors(bookable, query.Limit), nil
	}

	if d.search != nil {
		ids, err := d.search.Search(ctx, query)
		if err == nil {
			byID := make(map[int64]*entities.Doctor, len(bookable))
			for _, doc := range bookable {
				byID[doc.ID] = doc
			}
			out := make([]*entities.Doctor, 0, len(ids))
			for _, id := range ids {
				if doc, ok := byID[id]; ok {
					out = append(out, doc)
				}
			}
			return limitDoctors(out, query.Limit), nil
		}
		log.Warn().Err(err).Str("query", query.Query).Msg("Doctor search index unavailable, falling back to catalog scan")
	}

	q := strings.ToLower(strings.TrimSpace(query.Query))
	out := make([]*entities.Doctor, 0)
	for _, doc := range bookable {
		if strings.Contains(strings.ToLower(doc.Name), q) || strings.Contains(strings.ToLower(doc.Specialty), q) {
			out = append(out, doc)
		}
	}
	return limitDoctors(out, query.Limit), nil
}

// Reindex pushes the whole catalog to the search index
func (d *DoctorDirectory) Reindex(ctx context.Context) error {
	if d.search == nil {
		return nil
	}
	return d.search.Index(ctx, d.catalog.Doctors(DoctorFilter{}))
}

// Indexed reports whether doctor search is backed by a search index
func (d *DoctorDirectory) Indexed() bool {
	return d.search != nil
}

// RenameSpecialty renames the specialty on catalog doctors and refreshes the index
func (d *DoctorDirectory) RenameSpecialty(ctx context.Context, oldName, newName string) int {
	n := d.catalog.RenameSpecialty(oldName, newName)
	if n > 0 {
		if err := d.Reindex(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh doctor search index after rename")
		}
	}
	return n
}

func limitDoctors(doctors []*entities.Doctor, limit int) []*entities.Doctor {
	if limit > 0 && len(doctors) > limit {
		return doctors[:limit]
	}
	return doctors
}
