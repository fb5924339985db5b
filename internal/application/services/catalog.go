package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hospital-booking/backend/pkg/errors"
)

// Catalog holds the static hospitals, bookable doctors and the daily slot grid.
// Doctors' specialty names follow specialty renames.
type Catalog struct {
	mu        sync.RWMutex
	hospitals []*entities.Hospital
	doctors   []*entities.Doctor
	slots     []entities.TimeSlot
}

// NewCatalog creates a catalog from explicit data
func NewCatalog(hospitals []*entities.Hospital, doctors []*entities.Doctor, slots []entities.TimeSlot) *Catalog {
	return &Catalog{
		hospitals: hospitals,
		doctors:   doctors,
		slots:     slots,
	}
}

// DefaultCatalog returns the built-in catalog of five hospitals and eighteen doctors
func DefaultCatalog() *Catalog {
	hospitals := []*entities.Hospital{
		{ID: 1, Name: "Bệnh viện Bạch Mai", Address: "78 Giải Phóng, Đống Đa, Hà Nội", Phone: "024-3869-3731", Email: "contact@bachmai.gov.vn"},
		{ID: 2, Name: "Bệnh viện Việt Đức", Address: "40 Tràng Thi, Hoàn Kiếm, Hà Nội", Phone: "024-3825-3531", Email: "contact@vietduc.org"},
		{ID: 3, Name: "Bệnh viện Chợ Rẫy", Address: "201B Nguyễn Chí Thanh, Quận 5, TP.HCM", Phone: "028-3855-4137", Email: "contact@choray.vn"},
		{ID: 4, Name: "Bệnh viện Nhi Đồng 1", Address: "341 Sư Vạn Hạnh, Quận 10, TP.HCM", Phone: "028-3927-1119", Email: "contact@nhidong1.org"},
		{ID: 5, Name: "Bệnh viện Đa khoa Trung ương Huế", Address: "16 Lê Lợi, TP. Huế", Phone: "0234-3822-325", Email: "contact@huehospital.org"},
	}

	doctor := func(id int64, name, specialty string, hospitalID int64, years int, rating float64) *entities.Doctor {
		return &entities.Doctor{
			ID:           id,
			Name:         name,
			Specialty:    specialty,
			HospitalID:   hospitalID,
			Avatar:       fmt.Sprintf("assets/images/doctor%d.jpg", id),
			Experience:   fmt.Sprintf("%d năm", years),
			Rating:       rating,
			SpecialtyKey: specialty,
		}
	}

	doctors := []*entities.Doctor{
		doctor(1, "Bác sĩ Trần Thị B", "Tim mạch", 1, 15, 4.8),
		doctor(2, "Bác sĩ Nguyễn Văn C", "Nội khoa", 1, 12, 4.6),
		doctor(3, "Bác sĩ Lê Thị D", "Ngoại khoa", 2, 18, 4.9),
		doctor(4, "Bác sĩ Phạm Văn E", "Nhi khoa", 4, 10, 4.7),
		doctor(5, "Bác sĩ Hoàng Thị F", "Da liễu", 3, 8, 4.5),
		doctor(6, "Bác sĩ Vũ Văn G", "Mắt", 5, 14, 4.8),
		doctor(7, "Bác sĩ Nguyễn Thị H", "Tim mạch", 2, 13, 4.7),
		doctor(8, "Bác sĩ Trần Văn I", "Nội khoa", 3, 11, 4.6),
		doctor(9, "Bác sĩ Lê Văn K", "Tim mạch", 3, 16, 4.9),
		doctor(10, "Bác sĩ Phạm Thị L", "Nội khoa", 2, 14, 4.8),
		doctor(11, "Bác sĩ Hoàng Văn M", "Ngoại khoa", 1, 20, 4.9),
		doctor(12, "Bác sĩ Vũ Thị N", "Ngoại khoa", 3, 17, 4.7),
		doctor(13, "Bác sĩ Trần Thị O", "Nhi khoa", 1, 12, 4.8),
		doctor(14, "Bác sĩ Nguyễn Văn P", "Nhi khoa", 2, 9, 4.6),
		doctor(15, "Bác sĩ Lê Văn Q", "Da liễu", 1, 11, 4.7),
		doctor(16, "Bác sĩ Phạm Thị R", "Da liễu", 2, 13, 4.8),
		doctor(17, "Bác sĩ Trần Văn S", "Mắt", 1, 16, 4.9),
		doctor(18, "Bác sĩ Nguyễn Thị T", "Mắt", 3, 12, 4.7),
	}

	return NewCatalog(hospitals, doctors, entities.DefaultTimeSlots)
}

// DefaultSpecialties are the specialties seeded into an empty store
func DefaultSpecialties() []*entities.Specialty {
	return []*entities.Specialty{
		{Name: "Tim mạch", CatalogKey: "Tim mạch", Icon: "fas fa-heartbeat", Description: "Chuyên điều trị các bệnh về tim mạch"},
		{Name: "Nội khoa", CatalogKey: "Nội khoa", Icon: "fas fa-stethoscope", Description: "Chuyên điều trị các bệnh nội khoa"},
		{Name: "Ngoại khoa", CatalogKey: "Ngoại khoa", Icon: "fas fa-user-md", Description: "Chuyên phẫu thuật và điều trị ngoại khoa"},
		{Name: "Nhi khoa", CatalogKey: "Nhi khoa", Icon: "fas fa-baby", Description: "Chuyên điều trị bệnh nhi"},
		{Name: "Da liễu", CatalogKey: "Da liễu", Icon: "fas fa-allergies", Description: "Chuyên điều trị các bệnh về da"},
		{Name: "Mắt", CatalogKey: "Mắt", Icon: "fas fa-eye", Description: "Chuyên điều trị các bệnh về mắt"},
	}
}

// Hospitals returns every hospital
func (c *Catalog) Hospitals() []*entities.Hospital {
	out := make([]*entities.Hospital, len(c.hospitals))
	for i, h := range c.hospitals {
		hc := *h
		out[i] = &hc
	}
	return out
}

// Hospital returns a hospital by ID
func (c *Catalog) Hospital(id int64) (*entities.Hospital, error) {
	for _, h := range c.hospitals {
		if h.ID == id {
			hc := *h
			return &hc, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("hospital %d not found", id))
}

// DoctorFilter narrows Doctors; zero values are ignored
type DoctorFilter struct {
	Specialty  string
	HospitalID int64
}

// Doctors returns doctors ordered by ID
func (c *Catalog) Doctors(filter DoctorFilter) []*entities.Doctor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*entities.Doctor, 0, len(c.doctors))
	for _, d := range c.doctors {
		if filter.Specialty != "" && d.Specialty != filter.Specialty {
			continue
		}
		if filter.HospitalID != 0 && d.HospitalID != filter.HospitalID {
			continue
		}
		dc := *d
		out = append(out, &dc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Doctor returns a doctor by ID
func (c *Catalog) Doctor(id int64) (*entities.Doctor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.doctors {
		if d.ID == id {
			dc := *d
			return &dc, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor %d not found", id))
}

// Slots returns the daily grid
func (c *Catalog) Slots() []entities.TimeSlot {
	return append([]entities.TimeSlot(nil), c.slots...)
}

// Slot returns the grid slot starting at start
func (c *Catalog) Slot(start string) (entities.TimeSlot, error) {
	for _, s := range c.slots {
		if s.Start == start {
			return s, nil
		}
	}
	return entities.TimeSlot{}, apperrors.NewValidationError(fmt.Sprintf("time %q is not a bookable slot", start))
}

// SyncSpecialties gives every doctor the current name of the specialty whose
// catalog key it carries. Doctors whose specialty record is gone keep their
// name. It returns how many doctors changed.
func (c *Catalog) SyncSpecialties(specialties []*entities.Specialty) int {
	byKey := make(map[string]string, len(specialties))
	for _, sp := range specialties {
		if sp.CatalogKey != "" {
			byKey[sp.CatalogKey] = sp.Name
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, d := range c.doctors {
		name, ok := byKey[d.SpecialtyKey]
		if !ok || name == d.Specialty {
			continue
		}
		d.Specialty = name
		n++
	}
	return n
}

// RenameSpecialty moves every doctor of oldName to newName and returns how many changed
func (c *Catalog) RenameSpecialty(oldName, newName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, d := range c.doctors {
		if d.Specialty == oldName {
			d.Specialty = newName
			n++
		}
	}
	return n
}
