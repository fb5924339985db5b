package entities

import "strings"

// Hospital is a static catalog entry
type Hospital struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Specialty is a medical specialty managed by admins.
// Doctors and appointments refer to it by name. CatalogKey is the built-in
// name a seeded specialty started with; it survives renames so catalog
// doctors can find their specialty again. Admin-created specialties have none.
type Specialty struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Icon        string `json:"icon" db:"icon"`
	Description string `json:"description" db:"description"`
	CatalogKey  string `json:"catalogKey,omitempty" db:"catalog_key"`
}

// ValidIcon reports whether the icon uses one of the supported font-awesome prefixes
func (s *Specialty) ValidIcon() bool {
	return strings.HasPrefix(s.Icon, "fas fa-") ||
		strings.HasPrefix(s.Icon, "far fa-") ||
		strings.HasPrefix(s.Icon, "fab fa-")
}

// Doctor is a catalog entry bookable through the wizard
type Doctor struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Specialty  string  `json:"specialty"`
	HospitalID int64   `json:"hospitalId"`
	Avatar     string  `json:"avatar"`
	Experience string  `json:"experience"`
	Rating     float64 `json:"rating"`

	// SpecialtyKey matches Specialty.CatalogKey
	SpecialtyKey string `json:"-"`
}

// TimeSlot is one fixed 30-minute interval of the daily grid
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Label returns the display range, e.g. "08:00 - 08:30"
func (t TimeSlot) Label() string {
	return t.Start + " - " + t.End
}

// DefaultTimeSlots is the daily grid: morning 08:00-11:00, afternoon 14:00-17:00
var DefaultTimeSlots = []TimeSlot{
	{Start: "08:00", End: "08:30"},
	{Start: "08:30", End: "09:00"},
	{Start: "09:00", End: "09:30"},
	{Start: "09:30", End: "10:00"},
	{Start: "10:00", End: "10:30"},
	{Start: "10:30", End: "11:00"},
	{Start: "14:00", End: "14:30"},
	{Start: "14:30", End: "15:00"},
	{Start: "15:00", End: "15:30"},
	{Start: "15:30", End: "16:00"},
	{Start: "16:00", End: "16:30"},
	{Start: "16:30", End: "17:00"},
}

// SlotView is a grid slot annotated for one doctor and date
type SlotView struct {
	TimeSlot
	Label     string `json:"label"`
	Booked    bool   `json:"booked"`
	Past      bool   `json:"past"`
	Pinned    bool   `json:"pinned"`
	Available bool   `json:"available"`
}

// DateStatus is the calendar-cell signal for one date
type DateStatus string

const (
	DateStatusAvailable DateStatus = "available"
	DateStatusBooked    DateStatus = "booked"
	DateStatusPast      DateStatus = "past"
)

// CalendarDay is one day of a doctor's month view
type CalendarDay struct {
	Date    string     `json:"date"`
	Status  DateStatus `json:"status"`
	Booked  int        `json:"booked"`
	IsToday bool       `json:"isToday"`
}
