package entities

import (
	"time"
)

// Role is the kind of account
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor || r == RoleAdmin
}

// Account represents a user of the system
type Account struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Phone        string `json:"phone" db:"phone"`
	Role         Role   `json:"role" db:"role"`

	// Patient only
	PatientCode string `json:"patientCode,omitempty" db:"patient_code"`

	// Doctor only
	Specialty   string  `json:"specialty,omitempty" db:"specialty"`
	HospitalIDs []int64 `json:"hospitalIds,omitempty" db:"hospital_ids"`
	DoctorID    int64   `json:"doctorId,omitempty" db:"doctor_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy
func (a *Account) Clone() *Account {
	c := *a
	if a.HospitalIDs != nil {
		c.HospitalIDs = append([]int64(nil), a.HospitalIDs...)
	}
	return &c
}

// WorksAt reports whether a doctor account is affiliated with the hospital
func (a *Account) WorksAt(hospitalID int64) bool {
	for _, id := range a.HospitalIDs {
		if id == hospitalID {
			return true
		}
	}
	return false
}

// Session is the authenticated account of one client
type Session struct {
	Token     string    `json:"token"`
	AccountID int64     `json:"accountId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
