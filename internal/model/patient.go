package model

import "time"

// Patient types determine which billing and authorization rules apply.
const (
	PatientTypeRegular = "regular"
	PatientTypeNHIA    = "nhia"
	PatientTypePrivate = "private"
)

type Patient struct {
	Base
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	PatientType string     `db:"patient_type" json:"patient_type"`
	NHIANumber  *string    `db:"nhia_number" json:"nhia_number,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      string     `db:"gender" json:"gender"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// IsNHIA reports whether NHIA billing and authorization rules apply.
func (p *Patient) IsNHIA() bool {
	return p.PatientType == PatientTypeNHIA
}
