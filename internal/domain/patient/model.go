package patient

import (
	"strings"
	"time"
)

// Patient maps to the patient table. ID is exposed as "name", the record
// identifier the dashboard links samples and appointments by.
type Patient struct {
	ID         string    `db:"id" json:"name"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Gender     string    `db:"gender" json:"gender"`
	DOB        string    `db:"dob" json:"dob"`
	MobileNo   string    `db:"mobile_no" json:"mobile_no"`
	CreatedAt  time.Time `db:"created_at" json:"creation"`
	ModifiedAt time.Time `db:"modified_at" json:"modified"`
}

// FullName joins first and last name, tolerating a missing last name.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
