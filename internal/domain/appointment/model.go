package appointment

import "time"

const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// CollectionAppointment is a sample-collection visit, at home or at a centre.
type CollectionAppointment struct {
	ID              string    `db:"id" json:"name"`
	Patient         string    `db:"patient_id" json:"patient"`
	PatientName     string    `db:"patient_name" json:"patient_name"`
	AppointmentDate string    `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string    `db:"appointment_time" json:"appointment_time"`
	Status          string    `db:"status" json:"status"`
	CollectionType  string    `db:"collection_type" json:"collection_type"`
	AddressLine1    string    `db:"address_line1" json:"address_line1,omitempty"`
	City            string    `db:"city" json:"city,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"creation"`
}

type PatientAppointment struct {
	ID              string    `db:"id" json:"name"`
	Title           string    `db:"title" json:"title"`
	Patient         string    `db:"patient_id" json:"patient"`
	AppointmentType string    `db:"appointment_type" json:"appointment_type"`
	Company         string    `db:"company" json:"company"`
	AppointmentFor  string    `db:"appointment_for" json:"appointment_for"`
	Practitioner    string    `db:"practitioner_id" json:"practitioner"`
	AppointmentDate string    `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string    `db:"appointment_time" json:"appointment_time"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"creation"`
}

type Company struct {
	Name            string `db:"name" json:"name"`
	Abbr            string `db:"abbr" json:"abbr"`
	DefaultCurrency string `db:"default_currency" json:"default_currency"`
	Country         string `db:"country" json:"country"`
	IsGroup         bool   `db:"is_group" json:"is_group"`
}

type AppointmentType struct {
	Name     string `db:"name" json:"appointment_type"`
	Duration int    `db:"duration" json:"duration"`
}

type Practitioner struct {
	ID        string `db:"id" json:"name"`
	FirstName string `db:"first_name" json:"first_name"`
	Status    string `db:"status" json:"status"`
}

// Stats backs the appointment dashboard tiles.
type Stats struct {
	ScheduledToday    int `json:"scheduled_today"`
	PendingCollection int `json:"pending_collection"`
	Completed         int `json:"completed"`
}
