package appointment

import (
	"context"
	"errors"

	"github.com/adimyra/medilims/internal/platform/db"
)

var ErrNotFound = errors.New("not found")

type CollectionRepository interface {
	Create(ctx context.Context, a *CollectionAppointment) error
	// List returns matches by date then time, earliest first.
	List(ctx context.Context, filters db.Filters, limit int) ([]*CollectionAppointment, error)
	Count(ctx context.Context, filters db.Filters) (int, error)
}

type PatientAppointmentRepository interface {
	Create(ctx context.Context, a *PatientAppointment) error
	// List returns matches by date then time, latest first, with the total.
	List(ctx context.Context, filters db.Filters, limit, offset int) ([]*PatientAppointment, int, error)
}

// SetupRepository holds the records a patient appointment depends on.
type SetupRepository interface {
	FirstCompany(ctx context.Context) (*Company, error)
	CreateCompany(ctx context.Context, c *Company) error
	EnsureAppointmentType(ctx context.Context, t *AppointmentType) error
	PractitionerByFirstName(ctx context.Context, firstName string) (*Practitioner, error)
	CreatePractitioner(ctx context.Context, p *Practitioner) error
}
