package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adimyra/medilims/internal/domain/patient"
	"github.com/adimyra/medilims/internal/platform/capability"
	"github.com/adimyra/medilims/internal/platform/db"
	"github.com/adimyra/medilims/pkg/pagination"
)

const queueLimit = 20

// Demo records used by CreateDummyPatientAppointment.
const (
	DummyCompany         = "MediLIMS Lab"
	DummyCompanyAbbr     = "ML"
	DummyAppointmentType = "Checkup"
	DummyPractitioner    = "Dr. Test"
)

var (
	ErrCollectionUnavailable         = errors.New("Collection Appointment record type not available")
	ErrPatientAppointmentUnavailable = errors.New("Patient Appointment record type not available")
	ErrNoPatients                    = errors.New("No patients found. Create a patient first.")
)

// PatientFinder is satisfied by *patient.Service.
type PatientFinder interface {
	FirstPatient(ctx context.Context) (*patient.Patient, error)
}

type Service struct {
	collections CollectionRepository
	visits      PatientAppointmentRepository
	setup       SetupRepository
	patients    PatientFinder
	caps        capability.Checker
	tx          db.Transactor

	now func() time.Time
}

func NewService(collections CollectionRepository, visits PatientAppointmentRepository, setup SetupRepository,
	patients PatientFinder, caps capability.Checker, tx db.Transactor) *Service {
	return &Service{
		collections: collections,
		visits:      visits,
		setup:       setup,
		patients:    patients,
		caps:        caps,
		tx:          tx,
		now:         time.Now,
	}
}

func (s *Service) enabled(name string) bool {
	return s.caps != nil && s.caps.Enabled(name)
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.InTx(ctx, fn)
}

func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}

// -- Collection appointments --

// Upcoming returns the next non-cancelled collection appointments. It is
// empty when collection appointments are not available.
func (s *Service) Upcoming(ctx context.Context) ([]*CollectionAppointment, error) {
	if !s.enabled(capability.CollectionAppointment) {
		return []*CollectionAppointment{}, nil
	}
	return s.collections.List(ctx, db.Filters{
		"status": []interface{}{"!=", StatusCancelled},
	}, queueLimit)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if !s.enabled(capability.CollectionAppointment) {
		return st, nil
	}
	today := s.today()

	var err error
	if st.ScheduledToday, err = s.collections.Count(ctx, db.Filters{
		"appointment_date": today,
		"status":           StatusScheduled,
	}); err != nil {
		return Stats{}, fmt.Errorf("count scheduled today: %w", err)
	}
	if st.PendingCollection, err = s.collections.Count(ctx, db.Filters{
		"appointment_date": []interface{}{"<=", today},
		"status":           StatusScheduled,
	}); err != nil {
		return Stats{}, fmt.Errorf("count pending collection: %w", err)
	}
	if st.Completed, err = s.collections.Count(ctx, db.Filters{
		"status": []interface{}{"in", []interface{}{StatusCompleted}},
	}); err != nil {
		return Stats{}, fmt.Errorf("count completed: %w", err)
	}
	return st, nil
}

// PhlebotomyQueue returns the scheduled collections, earliest first.
func (s *Service) PhlebotomyQueue(ctx context.Context) ([]*CollectionAppointment, error) {
	if !s.enabled(capability.CollectionAppointment) {
		return []*CollectionAppointment{}, nil
	}
	return s.collections.List(ctx, db.Filters{"status": StatusScheduled}, queueLimit)
}

// CreateDummyCollectionAppointment books a home collection for the most
// recently modified patient at 09:00 today.
func (s *Service) CreateDummyCollectionAppointment(ctx context.Context) (*CollectionAppointment, error) {
	if !s.enabled(capability.CollectionAppointment) {
		return nil, ErrCollectionUnavailable
	}
	p, err := s.firstPatient(ctx)
	if err != nil {
		return nil, err
	}

	a := &CollectionAppointment{
		Patient:         p.ID,
		PatientName:     p.FullName(),
		AppointmentDate: s.today(),
		AppointmentTime: "09:00:00",
		Status:          StatusScheduled,
		CollectionType:  "Home Collection",
		AddressLine1:    "123 Main St, Tech Park",
		City:            "Bangalore",
	}
	if err := s.collections.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create collection appointment: %w", err)
	}
	return a, nil
}

// -- Patient appointments --

func (s *Service) ListPatientAppointments(ctx context.Context, filters db.Filters, page pagination.Params) ([]*PatientAppointment, int, error) {
	if !s.enabled(capability.PatientAppointment) {
		return []*PatientAppointment{}, 0, nil
	}
	return s.visits.List(ctx, filters, page.PageLen, page.Start)
}

// CreateDummyPatientAppointment schedules a checkup for today, creating the
// company, appointment type and practitioner it references when missing.
func (s *Service) CreateDummyPatientAppointment(ctx context.Context) (*PatientAppointment, error) {
	if !s.enabled(capability.PatientAppointment) {
		return nil, ErrPatientAppointmentUnavailable
	}
	p, err := s.firstPatient(ctx)
	if err != nil {
		return nil, err
	}

	a := &PatientAppointment{
		Title:           "Checkup for " + p.ID,
		Patient:         p.ID,
		AppointmentType: DummyAppointmentType,
		AppointmentFor:  "Practitioner",
		AppointmentDate: s.today(),
		Status:          StatusScheduled,
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		company, err := s.ensureCompany(ctx)
		if err != nil {
			return err
		}
		a.Company = company

		if err := s.setup.EnsureAppointmentType(ctx, &AppointmentType{Name: DummyAppointmentType, Duration: 15}); err != nil {
			return fmt.Errorf("ensure appointment type: %w", err)
		}

		pr, err := s.ensurePractitioner(ctx)
		if err != nil {
			return err
		}
		a.Practitioner = pr

		if err := s.visits.Create(ctx, a); err != nil {
			return fmt.Errorf("create patient appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ensureCompany(ctx context.Context) (string, error) {
	c, err := s.setup.FirstCompany(ctx)
	if err == nil {
		return c.Name, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("find company: %w", err)
	}
	c = &Company{
		Name:            DummyCompany,
		Abbr:            DummyCompanyAbbr,
		DefaultCurrency: "INR",
		Country:         "India",
	}
	if err := s.setup.CreateCompany(ctx, c); err != nil {
		return "", fmt.Errorf("create company: %w", err)
	}
	return c.Name, nil
}

func (s *Service) ensurePractitioner(ctx context.Context) (string, error) {
	pr, err := s.setup.PractitionerByFirstName(ctx, DummyPractitioner)
	if err == nil {
		return pr.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("find practitioner: %w", err)
	}
	pr = &Practitioner{FirstName: DummyPractitioner, Status: "Active"}
	if err := s.setup.CreatePractitioner(ctx, pr); err != nil {
		return "", fmt.Errorf("create practitioner: %w", err)
	}
	return pr.ID, nil
}

func (s *Service) firstPatient(ctx context.Context) (*patient.Patient, error) {
	p, err := s.patients.FirstPatient(ctx)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, ErrNoPatients
	}
	if err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return p, nil
}
