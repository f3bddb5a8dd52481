package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/adimyra/medilims/internal/platform/db"
	"github.com/adimyra/medilims/internal/platform/rpc"
	"github.com/adimyra/medilims/pkg/pagination"
)

var validGenders = map[string]bool{
	"":       true,
	"Male":   true,
	"Female": true,
	"Other":  true,
}

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

// CreatePatient builds a patient from the dashboard's field map and stores
// it. Unknown fields are ignored.
func (s *Service) CreatePatient(ctx context.Context, data map[string]interface{}) (*Patient, error) {
	fields := rpc.Args(data)
	p := &Patient{
		FirstName: strings.TrimSpace(fields.String("first_name")),
		LastName:  strings.TrimSpace(fields.String("last_name")),
		Gender:    fields.String("gender"),
		MobileNo:  strings.TrimSpace(fields.String("mobile_no")),
	}
	if p.FirstName == "" {
		return nil, fmt.Errorf("first_name is required")
	}
	if !validGenders[p.Gender] {
		return nil, fmt.Errorf("gender must be one of Male, Female, Other")
	}
	dob, err := fields.Date("dob")
	if err != nil {
		return nil, err
	}
	p.DOB = dob

	if err := s.patients.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, filters db.Filters, p pagination.Params) ([]*Patient, int, error) {
	return s.patients.List(ctx, filters, p.PageLen, p.Start)
}

// PatientsByID resolves ids in one round trip. Blank and duplicate ids are
// skipped; unknown ids are simply absent from the result.
func (s *Service) PatientsByID(ctx context.Context, ids []string) (map[string]*Patient, error) {
	seen := make(map[string]bool, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	return s.patients.GetMany(ctx, uniq)
}

func (s *Service) FirstPatient(ctx context.Context) (*Patient, error) {
	return s.patients.First(ctx)
}
