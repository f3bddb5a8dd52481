package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adimyra/medilims/internal/domain/lab"
	"github.com/adimyra/medilims/internal/domain/patient"
	"github.com/adimyra/medilims/internal/domain/worklist"
	"github.com/adimyra/medilims/internal/platform/capability"
	"github.com/adimyra/medilims/internal/platform/db"
)

const (
	recentActivityLimit = 5
	resultEntryLimit    = 20
	pendingReportsLimit = 20
)

// SampleReader is satisfied by *lab.Service.
type SampleReader interface {
	CountSamples(ctx context.Context, filters db.Filters) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	RecentSamples(ctx context.Context, limit int) ([]*lab.Sample, error)
	WorklistSamples(ctx context.Context, filters db.Filters) ([]*lab.Sample, error)
	TestNamesBySample(ctx context.Context, ids []string) (map[string][]string, error)
	ResultEntrySamples(ctx context.Context, limit int) ([]*lab.Sample, error)
	LabTest(ctx context.Context, name string) (*lab.LabTest, error)
	PendingReports(ctx context.Context, submittable bool, limit int) ([]*lab.LabTest, error)
}

// PatientReader is satisfied by *patient.Service.
type PatientReader interface {
	PatientsByID(ctx context.Context, ids []string) (map[string]*patient.Patient, error)
}

type DoctypeCounts struct {
	TotalSamples      int `json:"total_samples"`
	SamplesInProgress int `json:"samples_in_progress"`
	ReportsPending    int `json:"reports_pending"`
}

type Activity struct {
	Name       string    `json:"name"`
	SampleName string    `json:"sample_name"`
	Status     string    `json:"status"`
	Modified   time.Time `json:"modified"`
}

// ResultEntry is an In-Progress sample with the results still open for entry
// or review.
type ResultEntry struct {
	Name              string               `json:"name"`
	SampleName        string               `json:"sample_name"`
	Status            string               `json:"status"`
	SampleTestResults []*lab.LabTestResult `json:"sample_test_results"`
}

type PendingReport struct {
	Name         string    `json:"name"`
	PatientName  string    `json:"patient_name"`
	TemplateName string    `json:"template_name"`
	Creation     time.Time `json:"creation"`
}

type Service struct {
	samples  SampleReader
	patients PatientReader
	caps     capability.Checker
}

func NewService(samples SampleReader, patients PatientReader, caps capability.Checker) *Service {
	return &Service{samples: samples, patients: patients, caps: caps}
}

// DoctypeCounts returns the headline tiles. reports_pending counts
// In-Progress samples until report tracking exists.
func (s *Service) DoctypeCounts(ctx context.Context) (DoctypeCounts, error) {
	total, err := s.samples.CountSamples(ctx, nil)
	if err != nil {
		return DoctypeCounts{}, fmt.Errorf("count samples: %w", err)
	}
	inProgress, err := s.samples.CountSamples(ctx, db.Filters{"status": lab.SampleInProgress})
	if err != nil {
		return DoctypeCounts{}, fmt.Errorf("count in-progress samples: %w", err)
	}
	return DoctypeCounts{
		TotalSamples:      total,
		SamplesInProgress: inProgress,
		ReportsPending:    inProgress,
	}, nil
}

func (s *Service) RecentActivity(ctx context.Context) ([]Activity, error) {
	items, err := s.samples.RecentSamples(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Activity, 0, len(items))
	for _, smp := range items {
		out = append(out, Activity{
			Name:       smp.ID,
			SampleName: smp.SampleName,
			Status:     smp.Status,
			Modified:   smp.ModifiedAt,
		})
	}
	return out, nil
}

func (s *Service) SampleStats(ctx context.Context) (worklist.SampleStats, error) {
	counts, err := s.samples.CountByStatus(ctx)
	if err != nil {
		return worklist.SampleStats{}, err
	}
	return worklist.AggregateDashboardCounts(counts), nil
}

// SampleWorklist lists samples newest first, projected for display. status
// is the worklist selector: "", "All", "Pending" or a raw sample status.
func (s *Service) SampleWorklist(ctx context.Context, status string) ([]worklist.Item, error) {
	var filters db.Filters
	if raw, ok := worklist.WorklistFilter(status); ok {
		filters = db.Filters{"status": raw}
	}
	samples, err := s.samples.WorklistSamples(ctx, filters)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(samples))
	var patientIDs []string
	for _, smp := range samples {
		ids = append(ids, smp.ID)
		if smp.Patient != "" {
			patientIDs = append(patientIDs, smp.Patient)
		}
	}

	patients := map[string]*patient.Patient{}
	if len(patientIDs) > 0 {
		if patients, err = s.patients.PatientsByID(ctx, patientIDs); err != nil {
			return nil, fmt.Errorf("load patients: %w", err)
		}
	}
	testNames := map[string][]string{}
	if len(ids) > 0 {
		if testNames, err = s.samples.TestNamesBySample(ctx, ids); err != nil {
			return nil, fmt.Errorf("load test names: %w", err)
		}
	}
	return worklist.ProjectSampleWorklist(samples, patients, testNames), nil
}

// SamplesForResultEntry returns In-Progress samples with their open results.
// Results without a reference range get one built from their test
// definition's first normal range.
func (s *Service) SamplesForResultEntry(ctx context.Context) ([]ResultEntry, error) {
	samples, err := s.samples.ResultEntrySamples(ctx, resultEntryLimit)
	if err != nil {
		return nil, err
	}

	defs := make(map[string]*lab.LabTest)
	out := make([]ResultEntry, 0, len(samples))
	for _, smp := range samples {
		for _, r := range smp.Results {
			if r.ReferenceRange != "" || r.LabTest == "" {
				continue
			}
			def, seen := defs[r.LabTest]
			if !seen {
				def, err = s.samples.LabTest(ctx, r.LabTest)
				if errors.Is(err, lab.ErrNotFound) {
					def, err = nil, nil
				}
				if err != nil {
					return nil, fmt.Errorf("lab test %s: %w", r.LabTest, err)
				}
				defs[r.LabTest] = def
			}
			if text, ok := worklist.BuildReferenceRangeText(def); ok {
				r.ReferenceRange = text
			}
		}

		results := smp.Results
		if results == nil {
			results = []*lab.LabTestResult{}
		}
		out = append(out, ResultEntry{
			Name:              smp.ID,
			SampleName:        smp.SampleName,
			Status:            smp.Status,
			SampleTestResults: results,
		})
	}
	return out, nil
}

// PendingReports lists lab tests ready for reporting: submitted ones when lab
// tests are submittable, Completed ones otherwise.
func (s *Service) PendingReports(ctx context.Context) ([]PendingReport, error) {
	submittable := s.caps != nil && s.caps.Enabled(capability.LabTestSubmittable)
	tests, err := s.samples.PendingReports(ctx, submittable, pendingReportsLimit)
	if err != nil {
		return nil, err
	}
	out := make([]PendingReport, 0, len(tests))
	for _, t := range tests {
		out = append(out, PendingReport{
			Name:         t.Name,
			PatientName:  t.PatientName,
			TemplateName: t.TemplateName,
			Creation:     t.CreatedAt,
		})
	}
	return out, nil
}
