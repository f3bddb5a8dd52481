package lab

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adimyra/medilims/internal/platform/auth"
	"github.com/adimyra/medilims/internal/platform/db"
	"github.com/adimyra/medilims/internal/platform/rpc"
	"github.com/adimyra/medilims/pkg/pagination"
)

// Demo master data seeded by CreateDummySampleWithTests.
const (
	DummySampleType = "Blood"
	DummyDepartment = "Hematology"
	dummyUnit       = "g/dL"
	dummyRange      = "10-20 g/dL"
)

var DummyTestNames = []string{"CBC", "Lipid Profile", "Glucose (Random)"}

// Metrics is satisfied by *telemetry.Metrics.
type Metrics interface {
	SampleCreated(source string)
	ResultRecorded(fromStatus string)
}

type Service struct {
	samples SampleRepository
	results TestResultRepository
	tests   LabTestRepository
	master  MasterDataRepository
	tx      db.Transactor
	metrics Metrics

	now     func() time.Time
	newHash func() string
}

func NewService(samples SampleRepository, results TestResultRepository, tests LabTestRepository, master MasterDataRepository, tx db.Transactor) *Service {
	return &Service{
		samples: samples,
		results: results,
		tests:   tests,
		master:  master,
		tx:      tx,
		now:     time.Now,
		newHash: func() string { return uuid.NewString()[:4] },
	}
}

// SetMetrics attaches optional business counters.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
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

// -- Samples --

// CreateSample builds a sample from the dashboard's field map. Child results
// may be supplied under "sample_test_results" and are stored with the sample.
func (s *Service) CreateSample(ctx context.Context, data map[string]interface{}) (*Sample, error) {
	fields := rpc.Args(data)
	sample := &Sample{
		SampleName: strings.TrimSpace(fields.String("sample_name")),
		SampleType: fields.String("sample_type"),
		Status:     fields.String("status"),
		Patient:    fields.String("patient"),
	}
	if sample.SampleName == "" {
		return nil, fmt.Errorf("sample_name is required")
	}
	if sample.Status == "" {
		sample.Status = SampleReceived
	}
	if !sampleStatuses[sample.Status] {
		return nil, fmt.Errorf("status must be one of Received, In-Progress, Analyzed, Rejected")
	}
	var err error
	if sample.CollectionDate, err = fields.Date("collection_date"); err != nil {
		return nil, err
	}
	if sample.ReceivedDate, err = fields.Date("received_date"); err != nil {
		return nil, err
	}
	children, err := childResults(data["sample_test_results"])
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.samples.Create(ctx, sample); err != nil {
			return fmt.Errorf("create sample: %w", err)
		}
		return s.attachResults(ctx, sample, children)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SampleCreated("api")
	}
	return sample, nil
}

func childResults(raw interface{}) ([]*LabTestResult, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: sample_test_results must be a list", rpc.ErrBadArgs)
	}
	out := make([]*LabTestResult, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: sample_test_results[%d] must be an object", rpc.ErrBadArgs, i)
		}
		f := rpc.Args(m)
		r := &LabTestResult{
			LabTest:        f.String("lab_test"),
			ResultValue:    f.String("result_value"),
			Unit:           f.String("unit"),
			ReferenceRange: f.String("reference_range"),
			Status:         f.String("status"),
			Analyst:        f.String("analyst"),
		}
		if r.LabTest == "" {
			return nil, fmt.Errorf("sample_test_results[%d]: lab_test is required", i)
		}
		if r.Status == "" {
			r.Status = ResultPending
		}
		if r.Status != ResultPending && r.Status != ResultCompleted {
			return nil, fmt.Errorf("sample_test_results[%d]: status must be Pending or Completed", i)
		}
		r.NumericResultValue = parseNumeric(r.ResultValue)
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) attachResults(ctx context.Context, sample *Sample, results []*LabTestResult) error {
	for i, r := range results {
		r.Parent = sample.ID
		r.Idx = i + 1
		if err := s.results.Create(ctx, r); err != nil {
			return fmt.Errorf("create result for %s: %w", r.LabTest, err)
		}
	}
	sample.Results = results
	return nil
}

// GetSample returns a sample with all of its results.
func (s *Service) GetSample(ctx context.Context, id string) (*Sample, error) {
	sample, err := s.samples.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sample.Results, err = s.results.ListByParent(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// ListSamples pages through samples, newest first.
func (s *Service) ListSamples(ctx context.Context, filters db.Filters, p pagination.Params) ([]*Sample, int, error) {
	items, err := s.samples.List(ctx, SampleQuery{Filters: filters, Order: OrderCreatedDesc, Limit: p.PageLen, Offset: p.Start})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.samples.Count(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) RecentSamples(ctx context.Context, limit int) ([]*Sample, error) {
	return s.samples.List(ctx, SampleQuery{Order: OrderModifiedDesc, Limit: limit})
}

// WorklistSamples returns every sample matching filters, newest first.
func (s *Service) WorklistSamples(ctx context.Context, filters db.Filters) ([]*Sample, error) {
	return s.samples.List(ctx, SampleQuery{Filters: filters, Order: OrderCreatedDesc})
}

func (s *Service) CountSamples(ctx context.Context, filters db.Filters) (int, error) {
	return s.samples.Count(ctx, filters)
}

func (s *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	return s.samples.CountByStatus(ctx)
}

func (s *Service) TestNamesBySample(ctx context.Context, ids []string) (map[string][]string, error) {
	return s.results.TestNamesByParents(ctx, ids)
}

// ResultEntrySamples returns up to limit In-Progress samples, least recently
// modified first, each with its Pending and Completed results.
func (s *Service) ResultEntrySamples(ctx context.Context, limit int) ([]*Sample, error) {
	items, err := s.samples.List(ctx, SampleQuery{
		Filters: db.Filters{"status": SampleInProgress},
		Order:   OrderModifiedAsc,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	for _, sample := range items {
		sample.Results, err = s.results.ListByParent(ctx, sample.ID, []string{ResultPending, ResultCompleted})
		if err != nil {
			return nil, fmt.Errorf("results for %s: %w", sample.ID, err)
		}
	}
	return items, nil
}

// -- Results --

// UpdateTestResult records value on a result and marks it Completed. The
// numeric value is set when value parses as a finite number, cleared otherwise.
func (s *Service) UpdateTestResult(ctx context.Context, id, value string) (*LabTestResult, error) {
	if id == "" {
		return nil, fmt.Errorf("test_result_name is required")
	}
	r, err := s.results.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lab test result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	prev := r.Status
	next, err := NextResultStatus(prev, EventRecord)
	if err != nil {
		return nil, err
	}
	r.ResultValue = value
	r.NumericResultValue = parseNumeric(value)
	r.Status = next
	if r.Analyst == "" {
		r.Analyst = auth.UserIDFromContext(ctx)
	}

	if err := s.results.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update result %s: %w", id, err)
	}
	if s.metrics != nil {
		s.metrics.ResultRecorded(prev)
	}
	return r, nil
}

func parseNumeric(v string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// -- Lab tests --

func (s *Service) LabTest(ctx context.Context, name string) (*LabTest, error) {
	return s.tests.GetByName(ctx, name)
}

func (s *Service) PendingReports(ctx context.Context, submittable bool, limit int) ([]*LabTest, error) {
	return s.tests.ListPending(ctx, submittable, limit)
}

// -- Demo data --

// CreateDummySampleWithTests seeds the demo sample type, department and test
// definitions when missing, then creates an In-Progress sample with one
// Pending result per demo test. Everything happens in one transaction.
func (s *Service) CreateDummySampleWithTests(ctx context.Context) (*Sample, error) {
	today := s.today()
	sample := &Sample{
		SampleName:     "Dummy Sample " + s.newHash(),
		SampleType:     DummySampleType,
		CollectionDate: today,
		ReceivedDate:   today,
		Status:         SampleInProgress,
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.master.EnsureSampleType(ctx, DummySampleType); err != nil {
			return fmt.Errorf("ensure sample type: %w", err)
		}
		if err := s.master.EnsureDepartment(ctx, DummyDepartment); err != nil {
			return fmt.Errorf("ensure department: %w", err)
		}
		for _, name := range DummyTestNames {
			if err := s.ensureDummyTest(ctx, name); err != nil {
				return err
			}
		}

		if err := s.samples.Create(ctx, sample); err != nil {
			return fmt.Errorf("create sample: %w", err)
		}
		results := make([]*LabTestResult, 0, len(DummyTestNames))
		for _, name := range DummyTestNames {
			results = append(results, &LabTestResult{
				LabTest:        name,
				Status:         ResultPending,
				Unit:           dummyUnit,
				ReferenceRange: dummyRange,
			})
		}
		return s.attachResults(ctx, sample, results)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SampleCreated("seed")
	}
	return sample, nil
}

func (s *Service) ensureDummyTest(ctx context.Context, name string) error {
	exists, err := s.tests.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("check lab test %s: %w", name, err)
	}
	if exists {
		return nil
	}
	lo, hi := 10.0, 20.0
	t := &LabTest{
		Name:       name,
		Department: DummyDepartment,
		NormalRanges: []NormalRange{{
			Gender:   "Both",
			MinValue: &lo,
			MaxValue: &hi,
			AgeGroup: "Adult",
			Unit:     dummyUnit,
		}},
	}
	if err := s.tests.Create(ctx, t); err != nil {
		return fmt.Errorf("create lab test %s: %w", name, err)
	}
	return nil
}
