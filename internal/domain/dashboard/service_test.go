package dashboard

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/adimyra/medilims/internal/domain/lab"
	"github.com/adimyra/medilims/internal/domain/patient"
	"github.com/adimyra/medilims/internal/platform/capability"
	"github.com/adimyra/medilims/internal/platform/db"
)

// -- Fakes --

type fakeSamples struct {
	samples     []*lab.Sample
	results     map[string][]*lab.LabTestResult
	tests       map[string]*lab.LabTest
	testLookups int
	pending     map[bool][]*lab.LabTest
	lastLimit   int
	failCount   error
}

func newFakeSamples() *fakeSamples {
	return &fakeSamples{
		results: make(map[string][]*lab.LabTestResult),
		tests:   make(map[string]*lab.LabTest),
		pending: make(map[bool][]*lab.LabTest),
	}
}

func (f *fakeSamples) filter(filters db.Filters) []*lab.Sample {
	var out []*lab.Sample
	for _, s := range f.samples {
		if want, ok := filters["status"]; ok && s.Status != want {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (f *fakeSamples) CountSamples(_ context.Context, filters db.Filters) (int, error) {
	if f.failCount != nil {
		return 0, f.failCount
	}
	return len(f.filter(filters)), nil
}

func (f *fakeSamples) CountByStatus(_ context.Context) (map[string]int, error) {
	out := make(map[string]int)
	for _, s := range f.samples {
		out[s.Status]++
	}
	return out, nil
}

func (f *fakeSamples) RecentSamples(_ context.Context, limit int) ([]*lab.Sample, error) {
	out := append([]*lab.Sample(nil), f.samples...)
	sort.Slice(out, func(i, j int) bool { return out[i].ModifiedAt.After(out[j].ModifiedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSamples) WorklistSamples(_ context.Context, filters db.Filters) ([]*lab.Sample, error) {
	return f.filter(filters), nil
}

func (f *fakeSamples) TestNamesBySample(_ context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, id := range ids {
		for _, r := range f.results[id] {
			if r.LabTest != "" {
				out[id] = append(out[id], r.LabTest)
			}
		}
	}
	return out, nil
}

func (f *fakeSamples) ResultEntrySamples(_ context.Context, limit int) ([]*lab.Sample, error) {
	f.lastLimit = limit
	var out []*lab.Sample
	for _, s := range f.filter(db.Filters{"status": lab.SampleInProgress}) {
		s.Results = f.results[s.ID]
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSamples) LabTest(_ context.Context, name string) (*lab.LabTest, error) {
	f.testLookups++
	t, ok := f.tests[name]
	if !ok {
		return nil, lab.ErrNotFound
	}
	return t, nil
}

func (f *fakeSamples) PendingReports(_ context.Context, submittable bool, limit int) ([]*lab.LabTest, error) {
	f.lastLimit = limit
	return f.pending[submittable], nil
}

type fakePatients struct {
	patients map[string]*patient.Patient
	calls    int
}

func (f *fakePatients) PatientsByID(_ context.Context, ids []string) (map[string]*patient.Patient, error) {
	f.calls++
	out := make(map[string]*patient.Patient)
	for _, id := range ids {
		if p, ok := f.patients[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func ptr(f float64) *float64 { return &f }

var base = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *fakeSamples, *fakePatients, *capability.Registry) {
	samples := newFakeSamples()
	patients := &fakePatients{patients: map[string]*patient.Patient{
		"PAT-00001": {ID: "PAT-00001", FirstName: "Asha", LastName: "Rao"},
		"PAT-00002": {ID: "PAT-00002", FirstName: "Ravi"},
	}}
	caps := capability.NewRegistry()
	return NewService(samples, patients, caps), samples, patients, caps
}

// -- Counts --

func TestDoctypeCounts(t *testing.T) {
	svc, samples, _, _ := newTestService()
	samples.samples = []*lab.Sample{
		{ID: "SMP-00001", Status: lab.SampleReceived},
		{ID: "SMP-00002", Status: lab.SampleInProgress},
		{ID: "SMP-00003", Status: lab.SampleInProgress},
		{ID: "SMP-00004", Status: lab.SampleRejected},
	}

	got, err := svc.DoctypeCounts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := DoctypeCounts{TotalSamples: 4, SamplesInProgress: 2, ReportsPending: 2}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestDoctypeCounts_StoreError(t *testing.T) {
	svc, samples, _, _ := newTestService()
	samples.failCount = errors.New("connection refused")

	if _, err := svc.DoctypeCounts(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSampleStats_RenamesCounts(t *testing.T) {
	svc, samples, _, _ := newTestService()
	samples.samples = []*lab.Sample{
		{ID: "SMP-00001", Status: lab.SampleReceived},
		{ID: "SMP-00002", Status: lab.SampleReceived},
		{ID: "SMP-00003", Status: lab.SampleInProgress},
		{ID: "SMP-00004", Status: lab.SampleAnalyzed},
		{ID: "SMP-00005", Status: "Disposed"},
	}

	st, err := svc.SampleStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.PendingAccession != 2 || st.Accessioned != 1 || st.Processing != 1 || st.Rejected != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestRecentActivity_LimitedAndOrdered(t *testing.T) {
	svc, samples, _, _ := newTestService()
	for i := 0; i < 7; i++ {
		samples.samples = append(samples.samples, &lab.Sample{
			ID:         "SMP-0000" + string(rune('1'+i)),
			SampleName: "Sample",
			Status:     lab.SampleReceived,
			ModifiedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	items, err := svc.RecentActivity(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	if items[0].Name != "SMP-00007" || !items[0].Modified.Equal(base.Add(6*time.Minute)) {
		t.Errorf("expected most recent first, got %+v", items[0])
	}
}

// -- Worklist --

func TestSampleWorklist_EndToEnd(t *testing.T) {
	svc, samples, _, _ := newTestService()
	samples.samples = []*lab.Sample{{
		ID: "SMP-00001", SampleName: "SMP-a1b2", Patient: "PAT-00001",
		CollectionDate: "2026-10-19", Status: lab.SampleInProgress,
	}}
	samples.results["SMP-00001"] = []*lab.LabTestResult{{LabTest: "CBC"}, {LabTest: "Glucose"}}

	items, err := svc.SampleWorklist(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.TestInfo != "CBC, Glucose" {
		t.Errorf("expected test_info %q, got %q", "CBC, Glucose", it.TestInfo)
	}
	if it.UIStatus != "Accessioned" || it.StatusColor != "blue" {
		t.Errorf("expected Accessioned/blue, got %s/%s", it.UIStatus, it.StatusColor)
	}
	if it.PatientName != "Asha Rao" || it.PatientUHID != "PAT-00001" {
		t.Errorf("unexpected patient fields: %+v", it)
	}
}

func TestSampleWorklist_StatusSelector(t *testing.T) {
	svc, samples, _, _ := newTestService()
	samples.samples = []*lab.Sample{
		{ID: "SMP-00001", Status: lab.SampleReceived},
		{ID: "SMP-00002", Status: lab.SampleInProgress},
		{ID: "SMP-00003", Status: lab.SampleRejected},
	}
	ctx := context.Background()

	tests := []struct {
		status string
		want   int
	}{
		{"", 3},
		{"All", 3},
		{"Pending", 1},
		{lab.SampleRejected, 1},
		{lab.SampleAnalyzed, 0},
	}
	for _, tt := range tests {
		items, err := svc.SampleWorklist(ctx, tt.status)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.status, err)
		}
		if len(items) != tt.want {
			t.Errorf("%q: expected %d items, got %d", tt.status, tt.want, len(items))
		}
	}

	items, _ := svc.SampleWorklist(ctx, "Pending")
	if items[0].Status != lab.SampleReceived || items[0].UIStatus != "Pending" {
		t.Errorf("Pending should select Received samples, got %+v", items[0])
	}
}

func TestSampleWorklist_NoPatientsOrResults(t *testing.T) {
	svc, samples, patients, _ := newTestService()
	samples.samples = []*lab.Sample{{ID: "SMP-00001", Status: "Disposed"}}

	items, err := svc.SampleWorklist(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patients.calls != 0 {
		t.Errorf("expected no patient lookup, got %d", patients.calls)
	}
	it := items[0]
	if it.TestInfo != "" || it.PatientName != "" || it.PatientUHID != "" {
		t.Errorf("expected empty derived fields, got %+v", it)
	}
	if it.UIStatus != "Disposed" || it.StatusColor != "gray" {
		t.Errorf("expected pass-through status, got %s/%s", it.UIStatus, it.StatusColor)
	}
}

// -- Result entry --

func TestSamplesForResultEntry_ReferenceRangeFallback(t *testing.T) {
	svc, samples, _, _ := newTestService()
	samples.samples = []*lab.Sample{
		{ID: "SMP-00001", SampleName: "SMP-a1b2", Status: lab.SampleInProgress},
		{ID: "SMP-00002", SampleName: "SMP-c3d4", Status: lab.SampleInProgress},
		{ID: "SMP-00003", Status: lab.SampleReceived},
	}
	samples.results["SMP-00001"] = []*lab.LabTestResult{
		{ID: "r1", LabTest: "CBC"},
		{ID: "r2", LabTest: "Glucose", ReferenceRange: "70-140 mg/dL"},
		{ID: "r3", LabTest: "Unknown"},
	}
	samples.results["SMP-00002"] = []*lab.LabTestResult{{ID: "r4", LabTest: "CBC"}}
	samples.tests["CBC"] = &lab.LabTest{Name: "CBC", NormalRanges: []lab.NormalRange{
		{MinValue: ptr(10), MaxValue: ptr(20), Unit: "g/dL", Gender: "Both"},
		{MinValue: ptr(12), MaxValue: ptr(16), Unit: "g/dL", Gender: "Female"},
	}}

	entries, err := svc.SamplesForResultEntry(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if samples.lastLimit != 20 {
		t.Errorf("expected limit 20, got %d", samples.lastLimit)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	got := entries[0].SampleTestResults
	if got[0].ReferenceRange != "10 - 20 g/dL" {
		t.Errorf("expected first range, got %q", got[0].ReferenceRange)
	}
	if got[1].ReferenceRange != "70-140 mg/dL" {
		t.Errorf("stored range must be kept, got %q", got[1].ReferenceRange)
	}
	if got[2].ReferenceRange != "" {
		t.Errorf("unknown test should stay empty, got %q", got[2].ReferenceRange)
	}
	if entries[1].SampleTestResults[0].ReferenceRange != "10 - 20 g/dL" {
		t.Errorf("unexpected range for second sample: %q", entries[1].SampleTestResults[0].ReferenceRange)
	}
	// CBC and Unknown, each looked up once
	if samples.testLookups != 2 {
		t.Errorf("expected 2 lookups, got %d", samples.testLookups)
	}
}

func TestSamplesForResultEntry_EmptyResults(t *testing.T) {
	svc, samples, _, _ := newTestService()
	samples.samples = []*lab.Sample{{ID: "SMP-00001", Status: lab.SampleInProgress}}

	entries, err := svc.SamplesForResultEntry(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].SampleTestResults == nil {
		t.Error("expected non-nil results slice")
	}
}

// -- Pending reports --

func TestPendingReports_UsesSubmittableCapability(t *testing.T) {
	svc, samples, _, caps := newTestService()
	samples.pending[false] = []*lab.LabTest{{Name: "LT-1", PatientName: "Asha Rao", TemplateName: "CBC", CreatedAt: base}}
	samples.pending[true] = []*lab.LabTest{{Name: "LT-2"}, {Name: "LT-3"}}
	ctx := context.Background()

	items, err := svc.PendingReports(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Name != "LT-1" || items[0].TemplateName != "CBC" || !items[0].Creation.Equal(base) {
		t.Errorf("expected completed tests, got %+v", items)
	}
	if samples.lastLimit != 20 {
		t.Errorf("expected limit 20, got %d", samples.lastLimit)
	}

	caps.Set(capability.LabTestSubmittable, true)
	items, err = svc.PendingReports(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected submitted tests, got %+v", items)
	}
}
