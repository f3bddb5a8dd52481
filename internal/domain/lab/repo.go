package lab

import (
	"context"
	"errors"

	"github.com/adimyra/medilims/internal/platform/db"
)

var ErrNotFound = errors.New("not found")

// SampleOrder selects one of the fixed orderings listings use.
type SampleOrder int

const (
	OrderCreatedDesc SampleOrder = iota
	OrderModifiedDesc
	OrderModifiedAsc
)

type SampleQuery struct {
	Filters db.Filters
	Order   SampleOrder
	// Limit of 0 means no limit.
	Limit  int
	Offset int
}

type SampleRepository interface {
	Create(ctx context.Context, s *Sample) error
	GetByID(ctx context.Context, id string) (*Sample, error)
	List(ctx context.Context, q SampleQuery) ([]*Sample, error)
	Count(ctx context.Context, filters db.Filters) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type TestResultRepository interface {
	Create(ctx context.Context, r *LabTestResult) error
	GetByID(ctx context.Context, id string) (*LabTestResult, error)
	Update(ctx context.Context, r *LabTestResult) error
	// ListByParent returns the results of one sample in creation order,
	// restricted to statuses when given.
	ListByParent(ctx context.Context, parent string, statuses []string) ([]*LabTestResult, error)
	// TestNamesByParents returns each sample's test names in stored order.
	TestNamesByParents(ctx context.Context, parents []string) (map[string][]string, error)
}

type LabTestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByName(ctx context.Context, name string) (*LabTest, error)
	Exists(ctx context.Context, name string) (bool, error)
	// ListPending returns up to limit tests ready for reporting: submitted
	// ones when submittable, otherwise those with status Completed.
	ListPending(ctx context.Context, submittable bool, limit int) ([]*LabTest, error)
}

type MasterDataRepository interface {
	EnsureSampleType(ctx context.Context, name string) error
	EnsureDepartment(ctx context.Context, name string) error
}
