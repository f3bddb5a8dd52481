package lab

import "time"

// Sample statuses as persisted.
const (
	SampleReceived   = "Received"
	SampleInProgress = "In-Progress"
	SampleAnalyzed   = "Analyzed"
	SampleRejected   = "Rejected"
)

var sampleStatuses = map[string]bool{
	SampleReceived:   true,
	SampleInProgress: true,
	SampleAnalyzed:   true,
	SampleRejected:   true,
}

// Sample maps to the sample table. Results is only populated by queries that
// ask for children.
type Sample struct {
	ID             string           `db:"id" json:"name"`
	SampleName     string           `db:"sample_name" json:"sample_name"`
	SampleType     string           `db:"sample_type" json:"sample_type"`
	CollectionDate string           `db:"collection_date" json:"collection_date"`
	ReceivedDate   string           `db:"received_date" json:"received_date"`
	Status         string           `db:"status" json:"status"`
	Patient        string           `db:"patient_id" json:"patient"`
	CreatedAt      time.Time        `db:"created_at" json:"creation"`
	ModifiedAt     time.Time        `db:"modified_at" json:"modified"`
	Results        []*LabTestResult `json:"sample_test_results,omitempty"`
}

// LabTestResult is a child row of a Sample.
type LabTestResult struct {
	ID                 string    `db:"id" json:"name"`
	Parent             string    `db:"parent" json:"parent"`
	Idx                int       `db:"idx" json:"idx"`
	LabTest            string    `db:"lab_test" json:"lab_test"`
	ResultValue        string    `db:"result_value" json:"result_value"`
	NumericResultValue *float64  `db:"numeric_result_value" json:"numeric_result_value"`
	Unit               string    `db:"unit" json:"unit"`
	ReferenceRange     string    `db:"reference_range" json:"reference_range"`
	Status             string    `db:"status" json:"status"`
	Analyst            string    `db:"analyst" json:"analyst"`
	CreatedAt          time.Time `db:"created_at" json:"creation"`
	ModifiedAt         time.Time `db:"modified_at" json:"modified"`
}

// LabTest is a test definition keyed by its test name.
type LabTest struct {
	Name         string        `db:"name" json:"name"`
	Department   string        `db:"department" json:"department"`
	PatientName  string        `db:"patient_name" json:"patient_name"`
	TemplateName string        `db:"template_name" json:"template_name"`
	Status       string        `db:"status" json:"status"`
	DocStatus    int           `db:"docstatus" json:"docstatus"`
	CreatedAt    time.Time     `db:"created_at" json:"creation"`
	NormalRanges []NormalRange `json:"normal_ranges"`
}

type NormalRange struct {
	MinValue *float64 `db:"min_value" json:"min_value"`
	MaxValue *float64 `db:"max_value" json:"max_value"`
	Unit     string   `db:"unit" json:"unit"`
	Gender   string   `db:"gender" json:"gender"`
	AgeGroup string   `db:"age_group" json:"age_group"`
}
