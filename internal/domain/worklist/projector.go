// Package worklist derives display-only views of samples: UI status labels,
// colors, patient names, test summaries and reference-range text. Nothing here
// touches storage.
package worklist

import (
	"strconv"
	"strings"

	"github.com/adimyra/medilims/internal/domain/lab"
	"github.com/adimyra/medilims/internal/domain/patient"
)

// Item is one worklist row. Derived fields are never persisted.
type Item struct {
	Name           string `json:"name"`
	SampleName     string `json:"sample_name"`
	Patient        string `json:"patient"`
	CollectionDate string `json:"collection_date"`
	Status         string `json:"status"`
	PatientName    string `json:"patient_name,omitempty"`
	PatientUHID    string `json:"patient_uhid,omitempty"`
	TestInfo       string `json:"test_info"`
	UIStatus       string `json:"ui_status"`
	StatusColor    string `json:"status_color"`
}

type statusView struct {
	label string
	color string
}

var statusTable = map[string]statusView{
	lab.SampleReceived:   {"Pending", "orange"},
	lab.SampleInProgress: {"Accessioned", "blue"},
	lab.SampleAnalyzed:   {"Processing", "purple"},
	lab.SampleRejected:   {"Rejected", "red"},
}

const unknownStatusColor = "gray"

// ProjectStatus returns the UI label and color for a raw sample status.
// Unknown statuses keep their raw label.
func ProjectStatus(raw string) (label, color string) {
	if v, ok := statusTable[raw]; ok {
		return v.label, v.color
	}
	return raw, unknownStatusColor
}

// ProjectSampleWorklist enriches samples in order. Patients missing from
// patients leave patient_name unset; samples without entries in testNames get
// an empty test_info.
func ProjectSampleWorklist(samples []*lab.Sample, patients map[string]*patient.Patient, testNames map[string][]string) []Item {
	items := make([]Item, 0, len(samples))
	for _, s := range samples {
		item := Item{
			Name:           s.ID,
			SampleName:     s.SampleName,
			Patient:        s.Patient,
			CollectionDate: s.CollectionDate,
			Status:         s.Status,
			TestInfo:       strings.Join(testNames[s.ID], ", "),
		}
		if s.Patient != "" {
			if p, ok := patients[s.Patient]; ok && p != nil {
				item.PatientName = p.FullName()
			}
			item.PatientUHID = s.Patient
		}
		item.UIStatus, item.StatusColor = ProjectStatus(s.Status)
		items = append(items, item)
	}
	return items
}

// BuildReferenceRangeText formats the first normal range of t as
// "<min> - <max> <unit>", leaving absent parts empty. A bound of 0 is present
// and renders as "0"; only a nil bound is empty. ok is false when t has no
// ranges.
func BuildReferenceRangeText(t *lab.LabTest) (text string, ok bool) {
	if t == nil || len(t.NormalRanges) == 0 {
		return "", false
	}
	nr := t.NormalRanges[0]
	return formatBound(nr.MinValue) + " - " + formatBound(nr.MaxValue) + " " + nr.Unit, true
}

func formatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

type SampleStats struct {
	PendingAccession int `json:"pending_accession"`
	Accessioned      int `json:"accessioned"`
	Processing       int `json:"processing"`
	Rejected         int `json:"rejected"`
}

// AggregateDashboardCounts renames per-status counts to dashboard keys.
func AggregateDashboardCounts(countsByStatus map[string]int) SampleStats {
	return SampleStats{
		PendingAccession: countsByStatus[lab.SampleReceived],
		Accessioned:      countsByStatus[lab.SampleInProgress],
		Processing:       countsByStatus[lab.SampleAnalyzed],
		Rejected:         countsByStatus[lab.SampleRejected],
	}
}

// WorklistFilter maps the worklist's status selector to a raw status. ok is
// false when no filter applies ("" or "All").
func WorklistFilter(status string) (raw string, ok bool) {
	switch status {
	case "", "All":
		return "", false
	case "Pending":
		return lab.SampleReceived, true
	default:
		return status, true
	}
}
