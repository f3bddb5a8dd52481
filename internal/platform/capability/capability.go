// Package capability tracks which optional record types this deployment
// supports. Appointment and report queries consult it instead of probing the
// database on every request.
package capability

import (
	"context"
	"sort"
	"sync"

	"github.com/adimyra/medilims/internal/platform/db"
)

const (
	CollectionAppointment = "collection_appointment"
	PatientAppointment    = "patient_appointment"
	// LabTestSubmittable switches pending reports to docstatus=1 instead of
	// status=Completed.
	LabTestSubmittable = "lab_test_submittable"
)

// Checker is what services depend on.
type Checker interface {
	Enabled(name string) bool
}

type Registry struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

func NewRegistry(names ...string) *Registry {
	r := &Registry{enabled: make(map[string]bool)}
	for _, n := range names {
		r.enabled[n] = true
	}
	return r
}

func (r *Registry) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[name]
}

func (r *Registry) Set(name string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on {
		r.enabled[name] = true
	} else {
		delete(r.enabled, name)
	}
}

// List returns the enabled capabilities, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.enabled))
	for n := range r.enabled {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var probeTables = map[string]string{
	CollectionAppointment: "collection_appointment",
	PatientAppointment:    "patient_appointment",
}

// Probe disables appointment capabilities whose tables are missing from the
// database. It never enables anything that configuration left off.
func Probe(ctx context.Context, q db.Querier, r *Registry) error {
	for name, table := range probeTables {
		if !r.Enabled(name) {
			continue
		}
		var exists bool
		if err := q.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			r.Set(name, false)
		}
	}
	return nil
}
