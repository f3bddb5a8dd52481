//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/adimyra/medilims/internal/domain/patient"
	"github.com/adimyra/medilims/internal/platform/capability"
	"github.com/adimyra/medilims/internal/platform/db"
	"github.com/adimyra/medilims/internal/platform/errorlog"
	"github.com/adimyra/medilims/migrations"
	"github.com/adimyra/medilims/pkg/pagination"
)

func TestMigrations_StatusAndIdempotentUp(t *testing.T) {
	ctx := context.Background()
	pool := newSchemaPool(t, "migrate")
	m := db.NewMigrator(pool, migrations.FS)

	n, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing left to apply, got %d", n)
	}
	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %d not applied", s.Version)
		}
	}
}

func TestTransactor_RollbackKeepsErrorLog(t *testing.T) {
	ctx := context.Background()
	pool := newSchemaPool(t, "tx")
	tx := db.NewTransactor(pool)
	patients := patient.NewRepoPG(pool)
	errs := errorlog.New(errorlog.NewStorePG(pool), zerolog.Nop())

	boom := errors.New("boom")
	err := tx.InTx(ctx, func(ctx context.Context) error {
		if err := patients.Create(ctx, &patient.Patient{FirstName: "Rolled"}); err != nil {
			return err
		}
		errs.Record(ctx, "create_new_patient", boom)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_, total, err := patients.List(ctx, nil, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 0 {
		t.Errorf("expected rollback, found %d patients", total)
	}

	entries, err := errs.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Method != "create_new_patient" || entries[0].Error != "boom" {
		t.Errorf("expected error log entry to survive rollback, got %+v", entries)
	}
}

func TestPatients_ListingFilters(t *testing.T) {
	ctx := context.Background()
	svc := patient.NewService(patient.NewRepoPG(newSchemaPool(t, "patients")))

	for _, data := range []map[string]interface{}{
		{"first_name": "Asha", "last_name": "Rao", "gender": "Female", "dob": "1990-03-15"},
		{"first_name": "Ravi", "gender": "Male"},
		{"first_name": "Meera", "gender": "Female"},
	} {
		if _, err := svc.CreatePatient(ctx, data); err != nil {
			t.Fatalf("CreatePatient: %v", err)
		}
	}

	items, total, err := svc.ListPatients(ctx, db.Filters{"gender": "Female"}, pagination.New(0, 20))
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if total != 2 || len(items) != 2 || items[0].FirstName != "Meera" {
		t.Errorf("expected 2 female patients newest first, got %d %+v", total, items)
	}

	items, _, err = svc.ListPatients(ctx, db.Filters{"first_name": []interface{}{"like", "A%"}}, pagination.New(0, 20))
	if err != nil || len(items) != 1 || items[0].DOB != "1990-03-15" {
		t.Errorf("like filter: %+v (%v)", items, err)
	}

	first, err := svc.FirstPatient(ctx)
	if err != nil || first.FirstName != "Meera" {
		t.Errorf("expected most recently modified patient, got %+v (%v)", first, err)
	}

	byID, err := svc.PatientsByID(ctx, []string{first.ID, first.ID, "", "PAT-missing"})
	if err != nil || len(byID) != 1 || byID[first.ID].FullName() != "Meera" {
		t.Errorf("unexpected PatientsByID result: %+v (%v)", byID, err)
	}
}

func TestCapabilityProbe_MissingTable(t *testing.T) {
	ctx := context.Background()
	pool := newSchemaPool(t, "probe")
	if _, err := pool.Exec(ctx, "DROP TABLE patient_appointment"); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	caps := capability.NewRegistry(capability.CollectionAppointment, capability.PatientAppointment)
	if err := capability.Probe(ctx, pool, caps); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !caps.Enabled(capability.CollectionAppointment) || caps.Enabled(capability.PatientAppointment) {
		t.Errorf("unexpected capabilities: %v", caps.List())
	}
}

func TestRecordIDs_WidenPastFiveDigits(t *testing.T) {
	ctx := context.Background()
	pool := newSchemaPool(t, "record-ids")
	svc := patient.NewService(patient.NewRepoPG(pool))

	first, err := svc.CreatePatient(ctx, map[string]interface{}{"first_name": "Asha", "gender": "Female"})
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if first.ID != "PAT-00001" {
		t.Errorf("expected PAT-00001, got %s", first.ID)
	}

	if _, err := pool.Exec(ctx, `SELECT setval('patient_seq', 99999)`); err != nil {
		t.Fatalf("setval: %v", err)
	}
	want := []string{"PAT-100000", "PAT-100001"}
	for _, id := range want {
		p, err := svc.CreatePatient(ctx, map[string]interface{}{"first_name": "Ravi", "gender": "Male"})
		if err != nil {
			t.Fatalf("CreatePatient after %s: %v", id, err)
		}
		if p.ID != id {
			t.Errorf("expected %s, got %s", id, p.ID)
		}
	}
}
