package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adimyra/medilims/internal/platform/db"
)

// =========== CollectionAppointment Repository ===========

type collectionRepoPG struct{ pool *pgxpool.Pool }

func NewCollectionRepoPG(pool *pgxpool.Pool) CollectionRepository {
	return &collectionRepoPG{pool: pool}
}

func (r *collectionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const collectionCols = `id, patient_id, COALESCE(patient_name, ''), to_char(appointment_date, 'YYYY-MM-DD'),
	COALESCE(appointment_time, ''), status, COALESCE(collection_type, ''),
	COALESCE(address_line1, ''), COALESCE(city, ''), created_at`

var collectionFilterColumns = map[string]string{
	"name":             "id",
	"patient":          "patient_id",
	"patient_name":     "patient_name",
	"appointment_date": "to_char(appointment_date, 'YYYY-MM-DD')",
	"appointment_time": "appointment_time",
	"status":           "status",
	"collection_type":  "collection_type",
	"city":             "city",
}

func scanCollection(row pgx.Row) (*CollectionAppointment, error) {
	var a CollectionAppointment
	err := row.Scan(&a.ID, &a.Patient, &a.PatientName, &a.AppointmentDate, &a.AppointmentTime,
		&a.Status, &a.CollectionType, &a.AddressLine1, &a.City, &a.CreatedAt)
	return &a, err
}

func (r *collectionRepoPG) Create(ctx context.Context, a *CollectionAppointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO collection_appointment (patient_id, patient_name, appointment_date, appointment_time,
			status, collection_type, address_line1, city)
		VALUES ($1, NULLIF($2, ''), $3::date, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
		RETURNING id, created_at`,
		a.Patient, a.PatientName, a.AppointmentDate, a.AppointmentTime,
		a.Status, a.CollectionType, a.AddressLine1, a.City,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *collectionRepoPG) List(ctx context.Context, filters db.Filters, limit int) ([]*CollectionAppointment, error) {
	where, args, err := filters.Where(collectionFilterColumns, 1)
	if err != nil {
		return nil, err
	}
	args = append(args, limit)
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+collectionCols+` FROM collection_appointment WHERE 1=1`+where+
		fmt.Sprintf(` ORDER BY appointment_date ASC, appointment_time ASC NULLS LAST, id LIMIT $%d`, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CollectionAppointment
	for rows.Next() {
		a, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *collectionRepoPG) Count(ctx context.Context, filters db.Filters) (int, error) {
	where, args, err := filters.Where(collectionFilterColumns, 1)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM collection_appointment WHERE 1=1`+where, args...).Scan(&n)
	return n, err
}

// =========== PatientAppointment Repository ===========

type patientAppointmentRepoPG struct{ pool *pgxpool.Pool }

func NewPatientAppointmentRepoPG(pool *pgxpool.Pool) PatientAppointmentRepository {
	return &patientAppointmentRepoPG{pool: pool}
}

func (r *patientAppointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientApptCols = `id, COALESCE(title, ''), patient_id, COALESCE(appointment_type, ''), COALESCE(company, ''),
	COALESCE(appointment_for, ''), COALESCE(practitioner_id, ''), to_char(appointment_date, 'YYYY-MM-DD'),
	COALESCE(appointment_time, ''), status, created_at`

var patientApptFilterColumns = map[string]string{
	"name":             "id",
	"patient":          "patient_id",
	"practitioner":     "practitioner_id",
	"appointment_type": "appointment_type",
	"appointment_date": "to_char(appointment_date, 'YYYY-MM-DD')",
	"status":           "status",
	"company":          "company",
}

func scanPatientAppt(row pgx.Row) (*PatientAppointment, error) {
	var a PatientAppointment
	err := row.Scan(&a.ID, &a.Title, &a.Patient, &a.AppointmentType, &a.Company,
		&a.AppointmentFor, &a.Practitioner, &a.AppointmentDate,
		&a.AppointmentTime, &a.Status, &a.CreatedAt)
	return &a, err
}

func (r *patientAppointmentRepoPG) Create(ctx context.Context, a *PatientAppointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_appointment (title, patient_id, appointment_type, company, appointment_for,
			practitioner_id, appointment_date, appointment_time, status)
		VALUES (NULLIF($1, ''), $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
			NULLIF($6, ''), $7::date, NULLIF($8, ''), $9)
		RETURNING id, created_at`,
		a.Title, a.Patient, a.AppointmentType, a.Company, a.AppointmentFor,
		a.Practitioner, a.AppointmentDate, a.AppointmentTime, a.Status,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *patientAppointmentRepoPG) List(ctx context.Context, filters db.Filters, limit, offset int) ([]*PatientAppointment, int, error) {
	where, args, err := filters.Where(patientApptFilterColumns, 1)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_appointment WHERE 1=1`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientApptCols+` FROM patient_appointment WHERE 1=1`+where+
		fmt.Sprintf(` ORDER BY appointment_date DESC, appointment_time DESC NULLS LAST, id DESC LIMIT $%d OFFSET $%d`, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PatientAppointment
	for rows.Next() {
		a, err := scanPatientAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// =========== Setup Repository ===========

type setupRepoPG struct{ pool *pgxpool.Pool }

func NewSetupRepoPG(pool *pgxpool.Pool) SetupRepository {
	return &setupRepoPG{pool: pool}
}

func (r *setupRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *setupRepoPG) FirstCompany(ctx context.Context) (*Company, error) {
	var c Company
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT name, abbr, COALESCE(default_currency, ''), COALESCE(country, ''), is_group
		FROM company WHERE NOT is_group ORDER BY created_at, name LIMIT 1`,
	).Scan(&c.Name, &c.Abbr, &c.DefaultCurrency, &c.Country, &c.IsGroup)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *setupRepoPG) CreateCompany(ctx context.Context, c *Company) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO company (name, abbr, default_currency, country, is_group)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)`,
		c.Name, c.Abbr, c.DefaultCurrency, c.Country, c.IsGroup)
	return err
}

func (r *setupRepoPG) EnsureAppointmentType(ctx context.Context, t *AppointmentType) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_type (name, duration) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`, t.Name, t.Duration)
	return err
}

func (r *setupRepoPG) PractitionerByFirstName(ctx context.Context, firstName string) (*Practitioner, error) {
	var p Practitioner
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, first_name, status FROM practitioner WHERE first_name = $1 ORDER BY created_at, id LIMIT 1`,
		firstName).Scan(&p.ID, &p.FirstName, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *setupRepoPG) CreatePractitioner(ctx context.Context, p *Practitioner) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO practitioner (first_name, status) VALUES ($1, $2) RETURNING id`,
		p.FirstName, p.Status).Scan(&p.ID)
}
