package lab

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adimyra/medilims/internal/platform/db"
)

// =========== Sample Repository ===========

type sampleRepoPG struct{ pool *pgxpool.Pool }

func NewSampleRepoPG(pool *pgxpool.Pool) SampleRepository {
	return &sampleRepoPG{pool: pool}
}

func (r *sampleRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const sampleCols = `id, sample_name, COALESCE(sample_type, ''),
	COALESCE(to_char(collection_date, 'YYYY-MM-DD'), ''), COALESCE(to_char(received_date, 'YYYY-MM-DD'), ''),
	status, COALESCE(patient_id, ''), created_at, modified_at`

var sampleFilterColumns = map[string]string{
	"name":            "id",
	"sample_name":     "sample_name",
	"sample_type":     "sample_type",
	"status":          "status",
	"patient":         "patient_id",
	"collection_date": "to_char(collection_date, 'YYYY-MM-DD')",
	"received_date":   "to_char(received_date, 'YYYY-MM-DD')",
}

var sampleOrders = map[SampleOrder]string{
	OrderCreatedDesc:  "created_at DESC, id DESC",
	OrderModifiedDesc: "modified_at DESC, id DESC",
	OrderModifiedAsc:  "modified_at ASC, id ASC",
}

func scanSample(row pgx.Row) (*Sample, error) {
	var s Sample
	err := row.Scan(&s.ID, &s.SampleName, &s.SampleType, &s.CollectionDate, &s.ReceivedDate,
		&s.Status, &s.Patient, &s.CreatedAt, &s.ModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *sampleRepoPG) Create(ctx context.Context, s *Sample) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO sample (sample_name, sample_type, collection_date, received_date, status, patient_id)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, '')::date, NULLIF($4, '')::date, $5, NULLIF($6, ''))
		RETURNING id, created_at, modified_at`,
		s.SampleName, s.SampleType, s.CollectionDate, s.ReceivedDate, s.Status, s.Patient,
	).Scan(&s.ID, &s.CreatedAt, &s.ModifiedAt)
}

func (r *sampleRepoPG) GetByID(ctx context.Context, id string) (*Sample, error) {
	return scanSample(r.conn(ctx).QueryRow(ctx, `SELECT `+sampleCols+` FROM sample WHERE id = $1`, id))
}

func (r *sampleRepoPG) List(ctx context.Context, q SampleQuery) ([]*Sample, error) {
	where, args, err := q.Filters.Where(sampleFilterColumns, 1)
	if err != nil {
		return nil, err
	}
	order, ok := sampleOrders[q.Order]
	if !ok {
		return nil, fmt.Errorf("unknown sample order %d", q.Order)
	}

	query := `SELECT ` + sampleCols + ` FROM sample WHERE 1=1` + where + ` ORDER BY ` + order
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, q.Limit)
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
		args = append(args, q.Offset)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *sampleRepoPG) Count(ctx context.Context, filters db.Filters) (int, error) {
	where, args, err := filters.Where(sampleFilterColumns, 1)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM sample WHERE 1=1`+where, args...).Scan(&n)
	return n, err
}

func (r *sampleRepoPG) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM sample GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// =========== LabTestResult Repository ===========

type testResultRepoPG struct{ pool *pgxpool.Pool }

func NewTestResultRepoPG(pool *pgxpool.Pool) TestResultRepository {
	return &testResultRepoPG{pool: pool}
}

func (r *testResultRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const resultCols = `id, parent, idx, COALESCE(lab_test, ''), COALESCE(result_value, ''), numeric_result_value,
	COALESCE(unit, ''), COALESCE(reference_range, ''), status, COALESCE(analyst, ''), created_at, modified_at`

func scanResult(row pgx.Row) (*LabTestResult, error) {
	var t LabTestResult
	err := row.Scan(&t.ID, &t.Parent, &t.Idx, &t.LabTest, &t.ResultValue, &t.NumericResultValue,
		&t.Unit, &t.ReferenceRange, &t.Status, &t.Analyst, &t.CreatedAt, &t.ModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *testResultRepoPG) Create(ctx context.Context, t *LabTestResult) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_test_result (id, parent, idx, lab_test, result_value, numeric_result_value,
			unit, reference_range, status, analyst)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), $9, NULLIF($10, ''))
		RETURNING created_at, modified_at`,
		t.ID, t.Parent, t.Idx, t.LabTest, t.ResultValue, t.NumericResultValue,
		t.Unit, t.ReferenceRange, t.Status, t.Analyst,
	).Scan(&t.CreatedAt, &t.ModifiedAt)
}

func (r *testResultRepoPG) GetByID(ctx context.Context, id string) (*LabTestResult, error) {
	return scanResult(r.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+` FROM lab_test_result WHERE id = $1`, id))
}

func (r *testResultRepoPG) Update(ctx context.Context, t *LabTestResult) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_test_result SET result_value = NULLIF($2, ''), numeric_result_value = $3,
			status = $4, analyst = NULLIF($5, ''), modified_at = NOW()
		WHERE id = $1`,
		t.ID, t.ResultValue, t.NumericResultValue, t.Status, t.Analyst)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *testResultRepoPG) ListByParent(ctx context.Context, parent string, statuses []string) ([]*LabTestResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+resultCols+` FROM lab_test_result
		WHERE parent = $1 AND ($2::text[] IS NULL OR status = ANY($2))
		ORDER BY created_at ASC, idx ASC`, parent, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LabTestResult
	for rows.Next() {
		t, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *testResultRepoPG) TestNamesByParents(ctx context.Context, parents []string) (map[string][]string, error) {
	out := make(map[string][]string, len(parents))
	if len(parents) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT parent, lab_test FROM lab_test_result
		WHERE parent = ANY($1) AND COALESCE(lab_test, '') <> ''
		ORDER BY parent, idx`, parents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var parent, name string
		if err := rows.Scan(&parent, &name); err != nil {
			return nil, err
		}
		out[parent] = append(out[parent], name)
	}
	return out, rows.Err()
}

// =========== LabTest Repository ===========

type labTestRepoPG struct{ pool *pgxpool.Pool }

func NewLabTestRepoPG(pool *pgxpool.Pool) LabTestRepository {
	return &labTestRepoPG{pool: pool}
}

func (r *labTestRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const labTestCols = `name, COALESCE(department, ''), COALESCE(patient_name, ''), COALESCE(template_name, ''),
	COALESCE(status, ''), docstatus, created_at`

func scanLabTest(row pgx.Row) (*LabTest, error) {
	var t LabTest
	err := row.Scan(&t.Name, &t.Department, &t.PatientName, &t.TemplateName, &t.Status, &t.DocStatus, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *labTestRepoPG) Create(ctx context.Context, t *LabTest) error {
	q := r.conn(ctx)
	err := q.QueryRow(ctx, `
		INSERT INTO lab_test (name, department, patient_name, template_name, status, docstatus)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING created_at`,
		t.Name, t.Department, t.PatientName, t.TemplateName, t.Status, t.DocStatus,
	).Scan(&t.CreatedAt)
	if err != nil {
		return err
	}
	for i, nr := range t.NormalRanges {
		_, err := q.Exec(ctx, `
			INSERT INTO lab_test_normal_range (lab_test, idx, min_value, max_value, unit, gender, age_group)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))`,
			t.Name, i+1, nr.MinValue, nr.MaxValue, nr.Unit, nr.Gender, nr.AgeGroup)
		if err != nil {
			return fmt.Errorf("insert normal range %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *labTestRepoPG) GetByName(ctx context.Context, name string) (*LabTest, error) {
	t, err := scanLabTest(r.conn(ctx).QueryRow(ctx, `SELECT `+labTestCols+` FROM lab_test WHERE name = $1`, name))
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT min_value, max_value, COALESCE(unit, ''), COALESCE(gender, ''), COALESCE(age_group, '')
		FROM lab_test_normal_range WHERE lab_test = $1 ORDER BY idx`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var nr NormalRange
		if err := rows.Scan(&nr.MinValue, &nr.MaxValue, &nr.Unit, &nr.Gender, &nr.AgeGroup); err != nil {
			return nil, err
		}
		t.NormalRanges = append(t.NormalRanges, nr)
	}
	return t, rows.Err()
}

func (r *labTestRepoPG) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lab_test WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

func (r *labTestRepoPG) ListPending(ctx context.Context, submittable bool, limit int) ([]*LabTest, error) {
	cond := `status = 'Completed'`
	if submittable {
		cond = `docstatus = 1`
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+labTestCols+` FROM lab_test WHERE `+cond+
		` ORDER BY created_at DESC, name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LabTest
	for rows.Next() {
		t, err := scanLabTest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// =========== Master Data Repository ===========

type masterDataRepoPG struct{ pool *pgxpool.Pool }

func NewMasterDataRepoPG(pool *pgxpool.Pool) MasterDataRepository {
	return &masterDataRepoPG{pool: pool}
}

func (r *masterDataRepoPG) EnsureSampleType(ctx context.Context, name string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO sample_type (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return err
}

func (r *masterDataRepoPG) EnsureDepartment(ctx context.Context, name string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO lab_department (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return err
}
