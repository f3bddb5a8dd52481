package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/adimyra/medilims/internal/platform/db"
)

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBind_JSONBody(t *testing.T) {
	body := `{"data": {"first_name": "Asha"}, "start": 20}`
	req := httptest.NewRequest(http.MethodPost, "/api/method/create_new_patient?start=5", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, _ := newContext(req)

	args, err := Bind(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := args.Object("data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data["first_name"] != "Asha" {
		t.Errorf("expected first_name Asha, got %v", data["first_name"])
	}
	if got := args.Int("start", 0); got != 20 {
		t.Errorf("expected body start to win, got %d", got)
	}
}

func TestBind_FormEncodedData(t *testing.T) {
	form := url.Values{}
	form.Set("data", `{"sample_name": "S-1"}`)
	form.Set("page_len", "50")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	c, _ := newContext(req)

	args, err := Bind(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := args.Object("data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data["sample_name"] != "S-1" {
		t.Errorf("expected sample_name S-1, got %v", data)
	}
	if got := args.Int("page_len", 20); got != 50 {
		t.Errorf("expected page_len 50, got %d", got)
	}
}

func TestBind_QueryOnly(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=Pending", nil)
	c, _ := newContext(req)

	args, err := Bind(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.String("status") != "Pending" {
		t.Errorf("expected status Pending, got %q", args.String("status"))
	}
	if args.String("missing") != "" {
		t.Error("expected empty string for missing arg")
	}
}

func TestBind_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, _ := newContext(req)

	if _, err := Bind(c); !errors.Is(err, ErrBadArgs) {
		t.Errorf("expected ErrBadArgs, got %v", err)
	}
}

func TestArgs_Int(t *testing.T) {
	args := Args{"a": "12", "b": "x", "c": float64(3)}
	if args.Int("a", 0) != 12 || args.Int("b", 7) != 7 || args.Int("c", 0) != 3 || args.Int("d", 9) != 9 {
		t.Errorf("unexpected Int results for %v", args)
	}
}

func TestArgs_Object(t *testing.T) {
	if m, err := (Args{}).Object("data"); err != nil || len(m) != 0 {
		t.Errorf("expected empty map for missing key, got %v, %v", m, err)
	}
	if _, err := (Args{"data": "not json"}).Object("data"); !errors.Is(err, ErrBadArgs) {
		t.Errorf("expected ErrBadArgs, got %v", err)
	}
	if _, err := (Args{"data": float64(1)}).Object("data"); !errors.Is(err, ErrBadArgs) {
		t.Errorf("expected ErrBadArgs for number, got %v", err)
	}
}

func TestArgs_Filters(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want db.Filters
	}{
		{"missing", nil, db.Filters{}},
		{"empty string", "", db.Filters{}},
		{"object", map[string]interface{}{"status": "Received"}, db.Filters{"status": "Received"}},
		{"json object", `{"gender": "Female"}`, db.Filters{"gender": "Female"}},
		{
			"list form",
			`[["status", "!=", "Cancelled"]]`,
			db.Filters{"status": []interface{}{"!=", "Cancelled"}},
		},
		{
			"list form with record type",
			[]interface{}{[]interface{}{"Sample", "status", "=", "Received"}},
			db.Filters{"status": []interface{}{"=", "Received"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Args{"filters": tt.raw}.Filters("filters")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Filters() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := (Args{"filters": `[["status"]]`}).Filters("filters"); !errors.Is(err, ErrBadArgs) {
		t.Errorf("expected ErrBadArgs for short condition, got %v", err)
	}
}

type recorder struct {
	method string
	err    error
}

func (r *recorder) Record(_ context.Context, method string, err error) {
	r.method, r.err = method, err
}

func TestWrite_Failure(t *testing.T) {
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/", nil))
	r := &recorder{}

	err := Write(c, r, "create_new_sample", nil, errors.New("sample_name is required"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != StatusError || body["message"] != "sample_name is required" {
		t.Errorf("unexpected envelope: %v", body)
	}
	if r.method != "create_new_sample" {
		t.Errorf("expected failure recorded, got %q", r.method)
	}
}

func TestWrite_Success(t *testing.T) {
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/", nil))
	r := &recorder{}

	err := Write(c, r, "create_new_patient", Success("Patient created successfully").With("name", "PAT-00001"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != StatusSuccess || body["name"] != "PAT-00001" {
		t.Errorf("unexpected envelope: %v", body)
	}
	if r.err != nil {
		t.Error("expected nothing recorded on success")
	}
}

func TestReadError(t *testing.T) {
	var he *echo.HTTPError
	if !errors.As(ReadError(fmt.Errorf("%w: unknown field", db.ErrInvalidFilter)), &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid filter, got %v", he)
	}
	if !errors.As(ReadError(errors.New("conn reset")), &he) || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", he)
	}
}

func TestRegister_GetAndPost(t *testing.T) {
	e := echo.New()
	g := e.Group("/api/method")
	Register(g, "get_sample_stats", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Request().Method)
	})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, "/api/method/get_sample_stats", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != method {
			t.Errorf("%s: expected 200 echoing method, got %d %q", method, rec.Code, rec.Body.String())
		}
	}
}

func TestArgs_Date(t *testing.T) {
	args := Args{"dob": "1990-04-01", "ts": "2026-10-19 08:15:00", "bad": "01/04/1990"}
	if got, err := args.Date("dob"); err != nil || got != "1990-04-01" {
		t.Errorf("Date(dob) = %q, %v", got, err)
	}
	if got, err := args.Date("ts"); err != nil || got != "2026-10-19" {
		t.Errorf("Date(ts) = %q, %v", got, err)
	}
	if got, err := args.Date("missing"); err != nil || got != "" {
		t.Errorf("Date(missing) = %q, %v", got, err)
	}
	if _, err := args.Date("bad"); !errors.Is(err, ErrBadArgs) {
		t.Errorf("expected ErrBadArgs, got %v", err)
	}
}

func TestArgs_Page(t *testing.T) {
	p := Args{"start": "40", "page_len": "10"}.Page()
	if p.Start != 40 || p.PageLen != 10 {
		t.Errorf("unexpected page %+v", p)
	}
	p = Args{"offset": "5", "limit": "500"}.Page()
	if p.Start != 5 || p.PageLen != 100 {
		t.Errorf("expected offset/limit fallback with cap, got %+v", p)
	}
	p = Args{}.Page()
	if p.Start != 0 || p.PageLen != 20 {
		t.Errorf("expected defaults, got %+v", p)
	}
}
