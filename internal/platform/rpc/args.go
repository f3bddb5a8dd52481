// Package rpc adapts echo requests to the /api/method calling convention used
// by the dashboard: arguments arrive as a JSON body or as form/query values,
// and structured arguments may be JSON-encoded strings.
package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adimyra/medilims/internal/platform/db"
	"github.com/adimyra/medilims/pkg/pagination"
)

// ErrBadArgs marks a malformed call argument.
var ErrBadArgs = errors.New("invalid argument")

type Args map[string]interface{}

const dateLayout = "2006-01-02"

// Bind collects call arguments. A JSON body wins over form and query values
// of the same name.
func Bind(c echo.Context) (Args, error) {
	args := Args{}
	req := c.Request()

	if req.Body != nil && strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrBadArgs, err)
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := decodeJSON(body, &args); err != nil {
				return nil, fmt.Errorf("%w: body is not a JSON object", ErrBadArgs)
			}
		}
	}

	params, err := c.FormParams()
	if err != nil {
		params = c.QueryParams()
	}
	for k, v := range params {
		if _, ok := args[k]; ok || len(v) == 0 {
			continue
		}
		args[k] = v[0]
	}
	return args, nil
}

// decodeJSON keeps numbers as json.Number so values such as "7.10" survive
// unchanged.
func decodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Date returns key as a YYYY-MM-DD date, or "" when absent. Timestamps are
// truncated to their date.
func (a Args) Date(key string) (string, error) {
	s := strings.TrimSpace(a.String(key))
	if s == "" {
		return "", nil
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", ErrBadArgs, key)
	}
	return s, nil
}

// Int returns key as an integer, or def when absent or unparsable.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Page reads start/page_len, falling back to offset/limit.
func (a Args) Page() pagination.Params {
	start := a.Int("start", a.Int("offset", 0))
	pageLen := a.Int("page_len", a.Int("limit", 0))
	return pagination.New(start, pageLen)
}

// Object returns key as a JSON object. Absent or empty values yield an empty
// map; a JSON string holding an object is decoded.
func (a Args) Object(key string) (map[string]interface{}, error) {
	switch v := a[key].(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]interface{}{}, nil
		}
		var out map[string]interface{}
		if err := decodeJSON([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("%w: %s must be a JSON object", ErrBadArgs, key)
		}
		if out == nil {
			out = map[string]interface{}{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a JSON object", ErrBadArgs, key)
	}
}

// Filters reads a listing filter. Besides the object form it accepts the list
// form [[field, op, value], ...], optionally prefixed by a record type name.
// Repeated fields in the list form are combined into db.Conditions.
func (a Args) Filters(key string) (db.Filters, error) {
	raw := a[key]
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return db.Filters{}, nil
		}
		raw = nil
		if err := decodeJSON([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("%w: %s is not valid JSON", ErrBadArgs, key)
		}
	}

	switch v := raw.(type) {
	case nil:
		return db.Filters{}, nil
	case map[string]interface{}:
		return db.Filters(v), nil
	case []interface{}:
		out := db.Filters{}
		for _, item := range v {
			cond, ok := item.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %s entries must be lists", ErrBadArgs, key)
			}
			if len(cond) == 4 {
				cond = cond[1:]
			}
			if len(cond) != 3 {
				return nil, fmt.Errorf("%w: %s entries must be [field, op, value]", ErrBadArgs, key)
			}
			field, ok := cond[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: filter field must be a string", ErrBadArgs)
			}
			c := []interface{}{cond[1], cond[2]}
			switch prev := out[field].(type) {
			case nil:
				out[field] = c
			case db.Conditions:
				out[field] = append(prev, c)
			default:
				out[field] = db.Conditions{prev, c}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object or list", ErrBadArgs, key)
	}
}
