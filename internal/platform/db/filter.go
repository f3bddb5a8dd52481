package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned when a listing filter names an unknown field
// or uses an unsupported operator.
var ErrInvalidFilter = errors.New("invalid filter")

// Filters maps a field name to a condition as sent by the dashboard. A
// condition is either a plain value (equality) or an [operator, value] pair,
// e.g. {"status": ["!=", "Cancelled"]}. Several conditions on one field are
// held in a Conditions value.
type Filters map[string]interface{}

// Conditions is a list of conditions on a single field, all of which must hold,
// e.g. a date range {"appointment_date": Conditions{[">=", a], ["<=", b]}}.
type Conditions []interface{}

var filterOperators = map[string]string{
	"=":        "=",
	"!=":       "<>",
	"<":        "<",
	"<=":       "<=",
	">":        ">",
	">=":       ">=",
	"like":     "LIKE",
	"not like": "NOT LIKE",
	"in":       "IN",
	"not in":   "NOT IN",
}

// Where renders f as a sequence of " AND ..." predicates. Only fields present
// in columns (field name -> SQL column) are accepted. Placeholders start at $idx.
func (f Filters) Where(columns map[string]string, idx int) (string, []interface{}, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	var args []interface{}
	for _, field := range keys {
		col, ok := columns[field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
		}

		conds := []interface{}{f[field]}
		if all, ok := f[field].(Conditions); ok {
			conds = all
		}
		for _, cond := range conds {
			arg, used, err := writeCondition(&b, col, cond, idx)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, field, err)
			}
			if used {
				args = append(args, arg)
				idx++
			}
		}
	}
	return b.String(), args, nil
}

// writeCondition appends one predicate on col. used reports whether the
// predicate consumed placeholder $idx.
func writeCondition(b *strings.Builder, col string, cond interface{}, idx int) (arg interface{}, used bool, err error) {
	op, value, err := splitCondition(cond)
	if err != nil {
		return nil, false, err
	}

	switch {
	case value == nil && (op == "=" || op == "<>"):
		if op == "=" {
			fmt.Fprintf(b, " AND %s IS NULL", col)
		} else {
			fmt.Fprintf(b, " AND %s IS NOT NULL", col)
		}
		return nil, false, nil
	case op == "IN" || op == "NOT IN":
		list, ok := value.([]interface{})
		if !ok {
			return nil, false, fmt.Errorf("%q expects a list", strings.ToLower(op))
		}
		vals := make([]string, 0, len(list))
		for _, v := range list {
			vals = append(vals, scalarString(v))
		}
		if op == "IN" {
			fmt.Fprintf(b, " AND %s = ANY($%d)", col, idx)
		} else {
			fmt.Fprintf(b, " AND NOT (%s = ANY($%d))", col, idx)
		}
		return vals, true, nil
	default:
		fmt.Fprintf(b, " AND %s %s $%d", col, op, idx)
		return normalizeScalar(value), true, nil
	}
}

func splitCondition(cond interface{}) (string, interface{}, error) {
	pair, ok := cond.([]interface{})
	if !ok {
		return "=", cond, nil
	}
	if len(pair) != 2 {
		return "", nil, fmt.Errorf("condition must be [operator, value]")
	}
	name, ok := pair[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("operator must be a string")
	}
	op, ok := filterOperators[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", nil, fmt.Errorf("unsupported operator %q", name)
	}
	return op, pair[1], nil
}

func normalizeScalar(v interface{}) interface{} {
	switch t := v.(type) {
	case bool:
		return t
	default:
		return scalarString(v)
	}
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
