package analytics

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Layouts used for temporal columns. Each one parses back with time.Parse
// to the instant it was formatted from.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05.999999999"
	TimeLayout      = "15:04:05.999999999"
	TimeTZLayout    = "15:04:05.999999999Z07:00"
)

// ValueScanner scans one cell and converts it into a value encoding/json
// can represent. The database type name of the column decides how
// temporal, numeric, JSON and array values are rendered.
type ValueScanner struct {
	dbType string
	value  any
}

// NewValueScanner creates a scanner for a column of the given database type,
// as reported by sql.ColumnType.DatabaseTypeName.
func NewValueScanner(dbType string) *ValueScanner {
	return &ValueScanner{dbType: strings.ToUpper(dbType)}
}

func (s *ValueScanner) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		s.value = nil
	case time.Time:
		s.value = s.formatTime(v)
	case float64:
		s.value = finiteFloat(v)
	case []byte:
		return s.scanText(v)
	case string:
		if s.isRawText() {
			s.value = v
			return nil
		}
		return s.scanText([]byte(v))
	default:
		// int64 and bool are already JSON friendly.
		s.value = v
	}

	return nil
}

// Value returns the normalized value.
func (s *ValueScanner) Value() any {
	return s.value
}

func (s *ValueScanner) formatTime(t time.Time) string {
	switch s.dbType {
	case "DATE":
		return t.Format(DateLayout)
	case "TIMESTAMP", "DATETIME":
		return t.Format(TimestampLayout)
	case "TIME":
		return t.Format(TimeLayout)
	case "TIMETZ":
		return t.Format(TimeTZLayout)
	default:
		return t.Format(time.RFC3339Nano)
	}
}

// isRawText reports whether a string cell can be returned as is.
func (s *ValueScanner) isRawText() bool {
	switch s.dbType {
	case "NUMERIC", "DECIMAL", "JSON", "JSONB":
		return false
	}
	return !strings.HasPrefix(s.dbType, "_")
}

func (s *ValueScanner) scanText(raw []byte) error {
	switch {
	case s.dbType == "NUMERIC" || s.dbType == "DECIMAL":
		text := string(raw)
		if isJSONNumber(text) {
			s.value = json.Number(text)
		} else {
			// NaN and the infinities have no JSON number form.
			s.value = text
		}
	case s.dbType == "JSON" || s.dbType == "JSONB":
		if json.Valid(raw) {
			s.value = json.RawMessage(bytes.Clone(raw))
		} else {
			s.value = string(raw)
		}
	case strings.HasPrefix(s.dbType, "_"):
		v, err := scanArray(strings.TrimPrefix(s.dbType, "_"), raw)
		if err != nil {
			return err
		}
		s.value = v
	default:
		s.value = string(raw)
	}

	return nil
}

// scanArray decodes a PostgreSQL array literal by element type.
func scanArray(elemType string, raw []byte) (any, error) {
	switch elemType {
	case "INT2", "INT4", "INT8":
		a := pq.Int64Array{}
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []int64(nonNil(a)), nil
	case "FLOAT4", "FLOAT8":
		a := pq.Float64Array{}
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return floatArray(nonNil(a)), nil
	case "NUMERIC", "DECIMAL":
		var a []sql.NullString
		if err := (pq.GenericArray{A: &a}).Scan(raw); err != nil {
			return nil, err
		}
		return numericArray(a), nil
	case "BOOL":
		a := pq.BoolArray{}
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []bool(nonNil(a)), nil
	default:
		a := pq.StringArray{}
		if err := a.Scan(raw); err != nil {
			return nil, err
		}
		return []string(nonNil(a)), nil
	}
}

// floatArray returns a as is unless an element has no JSON number form.
func floatArray(a []float64) any {
	finite := true
	for _, f := range a {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			finite = false
			break
		}
	}
	if finite {
		return a
	}

	out := make([]any, len(a))
	for i, f := range a {
		out[i] = finiteFloat(f)
	}
	return out
}

// numericArray keeps the exact decimal text of every element. Arrays holding
// NULL or NaN fall back to []any with nil and text elements.
func numericArray(a []sql.NullString) any {
	nums := make([]json.Number, 0, len(a))
	for _, v := range a {
		if !v.Valid || !isJSONNumber(v.String) {
			break
		}
		nums = append(nums, json.Number(v.String))
	}
	if len(nums) == len(a) {
		return nums
	}

	out := make([]any, len(a))
	for i, v := range a {
		switch {
		case !v.Valid:
			out[i] = nil
		case isJSONNumber(v.String):
			out[i] = json.Number(v.String)
		default:
			out[i] = v.String
		}
	}
	return out
}

// finiteFloat spells NaN and the infinities the way PostgreSQL does, since
// JSON numbers cannot hold them.
func finiteFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}

// nonNil keeps empty arrays encoding as [] rather than null.
func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

func isJSONNumber(text string) bool {
	if text == "" {
		return false
	}
	if c := text[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(text))
}

var _ sql.Scanner = &ValueScanner{}
