// Package content implements CRUD over the dynamic per-type tables:
// per-field value serialization and casting, dynamic parameterized SQL,
// and the HTTP surface for content entries.
package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/monkeyscms/monkeys/internal/field"
)

// Canonical temporal formats for stored values.
const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04:05"
)

// SerializeError reports which field rejected a value and why.
type SerializeError struct {
	Identifier string
	Detail     string
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Identifier, e.Detail)
}

func serializeErr(d field.Definition, format string, args ...any) error {
	return &SerializeError{Identifier: d.Identifier(), Detail: fmt.Sprintf(format, args...)}
}

// Serialize converts an inbound value to the storable form for the field's
// type: numeric coercion for integer/float kinds, canonical strings for
// temporal kinds, JSON encoding for structured kinds, and pass-through
// strings for text kinds. nil is always storable (columns are nullable).
func Serialize(d field.Definition, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	t := d.FieldType()
	switch {
	case t == field.TypeInteger || t.IsMedia() || t.IsReference():
		n, ok := toInt64(v)
		if !ok {
			return nil, serializeErr(d, "cannot store %T as integer", v)
		}
		return n, nil

	case t == field.TypeFloat || t == field.TypeDecimal:
		f, ok := toFloat64(v)
		if !ok {
			return nil, serializeErr(d, "cannot store %T as number", v)
		}
		return f, nil

	case t == field.TypeBoolean || t == field.TypeCheckbox:
		b, ok := toBool(v)
		if !ok {
			return nil, serializeErr(d, "cannot store %v as boolean", v)
		}
		return b, nil

	case t == field.TypeDate:
		ts, err := parseTemporal(v, dateFormat, time.RFC3339)
		if err != nil {
			return nil, serializeErr(d, "invalid date: %v", err)
		}
		return ts.Format(dateFormat), nil

	case t == field.TypeDatetime:
		ts, err := parseTemporal(v, time.RFC3339, "2006-01-02 15:04:05", dateFormat)
		if err != nil {
			return nil, serializeErr(d, "invalid datetime: %v", err)
		}
		return ts.UTC().Format(time.RFC3339), nil

	case t == field.TypeTime:
		ts, err := parseTemporal(v, timeFormat, "15:04")
		if err != nil {
			return nil, serializeErr(d, "invalid time: %v", err)
		}
		return ts.Format(timeFormat), nil

	case isJSONKind(t):
		b, err := json.Marshal(v)
		if err != nil {
			return nil, serializeErr(d, "not JSON-encodable: %v", err)
		}
		return b, nil

	default:
		// Text-like kinds, including select/radio stored as varchar.
		s, ok := toString(v)
		if !ok {
			return nil, serializeErr(d, "cannot store %T as text", v)
		}
		return s, nil
	}
}

// Cast converts a stored value back to its API shape, inverting Serialize.
// It accepts the concrete types the database driver produces for each
// column family.
func Cast(d field.Definition, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	t := d.FieldType()
	switch {
	case t == field.TypeInteger || t.IsMedia() || t.IsReference():
		n, ok := toInt64(v)
		if !ok {
			return nil, serializeErr(d, "stored value %T is not an integer", v)
		}
		return n, nil

	case t == field.TypeFloat || t == field.TypeDecimal:
		f, ok := toFloat64(v)
		if !ok {
			return nil, serializeErr(d, "stored value %T is not a number", v)
		}
		return f, nil

	case t == field.TypeBoolean || t == field.TypeCheckbox:
		b, ok := toBool(v)
		if !ok {
			return nil, serializeErr(d, "stored value %v is not a boolean", v)
		}
		return b, nil

	case t == field.TypeDate:
		ts, err := parseTemporal(v, dateFormat, time.RFC3339)
		if err != nil {
			return nil, serializeErr(d, "stored date: %v", err)
		}
		return ts.Format(dateFormat), nil

	case t == field.TypeDatetime:
		ts, err := parseTemporal(v, time.RFC3339, "2006-01-02 15:04:05")
		if err != nil {
			return nil, serializeErr(d, "stored datetime: %v", err)
		}
		return ts.UTC().Format(time.RFC3339), nil

	case t == field.TypeTime:
		if pt, ok := v.(pgtype.Time); ok {
			return time.Unix(0, 0).UTC().
				Add(time.Duration(pt.Microseconds) * time.Microsecond).
				Format(timeFormat), nil
		}
		ts, err := parseTemporal(v, timeFormat, "15:04")
		if err != nil {
			return nil, serializeErr(d, "stored time: %v", err)
		}
		return ts.Format(timeFormat), nil

	case isJSONKind(t):
		switch raw := v.(type) {
		case []byte:
			var out any
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, serializeErr(d, "stored JSON corrupt: %v", err)
			}
			return out, nil
		case string:
			var out any
			if err := json.Unmarshal([]byte(raw), &out); err != nil {
				return nil, serializeErr(d, "stored JSON corrupt: %v", err)
			}
			return out, nil
		default:
			// The driver already decoded the document.
			return v, nil
		}

	default:
		s, ok := toString(v)
		if !ok {
			return nil, serializeErr(d, "stored value %T is not text", v)
		}
		return s, nil
	}
}

func isJSONKind(t field.Type) bool {
	switch t {
	case field.TypeJSON, field.TypeMultiselect, field.TypeGallery,
		field.TypeLink, field.TypeAddress, field.TypeGeolocation:
		return true
	}
	return false
}

// toInt64 coerces the integer shapes JSON decoding and the database driver
// produce. Floats must be whole numbers.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, true
	}
	return 0, false
}

// toBool accepts booleans plus the 0/1 and textual encodings legacy data
// may carry.
func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int64:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	case int:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	case float64:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "t", "true", "yes":
			return true, true
		case "0", "f", "false", "no":
			return false, true
		}
	}
	return false, false
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case fmt.Stringer:
		return s.String(), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case int:
		return strconv.Itoa(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

// parseTemporal accepts a time.Time directly or tries the given layouts in
// order against a string value.
func parseTemporal(v any, layouts ...string) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case string:
		s := strings.TrimSpace(ts)
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q does not match %s", s, strings.Join(layouts, " / "))
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}
