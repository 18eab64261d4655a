package fill

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Raw is a broker activity record as decoded from JSON.
type Raw map[string]any

// Keys tried, in order, for each Fill field.
var (
	symbolKeys = []string{"symbol"}
	sideKeys   = []string{"side"}
	qtyKeys    = []string{"qty", "quantity"}
	priceKeys  = []string{"price"}
	timeKeys   = []string{"transaction_time", "timestamp"}
	idKeys     = []string{"order_id", "fill_id", "id"}
)

// MalformedError describes a raw record that could not become a Fill.
type MalformedError struct {
	Index  int
	Ref    string // activity id when the record has one
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("malformed fill #%d (%s): %s", e.Index, e.Ref, e.Reason)
	}
	return fmt.Sprintf("malformed fill #%d: %s", e.Index, e.Reason)
}

// Normalize converts raw records into validated fills. Every rejected record
// yields exactly one *MalformedError; the order of fills follows the input.
func Normalize(raws []Raw) ([]Fill, []error) {
	fills := make([]Fill, 0, len(raws))
	var errs []error
	for i, r := range raws {
		f, err := FromRaw(r)
		if err != nil {
			errs = append(errs, &MalformedError{Index: i, Ref: r.str("id"), Reason: err.Error()})
			continue
		}
		fills = append(fills, f)
	}
	return fills, errs
}

// FromRaw converts a single record.
func FromRaw(r Raw) (Fill, error) {
	if r == nil {
		return Fill{}, fmt.Errorf("nil record")
	}
	if t := r.str("activity_type"); t != "" && !strings.EqualFold(t, "FILL") {
		return Fill{}, fmt.Errorf("activity type %q is not a fill", t)
	}

	var f Fill
	var err error

	if f.Symbol, err = r.requireString(symbolKeys); err != nil {
		return Fill{}, err
	}
	side, err := r.requireString(sideKeys)
	if err != nil {
		return Fill{}, err
	}
	if f.Side, err = ParseSide(side); err != nil {
		return Fill{}, err
	}
	if f.Qty, err = r.requireFloat(qtyKeys); err != nil {
		return Fill{}, err
	}
	if f.Price, err = r.requireFloat(priceKeys); err != nil {
		return Fill{}, err
	}
	if f.Time, err = r.requireTime(timeKeys); err != nil {
		return Fill{}, err
	}
	if f.ID, err = r.requireString(idKeys); err != nil {
		return Fill{}, err
	}
	f.Ref = strings.TrimSpace(r.str("id"))
	if f.Ref == "" {
		f.Ref = f.ID
	}

	if err := f.Validate(); err != nil {
		return Fill{}, err
	}
	return f, nil
}

func (r Raw) lookup(keys []string) (any, string, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, k, true
		}
	}
	return nil, keys[0], false
}

func (r Raw) str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (r Raw) requireString(keys []string) (string, error) {
	v, key, ok := r.lookup(keys)
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T", key, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("missing %s", key)
	}
	return s, nil
}

func (r Raw) requireFloat(keys []string) (float64, error) {
	v, key, ok := r.lookup(keys)
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return x, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, fmt.Errorf("missing %s", key)
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return x, nil
	default:
		return 0, fmt.Errorf("%s: want number, got %T", key, v)
	}
}

func (r Raw) requireTime(keys []string) (time.Time, error) {
	v, key, ok := r.lookup(keys)
	if !ok {
		return time.Time{}, fmt.Errorf("missing %s", key)
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, fmt.Errorf("missing %s", key)
		}
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", key, err)
		}
		return ts.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%s: want RFC3339 string, got %T", key, v)
	}
}
