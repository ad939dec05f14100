package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"fulfillment/internal/pkg/errs"
)

// Record is a canonical record keyed by Field. Absent values are stored as nil.
type Record map[Field]any

// TransformIncoming resolves every inbound canonical field from a tenant payload.
// Unresolvable paths produce nil; presence is checked later by ValidateRequiredFields.
func TransformIncoming(raw map[string]any, s Schema) Record {
	rec := make(Record, len(inboundFields))
	for _, f := range inboundFields {
		v, ok := Resolve(raw, s.InboundPath(f))
		if !ok {
			rec[f] = nil
			continue
		}
		rec[f] = v
	}
	return rec
}

// TransformOutgoing writes each field of the tenant's callback map under its flat key.
// Fields the map does not name are left out; fields missing from the snapshot are null.
func TransformOutgoing(snapshot Record, s Schema) map[string]any {
	fields := s.OutboundFields()
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		key, _ := s.OutboundKey(f)
		out[key] = snapshot[f]
	}
	return out
}

// TransformSummary shapes a trip reconciliation summary. Summary fields keep their
// canonical names unless mapped; the per-destination entries go through TransformOutgoing.
func TransformSummary(summary Record, destinations []Record, s Schema) map[string]any {
	out := make(map[string]any, len(summaryFields))
	for _, f := range summaryFields {
		if f == FieldDestinations {
			continue
		}
		out[s.SummaryKey(f)] = summary[f]
	}

	shaped := make([]map[string]any, 0, len(destinations))
	for _, d := range destinations {
		shaped = append(shaped, TransformOutgoing(d, s))
	}
	out[s.SummaryKey(FieldDestinations)] = shaped

	return out
}

// ValidateRequiredFields reports every name in required that is absent, null or an
// empty string in data. Zero and false count as present.
func ValidateRequiredFields(data map[string]any, required []string) error {
	var missing []string
	for _, name := range required {
		v, ok := data[name]
		if !ok || isMissing(v) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errs.NewMissingFieldsError(missing)
	}
	return nil
}

// Validate applies ValidateRequiredFields to r.
func (r Record) Validate(required []Field) error {
	data := make(map[string]any, len(r))
	for f, v := range r {
		data[string(f)] = v
	}
	names := make([]string, 0, len(required))
	for _, f := range required {
		names = append(names, string(f))
	}
	return ValidateRequiredFields(data, names)
}

// String renders a scalar field as text. Absent fields are "".
func (r Record) String(f Field) string {
	switch v := r[f].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Float reads a numeric field. ERP payloads sometimes send coordinates as strings,
// so numeric strings are accepted.
func (r Record) Float(f Field) (float64, error) {
	switch v := r[f].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, errs.NewValueIsInvalidErrorWithCause(string(f), err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errs.NewValueIsInvalidErrorWithCause(string(f), err)
		}
		return n, nil
	case nil:
		return 0, errs.NewValueIsRequiredError(string(f))
	default:
		return 0, errs.NewValueIsInvalidError(string(f))
	}
}

func isMissing(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	default:
		return false
	}
}
