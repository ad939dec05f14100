package schema

import (
	"errors"
	"maps"
	"slices"

	"fulfillment/internal/pkg/errs"
)

// Schema is a tenant's bidirectional field map.
//
// Inbound maps a canonical field to the path it is read from in a submission.
// Outbound maps a canonical field to the flat key it is written under in a callback.
// Inbound fields without an entry fall back to the default map. An empty outbound
// map means the default callback shape; a non-empty one is used as is, so fields it
// does not name are omitted.
type Schema struct {
	inbound  map[Field]Path
	outbound map[Field]string
}

var defaultOutbound = []Field{
	FieldExternalID,
	FieldStatus,
	FieldCompletedAt,
	FieldRecipientName,
	FieldNotes,
	FieldItems,
}

var summaryFields = []Field{
	FieldDeliveryRequestID,
	FieldTripID,
	FieldTotalKm,
	FieldCompletedCount,
	FieldFailedCount,
	FieldDestinations,
}

// DefaultSchema is the identity-like map used for fields a tenant did not configure.
func DefaultSchema() Schema {
	in := make(map[Field]Path, len(inboundFields))
	for _, f := range inboundFields {
		in[f] = Direct{Name: string(f)}
	}
	out := make(map[Field]string, len(defaultOutbound))
	for _, f := range defaultOutbound {
		out[f] = string(f)
	}
	return Schema{inbound: in, outbound: out}
}

// NewSchema validates both maps and reports every offending field at once.
// Two canonical fields may not share an outbound key.
func NewSchema(inbound map[Field]Path, outbound map[Field]string) (Schema, error) {
	var errList []error

	in := make(map[Field]Path, len(inbound))
	for _, f := range slices.Sorted(maps.Keys(inbound)) {
		p := inbound[f]
		if !f.IsInbound() {
			errList = append(errList, errs.NewValueIsInvalidError(string(f)))
			continue
		}
		if p == nil || len(p.Segments()) == 0 {
			errList = append(errList, errs.NewValueIsRequiredError(string(f)))
			continue
		}
		in[f] = p
	}

	out := make(map[Field]string, len(outbound))
	owners := make(map[string]Field, len(outbound))
	for _, f := range slices.Sorted(maps.Keys(outbound)) {
		key := outbound[f]
		switch {
		case !f.IsOutbound():
			errList = append(errList, errs.NewValueIsInvalidError(string(f)))
		case key == "":
			errList = append(errList, errs.NewValueIsRequiredError(string(f)))
		default:
			if owner, taken := owners[key]; taken {
				errList = append(errList, errs.NewValidationError("outbound key "+key+" is used twice", string(owner), string(f)))
				continue
			}
			owners[key] = f
			out[f] = key
		}
	}

	if err := errors.Join(errList...); err != nil {
		return Schema{}, err
	}
	return Schema{inbound: in, outbound: out}, nil
}

// ParseSchema builds a Schema from the string maps used by storage and the admin API.
func ParseSchema(inbound, outbound map[string]string) (Schema, error) {
	var errList []error

	in := make(map[Field]Path, len(inbound))
	for _, name := range slices.Sorted(maps.Keys(inbound)) {
		expr := inbound[name]
		f, err := ParseInboundField(name)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		p, err := ParsePath(expr)
		if err != nil {
			errList = append(errList, errs.NewValueIsInvalidErrorWithCause(name, err))
			continue
		}
		in[f] = p
	}

	out := make(map[Field]string, len(outbound))
	for _, name := range slices.Sorted(maps.Keys(outbound)) {
		key := outbound[name]
		f, err := ParseOutboundField(name)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		out[f] = key
	}

	s, err := NewSchema(in, out)
	if joined := errors.Join(append(errList, err)...); joined != nil {
		return Schema{}, joined
	}
	return s, nil
}

// InboundPath returns the configured path for f or the default one.
func (s Schema) InboundPath(f Field) Path {
	if p, ok := s.inbound[f]; ok {
		return p
	}
	return Direct{Name: string(f)}
}

// OutboundKey returns the flat key f is written under, if any.
func (s Schema) OutboundKey(f Field) (string, bool) {
	if len(s.outbound) == 0 {
		if contains(defaultOutbound, f) {
			return string(f), true
		}
		return "", false
	}
	key, ok := s.outbound[f]
	return key, ok
}

// SummaryKey is OutboundKey for reconciliation fields, which keep their canonical
// name when the tenant did not map them.
func (s Schema) SummaryKey(f Field) string {
	if key, ok := s.outbound[f]; ok {
		return key
	}
	return string(f)
}

// OutboundFields returns the fields a destination callback carries, in canonical order.
func (s Schema) OutboundFields() []Field {
	if len(s.outbound) == 0 {
		return append([]Field(nil), defaultOutbound...)
	}
	var fields []Field
	for _, f := range outboundFields {
		if contains(summaryFields, f) {
			continue
		}
		if _, ok := s.outbound[f]; ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// InboundMap is the storable form of the inbound map.
func (s Schema) InboundMap() map[string]string {
	m := make(map[string]string, len(s.inbound))
	for f, p := range s.inbound {
		m[string(f)] = p.String()
	}
	return m
}

// OutboundMap is the storable form of the outbound map.
func (s Schema) OutboundMap() map[string]string {
	m := make(map[string]string, len(s.outbound))
	for f, key := range s.outbound {
		m[string(f)] = key
	}
	return m
}
