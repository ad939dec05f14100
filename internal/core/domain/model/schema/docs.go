// Package schema maps tenant ERP payloads to canonical destination records and back.
//
// Each tenant owns a Schema: an inbound map from canonical Field to a Path inside the
// submitted JSON, and an outbound map from canonical Field to the flat key used in
// callbacks. Paths are a small sum type (Direct or Nested) resolved by a walker over
// decoded JSON (map[string]any, []any and scalars). Resolution never fails; missing
// values surface through ValidateRequiredFields.
package schema
