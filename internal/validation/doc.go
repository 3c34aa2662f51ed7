// Package validation provides per-type validation rule sets with value
// sanitization for the ingestion pipeline.
//
// Rules for a type run in registration order. Each rule first applies its
// sanitizer (when present) to the running sanitized value, then evaluates its
// predicate against the post-sanitize value, so sanitization chains across
// rules within a single Validate call. A rule that panics counts as a
// validation failure with a synthesized message instead of taking down the
// row.
//
// The built-in set covers text, numeric and date shapes, email, Brazilian
// CPF/CNPJ check digits, money and UUID. Callers may register additional
// rules per type or pass ad-hoc rules to Validate.
package validation
