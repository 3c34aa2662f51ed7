package validation

import (
	"fmt"
	"strings"
	"time"

	"salespulse/internal/datatable"
)

// Rule is a single named validation with an optional sanitizer. Rules are
// immutable once registered.
type Rule struct {
	Name     string
	Message  string
	Check    func(datatable.Value) bool
	Sanitize func(datatable.Value) datatable.Value
}

// Result reports the outcome of validating one value. Sanitized always holds
// the post-sanitize value, even when validation failed; callers decide
// whether to keep the original on failure.
type Result struct {
	Valid     bool
	Errors    []string
	Warnings  []string
	Sanitized datatable.Value
}

// Validator holds ordered rule sets keyed by type name. The zero value is not
// usable; call New to get the built-in rules.
type Validator struct {
	rules map[string][]Rule
}

// New creates a Validator seeded with the built-in rule sets.
func New() *Validator {
	v := &Validator{rules: make(map[string][]Rule)}
	v.registerDefaults()
	return v
}

// AddRule appends a rule to a type's rule set, creating the set if needed.
func (v *Validator) AddRule(typeName string, rule Rule) {
	key := strings.ToLower(typeName)
	v.rules[key] = append(v.rules[key], rule)
}

// Validate runs the type's rules, then any extra rules, in order. The
// sanitized value is threaded through the whole chain.
func (v *Validator) Validate(value datatable.Value, typeName string, extra ...Rule) Result {
	result := Result{Valid: true, Sanitized: value}
	for _, rule := range v.rules[strings.ToLower(typeName)] {
		v.applyRule(rule, &result)
	}
	for _, rule := range extra {
		v.applyRule(rule, &result)
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// applyRule sanitizes then checks. A panicking rule is recorded as a failure
// rather than propagated, so one bad rule cannot abort the row.
func (v *Validator) applyRule(rule Rule, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: validation error - %v", rule.Name, r))
		}
	}()
	if rule.Sanitize != nil {
		result.Sanitized = rule.Sanitize(result.Sanitized)
	}
	if rule.Check != nil && !rule.Check(result.Sanitized) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %s", rule.Name, rule.Message))
	}
}

// ValidateRow validates every column of a row against a column→type schema.
// Columns absent from the schema are valid with an "unmapped" warning;
// unmapped is not malformed.
func (v *Validator) ValidateRow(row datatable.Row, schema map[string]string) map[string]Result {
	results := make(map[string]Result, len(row))
	for column, value := range row {
		if typeName, ok := schema[column]; ok {
			results[column] = v.Validate(value, typeName)
		} else {
			results[column] = Result{
				Valid:     true,
				Warnings:  []string{"column not mapped in schema"},
				Sanitized: value,
			}
		}
	}
	return results
}

// validatorDateLayouts is the date shape accepted by the is_date rule,
// matching the converter's date-only formats.
var validatorDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
}

func parseAnyDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range validatorDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
