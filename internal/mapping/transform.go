package mapping

import (
	"regexp"
	"strings"

	"salespulse/internal/datatable"
)

// TransformKind enumerates the closed set of value transformations.
type TransformKind string

const (
	TransformUppercase TransformKind = "uppercase"
	TransformLowercase TransformKind = "lowercase"
	TransformTrim      TransformKind = "trim"
	TransformReplace   TransformKind = "replace"
	TransformRegex     TransformKind = "regex"
	TransformCustom    TransformKind = "custom"
)

// Transform is one step of a mapping's transformation chain. Pattern and
// Replacement apply to the replace and regex kinds; Func to custom.
type Transform struct {
	Kind        TransformKind
	Pattern     string
	Replacement string
	Func        func(datatable.Value) datatable.Value
}

// Apply runs the transformation. Empty values pass through untouched, a
// custom transform with a nil Func is a no-op, and an invalid regex pattern
// leaves the value unchanged.
func (t Transform) Apply(v datatable.Value) datatable.Value {
	if v.IsEmpty() {
		return v
	}
	switch t.Kind {
	case TransformUppercase:
		return datatable.String(strings.ToUpper(v.Text()))
	case TransformLowercase:
		return datatable.String(strings.ToLower(v.Text()))
	case TransformTrim:
		return datatable.String(strings.TrimSpace(v.Text()))
	case TransformReplace:
		return datatable.String(strings.ReplaceAll(v.Text(), t.Pattern, t.Replacement))
	case TransformRegex:
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return v
		}
		return datatable.String(re.ReplaceAllString(v.Text(), t.Replacement))
	case TransformCustom:
		if t.Func == nil {
			return v
		}
		return t.Func(v)
	}
	return v
}

var (
	nonWordChars = regexp.MustCompile(`[^\w\s-]`)
	wordBreaks   = regexp.MustCompile(`[-\s]+`)
)

// CleanName normalizes a column name into its canonical identifier form:
// non-alphanumeric characters removed, whitespace and dashes collapsed to
// underscores, lowercased.
func CleanName(name string) string {
	cleaned := nonWordChars.ReplaceAllString(strings.TrimSpace(name), "")
	cleaned = wordBreaks.ReplaceAllString(cleaned, "_")
	return strings.ToLower(cleaned)
}
