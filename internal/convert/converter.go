package convert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"salespulse/internal/datatable"
)

// ErrUnsupportedType reports a conversion target the converter does not know.
// It indicates a setup mistake and is never produced for malformed data.
var ErrUnsupportedType = fmt.Errorf("unsupported conversion type")

// excelEpochThreshold separates Excel serial dates from Unix timestamps.
// Values above it are treated as days since 1899-12-30.
const excelEpochThreshold = 25569

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts is the ordered list of accepted date/datetime layouts. ISO
// comes first in each group; the date-only group is tried before the
// clocked group.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"2006/01/02 15:04:05",
	"02.01.2006 15:04:05",
}

var timeLayouts = []string{"15:04:05", "15:04", "150405", "1504"}

var trueWords = map[string]bool{
	"true": true, "verdadeiro": true, "sim": true, "yes": true,
	"s": true, "y": true, "1": true, "t": true, "v": true,
}

var falseWords = map[string]bool{
	"false": true, "falso": true, "não": true, "nao": true,
	"no": true, "n": true, "0": true, "f": true,
}

// Options tunes individual conversions.
type Options struct {
	// ArrayDelimiter splits plain strings in ToArray. Defaults to ",".
	ArrayDelimiter string
}

// Converter coerces Values into target column types. Custom converters may be
// registered by name and take precedence over the built-in set.
type Converter struct {
	custom map[string]func(datatable.Value) datatable.Value
}

// New creates a Converter with the built-in conversions only.
func New() *Converter {
	return &Converter{custom: make(map[string]func(datatable.Value) datatable.Value)}
}

// Register adds a custom converter under a type name. It is consulted before
// the built-in conversions, so built-ins can be overridden.
func (c *Converter) Register(typeName string, fn func(datatable.Value) datatable.Value) {
	c.custom[strings.ToLower(typeName)] = fn
}

// Convert coerces v into the target type using default options.
func (c *Converter) Convert(v datatable.Value, target datatable.DataType) (datatable.Value, error) {
	return c.ConvertWith(v, target, Options{})
}

// ConvertWith coerces v into the target type. Malformed input yields a null
// value with a nil error; only an unknown target type is an error.
func (c *Converter) ConvertWith(v datatable.Value, target datatable.DataType, opts Options) (datatable.Value, error) {
	if fn, ok := c.custom[string(target)]; ok {
		return fn(v), nil
	}
	switch target {
	case datatable.TypeText:
		return c.ToText(v), nil
	case datatable.TypeInteger:
		return c.ToInteger(v), nil
	case datatable.TypeFloat:
		return c.ToFloat(v), nil
	case datatable.TypeDecimal:
		return c.ToDecimal(v), nil
	case datatable.TypeBoolean:
		return c.ToBoolean(v), nil
	case datatable.TypeDate:
		return c.ToDate(v), nil
	case datatable.TypeDateTime:
		return c.ToDateTime(v), nil
	case datatable.TypeTime:
		return c.ToTime(v), nil
	case datatable.TypeJSON:
		return c.ToJSON(v), nil
	case datatable.TypeArray:
		return c.ToArray(v, opts.ArrayDelimiter), nil
	case datatable.TypeUUID:
		return c.ToText(v), nil
	}
	return datatable.Null(), fmt.Errorf("%w: %s", ErrUnsupportedType, target)
}

// ConvertNamed converts using a type name, which may refer to a registered
// custom converter, a built-in type, or "money".
func (c *Converter) ConvertNamed(v datatable.Value, typeName string) (datatable.Value, error) {
	name := strings.ToLower(strings.TrimSpace(typeName))
	if fn, ok := c.custom[name]; ok {
		return fn(v), nil
	}
	if name == "money" {
		return c.ToMoney(v), nil
	}
	dt, ok := datatable.ParseDataType(name)
	if !ok {
		return datatable.Null(), fmt.Errorf("%w: %s", ErrUnsupportedType, typeName)
	}
	return c.Convert(v, dt)
}

// ToText renders any value as text. Lists and JSON render as JSON documents,
// times as ISO-8601.
func (c *Converter) ToText(v datatable.Value) datatable.Value {
	if v.IsNull() {
		return datatable.Null()
	}
	return datatable.String(v.Text())
}

// ToInteger converts to an integer. Booleans become 0/1, floats truncate
// toward zero, currency strings are cleaned before parsing.
func (c *Converter) ToInteger(v datatable.Value) datatable.Value {
	if v.IsEmpty() {
		return datatable.Null()
	}
	switch v.Kind() {
	case datatable.KindBool:
		if v.BoolValue() {
			return datatable.Int(1)
		}
		return datatable.Int(0)
	case datatable.KindInt:
		return v
	case datatable.KindFloat:
		return datatable.Int(int64(v.FloatValue()))
	case datatable.KindDecimal:
		return datatable.Int(v.DecimalValue().IntPart())
	case datatable.KindString:
		f, ok := parseLocalizedFloat(v.StringValue())
		if !ok {
			return datatable.Null()
		}
		return datatable.Int(int64(f))
	}
	return datatable.Null()
}

// ToFloat converts to a float, sniffing Brazilian vs. international number
// formats on strings.
func (c *Converter) ToFloat(v datatable.Value) datatable.Value {
	if v.IsEmpty() {
		return datatable.Null()
	}
	switch v.Kind() {
	case datatable.KindBool:
		if v.BoolValue() {
			return datatable.Float(1)
		}
		return datatable.Float(0)
	case datatable.KindInt:
		return datatable.Float(float64(v.IntValue()))
	case datatable.KindFloat:
		return v
	case datatable.KindDecimal:
		f, _ := v.DecimalValue().Float64()
		return datatable.Float(f)
	case datatable.KindString:
		f, ok := parseLocalizedFloat(v.StringValue())
		if !ok {
			return datatable.Null()
		}
		return datatable.Float(f)
	}
	return datatable.Null()
}

// ToDecimal converts to an exact decimal using the same locale handling as
// ToFloat.
func (c *Converter) ToDecimal(v datatable.Value) datatable.Value {
	if v.IsEmpty() {
		return datatable.Null()
	}
	switch v.Kind() {
	case datatable.KindDecimal:
		return v
	case datatable.KindInt:
		return datatable.Decimal(decimal.NewFromInt(v.IntValue()))
	case datatable.KindFloat:
		return datatable.Decimal(decimal.NewFromFloat(v.FloatValue()))
	case datatable.KindBool:
		if v.BoolValue() {
			return datatable.Decimal(decimal.NewFromInt(1))
		}
		return datatable.Decimal(decimal.NewFromInt(0))
	case datatable.KindString:
		cleaned, ok := normalizeNumericString(v.StringValue())
		if !ok {
			return datatable.Null()
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return datatable.Null()
		}
		return datatable.Decimal(d)
	}
	return datatable.Null()
}

// ToMoney converts to a decimal quantized to exactly two fractional digits,
// rounding half up.
func (c *Converter) ToMoney(v datatable.Value) datatable.Value {
	d := c.ToDecimal(v)
	if d.IsNull() {
		return datatable.Null()
	}
	return datatable.Decimal(d.DecimalValue().Round(2))
}

// ToBoolean converts to a boolean. Recognized words come from fixed true/false
// sets (English and Portuguese); unrecognized strings yield null, not false.
func (c *Converter) ToBoolean(v datatable.Value) datatable.Value {
	if v.IsNull() {
		return datatable.Null()
	}
	switch v.Kind() {
	case datatable.KindBool:
		return v
	case datatable.KindString:
		word := strings.ToLower(strings.TrimSpace(v.StringValue()))
		if trueWords[word] {
			return datatable.Bool(true)
		}
		if falseWords[word] {
			return datatable.Bool(false)
		}
		return datatable.Null()
	case datatable.KindInt:
		return datatable.Bool(v.IntValue() != 0)
	case datatable.KindFloat:
		return datatable.Bool(v.FloatValue() != 0)
	case datatable.KindDecimal:
		return datatable.Bool(!v.DecimalValue().IsZero())
	}
	return datatable.Null()
}

// ToDate converts to an ISO-8601 date string. Numeric inputs are interpreted
// as Excel serial dates above the 1970 threshold, otherwise as Unix
// timestamps.
func (c *Converter) ToDate(v datatable.Value) datatable.Value {
	t, ok := c.parseTemporal(v)
	if !ok {
		return datatable.Null()
	}
	return datatable.String(t.Format("2006-01-02"))
}

// ToDateTime converts to an ISO-8601 datetime string. Inputs without a clock
// component get T00:00:00.
func (c *Converter) ToDateTime(v datatable.Value) datatable.Value {
	t, ok := c.parseTemporal(v)
	if !ok {
		return datatable.Null()
	}
	return datatable.String(t.Format("2006-01-02T15:04:05"))
}

// ToTime converts to an ISO-8601 clock string.
func (c *Converter) ToTime(v datatable.Value) datatable.Value {
	if v.IsEmpty() {
		return datatable.Null()
	}
	if v.Kind() == datatable.KindTime {
		return datatable.String(v.TimeValue().Format("15:04:05"))
	}
	if v.Kind() != datatable.KindString {
		return datatable.Null()
	}
	s := strings.TrimSpace(v.StringValue())
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return datatable.String(t.Format("15:04:05"))
		}
	}
	return datatable.Null()
}

// parseTemporal resolves a value into a time.Time using the shared layout
// list and the Excel-serial / Unix-timestamp rules.
func (c *Converter) parseTemporal(v datatable.Value) (time.Time, bool) {
	if v.IsEmpty() {
		return time.Time{}, false
	}
	switch v.Kind() {
	case datatable.KindTime:
		return v.TimeValue(), true
	case datatable.KindInt:
		return numericToTime(float64(v.IntValue()))
	case datatable.KindFloat:
		return numericToTime(v.FloatValue())
	case datatable.KindString:
		s := strings.TrimSpace(v.StringValue())
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func numericToTime(f float64) (time.Time, bool) {
	if f > excelEpochThreshold {
		days := int(f)
		frac := f - float64(days)
		t := excelEpoch.AddDate(0, 0, days)
		if frac > 0 {
			t = t.Add(time.Duration(frac * float64(24*time.Hour)))
		}
		return t, true
	}
	if f < 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// ToJSON converts to a JSON document. Valid JSON strings pass through;
// anything else is serialized, falling back to its text rendering.
func (c *Converter) ToJSON(v datatable.Value) datatable.Value {
	if v.IsNull() {
		return datatable.Null()
	}
	switch v.Kind() {
	case datatable.KindJSON:
		return v
	case datatable.KindString:
		if gjson.Valid(v.StringValue()) {
			return datatable.JSON(v.StringValue())
		}
		out, err := json.Marshal(v.StringValue())
		if err != nil {
			return datatable.Null()
		}
		return datatable.JSON(string(out))
	default:
		out, err := json.Marshal(v.Native())
		if err != nil {
			return datatable.JSON(strconv.Quote(v.Text()))
		}
		return datatable.JSON(string(out))
	}
}

// ToArray converts to a list. JSON array strings are parsed as JSON; other
// strings split on the delimiter with per-item trimming and empty removal;
// any other scalar wraps into a singleton list.
func (c *Converter) ToArray(v datatable.Value, delimiter string) datatable.Value {
	if v.IsNull() {
		return datatable.Null()
	}
	if delimiter == "" {
		delimiter = ","
	}
	switch v.Kind() {
	case datatable.KindList:
		return v
	case datatable.KindString:
		s := strings.TrimSpace(v.StringValue())
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") && gjson.Valid(s) {
			parsed := gjson.Parse(s)
			if parsed.IsArray() {
				var items []datatable.Value
				parsed.ForEach(func(_, item gjson.Result) bool {
					items = append(items, datatable.FromNative(item.Value()))
					return true
				})
				return datatable.List(items...)
			}
		}
		var items []datatable.Value
		for _, part := range strings.Split(s, delimiter) {
			part = strings.TrimSpace(part)
			if part != "" {
				items = append(items, datatable.String(part))
			}
		}
		return datatable.List(items...)
	default:
		return datatable.List(v)
	}
}

// ConvertColumn converts every value of a column to the target type.
func (c *Converter) ConvertColumn(values []datatable.Value, target datatable.DataType, opts Options) ([]datatable.Value, error) {
	out := make([]datatable.Value, len(values))
	for i, v := range values {
		converted, err := c.ConvertWith(v, target, opts)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

// ConvertTable converts the listed columns of a table in place. Columns are
// independent, so they convert concurrently; the table itself is only written
// once every column has converted. Columns absent from the table are skipped;
// an unknown target type is a configuration error.
func (c *Converter) ConvertTable(t *datatable.Table, types map[string]datatable.DataType) error {
	columns := make([]string, 0, len(types))
	for _, column := range t.Columns() {
		if _, ok := types[column]; ok {
			columns = append(columns, column)
		}
	}

	converted := make([][]datatable.Value, len(columns))
	var g errgroup.Group
	for i, column := range columns {
		i, column := i, column
		g.Go(func() error {
			out, err := c.ConvertColumn(t.Column(column), types[column], Options{})
			if err != nil {
				return fmt.Errorf("column %s: %w", column, err)
			}
			converted[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, column := range columns {
		if err := t.SetColumn(column, converted[i]); err != nil {
			return err
		}
	}
	return nil
}

// normalizeNumericString strips currency symbols and whitespace and rewrites
// locale-specific separators into plain decimal notation. When both "." and
// "," appear, the rightmost one is the decimal point.
func normalizeNumericString(s string) (string, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "R$", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return "", false
	}
	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// Brazilian: 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// International: 1,234.56
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		// A lone comma is always the decimal separator.
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	return cleaned, true
}

func parseLocalizedFloat(s string) (float64, bool) {
	cleaned, ok := normalizeNumericString(s)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
