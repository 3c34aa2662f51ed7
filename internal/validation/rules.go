package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salespulse/internal/datatable"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitPattern = regexp.MustCompile(`\D`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
)

// registerDefaults seeds the built-in rule sets. Registration order is the
// execution order.
func (v *Validator) registerDefaults() {
	v.AddRule("text", Rule{
		Name:    "not_empty",
		Message: "value must not be empty",
		Check: func(val datatable.Value) bool {
			return !val.IsNull() && strings.TrimSpace(val.Text()) != ""
		},
		Sanitize: func(val datatable.Value) datatable.Value {
			if val.IsNull() {
				return datatable.String("")
			}
			return datatable.String(strings.TrimSpace(val.Text()))
		},
	})
	v.AddRule("text", Rule{
		Name:    "max_length",
		Message: "text exceeds the maximum allowed length",
		Check: func(val datatable.Value) bool {
			if val.IsEmpty() {
				return true
			}
			return len([]rune(val.Text())) <= 255
		},
	})

	v.AddRule("integer", Rule{
		Name:    "is_integer",
		Message: "value must be an integer",
		Check: func(val datatable.Value) bool {
			switch val.Kind() {
			case datatable.KindInt:
				return true
			case datatable.KindString:
				return digitsPattern.MatchString(strings.TrimSpace(val.StringValue()))
			}
			return false
		},
		Sanitize: func(val datatable.Value) datatable.Value {
			if val.IsEmpty() {
				return datatable.Null()
			}
			if val.Kind() == datatable.KindString {
				if i, err := strconv.ParseInt(strings.TrimSpace(val.StringValue()), 10, 64); err == nil {
					return datatable.Int(i)
				}
			}
			return val
		},
	})

	v.AddRule("float", Rule{
		Name:     "is_float",
		Message:  "value must be a decimal number",
		Check:    isFloatShaped,
		Sanitize: sanitizeFloat,
	})

	v.AddRule("date", Rule{
		Name:    "is_date",
		Message: "invalid date",
		Check: func(val datatable.Value) bool {
			if val.Kind() == datatable.KindTime {
				return true
			}
			if val.IsEmpty() {
				return false
			}
			_, ok := parseAnyDate(val.Text())
			return ok
		},
		Sanitize: func(val datatable.Value) datatable.Value {
			if val.IsEmpty() {
				return datatable.Null()
			}
			if val.Kind() == datatable.KindTime {
				return datatable.String(val.TimeValue().Format("2006-01-02"))
			}
			if t, ok := parseAnyDate(val.Text()); ok {
				return datatable.String(t.Format("2006-01-02"))
			}
			return val
		},
	})

	v.AddRule("email", Rule{
		Name:    "is_email",
		Message: "invalid email",
		Check: func(val datatable.Value) bool {
			if val.IsEmpty() {
				return false
			}
			return emailPattern.MatchString(val.Text())
		},
		Sanitize: func(val datatable.Value) datatable.Value {
			if val.IsEmpty() {
				return datatable.Null()
			}
			return datatable.String(strings.ToLower(strings.TrimSpace(val.Text())))
		},
	})

	v.AddRule("cpf", Rule{
		Name:     "is_cpf",
		Message:  "invalid CPF",
		Check:    func(val datatable.Value) bool { return IsValidCPF(val.Text()) },
		Sanitize: sanitizeDigits,
	})

	v.AddRule("cnpj", Rule{
		Name:     "is_cnpj",
		Message:  "invalid CNPJ",
		Check:    func(val datatable.Value) bool { return IsValidCNPJ(val.Text()) },
		Sanitize: sanitizeDigits,
	})

	v.AddRule("money", Rule{
		Name:    "is_money",
		Message: "invalid monetary value",
		Check: func(val datatable.Value) bool {
			if val.Kind() == datatable.KindDecimal {
				return true
			}
			switch val.Kind() {
			case datatable.KindInt, datatable.KindFloat:
				return true
			}
			if val.IsEmpty() {
				return false
			}
			_, ok := parseMoney(val.Text())
			return ok
		},
		Sanitize: func(val datatable.Value) datatable.Value {
			if val.IsEmpty() {
				return datatable.Null()
			}
			switch val.Kind() {
			case datatable.KindDecimal:
				return val
			case datatable.KindInt:
				return datatable.Decimal(decimal.NewFromInt(val.IntValue()))
			case datatable.KindFloat:
				return datatable.Decimal(decimal.NewFromFloat(val.FloatValue()))
			}
			if d, ok := parseMoney(val.Text()); ok {
				return datatable.Decimal(d)
			}
			return val
		},
	})

	v.AddRule("uuid", Rule{
		Name:    "is_uuid",
		Message: "invalid UUID",
		Check: func(val datatable.Value) bool {
			if val.IsEmpty() {
				return false
			}
			_, err := uuid.Parse(strings.TrimSpace(val.Text()))
			return err == nil
		},
		Sanitize: func(val datatable.Value) datatable.Value {
			if val.IsEmpty() {
				return datatable.Null()
			}
			return datatable.String(strings.ToLower(strings.TrimSpace(val.Text())))
		},
	})
}

func isFloatShaped(val datatable.Value) bool {
	switch val.Kind() {
	case datatable.KindInt, datatable.KindFloat, datatable.KindDecimal:
		return true
	case datatable.KindString:
		_, ok := parseMoney(val.StringValue())
		return ok
	}
	return false
}

// sanitizeFloat rewrites locale-formatted numeric strings into floats,
// tolerating currency symbols the same way the money rule does.
func sanitizeFloat(val datatable.Value) datatable.Value {
	if val.IsEmpty() {
		return datatable.Null()
	}
	switch val.Kind() {
	case datatable.KindFloat:
		return val
	case datatable.KindInt:
		return datatable.Float(float64(val.IntValue()))
	case datatable.KindDecimal:
		f, _ := val.DecimalValue().Float64()
		return datatable.Float(f)
	case datatable.KindString:
		if d, ok := parseMoney(val.StringValue()); ok {
			f, _ := d.Float64()
			return datatable.Float(f)
		}
	}
	return val
}

func sanitizeDigits(val datatable.Value) datatable.Value {
	if val.IsEmpty() {
		return datatable.Null()
	}
	return datatable.String(nonDigitPattern.ReplaceAllString(val.Text(), ""))
}

// parseMoney accepts currency symbols and locale-formatted separators.
func parseMoney(s string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(s, "R$", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// IsValidCPF validates an 11-digit Brazilian CPF using its two modulo-11
// check digits. All-equal sequences are rejected.
func IsValidCPF(s string) bool {
	cpf := nonDigitPattern.ReplaceAllString(s, "")
	if len(cpf) != 11 {
		return false
	}
	if allSameDigit(cpf) {
		return false
	}
	for _, i := range []int{9, 10} {
		sum := 0
		for pos := 0; pos < i; pos++ {
			sum += int(cpf[pos]-'0') * (i + 1 - pos)
		}
		digit := (sum * 10 % 11) % 10
		if digit != int(cpf[i]-'0') {
			return false
		}
	}
	return true
}

// IsValidCNPJ validates a 14-digit Brazilian CNPJ. The weight sequence starts
// at size-7 and wraps from 2 back to 9.
func IsValidCNPJ(s string) bool {
	cnpj := nonDigitPattern.ReplaceAllString(s, "")
	if len(cnpj) != 14 {
		return false
	}
	if allSameDigit(cnpj) {
		return false
	}
	for _, size := range []int{12, 13} {
		sum := 0
		weight := size - 7
		for i := 0; i < size; i++ {
			sum += int(cnpj[i]-'0') * weight
			weight--
			if weight < 2 {
				weight = 9
			}
		}
		digit := 0
		if rem := sum % 11; rem >= 2 {
			digit = 11 - rem
		}
		if digit != int(cnpj[size]-'0') {
			return false
		}
	}
	return true
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
