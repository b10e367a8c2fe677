// Package payment drives the card payment form: input formatting, validation,
// the simulated charge and the receipt.
package payment

import (
	"regexp"
	"sort"
	"strings"
)

// Field names a form input.
type Field string

const (
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldCardNumber Field = "cardNumber"
	FieldExpiry     Field = "expiryDate"
	FieldCVV        Field = "cvv"
)

// Fields lists the inputs in display order.
var Fields = []Field{FieldName, FieldEmail, FieldCardNumber, FieldExpiry, FieldCVV}

// Form holds the raw-but-formatted inputs. It is never persisted.
type Form struct {
	Name       string
	Email      string
	CardNumber string
	ExpiryDate string
	CVV        string
}

// Get returns the value of f.
func (f Form) Get(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldCardNumber:
		return f.CardNumber
	case FieldExpiry:
		return f.ExpiryDate
	case FieldCVV:
		return f.CVV
	}
	return ""
}

func (f *Form) set(field Field, v string) {
	switch field {
	case FieldName:
		f.Name = v
	case FieldEmail:
		f.Email = v
	case FieldCardNumber:
		f.CardNumber = v
	case FieldExpiry:
		f.ExpiryDate = v
	case FieldCVV:
		f.CVV = v
	}
}

var (
	nonDigit   = regexp.MustCompile(`\D`)
	whitespace = regexp.MustCompile(`\s`)
	emailShape = regexp.MustCompile(`\S+@\S+\.\S+`)
)

func digits(raw string, max int) string {
	d := nonDigit.ReplaceAllString(raw, "")
	if len(d) > max {
		d = d[:max]
	}
	return d
}

// FormatCardNumber keeps up to 16 digits grouped in blocks of four.
func FormatCardNumber(raw string) string {
	d := digits(raw, 16)
	var b strings.Builder
	for i := 0; i < len(d); i += 4 {
		end := i + 4
		if end > len(d) {
			end = len(d)
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d[i:end])
	}
	return b.String()
}

// FormatExpiry keeps up to 4 digits as MM/YY, adding the slash once two digits exist.
func FormatExpiry(raw string) string {
	d := digits(raw, 4)
	if len(d) >= 2 {
		return d[:2] + "/" + d[2:]
	}
	return d
}

// FormatCVV keeps up to 3 digits.
func FormatCVV(raw string) string {
	return digits(raw, 3)
}

// Format applies the input mask for field. Name and email pass through.
func Format(field Field, raw string) string {
	switch field {
	case FieldCardNumber:
		return FormatCardNumber(raw)
	case FieldExpiry:
		return FormatExpiry(raw)
	case FieldCVV:
		return FormatCVV(raw)
	}
	return raw
}

// Validation maps a field to its error message. Empty means valid.
type Validation map[Field]string

// Valid reports whether no field failed.
func (v Validation) Valid() bool { return len(v) == 0 }

// Fields returns the failing fields in display order.
func (v Validation) Fields() []Field {
	out := make([]Field, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	order := make(map[Field]int, len(Fields))
	for i, f := range Fields {
		order[f] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// Validate checks every field independently.
func Validate(f Form) Validation {
	v := Validation{}

	if strings.TrimSpace(f.Name) == "" {
		v[FieldName] = "Name is required"
	}

	if strings.TrimSpace(f.Email) == "" {
		v[FieldEmail] = "Email is required"
	} else if !emailShape.MatchString(f.Email) {
		v[FieldEmail] = "Invalid email"
	}

	if strings.TrimSpace(f.CardNumber) == "" {
		v[FieldCardNumber] = "Card number is required"
	} else if len(whitespace.ReplaceAllString(f.CardNumber, "")) != 16 {
		v[FieldCardNumber] = "Must be 16 digits"
	}

	if strings.TrimSpace(f.ExpiryDate) == "" {
		v[FieldExpiry] = "Expiry date required"
	} else if len(f.ExpiryDate) != 5 {
		v[FieldExpiry] = "Invalid expiry"
	}

	if strings.TrimSpace(f.CVV) == "" {
		v[FieldCVV] = "CVV required"
	} else if len(f.CVV) != 3 {
		v[FieldCVV] = "Must be 3 digits"
	}

	return v
}
