// Package money parses and aggregates monetary amounts.
package money

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// leadingNumber matches the longest decimal literal at the start of a string:
// optional sign, digits with an optional fraction (or a bare fraction), and an
// optional exponent.
var leadingNumber = regexp.MustCompile(`^([+-]?)(?:(\d+)(?:\.(\d*))?|\.(\d+))(?:[eE]([+-]?\d+))?`)

// maxExponent bounds the exponent handed to decimal. Literals beyond it are
// outside float64 range and parse as zero.
const maxExponent = 400

// ParseLeading parses the decimal literal at the start of s, ignoring leading
// whitespace and anything after the literal. It reports false when s does not
// start with a number.
func ParseLeading(s string) (decimal.Decimal, bool) {
	m := leadingNumber.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return decimal.Zero, false
	}

	var b strings.Builder
	if m[1] == "-" {
		b.WriteByte('-')
	}
	switch {
	case m[2] != "":
		b.WriteString(m[2])
		if m[3] != "" {
			b.WriteByte('.')
			b.WriteString(m[3])
		}
	default:
		b.WriteString("0.")
		b.WriteString(m[4])
	}
	if m[5] != "" {
		exp, err := strconv.Atoi(m[5])
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return decimal.Zero, true
		}
		b.WriteByte('e')
		b.WriteString(strconv.Itoa(exp))
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ToFloat converts d to a float64, mapping non-finite results to zero.
func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

var shorthandMultipliers = map[byte]decimal.Decimal{
	'k': decimal.NewFromInt(1_000),
	'm': decimal.NewFromInt(1_000_000),
	'b': decimal.NewFromInt(1_000_000_000),
}

// ParseShorthand converts user-typed amounts such as "1.5k", "2M" or "1b"
// into a number. Input without a suffix is parsed as a plain number.
// Unparseable input yields 0.
func ParseShorthand(value string) float64 {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return 0
	}

	mult := decimal.NewFromInt(1)
	if m, ok := shorthandMultipliers[v[len(v)-1]]; ok {
		mult = m
		v = v[:len(v)-1]
	}

	d, ok := ParseLeading(v)
	if !ok {
		return 0
	}
	return ToFloat(d.Mul(mult))
}

// Sum adds amounts in decimal arithmetic so long series do not accumulate
// binary rounding error.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return ToFloat(total)
}
