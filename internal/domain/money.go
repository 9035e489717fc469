package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is a monetary amount in minor units. Sums stay exact.
type Cents int64

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Cents) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid amount %s", string(data))
		}
		*c = Cents(n)
		return nil
	}
	parsed, err := ParseCents(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCents parses "123", "-123.4" or "123.45". Only ASCII digits are
// accepted on either side of the point, with at most two after it.
func ParseCents(s string) (Cents, error) {
	raw := strings.TrimSpace(s)
	whole, frac, hasPoint := strings.Cut(strings.TrimPrefix(raw, "-"), ".")
	if !isDigits(whole) || (hasPoint && !isDigits(frac)) || len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	minor := amount.Shift(2)
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return Cents(minor.IntPart()), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
