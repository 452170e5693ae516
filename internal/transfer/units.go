package transfer

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits scales a decimal string to an integer amount with the given number of decimals. The scaling is exact:
// more fractional digits than decimals is an error, not a rounding.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	whole, frac, hasPoint := strings.Cut(amount, ".")
	if whole == "" && (!hasPoint || frac == "") {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidAmount, amount)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidAmount, amount)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: '%s' has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidAmount, amount)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: '%s' must be positive", ErrInvalidAmount, amount)
	}

	return value, nil
}

// FormatUnits renders an integer amount with decimals, trimming trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	s := new(big.Int).Abs(value).String()
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	point := len(s) - int(decimals)
	whole, frac := s[:point], strings.TrimRight(s[point:], "0")
	if value.Sign() < 0 {
		whole = "-" + whole
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
