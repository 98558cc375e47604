// internal/dispatch/phone.go
package dispatch

import (
	"strings"

	"campaign-engine/internal/common/errors"
)

// NormalizePhone converts a raw phone string to E.164. Ten-digit numbers
// are treated as US and get a +1 prefix; eleven digits starting with 1 get
// a plus sign; anything else is rejected.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	switch d := digits.String(); {
	case len(d) == 10:
		return "+1" + d, nil
	case len(d) == 11 && d[0] == '1':
		return "+" + d, nil
	default:
		return "", errors.NewInvalidPhoneError(raw)
	}
}
