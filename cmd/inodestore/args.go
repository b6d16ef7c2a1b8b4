package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// parseDecimal reads s as a base-10 integer. Leading zeros are ignored, so
// "010" is 10 rather than an octal literal.
func parseDecimal(s string) (int, error) {
	s = strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("%q is not a decimal integer", sign+s)
	}

	digits := strings.TrimLeft(s, "0")
	if digits == "" {
		digits = "0"
	}
	return cast.ToIntE(sign + digits)
}
