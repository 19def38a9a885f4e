package value

import (
	"errors"
	"strconv"
	"strings"
)

// Infer maps a raw CLI token to a wire value. Candidates are tried in order:
// boolean literal, 64-bit integer, double, and finally the token itself as a
// string. Infer never fails.
func Infer(token string) Value {
	switch token {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return Int64(i)
	}
	if f, ok := parseFloat(token); ok {
		return Float64(f)
	}
	return Str(token)
}

// InferAll maps tokens in order.
func InferAll(tokens []string) []Value {
	out := make([]Value, len(tokens))
	for i, t := range tokens {
		out[i] = Infer(t)
	}
	return out
}

// parseFloat accepts decimal and exponent literals plus inf/infinity/nan.
// Out-of-range literals keep the saturated result (±Inf or 0) instead of
// being treated as strings. Hexadecimal mantissas and digit separators are
// not float literals on this surface.
func parseFloat(token string) (float64, bool) {
	if hasHexPrefix(token) || strings.ContainsRune(token, '_') {
		return 0, false
	}
	f, err := strconv.ParseFloat(token, 64)
	if err == nil {
		return f, true
	}
	if errors.Is(err, strconv.ErrRange) {
		return f, true
	}
	return 0, false
}

func hasHexPrefix(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
