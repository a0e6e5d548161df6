// Package protocol holds the text scanning primitives for the tracking wire format.
//
// Every function takes the remaining input and returns the value together with the input that
// follows it. On failure the input is returned unchanged and the error wraps ErrParse, so a
// caller can abandon a line without any partial state.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is wrapped by every scanning failure.
var ErrParse = errors.New("protocol: parse error")

func parseErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func skipSpace(s string) string {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return s[i:]
}

// intToken returns the longest prefix that reads as a C integer literal with automatic base
// detection: optional sign, then 0x-prefixed hex, 0-prefixed octal or decimal digits.
func intToken(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	switch {
	case i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') && isHex(s[i+2]):
		i += 2
		for i < len(s) && isHex(s[i]) {
			i++
		}
	case i < len(s) && s[i] == '0':
		i++
		for i < len(s) && isOctal(s[i]) {
			i++
		}
	default:
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i == start {
		return ""
	}
	return s[:i]
}

// realToken returns the longest prefix that reads as a decimal floating point literal, including
// the inf and nan spellings.
func realToken(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	lower := strings.ToLower(s[i:])
	for _, word := range []string{"infinity", "inf", "nan"} {
		if strings.HasPrefix(lower, word) {
			return s[:i+len(word)]
		}
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return s[:i]
}

// normalizeInt rewrites a C octal literal into Go's 0o form; hex and decimal pass through.
func normalizeInt(tok string) string {
	sign := ""
	body := tok
	if body[0] == '+' || body[0] == '-' {
		sign, body = body[:1], body[1:]
	}
	if len(body) > 1 && body[0] == '0' && body[1] != 'x' && body[1] != 'X' {
		return sign + "0o" + body[1:]
	}
	return tok
}

// Int reads a signed integer.
func Int(s string) (int, string, error) {
	t := skipSpace(s)
	tok := intToken(t)
	if tok == "" {
		return 0, s, parseErr("expected integer at %q", preview(s))
	}
	v, err := strconv.ParseInt(normalizeInt(tok), 0, 32)
	if err != nil {
		return 0, s, parseErr("integer %q: %v", tok, err)
	}
	return int(v), t[len(tok):], nil
}

// Uint reads an unsigned 32 bit integer.
func Uint(s string) (uint32, string, error) {
	t := skipSpace(s)
	tok := intToken(t)
	if tok == "" || tok[0] == '-' {
		return 0, s, parseErr("expected unsigned integer at %q", preview(s))
	}
	v, err := strconv.ParseUint(normalizeInt(strings.TrimPrefix(tok, "+")), 0, 32)
	if err != nil {
		return 0, s, parseErr("unsigned integer %q: %v", tok, err)
	}
	return uint32(v), t[len(tok):], nil
}

// Float64 reads a double precision real.
func Float64(s string) (float64, string, error) {
	return scanReal(s, 64)
}

// Float32 reads a single precision real. The value is returned widened to float64.
func Float32(s string) (float64, string, error) {
	return scanReal(s, 32)
}

func scanReal(s string, bits int) (float64, string, error) {
	t := skipSpace(s)
	tok := realToken(t)
	if tok == "" {
		return 0, s, parseErr("expected number at %q", preview(s))
	}
	v, err := strconv.ParseFloat(tok, bits)
	if err != nil {
		return 0, s, parseErr("number %q: %v", tok, err)
	}
	return v, t[len(tok):], nil
}

// Word reads a blank separated token.
func Word(s string) (string, string, error) {
	t := strings.TrimLeft(s, " ")
	end := strings.IndexByte(t, ' ')
	if end < 0 {
		end = len(t)
	}
	if end == 0 {
		return "", s, parseErr("expected word")
	}
	return t[:end], t[end:], nil
}

// Quoted reads the text between the next two double quotes.
func Quoted(s string) (string, string, error) {
	open := strings.IndexByte(s, '"')
	if open < 0 {
		return "", s, parseErr("expected quoted text")
	}
	closing := strings.IndexByte(s[open+1:], '"')
	if closing < 0 {
		return "", s, parseErr("unterminated quoted text")
	}
	text := s[open+1 : open+1+closing]
	return text, s[open+1+closing+1:], nil
}

func preview(s string) string {
	const n = 24
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
