package linking

import (
	"regexp"
	"strings"
)

// UnmatchedText is the raw text of the Unmatched key. It never equals a
// catalog specification number because those always contain spaces.
const UnmatchedText = "000000"

var (
	sixDigitsRe = regexp.MustCompile(`[0-9]{6}`)
	canonicalRe = regexp.MustCompile(`^[0-9]{2} [0-9]{2} [0-9]{2}$`)
)

// Key is the join key derived from a detail number. The zero value is the
// Unmatched sentinel.
type Key struct {
	value string
}

// Unmatched is the key assigned to detail numbers that embed no specification
// reference. It matches nothing.
var Unmatched = Key{}

// Matched reports whether the key refers to a specification number.
func (k Key) Matched() bool {
	return k.value != ""
}

// String returns the grouped key text, or UnmatchedText for the sentinel.
func (k Key) String() string {
	if k.value == "" {
		return UnmatchedText
	}
	return k.value
}

// Normalize maps a raw detail number to its specification key. The first run
// of six digits is regrouped as "dd dd dd"; numbers without one map to
// Unmatched. Already normalized text (grouped keys and UnmatchedText) maps to
// itself, so Normalize(Normalize(x).String()) == Normalize(x).
//
// As a consequence a raw detail number written exactly in grouped form, such
// as "07 21 00", links to that specification even though it holds no
// six-digit run. Plain digit extraction would map it to Unmatched and break
// idempotence; catalog detail numbers never take this form.
func Normalize(raw string) Key {
	trimmed := strings.TrimSpace(raw)
	if trimmed == UnmatchedText {
		return Unmatched
	}
	if canonicalRe.MatchString(trimmed) {
		return Key{value: trimmed}
	}
	digits := sixDigitsRe.FindString(raw)
	if digits == "" {
		return Unmatched
	}
	return formatKey(digits)
}

func formatKey(digits string) Key {
	if !allDigits(digits) || len(digits) != 6 {
		// Unreachable from Normalize; keep the text rather than fail.
		return Key{value: digits}
	}
	return Key{value: digits[0:2] + " " + digits[2:4] + " " + digits[4:6]}
}

func allDigits(s string) bool {
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
