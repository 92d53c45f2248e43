package wizard

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/badoux/checkmail"
)

// Local mobile numbers: exactly nine digits, no separators.
var rePhone = regexp.MustCompile(`^[0-9]{9}$`)

// ValidPhone reports whether p is an acceptable phone value. Empty is accepted;
// callers decide whether the field is mandatory.
func ValidPhone(p string) bool {
	return p == "" || rePhone.MatchString(p)
}

// NormEmail lowercases and trims e, reporting whether the result is valid syntax.
func NormEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", true // treat empty as ok/optional
	}
	return e, checkmail.ValidateFormat(e) == nil
}

// ParseBirthDate accepts the browser's yyyy-mm-dd and the other layouts dateparse knows.
func ParseBirthDate(s string) (time.Time, error) {
	return dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
}

func minLen(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
