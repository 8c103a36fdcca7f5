package helpers

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bdMobilePattern matches Bangladeshi mobile numbers with an optional +88 prefix.
var bdMobilePattern = regexp.MustCompile(`^(\+88)?01[3-9]\d{8}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

var validate = validator.New()

// NormalizePhone strips whitespace and common separators.
func NormalizePhone(raw string) string {
	return phoneSeparators.Replace(strings.TrimSpace(raw))
}

// IsValidPhone reports whether raw is a national mobile number.
func IsValidPhone(raw string) bool {
	return bdMobilePattern.MatchString(NormalizePhone(raw))
}

// IsValidEmail reports whether raw is an email address. Empty input is not valid.
func IsValidEmail(raw string) bool {
	return validate.Var(strings.TrimSpace(raw), "required,email") == nil
}

// NormalizeText trims surrounding whitespace and collapses inner runs of spaces.
func NormalizeText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
