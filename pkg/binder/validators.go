package binder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	dateRE      = regexp.MustCompile(`^\d{4}-(0[0-9]|1[0-2])-(0[0-9]|1[0-9]|2[0-9]|3[0-1])$`)
	chapterNoRE = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[A-Za-z0-9._-]*$`)
	mobileRE    = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)
)

// dateValidator ensures the value matches the format YYYY-MM-DD or the empty
// string. The reason the empty string is allowed is that this validator can be
// used to clear out values. If the value is required, add a `ne=` to the
// validate tag so that the empty string is disallowed.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return dateRE.MatchString(value)
}

// chapterNumberValidator accepts chapter labels like "12", "10.5" or "7b".
func chapterNumberValidator(fl validator.FieldLevel) bool {
	return chapterNoRE.MatchString(fl.Field().String())
}

// mobileValidator allows the empty string so a number can be cleared.
func mobileValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return mobileRE.MatchString(value)
}
