package database

import (
	"strings"

	"github.com/pkg/errors"
)

// IsUniqueViolation reports whether err came from a UNIQUE constraint or
// unique index rejecting a write.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(errors.Cause(err).Error(), "UNIQUE constraint failed")
}
