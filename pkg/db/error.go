package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Not every driver error reaches us as gorm.ErrDuplicatedKey; the raw
// message is matched as a fallback, one marker per supported dialect.
var duplicateKeyMarkers = []string{
	"duplicate key value violates unique constraint", // postgres 23505
	"Error 1062",               // mysql ER_DUP_ENTRY
	"UNIQUE constraint failed", // sqlite 2067
}

// IsDuplicateKeyErr reports whether err is a unique-constraint
// violation. Invoice and snapshot writes rely on this to turn racing
// inserts into idempotent no-ops.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
