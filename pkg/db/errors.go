package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique-constraint
// violation. Postgres reports "duplicate key value"; the sqlite driver used in
// tests reports "UNIQUE constraint failed".
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
