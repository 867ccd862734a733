package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// TimeFormat is the layout of every TEXT timestamp column. Fixed-width
// fractional seconds keep lexical and chronological order identical.
const TimeFormat = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in UTC using TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime reads a timestamp column written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// BoolToInt maps a Go bool onto SQLite's INTEGER boolean.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
