package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation   = "23505"
	sqliteUniquePrefix  = "UNIQUE constraint failed: "
	pgDuplicateKeyValue = "duplicate key value"
)

// UniqueKey identifies a unique constraint. Postgres reports Name while
// SQLite only lists the covered columns as table.column pairs. The zero
// value matches any unique violation.
type UniqueKey struct {
	Name    string
	Table   string
	Columns []string
}

func (k UniqueKey) any() bool {
	return k.Name == "" && len(k.Columns) == 0
}

func (k UniqueKey) sqliteColumns() string {
	cols := make([]string, len(k.Columns))
	for i, c := range k.Columns {
		cols[i] = k.Table + "." + c
	}
	return strings.Join(cols, ", ")
}

// IsUniqueViolation reports whether err is a unique constraint violation on
// key.
func IsUniqueViolation(err error, key UniqueKey) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return key.any() || (key.Name != "" && pgErr.ConstraintName == key.Name)
	}

	msg := err.Error()
	if i := strings.Index(msg, sqliteUniquePrefix); i >= 0 {
		if key.any() {
			return true
		}
		if len(key.Columns) == 0 {
			return false
		}
		failed := msg[i+len(sqliteUniquePrefix):]
		if j := strings.Index(failed, " ("); j >= 0 {
			failed = failed[:j]
		}
		return strings.TrimSpace(failed) == key.sqliteColumns()
	}
	if strings.Contains(msg, pgDuplicateKeyValue) {
		return key.any() || (key.Name != "" && strings.Contains(msg, `"`+key.Name+`"`))
	}
	return false
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
