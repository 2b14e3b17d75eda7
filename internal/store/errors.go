package store

import (
	"errors"
	"strings"

	"github.com/isdelr/referral-be/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// translateError maps unique-constraint violations from either driver to
// models.ErrConflict, naming the offending field when it can be determined.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName != "" {
			return conflict(pgErr.ConstraintName)
		}
		return conflict(pgErr.Detail)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && isSQLiteUnique(liteErr) {
		return conflict(liteErr.Error())
	}

	return err
}

func isSQLiteUnique(err *sqlite.Error) bool {
	switch err.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return err.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE")
}

func conflict(msg string) error {
	if field := conflictField(msg); field != "" {
		return models.NewError(models.ErrConflict, field+" already exists")
	}
	return models.ErrConflict
}

// conflictField extracts the column name from a constraint name such as
// "users_email_key" or a message such as "UNIQUE constraint failed: users.email".
func conflictField(msg string) string {
	for _, field := range []string{"referral_code", "username", "email"} {
		if strings.Contains(msg, field) {
			return field
		}
	}
	return ""
}
