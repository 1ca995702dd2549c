package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLState returns the PostgreSQL error code carried by err, or an empty string.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

