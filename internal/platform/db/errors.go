package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PgErrCode extracts the PostgreSQL error code from err, or "" when absent.
func PgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
