// Package sqlxrepos implements the repositories over PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err violates the named unique constraint.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

// ilike matches val as a case-insensitive substring of col.
func ilike(col, val string) sq.ILike {
	return sq.ILike{col: "%" + val + "%"}
}
