package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// DuplicateError reports a unique constraint violation on a single column.
type DuplicateError struct {
	Table string
	Field string
	Value string
	Err   error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s.%s %q", e.Table, e.Field, e.Value)
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

var detailPattern = regexp.MustCompile(`^Key \(([^)]+)\)=\((.*)\) already exists\.?$`)

// translateWriteError converts unique violations into *DuplicateError and
// wraps everything else with op.
func translateWriteError(err error, table, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		dup := &DuplicateError{Table: table, Err: err}
		if m := detailPattern.FindStringSubmatch(pqErr.Detail); m != nil {
			dup.Field, dup.Value = m[1], m[2]
		}
		if dup.Field == "" {
			dup.Field = fieldFromConstraint(table, pqErr.Constraint)
		}
		return dup
	}
	return fmt.Errorf("%s: %w", op, err)
}

// fieldFromConstraint extracts col from a <table>_<col>_key constraint name.
func fieldFromConstraint(table, constraint string) string {
	name := strings.TrimPrefix(constraint, table+"_")
	return strings.TrimSuffix(name, "_key")
}

// requireAffected maps a zero-row write to sql.ErrNoRows.
func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
