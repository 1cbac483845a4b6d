package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE classes the services care about.
const (
	SQLStateUniqueViolation     = "23505"
	SQLStateForeignKeyViolation = "23503"
	SQLStateCheckViolation      = "23514"
	SQLStateNotNullViolation    = "23502"
)

var sqlStateNames = map[string]string{
	SQLStateUniqueViolation:     "unique_violation",
	SQLStateForeignKeyViolation: "foreign_key_violation",
	SQLStateCheckViolation:      "check_violation",
	SQLStateNotNullViolation:    "not_null_violation",
}

// PGError is the driver-neutral view of a Postgres error from pgx or lib/pq.
type PGError struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Class names the SQLSTATE for logs, or "" when it is not one we track.
func (p PGError) Class() string {
	return sqlStateNames[p.Code]
}

// PostgresError extracts Postgres details from anywhere in err's chain.
func PostgresError(err error) (PGError, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PGError{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGError{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGError{}, false
}

// ErrorDump is the log-friendly breakdown of an error chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Step       any      `json:"step,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	PG         *PGError `json:"pg,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		if details, ok := te.Details().(map[string]any); ok {
			d.Step = details["step"]
		}
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if pg, ok := PostgresError(err); ok {
		d.PG = &pg
	}
	return d
}

// Fields flattens the dump into logger fields. Postgres keys are only set
// when the chain carried a driver error.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Step != nil {
		fields["step"] = d.Step
	}
	if d.PG != nil {
		fields["pg_code"] = d.PG.Code
		fields["pg_class"] = d.PG.Class()
		fields["pg_constraint"] = d.PG.Constraint
		fields["pg_table"] = d.PG.Table
		fields["pg_column"] = d.PG.Column
		fields["pg_detail"] = d.PG.Detail
		fields["pg_message"] = d.PG.Message
	}
	return fields
}
