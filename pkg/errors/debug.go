package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Report flattens an error chain into the fields written to the request log.
type Report struct {
	Message  string
	Code     Code
	Chain    []string
	Upstream *UpstreamDetail
	Postgres *PostgresDetail
}

// UpstreamDetail describes a rejection relayed from the order service.
type UpstreamDetail struct {
	Status  int
	Message string
}

// PostgresDetail carries the server-side fields of a failed statement.
type PostgresDetail struct {
	Code       string
	Message    string
	Table      string
	Constraint string
}

// Inspect walks err and collects what the log line needs. Untyped errors report
// CodeInternal.
func Inspect(err error) Report {
	if err == nil {
		return Report{}
	}

	r := Report{Message: err.Error(), Code: CodeOf(err)}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		r.Chain = append(r.Chain, fmt.Sprintf("%T", e))
	}

	var status interface{ UpstreamStatus() int }
	if stdErrors.As(err, &status) {
		r.Upstream = &UpstreamDetail{Status: status.UpstreamStatus()}
		var public interface{ PublicMessage() string }
		if stdErrors.As(err, &public) {
			r.Upstream.Message = public.PublicMessage()
		}
	}

	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		r.Postgres = &PostgresDetail{
			Code:       pgErr.Code,
			Message:    pgErr.Message,
			Table:      pgErr.TableName,
			Constraint: pgErr.ConstraintName,
		}
	}
	return r
}

// Fields returns the report as structured log fields.
func (r Report) Fields() map[string]any {
	fields := map[string]any{
		"error":       r.Message,
		"error_code":  string(r.Code),
		"error_chain": r.Chain,
	}
	if r.Upstream != nil {
		fields["upstream_status"] = r.Upstream.Status
		if r.Upstream.Message != "" {
			fields["upstream_message"] = r.Upstream.Message
		}
	}
	if r.Postgres != nil {
		fields["pg_code"] = r.Postgres.Code
		fields["pg_message"] = r.Postgres.Message
		fields["pg_table"] = r.Postgres.Table
		fields["pg_constraint"] = r.Postgres.Constraint
	}
	return fields
}
