package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const journalLogPrefix = "db:journal"

const journalTable = "operation_journal"

// Recent limits.
const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 1000
)

// Journal records every operation the bridge answered.
type Journal struct {
	pool *pgxpool.Pool
}

// NewJournal creates a Journal on pool.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

// Record appends one operation to the journal.
func (j *Journal) Record(ctx context.Context, params RecordParams) error {
	var args []byte
	if len(params.Args) > 0 {
		data, err := json.Marshal(params.Args)
		if err != nil {
			return fmt.Errorf("%s - encode args of %s: %w", journalLogPrefix, params.Operation, err)
		}
		args = data
	}

	_, err := j.pool.Exec(ctx,
		`INSERT INTO `+journalTable+`
		   (request_id, operation, transport, success, error_type, failure_kind, error_message, args, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		params.RequestID,
		params.Operation,
		params.Transport,
		params.Success,
		nilIfEmpty(params.ErrorType),
		nilIfEmpty(params.FailureKind),
		nilIfEmpty(params.ErrorMessage),
		args,
		float64(params.Duration.Microseconds())/1000,
	)
	if err != nil {
		return fmt.Errorf("%s - insert %s: %w", journalLogPrefix, params.Operation, err)
	}
	slog.Debug(fmt.Sprintf("%s - recorded %s (request %s)", journalLogPrefix, params.Operation, params.RequestID))
	return nil
}

// Recent returns the newest journal rows first.
func (j *Journal) Recent(ctx context.Context, params RecentParams) ([]OperationRecord, error) {
	query, args := buildRecentQuery(params)
	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - query recent: %w", journalLogPrefix, err)
	}
	defer rows.Close()

	var out []OperationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - iterate recent: %w", journalLogPrefix, err)
	}
	return out, nil
}

// Prune deletes rows older than maxAge and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	tag, err := j.pool.Exec(ctx, `DELETE FROM `+journalTable+` WHERE created < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s - prune: %w", journalLogPrefix, err)
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Info(fmt.Sprintf("%s - Pruned %d journal rows older than %s", journalLogPrefix, n, maxAge))
	}
	return tag.RowsAffected(), nil
}

// Ping checks database connectivity.
func (j *Journal) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}

func buildRecentQuery(params RecentParams) (string, []interface{}) {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	var where []string
	var args []interface{}
	if params.Operation != "" {
		args = append(args, params.Operation)
		where = append(where, fmt.Sprintf("operation = $%d", len(args)))
	}
	if params.FailuresOnly {
		where = append(where, "success = false")
	}

	var b strings.Builder
	b.WriteString(`SELECT id, request_id, operation, transport, success, error_type, failure_kind,
	        error_message, args, duration_ms, created
	 FROM ` + journalTable)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit)
	b.WriteString(fmt.Sprintf(" ORDER BY created DESC, id DESC LIMIT $%d", len(args)))
	return b.String(), args
}

func scanRecord(row pgx.Row) (*OperationRecord, error) {
	var rec OperationRecord
	err := row.Scan(
		&rec.ID, &rec.RequestID, &rec.Operation, &rec.Transport, &rec.Success,
		&rec.ErrorType, &rec.FailureKind, &rec.ErrorMessage, &rec.Args,
		&rec.DurationMs, &rec.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("%s - scan record: %w", journalLogPrefix, err)
	}
	return &rec, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
