package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Outcome of a delivery attempt.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Entry is one journaled notification.
type Entry struct {
	ID           string    `json:"id" yaml:"id"`
	Seq          int64     `json:"seq" yaml:"seq"`
	Registration string    `json:"registration" yaml:"registration"`
	Method       string    `json:"method" yaml:"method"`
	Document     string    `json:"document" yaml:"document"`
	Version      int32     `json:"version" yaml:"version"`
	Params       string    `json:"params" yaml:"params"`
	Outcome      string    `json:"outcome" yaml:"outcome"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	RecordedAt   time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Filter narrows List. Empty fields match everything; Limit <= 0 means
// no limit.
type Filter struct {
	Document     string
	Method       string
	Registration string
	Limit        int
}

// Append inserts an entry. Uses ON CONFLICT(id) DO NOTHING for idempotency -
// appending the same entry twice is silently ignored.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if e.Outcome != OutcomeSent && e.Outcome != OutcomeFailed {
		return fmt.Errorf("append: invalid outcome %q", e.Outcome)
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO notifications
		(id, seq, registration, method, document, version, params, outcome, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Registration,
		e.Method,
		e.Document,
		e.Version,
		e.Params,
		e.Outcome,
		e.Error,
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// List returns entries matching f.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Document != "" {
		where = append(where, "document = ?")
		args = append(args, f.Document)
	}
	if f.Method != "" {
		where = append(where, "method = ?")
		args = append(args, f.Method)
	}
	if f.Registration != "" {
		where = append(where, "registration = ?")
		args = append(args, f.Registration)
	}

	var q strings.Builder
	q.WriteString(`
		SELECT id, seq, registration, method, document, version, params, outcome, error, recorded_at
		FROM notifications`)
	if len(where) > 0 {
		q.WriteString("\n\t\tWHERE ")
		q.WriteString(strings.Join(where, " AND "))
	}
	q.WriteString("\n\t\tORDER BY seq ASC, id COLLATE BINARY ASC")
	if f.Limit > 0 {
		q.WriteString("\n\t\tLIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return entries, nil
}

// Get retrieves a single entry by ID.
// Returns sql.ErrNoRows if not found.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, seq, registration, method, document, version, params, outcome, error, recorded_at
		FROM notifications
		WHERE id = ?
	`, id)
	return scanEntry(row)
}

// LastSeq returns the highest seq in the journal, or 0 when it is empty.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM notifications`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e          Entry
		recordedAt string
	)
	if err := s.Scan(&e.ID, &e.Seq, &e.Registration, &e.Method, &e.Document,
		&e.Version, &e.Params, &e.Outcome, &e.Error, &recordedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan notification: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	e.RecordedAt = t
	return e, nil
}
