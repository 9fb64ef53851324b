package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/flatshelf/internal/flatpak"
)

// timeLayout is RFC3339 with a fixed-width fraction, so stored UTC
// timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StartOperation journals a dispatched operation as running and returns its
// journal ID.
func (s *Store) StartOperation(op *flatpak.Operation) (string, error) {
	entry := &Operation{
		ID:        uuid.NewString(),
		Kind:      string(op.Kind),
		AppID:     op.AppID,
		Scope:     op.Scope.String(),
		Command:   op.CommandLine(),
		StartedAt: time.Now(),
		Status:    StatusRunning,
	}
	if err := s.InsertOperation(entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// FinishOperation marks a running operation as succeeded, or failed when
// opErr is non-nil.
func (s *Store) FinishOperation(id string, opErr error) error {
	status := StatusSucceeded
	var errText sql.NullString
	if opErr != nil {
		status = StatusFailed
		errText = sql.NullString{String: opErr.Error(), Valid: true}
	}

	query := `
		UPDATE operations
		SET finished_at = ?, status = ?, error = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query, formatTime(time.Now()), status, errText, id)
	if err != nil {
		return s.wrapErr(err, "failed to finish operation %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("operation %s not found", id)
	}

	return nil
}

// InsertOperation inserts a journal entry.
func (s *Store) InsertOperation(op *Operation) error {
	query := `
		INSERT INTO operations
		(id, kind, app_id, scope, command, started_at, finished_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		op.ID,
		op.Kind,
		op.AppID,
		op.Scope,
		op.Command,
		formatTime(op.StartedAt),
		nullTime(op.FinishedAt),
		op.Status,
		nullString(op.Error),
	)
	if err != nil {
		return s.wrapErr(err, "failed to insert operation for %s", op.AppID)
	}

	return nil
}

// GetOperation retrieves a journal entry by ID.
func (s *Store) GetOperation(id string) (*Operation, error) {
	query := `
		SELECT id, kind, app_id, scope, command, started_at, finished_at, status, error
		FROM operations
		WHERE id = ?
	`

	op, err := scanOperation(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("operation %s not found", id)
	}
	if err != nil {
		return nil, s.wrapErr(err, "failed to get operation %s", id)
	}
	return op, nil
}

// ListOperations returns the most recent operations, newest first. A limit
// of zero or less returns everything.
func (s *Store) ListOperations(limit int) ([]*Operation, error) {
	query := `
		SELECT id, kind, app_id, scope, command, started_at, finished_at, status, error
		FROM operations
		ORDER BY started_at DESC, rowid DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, s.wrapErr(err, "failed to list operations")
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}

// LastOperation returns the most recent operation for an application.
// Returns nil if none has been recorded.
func (s *Store) LastOperation(appID string) (*Operation, error) {
	query := `
		SELECT id, kind, app_id, scope, command, started_at, finished_at, status, error
		FROM operations
		WHERE app_id = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`

	op, err := scanOperation(s.db.QueryRow(query, appID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrapErr(err, "failed to get last operation for %s", appID)
	}
	return op, nil
}

// RunningOperations returns operations that were started but never finished,
// for example because the process was killed mid-install.
func (s *Store) RunningOperations() ([]*Operation, error) {
	query := `
		SELECT id, kind, app_id, scope, command, started_at, finished_at, status, error
		FROM operations
		WHERE status = ?
		ORDER BY started_at
	`

	rows, err := s.db.Query(query, StatusRunning)
	if err != nil {
		return nil, s.wrapErr(err, "failed to list running operations")
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row rowScanner) (*Operation, error) {
	var op Operation
	var command, finishedAt, errText sql.NullString
	var startedAt string

	if err := row.Scan(
		&op.ID,
		&op.Kind,
		&op.AppID,
		&op.Scope,
		&command,
		&startedAt,
		&finishedAt,
		&op.Status,
		&errText,
	); err != nil {
		return nil, err
	}

	t, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for %s: %w", op.ID, err)
	}
	op.StartedAt = t

	if finishedAt.Valid && finishedAt.String != "" {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for %s: %w", op.ID, err)
		}
		op.FinishedAt = t
	}

	op.Command = command.String
	op.Error = errText.String
	return &op, nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
