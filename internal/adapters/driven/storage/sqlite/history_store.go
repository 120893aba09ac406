package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// runHistoryStore implements driven.RunHistoryStore.
type runHistoryStore struct {
	store *Store
}

var _ driven.RunHistoryStore = (*runHistoryStore)(nil)

// RecordRun appends one run record.
func (s *runHistoryStore) RecordRun(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return domain.ErrInvalidInput
	}

	statsJSON, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("marshalling run stats: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO run_history (id, scope_key, status, started_at, ended_at, stats, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.ScopeKey, string(rec.Status),
		formatNullableTime(rec.StartedAt), formatNullableTime(rec.EndedAt),
		string(statsJSON), nullString(rec.Error))

	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// ListRuns returns recent runs for a scope, most recent first. A limit of
// zero or below means all.
func (s *runHistoryStore) ListRuns(ctx context.Context, scopeKey string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, scope_key, status, started_at, ended_at, stats, error
		FROM run_history
		WHERE scope_key = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, scopeKey, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run history: %w", err)
	}

	return runs, nil
}

// Prune keeps only the most recent 'keep' records per scope.
func (s *runHistoryStore) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM run_history
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY scope_key ORDER BY started_at DESC) as rn
				FROM run_history
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning run history: %w", err)
	}
	return nil
}

// scanRunRecord scans a run record from *sql.Rows.
func scanRunRecord(rows *sql.Rows) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var status, statsJSON string
	var startedAt, endedAt, errMsg sql.NullString

	if err := rows.Scan(&rec.ID, &rec.ScopeKey, &status,
		&startedAt, &endedAt, &statsJSON, &errMsg); err != nil {
		return nil, fmt.Errorf("scanning run record: %w", err)
	}

	rec.Status = domain.RunStatus(status)
	rec.StartedAt = parseNullableTime(startedAt)
	rec.EndedAt = parseNullableTime(endedAt)
	if err := json.Unmarshal([]byte(statsJSON), &rec.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling run stats: %w", err)
	}
	if errMsg.Valid {
		rec.Error = errMsg.String
	}

	return &rec, nil
}
