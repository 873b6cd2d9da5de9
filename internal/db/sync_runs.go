package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var syncRunColumns = []string{
	"id", "trigger_kind", "direction", "status", "started_at", "completed_at",
	"vessels_synced", "equipment_synced", "users_synced", "parts_synced",
	"documents_synced", "maintenance_tasks_synced", "errors", "metadata",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		completedAt sql.NullTime
		errs        pq.StringArray
		metadata    []byte
	)
	if err := row.Scan(
		&run.ID, &run.TriggerKind, &run.Direction, &run.Status, &run.StartedAt, &completedAt,
		&run.VesselsSynced, &run.EquipmentSynced, &run.UsersSynced, &run.PartsSynced,
		&run.DocumentsSynced, &run.MaintenanceTasksSynced, &errs, &metadata,
	); err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Errors = []string(errs)
	if run.Errors == nil {
		run.Errors = []string{}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &run.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sync run metadata: %w", err)
		}
	}
	return &run, nil
}

func marshalMetadata(run *models.SyncRun) ([]byte, error) {
	if run.Metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(run.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync run metadata: %w", err)
	}
	return data, nil
}

// CreateSyncRun persists a new run record
func (s *PostgresStore) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run == nil {
		return fmt.Errorf("sync run cannot be nil")
	}

	metadata, err := marshalMetadata(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, trigger_kind, direction, status, started_at, completed_at,
			vessels_synced, equipment_synced, users_synced, parts_synced,
			documents_synced, maintenance_tasks_synced, errors, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`,
		run.ID, string(run.TriggerKind), run.Direction, string(run.Status), run.StartedAt, run.CompletedAt,
		run.VesselsSynced, run.EquipmentSynced, run.UsersSynced, run.PartsSynced,
		run.DocumentsSynced, run.MaintenanceTasksSynced, pq.Array(run.Errors), metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateSyncRun writes the run's current state. A run that already reached a
// terminal status is never modified again.
func (s *PostgresStore) UpdateSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run == nil {
		return fmt.Errorf("sync run cannot be nil")
	}

	metadata, err := marshalMetadata(run)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET
			status = $2,
			completed_at = $3,
			vessels_synced = $4,
			equipment_synced = $5,
			users_synced = $6,
			parts_synced = $7,
			documents_synced = $8,
			maintenance_tasks_synced = $9,
			errors = $10,
			metadata = $11
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`,
		run.ID, string(run.Status), run.CompletedAt,
		run.VesselsSynced, run.EquipmentSynced, run.UsersSynced, run.PartsSynced,
		run.DocumentsSynced, run.MaintenanceTasksSynced, pq.Array(run.Errors), metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run %s: %w", run.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("sync run %s not found or already finished", run.ID)
	}

	return nil
}

// GetSyncRun retrieves a run by id, or nil when none exists
func (s *PostgresStore) GetSyncRun(ctx context.Context, id string) (*models.SyncRun, error) {
	query, args, err := psql.Select(syncRunColumns...).
		From("sync_runs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sync run query: %w", err)
	}

	run, err := scanSyncRun(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get sync run %s: %w", id, err)
	}
	return run, nil
}

// GetLatestSyncRun retrieves the most recently started run, or nil when there are none
func (s *PostgresStore) GetLatestSyncRun(ctx context.Context) (*models.SyncRun, error) {
	query, args, err := psql.Select(syncRunColumns...).
		From("sync_runs").
		OrderBy("started_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sync run query: %w", err)
	}

	run, err := scanSyncRun(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get latest sync run: %w", err)
	}
	return run, nil
}

// ListSyncRuns returns one page of runs ordered by start time descending, plus the total count
func (s *PostgresStore) ListSyncRuns(ctx context.Context, limit, offset int) ([]*models.SyncRun, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sync runs: %w", err)
	}

	query, args, err := psql.Select(syncRunColumns...).
		From("sync_runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build sync run query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.SyncRun, 0, limit)
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sync run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sync run rows: %w", err)
	}

	return runs, total, nil
}
