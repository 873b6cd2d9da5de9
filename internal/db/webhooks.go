package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

// InsertWebhookEvent records a received event. It returns false without error when an
// event with the same event id was already recorded.
func (s *PostgresStore) InsertWebhookEvent(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if event == nil {
		return false, fmt.Errorf("webhook event cannot be nil")
	}
	if event.Status == "" {
		event.Status = models.WebhookStatusReceived
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO webhook_events (event_id, event_type, payload, status, received_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, received_at
	`, event.EventID, event.EventType, []byte(event.Payload), string(event.Status)).Scan(&event.ID, &event.ReceivedAt)

	if err == sql.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to insert webhook event %s: %w", event.EventID, err)
	}
	return true, nil
}

// UpdateWebhookEventStatus moves an event to a new status. Terminal statuses stamp
// processed_at, and an event already processed or failed is left untouched.
func (s *PostgresStore) UpdateWebhookEventStatus(ctx context.Context, eventID string, status models.WebhookStatus, errMsg string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE webhook_events SET
			status = $2,
			error_message = $3,
			processed_at = CASE WHEN $2 IN ('processed', 'failed') THEN NOW() ELSE processed_at END
		WHERE event_id = $1 AND status NOT IN ('processed', 'failed')
	`, eventID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("failed to update webhook event %s: %w", eventID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("webhook event %s not found or already finished", eventID)
	}

	return nil
}

// ListWebhookEvents returns the most recent events, optionally filtered by status
func (s *PostgresStore) ListWebhookEvents(ctx context.Context, status string, limit int) ([]*models.WebhookEvent, error) {
	builder := psql.Select(
		"id", "event_id", "event_type", "payload", "status", "received_at", "processed_at", "error_message",
	).From("webhook_events").
		OrderBy("received_at DESC").
		Limit(uint64(limit))

	if status != "" {
		builder = builder.Where(sq.Eq{"status": status})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook event query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.WebhookEvent, 0)
	for rows.Next() {
		var (
			e           models.WebhookEvent
			payload     []byte
			processedAt sql.NullTime
		)
		if err := rows.Scan(
			&e.ID, &e.EventID, &e.EventType, &payload, &e.Status, &e.ReceivedAt, &processedAt, &e.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan webhook event row: %w", err)
		}
		e.Payload = payload
		if processedAt.Valid {
			t := processedAt.Time
			e.ProcessedAt = &t
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook event rows: %w", err)
	}

	return events, nil
}

// ListSyncQueue returns queued items, newest first, optionally filtered by status
func (s *PostgresStore) ListSyncQueue(ctx context.Context, status string, limit int) ([]*models.SyncQueueItem, error) {
	builder := psql.Select(
		"id", "sync_id", "entity_type", "natural_key", "reason", "payload", "status", "created_at",
	).From("sync_queue").
		OrderBy("created_at DESC").
		Limit(uint64(limit))

	if status != "" {
		builder = builder.Where(sq.Eq{"status": status})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sync queue query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync queue: %w", err)
	}
	defer rows.Close()

	items := make([]*models.SyncQueueItem, 0)
	for rows.Next() {
		var (
			item    models.SyncQueueItem
			payload []byte
		)
		if err := rows.Scan(
			&item.ID, &item.SyncID, &item.EntityType, &item.NaturalKey, &item.Reason, &payload, &item.Status, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync queue row: %w", err)
		}
		if len(payload) > 0 {
			item.Payload = payload
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync queue rows: %w", err)
	}

	return items, nil
}
