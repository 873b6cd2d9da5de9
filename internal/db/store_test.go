package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewPostgresStoreFromDB(sqlDB), mock
}

func TestUpsertVessel(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name     string
		inserted bool
	}{
		{name: "created", inserted: true},
		{name: "updated", inserted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectQuery(`INSERT INTO vessels .* ON CONFLICT \(imo_number\) DO UPDATE`).
				WithArgs(int64(7), "Northern Star", "9876543", "bulk_carrier", "PA", "active",
					sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
					AddRow(int64(42), now, now, tt.inserted))

			v := &models.Vessel{
				CompanyID:  7,
				Name:       "Northern Star",
				IMONumber:  "9876543",
				VesselType: "bulk_carrier",
				Flag:       "PA",
				Status:     "active",
				YearBuilt:  2011,
			}
			inserted, err := store.UpsertVessel(ctx, v)
			require.NoError(t, err)
			assert.Equal(t, tt.inserted, inserted)
			assert.Equal(t, int64(42), v.ID)
			assert.False(t, v.LastSyncedAt.IsZero())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFindVesselByIMO_Missing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM vessels`).
		WithArgs("1234567").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	v, err := store.FindVesselByIMO(context.Background(), "1234567")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCompany_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO companies`).
		WithArgs("Acme Shipping", "acme-shipping").
		WillReturnError(errors.New("connection reset"))

	_, err := store.UpsertCompany(context.Background(), &models.Company{Name: "Acme Shipping", Slug: "acme-shipping"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme-shipping")
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("commits on success", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO equipment`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
				AddRow(int64(1), now, now, true))
		mock.ExpectQuery(`INSERT INTO critical_parts`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
				AddRow(int64(9), now, now, true))
		mock.ExpectCommit()

		err := store.WithTx(ctx, func(tx EntityStore) error {
			eq := &models.Equipment{VesselID: 3, Code: "QR-1", Name: "Main Engine", Status: "operational", Criticality: "high"}
			if _, err := tx.UpsertEquipment(ctx, eq); err != nil {
				return err
			}
			_, err := tx.UpsertCriticalPart(ctx, &models.CriticalPart{EquipmentID: eq.ID, PartKey: "PN-1", Name: "Filter"})
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO equipment`).
			WillReturnError(errors.New("violates foreign key constraint"))
		mock.ExpectRollback()

		err := store.WithTx(ctx, func(tx EntityStore) error {
			_, err := tx.UpsertEquipment(ctx, &models.Equipment{VesselID: 3, Code: "QR-2", Name: "Pump"})
			return err
		})
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnqueueSyncItem_InTransaction(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("failed enqueue keeps the batch alive", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`^SAVEPOINT enqueue_item$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO sync_queue`).WillReturnError(errors.New("value too long for type"))
		mock.ExpectExec(`^ROLLBACK TO SAVEPOINT enqueue_item$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO equipment`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
				AddRow(int64(2), now, now, true))
		mock.ExpectCommit()

		err := store.WithTx(ctx, func(tx EntityStore) error {
			enqueueErr := tx.EnqueueSyncItem(ctx, &models.SyncQueueItem{
				EntityType: "equipment",
				NaturalKey: "QR-9",
				Reason:     "vessel 0000000 not found",
			})
			assert.Error(t, enqueueErr)

			_, err := tx.UpsertEquipment(ctx, &models.Equipment{VesselID: 3, Code: "QR-1", Name: "Main Engine"})
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("successful enqueue releases the savepoint", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`^SAVEPOINT enqueue_item$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO sync_queue`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(4), now))
		mock.ExpectExec(`^RELEASE SAVEPOINT enqueue_item$`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		item := &models.SyncQueueItem{EntityType: "vessel", NaturalKey: "9876543", Reason: "missing company"}
		err := store.WithTx(ctx, func(tx EntityStore) error {
			return tx.EnqueueSyncItem(ctx, item)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), item.ID)
		assert.Equal(t, models.SyncQueuePending, item.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outside a transaction no savepoint is used", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`INSERT INTO sync_queue`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), now))

		require.NoError(t, store.EnqueueSyncItem(ctx, &models.SyncQueueItem{EntityType: "user", NaturalKey: "a@b.c"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateSyncRun_Terminal(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE sync_runs SET .* status NOT IN \('completed', 'failed'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	run := models.NewSyncRun("run-1", models.TriggerManual)
	run.Status = models.SyncStatusCompleted

	err := store.UpdateSyncRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already finished")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSyncRuns(t *testing.T) {
	store, mock := newMockStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(time.Minute)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sync_runs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery(`SELECT .* FROM sync_runs ORDER BY started_at DESC LIMIT 2 OFFSET 4`).
		WillReturnRows(sqlmock.NewRows(syncRunColumns).
			AddRow("run-b", "scheduled", models.DirectionOnboardingToMaintenance, "completed", started, completed,
				3, 10, 4, 6, 0, 8, `{"vessels: missing company"}`, []byte(`{"batches":2}`)).
			AddRow("run-a", "manual", models.DirectionOnboardingToMaintenance, "in_progress", started, nil,
				0, 0, 0, 0, 0, 0, `{}`, []byte(`{}`)))

	runs, total, err := store.ListSyncRuns(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, models.TriggerScheduled, runs[0].TriggerKind)
	assert.Equal(t, 10, runs[0].EquipmentSynced)
	assert.Equal(t, []string{"vessels: missing company"}, runs[0].Errors)
	require.NotNil(t, runs[0].CompletedAt)
	assert.EqualValues(t, 2, runs[0].Metadata["batches"])

	assert.Nil(t, runs[1].CompletedAt)
	assert.Empty(t, runs[1].Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWebhookEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("new event", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`INSERT INTO webhook_events .* ON CONFLICT \(event_id\) DO NOTHING`).
			WithArgs("evt-1", models.EventVesselApproved, sqlmock.AnyArg(), "received").
			WillReturnRows(sqlmock.NewRows([]string{"id", "received_at"}).AddRow(int64(5), time.Now()))

		event := &models.WebhookEvent{EventID: "evt-1", EventType: models.EventVesselApproved, Payload: []byte(`{}`)}
		created, err := store.InsertWebhookEvent(ctx, event)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(5), event.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate event", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "received_at"}))

		created, err := store.InsertWebhookEvent(ctx, &models.WebhookEvent{EventID: "evt-1", EventType: models.EventVesselApproved, Payload: []byte(`{}`)})
		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListWebhookEvents_StatusFilter(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM webhook_events WHERE status = \$1 ORDER BY received_at DESC LIMIT 10`).
		WithArgs("failed").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_id", "event_type", "payload", "status", "received_at", "processed_at", "error_message",
		}).AddRow(int64(1), "evt-9", "bogus.type", []byte(`{}`), "failed", now, now, "unsupported event type"))

	events, err := store.ListWebhookEvents(context.Background(), "failed", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.WebhookStatusFailed, events[0].Status)
	assert.NotNil(t, events[0].ProcessedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
