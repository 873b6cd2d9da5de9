package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/Kamar-Folarin/fleet-sync/internal/models"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// EntityStore defines the reconciliation reads and writes. It is satisfied both by the
// pooled store and by the view handed to a WithTx callback.
type EntityStore interface {
	FindCompanyBySlug(ctx context.Context, slug string) (*models.Company, error)
	UpsertCompany(ctx context.Context, company *models.Company) (bool, error)

	FindVesselByIMO(ctx context.Context, imo string) (*models.Vessel, error)
	UpsertVessel(ctx context.Context, vessel *models.Vessel) (bool, error)

	UpsertUser(ctx context.Context, user *models.User) (bool, error)

	FindEquipmentByVesselAndName(ctx context.Context, vesselID int64, name string) (*models.Equipment, error)
	UpsertEquipment(ctx context.Context, equipment *models.Equipment) (bool, error)
	UpsertMaintenanceTask(ctx context.Context, task *models.MaintenanceTask) (bool, error)
	UpsertCriticalPart(ctx context.Context, part *models.CriticalPart) (bool, error)

	EnqueueSyncItem(ctx context.Context, item *models.SyncQueueItem) error
}

// Store defines the interface for database operations
type Store interface {
	EntityStore

	// WithTx runs fn inside a single transaction, committing when fn returns nil
	WithTx(ctx context.Context, fn func(tx EntityStore) error) error

	// Sync run operations
	CreateSyncRun(ctx context.Context, run *models.SyncRun) error
	UpdateSyncRun(ctx context.Context, run *models.SyncRun) error
	GetSyncRun(ctx context.Context, id string) (*models.SyncRun, error)
	GetLatestSyncRun(ctx context.Context) (*models.SyncRun, error)
	ListSyncRuns(ctx context.Context, limit, offset int) ([]*models.SyncRun, int64, error)

	// Webhook operations
	InsertWebhookEvent(ctx context.Context, event *models.WebhookEvent) (bool, error)
	UpdateWebhookEventStatus(ctx context.Context, eventID string, status models.WebhookStatus, errMsg string) error
	ListWebhookEvents(ctx context.Context, status string, limit int) ([]*models.WebhookEvent, error)

	// Queue operations
	ListSyncQueue(ctx context.Context, status string, limit int) ([]*models.SyncQueueItem, error)

	Ping(ctx context.Context) error
}

// querier is the subset of *sql.DB and *sql.Tx the entity queries need
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// entityStore implements EntityStore on top of either the pool or a transaction
type entityStore struct {
	q    querier
	inTx bool
}

type PostgresStore struct {
	*entityStore
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an already opened database handle
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		entityStore: &entityStore{q: db},
		db:          db,
	}
}

// Migrate applies the embedded goose migrations
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// WithTx runs fn in a read-committed transaction; any error from fn rolls the whole
// transaction back.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx EntityStore) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&entityStore{q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
