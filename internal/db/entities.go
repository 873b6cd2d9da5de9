package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

// Every upsert reports whether the row was created (true) or updated (false).
// xmax is zero only for a tuple written by a plain insert.

// FindCompanyBySlug retrieves a company by its slug, or nil when none exists
func (s *entityStore) FindCompanyBySlug(ctx context.Context, slug string) (*models.Company, error) {
	var c models.Company
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, slug, created_at, updated_at
		FROM companies
		WHERE slug = $1
	`, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", slug, err)
	}
	return &c, nil
}

// UpsertCompany creates or renames a company keyed by slug
func (s *entityStore) UpsertCompany(ctx context.Context, c *models.Company) (bool, error) {
	var inserted bool
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO companies (name, slug, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`, c.Name, c.Slug).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert company %s: %w", c.Slug, err)
	}
	return inserted, nil
}

// FindVesselByIMO retrieves a vessel by IMO number, or nil when none exists
func (s *entityStore) FindVesselByIMO(ctx context.Context, imo string) (*models.Vessel, error) {
	var (
		v            models.Vessel
		yearBuilt    sql.NullInt64
		grossTonnage sql.NullFloat64
		lastSynced   sql.NullTime
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, company_id, name, imo_number, vessel_type, flag, status,
			year_built, gross_tonnage, last_synced_at, created_at, updated_at
		FROM vessels
		WHERE imo_number = $1
	`, imo).Scan(
		&v.ID, &v.CompanyID, &v.Name, &v.IMONumber, &v.VesselType, &v.Flag, &v.Status,
		&yearBuilt, &grossTonnage, &lastSynced, &v.CreatedAt, &v.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get vessel %s: %w", imo, err)
	}

	v.YearBuilt = int(yearBuilt.Int64)
	v.GrossTonnage = grossTonnage.Float64
	v.LastSyncedAt = lastSynced.Time
	return &v, nil
}

// UpsertVessel creates or updates a vessel keyed by IMO number
func (s *entityStore) UpsertVessel(ctx context.Context, v *models.Vessel) (bool, error) {
	if v.LastSyncedAt.IsZero() {
		v.LastSyncedAt = time.Now().UTC()
	}

	var inserted bool
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO vessels (
			company_id, name, imo_number, vessel_type, flag, status,
			year_built, gross_tonnage, last_synced_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()
		) ON CONFLICT (imo_number) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			name = EXCLUDED.name,
			vessel_type = EXCLUDED.vessel_type,
			flag = EXCLUDED.flag,
			status = EXCLUDED.status,
			year_built = EXCLUDED.year_built,
			gross_tonnage = EXCLUDED.gross_tonnage,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`,
		v.CompanyID, v.Name, v.IMONumber, v.VesselType, v.Flag, v.Status,
		nullInt(v.YearBuilt), nullFloat(v.GrossTonnage), v.LastSyncedAt,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert vessel %s: %w", v.IMONumber, err)
	}
	return inserted, nil
}

// UpsertUser creates or updates a user keyed by email
func (s *entityStore) UpsertUser(ctx context.Context, u *models.User) (bool, error) {
	var inserted bool
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO users (
			company_id, email, first_name, last_name, role, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), NOW()
		) ON CONFLICT (email) DO UPDATE SET
			company_id = COALESCE(EXCLUDED.company_id, users.company_id),
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`,
		u.CompanyID, u.Email, u.FirstName, u.LastName, u.Role, u.Status,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert user %s: %w", u.Email, err)
	}
	return inserted, nil
}

// FindEquipmentByVesselAndName looks up equipment on a vessel by display name, or nil when none exists
func (s *entityStore) FindEquipmentByVesselAndName(ctx context.Context, vesselID int64, name string) (*models.Equipment, error) {
	var (
		e     models.Equipment
		specs []byte
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, vessel_id, code, name, category, manufacturer, model, serial_number,
			location, status, criticality, specifications, created_at, updated_at
		FROM equipment
		WHERE vessel_id = $1 AND name = $2
		ORDER BY id
		LIMIT 1
	`, vesselID, name).Scan(
		&e.ID, &e.VesselID, &e.Code, &e.Name, &e.Category, &e.Manufacturer, &e.Model, &e.SerialNumber,
		&e.Location, &e.Status, &e.Criticality, &specs, &e.CreatedAt, &e.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get equipment %q on vessel %d: %w", name, vesselID, err)
	}

	if len(specs) > 0 {
		e.Specifications = json.RawMessage(specs)
	}
	return &e, nil
}

// UpsertEquipment creates or updates equipment keyed by its code
func (s *entityStore) UpsertEquipment(ctx context.Context, e *models.Equipment) (bool, error) {
	var inserted bool
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO equipment (
			vessel_id, code, name, category, manufacturer, model, serial_number,
			location, status, criticality, specifications, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		) ON CONFLICT (code) DO UPDATE SET
			vessel_id = EXCLUDED.vessel_id,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			manufacturer = EXCLUDED.manufacturer,
			model = EXCLUDED.model,
			serial_number = EXCLUDED.serial_number,
			location = EXCLUDED.location,
			status = EXCLUDED.status,
			criticality = EXCLUDED.criticality,
			specifications = EXCLUDED.specifications,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`,
		e.VesselID, e.Code, e.Name, e.Category, e.Manufacturer, e.Model, e.SerialNumber,
		e.Location, e.Status, e.Criticality, nullJSON(e.Specifications),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert equipment %s: %w", e.Code, err)
	}
	return inserted, nil
}

// UpsertMaintenanceTask creates or updates a task keyed by (equipment, name)
func (s *entityStore) UpsertMaintenanceTask(ctx context.Context, t *models.MaintenanceTask) (bool, error) {
	var inserted bool
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO maintenance_tasks (
			equipment_id, name, description, interval_days, priority, last_performed_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), NOW()
		) ON CONFLICT (equipment_id, name) DO UPDATE SET
			description = EXCLUDED.description,
			interval_days = EXCLUDED.interval_days,
			priority = EXCLUDED.priority,
			last_performed_at = COALESCE(EXCLUDED.last_performed_at, maintenance_tasks.last_performed_at),
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`,
		t.EquipmentID, t.Name, t.Description, t.IntervalDays, t.Priority, t.LastPerformedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert maintenance task %q: %w", t.Name, err)
	}
	return inserted, nil
}

// UpsertCriticalPart creates or updates a part keyed by (equipment, part key)
func (s *entityStore) UpsertCriticalPart(ctx context.Context, p *models.CriticalPart) (bool, error) {
	var inserted bool
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO critical_parts (
			equipment_id, part_key, part_number, name, quantity, minimum_stock,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), NOW()
		) ON CONFLICT (equipment_id, part_key) DO UPDATE SET
			part_number = EXCLUDED.part_number,
			name = EXCLUDED.name,
			quantity = EXCLUDED.quantity,
			minimum_stock = EXCLUDED.minimum_stock,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`,
		p.EquipmentID, p.PartKey, p.PartNumber, p.Name, p.Quantity, p.MinimumStock,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert critical part %s: %w", p.PartKey, err)
	}
	return inserted, nil
}

// EnqueueSyncItem records a record the reconciler had to skip. Inside a transaction the
// insert runs under a savepoint, so a failed enqueue leaves the transaction usable.
func (s *entityStore) EnqueueSyncItem(ctx context.Context, item *models.SyncQueueItem) error {
	if item.Status == "" {
		item.Status = models.SyncQueuePending
	}
	if !s.inTx {
		return s.insertSyncItem(ctx, item)
	}

	if _, err := s.q.ExecContext(ctx, "SAVEPOINT enqueue_item"); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	if err := s.insertSyncItem(ctx, item); err != nil {
		if _, rbErr := s.q.ExecContext(ctx, "ROLLBACK TO SAVEPOINT enqueue_item"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := s.q.ExecContext(ctx, "RELEASE SAVEPOINT enqueue_item"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (s *entityStore) insertSyncItem(ctx context.Context, item *models.SyncQueueItem) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO sync_queue (sync_id, entity_type, natural_key, reason, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`,
		item.SyncID, item.EntityType, item.NaturalKey, item.Reason, nullJSON(item.Payload), string(item.Status),
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s %s: %w", item.EntityType, item.NaturalKey, err)
	}
	return nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
