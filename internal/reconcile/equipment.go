package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/batch"
	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/mapping"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/utils"
)

// equipmentCode picks the natural key supplied by the source: QR code first, then code
func equipmentCode(re models.RemoteEquipment) string {
	if code := strings.TrimSpace(re.QRCode); code != "" {
		return code
	}
	return strings.TrimSpace(re.Code)
}

// upsertEquipment reconciles one equipment record and its nested tasks and critical parts
// inside es. A record whose vessel is not known locally is skipped.
func upsertEquipment(ctx context.Context, es db.EntityStore, re models.RemoteEquipment) (UpsertResult, error) {
	code := equipmentCode(re)
	name := strings.TrimSpace(re.Name)
	imo := utils.NormalizeIMO(re.VesselIMO)

	key := code
	if key == "" {
		key = re.ID
	}
	if name == "" {
		return skipped(EntityEquipment, key, "missing equipment name"), nil
	}
	if imo == "" {
		return skipped(EntityEquipment, key, "missing vessel IMO number"), nil
	}

	vessel, err := es.FindVesselByIMO(ctx, imo)
	if err != nil {
		return UpsertResult{}, err
	}
	if vessel == nil {
		return skipped(EntityEquipment, key, fmt.Sprintf("vessel %s not found", imo)), nil
	}

	if code == "" {
		existing, err := es.FindEquipmentByVesselAndName(ctx, vessel.ID, name)
		if err != nil {
			return UpsertResult{}, err
		}
		if existing != nil {
			code = existing.Code
		} else {
			code = utils.GenerateEquipmentCode(imo)
		}
	}

	equipment := &models.Equipment{
		VesselID:       vessel.ID,
		Code:           code,
		Name:           name,
		Category:       re.Category,
		Manufacturer:   re.Manufacturer,
		Model:          re.Model,
		SerialNumber:   re.SerialNumber,
		Location:       re.Location,
		Status:         mapping.EquipmentStatus(re.Status),
		Criticality:    mapping.Criticality(re.Criticality),
		Specifications: re.Specifications,
	}
	inserted, err := es.UpsertEquipment(ctx, equipment)
	if err != nil {
		return UpsertResult{}, err
	}

	res := upserted(EntityEquipment, code, equipment.ID, inserted)

	for _, rt := range re.MaintenanceTasks {
		taskName := strings.TrimSpace(rt.Name)
		if taskName == "" {
			continue
		}
		task := &models.MaintenanceTask{
			EquipmentID:     equipment.ID,
			Name:            taskName,
			Description:     rt.Description,
			IntervalDays:    rt.IntervalDays,
			Priority:        mapping.TaskPriority(rt.Priority),
			LastPerformedAt: rt.LastPerformedAt,
		}
		if _, err := es.UpsertMaintenanceTask(ctx, task); err != nil {
			return UpsertResult{}, err
		}
		res.tasks++
	}

	for _, rp := range re.CriticalParts {
		partKey := utils.PartKey(rp.PartNumber, rp.Name)
		if partKey == "" {
			continue
		}
		part := &models.CriticalPart{
			EquipmentID:  equipment.ID,
			PartKey:      partKey,
			PartNumber:   strings.TrimSpace(rp.PartNumber),
			Name:         strings.TrimSpace(rp.Name),
			Quantity:     rp.Quantity,
			MinimumStock: rp.MinimumStock,
		}
		if _, err := es.UpsertCriticalPart(ctx, part); err != nil {
			return UpsertResult{}, err
		}
		res.parts++
	}

	return res, nil
}

// UpsertEquipment reconciles a single equipment record in one transaction
func (r *Reconciler) UpsertEquipment(ctx context.Context, syncID string, re models.RemoteEquipment) (UpsertResult, error) {
	var res UpsertResult
	err := r.store.WithTx(ctx, func(tx db.EntityStore) error {
		var err error
		res, err = upsertEquipment(ctx, tx, re)
		if err == nil && res.Skipped() {
			r.enqueue(ctx, tx, syncID, res, re)
		}
		return err
	})
	if err != nil {
		r.failed(EntityEquipment)
		return UpsertResult{}, err
	}

	if res.Skipped() {
		r.logSkip(syncID, res)
	} else {
		r.logUpsert(syncID, res)
	}
	r.emit(syncID, res)
	return res, nil
}

// ReconcileEquipment upserts equipment in fixed-size batches. Each batch is one
// transaction: a failing record rolls back its whole batch, while batches committed
// before it stay applied. Events for a batch are published only after it commits.
func (r *Reconciler) ReconcileEquipment(ctx context.Context, syncID string, equipment []models.RemoteEquipment) Result {
	var result Result

	logger := r.logger.WithFields(logrus.Fields{
		"sync_id": syncID,
		"phase":   EntityEquipment,
	})

	processor := batch.NewProcessor(r.batch, batch.WithProgressFunc(func(p batch.Progress) {
		r.publishProgress(models.SyncProgress{
			SyncID:        syncID,
			Phase:         EntityEquipment,
			BatchTracking: p.BatchTracking,
		})
	}))

	progress, err := batch.Process(ctx, processor, equipment, func(ctx context.Context, batchNum int, items []models.RemoteEquipment) error {
		results := make([]UpsertResult, 0, len(items))

		txErr := r.store.WithTx(ctx, func(tx db.EntityStore) error {
			for _, re := range items {
				res, err := upsertEquipment(ctx, tx, re)
				if err != nil {
					key := equipmentCode(re)
					if key == "" {
						key = re.ID
					}
					return fmt.Errorf("equipment %s: %w", key, err)
				}
				if res.Skipped() {
					r.enqueue(ctx, tx, syncID, res, re)
				}
				results = append(results, res)
			}
			return nil
		})
		if txErr != nil {
			logger.WithError(txErr).WithField("batch", batchNum).Error("Equipment batch rolled back")
			result.Failed += len(items)
			for range items {
				r.failed(EntityEquipment)
			}
			return txErr
		}

		for _, res := range results {
			if res.Skipped() {
				r.logSkip(syncID, res)
			} else {
				r.logUpsert(syncID, res)
			}
			result.record(res)
			r.emit(syncID, res)
		}
		return nil
	})

	for _, batchErr := range progress.Errors {
		result.Errors = append(result.Errors, batchErr.Error())
	}
	if err != nil && len(progress.Errors) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("equipment: %v", err))
	}

	logger.WithFields(logrus.Fields{
		"batches":        progress.TotalBatches,
		"failed_batches": progress.FailedBatches,
		"synced":         result.EquipmentSynced,
		"skipped":        result.Skipped,
	}).Info("Equipment reconciliation finished")

	return result
}
