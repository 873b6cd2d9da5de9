package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/mapping"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/utils"
)

// upsertVessel reconciles one vessel inside es. The owning company is resolved from the
// vessel's company name; a vessel without one cannot be placed and is skipped.
func upsertVessel(ctx context.Context, es db.EntityStore, rv models.RemoteVessel) (UpsertResult, error) {
	imo := utils.NormalizeIMO(rv.IMONumber)
	if imo == "" {
		return skipped(EntityVessel, rv.ID, "missing IMO number"), nil
	}

	company, companyCreated, err := resolveCompany(ctx, es, rv.CompanyName)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to resolve company %q: %w", rv.CompanyName, err)
	}
	if company == nil {
		return skipped(EntityVessel, imo, "missing company name"), nil
	}

	vessel := &models.Vessel{
		CompanyID:    company.ID,
		Name:         strings.TrimSpace(rv.Name),
		IMONumber:    imo,
		VesselType:   rv.VesselType,
		Flag:         rv.Flag,
		Status:       mapping.VesselStatus(rv.Status),
		YearBuilt:    rv.YearBuilt,
		GrossTonnage: rv.GrossTonnage,
	}
	inserted, err := es.UpsertVessel(ctx, vessel)
	if err != nil {
		return UpsertResult{}, err
	}

	res := upserted(EntityVessel, imo, vessel.ID, inserted)
	res.companyCreated = companyCreated
	return res, nil
}

// UpsertVessel reconciles a single vessel and its company in one transaction
func (r *Reconciler) UpsertVessel(ctx context.Context, syncID string, rv models.RemoteVessel) (UpsertResult, error) {
	var res UpsertResult
	err := r.store.WithTx(ctx, func(tx db.EntityStore) error {
		var err error
		res, err = upsertVessel(ctx, tx, rv)
		if err == nil && res.Skipped() {
			r.enqueue(ctx, tx, syncID, res, rv)
		}
		return err
	})
	if err != nil {
		r.failed(EntityVessel)
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

// ReconcileVessels upserts every vessel, each in its own transaction. Record failures are
// collected in the result and do not stop the phase.
func (r *Reconciler) ReconcileVessels(ctx context.Context, syncID string, vessels []models.RemoteVessel) Result {
	var result Result
	for i, rv := range vessels {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("vessels: %v", err))
			break
		}

		res, err := r.UpsertVessel(ctx, syncID, rv)
		if err != nil {
			result.fail("vessel %s: %v", vesselKey(rv), err)
			continue
		}
		result.record(res)

		r.publishProgress(models.SyncProgress{
			SyncID: syncID,
			Phase:  EntityVessel,
			BatchTracking: models.BatchTracking{
				TotalItems:     len(vessels),
				ProcessedItems: i + 1,
			},
		})
	}
	return result
}

func vesselKey(rv models.RemoteVessel) string {
	if imo := utils.NormalizeIMO(rv.IMONumber); imo != "" {
		return imo
	}
	return rv.ID
}
