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

// upsertUser reconciles one user inside es. Users without a company name are stored
// without a company.
func upsertUser(ctx context.Context, es db.EntityStore, ru models.RemoteUser) (UpsertResult, error) {
	email := utils.NormalizeEmail(ru.Email)
	if email == "" {
		return skipped(EntityUser, ru.ID, "missing email"), nil
	}

	company, companyCreated, err := resolveCompany(ctx, es, ru.CompanyName)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to resolve company %q: %w", ru.CompanyName, err)
	}

	user := &models.User{
		Email:     email,
		FirstName: strings.TrimSpace(ru.FirstName),
		LastName:  strings.TrimSpace(ru.LastName),
		Role:      mapping.Role(ru.Role),
		Status:    mapping.UserStatus(ru.Status),
	}
	if company != nil {
		user.CompanyID = &company.ID
	}

	inserted, err := es.UpsertUser(ctx, user)
	if err != nil {
		return UpsertResult{}, err
	}

	res := upserted(EntityUser, email, user.ID, inserted)
	res.companyCreated = companyCreated
	return res, nil
}

// UpsertUser reconciles a single user and its company in one transaction
func (r *Reconciler) UpsertUser(ctx context.Context, syncID string, ru models.RemoteUser) (UpsertResult, error) {
	var res UpsertResult
	err := r.store.WithTx(ctx, func(tx db.EntityStore) error {
		var err error
		res, err = upsertUser(ctx, tx, ru)
		if err == nil && res.Skipped() {
			r.enqueue(ctx, tx, syncID, res, ru)
		}
		return err
	})
	if err != nil {
		r.failed(EntityUser)
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

// ReconcileUsers upserts every user, each in its own transaction
func (r *Reconciler) ReconcileUsers(ctx context.Context, syncID string, users []models.RemoteUser) Result {
	var result Result
	for i, ru := range users {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("users: %v", err))
			break
		}

		res, err := r.UpsertUser(ctx, syncID, ru)
		if err != nil {
			key := utils.NormalizeEmail(ru.Email)
			if key == "" {
				key = ru.ID
			}
			result.fail("user %s: %v", key, err)
			continue
		}
		result.record(res)

		r.publishProgress(models.SyncProgress{
			SyncID: syncID,
			Phase:  EntityUser,
			BatchTracking: models.BatchTracking{
				TotalItems:     len(users),
				ProcessedItems: i + 1,
			},
		})
	}
	return result
}
