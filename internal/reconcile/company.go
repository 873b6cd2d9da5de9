package reconcile

import (
	"context"
	"strings"

	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/utils"
)

// resolveCompany finds the company for name by slug, creating it when absent.
// An existing company is returned as is; its display name is not rewritten.
func resolveCompany(ctx context.Context, es db.EntityStore, name string) (*models.Company, bool, error) {
	name = strings.TrimSpace(name)
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, false, nil
	}

	existing, err := es.FindCompanyBySlug(ctx, slug)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	company := &models.Company{Name: name, Slug: slug}
	inserted, err := es.UpsertCompany(ctx, company)
	if err != nil {
		return nil, false, err
	}
	return company, inserted, nil
}
