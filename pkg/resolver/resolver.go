// Package resolver maps party names found in registry records to stable ids.
package resolver

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

// Resolver returns the id of the entity or individual with a name, creating
// it on first sight.
type Resolver interface {
	ResolveIndividual(ctx context.Context, name string) (int64, error)
	ResolveEntity(ctx context.Context, name string, hints models.EntityHints) (int64, error)
}

type IndividualStore interface {
	FindIDByName(ctx context.Context, name string) (int64, bool, error)
	Insert(ctx context.Context, name string) (int64, error)
}

type CompanyStore interface {
	FindIDByName(ctx context.Context, name string) (int64, bool, error)
	InsertPlaceholder(ctx context.Context, name string, hints models.EntityHints) (int64, error)
}

// NameResolver treats the exact name as the identity. It never merges or
// renames; two spellings are two entities.
type NameResolver struct {
	individuals IndividualStore
	companies   CompanyStore
	logger      ectologger.Logger
}

func NewNameResolver(individuals IndividualStore, companies CompanyStore, logger ectologger.Logger) *NameResolver {
	return &NameResolver{
		individuals: individuals,
		companies:   companies,
		logger:      logger,
	}
}

func (r *NameResolver) ResolveIndividual(ctx context.Context, name string) (int64, error) {
	id, found, err := r.individuals.FindIDByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup individual %q: %w", name, err)
	}
	if found {
		return id, nil
	}

	id, err = r.individuals.Insert(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("insert individual %q: %w", name, err)
	}
	r.logger.WithContext(ctx).WithFields(map[string]any{"individual_id": id, "name": name}).Debug("Resolved new individual")
	return id, nil
}

// ResolveEntity stores hints only when the company does not exist yet.
func (r *NameResolver) ResolveEntity(ctx context.Context, name string, hints models.EntityHints) (int64, error) {
	id, found, err := r.companies.FindIDByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup entity %q: %w", name, err)
	}
	if found {
		return id, nil
	}

	id, err = r.companies.InsertPlaceholder(ctx, name, hints)
	if err != nil {
		return 0, fmt.Errorf("insert entity %q: %w", name, err)
	}
	r.logger.WithContext(ctx).WithFields(map[string]any{"company_id": id, "name": name}).Debug("Resolved new entity")
	return id, nil
}
