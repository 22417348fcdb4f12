// Package rebuilder replaces a company's director and shareholder links with
// the set described by its latest accepted record.
package rebuilder

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/resolver"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

type RelationshipStore interface {
	DeleteForCompany(ctx context.Context, companyID int64) error
	InsertDirector(ctx context.Context, rel *models.DirectorRelationship) error
	InsertShareholder(ctx context.Context, rel *models.ShareholderRelationship) error
}

// Transactor runs fn in a transaction, joining one already carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Options struct {
	// PersistFormer also stores ceased directors and shareholders, flagged former.
	PersistFormer bool
}

type Rebuilder struct {
	store    RelationshipStore
	resolver resolver.Resolver
	tx       Transactor
	opts     Options
	logger   ectologger.Logger
}

func New(store RelationshipStore, r resolver.Resolver, tx Transactor, opts Options, logger ectologger.Logger) *Rebuilder {
	return &Rebuilder{
		store:    store,
		resolver: r,
		tx:       tx,
		opts:     opts,
		logger:   logger,
	}
}

// Replace deletes every link of the company and inserts the ones listed in
// record. Either all of it happens or none of it does.
func (b *Rebuilder) Replace(ctx context.Context, companyID int64, record *models.CompanyRecord) (*models.RelationshipSet, error) {
	ctx, span := tracing.StartSpan(ctx, "rebuilder.Rebuilder.Replace")
	defer span.End()

	var set *models.RelationshipSet
	err := b.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		set, err = b.replace(ctx, companyID, record)
		return err
	})
	if err != nil {
		return nil, err
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"company_id":   companyID,
		"directors":    len(set.Directors),
		"shareholders": len(set.Shareholders),
	}).Debug("Replaced relationships")
	return set, nil
}

func (b *Rebuilder) replace(ctx context.Context, companyID int64, record *models.CompanyRecord) (*models.RelationshipSet, error) {
	if err := b.store.DeleteForCompany(ctx, companyID); err != nil {
		return nil, fmt.Errorf("delete relationships of company %d: %w", companyID, err)
	}

	set := &models.RelationshipSet{
		Directors:    []models.DirectorRelationship{},
		Shareholders: []models.ShareholderRelationship{},
	}

	directors := b.withFormer(record.CurrentDirectors(), record.FormerDirectors())
	for i, entry := range directors {
		rel, err := b.link(ctx, companyID, entry)
		if err != nil {
			return nil, fmt.Errorf("director %d of company %d: %w", i, companyID, err)
		}
		director := models.DirectorRelationship{Relationship: rel}
		if err := b.store.InsertDirector(ctx, &director); err != nil {
			return nil, fmt.Errorf("insert director %d of company %d: %w", i, companyID, err)
		}
		set.Directors = append(set.Directors, director)
	}

	shareholders := b.withFormer(record.CurrentShareholders(), record.FormerShareholders())
	for i, entry := range shareholders {
		rel, err := b.link(ctx, companyID, entry)
		if err != nil {
			return nil, fmt.Errorf("shareholder %d of company %d: %w", i, companyID, err)
		}
		shareholder := models.ShareholderRelationship{
			Relationship:   rel,
			NumberOfShares: record.SharesHeldBy(entry.party),
		}
		if err := b.store.InsertShareholder(ctx, &shareholder); err != nil {
			return nil, fmt.Errorf("insert shareholder %d of company %d: %w", i, companyID, err)
		}
		set.Shareholders = append(set.Shareholders, shareholder)
	}

	return set, nil
}

type entry struct {
	party  models.Party
	former bool
}

func (b *Rebuilder) withFormer(current, former []models.Party) []entry {
	entries := make([]entry, 0, len(current)+len(former))
	for _, p := range current {
		entries = append(entries, entry{party: p})
	}
	if b.opts.PersistFormer {
		for _, p := range former {
			entries = append(entries, entry{party: p, former: true})
		}
	}
	return entries
}

func (b *Rebuilder) link(ctx context.Context, companyID int64, e entry) (models.Relationship, error) {
	kind, name, err := e.party.Classify()
	if err != nil {
		return models.Relationship{}, err
	}

	var partyID int64
	switch kind {
	case models.PartyIndividual:
		partyID, err = b.resolver.ResolveIndividual(ctx, name)
	default:
		partyID, err = b.resolver.ResolveEntity(ctx, name, models.EntityHints{
			CompanyNumber: e.party.EntityNumber,
			EntityType:    e.party.EntityType,
		})
	}
	if err != nil {
		return models.Relationship{}, err
	}
	return models.NewRelationship(companyID, kind, partyID, e.party, e.former), nil
}
