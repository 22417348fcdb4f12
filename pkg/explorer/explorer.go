// Package explorer exposes the read-side query primitives over the
// relational store and the materialized graph.
package explorer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/graph"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

const (
	DefaultSearchLimit = 25
	MaxSearchLimit     = 100
	DefaultRecentLimit = 10
)

type CompanyStore interface {
	Get(ctx context.Context, id int64) (*models.Company, error)
	Search(ctx context.Context, text string, limit int) ([]models.SearchResult, error)
	RandomID(ctx context.Context) (int64, error)
	Recent(ctx context.Context, kind models.RecentKind, limit int) ([]models.Company, error)
	Count(ctx context.Context) (int64, error)
}

type IndividualStore interface {
	Get(ctx context.Context, id int64) (*models.Individual, error)
	Search(ctx context.Context, text string, limit int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int64, error)
}

type RelationshipStore interface {
	ListForCompany(ctx context.Context, companyID int64) (*models.RelationshipSet, error)
	ListForParty(ctx context.Context, kind models.PartyKind, partyID int64) (*models.RelationshipSet, error)
	Counts(ctx context.Context) (int64, int64, error)
}

type ChangeStore interface {
	List(ctx context.Context, filter models.ChangeFilter) ([]models.ChangeRecord, error)
}

type GraphSource interface {
	Get(ctx context.Context) (*graph.Graph, error)
}

type Explorer struct {
	companies     CompanyStore
	individuals   IndividualStore
	relationships RelationshipStore
	changes       ChangeStore
	graphs        GraphSource
	maxDepth      int
	logger        ectologger.Logger
}

func New(
	companies CompanyStore,
	individuals IndividualStore,
	relationships RelationshipStore,
	changes ChangeStore,
	graphs GraphSource,
	maxDepth int,
	logger ectologger.Logger,
) *Explorer {
	return &Explorer{
		companies:     companies,
		individuals:   individuals,
		relationships: relationships,
		changes:       changes,
		graphs:        graphs,
		maxDepth:      maxDepth,
		logger:        logger,
	}
}

// PartyLink is one side of a relationship as seen from the other side.
type PartyLink struct {
	ID             int64            `json:"id"`
	Kind           models.PartyKind `json:"kind"`
	Name           string           `json:"name"`
	AppointedDate  *string          `json:"appointed_date,omitempty"`
	CeasedAt       *string          `json:"ceased_at,omitempty"`
	Former         bool             `json:"former"`
	NumberOfShares *int64           `json:"number_of_shares,omitempty"`
}

type CompanyDetail struct {
	Company       *models.Company `json:"company"`
	Directors     []PartyLink     `json:"directors"`
	Shareholders  []PartyLink     `json:"shareholders"`
	DirectorOf    []PartyLink     `json:"director_of"`
	ShareholderOf []PartyLink     `json:"shareholder_of"`
}

type IndividualDetail struct {
	Individual    *models.Individual `json:"individual"`
	DirectorOf    []PartyLink        `json:"director_of"`
	ShareholderOf []PartyLink        `json:"shareholder_of"`
}

// LookupCompany returns the company with its own relationships and the
// companies it is a director or shareholder of.
func (e *Explorer) LookupCompany(ctx context.Context, id int64) (*CompanyDetail, error) {
	company, err := e.companies.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	own, err := e.relationships.ListForCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	held, err := e.relationships.ListForParty(ctx, models.PartyEntity, id)
	if err != nil {
		return nil, err
	}

	detail := &CompanyDetail{Company: company}
	if detail.Directors, detail.Shareholders, err = e.counterparties(ctx, own); err != nil {
		return nil, err
	}
	if detail.DirectorOf, detail.ShareholderOf, err = e.companiesOf(ctx, held); err != nil {
		return nil, err
	}
	return detail, nil
}

// LookupIndividual returns the individual and the companies they are linked to.
func (e *Explorer) LookupIndividual(ctx context.Context, id int64) (*IndividualDetail, error) {
	individual, err := e.individuals.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	held, err := e.relationships.ListForParty(ctx, models.PartyIndividual, id)
	if err != nil {
		return nil, err
	}

	detail := &IndividualDetail{Individual: individual}
	if detail.DirectorOf, detail.ShareholderOf, err = e.companiesOf(ctx, held); err != nil {
		return nil, err
	}
	return detail, nil
}

func (e *Explorer) counterparties(ctx context.Context, set *models.RelationshipSet) ([]PartyLink, []PartyLink, error) {
	names := newNameCache(e)
	directors := make([]PartyLink, 0, len(set.Directors))
	for _, d := range set.Directors {
		kind, partyID := d.Counterparty()
		name, err := names.party(ctx, kind, partyID)
		if err != nil {
			return nil, nil, err
		}
		directors = append(directors, link(d.Relationship, kind, partyID, name, nil))
	}

	shareholders := make([]PartyLink, 0, len(set.Shareholders))
	for _, s := range set.Shareholders {
		kind, partyID := s.Counterparty()
		name, err := names.party(ctx, kind, partyID)
		if err != nil {
			return nil, nil, err
		}
		shares := s.NumberOfShares
		shareholders = append(shareholders, link(s.Relationship, kind, partyID, name, &shares))
	}
	return directors, shareholders, nil
}

func (e *Explorer) companiesOf(ctx context.Context, set *models.RelationshipSet) ([]PartyLink, []PartyLink, error) {
	names := newNameCache(e)
	directorOf := make([]PartyLink, 0, len(set.Directors))
	for _, d := range set.Directors {
		name, err := names.party(ctx, models.PartyEntity, d.CompanyID)
		if err != nil {
			return nil, nil, err
		}
		directorOf = append(directorOf, link(d.Relationship, models.PartyEntity, d.CompanyID, name, nil))
	}

	shareholderOf := make([]PartyLink, 0, len(set.Shareholders))
	for _, s := range set.Shareholders {
		name, err := names.party(ctx, models.PartyEntity, s.CompanyID)
		if err != nil {
			return nil, nil, err
		}
		shares := s.NumberOfShares
		shareholderOf = append(shareholderOf, link(s.Relationship, models.PartyEntity, s.CompanyID, name, &shares))
	}
	return directorOf, shareholderOf, nil
}

func link(rel models.Relationship, kind models.PartyKind, id int64, name string, shares *int64) PartyLink {
	return PartyLink{
		ID:             id,
		Kind:           kind,
		Name:           name,
		AppointedDate:  rel.AppointedDate,
		CeasedAt:       rel.CeasedAt,
		Former:         rel.Former,
		NumberOfShares: shares,
	}
}

// nameCache avoids refetching a party listed more than once.
type nameCache struct {
	e     *Explorer
	names map[string]string
}

func newNameCache(e *Explorer) *nameCache {
	return &nameCache{e: e, names: map[string]string{}}
}

func (c *nameCache) party(ctx context.Context, kind models.PartyKind, id int64) (string, error) {
	key := fmt.Sprintf("%s:%d", kind, id)
	if name, ok := c.names[key]; ok {
		return name, nil
	}

	var name string
	switch kind {
	case models.PartyIndividual:
		individual, err := c.e.individuals.Get(ctx, id)
		if err != nil {
			return "", err
		}
		name = individual.Name
	case models.PartyEntity:
		company, err := c.e.companies.Get(ctx, id)
		if err != nil {
			return "", err
		}
		name = company.Name
	default:
		return "", httperror.NewHTTPErrorf(http.StatusInternalServerError, "relationship has no counter-party")
	}
	c.names[key] = name
	return name, nil
}

// SearchByName finds companies, individuals or both (kind empty) whose name
// contains text, case-insensitively.
func (e *Explorer) SearchByName(ctx context.Context, kind models.EntityKind, text string, limit int) ([]models.SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.SearchResult{}, nil
	}
	limit = clampLimit(limit, DefaultSearchLimit)

	switch kind {
	case models.KindCompany:
		return e.companies.Search(ctx, text, limit)
	case models.KindIndividual:
		return e.individuals.Search(ctx, text, limit)
	case "":
		companies, err := e.companies.Search(ctx, text, limit)
		if err != nil {
			return nil, err
		}
		individuals, err := e.individuals.Search(ctx, text, limit)
		if err != nil {
			return nil, err
		}
		results := append(companies, individuals...)
		if len(results) > limit {
			results = results[:limit]
		}
		return results, nil
	default:
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown search type %q", kind)
	}
}

func (e *Explorer) RandomCompanyID(ctx context.Context) (int64, error) {
	return e.companies.RandomID(ctx)
}

func (e *Explorer) Recent(ctx context.Context, kind models.RecentKind, limit int) ([]models.Company, error) {
	return e.companies.Recent(ctx, kind, clampLimit(limit, DefaultRecentLimit))
}

// Changes lists the change history of a company, newest first.
func (e *Explorer) Changes(ctx context.Context, companyID int64, limit int) ([]models.ChangeRecord, error) {
	company, err := e.companies.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.CompanyNumber == nil {
		return []models.ChangeRecord{}, nil
	}
	return e.changes.List(ctx, models.ChangeFilter{
		CompanyNumber: *company.CompanyNumber,
		Limit:         clampLimit(limit, DefaultSearchLimit),
	})
}

func (e *Explorer) Stats(ctx context.Context) (*models.Stats, error) {
	companies, err := e.companies.Count(ctx)
	if err != nil {
		return nil, err
	}
	individuals, err := e.individuals.Count(ctx)
	if err != nil {
		return nil, err
	}
	directors, shareholders, err := e.relationships.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Stats{
		Companies:    companies,
		Individuals:  individuals,
		Directors:    directors,
		Shareholders: shareholders,
	}, nil
}

// BuildGraph returns the current materialized graph snapshot.
func (e *Explorer) BuildGraph(ctx context.Context) (*graph.Graph, error) {
	return e.graphs.Get(ctx)
}

// Extract returns the ego network of nodeID. Depth is capped at the
// configured maximum. Unknown ids, malformed ones included, yield
// graph.ErrNodeNotFound.
func (e *Explorer) Extract(ctx context.Context, nodeID string, depth int) (*graph.Graph, error) {
	if depth < 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "depth must not be negative")
	}
	if e.maxDepth > 0 && depth > e.maxDepth {
		e.logger.WithContext(ctx).WithFields(map[string]any{
			"requested": depth,
			"max":       e.maxDepth,
		}).Debug("Capping ego network depth")
		depth = e.maxDepth
	}

	ctx, span := tracing.StartSpan(ctx, "explorer.Explorer.Extract", tracing.NodeID(nodeID))
	defer span.End()

	g, err := e.graphs.Get(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Extract(g, nodeID, depth)
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}
