package graphsync

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

const (
	labelCompany    = "Company"
	labelIndividual = "Individual"

	relDirector    = "DIRECTOR"
	relShareholder = "SHAREHOLDER"
)

type CompanyGetter interface {
	Get(ctx context.Context, id int64) (*models.Company, error)
}

type IndividualGetter interface {
	Get(ctx context.Context, id int64) (*models.Individual, error)
}

type writer interface {
	ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error)
}

// Projector replaces a company's incoming DIRECTOR and SHAREHOLDER edges in
// the graph database with the relationship set that was just committed.
type Projector struct {
	client      writer
	companies   CompanyGetter
	individuals IndividualGetter
	logger      ectologger.Logger
}

func NewProjector(client *Client, companies CompanyGetter, individuals IndividualGetter, logger ectologger.Logger) *Projector {
	return &Projector{
		client:      client,
		companies:   companies,
		individuals: individuals,
		logger:      logger,
	}
}

type statement struct {
	cypher string
	params map[string]any
}

// OnApplied projects one applied change.
func (p *Projector) OnApplied(ctx context.Context, result *models.ApplyResult) error {
	ctx, span := tracing.StartSpan(ctx, "graphsync.Projector.OnApplied")
	defer span.End()

	statements, err := p.plan(ctx, result)
	if err != nil {
		return err
	}

	_, err = p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range statements {
			res, err := tx.Run(ctx, st.cypher, st.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("project company %d: %w", result.CompanyID, err)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"company_id": result.CompanyID,
		"statements": len(statements),
	}).Debug("Projected company into graph database")
	return nil
}

func (p *Projector) plan(ctx context.Context, result *models.ApplyResult) ([]statement, error) {
	company := map[string]any{
		"id":             result.CompanyID,
		"name":           result.CompanyName,
		"company_number": result.CompanyNumber,
	}
	if result.Record != nil {
		company["status"] = result.Record.Status()
		company["entity_type"] = result.Record.EntityType()
	}

	statements := []statement{
		{
			cypher: `MERGE (c:Company {id: $id}) SET c += $props`,
			params: map[string]any{"id": result.CompanyID, "props": company},
		},
		{
			cypher: `MATCH (c:Company {id: $id})<-[r]-() WHERE type(r) IN ['DIRECTOR', 'SHAREHOLDER'] DELETE r`,
			params: map[string]any{"id": result.CompanyID},
		},
	}
	if result.Relationships == nil {
		return statements, nil
	}

	links := map[string]map[string][]map[string]any{}
	add := func(rel models.Relationship, relType string, extra map[string]any) error {
		kind, partyID := rel.Counterparty()
		label, name, err := p.partyName(ctx, kind, partyID)
		if err != nil {
			return err
		}
		link := map[string]any{
			"party_id":       partyID,
			"party_name":     name,
			"appointed_date": deref(rel.AppointedDate),
			"ceased_at":      deref(rel.CeasedAt),
			"former":         rel.Former,
		}
		for k, v := range extra {
			link[k] = v
		}
		if links[relType] == nil {
			links[relType] = map[string][]map[string]any{}
		}
		links[relType][label] = append(links[relType][label], link)
		return nil
	}

	for _, d := range result.Relationships.Directors {
		if err := add(d.Relationship, relDirector, nil); err != nil {
			return nil, err
		}
	}
	for _, s := range result.Relationships.Shareholders {
		if err := add(s.Relationship, relShareholder, map[string]any{"number_of_shares": s.NumberOfShares}); err != nil {
			return nil, err
		}
	}

	for _, relType := range []string{relDirector, relShareholder} {
		for _, label := range []string{labelIndividual, labelCompany} {
			batch := links[relType][label]
			if len(batch) == 0 {
				continue
			}
			statements = append(statements, statement{
				cypher: fmt.Sprintf(`
					MATCH (c:Company {id: $id})
					UNWIND $links AS link
					MERGE (p:%s {id: link.party_id})
					SET p.name = link.party_name
					CREATE (p)-[r:%s]->(c)
					SET r = link
				`, label, relType),
				params: map[string]any{"id": result.CompanyID, "links": batch},
			})
		}
	}
	return statements, nil
}

func (p *Projector) partyName(ctx context.Context, kind models.PartyKind, id int64) (string, string, error) {
	if kind == models.PartyIndividual {
		individual, err := p.individuals.Get(ctx, id)
		if err != nil {
			return "", "", fmt.Errorf("load individual %d: %w", id, err)
		}
		return labelIndividual, individual.Name, nil
	}
	company, err := p.companies.Get(ctx, id)
	if err != nil {
		return "", "", fmt.Errorf("load company %d: %w", id, err)
	}
	return labelCompany, company.Name, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
