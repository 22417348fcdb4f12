package models

type PartyKind string

const (
	PartyIndividual PartyKind = "individual"
	PartyEntity     PartyKind = "entity"
)

// Relationship links a company to exactly one counter-party, either an
// individual or another company.
type Relationship struct {
	ID            int64   `db:"id" json:"id"`
	CompanyID     int64   `db:"company_id" json:"company_id"`
	IndividualID  *int64  `db:"individual_id" json:"individual_id,omitempty"`
	EntityID      *int64  `db:"entity_id" json:"entity_id,omitempty"`
	AppointedDate *string `db:"appointed_date" json:"appointed_date,omitempty"`
	CeasedAt      *string `db:"ceased_at" json:"ceased_at,omitempty"`
	Former        bool    `db:"former" json:"former"`
}

// Counterparty returns the kind and id of the linked party.
func (r Relationship) Counterparty() (PartyKind, int64) {
	if r.IndividualID != nil {
		return PartyIndividual, *r.IndividualID
	}
	if r.EntityID != nil {
		return PartyEntity, *r.EntityID
	}
	return "", 0
}

type DirectorRelationship struct {
	Relationship
}

type ShareholderRelationship struct {
	Relationship
	NumberOfShares int64 `db:"number_of_shares" json:"number_of_shares"`
}

// RelationshipSet is the full replace-set of a company's edges.
type RelationshipSet struct {
	Directors    []DirectorRelationship    `json:"directors"`
	Shareholders []ShareholderRelationship `json:"shareholders"`
}

// NewRelationship builds a link from a resolved counter-party.
func NewRelationship(companyID int64, kind PartyKind, partyID int64, p Party, former bool) Relationship {
	rel := Relationship{
		CompanyID:     companyID,
		AppointedDate: optional(p.AppointedDate),
		CeasedAt:      optional(p.CeasedAt),
		Former:        former,
	}
	id := partyID
	if kind == PartyIndividual {
		rel.IndividualID = &id
	} else {
		rel.EntityID = &id
	}
	return rel
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
