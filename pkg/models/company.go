package models

import "time"

type EntityKind string

const (
	KindCompany    EntityKind = "company"
	KindIndividual EntityKind = "individual"
)

// Company is a row of the companies table. Placeholder companies created as
// counter-parties carry only a name and possibly a number and entity type.
type Company struct {
	ID                 int64     `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	CompanyNumber      *string   `db:"company_number" json:"company_number"`
	CompanyType        *string   `db:"company_type" json:"company_type"`
	EntityType         *string   `db:"entity_type" json:"entity_type"`
	Status             *string   `db:"status" json:"status"`
	RegistrationDate   *string   `db:"registration_date" json:"registration_date"`
	AnnualFilingMonth  *string   `db:"annual_filing_month" json:"annual_filing_month"`
	EmailAddress       *string   `db:"email_address" json:"email_address"`
	OfficeAddress      *string   `db:"office_address" json:"office_address"`
	OfficeAddressStart *string   `db:"office_address_start" json:"office_address_start"`
	PostalAddress      *string   `db:"postal_address" json:"postal_address"`
	PostalAddressStart *string   `db:"postal_address_start" json:"postal_address_start"`
	TotalShares        int64     `db:"total_shares" json:"total_shares"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
	LastSeenAt         time.Time `db:"last_seen_at" json:"last_seen_at"`
}

type Individual struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EntityHints are the optional attributes stored on a placeholder company
// discovered through another company's director or shareholder list.
type EntityHints struct {
	CompanyNumber string
	EntityType    string
}

type SearchResult struct {
	ID     int64      `db:"id" json:"id"`
	Name   string     `db:"name" json:"name"`
	Kind   EntityKind `db:"kind" json:"kind"`
	Status *string    `db:"status" json:"status,omitempty"`
}

// RecentKind selects a company listing order.
type RecentKind string

const (
	RecentNewest  RecentKind = "newest"
	RecentOldest  RecentKind = "oldest"
	RecentUpdated RecentKind = "updated"
)

// StatusRegistered is the registry status of an active company.
const StatusRegistered = "Registered"

type Stats struct {
	Companies    int64 `json:"companies"`
	Individuals  int64 `json:"individuals"`
	Directors    int64 `json:"directors"`
	Shareholders int64 `json:"shareholders"`
}
