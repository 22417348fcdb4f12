package models

import (
	"strings"

	"github.com/Gobusters/ectolinq"
)

// CompanyRecord is one normalized registry snapshot of a company as
// delivered by the scraper.
type CompanyRecord struct {
	CompanyName    string            `json:"company_name" validate:"required"`
	CompanyNumber  string            `json:"company_number" validate:"required"`
	CompanyType    string            `json:"company_type,omitempty"`
	GeneralDetails *GeneralDetails   `json:"general_details,omitempty"`
	Addresses      *Addresses        `json:"addresses,omitempty"`
	Agents         *Agents           `json:"agents,omitempty"`
	Directors      *Parties          `json:"directors,omitempty"`
	Shareholders   *Shareholders     `json:"shareholders,omitempty"`
	Shares         []ShareAllocation `json:"shares,omitempty"`
	Filings        []Filing          `json:"filings,omitempty"`
	TotalShares    *int64            `json:"total_shares,omitempty"`
}

type GeneralDetails struct {
	EntityType         string `json:"entity_type,omitempty"`
	EntityStatus       string `json:"entity_status,omitempty"`
	RegistrationDate   string `json:"registration_date,omitempty"`
	ReregistrationDate string `json:"reregistration_date,omitempty"`
	DeregistrationDate string `json:"deregistration_date,omitempty"`
	AnnualFilingMonth  string `json:"annual_filing_month,omitempty"`
}

type AddressPeriod struct {
	Address   string `json:"address,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type AddressHistory struct {
	Current *AddressPeriod  `json:"current,omitempty"`
	Former  []AddressPeriod `json:"former,omitempty"`
}

// HasCurrent reports whether a current address is present.
func (h *AddressHistory) HasCurrent() bool {
	return h != nil && h.Current != nil && h.Current.Address != ""
}

// Addresses carries either the resolved office/postal pair or the raw
// local/overseas variants the registry publishes; normalization folds the
// latter into the former.
type Addresses struct {
	EmailAddress          string          `json:"email_address,omitempty"`
	OfficeAddress         *AddressHistory `json:"office_address,omitempty"`
	PostalAddress         *AddressHistory `json:"postal_address,omitempty"`
	LocalOfficeAddress    *AddressHistory `json:"local_office_address,omitempty"`
	LocalPostalAddress    *AddressHistory `json:"local_postal_address,omitempty"`
	OverseasOfficeAddress *AddressHistory `json:"overseas_office_address,omitempty"`
	OverseasPostalAddress *AddressHistory `json:"overseas_postal_address,omitempty"`
}

// Party is a director or shareholder entry. Exactly one of Name (an
// individual) or EntityName (a company) is expected to be set.
type Party struct {
	Name          string `json:"name,omitempty"`
	EntityName    string `json:"entity_name,omitempty"`
	EntityNumber  string `json:"entity_number,omitempty"`
	EntityType    string `json:"entity_type,omitempty"`
	Address       string `json:"address,omitempty"`
	AppointedDate string `json:"appointed_date,omitempty"`
	CeasedAt      string `json:"ceased_at,omitempty"`
	CeasedDate    string `json:"ceased_date,omitempty"`
}

// Classify reports whether the party is an individual or an entity and the
// name it resolves by.
func (p Party) Classify() (PartyKind, string, error) {
	if name := strings.TrimSpace(p.Name); name != "" {
		return PartyIndividual, name, nil
	}
	if name := strings.TrimSpace(p.EntityName); name != "" {
		return PartyEntity, name, nil
	}
	return "", "", ErrAmbiguousParty
}

// DisplayName is the name the party is listed under.
func (p Party) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.EntityName
}

type Parties struct {
	Current []Party `json:"current,omitempty"`
	Former  []Party `json:"former,omitempty"`
}

type Shareholders struct {
	TotalShares *int64  `json:"total_shares,omitempty"`
	Current     []Party `json:"current,omitempty"`
	Former      []Party `json:"former,omitempty"`
}

type ShareAllocation struct {
	IndividualName  string `json:"individual_name,omitempty"`
	EntityName      string `json:"entity_name,omitempty"`
	NumberOfShares  int64  `json:"number_of_shares,omitempty"`
	ShareholderType string `json:"shareholder_type,omitempty"`
}

type Agent struct {
	AgentType      string `json:"agent_type,omitempty"`
	IndividualName string `json:"individual_name,omitempty"`
	EntityName     string `json:"entity_name,omitempty"`
	EntityNumber   string `json:"entity_number,omitempty"`
	EntityType     string `json:"entity_type,omitempty"`
	AppointedDate  string `json:"appointed_date,omitempty"`
	CeasedDate     string `json:"ceased_date,omitempty"`
}

type Agents struct {
	Current []Agent `json:"current,omitempty"`
	Former  []Agent `json:"former,omitempty"`
}

type Filing struct {
	FilingName     string `json:"filing_name,omitempty"`
	SubmittedDate  string `json:"submitted_date,omitempty"`
	RegisteredDate string `json:"registered_date,omitempty"`
}

// ShareTotal is the company's total share count; 0 when the record has no
// shareholder summary.
func (r *CompanyRecord) ShareTotal() int64 {
	if r.Shareholders == nil || r.Shareholders.TotalShares == nil {
		return 0
	}
	return *r.Shareholders.TotalShares
}

// SharesHeldBy looks the party up in the share allocation list by exact
// individual or entity name. The first match wins; no match is 0.
func (r *CompanyRecord) SharesHeldBy(p Party) int64 {
	name := p.DisplayName()
	if name == "" {
		return 0
	}
	return ectolinq.Find(r.Shares, func(share ShareAllocation) bool {
		return share.IndividualName == name || share.EntityName == name
	}).NumberOfShares
}

func (r *CompanyRecord) details() GeneralDetails {
	if r.GeneralDetails == nil {
		return GeneralDetails{}
	}
	return *r.GeneralDetails
}

func (r *CompanyRecord) EntityType() string        { return r.details().EntityType }
func (r *CompanyRecord) Status() string            { return r.details().EntityStatus }
func (r *CompanyRecord) RegistrationDate() string  { return r.details().RegistrationDate }
func (r *CompanyRecord) AnnualFilingMonth() string { return r.details().AnnualFilingMonth }

func (r *CompanyRecord) EmailAddress() string {
	if r.Addresses == nil {
		return ""
	}
	return r.Addresses.EmailAddress
}

// OfficeAddress returns the current office address and its start date.
func (r *CompanyRecord) OfficeAddress() (string, string) {
	if r.Addresses == nil {
		return "", ""
	}
	return currentAddress(r.Addresses.OfficeAddress)
}

// PostalAddress returns the current postal address and its start date.
func (r *CompanyRecord) PostalAddress() (string, string) {
	if r.Addresses == nil {
		return "", ""
	}
	return currentAddress(r.Addresses.PostalAddress)
}

func currentAddress(h *AddressHistory) (string, string) {
	if h == nil || h.Current == nil {
		return "", ""
	}
	return h.Current.Address, h.Current.StartDate
}

// CurrentDirectors returns the current director list, nil-safe.
func (r *CompanyRecord) CurrentDirectors() []Party {
	if r.Directors == nil {
		return nil
	}
	return r.Directors.Current
}

func (r *CompanyRecord) FormerDirectors() []Party {
	if r.Directors == nil {
		return nil
	}
	return r.Directors.Former
}

// CurrentShareholders returns the current shareholder list, nil-safe.
func (r *CompanyRecord) CurrentShareholders() []Party {
	if r.Shareholders == nil {
		return nil
	}
	return r.Shareholders.Current
}

func (r *CompanyRecord) FormerShareholders() []Party {
	if r.Shareholders == nil {
		return nil
	}
	return r.Shareholders.Former
}
