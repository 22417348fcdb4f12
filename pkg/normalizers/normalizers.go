// Package normalizers cleans scraped company records before they reach the
// change detector.
package normalizers

import (
	"strings"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

// Options controls the optional rewrites.
type Options struct {
	// UnknownPartyLabel, when set, is used as the individual name of a
	// director or shareholder listed without any name. Empty leaves such
	// parties untouched so the rebuilder rejects the record.
	UnknownPartyLabel string
}

// Normalizer rewrites records in place.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// CleanText strips non-breaking spaces and the mojibake the registry emits
// for them, then trims surrounding whitespace.
func CleanText(value string) string {
	value = strings.ReplaceAll(value, "\u00c2\u00a0", " ")
	value = strings.ReplaceAll(value, "\u00a0", " ")
	return strings.TrimSpace(value)
}

// Normalize rewrites the record in place and returns it.
func (n *Normalizer) Normalize(record *models.CompanyRecord) *models.CompanyRecord {
	if record == nil {
		return nil
	}

	record.CompanyName = CleanText(record.CompanyName)
	record.CompanyNumber = CleanText(record.CompanyNumber)

	if record.Addresses != nil {
		normalizeAddresses(record.Addresses)
	}
	if record.Directors != nil {
		n.normalizeParties(record.Directors.Current)
		n.normalizeParties(record.Directors.Former)
	}
	if record.Shareholders != nil {
		n.normalizeParties(record.Shareholders.Current)
		n.normalizeParties(record.Shareholders.Former)
	}

	total := record.ShareTotal()
	record.TotalShares = &total

	for i := range record.Shares {
		share := &record.Shares[i]
		share.IndividualName = CleanText(share.IndividualName)
		share.EntityName = CleanText(share.EntityName)
		switch {
		case share.IndividualName != "":
			share.ShareholderType = string(models.PartyIndividual)
		case share.EntityName != "":
			share.ShareholderType = string(models.PartyEntity)
		default:
			share.ShareholderType = ""
		}
	}

	if record.Agents != nil {
		normalizeAgents(record.Agents.Current)
		normalizeAgents(record.Agents.Former)
	}

	return record
}

func (n *Normalizer) normalizeParties(parties []models.Party) {
	for i := range parties {
		p := &parties[i]
		p.Name = CleanText(p.Name)
		p.EntityName = CleanText(p.EntityName)
		p.EntityNumber = CleanText(p.EntityNumber)
		if p.CeasedAt == "" && p.CeasedDate != "" {
			p.CeasedAt = p.CeasedDate
		}
		p.CeasedDate = ""
		if p.Name == "" && p.EntityName == "" && n.opts.UnknownPartyLabel != "" {
			p.Name = n.opts.UnknownPartyLabel
		}
	}
}

// normalizeAddresses folds the local or overseas address variants into the
// office/postal pair, preferring local ones.
func normalizeAddresses(a *models.Addresses) {
	a.EmailAddress = CleanText(a.EmailAddress)

	switch {
	case a.LocalOfficeAddress.HasCurrent():
		a.OfficeAddress = a.LocalOfficeAddress
		a.PostalAddress = a.LocalPostalAddress
	case a.OverseasOfficeAddress.HasCurrent():
		a.OfficeAddress = a.OverseasOfficeAddress
		a.PostalAddress = a.OverseasPostalAddress
	case a.LocalOfficeAddress != nil || a.OverseasOfficeAddress != nil:
		a.OfficeAddress = nil
		a.PostalAddress = nil
	}

	a.LocalOfficeAddress = nil
	a.LocalPostalAddress = nil
	a.OverseasOfficeAddress = nil
	a.OverseasPostalAddress = nil
}

func normalizeAgents(agents []models.Agent) {
	for i := range agents {
		a := &agents[i]
		a.IndividualName = CleanText(a.IndividualName)
		a.EntityName = CleanText(a.EntityName)
		switch {
		case a.IndividualName != "":
			a.AgentType = string(models.PartyIndividual)
		case a.EntityName != "":
			a.AgentType = string(models.PartyEntity)
		default:
			a.AgentType = ""
		}
	}
}
