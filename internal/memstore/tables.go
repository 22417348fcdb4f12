package memstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

type CompanyStore struct{ s *Store }

func (c *CompanyStore) FindIDByName(ctx context.Context, name string) (int64, bool, error) {
	if err := c.s.injected("companies.FindIDByName"); err != nil {
		return 0, false, err
	}
	st, unlock := c.s.read(ctx)
	defer unlock()
	id, ok := st.companyByName[name]
	return id, ok, nil
}

func (c *CompanyStore) InsertPlaceholder(ctx context.Context, name string, hints models.EntityHints) (int64, error) {
	if err := c.s.injected("companies.InsertPlaceholder"); err != nil {
		return 0, err
	}
	st, unlock := c.s.write(ctx)
	defer unlock()
	if _, ok := st.companyByName[name]; ok {
		return 0, fmt.Errorf("company %q already exists", name)
	}
	now := time.Now().UTC()
	company := models.Company{
		ID:            st.next("companies"),
		Name:          name,
		CompanyNumber: optional(hints.CompanyNumber),
		EntityType:    optional(hints.EntityType),
		CreatedAt:     now,
		UpdatedAt:     now,
		LastSeenAt:    now,
	}
	st.companies[company.ID] = company
	st.companyByName[name] = company.ID
	return company.ID, nil
}

func (c *CompanyStore) Upsert(ctx context.Context, record *models.CompanyRecord) (int64, bool, error) {
	if err := c.s.injected("companies.Upsert"); err != nil {
		return 0, false, err
	}
	st, unlock := c.s.write(ctx)
	defer unlock()

	now := time.Now().UTC()
	id, found := st.companyByName[record.CompanyName]
	company := st.companies[id]
	if !found {
		id = st.next("companies")
		company = models.Company{ID: id, Name: record.CompanyName, CreatedAt: now}
	}

	office, officeStart := record.OfficeAddress()
	postal, postalStart := record.PostalAddress()
	company.CompanyNumber = optional(record.CompanyNumber)
	company.CompanyType = optional(record.CompanyType)
	company.EntityType = optional(record.EntityType())
	company.Status = optional(record.Status())
	company.RegistrationDate = optional(record.RegistrationDate())
	company.AnnualFilingMonth = optional(record.AnnualFilingMonth())
	company.EmailAddress = optional(record.EmailAddress())
	company.OfficeAddress = optional(office)
	company.OfficeAddressStart = optional(officeStart)
	company.PostalAddress = optional(postal)
	company.PostalAddressStart = optional(postalStart)
	company.TotalShares = record.ShareTotal()
	company.UpdatedAt = now
	company.LastSeenAt = now

	st.companies[id] = company
	st.companyByName[company.Name] = id
	return id, !found, nil
}

func (c *CompanyStore) TouchLastSeen(ctx context.Context, companyNumber string) (int64, error) {
	if err := c.s.injected("companies.TouchLastSeen"); err != nil {
		return 0, err
	}
	st, unlock := c.s.write(ctx)
	defer unlock()
	var touched int64
	now := time.Now().UTC()
	for id, company := range st.companies {
		if company.CompanyNumber != nil && *company.CompanyNumber == companyNumber {
			company.LastSeenAt = now
			st.companies[id] = company
			touched++
		}
	}
	return touched, nil
}

func (c *CompanyStore) Get(ctx context.Context, id int64) (*models.Company, error) {
	st, unlock := c.s.read(ctx)
	defer unlock()
	company, ok := st.companies[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("company %d not found", id))
	}
	return &company, nil
}

func (c *CompanyStore) Search(ctx context.Context, text string, limit int) ([]models.SearchResult, error) {
	st, unlock := c.s.read(ctx)
	defer unlock()
	results := []models.SearchResult{}
	for _, company := range st.companies {
		if containsFold(company.Name, text) {
			results = append(results, models.SearchResult{ID: company.ID, Name: company.Name, Kind: models.KindCompany, Status: company.Status})
		}
	}
	return sortResults(results, limit), nil
}

func (c *CompanyStore) RandomID(ctx context.Context) (int64, error) {
	st, unlock := c.s.read(ctx)
	defer unlock()
	if len(st.companies) == 0 {
		return 0, httperror.NewHTTPError(http.StatusNotFound, "no companies stored")
	}
	ids := make([]int64, 0, len(st.companies))
	for id := range st.companies {
		ids = append(ids, id)
	}
	return ids[rand.IntN(len(ids))], nil
}

func (c *CompanyStore) Recent(ctx context.Context, kind models.RecentKind, limit int) ([]models.Company, error) {
	st, unlock := c.s.read(ctx)
	defer unlock()

	companies := []models.Company{}
	for _, company := range st.companies {
		if kind != models.RecentUpdated {
			if company.Status == nil || *company.Status != models.StatusRegistered || company.RegistrationDate == nil {
				continue
			}
		}
		companies = append(companies, company)
	}

	var less func(a, b models.Company) bool
	switch kind {
	case models.RecentNewest:
		less = func(a, b models.Company) bool {
			if *a.RegistrationDate != *b.RegistrationDate {
				return *a.RegistrationDate > *b.RegistrationDate
			}
			return a.ID > b.ID
		}
	case models.RecentOldest:
		less = func(a, b models.Company) bool {
			if *a.RegistrationDate != *b.RegistrationDate {
				return *a.RegistrationDate < *b.RegistrationDate
			}
			return a.ID < b.ID
		}
	case models.RecentUpdated:
		less = func(a, b models.Company) bool {
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return a.ID > b.ID
		}
	default:
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown listing %q", kind)
	}
	sort.Slice(companies, func(i, j int) bool { return less(companies[i], companies[j]) })
	if limit > 0 && len(companies) > limit {
		companies = companies[:limit]
	}
	return companies, nil
}

func (c *CompanyStore) ListNodes(ctx context.Context) ([]models.Company, error) {
	st, unlock := c.s.read(ctx)
	defer unlock()
	companies := make([]models.Company, 0, len(st.companies))
	for _, company := range st.companies {
		companies = append(companies, company)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].ID < companies[j].ID })
	return companies, nil
}

func (c *CompanyStore) Count(ctx context.Context) (int64, error) {
	st, unlock := c.s.read(ctx)
	defer unlock()
	return int64(len(st.companies)), nil
}

type IndividualStore struct{ s *Store }

func (i *IndividualStore) FindIDByName(ctx context.Context, name string) (int64, bool, error) {
	if err := i.s.injected("individuals.FindIDByName"); err != nil {
		return 0, false, err
	}
	st, unlock := i.s.read(ctx)
	defer unlock()
	id, ok := st.individualByName[name]
	return id, ok, nil
}

func (i *IndividualStore) Insert(ctx context.Context, name string) (int64, error) {
	if err := i.s.injected("individuals.Insert"); err != nil {
		return 0, err
	}
	st, unlock := i.s.write(ctx)
	defer unlock()
	if _, ok := st.individualByName[name]; ok {
		return 0, fmt.Errorf("individual %q already exists", name)
	}
	individual := models.Individual{ID: st.next("individuals"), Name: name, CreatedAt: time.Now().UTC()}
	st.individuals[individual.ID] = individual
	st.individualByName[name] = individual.ID
	return individual.ID, nil
}

func (i *IndividualStore) Get(ctx context.Context, id int64) (*models.Individual, error) {
	st, unlock := i.s.read(ctx)
	defer unlock()
	individual, ok := st.individuals[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("individual %d not found", id))
	}
	return &individual, nil
}

func (i *IndividualStore) Search(ctx context.Context, text string, limit int) ([]models.SearchResult, error) {
	st, unlock := i.s.read(ctx)
	defer unlock()
	results := []models.SearchResult{}
	for _, individual := range st.individuals {
		if containsFold(individual.Name, text) {
			results = append(results, models.SearchResult{ID: individual.ID, Name: individual.Name, Kind: models.KindIndividual})
		}
	}
	return sortResults(results, limit), nil
}

func (i *IndividualStore) List(ctx context.Context) ([]models.Individual, error) {
	st, unlock := i.s.read(ctx)
	defer unlock()
	individuals := make([]models.Individual, 0, len(st.individuals))
	for _, individual := range st.individuals {
		individuals = append(individuals, individual)
	}
	sort.Slice(individuals, func(a, b int) bool { return individuals[a].ID < individuals[b].ID })
	return individuals, nil
}

func (i *IndividualStore) Count(ctx context.Context) (int64, error) {
	st, unlock := i.s.read(ctx)
	defer unlock()
	return int64(len(st.individuals)), nil
}

type RelationshipStore struct{ s *Store }

func (r *RelationshipStore) DeleteForCompany(ctx context.Context, companyID int64) error {
	if err := r.s.injected("relationships.DeleteForCompany"); err != nil {
		return err
	}
	st, unlock := r.s.write(ctx)
	defer unlock()
	directors := st.directors[:0:0]
	for _, d := range st.directors {
		if d.CompanyID != companyID {
			directors = append(directors, d)
		}
	}
	shareholders := st.shareholders[:0:0]
	for _, sh := range st.shareholders {
		if sh.CompanyID != companyID {
			shareholders = append(shareholders, sh)
		}
	}
	st.directors = directors
	st.shareholders = shareholders
	return nil
}

func (r *RelationshipStore) InsertDirector(ctx context.Context, rel *models.DirectorRelationship) error {
	if err := r.s.injected("directors.Insert"); err != nil {
		return err
	}
	st, unlock := r.s.write(ctx)
	defer unlock()
	rel.ID = st.next("directors")
	st.directors = append(st.directors, *rel)
	return nil
}

func (r *RelationshipStore) InsertShareholder(ctx context.Context, rel *models.ShareholderRelationship) error {
	if err := r.s.injected("shareholders.Insert"); err != nil {
		return err
	}
	st, unlock := r.s.write(ctx)
	defer unlock()
	rel.ID = st.next("shareholders")
	st.shareholders = append(st.shareholders, *rel)
	return nil
}

func (r *RelationshipStore) ListForCompany(ctx context.Context, companyID int64) (*models.RelationshipSet, error) {
	return r.collect(ctx, func(rel models.Relationship) bool { return rel.CompanyID == companyID }), nil
}

func (r *RelationshipStore) ListForParty(ctx context.Context, kind models.PartyKind, partyID int64) (*models.RelationshipSet, error) {
	return r.collect(ctx, func(rel models.Relationship) bool {
		k, id := rel.Counterparty()
		return k == kind && id == partyID
	}), nil
}

func (r *RelationshipStore) collect(ctx context.Context, match func(models.Relationship) bool) *models.RelationshipSet {
	st, unlock := r.s.read(ctx)
	defer unlock()
	set := &models.RelationshipSet{
		Directors:    []models.DirectorRelationship{},
		Shareholders: []models.ShareholderRelationship{},
	}
	for _, d := range st.directors {
		if match(d.Relationship) {
			set.Directors = append(set.Directors, d)
		}
	}
	for _, sh := range st.shareholders {
		if match(sh.Relationship) {
			set.Shareholders = append(set.Shareholders, sh)
		}
	}
	return set
}

func (r *RelationshipStore) ListDirectors(ctx context.Context) ([]models.DirectorRelationship, error) {
	st, unlock := r.s.read(ctx)
	defer unlock()
	directors := []models.DirectorRelationship{}
	for _, d := range st.directors {
		if !d.Former {
			directors = append(directors, d)
		}
	}
	return directors, nil
}

func (r *RelationshipStore) ListShareholders(ctx context.Context) ([]models.ShareholderRelationship, error) {
	st, unlock := r.s.read(ctx)
	defer unlock()
	shareholders := []models.ShareholderRelationship{}
	for _, sh := range st.shareholders {
		if !sh.Former {
			shareholders = append(shareholders, sh)
		}
	}
	return shareholders, nil
}

func (r *RelationshipStore) Counts(ctx context.Context) (int64, int64, error) {
	directors, _ := r.ListDirectors(ctx)
	shareholders, _ := r.ListShareholders(ctx)
	return int64(len(directors)), int64(len(shareholders)), nil
}

type ChangeStore struct{ s *Store }

func (c *ChangeStore) Latest(ctx context.Context, companyNumber string) (*models.ChangeRecord, error) {
	if err := c.s.injected("changes.Latest"); err != nil {
		return nil, err
	}
	st, unlock := c.s.read(ctx)
	defer unlock()
	for i := len(st.changes) - 1; i >= 0; i-- {
		if st.changes[i].CompanyNumber == companyNumber {
			return detach(st.changes[i])
		}
	}
	return nil, nil
}

func (c *ChangeStore) Append(ctx context.Context, companyNumber string, old, new *models.CompanyRecord) (*models.ChangeRecord, error) {
	if err := c.s.injected("changes.Append"); err != nil {
		return nil, err
	}
	oldPayload, err := jsonbCopy(old)
	if err != nil {
		return nil, err
	}
	newPayload, err := jsonbCopy(new)
	if err != nil {
		return nil, err
	}

	st, unlock := c.s.write(ctx)
	defer unlock()
	change := models.ChangeRecord{
		ID:            st.next("changes"),
		CompanyNumber: companyNumber,
		OldPayload:    oldPayload,
		NewPayload:    newPayload,
		CreatedAt:     time.Now().UTC(),
	}
	st.changes = append(st.changes, change)
	return detach(change)
}

// jsonbCopy stores record the way the jsonb column does, so later changes
// to the caller's record never reach the history.
func jsonbCopy(record *models.CompanyRecord) (database.JSONB[*models.CompanyRecord], error) {
	var stored database.JSONB[*models.CompanyRecord]
	value, err := database.NewJSONB(record).Value()
	if err != nil {
		return stored, err
	}
	err = stored.Scan(value)
	return stored, err
}

// detach returns change with payloads the caller may mutate freely.
func detach(change models.ChangeRecord) (*models.ChangeRecord, error) {
	var err error
	if change.OldPayload, err = jsonbCopy(change.OldPayload.Data); err != nil {
		return nil, err
	}
	if change.NewPayload, err = jsonbCopy(change.NewPayload.Data); err != nil {
		return nil, err
	}
	return &change, nil
}

func (c *ChangeStore) List(ctx context.Context, filter models.ChangeFilter) ([]models.ChangeRecord, error) {
	st, unlock := c.s.read(ctx)
	defer unlock()
	changes := []models.ChangeRecord{}
	for i := len(st.changes) - 1; i >= 0; i-- {
		change := st.changes[i]
		if filter.CompanyNumber != "" && change.CompanyNumber != filter.CompanyNumber {
			continue
		}
		if !filter.Since.IsZero() && change.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !change.CreatedAt.Before(filter.Until) {
			continue
		}
		copied, err := detach(change)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *copied)
		if filter.Limit > 0 && len(changes) == filter.Limit {
			break
		}
	}
	return changes, nil
}

type SessionStore struct{ s *Store }

func (ss *SessionStore) Start(ctx context.Context) (*models.Session, error) {
	if err := ss.s.injected("sessions.Start"); err != nil {
		return nil, err
	}
	st, unlock := ss.s.write(ctx)
	defer unlock()
	session := models.Session{ID: st.next("sessions"), StartedAt: time.Now().UTC(), Status: models.SessionInProgress}
	st.sessions[session.ID] = session
	return &session, nil
}

func (ss *SessionStore) End(ctx context.Context, id int64, status models.SessionStatus, itemsProcessed int) error {
	if err := ss.s.injected("sessions.End"); err != nil {
		return err
	}
	st, unlock := ss.s.write(ctx)
	defer unlock()
	session, ok := st.sessions[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session %d not found", id))
	}
	now := time.Now().UTC()
	session.EndedAt = &now
	session.Status = status
	session.ItemsProcessed = itemsProcessed
	st.sessions[id] = session
	return nil
}

func (ss *SessionStore) RecordFailedItem(ctx context.Context, sessionID int64, companyNumber, message string) (*models.FailedItem, error) {
	if err := ss.s.injected("sessions.RecordFailedItem"); err != nil {
		return nil, err
	}
	st, unlock := ss.s.write(ctx)
	defer unlock()
	if companyNumber == "" {
		companyNumber = models.UnknownCompanyNumber
	}
	item := models.FailedItem{
		ID:            st.next("failed_items"),
		SessionID:     sessionID,
		CompanyNumber: companyNumber,
		Message:       message,
		CreatedAt:     time.Now().UTC(),
	}
	st.failedItems = append(st.failedItems, item)
	return &item, nil
}

func (ss *SessionStore) Get(ctx context.Context, id int64) (*models.Session, error) {
	st, unlock := ss.s.read(ctx)
	defer unlock()
	session, ok := st.sessions[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session %d not found", id))
	}
	return &session, nil
}

func (ss *SessionStore) List(ctx context.Context, limit int) ([]models.Session, error) {
	st, unlock := ss.s.read(ctx)
	defer unlock()
	sessions := make([]models.Session, 0, len(st.sessions))
	for _, session := range st.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID > sessions[j].ID })
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (ss *SessionStore) ListFailedItems(ctx context.Context, sessionID int64) ([]models.FailedItem, error) {
	st, unlock := ss.s.read(ctx)
	defer unlock()
	items := []models.FailedItem{}
	for _, item := range st.failedItems {
		if item.SessionID == sessionID {
			items = append(items, item)
		}
	}
	return items, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sortResults(results []models.SearchResult, limit int) []models.SearchResult {
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
