package relationship

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

const (
	directorsTable    = "directors"
	shareholdersTable = "shareholders"
)

var (
	directorColumns    = []string{"id", "company_id", "individual_id", "entity_id", "appointed_date", "ceased_at", "former"}
	shareholderColumns = append(append([]string{}, directorColumns...), "number_of_shares")
)

// Repository persists director and shareholder links. Writes are expected
// to run inside the transaction carried by ctx.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DeleteForCompany removes every director and shareholder row of a company.
func (r *Repository) DeleteForCompany(ctx context.Context, companyID int64) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.DeleteForCompany")
	defer span.End()

	for _, table := range []string{directorsTable, shareholdersTable} {
		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(table).Where(db.Equal("company_id", companyID))

		query, args := db.Build()
		if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"company_id": companyID,
				"table":      table,
			}).Error("Failed to delete relationships")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationships")
		}
	}
	return nil
}

// InsertDirector stores a director link and sets its ID.
func (r *Repository) InsertDirector(ctx context.Context, rel *models.DirectorRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.InsertDirector")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(directorsTable)
	ib.Cols(directorColumns[1:]...)
	ib.Values(rel.CompanyID, rel.IndividualID, rel.EntityID, rel.AppointedDate, rel.CeasedAt, rel.Former)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&rel.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", rel.CompanyID).Error("Failed to insert director")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create director")
	}
	return nil
}

// InsertShareholder stores a shareholder link and sets its ID.
func (r *Repository) InsertShareholder(ctx context.Context, rel *models.ShareholderRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.InsertShareholder")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(shareholdersTable)
	ib.Cols(shareholderColumns[1:]...)
	ib.Values(rel.CompanyID, rel.IndividualID, rel.EntityID, rel.AppointedDate, rel.CeasedAt, rel.Former, rel.NumberOfShares)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.db.Querier(ctx).QueryRowxContext(ctx, query, args...).Scan(&rel.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", rel.CompanyID).Error("Failed to insert shareholder")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create shareholder")
	}
	return nil
}

// ListForCompany returns the stored links of one company, former ones included.
func (r *Repository) ListForCompany(ctx context.Context, companyID int64) (*models.RelationshipSet, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListForCompany")
	defer span.End()

	set := &models.RelationshipSet{
		Directors:    []models.DirectorRelationship{},
		Shareholders: []models.ShareholderRelationship{},
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(directorColumns...).From(directorsTable).Where(sb.Equal("company_id", companyID)).OrderBy("id")
	query, args := sb.Build()
	if err := r.db.Querier(ctx).SelectContext(ctx, &set.Directors, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", companyID).Error("Failed to list directors")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list directors")
	}

	sb = sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(shareholderColumns...).From(shareholdersTable).Where(sb.Equal("company_id", companyID)).OrderBy("id")
	query, args = sb.Build()
	if err := r.db.Querier(ctx).SelectContext(ctx, &set.Shareholders, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("company_id", companyID).Error("Failed to list shareholders")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list shareholders")
	}
	return set, nil
}

// ListForParty returns the links where the party is director or shareholder.
func (r *Repository) ListForParty(ctx context.Context, kind models.PartyKind, partyID int64) (*models.RelationshipSet, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListForParty")
	defer span.End()

	column := "entity_id"
	if kind == models.PartyIndividual {
		column = "individual_id"
	}

	set := &models.RelationshipSet{
		Directors:    []models.DirectorRelationship{},
		Shareholders: []models.ShareholderRelationship{},
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(directorColumns...).From(directorsTable).Where(sb.Equal(column, partyID)).OrderBy("id")
	query, args := sb.Build()
	if err := r.db.Querier(ctx).SelectContext(ctx, &set.Directors, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField(column, partyID).Error("Failed to list directorships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list directorships")
	}

	sb = sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(shareholderColumns...).From(shareholdersTable).Where(sb.Equal(column, partyID)).OrderBy("id")
	query, args = sb.Build()
	if err := r.db.Querier(ctx).SelectContext(ctx, &set.Shareholders, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField(column, partyID).Error("Failed to list shareholdings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list shareholdings")
	}
	return set, nil
}

// ListDirectors returns every current director link.
func (r *Repository) ListDirectors(ctx context.Context) ([]models.DirectorRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListDirectors")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(directorColumns...).From(directorsTable).Where(sb.Equal("former", false)).OrderBy("id")

	query, args := sb.Build()
	directors := []models.DirectorRelationship{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &directors, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list directors")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list directors")
	}
	return directors, nil
}

// ListShareholders returns every current shareholder link.
func (r *Repository) ListShareholders(ctx context.Context) ([]models.ShareholderRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListShareholders")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(shareholderColumns...).From(shareholdersTable).Where(sb.Equal("former", false)).OrderBy("id")

	query, args := sb.Build()
	shareholders := []models.ShareholderRelationship{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &shareholders, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list shareholders")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list shareholders")
	}
	return shareholders, nil
}

// Counts returns the number of current director and shareholder links.
func (r *Repository) Counts(ctx context.Context) (int64, int64, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Counts")
	defer span.End()

	counts := make([]int64, 2)
	for i, table := range []string{directorsTable, shareholdersTable} {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("COUNT(*)").From(table).Where(sb.Equal("former", false))

		query, args := sb.Build()
		if err := r.db.Querier(ctx).GetContext(ctx, &counts[i], query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("table", table).Error("Failed to count relationships")
			return 0, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count relationships")
		}
	}
	return counts[0], counts[1], nil
}
