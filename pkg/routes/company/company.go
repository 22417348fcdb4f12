package company

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/explorer"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

var validate = validator.New()

type Service interface {
	LookupCompany(ctx context.Context, id int64) (*explorer.CompanyDetail, error)
	RandomCompanyID(ctx context.Context) (int64, error)
	Recent(ctx context.Context, kind models.RecentKind, limit int) ([]models.Company, error)
	Changes(ctx context.Context, companyID int64, limit int) ([]models.ChangeRecord, error)
}

// Handler handles company API endpoints
type Handler struct {
	service Service
	logger  ectologger.Logger
}

// NewHandler creates a new company handler
func NewHandler(service Service, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register registers the company routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/companies/random", h.Random)
	g.GET("/companies/recent", h.Recent)
	g.GET("/companies/:id", h.Get)
	g.GET("/companies/:id/changes", h.Changes)
}

// RecentRequest selects a recent company listing
type RecentRequest struct {
	Kind  string `query:"kind" validate:"omitempty,oneof=newest oldest updated"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type ChangesRequest struct {
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

// RandomResponse carries a random company id
type RandomResponse struct {
	ID int64 `json:"id"`
}

// Get returns a company with its directors, shareholders and holdings
// @Summary Get company
// @Tags Companies
// @Produce json
// @Param id path int true "Company ID"
// @Success 200 {object} explorer.CompanyDetail
// @Failure 400 {object} httperror.HTTPError
// @Failure 404 {object} httperror.HTTPError
// @Router /api/v1/companies/{id} [get]
func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	detail, err := h.service.LookupCompany(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// Changes returns the change history of a company, newest first
// @Summary List company changes
// @Tags Companies
// @Produce json
// @Param id path int true "Company ID"
// @Param limit query int false "Maximum records (default 25)"
// @Success 200 {array} models.ChangeRecord
// @Failure 404 {object} httperror.HTTPError
// @Router /api/v1/companies/{id}/changes [get]
func (h *Handler) Changes(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req ChangesRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}

	changes, err := h.service.Changes(c.Request().Context(), id, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, changes)
}

// Random returns the id of a random known company
// @Summary Random company
// @Tags Companies
// @Produce json
// @Success 200 {object} RandomResponse
// @Failure 404 {object} httperror.HTTPError
// @Router /api/v1/companies/random [get]
func (h *Handler) Random(c echo.Context) error {
	id, err := h.service.RandomCompanyID(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RandomResponse{ID: id})
}

// Recent lists the newest, oldest or most recently updated companies
// @Summary Recent companies
// @Tags Companies
// @Produce json
// @Param kind query string false "newest, oldest or updated (default newest)"
// @Param limit query int false "Maximum companies (default 10)"
// @Success 200 {array} models.Company
// @Failure 400 {object} httperror.HTTPError
// @Router /api/v1/companies/recent [get]
func (h *Handler) Recent(c echo.Context) error {
	var req RecentRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}
	kind := models.RecentKind(req.Kind)
	if kind == "" {
		kind = models.RecentNewest
	}

	companies, err := h.service.Recent(c.Request().Context(), kind, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, companies)
}

func pathID(c echo.Context) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil || id <= 0 {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "invalid company id")
	}
	return id, nil
}

func bindQuery(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid query parameters: %s", err.Error())
	}
	return nil
}
