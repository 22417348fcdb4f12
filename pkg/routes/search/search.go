package search

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

var validate = validator.New()

type Service interface {
	SearchByName(ctx context.Context, kind models.EntityKind, text string, limit int) ([]models.SearchResult, error)
}

// Handler handles name search
type Handler struct {
	service Service
	logger  ectologger.Logger
}

func NewHandler(service Service, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/search", h.Search)
}

// Request is the search query
type Request struct {
	Query string `query:"q" validate:"required,max=200"`
	Type  string `query:"type" validate:"omitempty,oneof=company individual"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

// Search finds companies and individuals by case-insensitive substring
// @Summary Search by name
// @Tags Search
// @Produce json
// @Param q query string true "Name fragment"
// @Param type query string false "company or individual (default both)"
// @Param limit query int false "Maximum results (default 25)"
// @Success 200 {array} models.SearchResult
// @Failure 400 {object} httperror.HTTPError
// @Router /api/v1/search [get]
func (h *Handler) Search(c echo.Context) error {
	var req Request
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid query parameters: %s", err.Error())
	}

	results, err := h.service.SearchByName(c.Request().Context(), models.EntityKind(req.Type), req.Query, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}
