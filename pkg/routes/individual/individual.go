package individual

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/explorer"
)

type Service interface {
	LookupIndividual(ctx context.Context, id int64) (*explorer.IndividualDetail, error)
}

// Handler handles individual API endpoints
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
	g.GET("/individuals/:id", h.Get)
}

// Get returns an individual and the companies they direct or hold shares in
// @Summary Get individual
// @Tags Individuals
// @Produce json
// @Param id path int true "Individual ID"
// @Success 200 {object} explorer.IndividualDetail
// @Failure 400 {object} httperror.HTTPError
// @Failure 404 {object} httperror.HTTPError
// @Router /api/v1/individuals/{id} [get]
func (h *Handler) Get(c echo.Context) error {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil || id <= 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid individual id")
	}

	detail, err := h.service.LookupIndividual(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}
