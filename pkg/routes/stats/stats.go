package stats

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

type Service interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

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
	g.GET("/stats", h.Get)
}

// Get returns store counters
// @Summary Store statistics
// @Tags Stats
// @Produce json
// @Success 200 {object} models.Stats
// @Router /api/v1/stats [get]
func (h *Handler) Get(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
