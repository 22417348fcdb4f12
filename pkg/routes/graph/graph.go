package graph

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	graphpkg "github.com/michaeltoohig/unofficial-vfsc-graph/pkg/graph"
)

const defaultDepth = 1

type Service interface {
	BuildGraph(ctx context.Context) (*graphpkg.Graph, error)
	Extract(ctx context.Context, nodeID string, depth int) (*graphpkg.Graph, error)
}

// Handler handles graph API endpoints
type Handler struct {
	service Service
	logger  ectologger.Logger
}

// NewHandler creates a new graph handler
func NewHandler(service Service, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register registers the graph routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/graph", h.Full)
	g.GET("/graph/:nodeId", h.Ego)
}

// Full returns the whole materialized graph
// @Summary Full graph
// @Tags Graph
// @Produce json
// @Success 200 {object} graphpkg.Graph
// @Router /api/v1/graph [get]
func (h *Handler) Full(c echo.Context) error {
	g, err := h.service.BuildGraph(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// Ego returns the ego network of a node
// @Summary Ego network
// @Description Nodes within depth hops of the node in either edge direction, with every edge between them
// @Tags Graph
// @Produce json
// @Param nodeId path string true "Node ID (e-<id> or i-<id>)"
// @Param depth query int false "Hops (default 1, capped by GRAPH_MAX_DEPTH)"
// @Success 200 {object} graphpkg.Graph
// @Failure 400 {object} httperror.HTTPError
// @Failure 404 {object} httperror.HTTPError
// @Router /api/v1/graph/{nodeId} [get]
func (h *Handler) Ego(c echo.Context) error {
	ctx := c.Request().Context()
	nodeID := c.Param("nodeId")

	depth := defaultDepth
	if err := echo.QueryParamsBinder(c).Int("depth", &depth).BindError(); err != nil || depth < 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "depth must be a non-negative integer")
	}

	g, err := h.service.Extract(ctx, nodeID, depth)
	if errors.Is(err, graphpkg.ErrNodeNotFound) {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "node %s not found", nodeID)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}
