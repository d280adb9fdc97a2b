package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"osm-route-server/routing"
)

type Handler struct {
	store  *GraphStore
	logger zerolog.Logger
}

func NewHandler(store *GraphStore, logger zerolog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// NewRouter builds the public gin engine with CORS, request ids and
// request logging in front of the handler's routes.
func NewRouter(h *Handler, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(h.logger))

	config := cors.DefaultConfig()
	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", REQUEST_ID_HEADER}
	config.ExposeHeaders = []string{REQUEST_ID_HEADER}
	r.Use(cors.New(config))

	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/bounding-box", h.BoundingBox)
	r.POST("/direct-path", h.DirectPath)
	r.POST("/route", h.Route)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// BoundingBox pads the two corners into a query box and loads its graph.
func (h *Handler) BoundingBox(c *gin.Context) {
	var points []routing.LatLng
	if err := c.ShouldBindJSON(&points); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON array of coordinates"})
		return
	}
	a, b, err := routing.CornerPair(points)
	if err != nil {
		writeError(c, badRequest(err))
		return
	}

	bounds, err := routing.ComputeBoundingBox(a, b)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, _, err := h.store.Graph(c.Request.Context(), bounds)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, routing.BoundsResponse{
		Status:  "success",
		Message: "Map data loaded successfully",
		Bounds:  entry.Bounds,
		State:   entry.Summary,
	})
}

// DirectPath loads the graph of the raw corner box and searches between two
// OSM node ids.
func (h *Handler) DirectPath(c *gin.Context) {
	var req routing.DirectPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request must contain 'start-node', 'end-node' and 'bounding-box'"})
		return
	}
	a, b, err := routing.CornerPair(req.BoundingBox)
	if err != nil {
		writeError(c, badRequest(err))
		return
	}

	bounds, err := routing.BoundingBoxFromCorners(a, b)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, _, err := h.store.Graph(c.Request.Context(), bounds)
	if err != nil {
		writeError(c, err)
		return
	}

	path := entry.Graph.FindPath(*req.StartNode, *req.EndNode)
	reqLogger := loggerFrom(c, h.logger)
	reqLogger.Debug().
		Int64("start", *req.StartNode).
		Int64("end", *req.EndNode).
		Int("nodes", len(path)).
		Msg("direct path computed")
	c.JSON(http.StatusOK, routing.PrepareDirectPathResponse(entry.Graph, entry.Bounds, path))
}

// Route snaps free coordinates to the nearest graph nodes of the padded box
// and returns the shortest path between them.
func (h *Handler) Route(c *gin.Context) {
	var req routing.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request must contain 'start' and 'end' points"})
		return
	}
	start, err := req.Start.Coordinate()
	if err != nil {
		writeError(c, badRequest(err))
		return
	}
	end, err := req.End.Coordinate()
	if err != nil {
		writeError(c, badRequest(err))
		return
	}

	bounds, err := routing.ComputeBoundingBox(start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, cached, err := h.store.Graph(c.Request.Context(), bounds)
	if err != nil {
		writeError(c, err)
		return
	}

	startID, _, ok := entry.Graph.NearestNode(start)
	if !ok {
		writeError(c, routing.ErrUnknownEndpoint)
		return
	}
	endID, _, _ := entry.Graph.NearestNode(end)

	route, err := entry.Graph.ShortestPath(startID, endID)
	if err != nil {
		writeError(c, err)
		return
	}

	reqLogger := loggerFrom(c, h.logger)
	reqLogger.Debug().
		Int64("start_node", startID).
		Int64("end_node", endID).
		Float64("distance_m", route.DistanceMeters).
		Bool("cached", cached).
		Msg("route computed")
	c.JSON(http.StatusOK, routing.PrepareRouteResponse(entry.Graph, entry.Bounds, route))
}

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

// writeError maps an error to its HTTP status and JSON body.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var reqErr *requestError
	var loadErr *LoadError
	switch {
	// bad upstream data is a gateway failure even when it names a coordinate
	case errors.As(err, &loadErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &reqErr), errors.Is(err, routing.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, routing.ErrNoPath):
		c.JSON(http.StatusNotFound, gin.H{"error": "no path between the requested points", "code": "no_path"})
	case errors.Is(err, routing.ErrUnknownEndpoint):
		c.JSON(http.StatusNotFound, gin.H{"error": "no road network near the requested points", "code": "unknown_endpoint"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
