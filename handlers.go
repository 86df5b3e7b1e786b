package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kwv/roomplan/plan"
)

const (
	errInvalidBody      = "invalid body: "
	errRender           = "failed to render plan"
	errVisualizeGeneric = "Ошибка генерации. Проверьте соединение."

	defaultThumbSize = 256
	maxThumbSize     = 2048
)

// Handler wires the HTTP layer to the design session
type Handler struct {
	session          *plan.Session
	designer         plan.Designer
	renderer         *plan.VectorRenderer
	log              *zap.SugaredLogger
	visualizeTimeout time.Duration
}

// NewHandler constructs the HTTP handler. A nil logger disables logging.
func NewHandler(session *plan.Session, designer plan.Designer, renderer *plan.VectorRenderer, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if renderer == nil {
		renderer = plan.NewVectorRenderer()
	}
	return &Handler{
		session:          session,
		designer:         designer,
		renderer:         renderer,
		log:              log,
		visualizeTimeout: 3 * time.Minute,
	}
}

// InitRoutes builds the gin router with all routes registered
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/health", h.health)

	router.GET("/plan.svg", h.planSVG)
	router.GET("/plan.png", h.planPNG)
	router.GET("/plan-thumb.png", h.planThumb)
	router.GET("/plan.geojson", h.planGeoJSON)

	router.GET("/ws", h.wsConnect)

	api := router.Group("/api/v1")
	{
		catalog := api.Group("/catalog")
		{
			catalog.GET("/furniture", h.catalogFurniture)
			catalog.GET("/styles", h.catalogStyles)
			catalog.GET("/room-types", h.catalogRoomTypes)
		}

		api.GET("/room", h.getRoom)
		api.PUT("/room", h.putRoom)

		api.GET("/furniture", h.getFurniture)
		api.POST("/furniture", h.addFurniture)
		api.PUT("/furniture", h.replaceFurniture)

		selection := api.Group("/selection")
		{
			selection.GET("", h.getSelection)
			selection.POST("", h.selectItem)
			selection.DELETE("/item", h.deleteSelected)
			selection.POST("/rotate", h.rotateSelected)
		}

		api.POST("/pointer", h.pointer)
		api.GET("/stats", h.stats)
		api.POST("/visualize", h.visualize)
	}

	return router
}

// requestLogger logs each request at debug level
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.log.Debugw("http_request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

// logAndJSONError logs err and writes a JSON error body
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error) {
	if err != nil {
		h.log.Warnw(logKey, "err", err, "path", c.Request.URL.Path)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// fail maps domain errors onto HTTP status codes
func (h *Handler) fail(c *gin.Context, logKey string, err error) {
	switch {
	case errors.Is(err, plan.ErrInvalidConfiguration),
		errors.Is(err, plan.ErrUnknownKind),
		errors.Is(err, plan.ErrUnknownCommand):
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), logKey, err)
	case errors.Is(err, plan.ErrNoSelection):
		h.logAndJSONError(c, http.StatusConflict, err.Error(), logKey, err)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "internal error", logKey, err)
	}
}

func (h *Handler) health(c *gin.Context) {
	snap := h.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"version":   snap.Version,
		"items":     len(snap.Furniture),
	})
}

func (h *Handler) catalogFurniture(c *gin.Context) {
	c.JSON(http.StatusOK, plan.FurnitureCatalog())
}

func (h *Handler) catalogStyles(c *gin.Context) {
	c.JSON(http.StatusOK, plan.Styles())
}

func (h *Handler) catalogRoomTypes(c *gin.Context) {
	c.JSON(http.StatusOK, plan.RoomTypes())
}

func (h *Handler) getRoom(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Config())
}

func (h *Handler) putRoom(c *gin.Context) {
	var cfg plan.RoomConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBody+err.Error(), "put_room_bind", err)
		return
	}
	if err := h.session.SetConfig(cfg); err != nil {
		h.fail(c, "put_room", err)
		return
	}
	c.JSON(http.StatusOK, h.session.Config())
}

func (h *Handler) getFurniture(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Furniture())
}

type addFurnitureRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (h *Handler) addFurniture(c *gin.Context) {
	var req addFurnitureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBody+err.Error(), "add_furniture_bind", err)
		return
	}
	kind, err := plan.ParseFurnitureKind(req.Kind)
	if err != nil {
		h.fail(c, "add_furniture", err)
		return
	}
	item, err := h.session.AddFurniture(kind)
	if err != nil {
		h.fail(c, "add_furniture", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) replaceFurniture(c *gin.Context) {
	var items []plan.FurnitureItem
	if err := c.ShouldBindJSON(&items); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBody+err.Error(), "replace_furniture_bind", err)
		return
	}
	cmd := plan.Command{Action: plan.ActionReplace, Furniture: items}
	if err := cmd.Apply(h.session); err != nil {
		h.fail(c, "replace_furniture", err)
		return
	}
	c.JSON(http.StatusOK, h.session.Furniture())
}

func (h *Handler) getSelection(c *gin.Context) {
	snap := h.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"selectedId": snap.SelectedID,
		"state":      h.session.State().String(),
	})
}

type selectRequest struct {
	ID string `json:"id"`
}

func (h *Handler) selectItem(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBody+err.Error(), "select_bind", err)
		return
	}
	if err := h.session.Select(req.ID); err != nil {
		if errors.Is(err, plan.ErrNoSelection) {
			h.logAndJSONError(c, http.StatusNotFound, err.Error(), "select", err)
			return
		}
		h.fail(c, "select", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selectedId": h.session.SelectedID()})
}

func (h *Handler) deleteSelected(c *gin.Context) {
	if err := h.session.DeleteSelected(); err != nil {
		h.fail(c, "delete_selected", err)
		return
	}
	c.JSON(http.StatusOK, h.session.Furniture())
}

func (h *Handler) rotateSelected(c *gin.Context) {
	item, err := h.session.RotateSelected()
	if err != nil {
		h.fail(c, "rotate_selected", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type pointerRequest struct {
	Type string  `json:"type" binding:"required"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (h *Handler) pointer(c *gin.Context) {
	var req pointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBody+err.Error(), "pointer_bind", err)
		return
	}
	if err := plan.ApplyPointer(h.session, req.Type, plan.Point{X: req.X, Y: req.Y}); err != nil {
		h.fail(c, "pointer", err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

func (h *Handler) stats(c *gin.Context) {
	snap := h.session.Snapshot()
	collisions := plan.Collisions(snap.Furniture)
	if collisions == nil {
		collisions = []plan.Collision{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      len(snap.Furniture),
		"coverage":   plan.Coverage(snap.Config, snap.Furniture),
		"collisions": collisions,
		"state":      h.session.State().String(),
	})
}

func (h *Handler) planSVG(c *gin.Context) {
	h.renderScene(c, "image/svg+xml", func(buf *bytes.Buffer, scene plan.Scene) error {
		return h.renderer.RenderSVG(buf, scene)
	})
}

func (h *Handler) planPNG(c *gin.Context) {
	h.renderScene(c, "image/png", func(buf *bytes.Buffer, scene plan.Scene) error {
		return h.renderer.RenderPNG(buf, scene)
	})
}

func (h *Handler) planThumb(c *gin.Context) {
	size := defaultThumbSize
	if s := c.Query("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > maxThumbSize {
			h.logAndJSONError(c, http.StatusBadRequest, "size must be between 1 and "+strconv.Itoa(maxThumbSize), "thumb_size", err)
			return
		}
		size = v
	}
	h.renderScene(c, "image/png", func(buf *bytes.Buffer, scene plan.Scene) error {
		return h.renderer.RenderThumbnail(buf, scene, size)
	})
}

// renderScene renders into a buffer first so a failure can still send an error status
func (h *Handler) renderScene(c *gin.Context, contentType string, render func(*bytes.Buffer, plan.Scene) error) {
	scene, err := h.session.Render()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errRender, "render_scene", err)
		return
	}
	var buf bytes.Buffer
	if err := render(&buf, scene); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errRender, "render_encode", err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *Handler) planGeoJSON(c *gin.Context) {
	snap := h.session.Snapshot()
	data, err := plan.LayoutGeoJSON(snap.Config, snap.Furniture).MarshalJSON()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errRender, "geojson_encode", err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/geo+json", data)
}

// visualize runs the design collaborator for the current room. Every failure
// collapses into one generic message.
func (h *Handler) visualize(c *gin.Context) {
	snap := h.session.Snapshot()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.visualizeTimeout)
	defer cancel()

	result, err := plan.Visualize(ctx, h.designer, snap.Config, snap.Furniture)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errVisualizeGeneric, "visualize", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
