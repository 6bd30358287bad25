package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finspect/internal/apierr"
	"finspect/internal/core"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type (
	parentDTO struct {
		ID   core.ID `json:"id"`
		Name string  `json:"name"`
	}

	categoryDTO struct {
		ID          core.ID    `json:"id"`
		Name        string     `json:"name"`
		Description string     `json:"description"`
		ColorCode   string     `json:"colorCode"`
		Parent      *parentDTO `json:"parent"`
		IsActive    bool       `json:"isActive"`
		SortOrder   *int       `json:"sortOrder,omitempty"`
	}

	inputDTO struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		ColorCode   string   `json:"colorCode"`
		ParentID    *core.ID `json:"parentId"`
		SortOrder   *int     `json:"sortOrder"`
	}
)

func toDTO(c core.Category) categoryDTO {
	d := categoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ColorCode:   c.ColorCode,
		IsActive:    c.IsActive,
		SortOrder:   c.SortOrder,
	}
	if c.ParentID != nil {
		d.Parent = &parentDTO{ID: *c.ParentID, Name: c.ParentName}
	}
	return d
}

func toDTOs(list []core.Category) []categoryDTO {
	out := make([]categoryDTO, 0, len(list))
	for _, c := range list {
		out = append(out, toDTO(c))
	}
	return out
}

// RouterOptions configures the reference API routes.
type RouterOptions struct {
	PublicPrefix   string // e.g. /v1/public
	AdminPrefix    string // e.g. /v1/admin
	AdminToken     string // empty accepts any bearer token
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter wires the public read routes and the token guarded admin routes.
func NewRouter(svc *Service, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(svc))

	h := &handlers{svc: svc}

	public := router.Group(strings.TrimRight(opts.PublicPrefix, "/") + "/categories")
	public.GET("", h.list)
	public.GET("/top-level", h.topLevel)
	public.GET("/search", h.search)
	public.GET("/:id", h.get)
	public.GET("/:id/subcategories", h.subcategories)

	admin := router.Group(strings.TrimRight(opts.AdminPrefix, "/") + "/categories")
	admin.Use(requireBearer(opts.AdminToken))
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
	admin.PUT("/:id/activate", h.activate)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Actor-ID", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			"component", "stubapi",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", c.GetHeader("X-Request-ID"),
			"duration", time.Since(start))
	}
}

func requireBearer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(got) == "" {
			writeError(c, apierr.New(apierr.Authentication, "Full authentication is required to access this resource"))
			c.Abort()
			return
		}
		if token != "" && strings.TrimSpace(got) != token {
			writeError(c, apierr.New(apierr.Authorization, "Access is denied"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readyHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := svc.store.List(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "store not reachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

type handlers struct {
	svc *Service
}

func (h *handlers) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTOs(list))
}

func (h *handlers) topLevel(c *gin.Context) {
	list, err := h.svc.TopLevel(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTOs(list))
}

func (h *handlers) search(c *gin.Context) {
	parentOnly, _ := strconv.ParseBool(c.DefaultQuery("parentOnly", "false"))
	list, err := h.svc.Search(c.Request.Context(), c.Query("query"), parentOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTOs(list))
}

func (h *handlers) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cat, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTO(cat))
}

func (h *handlers) subcategories(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := h.svc.Subcategories(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTOs(list))
}

func (h *handlers) create(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDTO(cat))
}

func (h *handlers) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}
	cat, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTO(cat))
}

func (h *handlers) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) activate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cat, err := h.svc.Activate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTO(cat))
}

func pathID(c *gin.Context) (core.ID, bool) {
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, apierr.Validationf("%s", err.Error()))
		return 0, false
	}
	return id, true
}

func bindInput(c *gin.Context) (core.CategoryInput, bool) {
	var in inputDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, apierr.Validationf("Malformed JSON request: %v", err))
		return core.CategoryInput{}, false
	}
	return core.CategoryInput{
		Name:        in.Name,
		Description: in.Description,
		ColorCode:   in.ColorCode,
		ParentID:    in.ParentID,
		SortOrder:   in.SortOrder,
	}, true
}

// writeError renders err as the API's error document.
func writeError(c *gin.Context, err error) {
	e := apierr.As(err)
	status := e.HTTPStatus()
	if e.Status == 0 && (e.Kind == apierr.Server || e.Kind == apierr.Unknown) {
		status = http.StatusInternalServerError
	}
	body := apierr.Body{
		Message:   e.UserMessage(),
		Error:     http.StatusText(status),
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(e.Fields) > 0 {
		if raw, mErr := json.Marshal(e.Fields); mErr == nil {
			body.ValidationErrors = raw
		}
	}
	c.JSON(status, body)
}
