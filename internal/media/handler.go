package media

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"medialib/internal/listing"
	"medialib/internal/logging"
	"medialib/internal/metrics"
)

var log = logging.New("media")

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes mounts read routes on rg and write routes on authed, which
// is expected to carry the auth middleware.
func (h *Handler) RegisterRoutes(rg, authed *gin.RouterGroup) {
	rg.GET("/media", h.list)        // GET /api/media
	rg.GET("/media/:id", h.getByID) // GET /api/media/:id

	authed.POST("/media", h.create)
	authed.PUT("/media/:id", h.update)
	authed.DELETE("/media/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	res, err := h.Repo.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		log.Error("list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	metrics.ObserveSearch("media", res.Applied)

	c.JSON(http.StatusOK, gin.H{
		"media":       res.Items,
		"total":       res.Total,
		"page":        res.Page.Number,
		"page_size":   res.Page.Size,
		"total_pages": listing.TotalPages(res.Total, res.Page.Size),
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) create(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	m, err := h.Repo.Create(c.Request.Context(), in)
	if err != nil {
		log.Error("create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}
	m, err := h.Repo.Update(c.Request.Context(), id, in)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		log.Error("update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := h.Repo.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func bindInput(c *gin.Context) (Input, bool) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return in, false
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))

	if in.Title == "" || len(in.Title) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must be 1-255 chars"})
		return in, false
	}
	if in.ReleaseYear != nil && (*in.ReleaseYear < 1800 || *in.ReleaseYear > 3000) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "release_year out of range"})
		return in, false
	}
	return in, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
