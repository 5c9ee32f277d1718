package characters

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

var log = logging.New("characters")

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg, authed *gin.RouterGroup) {
	rg.GET("/characters", h.list)
	rg.GET("/characters/:id", h.getByID)

	authed.POST("/characters", h.create)
	authed.POST("/media/:id/characters", h.addRole)
}

func (h *Handler) list(c *gin.Context) {
	res, err := h.Repo.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		log.Error("list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	metrics.ObserveSearch("characters", res.Applied)

	c.JSON(http.StatusOK, gin.H{
		"characters":  res.Items,
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
	ch, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || len(in.Name) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-255 chars"})
		return
	}

	ch, err := h.Repo.Create(c.Request.Context(), in)
	if err != nil {
		log.Error("create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, ch)
}

type roleReq struct {
	CharacterID int64  `json:"character_id"`
	Role        string `json:"role"`
}

func (h *Handler) addRole(c *gin.Context) {
	mediaID, ok := parseID(c)
	if !ok {
		return
	}
	var req roleReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CharacterID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "character_id required"})
		return
	}

	err := h.Repo.AddRole(c.Request.Context(), mediaID, req.CharacterID, strings.ToLower(strings.TrimSpace(req.Role)))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "media or character not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add role failed"})
		return
	}

	ch, err := h.Repo.GetByID(c.Request.Context(), req.CharacterID)
	if err != nil || ch == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch character failed"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
