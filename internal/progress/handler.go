package progress

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medialib/internal/auth"
	"medialib/internal/listing"
	"medialib/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes expects rg to carry the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library/:media_id/progress", h.list)
	rg.POST("/library/:media_id/progress", h.add)
}

type addReq struct {
	Progress int    `json:"progress"`
	Note     string `json:"note"`
}

// add records a note against the history without touching the entry.
func (h *Handler) add(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	mediaID, ok := parseMediaID(c)
	if !ok {
		return
	}

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Progress < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress must be >= 0"})
		return
	}

	var exists int
	err := h.Repo.DB.QueryRowContext(c.Request.Context(),
		`SELECT COUNT(*) FROM user_media WHERE user_id = ? AND media_id = ?`, claims.UserID, mediaID).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	if exists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not in library"})
		return
	}

	entry := models.ProgressHistory{
		UserID:   claims.UserID,
		MediaID:  mediaID,
		Progress: req.Progress,
		Note:     strings.TrimSpace(req.Note),
		At:       time.Now().UTC(),
	}
	if err := h.Repo.Add(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	mediaID, ok := parseMediaID(c)
	if !ok {
		return
	}

	page := listing.ParsePage(c.Request.URL.Query())
	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, mediaID, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history":     items,
		"total":       total,
		"page":        page.Number,
		"page_size":   page.Size,
		"total_pages": listing.TotalPages(total, page.Size),
	})
}

func parseMediaID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("media_id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media_id"})
		return 0, false
	}
	return id, true
}
