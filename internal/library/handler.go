package library

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medialib/internal/auth"
	"medialib/internal/events"
	"medialib/internal/idgen"
	"medialib/internal/listing"
	"medialib/internal/logging"
	"medialib/internal/metrics"
)

var log = logging.New("library")

const maxNotes = 2000

type Handler struct {
	Repo   *Repo
	Events events.Publisher
}

// NewHandler wires the repo and the publisher that receives library events.
// A nil publisher drops events.
func NewHandler(repo *Repo, pub events.Publisher) *Handler {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Handler{Repo: repo, Events: pub}
}

// RegisterRoutes expects rg to carry the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library", h.list)
	rg.POST("/library", h.addOrUpdate)
	rg.PUT("/library/:media_id", h.addOrUpdate)
	rg.DELETE("/library/:media_id", h.remove)
	rg.GET("/library/:media_id", h.getOne)
}

type upsertReq struct {
	MediaID  int64  `json:"media_id"` // required for POST
	Status   string `json:"status"`
	Score    *int   `json:"score"`
	Progress int    `json:"progress"`
	Notes    string `json:"notes"`
}

func (h *Handler) addOrUpdate(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	mediaID := req.MediaID
	if p := strings.TrimSpace(c.Param("media_id")); p != "" {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			mediaID = 0
		} else {
			mediaID = id
		}
	}
	if mediaID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media_id required"})
		return
	}

	status := StatusPlanned
	if strings.TrimSpace(req.Status) != "" {
		status = NormalizeStatus(req.Status)
	}
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of: " + strings.Join(Statuses, ", "),
		})
		return
	}
	if req.Score != nil && (*req.Score < 1 || *req.Score > 10) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be 1-10"})
		return
	}
	if req.Progress < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress must be >= 0"})
		return
	}
	notes := strings.TrimSpace(req.Notes)
	if len(notes) > maxNotes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notes too long"})
		return
	}

	saved, err := h.Repo.Upsert(c.Request.Context(), claims.UserID, mediaID, Input{
		Status:   status,
		Score:    req.Score,
		Progress: req.Progress,
		Notes:    notes,
	})
	if errors.Is(err, ErrMediaNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	if err != nil {
		log.Error("upsert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	ev := events.LibraryEvent{
		Type:     events.TypeLibraryUpdate,
		UserID:   claims.UserID,
		MediaID:  mediaID,
		Status:   saved.Status,
		Score:    saved.Score,
		Progress: saved.Progress,
	}
	if saved.Media != nil {
		ev.Title = saved.Media.Title
	}
	h.publish(c.Request.Context(), ev)

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	res, err := h.Repo.List(c.Request.Context(), claims.UserID, c.Request.URL.Query())
	if err != nil {
		log.Error("list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	metrics.ObserveSearch("library", res.Applied)

	c.JSON(http.StatusOK, gin.H{
		"library":     res.Items,
		"total":       res.Total,
		"page":        res.Page.Number,
		"page_size":   res.Page.Size,
		"total_pages": listing.TotalPages(res.Total, res.Page.Size),
	})
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	mediaID, ok := parseMediaID(c)
	if !ok {
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), claims.UserID, mediaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.publish(c.Request.Context(), events.LibraryEvent{
		Type:    events.TypeLibraryDelete,
		UserID:  claims.UserID,
		MediaID: mediaID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	mediaID, ok := parseMediaID(c)
	if !ok {
		return
	}

	it, err := h.Repo.Get(c.Request.Context(), claims.UserID, mediaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, it)
}

// publish never fails the request; a lost event only delays other clients.
func (h *Handler) publish(ctx context.Context, ev events.LibraryEvent) {
	ev.ID = idgen.MustNew(idgen.PrefixEvent)
	ev.At = time.Now().UTC()
	metrics.LibraryEventsTotal.WithLabelValues(ev.Type).Inc()
	if err := h.Events.Publish(ctx, ev.Topic(), ev); err != nil {
		log.Warn("publish %s for user %s: %v", ev.Type, ev.UserID, err)
	}
}

func parseMediaID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("media_id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media_id"})
		return 0, false
	}
	return id, true
}
