package progress

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialib/internal/auth"
	"medialib/internal/dbtest"
)

func TestHistoryEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	dbtest.User(t, db, "u1")
	id := dbtest.Media(t, db, "Monster", "tv", "completed", 2004)
	dbtest.Entry(t, db, "u1", id, "watching", 0)
	other := dbtest.Media(t, db, "Pluto", "tv", "completed", 2023)

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u1"})
		c.Next()
	})
	NewHandler(NewRepo(db)).RegisterRoutes(api)

	post := func(path string, body any) int {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, post("/api/library/1/progress", gin.H{"progress": 4, "note": " ep 4 "}))
	assert.Equal(t, http.StatusCreated, post("/api/library/1/progress", gin.H{"progress": 6}))
	assert.Equal(t, http.StatusBadRequest, post("/api/library/1/progress", gin.H{"progress": -1}))
	assert.Equal(t, http.StatusBadRequest, post("/api/library/abc/progress", gin.H{}))
	assert.Equal(t, http.StatusNotFound, post("/api/library/2/progress", gin.H{"progress": 1}))
	require.Equal(t, int64(1), id)
	require.Equal(t, int64(2), other)

	req := httptest.NewRequest(http.MethodGet, "/api/library/1/progress?page_size=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		History []struct {
			Progress int    `json:"progress"`
			Note     string `json:"note"`
		} `json:"history"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 2, body.TotalPages)
	require.Len(t, body.History, 1)
	assert.Equal(t, 6, body.History[0].Progress)
}
