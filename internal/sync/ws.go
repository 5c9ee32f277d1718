package sync

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin SPA and CLI clients; tighten behind a proxy
	},
}

// WSHandler upgrades an authenticated request. The token comes from the
// Authorization header or the token query parameter.
func WSHandler(hub *Hub, tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if h := c.GetHeader("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
			token = strings.TrimSpace(h[len("Bearer "):])
		}
		userID, err := tokens.VerifyToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		// greet before registering so hub writes never race this one
		_ = ws.WriteJSON(Message{Type: MsgAuthOK, UserID: userID})

		hub.AddWS(ws, userID)
		log.Debug("ws client connected: %s", userID)

		// drain until the peer goes away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Debug("ws client disconnected: %s", userID)
	}
}
