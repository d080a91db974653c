package handlers

import (
	"net/http"

	"dataspot/internal/logger"
	"dataspot/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens in the JWT middleware; the browser origin carries no
	// extra trust here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DepositStream upgrades the connection and subscribes the caller to their
// own deposit settlement events.
func (h *Handler) DepositStream(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "user_id", uid, "error", err)
		return
	}
	ws.NewClient(uid, conn, h.Hub)
}
