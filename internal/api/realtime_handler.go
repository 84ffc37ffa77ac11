package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"alcyxob/mindtrack-app/internal/realtime"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

const writeTimeout = 5 * time.Second

// RealtimeHandler upgrades authenticated requests to WebSocket connections
// and pumps frames between each connection and its owner's hub room. The
// relay never inspects frame contents; sessions do their own merging.
type RealtimeHandler struct {
	hub    *realtime.Hub
	logger *log.Logger
}

// NewRealtimeHandler creates the WebSocket handler for the given hub.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hub,
		logger: log.New(os.Stderr, "[relay] ", log.LstdFlags),
	}
}

// Serve handles GET /api/v1/realtime/ws. Must run after AuthMiddleware.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	ownerID, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get owner ID from token")
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("WARNING: websocket accept failed for owner %s: %v", ownerID, err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sub := h.hub.Join(ownerID)
	defer h.hub.Leave(sub)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, sub)

	// Read loop: every inbound frame fans out to the owner's other sessions.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		h.hub.Broadcast(ownerID, sub, data)
	}
}

func (h *RealtimeHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *realtime.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-sub.C():
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
