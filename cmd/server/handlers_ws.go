package main

import (
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatforge/internal/auth"
	"chatforge/internal/gateway"
	"chatforge/internal/realtime"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const wsReadTimeout = 60 * time.Second

// ========== Websocket Chat ==========

// handleChatSocket serves completions over a websocket. The token comes
// from the query string or the Authorization header; each inbound chat
// frame produces a sequence of token frames closed by a done frame.
func (s *Server) handleChatSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	userID, err := auth.Verify(s.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the response.
		return
	}

	conn := realtime.NewConnection(userID, ws)
	conn.Start()
	defer conn.Close(websocket.CloseNormalClosure, "session closed")

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	_ = conn.SendFrame(realtime.Frame{Type: "connected"})

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return
			}
			log.Printf("websocket read for %s: %v", userID, err)
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch frame.Type {
		case "chat":
			s.streamToSocket(c, conn, frame)
		default:
			_ = conn.SendFrame(realtime.Frame{Type: "error", Error: "unknown frame type"})
		}
	}
}

func (s *Server) streamToSocket(c *gin.Context, conn *realtime.Connection, frame *realtime.Frame) {
	if frame.Content == "" {
		_ = conn.SendFrame(realtime.Frame{Type: "error", Error: "content is required"})
		return
	}

	messages := []gateway.Message{{Role: "user", Content: frame.Content}}
	stream := s.gateway.Complete(c.Request.Context(), messages, frame.Model)
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			_ = conn.SendFrame(realtime.Frame{Type: "done", ConversationID: frame.ConversationID})
			return
		}
		if err != nil {
			_ = conn.SendFrame(realtime.Frame{Type: "error", Error: "stream interrupted"})
			return
		}
		if err := conn.SendFrame(realtime.Frame{Type: "token", Text: chunk, ConversationID: frame.ConversationID}); err != nil {
			return
		}
	}
}
