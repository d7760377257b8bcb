package main

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatforge/internal/gateway"
)

// ========== Chat Endpoint ==========

// handleChat streams the completion as chunked plain text. The gateway
// guarantees a stream, so past this point the response is always 200.
func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		Messages []gateway.Message `json:"messages"`
		Model    string            `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		badRequest(c, "messages are required")
		return
	}

	stream := s.gateway.Complete(c.Request.Context(), req.Messages, req.Model)
	defer stream.Close()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Printf("completion stream ended early: %v", err)
			return
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
