package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatforge/internal/auth"
)

// ========== Search ==========

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		badRequest(c, "q is required")
		return
	}
	if s.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Search is not available"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	hits, err := s.searcher.Search(auth.UserID(c), query, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": hits})
}
