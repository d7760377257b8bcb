package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatforge/internal/auth"
	"chatforge/internal/ingest"
	"chatforge/internal/store"
)

// ========== File Processing ==========

// handleProcessFile runs the ingestion pipeline synchronously. Extraction
// failures come back as success:false with the partial record's id; only a
// malformed or oversize request is an HTTP-level error.
func (s *Server) handleProcessFile(c *gin.Context) {
	var req ingest.Request
	if err := c.ShouldBindJSON(&req); err != nil || req.FileURL == "" || req.FileName == "" {
		badRequest(c, "fileUrl and fileName are required")
		return
	}

	res, err := s.files.Process(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		if errors.Is(err, ingest.ErrTooLarge) {
			badRequest(c, "File too large (max 10MB)")
			return
		}
		serverError(c, err)
		return
	}

	if res.Status == store.StatusFailed {
		c.JSON(http.StatusOK, gin.H{
			"success":          false,
			"fileId":           res.FileID,
			"processingStatus": res.Status,
			"error":            res.Err.Error(),
		})
		return
	}

	body := gin.H{
		"success":          true,
		"fileId":           res.FileID,
		"processingStatus": res.Status,
		"extractedText":    res.ExtractedText,
	}
	if res.CDNURL != "" {
		body["cloudinaryUrl"] = res.CDNURL
	}
	if res.Metadata != nil {
		body["metadata"] = res.Metadata.Fields()
	}
	c.JSON(http.StatusOK, body)
}
