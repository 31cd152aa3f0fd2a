package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"encore/internal/games"
	"encore/internal/jobs"
	"encore/internal/sources"
)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Uploaded files are score exports; anything bigger than this is not one.
const maxUploadBytes = 16 << 20

// requestUserID resolves the importing user. Account management lives
// elsewhere; the importer trusts the X-User-ID header behind the api
// token and defaults to user 1 for single-user deployments.
func requestUserID(c *gin.Context) (int, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return 1, true
	}
	userID, err := strconv.Atoi(raw)
	if err != nil || userID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid X-User-ID header"})
		return 0, false
	}
	return userID, true
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"serverTime":  nowMillis(),
		"importTypes": s.registry.ImportTypes(),
	})
}

// handleImportFile accepts a multipart upload: the file plus an importType
// field, and a playtype field for formats whose payload does not carry one.
func (s *Server) handleImportFile(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	importType := c.PostForm("importType")
	if importType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing importType field"})
		return
	}

	fileHeader, err := c.FormFile("scoreData")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing scoreData file"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer file.Close()
	body, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	s.submit(c, userID, importType, sources.Input{
		Body:     body,
		Playtype: games.Playtype(c.PostForm("playtype")),
		UserID:   userID,
	})
}

// handleImportDirect accepts a batch-manual envelope as the request body.
func (s *Server) handleImportDirect(c *gin.Context) {
	s.submitBody(c, "ir/direct-manual")
}

func (s *Server) handleBarbatos(c *gin.Context) {
	s.submitBody(c, "ir/barbatos")
}

func (s *Server) handleBeatoraja(c *gin.Context) {
	s.submitBody(c, "ir/beatoraja")
}

func (s *Server) submitBody(c *gin.Context, importType string) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}
	s.submit(c, userID, importType, sources.Input{Body: body, UserID: userID})
}

func (s *Server) submit(c *gin.Context, userID int, importType string, input sources.Input) {
	if _, err := s.registry.Get(importType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	importID, err := s.runner.Submit(userID, importType, input)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"importID": importID,
		"pollURL":  "/api/v1/imports/" + importID + "/poll-status",
	})
}

func (s *Server) handleGetImport(c *gin.Context) {
	doc, err := s.store.FindImport(c.Request.Context(), c.Param("importID"))
	if err != nil {
		s.logger.Error("import lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such import"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handlePollStatus(c *gin.Context) {
	result, err := s.runner.Poll(c.Request.Context(), c.Param("importID"))
	if err != nil {
		s.logger.Error("poll failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if result.Status == jobs.StatusNotFound {
		c.JSON(http.StatusNotFound, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
