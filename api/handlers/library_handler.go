package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
)

// LibraryHandler lists, streams and deletes downloaded files
type LibraryHandler struct {
	library *app.Library
	logger  *zap.Logger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(library *app.Library, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{
		library: library,
		logger:  logger,
	}
}

// DeleteRequest names one library file
type DeleteRequest struct {
	Filename string `json:"filename"`
}

var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".opus": "audio/ogg; codecs=opus",
	".ogg":  "audio/ogg",
}

// List handles GET /api/v1/library
func (h *LibraryHandler) List(c *gin.Context) {
	entries, err := h.library.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list library", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// Stream handles GET /api/v1/music/:filename
func (h *LibraryHandler) Stream(c *gin.Context) {
	path, err := h.library.Path(c.Param("filename"))
	if err != nil {
		h.respondFileError(c, err)
		return
	}

	if ct, ok := audioContentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		c.Header("Content-Type", ct)
	}
	c.File(path)
}

// Delete handles POST /api/v1/delete
func (h *LibraryHandler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.library.Remove(req.Filename); err != nil {
		h.respondFileError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *LibraryHandler) respondFileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArtifactName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
	case errors.Is(err, domain.ErrArtifactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	default:
		h.logger.Error("Library operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
