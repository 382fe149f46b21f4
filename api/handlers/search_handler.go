package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
)

// SearchHandler exposes query resolution
type SearchHandler struct {
	resolver *app.Resolver
	logger   *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(resolver *app.Resolver, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No query provided"})
		return
	}

	track, err := h.resolver.Resolve(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, track)
}

// Suggestions handles POST /api/v1/suggestions. Failures degrade to an
// empty list so type-ahead clients never see an error.
func (h *SearchHandler) Suggestions(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, []domain.Candidate{})
		return
	}

	candidates, err := h.resolver.SearchMulti(c.Request.Context(), strings.TrimSpace(req.Query), 0)
	if err != nil {
		h.logger.Warn("Suggestions failed", zap.String("query", req.Query), zap.Error(err))
		c.JSON(http.StatusOK, []domain.Candidate{})
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}

	c.JSON(http.StatusOK, candidates)
}
