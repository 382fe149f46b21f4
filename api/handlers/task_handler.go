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

// TaskHandler starts downloads and reports their progress
type TaskHandler struct {
	orchestrator *app.Orchestrator
	registry     *app.Registry
	logger       *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(orchestrator *app.Orchestrator, registry *app.Registry, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		orchestrator: orchestrator,
		registry:     registry,
		logger:       logger,
	}
}

// DownloadRequest is a download of an already resolved track, usually a
// search result posted back by the client
type DownloadRequest struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail"`
}

// QueryRequest carries a free-text song query
type QueryRequest struct {
	Query string `json:"query"`
}

// StartedResponse is returned when a task has been started
type StartedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// ProgressResult describes the finished file
type ProgressResult struct {
	Success   bool   `json:"success"`
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
}

// ProgressResponse is the polling view of a task
type ProgressResponse struct {
	Status  domain.TaskStatus `json:"status"`
	Percent int               `json:"percent"`
	Result  *ProgressResult   `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// StartDownload handles POST /api/v1/downloads
func (h *TaskHandler) StartDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No URL provided"})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Unknown"
	}

	id := h.orchestrator.StartDownload(domain.ResolvedTrack{
		ID:              url,
		Title:           title,
		Artist:          req.Artist,
		Album:           req.Album,
		SourceURL:       url,
		DurationSeconds: req.Duration,
		ThumbnailURL:    req.Thumbnail,
		ProviderName:    "direct",
	})

	h.logger.Info("Download started", zap.String("id", id), zap.String("url", url))
	c.JSON(http.StatusOK, StartedResponse{TaskID: id, Status: "started"})
}

// StartSearchDownload handles POST /api/v1/search-download
func (h *TaskHandler) StartSearchDownload(c *gin.Context) {
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

	id := h.orchestrator.StartSearchDownload(query)

	h.logger.Info("Search download started", zap.String("id", id), zap.String("query", query))
	c.JSON(http.StatusOK, StartedResponse{TaskID: id, Status: "started"})
}

// GetProgress handles GET /api/v1/progress/:id
func (h *TaskHandler) GetProgress(c *gin.Context) {
	task, err := h.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown task"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, progressOf(task))
}

// ListTasks handles GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

func progressOf(task domain.DownloadTask) ProgressResponse {
	resp := ProgressResponse{
		Status:  task.Status,
		Percent: task.Percent,
	}

	switch task.Status {
	case domain.StatusDone:
		if task.Result != nil {
			resp.Result = &ProgressResult{
				Success:   true,
				Filename:  task.Result.Filename(),
				Title:     task.Title,
				Size:      task.Result.SizeBytes,
				SizeHuman: domain.HumanSize(task.Result.SizeBytes),
			}
		}
	case domain.StatusError:
		resp.Error = task.ErrorMessage
		if resp.Error == "" {
			resp.Error = "Download failed"
		}
	}
	return resp
}
