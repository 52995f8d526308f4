package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	cleanupService *cleanup.Service
	limiter        *ratelimit.Limiter
	config         config.CleanupConfig
	logger         *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(svc *cleanup.Service, limiter *ratelimit.Limiter, cfg config.CleanupConfig, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		cleanupService: svc,
		limiter:        limiter,
		config:         cfg,
		logger:         log,
	}
}

// GetStats returns listing and deletion statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.cleanupService.GetDeleteStats(c.Request.Context(), h.config.RetentionDays)
	if err != nil {
		h.logger.Error("Failed to get delete stats", zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"listings":  stats.Listings,
		"deletions": stats,
		"cleanup": gin.H{
			"enabled":        h.config.Enabled,
			"daily_run_time": h.config.DailyRunTime,
			"retention_days": h.config.RetentionDays,
		},
	}
	if h.limiter != nil {
		resp["rate_limit"] = h.limiter.GetStats(c.ClientIP())
	}
	c.JSON(http.StatusOK, resp)
}

// RunCleanup purges delete logs older than the retention period
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays    int  `json:"retention_days"`     // Days to keep (default: config)
		MaxDeletionCount int  `json:"max_deletion_count"` // Safety limit (default: config)
		DryRun           bool `json:"dry_run"`
	}

	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := cleanup.Options{
		RetentionDays:    h.config.RetentionDays,
		MaxDeletionCount: h.config.MaxDeletionCount,
		DryRun:           req.DryRun,
	}
	if req.RetentionDays > 0 {
		opts.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		opts.MaxDeletionCount = req.MaxDeletionCount
	}

	h.logger.Info("Admin: running delete-log cleanup",
		zap.Int("retention_days", opts.RetentionDays),
		zap.Int("max_deletion_count", opts.MaxDeletionCount),
		zap.Bool("dry_run", opts.DryRun))

	result, err := h.cleanupService.PurgeDeleteLogs(c.Request.Context(), opts)
	if err != nil {
		h.logger.Error("Admin: cleanup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDeleteLogs returns recent delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	logs, err := h.cleanupService.GetRecentDeleteLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	orphaned := 0
	for i := range logs {
		if len(logs[i].Orphans()) > 0 {
			orphaned++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":         logs,
		"count":        len(logs),
		"with_orphans": orphaned,
	})
}
