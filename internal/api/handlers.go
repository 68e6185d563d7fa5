// Package api exposes the recommender's HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/recommend"
	"github.com/jonesrussell/north-cloud/recommender/internal/simindex"
)

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// FeedService serves and manages computed feeds.
type FeedService interface {
	GetFeed(ctx context.Context, userID string, page, limit int, mode domain.FeedMode) (*recommend.Feed, error)
	Invalidate(ctx context.Context, userID string) error
	RebuildIndex(ctx context.Context) (simindex.BuildStats, error)
	Stats() recommend.IndexStats
}

// InteractionStore records interaction events.
type InteractionStore interface {
	Insert(ctx context.Context, ev *domain.InteractionEvent) error
}

// EngagementStore updates per-content engagement counters.
type EngagementStore interface {
	UpdateEngagement(ctx context.Context, contentID string, kind domain.EventKind) error
}

// ProfileStore reads profile status and flags profiles for recompute.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	MarkStale(ctx context.Context, userID string) error
}

// InteractionMetrics records interaction observations.
type InteractionMetrics interface {
	RecordInteraction(kind string)
}

// Handler handles HTTP requests for the recommender API
type Handler struct {
	feeds        FeedService
	interactions InteractionStore
	engagement   EngagementStore
	profiles     ProfileStore
	metrics      InteractionMetrics
	logger       Logger
}

// NewHandler creates a new API handler
func NewHandler(
	feeds FeedService,
	interactions InteractionStore,
	engagement EngagementStore,
	profiles ProfileStore,
	metrics InteractionMetrics,
	logger Logger,
) *Handler {
	return &Handler{
		feeds:        feeds,
		interactions: interactions,
		engagement:   engagement,
		profiles:     profiles,
		metrics:      metrics,
		logger:       logger,
	}
}

// GetFeed handles GET /api/v1/feed/:user_id
func (h *Handler) GetFeed(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	page := queryInt(c, "page", 0)
	limit := queryInt(c, "limit", recommend.DefaultPageLimit)
	mode := domain.ParseFeedMode(c.Query("mode"))

	feed, err := h.feeds.GetFeed(c.Request.Context(), userID, page, limit, mode)
	if err != nil {
		h.logger.Error("Failed to serve feed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute feed"})
		return
	}

	h.logger.Debug("Feed served",
		"user_id", userID,
		"tier", feed.Tier,
		"cached", feed.Cached,
		"items", len(feed.Items),
	)

	c.JSON(http.StatusOK, toFeedResponse(feed))
}

// RecordInteraction handles POST /api/v1/interactions
func (h *Handler) RecordInteraction(c *gin.Context) {
	var req InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid interaction request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := domain.EventKind(req.Kind)
	if !domain.ValidEventKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown interaction kind"})
		return
	}

	ev := &domain.InteractionEvent{
		UserID:          req.UserID,
		ContentID:       req.ContentID,
		Kind:            kind,
		DurationSeconds: req.DurationSeconds,
		CreatedAt:       time.Now(),
	}
	if err := h.interactions.Insert(c.Request.Context(), ev); err != nil {
		h.logger.Error("Failed to record interaction",
			"user_id", req.UserID, "content_id", req.ContentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record interaction"})
		return
	}

	h.metrics.RecordInteraction(string(kind))

	// Engagement counters and profile staleness ride along best-effort; the
	// event itself is the durable record.
	if err := h.engagement.UpdateEngagement(c.Request.Context(), req.ContentID, kind); err != nil {
		h.logger.Warn("Failed to update engagement counter",
			"content_id", req.ContentID, "error", err)
	}

	if kind.QualifiesForRecompute() {
		if err := h.profiles.MarkStale(c.Request.Context(), req.UserID); err != nil {
			h.logger.Warn("Failed to mark profile stale", "user_id", req.UserID, "error", err)
		}
		if err := h.feeds.Invalidate(c.Request.Context(), req.UserID); err != nil {
			h.logger.Warn("Failed to invalidate cached feeds", "user_id", req.UserID, "error", err)
		}
	}

	c.JSON(http.StatusAccepted, InteractionResponse{ID: ev.ID, Recorded: true})
}

// InvalidateCache handles DELETE /api/v1/cache/:user_id
func (h *Handler) InvalidateCache(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	if err := h.feeds.Invalidate(c.Request.Context(), userID); err != nil {
		h.logger.Error("Failed to invalidate cache", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate cache"})
		return
	}

	h.logger.Info("Cache invalidated", "user_id", userID)
	c.JSON(http.StatusOK, gin.H{"message": "Cache invalidated"})
}

// RebuildIndex handles POST /api/v1/index/rebuild
func (h *Handler) RebuildIndex(c *gin.Context) {
	h.logger.Info("Index rebuild requested")

	stats, err := h.feeds.RebuildIndex(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientSample) || errors.Is(err, domain.ErrEmptyIndex) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Index rebuild failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Index rebuild failed"})
		return
	}

	c.JSON(http.StatusOK, toBuildResponse(stats))
}

// GetIndexStats handles GET /api/v1/index/stats
func (h *Handler) GetIndexStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.feeds.Stats())
}

// GetProfileStatus handles GET /api/v1/profiles/:user_id/status
func (h *Handler) GetProfileStatus(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		h.logger.Error("Failed to get profile", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get profile"})
		return
	}

	c.JSON(http.StatusOK, toProfileStatusResponse(profile))
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
