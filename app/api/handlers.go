package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/feed"
	"github.com/lysyi3m/paleo-digest/app/tasks"
)

// NewHandler builds the HTTP handlers. scheduler and bot may be nil.
func NewHandler(items database.ArticleStore, recipients database.RecipientRegistry,
	runs database.RunRecorder, scheduler tasks.TaskSchedulerInterface, bot *Bot) *Handler {
	return &Handler{
		items:      items,
		recipients: recipients,
		runs:       runs,
		generator:  feed.NewGenerator(),
		scheduler:  scheduler,
		bot:        bot,
	}
}

func (h *Handler) GetDigest(c *gin.Context) {
	items, err := h.items.GetRecentTranslated(c.Request.Context(), DigestItemLimit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_translated", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.items.GetStats(c.Request.Context()); err == nil {
		health["items"] = stats.Total
	} else {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.items.GetStats(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sources, err := h.items.GetSourceStats(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_source_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"items":   stats,
		"sources": sources,
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = n
	}

	runs, err := h.runs.GetRecentRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		result = append(result, runResponse(run))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  result,
		"total": len(result),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not running"})
		return
	}

	if err := h.scheduler.Trigger(); err != nil {
		slog.Warn("Failed to trigger pipeline run", "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Pipeline run queued"})
}

func (h *Handler) APIListRecipients(c *gin.Context) {
	recipients, err := h.recipients.GetAll(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_recipients", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(recipients))
	for _, r := range recipients {
		result = append(result, recipientResponse(r))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"recipients": result,
		"total":      len(result),
	})
}

func (h *Handler) APIAddRecipient(c *gin.Context) {
	var req recipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	id, err := h.recipients.Add(ctx, req.ExternalID, req.DisplayName, req.IsAdmin)
	if errors.Is(err, database.ErrDuplicateRecipient) {
		c.JSON(http.StatusConflict, gin.H{"error": "Recipient already registered"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "add_recipient", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	h.respondRecipient(c, id, http.StatusCreated)
}

func (h *Handler) APIActivateRecipient(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) APIDeactivateRecipient(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, ok := recipientID(c)
	if !ok {
		return
	}

	if err := h.recipients.SetActive(c.Request.Context(), id, active); err != nil {
		h.recipientError(c, "set_active", err)
		return
	}

	h.respondRecipient(c, id, http.StatusOK)
}

func (h *Handler) APISetKeywords(c *gin.Context) {
	id, ok := recipientID(c)
	if !ok {
		return
	}

	var req keywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if err := h.recipients.SetKeywordFilter(c.Request.Context(), id, req.Keywords); err != nil {
		h.recipientError(c, "set_keywords", err)
		return
	}

	h.respondRecipient(c, id, http.StatusOK)
}

func (h *Handler) APIRemoveRecipient(c *gin.Context) {
	id, ok := recipientID(c)
	if !ok {
		return
	}

	if err := h.recipients.Remove(c.Request.Context(), id); err != nil {
		h.recipientError(c, "remove_recipient", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// TelegramWebhook always answers 200 once the secret checks out, so that
// Telegram does not redeliver updates the bot failed to handle.
func (h *Handler) TelegramWebhook(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != secret {
			c.Status(http.StatusUnauthorized)
			return
		}

		var update Update
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
			return
		}

		if err := h.bot.HandleUpdate(c.Request.Context(), update); err != nil {
			slog.Error("Failed to handle bot update", "update_id", update.UpdateID, "error", err)
		}

		c.Status(http.StatusOK)
	}
}

func (h *Handler) respondRecipient(c *gin.Context, id int64, status int) {
	recipient, err := h.recipients.GetByID(c.Request.Context(), id)
	if err != nil || recipient == nil {
		h.recipientError(c, "get_recipient", cmpErr(err, database.ErrRecipientNotFound))
		return
	}
	c.JSON(status, recipientResponse(*recipient))
}

func (h *Handler) recipientError(c *gin.Context, operation string, err error) {
	if errors.Is(err, database.ErrRecipientNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
		return
	}
	slog.Error("Database error", "operation", operation, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}

func recipientID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient id"})
		return 0, false
	}
	return id, true
}

func cmpErr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

func recipientResponse(r database.Recipient) map[string]interface{} {
	return map[string]interface{}{
		"id":           r.ID,
		"external_id":  r.ExternalID,
		"display_name": r.DisplayName,
		"is_active":    r.IsActive,
		"is_admin":     r.IsAdmin,
		"keywords":     r.KeywordFilter,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
	}
}

func runResponse(run database.PipelineRun) map[string]interface{} {
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	return map[string]interface{}{
		"id":          run.ID,
		"run_key":     run.RunKey,
		"status":      run.Status,
		"started_at":  run.StartedAt,
		"finished_at": run.FinishedAt,
		"counters":    run.Counters,
		"errors":      errs,
	}
}
