package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authdelivery "nigest-backend/internal/auth/delivery"
	newsletterdto "nigest-backend/internal/newsletter/dto"
	"nigest-backend/internal/newsletter/usecase"
)

const defaultSearchLimit = 5

type NewsletterHandler struct {
	newsletterUsecase usecase.NewsletterUsecase
}

func NewNewsletterHandler(newsletterUsecase usecase.NewsletterUsecase) *NewsletterHandler {
	return &NewsletterHandler{
		newsletterUsecase: newsletterUsecase,
	}
}

// GET /api/newsletters
func (h *NewsletterHandler) ListNewsletters(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	newsletters, err := h.newsletterUsecase.ListNewsletters(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newsletterdto.NewslettersResponse{
		Newsletters: newsletters,
		Total:       len(newsletters),
	})
}

// POST /api/newsletters/scan
func (h *NewsletterHandler) ScanNewsletters(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	newsletters, err := h.newsletterUsecase.ScanNewsletters(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(scanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newsletterdto.ScanResponse{
		Found:       len(newsletters),
		Newsletters: newsletters,
	})
}

// POST /api/newsletters/watch
func (h *NewsletterHandler) WatchMailbox(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := h.newsletterUsecase.WatchMailbox(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, usecase.ErrNoMailboxAccess) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mailbox watch registered"})
}

// POST /api/newsletters/unwatch
func (h *NewsletterHandler) UnwatchMailbox(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := h.newsletterUsecase.UnwatchMailbox(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, usecase.ErrNoMailboxAccess) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mailbox watch stopped"})
}

// GET /api/summaries
func (h *NewsletterHandler) ListSummaries(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	summaries, err := h.newsletterUsecase.ListSummaries(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newsletterdto.SummariesResponse{
		Summaries: summaries,
		Total:     len(summaries),
	})
}

// POST /api/summaries/generate
func (h *NewsletterHandler) GenerateSummary(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	summary, err := h.newsletterUsecase.GenerateSummary(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, usecase.ErrNothingToSummarize) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(scanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// GET /api/summaries/search?q=...&limit=...
func (h *NewsletterHandler) SearchSummaries(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	limit := defaultSearchLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	summaries, err := h.newsletterUsecase.SearchSummaries(c.Request.Context(), user.ID, query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newsletterdto.SummariesResponse{
		Summaries: summaries,
		Total:     len(summaries),
	})
}

// PATCH /api/summaries/:id/read
func (h *NewsletterHandler) MarkSummaryRead(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := h.newsletterUsecase.MarkSummaryRead(user.ID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "summary not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "summary marked as read"})
}

func scanErrorStatus(err error) int {
	switch {
	case errors.Is(err, usecase.ErrActionInProgress):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrNoMailboxAccess):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
