package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
)

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService, logger utils.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
	}
}

// GetQuizAnalytics
// @Summary Per-question performance of a quiz
// @Tags analytics
// @Param quiz_id path string true "Quiz ID"
// @Success 200 {object} services.QuizAnalytics
// @Router /quizzes/{quiz_id}/analytics [get]
func (h *AnalyticsHandler) GetQuizAnalytics(c *gin.Context) {
	quizID := c.Param("quiz_id")
	h.LogRequest(c, "Getting quiz analytics", "quiz_id", quizID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	analytics, err := h.analyticsService.GetQuizAnalytics(c.Request.Context(), actor, quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// ExportQuizAnalytics
// @Summary Export quiz analytics as XLSX
// @Tags analytics
// @Router /quizzes/{quiz_id}/analytics/export [get]
func (h *AnalyticsHandler) ExportQuizAnalytics(c *gin.Context) {
	quizID := c.Param("quiz_id")
	h.LogRequest(c, "Exporting quiz analytics", "quiz_id", quizID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	data, err := h.analyticsService.ExportAnalytics(c.Request.Context(), actor, quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz_%s_analytics.xlsx"`, quizID))
	c.Data(http.StatusOK, xlsxContentType, data)
}
