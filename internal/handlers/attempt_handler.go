package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	answerService  services.AnswerService
	resultsService services.ResultsService
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	answerService services.AnswerService,
	resultsService services.ResultsService,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		answerService:  answerService,
		resultsService: resultsService,
	}
}

// StartAttempt creates an attempt and returns the frozen question set
// @Summary Start quiz attempt
// @Tags attempts
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/start/{quiz_id} [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID := c.Param("quiz_id")
	h.LogRequest(c, "Starting attempt", "quiz_id", quizID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.Start(c.Request.Context(), actor, quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":         "Attempt started",
		"attemptId":       resp.AttemptID,
		"quiz":            resp.Quiz,
		"questions":       resp.Questions,
		"durationSeconds": resp.DurationSeconds,
	})
}

// SaveAnswer autosaves one answer
// @Summary Save answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param request body services.SaveAnswerRequest true "Answer"
// @Router /attempts/{id}/answer [patch]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Saving answer", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	var req services.SaveAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	answer, err := h.answerService.Save(c.Request.Context(), actor, attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Answer saved",
		"answer":  answer,
	})
}

// SubmitAttempt grades and closes the attempt
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.SubmitAttemptResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.Submit(c.Request.Context(), actor, attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Attempt submitted",
		"attempt":    resp.Attempt,
		"finalScore": resp.FinalScore,
	})
}

// GetAttempt
// @Summary Get attempt
// @Tags attempts
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Getting attempt", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), actor, attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

// GetAttemptQuestions re-fetches the frozen question set, e.g. after a page reload
// @Summary Get attempt questions
// @Tags attempts
// @Router /attempts/{id}/questions [get]
func (h *AttemptHandler) GetAttemptQuestions(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Getting attempt questions", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.GetQuestions(c.Request.Context(), actor, attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetResults
// @Summary Get attempt results
// @Tags attempts
// @Success 200 {object} services.Results
// @Failure 400 {object} ErrorResponse
// @Router /attempts/{id}/results [get]
func (h *AttemptHandler) GetResults(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Getting results", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	results, err := h.resultsService.GetResults(c.Request.Context(), actor, attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ExportResults
// @Summary Export attempt results as XLSX
// @Tags attempts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /attempts/{id}/results/export [get]
func (h *AttemptHandler) ExportResults(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Exporting results", "attempt_id", attemptID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	data, err := h.resultsService.ExportResults(c.Request.Context(), actor, attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attempt_%s_results.xlsx"`, attemptID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetHistory lists a user's submitted attempts
// @Summary Get attempt history
// @Tags attempts
// @Param user_id path string true "User ID"
// @Router /attempts/user/{user_id}/history [get]
func (h *AttemptHandler) GetHistory(c *gin.Context) {
	userID := c.Param("user_id")
	h.LogRequest(c, "Getting history", "user_id", userID)

	actor, ok := h.actorFromContext(c)
	if !ok {
		return
	}

	history, err := h.attemptService.History(c.Request.Context(), actor, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}
