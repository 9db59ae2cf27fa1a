package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

type answerService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAnswerService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AnswerService {
	return &answerService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// Save upserts the answer for one snapshot question. The attempt row is locked so the
// submitted check and the write cannot interleave with a submit.
func (s *answerService) Save(ctx context.Context, actor Actor, attemptID string, req *SaveAnswerRequest) (*models.AnswerView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	answer := &models.Answer{
		ID:                uuid.New().String(),
		AttemptID:         attemptID,
		QuestionID:        req.QuestionID,
		UserAnswer:        req.Answer,
		TimeSpentSeconds:  intOrZero(req.TimeSpent),
		IsMarkedForReview: req.MarkedForReview != nil && *req.MarkedForReview,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.repo.Attempt().GetForUpdate(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if err := checkGuards(
			requireOwner(actor, attempt, "answer"),
			requireNotSubmitted(attempt),
			requireSnapshotQuestion(attempt, req.QuestionID),
		); err != nil {
			return err
		}

		return s.repo.Answer().Upsert(ctx, tx, answer)
	})
	if err != nil {
		return nil, err
	}

	metrics.AnswersSaved.Inc()
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AnswerSaved, events.AnswerSavedEvent{
		AttemptID:       attemptID,
		QuestionID:      answer.QuestionID,
		UserID:          actor.ID,
		MarkedForReview: answer.IsMarkedForReview,
	}))

	s.logger.Debug("Answer saved",
		"attempt_id", attemptID,
		"question_id", answer.QuestionID,
		"answer_id", answer.ID)

	view := models.NewAnswerView(answer)
	return &view, nil
}

func requireSnapshotQuestion(attempt *models.Attempt, questionID string) guard {
	return func() error {
		if !attempt.HasQuestion(questionID) {
			return ValidationErrors{*NewValidationError("questionId", "is not part of this attempt", questionID)}
		}
		return nil
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
