package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

// ===== ATTEMPT HELPERS =====

func (s *attemptService) checkEligibility(ctx context.Context, actor Actor, quiz *models.Quiz) error {
	if now := s.now(); !quiz.IsOpen(now) {
		reason := "Quiz has ended"
		if now.Before(quiz.StartTime) {
			reason = "Quiz has not started yet"
		}
		return &EligibilityError{QuizID: quiz.ID, Reason: reason}
	}

	assigned, err := s.repo.Assignment().Exists(ctx, s.db, quiz.ID, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to check quiz assignment: %w", err)
	}
	if !assigned {
		return &EligibilityError{QuizID: quiz.ID, Reason: "Quiz not assigned to this student"}
	}

	return nil
}

func (s *attemptService) getQuiz(ctx context.Context, tx *gorm.DB, quizID string) (*models.Quiz, error) {
	return getQuiz(ctx, s.repo, tx, quizID)
}

func (s *attemptService) getAttemptWithQuiz(ctx context.Context, attemptID string) (*models.Attempt, *models.Quiz, error) {
	return getAttemptWithQuiz(ctx, s.repo, s.db, attemptID)
}

func (s *attemptService) loadSnapshot(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) ([]*models.Question, error) {
	return loadSnapshot(ctx, s.repo, tx, attempt)
}

// presentQuestions builds the client copy of the snapshot. Option order is derived from
// (attempt, question) so every fetch of the same attempt sees the same order.
func (s *attemptService) presentQuestions(ctx context.Context, tx *gorm.DB, quiz *models.Quiz, attempt *models.Attempt, withKey bool) ([]models.QuestionView, error) {
	snapshot, err := s.loadSnapshot(ctx, tx, attempt)
	if err != nil {
		return nil, err
	}

	// A quiz dropped from the catalog leaves the snapshot readable, unshuffled
	shuffle := quiz != nil && quiz.ShuffleOptions

	views := make([]models.QuestionView, 0, len(snapshot))
	for _, question := range snapshot {
		presented := *question
		if shuffle && question.Type.IsChoice() {
			presented.Options = shuffleOptions(question.Options, attempt.ID, question.ID)
		}
		views = append(views, models.NewQuestionView(&presented, withKey))
	}
	return views, nil
}

// ===== SHARED LOOKUPS =====

func getQuiz(ctx context.Context, repo repositories.Repository, tx *gorm.DB, quizID string) (*models.Quiz, error) {
	quiz, err := repo.Quiz().GetByID(ctx, tx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func getAttempt(ctx context.Context, repo repositories.Repository, tx *gorm.DB, attemptID string) (*models.Attempt, error) {
	attempt, err := repo.Attempt().GetByID(ctx, tx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

// getAttemptWithQuiz loads the attempt and its quiz. A missing quiz yields a nil quiz, not an error.
func getAttemptWithQuiz(ctx context.Context, repo repositories.Repository, tx *gorm.DB, attemptID string) (*models.Attempt, *models.Quiz, error) {
	attempt, err := getAttempt(ctx, repo, tx, attemptID)
	if err != nil {
		return nil, nil, err
	}

	quiz, err := getQuiz(ctx, repo, tx, attempt.QuizID)
	if err != nil && !errors.Is(err, ErrQuizNotFound) {
		return nil, nil, err
	}
	return attempt, quiz, nil
}

// loadSnapshot resolves the assigned question ids in snapshot order
func loadSnapshot(ctx context.Context, repo repositories.Repository, tx *gorm.DB, attempt *models.Attempt) ([]*models.Question, error) {
	questions, err := repo.Question().GetByIDs(ctx, tx, attempt.AssignedQuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load question snapshot: %w", err)
	}
	return questions, nil
}

// ===== SCORING HELPERS =====

// scorePercentage rounds to two decimals and is 0 when there are no marks
func scorePercentage(score, totalMarks float64) float64 {
	if totalMarks <= 0 {
		return 0
	}
	return round2(score / totalMarks * 100)
}

func isPassed(finalScore *float64, passingScore float64) bool {
	if finalScore == nil {
		return false
	}
	return *finalScore >= passingScore
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// publishEvent publishes after commit; a failed publish is logged, never returned
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event *events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}
