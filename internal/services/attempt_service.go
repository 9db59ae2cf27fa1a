package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/cache"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
	"github.com/SAP-F-2025/quiz-attempt-service/pkg/tracing"
)

type attemptService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	validator    *validator.Validator
	publisher    events.EventPublisher
	cacheManager *cache.CacheManager
	now          func() time.Time
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, cacheManager *cache.CacheManager) AttemptService {
	return &attemptService{
		repo:         repo,
		db:           db,
		logger:       logger,
		validator:    validator,
		publisher:    publisher,
		cacheManager: cacheManager,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, actor Actor, quizID string) (*StartAttemptResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.Start", attribute.String("quiz_id", quizID))
	defer span.End()

	s.logger.Info("Starting quiz attempt",
		"quiz_id", quizID,
		"user_id", actor.ID)

	quiz, err := s.getQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}

	if err := s.checkEligibility(ctx, actor, quiz); err != nil {
		s.logger.Info("Attempt start rejected", "quiz_id", quizID, "user_id", actor.ID, "reason", err.Error())
		return nil, err
	}

	questionIDs, err := s.repo.Quiz().GetQuestionIDs(ctx, s.db, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}

	attemptID := uuid.New().String()
	assigned := append([]string{}, questionIDs...)
	if quiz.ShuffleQuestions {
		assigned = shuffleQuestionIDs(questionIDs, attemptID)
	}

	attempt := &models.Attempt{
		ID:                  attemptID,
		UserID:              actor.ID,
		QuizID:              quiz.ID,
		AssignedQuestionIDs: assigned,
		StartTime:           s.now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start attempt transaction: %w", err)
	}

	questions, err := s.presentQuestions(ctx, s.db, quiz, attempt, false)
	if err != nil {
		return nil, err
	}

	metrics.AttemptsStarted.Inc()
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AttemptStarted, events.AttemptStartedEvent{
		AttemptID:           attempt.ID,
		QuizID:              attempt.QuizID,
		UserID:              attempt.UserID,
		AssignedQuestionIDs: assigned,
		StartTime:           models.EpochMillis(attempt.StartTime),
	}))

	s.logger.Info("Quiz attempt started successfully",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"user_id", actor.ID,
		"question_count", len(assigned))

	return &StartAttemptResponse{
		AttemptID:       attempt.ID,
		Quiz:            models.NewQuizView(quiz, questionIDs),
		Questions:       questions,
		DurationSeconds: quiz.DurationSeconds,
	}, nil
}

func (s *attemptService) Submit(ctx context.Context, actor Actor, attemptID string) (*SubmitAttemptResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.Submit", attribute.String("attempt_id", attemptID))
	defer span.End()

	s.logger.Info("Submitting quiz attempt",
		"attempt_id", attemptID,
		"user_id", actor.ID)

	var submitted *models.Attempt
	var grade GradeResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.repo.Attempt().GetForUpdate(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if err := checkGuards(
			requireOwner(actor, attempt, "submit"),
			requireNotSubmitted(attempt),
		); err != nil {
			return err
		}

		snapshot, err := s.loadSnapshot(ctx, tx, attempt)
		if err != nil {
			return err
		}

		answers, err := s.repo.Answer().GetByAttempt(ctx, tx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}

		grade = Grade(snapshot, answers)

		latest := latestAnswers(answers)
		for questionID, g := range grade.PerAnswer {
			if err := s.repo.Answer().UpdateGrade(ctx, tx, latest[questionID].ID, g.IsCorrect, g.ScoreObtained); err != nil {
				return fmt.Errorf("failed to store grade for question %s: %w", questionID, err)
			}
		}

		endTime := s.now()
		if err := s.repo.Attempt().MarkSubmitted(ctx, tx, attempt.ID, endTime, grade.TotalScore, grade.TotalMarks); err != nil {
			if errors.Is(err, repositories.ErrAlreadySubmitted) {
				return ErrAttemptAlreadySubmitted
			}
			return err
		}

		finalScore := grade.TotalScore
		attempt.IsSubmitted = true
		attempt.EndTime = &endTime
		attempt.FinalScore = &finalScore
		attempt.TotalMarks = grade.TotalMarks
		submitted = attempt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAttemptAlreadySubmitted) {
			s.logger.Warn("Duplicate attempt submission rejected", "attempt_id", attemptID, "user_id", actor.ID)
		}
		return nil, err
	}

	metrics.AttemptsSubmitted.Inc()
	metrics.AttemptScorePercent.Observe(scorePercentage(grade.TotalScore, grade.TotalMarks))
	if s.cacheManager != nil {
		cache.InvalidateQuizStats(ctx, s.cacheManager, submitted.QuizID)
	}
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:  submitted.ID,
		QuizID:     submitted.QuizID,
		UserID:     submitted.UserID,
		FinalScore: grade.TotalScore,
		TotalMarks: grade.TotalMarks,
		EndTime:    models.EpochMillis(*submitted.EndTime),
	}))

	s.logger.Info("Quiz attempt submitted successfully",
		"attempt_id", submitted.ID,
		"final_score", grade.TotalScore,
		"total_marks", grade.TotalMarks)

	return &SubmitAttemptResponse{
		Attempt:    models.NewAttemptView(submitted),
		FinalScore: grade.TotalScore,
	}, nil
}

// ===== READ OPERATIONS =====

func (s *attemptService) Get(ctx context.Context, actor Actor, attemptID string) (*models.AttemptView, error) {
	attempt, quiz, err := s.getAttemptWithQuiz(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	if err := checkGuards(requireOwnerOrQuizCreator(actor, attempt, quiz, "read")); err != nil {
		return nil, err
	}

	view := models.NewAttemptView(attempt)
	return &view, nil
}

// GetQuestions re-fetches the presentation copy of an attempt. The order matches Start.
func (s *attemptService) GetQuestions(ctx context.Context, actor Actor, attemptID string) (*AttemptQuestionsResponse, error) {
	attempt, quiz, err := s.getAttemptWithQuiz(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	if err := checkGuards(requireOwnerOrQuizCreator(actor, attempt, quiz, "read")); err != nil {
		return nil, err
	}

	// The answer key stays hidden from the student until the attempt is submitted
	withKey := attempt.IsSubmitted || actor.ID != attempt.UserID

	questions, err := s.presentQuestions(ctx, s.db, quiz, attempt, withKey)
	if err != nil {
		return nil, err
	}

	return &AttemptQuestionsResponse{
		AttemptID: attempt.ID,
		Questions: questions,
	}, nil
}

func (s *attemptService) History(ctx context.Context, actor Actor, userID string) (*HistoryResponse, error) {
	if err := checkGuards(requireSelfOrStaff(actor, userID, "read history")); err != nil {
		return nil, err
	}

	submitted := true
	attempts, _, err := s.repo.Attempt().List(ctx, s.db, repositories.AttemptFilters{
		UserID:      &userID,
		IsSubmitted: &submitted,
		SortBy:      "start_time",
		SortOrder:   "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	items := make([]HistoryItem, 0, len(attempts))
	for _, attempt := range attempts {
		item := HistoryItem{
			AttemptID:  attempt.ID,
			QuizID:     attempt.QuizID,
			StartTime:  models.EpochMillis(attempt.StartTime),
			EndTime:    models.EpochMillisPtr(attempt.EndTime),
			Score:      attempt.FinalScore,
			TotalMarks: attempt.TotalMarks,
			Percentage: scorePercentage(valueOrZero(attempt.FinalScore), attempt.TotalMarks),
		}

		quiz, err := s.getQuiz(ctx, s.db, attempt.QuizID)
		switch {
		case err == nil:
			item.QuizTitle = quiz.Title
			item.IsPassed = isPassed(attempt.FinalScore, quiz.PassingScore)
		case errors.Is(err, ErrQuizNotFound):
			s.logger.Warn("Attempt references a missing quiz", "attempt_id", attempt.ID, "quiz_id", attempt.QuizID)
		default:
			return nil, err
		}

		items = append(items, item)
	}

	return &HistoryResponse{
		UserID:   userID,
		Attempts: items,
		Total:    len(items),
	}, nil
}
