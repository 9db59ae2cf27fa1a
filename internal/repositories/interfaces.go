package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	UserID      *string    `json:"user_id"`
	QuizID      *string    `json:"quiz_id"`
	IsSubmitted *bool      `json:"is_submitted"`
	DateFrom    *time.Time `json:"date_from"`
	DateTo      *time.Time `json:"date_to"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
	SortBy      string     `json:"sort_by"`    // "start_time", "created_at", "final_score"
	SortOrder   string     `json:"sort_order"` // "asc", "desc"
}

// CounterDelta is applied to an attempt's integrity counters as an atomic increment.
type CounterDelta struct {
	Warnings       int
	SuspicionScore float64
}

// QuestionPerformance is the per-question aggregate over submitted attempts of a quiz.
type QuestionPerformance struct {
	QuestionID     string
	TotalAnswers   int64
	CorrectAnswers int64
	TotalTime      int64
}

// ===== CATALOG (READ-ONLY) =====

type QuizRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error)
	GetQuestionIDs(ctx context.Context, tx *gorm.DB, quizID string) ([]string, error)

	// DeleteCascade removes the quiz, its attempts and everything the attempts own.
	DeleteCascade(ctx context.Context, tx *gorm.DB, quizID string) error
}

type QuestionRepository interface {
	// GetByIDs returns questions with options preloaded, in the order of ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error)
}

type AssignmentRepository interface {
	Exists(ctx context.Context, tx *gorm.DB, quizID, studentID string) (bool, error)
}

// ===== ATTEMPT DOMAIN =====

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error)
	// GetForUpdate reads the attempt with a row lock; tx must be a transaction.
	GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error)
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.Attempt, int64, error)

	// MarkSubmitted flips is_submitted only while it is still false.
	// It returns ErrAlreadySubmitted if another writer got there first.
	MarkSubmitted(ctx context.Context, tx *gorm.DB, id string, endTime time.Time, finalScore, totalMarks float64) error
	IncrementCounters(ctx context.Context, tx *gorm.DB, id string, delta CounterDelta) error

	DeleteCascade(ctx context.Context, tx *gorm.DB, id string) error
}

type AnswerRepository interface {
	// Upsert keeps exactly one row per (attempt, question); the last write wins.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.Answer, error)
	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID string) (*models.Answer, error)
	UpdateGrade(ctx context.Context, tx *gorm.DB, answerID string, isCorrect *bool, score float64) error
	GetQuestionPerformance(ctx context.Context, tx *gorm.DB, quizID string) ([]QuestionPerformance, error)
}

type ProctoringEventRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *models.ProctoringEvent) error
	ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.ProctoringEvent, error)
}

// UserRepository resolves identities from the identity provider (read-only).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ===== ERRORS =====

var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound)
}
