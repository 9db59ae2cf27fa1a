package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

const (
	studentID    = "student-1"
	otherStudent = "student-2"
	instructorID = "instructor-1"
)

var (
	student    = Actor{ID: studentID, Role: models.RoleStudent}
	instructor = Actor{ID: instructorID, Role: models.RoleInstructor}
	admin      = Actor{ID: "admin-1", Role: models.RoleAdmin}
)

// stubUsers stands in for the identity provider
type stubUsers struct {
	users map[string]*models.User
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher *events.MockEventPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, postgres.AutoMigrate(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
		DB: db,
		UserRepository: &stubUsers{users: map[string]*models.User{
			studentID: {ID: studentID, Name: "Ada Student", Role: models.RoleStudent},
		}},
	})

	return &testEnv{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator.New(),
		publisher: events.NewMockEventPublisher(logger),
	}
}

func (e *testEnv) attemptService() *attemptService {
	return NewAttemptService(e.repo, e.db, e.logger, e.validator, e.publisher, nil).(*attemptService)
}

func (e *testEnv) answerService() AnswerService {
	return NewAnswerService(e.repo, e.db, e.logger, e.validator, e.publisher)
}

func (e *testEnv) resultsService() ResultsService {
	return NewResultsService(e.repo, e.db, e.logger)
}

func (e *testEnv) proctoringService() ProctoringService {
	return NewProctoringService(e.repo, e.db, e.logger, e.validator, e.publisher, nil)
}

type quizOption func(*models.Quiz)

func withPassingScore(score float64) quizOption {
	return func(q *models.Quiz) { q.PassingScore = score }
}

// seedQuiz creates an open quiz authored by instructorID and assigned to studentID
func (e *testEnv) seedQuiz(t *testing.T, questions []*models.Question, opts ...quizOption) *models.Quiz {
	t.Helper()

	now := time.Now().UTC()
	quiz := &models.Quiz{
		ID:              uuid.New().String(),
		Title:           "Go fundamentals",
		CreatedByID:     instructorID,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		DurationSeconds: 1800,
		MaxAttempts:     1,
		PassingScore:    models.DefaultPassingScore,
	}
	for _, opt := range opts {
		opt(quiz)
	}
	require.NoError(t, e.db.Create(quiz).Error)

	for i, q := range questions {
		require.NoError(t, e.db.Create(q).Error)
		require.NoError(t, e.db.Create(&models.QuizQuestion{QuizID: quiz.ID, QuestionID: q.ID, Order: i}).Error)
	}

	require.NoError(t, e.db.Create(&models.QuizAssignment{
		ID:           uuid.New().String(),
		QuizID:       quiz.ID,
		StudentID:    studentID,
		AssignedByID: instructorID,
		AssignedAt:   now,
	}).Error)

	return quiz
}

func mcq(id string, marks float64, correct string, others ...string) *models.Question {
	q := &models.Question{
		ID:         id,
		Text:       "Question " + id,
		Type:       models.MCQ,
		Difficulty: models.DifficultyMedium,
		Marks:      marks,
	}
	q.Options = append(q.Options, models.QuestionOption{ID: id + "-c", QuestionID: id, Text: correct, IsCorrect: true, Position: 0})
	for i, text := range others {
		q.Options = append(q.Options, models.QuestionOption{
			ID:         fmt.Sprintf("%s-o%d", id, i),
			QuestionID: id,
			Text:       text,
			Position:   i + 1,
		})
	}
	return q
}

func shortAnswer(id string, marks float64) *models.Question {
	return &models.Question{
		ID:         id,
		Text:       "Explain " + id,
		Type:       models.ShortAnswer,
		Difficulty: models.DifficultyHard,
		Marks:      marks,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }
func boolPtr(b bool) *bool    { return &b }
