package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
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

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedQuiz(t *testing.T, db *gorm.DB, questionIDs ...string) *models.Quiz {
	t.Helper()

	now := time.Now().UTC()
	quiz := &models.Quiz{
		ID:              uuid.New().String(),
		Title:           "Storage",
		CreatedByID:     "instructor-1",
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		DurationSeconds: 600,
	}
	require.NoError(t, db.Create(quiz).Error)

	for i, id := range questionIDs {
		var existing int64
		require.NoError(t, db.Model(&models.Question{}).Where("id = ?", id).Count(&existing).Error)
		if existing == 0 {
			require.NoError(t, db.Create(&models.Question{
				ID:    id,
				Text:  "Question " + id,
				Type:  models.MCQ,
				Marks: 1,
				Options: []models.QuestionOption{
					{ID: id + "-c", QuestionID: id, Text: "right", IsCorrect: true},
					{ID: id + "-w", QuestionID: id, Text: "wrong", Position: 1},
				},
			}).Error)
		}
		require.NoError(t, db.Create(&models.QuizQuestion{QuizID: quiz.ID, QuestionID: id, Order: i}).Error)
	}

	require.NoError(t, db.Create(&models.QuizAssignment{
		ID:           uuid.New().String(),
		QuizID:       quiz.ID,
		StudentID:    "student-1",
		AssignedByID: "instructor-1",
		AssignedAt:   now,
	}).Error)

	return quiz
}

// seedAttempt creates an attempt with one answer and one proctoring event
func seedAttempt(t *testing.T, db *gorm.DB, quizID string) *models.Attempt {
	t.Helper()

	attempt := &models.Attempt{
		ID:        uuid.New().String(),
		UserID:    "student-1",
		QuizID:    quizID,
		StartTime: time.Now().UTC(),
	}
	require.NoError(t, db.Create(attempt).Error)

	answer := "q1-c"
	require.NoError(t, db.Create(&models.Answer{
		ID:         uuid.New().String(),
		AttemptID:  attempt.ID,
		QuestionID: "q1",
		UserAnswer: &answer,
	}).Error)

	require.NoError(t, db.Create(&models.ProctoringEvent{
		ID:        uuid.New().String(),
		AttemptID: attempt.ID,
		UserID:    attempt.UserID,
		EventType: models.EventTabSwitch,
		Severity:  models.SeverityWarning,
		Timestamp: time.Now().UTC(),
	}).Error)

	return attempt
}

func count(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestQuizRepository_DeleteCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewQuizPostgreSQL(db, nil)

	doomed := seedQuiz(t, db, "q1", "q2")
	kept := seedQuiz(t, db, "q1")
	doomedAttempts := []*models.Attempt{seedAttempt(t, db, doomed.ID), seedAttempt(t, db, doomed.ID)}
	keptAttempt := seedAttempt(t, db, kept.ID)

	require.NoError(t, repo.DeleteCascade(ctx, nil, doomed.ID))

	assert.Zero(t, count(t, db, &models.Quiz{}, "id = ?", doomed.ID))
	assert.Zero(t, count(t, db, &models.QuizQuestion{}, "quiz_id = ?", doomed.ID))
	assert.Zero(t, count(t, db, &models.QuizAssignment{}, "quiz_id = ?", doomed.ID))
	assert.Zero(t, count(t, db, &models.Attempt{}, "quiz_id = ?", doomed.ID))
	for _, attempt := range doomedAttempts {
		assert.Zero(t, count(t, db, &models.Answer{}, "attempt_id = ?", attempt.ID))
		assert.Zero(t, count(t, db, &models.ProctoringEvent{}, "attempt_id = ?", attempt.ID))
	}

	// Other quizzes and the shared question catalog survive
	assert.Equal(t, int64(1), count(t, db, &models.Attempt{}, "id = ?", keptAttempt.ID))
	assert.Equal(t, int64(1), count(t, db, &models.Answer{}, "attempt_id = ?", keptAttempt.ID))
	assert.Equal(t, int64(1), count(t, db, &models.ProctoringEvent{}, "attempt_id = ?", keptAttempt.ID))
	assert.Equal(t, int64(2), count(t, db, &models.Question{}, "id IN ?", []string{"q1", "q2"}))

	err := repo.DeleteCascade(ctx, nil, doomed.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestQuizRepository_DeleteCascadeRollsBackWithTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewQuizPostgreSQL(db, nil)

	quiz := seedQuiz(t, db, "q1")
	attempt := seedAttempt(t, db, quiz.ID)

	rollback := errors.New("rollback")
	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, repo.DeleteCascade(ctx, tx, quiz.ID))
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	assert.Equal(t, int64(1), count(t, db, &models.Quiz{}, "id = ?", quiz.ID))
	assert.Equal(t, int64(1), count(t, db, &models.Answer{}, "attempt_id = ?", attempt.ID))
}

func TestAttemptRepository_DeleteCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAttemptPostgreSQL(db)

	quiz := seedQuiz(t, db, "q1")
	attempt := seedAttempt(t, db, quiz.ID)
	other := seedAttempt(t, db, quiz.ID)

	require.NoError(t, repo.DeleteCascade(ctx, nil, attempt.ID))

	assert.Zero(t, count(t, db, &models.Attempt{}, "id = ?", attempt.ID))
	assert.Zero(t, count(t, db, &models.Answer{}, "attempt_id = ?", attempt.ID))
	assert.Zero(t, count(t, db, &models.ProctoringEvent{}, "attempt_id = ?", attempt.ID))
	assert.Equal(t, int64(1), count(t, db, &models.Attempt{}, "id = ?", other.ID))
	assert.Equal(t, int64(1), count(t, db, &models.Quiz{}, "id = ?", quiz.ID))

	assert.ErrorIs(t, repo.DeleteCascade(ctx, nil, attempt.ID), repositories.ErrNotFound)
}

func TestAttemptRepository_MarkSubmittedOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAttemptPostgreSQL(db)

	quiz := seedQuiz(t, db, "q1")
	attempt := seedAttempt(t, db, quiz.ID)
	end := time.Now().UTC()

	require.NoError(t, repo.MarkSubmitted(ctx, nil, attempt.ID, end, 1, 2))
	err := repo.MarkSubmitted(ctx, nil, attempt.ID, end.Add(time.Minute), 2, 2)
	assert.ErrorIs(t, err, repositories.ErrAlreadySubmitted)

	stored, err := repo.GetByID(ctx, nil, attempt.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSubmitted)
	require.NotNil(t, stored.FinalScore)
	assert.Equal(t, 1.0, *stored.FinalScore, "the second call must not overwrite the score")
	assert.Equal(t, 2.0, stored.TotalMarks)
}

func TestAttemptRepository_IncrementCounters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAttemptPostgreSQL(db)

	quiz := seedQuiz(t, db, "q1")
	attempt := seedAttempt(t, db, quiz.ID)

	deltas := []repositories.CounterDelta{
		{Warnings: 1, SuspicionScore: 0.5},
		{Warnings: 1, SuspicionScore: 1.0},
		{SuspicionScore: 0.1},
	}
	for _, delta := range deltas {
		require.NoError(t, repo.IncrementCounters(ctx, nil, attempt.ID, delta))
	}

	stored, err := repo.GetByID(ctx, nil, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Warnings)
	assert.InDelta(t, 1.6, stored.SuspicionScore, 1e-9)

	assert.ErrorIs(t, repo.IncrementCounters(ctx, nil, "missing", deltas[0]), repositories.ErrNotFound)
}

func TestAttemptRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAttemptPostgreSQL(db)

	quiz := seedQuiz(t, db, "q1")
	first := seedAttempt(t, db, quiz.ID)
	seedAttempt(t, db, quiz.ID)
	require.NoError(t, repo.MarkSubmitted(ctx, nil, first.ID, time.Now().UTC(), 1, 1))

	submitted := true
	attempts, total, err := repo.List(ctx, nil, repositories.AttemptFilters{QuizID: &quiz.ID, IsSubmitted: &submitted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, attempts, 1)
	assert.Equal(t, first.ID, attempts[0].ID)

	attempts, total, err = repo.List(ctx, nil, repositories.AttemptFilters{QuizID: &quiz.ID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "total ignores pagination")
	assert.Len(t, attempts, 1)
}

func TestAnswerRepository_UpsertKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAnswerPostgreSQL(db)

	quiz := seedQuiz(t, db, "q1", "q2")
	attempt := seedAttempt(t, db, quiz.ID)

	first := "q2-w"
	saved := &models.Answer{ID: uuid.New().String(), AttemptID: attempt.ID, QuestionID: "q2", UserAnswer: &first, TimeSpentSeconds: 3}
	require.NoError(t, repo.Upsert(ctx, nil, saved))
	originalID := saved.ID

	second := "q2-c"
	again := &models.Answer{ID: uuid.New().String(), AttemptID: attempt.ID, QuestionID: "q2", UserAnswer: &second, TimeSpentSeconds: 8, IsMarkedForReview: true}
	require.NoError(t, repo.Upsert(ctx, nil, again))

	assert.Equal(t, originalID, again.ID, "the surviving row keeps its id")
	assert.Equal(t, "q2-c", *again.UserAnswer)
	assert.Equal(t, 8, again.TimeSpentSeconds)
	assert.True(t, again.IsMarkedForReview)
	assert.Equal(t, int64(1), count(t, db, &models.Answer{}, "attempt_id = ? AND question_id = ?", attempt.ID, "q2"))
}

func TestAnswerRepository_QuestionPerformance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	answers := NewAnswerPostgreSQL(db)
	attempts := NewAttemptPostgreSQL(db)

	quiz := seedQuiz(t, db, "q1")
	graded := seedAttempt(t, db, quiz.ID)
	alsoGraded := seedAttempt(t, db, quiz.ID)
	seedAttempt(t, db, quiz.ID) // still open, excluded

	grade := func(attemptID string, correct bool) {
		answer, err := answers.GetByAttemptAndQuestion(ctx, nil, attemptID, "q1")
		require.NoError(t, err)
		require.NoError(t, db.Model(answer).Update("time_spent_seconds", 10).Error)
		require.NoError(t, answers.UpdateGrade(ctx, nil, answer.ID, &correct, 1))
		require.NoError(t, attempts.MarkSubmitted(ctx, nil, attemptID, time.Now().UTC(), 1, 1))
	}
	grade(graded.ID, true)
	grade(alsoGraded.ID, false)

	rows, err := answers.GetQuestionPerformance(ctx, nil, quiz.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "q1", rows[0].QuestionID)
	assert.Equal(t, int64(2), rows[0].TotalAnswers)
	assert.Equal(t, int64(1), rows[0].CorrectAnswers)
	assert.Equal(t, int64(20), rows[0].TotalTime)
}

func TestQuestionRepository_GetByIDsUsesCache(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewQuestionPostgreSQL(db, client)
	seedQuiz(t, db, "q1", "q2")

	questions, err := repo.GetByIDs(ctx, nil, []string{"q2", "missing", "q1"})
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q2", questions[0].ID, "caller order is kept")
	assert.Equal(t, "q1", questions[1].ID)
	assert.Len(t, questions[1].Options, 2)

	// Served from redis once the rows are gone
	require.NoError(t, db.Where("question_id = ?", "q1").Delete(&models.QuestionOption{}).Error)
	require.NoError(t, db.Where("id = ?", "q1").Delete(&models.Question{}).Error)

	cached, err := repo.GetByIDs(ctx, nil, []string{"q1", "missing"})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	require.Len(t, cached[0].Options, 2)
	assert.True(t, cached[0].Options[0].IsCorrect)
}

func TestRepository_Ping(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, RedisClient: client, UserRepository: noUsers{}})
	require.NoError(t, repo.Ping(ctx))

	mr.Close()
	assert.Error(t, repo.Ping(ctx), "a dead cache fails the health check")
}

type noUsers struct{}

func (noUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}
