package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/cache"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	db := getDB(q.db, tx)
	var quiz models.Quiz

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := db.WithContext(ctx).First(&dbQuiz, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &dbQuiz, nil
	})
	if err != nil {
		return nil, err
	}

	return &quiz, nil
}

func (q *QuizPostgreSQL) GetQuestionIDs(ctx context.Context, tx *gorm.DB, quizID string) ([]string, error) {
	db := getDB(q.db, tx)
	var ids []string

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, fmt.Sprintf("questions:%s", quizID), &ids, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbIDs []string
		if err := db.WithContext(ctx).
			Model(&models.QuizQuestion{}).
			Where("quiz_id = ?", quizID).
			Order(`"order" ASC, question_id ASC`).
			Pluck("question_id", &dbIDs).Error; err != nil {
			return nil, err
		}
		if dbIDs == nil {
			dbIDs = []string{}
		}
		return dbIDs, nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// DeleteCascade deletes, in dependency order: proctoring events and answers of the quiz's attempts,
// the attempts, the quiz's question links and assignments, and the quiz itself.
func (q *QuizPostgreSQL) DeleteCascade(ctx context.Context, tx *gorm.DB, quizID string) error {
	run := func(db *gorm.DB) error {
		attemptIDs := db.Model(&models.Attempt{}).Select("id").Where("quiz_id = ?", quizID)

		if err := db.Where("attempt_id IN (?)", attemptIDs).Delete(&models.ProctoringEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete proctoring events: %w", err)
		}
		if err := db.Where("attempt_id IN (?)", attemptIDs).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		if err := db.Where("quiz_id = ?", quizID).Delete(&models.Attempt{}).Error; err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if err := db.Where("quiz_id = ?", quizID).Delete(&models.QuizQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to delete quiz questions: %w", err)
		}
		if err := db.Where("quiz_id = ?", quizID).Delete(&models.QuizAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		result := db.Where("id = ?", quizID).Delete(&models.Quiz{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete quiz: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
		return nil
	}

	var err error
	if tx != nil {
		err = run(tx.WithContext(ctx))
	} else {
		err = q.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return err
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, quizID)
	return nil
}

type AssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{db: db}
}

func (a *AssignmentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, quizID, studentID string) (bool, error) {
	db := getDB(a.db, tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuizAssignment{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count > 0, err
}

