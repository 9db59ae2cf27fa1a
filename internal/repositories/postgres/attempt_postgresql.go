package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

// Attempts are never cached: counters and the submitted flag change under row locks.
type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := getDB(a.db, tx)
	return db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	db := getDB(a.db, tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	db := getDB(a.db, tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	db := getDB(a.db, tx)
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := applyAttemptFilters(db.WithContext(ctx).Model(&models.Attempt{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = applyAttemptPaginationAndSort(query, filters)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) MarkSubmitted(ctx context.Context, tx *gorm.DB, id string, endTime time.Time, finalScore, totalMarks float64) error {
	db := getDB(a.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND is_submitted = ?", id, false).
		Updates(map[string]interface{}{
			"is_submitted": true,
			"end_time":     endTime,
			"final_score":  finalScore,
			"total_marks":  totalMarks,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark attempt submitted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrAlreadySubmitted
	}
	return nil
}

func (a *AttemptPostgreSQL) IncrementCounters(ctx context.Context, tx *gorm.DB, id string, delta repositories.CounterDelta) error {
	db := getDB(a.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"warnings":        gorm.Expr("warnings + ?", delta.Warnings),
			"suspicion_score": gorm.Expr("suspicion_score + ?", delta.SuspicionScore),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update attempt counters: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (a *AttemptPostgreSQL) DeleteCascade(ctx context.Context, tx *gorm.DB, id string) error {
	run := func(db *gorm.DB) error {
		if err := db.Where("attempt_id = ?", id).Delete(&models.ProctoringEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete proctoring events: %w", err)
		}
		if err := db.Where("attempt_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		result := db.Where("id = ?", id).Delete(&models.Attempt{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete attempt: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
		return nil
	}

	if tx != nil {
		return run(tx.WithContext(ctx))
	}
	return a.db.WithContext(ctx).Transaction(run)
}

// ===== ANSWERS =====

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	db := getDB(a.db, tx)
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_answer",
				"time_spent_seconds",
				"is_marked_for_review",
				"updated_at",
			}),
		}).
		Create(answer).Error; err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}

	// On conflict the surviving row keeps its original id and created_at
	stored, err := a.GetByAttemptAndQuestion(ctx, tx, answer.AttemptID, answer.QuestionID)
	if err != nil {
		return err
	}
	*answer = *stored
	return nil
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.Answer, error) {
	db := getDB(a.db, tx)
	var answers []*models.Answer
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("updated_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID string) (*models.Answer, error) {
	db := getDB(a.db, tx)
	var answer models.Answer
	if err := db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) UpdateGrade(ctx context.Context, tx *gorm.DB, answerID string, isCorrect *bool, score float64) error {
	db := getDB(a.db, tx)
	return db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ?", answerID).
		Updates(map[string]interface{}{
			"is_correct":     isCorrect,
			"score_obtained": score,
		}).Error
}

func (a *AnswerPostgreSQL) GetQuestionPerformance(ctx context.Context, tx *gorm.DB, quizID string) ([]repositories.QuestionPerformance, error) {
	db := getDB(a.db, tx)
	var rows []repositories.QuestionPerformance
	if err := db.WithContext(ctx).
		Table("answers").
		Select(`answers.question_id AS question_id,
			COUNT(*) AS total_answers,
			SUM(CASE WHEN answers.is_correct = ? THEN 1 ELSE 0 END) AS correct_answers,
			SUM(answers.time_spent_seconds) AS total_time`, true).
		Joins("JOIN attempts ON attempts.id = answers.attempt_id").
		Where("attempts.quiz_id = ? AND attempts.is_submitted = ?", quizID, true).
		Group("answers.question_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate question performance: %w", err)
	}
	return rows, nil
}
