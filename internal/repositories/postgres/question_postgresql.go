package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/cache"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) withOptions(db *gorm.DB) *gorm.DB {
	return db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, id ASC")
	})
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	byID := make(map[string]*models.Question, len(ids))
	missing := make([]string, 0, len(ids))

	// Cache hits first
	for _, id := range ids {
		var cached models.Question
		err := q.cacheManager.Question.Get(ctx, fmt.Sprintf("id:%s", id), &cached)
		if err == nil {
			byID[id] = &cached
			continue
		}
		if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
			// A broken entry must not fail the read
			cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("id:%s", id))
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		db := getDB(q.db, tx)
		var fetched []*models.Question
		if err := q.withOptions(db.WithContext(ctx)).
			Where("id IN ?", missing).
			Find(&fetched).Error; err != nil {
			return nil, fmt.Errorf("failed to get questions: %w", err)
		}
		for _, question := range fetched {
			byID[question.ID] = question
			if err := q.cacheManager.Question.Set(ctx, fmt.Sprintf("id:%s", question.ID), question, cache.QuestionCacheConfig.TTL); err != nil {
				cache.SafeDelete(ctx, q.cacheManager.Question, fmt.Sprintf("id:%s", question.ID))
			}
		}
	}

	// Keep the caller's order
	questions := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		if question, ok := byID[id]; ok {
			questions = append(questions, question)
		}
	}

	return questions, nil
}
