package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

type ProctoringEventPostgreSQL struct {
	db *gorm.DB
}

func NewProctoringEventPostgreSQL(db *gorm.DB) repositories.ProctoringEventRepository {
	return &ProctoringEventPostgreSQL{db: db}
}

func (p *ProctoringEventPostgreSQL) Create(ctx context.Context, tx *gorm.DB, event *models.ProctoringEvent) error {
	db := getDB(p.db, tx)
	return db.WithContext(ctx).Create(event).Error
}

func (p *ProctoringEventPostgreSQL) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.ProctoringEvent, error) {
	db := getDB(p.db, tx)
	var events []*models.ProctoringEvent
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("timestamp ASC, created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

