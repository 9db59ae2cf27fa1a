package postgres

import (
	"strings"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"gorm.io/gorm"
)

// getDB returns the transaction when one is supplied, otherwise the root connection
func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// applyAttemptFilters applies the where-clauses of AttemptFilters
func applyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.IsSubmitted != nil {
		query = query.Where("is_submitted = ?", *filters.IsSubmitted)
	}
	if filters.DateFrom != nil {
		query = query.Where("start_time >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("start_time <= ?", *filters.DateTo)
	}
	return query
}

var attemptSortColumns = map[string]string{
	"start_time":  "start_time",
	"created_at":  "created_at",
	"final_score": "final_score",
}

// applyAttemptPaginationAndSort orders newest first unless told otherwise
func applyAttemptPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	column, ok := attemptSortColumns[filters.SortBy]
	if !ok {
		column = "start_time"
	}
	order := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		order = "ASC"
	}
	query = query.Order(column + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
