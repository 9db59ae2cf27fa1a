package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern and only logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateQuizCache drops the cached quiz, its question order and its analytics
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID string) {
	SafeDelete(ctx, cm.Quiz,
		fmt.Sprintf("id:%s", quizID),
		fmt.Sprintf("questions:%s", quizID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%s:*", quizID))
}

// InvalidateQuizStats drops analytics computed for a quiz, e.g. after a submission
func InvalidateQuizStats(ctx context.Context, cm *CacheManager, quizID string) {
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%s:*", quizID))
}
