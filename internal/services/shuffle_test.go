package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

func TestShuffleQuestionIDs(t *testing.T) {
	ids := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8"}

	first := shuffleQuestionIDs(ids, "attempt-1")
	again := shuffleQuestionIDs(ids, "attempt-1")

	assert.Equal(t, first, again, "same attempt, same order")
	assert.ElementsMatch(t, ids, first)
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8"}, ids, "input is not modified")

	// Different attempts should not all share one order
	distinct := map[string]bool{}
	for _, attemptID := range []string{"a", "b", "c", "d", "e", "f"} {
		distinct[strings.Join(shuffleQuestionIDs(ids, attemptID), ",")] = true
	}
	assert.Greater(t, len(distinct), 1)
}

func TestShuffleOptions(t *testing.T) {
	options := []models.QuestionOption{{ID: "o1"}, {ID: "o2"}, {ID: "o3"}, {ID: "o4"}}

	first := shuffleOptions(options, "attempt-1", "q1")
	assert.Equal(t, first, shuffleOptions(options, "attempt-1", "q1"))
	assert.ElementsMatch(t, options, first)
	assert.Equal(t, "o1", options[0].ID)
}

