package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

func answer(questionID string, value *string) *models.Answer {
	return &models.Answer{ID: "a-" + questionID, QuestionID: questionID, UserAnswer: value}
}

func TestGrade(t *testing.T) {
	q1 := mcq("q1", 2, "4", "3", "5")
	q2 := mcq("q2", 3, "Paris", "Rome")
	q3 := shortAnswer("q3", 5)
	trueFalse := &models.Question{
		ID:    "q4",
		Type:  models.TrueFalse,
		Marks: 1,
		Options: []models.QuestionOption{
			{ID: "q4-t", Text: "True", IsCorrect: true},
			{ID: "q4-f", Text: "False"},
		},
	}

	tests := []struct {
		name       string
		snapshot   []*models.Question
		answers    []*models.Answer
		wantScore  float64
		wantMarks  float64
		wantGrades map[string]AnswerGrade
	}{
		{
			name:      "one correct by id, one wrong",
			snapshot:  []*models.Question{q1, q2},
			answers:   []*models.Answer{answer("q1", strPtr("q1-c")), answer("q2", strPtr("q2-o0"))},
			wantScore: 2,
			wantMarks: 5,
			wantGrades: map[string]AnswerGrade{
				"q1": {IsCorrect: boolPtr(true), ScoreObtained: 2},
				"q2": {IsCorrect: boolPtr(false), ScoreObtained: 0},
			},
		},
		{
			name:      "option text resolves like an id",
			snapshot:  []*models.Question{q2},
			answers:   []*models.Answer{answer("q2", strPtr("Paris"))},
			wantScore: 3,
			wantMarks: 3,
			wantGrades: map[string]AnswerGrade{
				"q2": {IsCorrect: boolPtr(true), ScoreObtained: 3},
			},
		},
		{
			name:      "unresolvable choice is incorrect",
			snapshot:  []*models.Question{q1},
			answers:   []*models.Answer{answer("q1", strPtr("not-an-option"))},
			wantScore: 0,
			wantMarks: 2,
			wantGrades: map[string]AnswerGrade{
				"q1": {IsCorrect: boolPtr(false), ScoreObtained: 0},
			},
		},
		{
			name:      "nil choice answer is incorrect",
			snapshot:  []*models.Question{trueFalse},
			answers:   []*models.Answer{answer("q4", nil)},
			wantScore: 0,
			wantMarks: 1,
			wantGrades: map[string]AnswerGrade{
				"q4": {IsCorrect: boolPtr(false), ScoreObtained: 0},
			},
		},
		{
			name:      "open question waits for manual grading",
			snapshot:  []*models.Question{q1, q3},
			answers:   []*models.Answer{answer("q3", strPtr("goroutines are cheap"))},
			wantScore: 0,
			wantMarks: 7,
			wantGrades: map[string]AnswerGrade{
				"q3": {IsCorrect: nil, ScoreObtained: 0},
			},
		},
		{
			name:       "answers outside the snapshot are ignored",
			snapshot:   []*models.Question{q1},
			answers:    []*models.Answer{answer("q2", strPtr("q2-c"))},
			wantScore:  0,
			wantMarks:  2,
			wantGrades: map[string]AnswerGrade{},
		},
		{
			name:       "empty snapshot",
			snapshot:   nil,
			answers:    nil,
			wantScore:  0,
			wantMarks:  0,
			wantGrades: map[string]AnswerGrade{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(tt.snapshot, tt.answers)

			assert.Equal(t, tt.wantScore, got.TotalScore)
			assert.Equal(t, tt.wantMarks, got.TotalMarks)
			assert.Equal(t, tt.wantGrades, got.PerAnswer)
			assert.LessOrEqual(t, got.TotalScore, got.TotalMarks)
		})
	}
}

func TestGrade_IsIdempotent(t *testing.T) {
	snapshot := []*models.Question{mcq("q1", 2, "a", "b"), mcq("q2", 1, "c", "d")}
	answers := []*models.Answer{answer("q1", strPtr("q1-c")), answer("q2", strPtr("d"))}

	assert.Equal(t, Grade(snapshot, answers), Grade(snapshot, answers))
}

func TestLatestAnswers(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	older := &models.Answer{ID: "old", QuestionID: "q1", UpdatedAt: base}
	newer := &models.Answer{ID: "new", QuestionID: "q1", UpdatedAt: base.Add(time.Minute)}
	other := &models.Answer{ID: "other", QuestionID: "q2", UpdatedAt: base}

	tests := []struct {
		name    string
		answers []*models.Answer
		wantQ1  string
	}{
		{name: "newer last", answers: []*models.Answer{older, newer, other}, wantQ1: "new"},
		{name: "newer first", answers: []*models.Answer{newer, older, other}, wantQ1: "new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := latestAnswers(tt.answers)
			assert.Len(t, got, 2)
			assert.Equal(t, tt.wantQ1, got["q1"].ID)
			assert.Equal(t, "other", got["q2"].ID)
		})
	}
}
