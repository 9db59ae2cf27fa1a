package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

func submittedAttempt(score, total float64, snapshot ...string) *models.Attempt {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(20 * time.Minute)
	return &models.Attempt{
		ID:                  "attempt-1",
		UserID:              studentID,
		QuizID:              "quiz-1",
		AssignedQuestionIDs: snapshot,
		StartTime:           start,
		EndTime:             &end,
		IsSubmitted:         true,
		FinalScore:          &score,
		TotalMarks:          total,
	}
}

func TestBuildResults(t *testing.T) {
	q1 := mcq("q1", 2, "4", "3")
	q1.Tags = []string{"math", "basics"}
	q1.Difficulty = models.DifficultyEasy
	q2 := mcq("q2", 3, "Paris", "Rome")
	q2.Tags = []string{"geo"}
	q3 := shortAnswer("q3", 5)

	base := time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)
	answers := []*models.Answer{
		{ID: "a1-old", QuestionID: "q1", UserAnswer: strPtr("q1-o0"), IsCorrect: boolPtr(false), UpdatedAt: base},
		{ID: "a1", QuestionID: "q1", UserAnswer: strPtr("4"), IsCorrect: boolPtr(true), ScoreObtained: 2, TimeSpentSeconds: 30, UpdatedAt: base.Add(time.Minute)},
		{ID: "a2", QuestionID: "q2", UserAnswer: strPtr("q2-o0"), IsCorrect: boolPtr(false), UpdatedAt: base},
		{ID: "a3", QuestionID: "q3", UserAnswer: strPtr("free text"), UpdatedAt: base},
		{ID: "stray", QuestionID: "not-in-snapshot", UserAnswer: strPtr("x"), UpdatedAt: base},
	}

	quiz := &models.Quiz{ID: "quiz-1", PassingScore: 2}
	results := BuildResults(submittedAttempt(2, 10, "q1", "q2", "q3"), quiz, []*models.Question{q1, q2, q3}, answers, nil, "Ada Student")

	assert.Equal(t, "Ada Student", results.StudentName)
	assert.Equal(t, 2.0, results.FinalScore)
	assert.Equal(t, 10.0, results.TotalMarks)
	assert.Equal(t, 20.0, results.Percentage)
	assert.True(t, results.IsPassed)
	assert.Nil(t, results.ProctoringEvents)

	require.Len(t, results.Answers, 3, "one answer per snapshot question")
	assert.Equal(t, []string{"q1", "q2", "q3"}, []string{results.Answers[0].QuestionID, results.Answers[1].QuestionID, results.Answers[2].QuestionID})

	// Latest answer wins and choice text is normalised to the option id
	assert.Equal(t, "q1-c", *results.Answers[0].UserAnswer)
	assert.Equal(t, 30, results.Answers[0].TimeSpent)
	assert.Equal(t, "q1-c", *results.Answers[0].CorrectAnswer)
	assert.Equal(t, "free text", *results.Answers[2].UserAnswer)
	assert.Nil(t, results.Answers[2].CorrectAnswer)

	// Tag fan-out: q1 counts in both of its buckets
	assert.Equal(t, &BreakdownBucket{Correct: 1, Total: 1}, results.TopicWiseBreakdown["math"])
	assert.Equal(t, &BreakdownBucket{Correct: 1, Total: 1}, results.TopicWiseBreakdown["basics"])
	assert.Equal(t, &BreakdownBucket{Correct: 0, Total: 1}, results.TopicWiseBreakdown["geo"])

	assert.Equal(t, &BreakdownBucket{Correct: 1, Total: 1}, results.DifficultyBreakdown["easy"])
	assert.Equal(t, &BreakdownBucket{Correct: 0, Total: 1}, results.DifficultyBreakdown["medium"])
	assert.Equal(t, &BreakdownBucket{Correct: 0, Total: 1}, results.DifficultyBreakdown["hard"])

	require.Len(t, results.Questions, 3)
	require.NotNil(t, results.Questions[0].Options[0].IsCorrect, "results expose the answer key")
	assert.True(t, *results.Questions[0].Options[0].IsCorrect)
}

func TestBuildResults_EdgeCases(t *testing.T) {
	tests := []struct {
		name           string
		attempt        *models.Attempt
		quiz           *models.Quiz
		events         []*models.ProctoringEvent
		wantPercentage float64
		wantPassed     bool
		wantSummary    *ProctoringSummary
	}{
		{
			name:           "zero total marks",
			attempt:        submittedAttempt(0, 0),
			quiz:           &models.Quiz{PassingScore: 40},
			wantPercentage: 0,
			wantPassed:     false,
		},
		{
			name:           "missing quiz uses the default passing score",
			attempt:        submittedAttempt(45, 100),
			quiz:           nil,
			wantPercentage: 45,
			wantPassed:     true,
		},
		{
			name:           "percentage is rounded to two places",
			attempt:        submittedAttempt(1, 3),
			quiz:           &models.Quiz{PassingScore: 40},
			wantPercentage: 33.33,
			wantPassed:     false,
		},
		{
			name: "proctoring summary counts by severity",
			attempt: func() *models.Attempt {
				a := submittedAttempt(5, 10)
				a.Warnings = 2
				a.SuspicionScore = 1.6
				return a
			}(),
			quiz: &models.Quiz{PassingScore: 5},
			events: []*models.ProctoringEvent{
				{ID: "e1", Severity: models.SeverityInfo},
				{ID: "e2", Severity: models.SeverityWarning},
				{ID: "e3", Severity: models.SeverityCritical},
			},
			wantPercentage: 50,
			wantPassed:     true,
			wantSummary:    &ProctoringSummary{TotalEvents: 3, Warnings: 1, Critical: 1, SuspicionScore: 1.6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildResults(tt.attempt, tt.quiz, nil, nil, tt.events, "")

			assert.Equal(t, tt.wantPercentage, got.Percentage)
			assert.Equal(t, tt.wantPassed, got.IsPassed)
			assert.Equal(t, tt.wantSummary, got.ProctoringEvents)
			assert.NotNil(t, got.Answers)
			assert.NotNil(t, got.TopicWiseBreakdown)
		})
	}
}

func TestResultsService_Access(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, []*models.Question{mcq("q1", 1, "yes", "no")})

	attempts := env.attemptService()
	started, err := attempts.Start(ctx, student, quiz.ID)
	require.NoError(t, err)

	results := env.resultsService()

	_, err = results.GetResults(ctx, student, started.AttemptID)
	assert.ErrorIs(t, err, ErrAttemptNotSubmitted)

	_, err = attempts.Submit(ctx, student, started.AttemptID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   Actor
		wantErr error
	}{
		{name: "owner", actor: student},
		{name: "quiz creator", actor: instructor},
		{name: "admin", actor: admin},
		{name: "another student", actor: Actor{ID: otherStudent, Role: models.RoleStudent}, wantErr: ErrAttemptAccessDenied},
		{name: "another instructor", actor: Actor{ID: "instructor-2", Role: models.RoleInstructor}, wantErr: ErrAttemptAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := results.GetResults(ctx, tt.actor, started.AttemptID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ada Student", got.StudentName)
		})
	}

	_, err = results.GetResults(ctx, student, "missing")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestResultsService_ExportResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, []*models.Question{mcq("q1", 2, "yes", "no")})

	attempts := env.attemptService()
	started, err := attempts.Start(ctx, student, quiz.ID)
	require.NoError(t, err)
	_, err = env.answerService().Save(ctx, student, started.AttemptID, &SaveAnswerRequest{QuestionID: "q1", Answer: strPtr("q1-c")})
	require.NoError(t, err)
	_, err = attempts.Submit(ctx, student, started.AttemptID)
	require.NoError(t, err)

	data, err := env.resultsService().ExportResults(ctx, instructor, started.AttemptID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Answers", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Answers")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Question q1", rows[1][0])
	assert.Equal(t, "yes", rows[1][6])

	score, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "2", score)
}
