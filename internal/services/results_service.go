package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

type resultsService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewResultsService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ResultsService {
	return &resultsService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// BuildResults assembles the report of a graded attempt. It reads only its arguments.
func BuildResults(attempt *models.Attempt, quiz *models.Quiz, snapshot []*models.Question, answers []*models.Answer, events []*models.ProctoringEvent, studentName string) *Results {
	passingScore := models.DefaultPassingScore
	if quiz != nil {
		passingScore = quiz.PassingScore
	}

	finalScore := valueOrZero(attempt.FinalScore)
	results := &Results{
		AttemptID:           attempt.ID,
		UserID:              attempt.UserID,
		QuizID:              attempt.QuizID,
		StudentName:         studentName,
		StartTime:           models.EpochMillis(attempt.StartTime),
		EndTime:             models.EpochMillisPtr(attempt.EndTime),
		FinalScore:          finalScore,
		TotalMarks:          attempt.TotalMarks,
		Percentage:          scorePercentage(finalScore, attempt.TotalMarks),
		IsPassed:            isPassed(attempt.FinalScore, passingScore),
		Answers:             []AnswerDetail{},
		Questions:           make([]ResultQuestion, 0, len(snapshot)),
		TopicWiseBreakdown:  map[string]*BreakdownBucket{},
		DifficultyBreakdown: map[string]*BreakdownBucket{},
	}

	latest := latestAnswers(answers)

	for _, question := range snapshot {
		correctAnswer := correctOptionID(question)
		results.Questions = append(results.Questions, ResultQuestion{
			QuestionView:  models.NewQuestionView(question, true),
			CorrectAnswer: correctAnswer,
		})

		answer, ok := latest[question.ID]
		if !ok {
			continue
		}

		results.Answers = append(results.Answers, AnswerDetail{
			QuestionID:    question.ID,
			QuestionText:  question.Text,
			Type:          question.Type,
			Difficulty:    question.Difficulty,
			Marks:         question.Marks,
			UserAnswer:    displayedAnswer(question, answer.UserAnswer),
			IsCorrect:     answer.IsCorrect,
			ScoreObtained: answer.ScoreObtained,
			TimeSpent:     answer.TimeSpentSeconds,
			Explanation:   question.Explanation,
			CorrectAnswer: correctAnswer,
		})

		correct := answer.IsCorrect != nil && *answer.IsCorrect

		// A question counts once in every one of its tag buckets
		for _, tag := range question.Tags {
			addToBucket(results.TopicWiseBreakdown, tag, correct)
		}
		addToBucket(results.DifficultyBreakdown, string(question.Difficulty), correct)
	}

	if len(events) > 0 {
		summary := &ProctoringSummary{
			TotalEvents:    len(events),
			SuspicionScore: attempt.SuspicionScore,
		}
		for _, event := range events {
			switch event.Severity {
			case models.SeverityWarning:
				summary.Warnings++
			case models.SeverityCritical:
				summary.Critical++
			}
		}
		results.ProctoringEvents = summary
	}

	return results
}

func addToBucket(buckets map[string]*BreakdownBucket, key string, correct bool) {
	bucket, ok := buckets[key]
	if !ok {
		bucket = &BreakdownBucket{}
		buckets[key] = bucket
	}
	bucket.Total++
	if correct {
		bucket.Correct++
	}
}

func correctOptionID(question *models.Question) *string {
	if !question.Type.IsChoice() {
		return nil
	}
	if option := question.CorrectOption(); option != nil {
		id := option.ID
		return &id
	}
	return nil
}

// displayedAnswer normalises a choice answer given as option text to the option id
func displayedAnswer(question *models.Question, value *string) *string {
	if value == nil || *value == "" || !question.Type.IsChoice() {
		return value
	}
	if option := question.ResolveOption(*value); option != nil {
		id := option.ID
		return &id
	}
	return value
}

// ===== SERVICE OPERATIONS =====

func (s *resultsService) GetResults(ctx context.Context, actor Actor, attemptID string) (*Results, error) {
	attempt, quiz, err := getAttemptWithQuiz(ctx, s.repo, s.db, attemptID)
	if err != nil {
		return nil, err
	}

	if err := checkGuards(
		requireOwnerOrQuizCreator(actor, attempt, quiz, "read results"),
		requireSubmitted(attempt),
	); err != nil {
		return nil, err
	}

	snapshot, err := loadSnapshot(ctx, s.repo, s.db, attempt)
	if err != nil {
		return nil, err
	}

	answers, err := s.repo.Answer().GetByAttempt(ctx, s.db, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}

	events, err := s.repo.ProctoringEvent().ListByAttempt(ctx, s.db, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get proctoring events: %w", err)
	}

	return BuildResults(attempt, quiz, snapshot, answers, events, s.studentName(ctx, attempt.UserID)), nil
}

// studentName is best effort; the identity provider being down must not hide results
func (s *resultsService) studentName(ctx context.Context, userID string) string {
	if s.repo.User() == nil {
		return ""
	}
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to resolve student name", "user_id", userID, "error", err)
		return ""
	}
	return user.Name
}

func (s *resultsService) ExportResults(ctx context.Context, actor Actor, attemptID string) ([]byte, error) {
	results, err := s.GetResults(ctx, actor, attemptID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const answersSheet = "Answers"
	if err := f.SetSheetName("Sheet1", answersSheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}

	rows := [][]interface{}{
		{"Question", "Type", "Difficulty", "Marks", "Answer", "Correct Answer", "Correct", "Score", "Time Spent (s)"},
	}
	for _, a := range results.Answers {
		rows = append(rows, []interface{}{
			a.QuestionText,
			string(a.Type),
			string(a.Difficulty),
			a.Marks,
			stringOrEmpty(a.UserAnswer),
			stringOrEmpty(a.CorrectAnswer),
			correctnessLabel(a.IsCorrect),
			a.ScoreObtained,
			a.TimeSpent,
		})
	}
	if err := writeRows(f, answersSheet, rows); err != nil {
		return nil, err
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Attempt", results.AttemptID},
		{"Student", results.StudentName},
		{"Final Score", results.FinalScore},
		{"Total Marks", results.TotalMarks},
		{"Percentage", results.Percentage},
		{"Passed", results.IsPassed},
	}
	if results.ProctoringEvents != nil {
		summary = append(summary,
			[]interface{}{"Proctoring Events", results.ProctoringEvents.TotalEvents},
			[]interface{}{"Suspicion Score", results.ProctoringEvents.SuspicionScore},
		)
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Results exported", "attempt_id", attemptID, "user_id", actor.ID)
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func correctnessLabel(v *bool) string {
	switch {
	case v == nil:
		return "pending"
	case *v:
		return "yes"
	default:
		return "no"
	}
}
