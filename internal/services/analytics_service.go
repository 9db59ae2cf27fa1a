package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/cache"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

const questionTextPreview = 50

type analyticsService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	cacheManager *cache.CacheManager
}

func NewAnalyticsService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, cacheManager *cache.CacheManager) AnalyticsService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &analyticsService{
		repo:         repo,
		db:           db,
		logger:       logger,
		cacheManager: cacheManager,
	}
}

func (s *analyticsService) GetQuizAnalytics(ctx context.Context, actor Actor, quizID string) (*QuizAnalytics, error) {
	quiz, err := getQuiz(ctx, s.repo, s.db, quizID)
	if err != nil {
		return nil, err
	}

	if err := checkGuards(requireQuizCreator(actor, quiz, "read analytics")); err != nil {
		return nil, err
	}

	var analytics QuizAnalytics
	err = s.cacheManager.Stats.CacheOrExecute(ctx, fmt.Sprintf("quiz:%s:analytics", quizID), &analytics, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.compute(ctx, quiz)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute quiz analytics: %w", err)
	}

	return &analytics, nil
}

func (s *analyticsService) compute(ctx context.Context, quiz *models.Quiz) (*QuizAnalytics, error) {
	submitted := true
	attempts, _, err := s.repo.Attempt().List(ctx, s.db, repositories.AttemptFilters{
		QuizID:      &quiz.ID,
		IsSubmitted: &submitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	if len(attempts) == 0 {
		return BuildQuizAnalytics(quiz, nil, nil, nil), nil
	}

	performance, err := s.repo.Answer().GetQuestionPerformance(ctx, s.db, quiz.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(performance))
	for _, p := range performance {
		ids = append(ids, p.QuestionID)
	}
	questions, err := s.repo.Question().GetByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	return BuildQuizAnalytics(quiz, attempts, performance, questions), nil
}

// BuildQuizAnalytics aggregates submitted attempts and per-question answer stats.
// Questions that no longer exist are left out of the performance list.
func BuildQuizAnalytics(quiz *models.Quiz, attempts []*models.Attempt, performance []repositories.QuestionPerformance, questions []*models.Question) *QuizAnalytics {
	analytics := &QuizAnalytics{
		QuizID:        quiz.ID,
		TotalAttempts: int64(len(attempts)),
		Performance:   []QuestionAnalytics{},
	}
	if len(attempts) == 0 {
		return analytics
	}

	var sum float64
	var scored, passed int
	for _, attempt := range attempts {
		if attempt.FinalScore == nil {
			continue
		}
		scored++
		sum += *attempt.FinalScore
		if *attempt.FinalScore >= quiz.PassingScore {
			passed++
		}
	}
	if scored > 0 {
		analytics.AverageScore = round2(sum / float64(scored))
		analytics.PassPercentage = round2(float64(passed) / float64(scored) * 100)
	}

	byID := make(map[string]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	for _, p := range performance {
		question, ok := byID[p.QuestionID]
		if !ok || p.TotalAnswers == 0 {
			continue
		}
		analytics.Performance = append(analytics.Performance, QuestionAnalytics{
			QuestionID:    p.QuestionID,
			QuestionText:  previewText(question.Text),
			Accuracy:      round2(float64(p.CorrectAnswers) / float64(p.TotalAnswers) * 100),
			TotalAttempts: p.TotalAnswers,
			AverageTime:   round2(float64(p.TotalTime) / float64(p.TotalAnswers)),
			Difficulty:    question.Difficulty,
		})
	}

	// Hardest questions first
	sort.SliceStable(analytics.Performance, func(i, j int) bool {
		return analytics.Performance[i].Accuracy < analytics.Performance[j].Accuracy
	})

	return analytics
}

func previewText(text string) string {
	runes := []rune(text)
	if len(runes) > questionTextPreview {
		runes = runes[:questionTextPreview]
	}
	return string(runes) + "..."
}

func (s *analyticsService) ExportAnalytics(ctx context.Context, actor Actor, quizID string) ([]byte, error) {
	analytics, err := s.GetQuizAnalytics(ctx, actor, quizID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Performance"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}

	rows := [][]interface{}{
		{"Quiz", analytics.QuizID},
		{"Total Attempts", analytics.TotalAttempts},
		{"Average Score", analytics.AverageScore},
		{"Pass Percentage", analytics.PassPercentage},
		{},
		{"Question ID", "Question", "Difficulty", "Accuracy (%)", "Answers", "Average Time (s)"},
	}
	for _, p := range analytics.Performance {
		rows = append(rows, []interface{}{
			p.QuestionID,
			p.QuestionText,
			string(p.Difficulty),
			p.Accuracy,
			p.TotalAttempts,
			p.AverageTime,
		})
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Quiz analytics exported", "quiz_id", quizID, "user_id", actor.ID)
	return buf.Bytes(), nil
}
