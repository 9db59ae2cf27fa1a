package services

import (
	"context"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

// Actor is the authenticated caller, passed explicitly into every operation
type Actor struct {
	ID   string
	Role models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ===== REQUEST/RESPONSE DTOs =====

// Use validator types
type SaveAnswerRequest = validator.SaveAnswerRequest
type LogEventRequest = validator.LogEventRequest
type FaceDetectionRequest = validator.FaceDetectionRequest
type SnapshotRequest = validator.SnapshotRequest

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptResponse struct {
	AttemptID       string                `json:"attemptId"`
	Quiz            models.QuizView       `json:"quiz"`
	Questions       []models.QuestionView `json:"questions"`
	DurationSeconds int                   `json:"durationSeconds"`
}

type SubmitAttemptResponse struct {
	Attempt    models.AttemptView `json:"attempt"`
	FinalScore float64            `json:"finalScore"`
}

type AttemptQuestionsResponse struct {
	AttemptID string                `json:"attemptId"`
	Questions []models.QuestionView `json:"questions"`
}

type HistoryItem struct {
	AttemptID  string   `json:"attemptId"`
	QuizID     string   `json:"quizId"`
	QuizTitle  string   `json:"quizTitle"`
	StartTime  int64    `json:"startTime"`
	EndTime    *int64   `json:"endTime"`
	Score      *float64 `json:"score"`
	TotalMarks float64  `json:"totalMarks"`
	Percentage float64  `json:"percentage"`
	IsPassed   bool     `json:"isPassed"`
}

type HistoryResponse struct {
	UserID   string        `json:"userId"`
	Attempts []HistoryItem `json:"attempts"`
	Total    int           `json:"total"`
}

// ===== GRADING RELATED DTOs =====

type AnswerGrade struct {
	IsCorrect     *bool   `json:"isCorrect"`
	ScoreObtained float64 `json:"scoreObtained"`
}

type GradeResult struct {
	// PerAnswer is keyed by question id and only holds snapshot questions that were answered
	PerAnswer  map[string]AnswerGrade `json:"perAnswer"`
	TotalScore float64                `json:"totalScore"`
	TotalMarks float64                `json:"totalMarks"`
}

// ===== RESULTS RELATED DTOs =====

type BreakdownBucket struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

type AnswerDetail struct {
	QuestionID    string                 `json:"questionId"`
	QuestionText  string                 `json:"questionText"`
	Type          models.QuestionType    `json:"type"`
	Difficulty    models.DifficultyLevel `json:"difficulty"`
	Marks         float64                `json:"marks"`
	UserAnswer    *string                `json:"userAnswer"`
	IsCorrect     *bool                  `json:"isCorrect"`
	ScoreObtained float64                `json:"scoreObtained"`
	TimeSpent     int                    `json:"timeSpent"`
	Explanation   *string                `json:"explanation"`
	CorrectAnswer *string                `json:"correctAnswer,omitempty"`
}

type ResultQuestion struct {
	models.QuestionView
	CorrectAnswer *string `json:"correctAnswer,omitempty"`
}

type ProctoringSummary struct {
	TotalEvents    int     `json:"totalEvents"`
	Warnings       int     `json:"warnings"`
	Critical       int     `json:"critical"`
	SuspicionScore float64 `json:"suspicionScore"`
}

type Results struct {
	AttemptID           string                      `json:"attemptId"`
	UserID              string                      `json:"userId"`
	QuizID              string                      `json:"quizId"`
	StudentName         string                      `json:"studentName"`
	StartTime           int64                       `json:"startTime"`
	EndTime             *int64                      `json:"endTime"`
	FinalScore          float64                     `json:"finalScore"`
	TotalMarks          float64                     `json:"totalMarks"`
	Percentage          float64                     `json:"percentage"`
	IsPassed            bool                        `json:"isPassed"`
	Answers             []AnswerDetail              `json:"answers"`
	Questions           []ResultQuestion            `json:"questions"`
	TopicWiseBreakdown  map[string]*BreakdownBucket `json:"topicWiseBreakdown"`
	DifficultyBreakdown map[string]*BreakdownBucket `json:"difficultyBreakdown"`
	ProctoringEvents    *ProctoringSummary          `json:"proctoringEvents,omitempty"`
}

// ===== PROCTORING RELATED DTOs =====

type LogEventResponse struct {
	Event          models.EventView `json:"event"`
	Warnings       int              `json:"warnings"`
	SuspicionScore float64          `json:"suspicionScore"`
}

type SnapshotResponse struct {
	SnapshotURL string           `json:"snapshotUrl"`
	Event       models.EventView `json:"event"`
}

type EventListResponse struct {
	AttemptID      string             `json:"attemptId"`
	Events         []models.EventView `json:"events"`
	TotalEvents    int                `json:"totalEvents"`
	Warnings       int                `json:"warnings"`
	SuspicionScore float64            `json:"suspicionScore"`
}

// ===== ANALYTICS RELATED DTOs =====

type QuestionAnalytics struct {
	QuestionID    string                 `json:"questionId"`
	QuestionText  string                 `json:"questionText"`
	Accuracy      float64                `json:"accuracy"`
	TotalAttempts int64                  `json:"totalAttempts"`
	AverageTime   float64                `json:"averageTime"`
	Difficulty    models.DifficultyLevel `json:"difficulty"`
}

type QuizAnalytics struct {
	QuizID         string              `json:"quizId"`
	TotalAttempts  int64               `json:"totalAttempts"`
	AverageScore   float64             `json:"averageScore"`
	PassPercentage float64             `json:"passPercentage"`
	Performance    []QuestionAnalytics `json:"performance"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, actor Actor, quizID string) (*StartAttemptResponse, error)
	Submit(ctx context.Context, actor Actor, attemptID string) (*SubmitAttemptResponse, error)

	Get(ctx context.Context, actor Actor, attemptID string) (*models.AttemptView, error)
	GetQuestions(ctx context.Context, actor Actor, attemptID string) (*AttemptQuestionsResponse, error)
	History(ctx context.Context, actor Actor, userID string) (*HistoryResponse, error)
}

type AnswerService interface {
	Save(ctx context.Context, actor Actor, attemptID string, req *SaveAnswerRequest) (*models.AnswerView, error)
}

type ResultsService interface {
	GetResults(ctx context.Context, actor Actor, attemptID string) (*Results, error)
	ExportResults(ctx context.Context, actor Actor, attemptID string) ([]byte, error)
}

type ProctoringService interface {
	Record(ctx context.Context, actor Actor, attemptID string, req *LogEventRequest) (*LogEventResponse, error)
	RecordFaceDetection(ctx context.Context, actor Actor, attemptID string, req *FaceDetectionRequest) (*LogEventResponse, error)
	RecordSnapshot(ctx context.Context, actor Actor, attemptID string, req *SnapshotRequest) (*SnapshotResponse, error)
	ListEvents(ctx context.Context, actor Actor, attemptID string) (*EventListResponse, error)

	// CanMonitor checks that actor may watch the live feed of an attempt
	CanMonitor(ctx context.Context, actor Actor, attemptID string) error
}

type AnalyticsService interface {
	GetQuizAnalytics(ctx context.Context, actor Actor, quizID string) (*QuizAnalytics, error)
	ExportAnalytics(ctx context.Context, actor Actor, quizID string) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Attempt() AttemptService
	Answer() AnswerService
	Results() ResultsService
	Proctoring() ProctoringService
	Analytics() AnalyticsService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
