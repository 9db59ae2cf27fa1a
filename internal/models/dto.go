package models

import (
	"time"
)

// Wire projections. Field names are the client contract; timestamps are epoch milliseconds.

// ===== ATTEMPT PROJECTIONS =====

type AttemptView struct {
	AttemptID      string   `json:"attemptId"`
	UserID         string   `json:"userId"`
	QuizID         string   `json:"quizId"`
	StartTime      int64    `json:"startTime"`
	EndTime        *int64   `json:"endTime"`
	FinalScore     *float64 `json:"finalScore"`
	TotalMarks     float64  `json:"totalMarks"`
	Warnings       int      `json:"warnings"`
	SuspicionScore float64  `json:"suspicionScore"`
	IsSubmitted    bool     `json:"isSubmitted"`
}

func NewAttemptView(a *Attempt) AttemptView {
	return AttemptView{
		AttemptID:      a.ID,
		UserID:         a.UserID,
		QuizID:         a.QuizID,
		StartTime:      EpochMillis(a.StartTime),
		EndTime:        EpochMillisPtr(a.EndTime),
		FinalScore:     a.FinalScore,
		TotalMarks:     a.TotalMarks,
		Warnings:       a.Warnings,
		SuspicionScore: a.SuspicionScore,
		IsSubmitted:    a.IsSubmitted,
	}
}

type AnswerView struct {
	AnswerID        string  `json:"answerId"`
	QuestionID      string  `json:"qId"`
	Answer          *string `json:"answer"`
	IsCorrect       *bool   `json:"isCorrect"`
	ScoreObtained   float64 `json:"scoreObtained"`
	TimeSpent       int     `json:"timeSpent"`
	MarkedForReview bool    `json:"markedForReview"`
}

func NewAnswerView(a *Answer) AnswerView {
	return AnswerView{
		AnswerID:        a.ID,
		QuestionID:      a.QuestionID,
		Answer:          a.UserAnswer,
		IsCorrect:       a.IsCorrect,
		ScoreObtained:   a.ScoreObtained,
		TimeSpent:       a.TimeSpentSeconds,
		MarkedForReview: a.IsMarkedForReview,
	}
}

type EventView struct {
	EventID   string                 `json:"eventId"`
	AttemptID string                 `json:"attemptId"`
	UserID    string                 `json:"userId"`
	Type      ProctoringEventType    `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Meta      map[string]interface{} `json:"meta"`
	Severity  Severity               `json:"severity"`
}

func NewEventView(e *ProctoringEvent) EventView {
	return EventView{
		EventID:   e.ID,
		AttemptID: e.AttemptID,
		UserID:    e.UserID,
		Type:      e.EventType,
		Timestamp: EpochMillis(e.Timestamp),
		Meta:      e.Meta,
		Severity:  e.Severity,
	}
}

// ===== CATALOG PROJECTIONS =====

type QuizView struct {
	QuizID            string   `json:"quizId"`
	Title             string   `json:"title"`
	Description       *string  `json:"description"`
	CreatedBy         string   `json:"createdBy"`
	StartTime         int64    `json:"startTime"`
	EndTime           int64    `json:"endTime"`
	DurationSeconds   int      `json:"durationSeconds"`
	ShuffleQuestions  bool     `json:"shuffleQuestions"`
	ShuffleOptions    bool     `json:"shuffleOptions"`
	Adaptive          bool     `json:"adaptive"`
	ProctoringEnabled bool     `json:"proctoringEnabled"`
	MaxAttempts       int      `json:"maxAttempts"`
	PassingScore      float64  `json:"passingScore"`
	QuestionIDs       []string `json:"questionIds"`
}

func NewQuizView(q *Quiz, questionIDs []string) QuizView {
	if questionIDs == nil {
		questionIDs = []string{}
	}
	return QuizView{
		QuizID:            q.ID,
		Title:             q.Title,
		Description:       q.Description,
		CreatedBy:         q.CreatedByID,
		StartTime:         EpochMillis(q.StartTime),
		EndTime:           EpochMillis(q.EndTime),
		DurationSeconds:   q.DurationSeconds,
		ShuffleQuestions:  q.ShuffleQuestions,
		ShuffleOptions:    q.ShuffleOptions,
		Adaptive:          q.Adaptive,
		ProctoringEnabled: q.ProctoringEnabled,
		MaxAttempts:       q.MaxAttempts,
		PassingScore:      q.PassingScore,
		QuestionIDs:       questionIDs,
	}
}

type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

type QuestionView struct {
	QuestionID  string          `json:"qId"`
	Text        string          `json:"text"`
	Type        QuestionType    `json:"type"`
	Difficulty  DifficultyLevel `json:"difficulty"`
	Marks       float64         `json:"marks"`
	Tags        []string        `json:"tags"`
	Explanation *string         `json:"explanation"`
	Options     []OptionView    `json:"options"`
}

// NewQuestionView projects a question. withKey controls whether option correctness is exposed.
func NewQuestionView(q *Question, withKey bool) QuestionView {
	tags := []string(q.Tags)
	if tags == nil {
		tags = []string{}
	}
	options := make([]OptionView, 0, len(q.Options))
	for _, opt := range q.Options {
		view := OptionView{ID: opt.ID, Text: opt.Text}
		if withKey {
			isCorrect := opt.IsCorrect
			view.IsCorrect = &isCorrect
		}
		options = append(options, view)
	}
	return QuestionView{
		QuestionID:  q.ID,
		Text:        q.Text,
		Type:        q.Type,
		Difficulty:  q.Difficulty,
		Marks:       q.Marks,
		Tags:        tags,
		Explanation: q.Explanation,
		Options:     options,
	}
}

func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func EpochMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// FromEpochMillis converts a client timestamp; zero means "now".
func FromEpochMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
