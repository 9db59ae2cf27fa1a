package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "quiz-attempt-service"
	EventVersion = "1.0"
)

const (
	AttemptStarted        = "attempt.started"
	AttemptSubmitted      = "attempt.submitted"
	AnswerSaved           = "answer.saved"
	ProctoringEventLogged = "proctoring.event_logged"
)

// Event is the envelope every domain event is published in
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type AttemptStartedEvent struct {
	AttemptID           string   `json:"attemptId"`
	QuizID              string   `json:"quizId"`
	UserID              string   `json:"userId"`
	AssignedQuestionIDs []string `json:"assignedQuestionIds"`
	StartTime           int64    `json:"startTime"`
}

type AttemptSubmittedEvent struct {
	AttemptID  string  `json:"attemptId"`
	QuizID     string  `json:"quizId"`
	UserID     string  `json:"userId"`
	FinalScore float64 `json:"finalScore"`
	TotalMarks float64 `json:"totalMarks"`
	EndTime    int64   `json:"endTime"`
}

type AnswerSavedEvent struct {
	AttemptID       string `json:"attemptId"`
	QuestionID      string `json:"questionId"`
	UserID          string `json:"userId"`
	MarkedForReview bool   `json:"markedForReview"`
}

// ProctoringEventLoggedEvent also feeds the live monitor sockets
type ProctoringEventLoggedEvent struct {
	AttemptID      string                 `json:"attemptId"`
	EventID        string                 `json:"eventId"`
	UserID         string                 `json:"userId"`
	EventType      string                 `json:"type"`
	Severity       string                 `json:"severity"`
	Timestamp      int64                  `json:"timestamp"`
	Meta           map[string]interface{} `json:"meta"`
	Warnings       int                    `json:"warnings"`
	SuspicionScore float64                `json:"suspicionScore"`
}
