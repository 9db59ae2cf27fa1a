package models

import (
	"time"

	"gorm.io/datatypes"
)

type Attempt struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"user_id" gorm:"not null;index;size:255"`
	QuizID string `json:"quiz_id" gorm:"not null;index;size:36"`

	// Ordered question ids fixed when the attempt is created; never rewritten.
	AssignedQuestionIDs datatypes.JSONSlice[string] `json:"assigned_question_ids"`

	// Timing
	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`

	// Scoring
	IsSubmitted bool     `json:"is_submitted" gorm:"default:false;index"`
	FinalScore  *float64 `json:"final_score"`
	TotalMarks  float64  `json:"total_marks" gorm:"default:0"`

	// Integrity counters, only ever incremented
	Warnings       int     `json:"warnings" gorm:"default:0"`
	SuspicionScore float64 `json:"suspicion_score" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// HasQuestion reports whether questionID belongs to the assigned snapshot.
func (a *Attempt) HasQuestion(questionID string) bool {
	for _, id := range a.AssignedQuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

type Answer struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	AttemptID  string `json:"attempt_id" gorm:"not null;size:36;uniqueIndex:idx_attempt_question_answer"`
	QuestionID string `json:"question_id" gorm:"not null;size:36;uniqueIndex:idx_attempt_question_answer"`

	// Free text for open questions, option id for choice questions
	UserAnswer *string `json:"user_answer" gorm:"type:text"`

	// Grading
	IsCorrect     *bool   `json:"is_correct"` // null until graded, and for manual grading
	ScoreObtained float64 `json:"score_obtained" gorm:"default:0"`

	TimeSpentSeconds  int  `json:"time_spent_seconds" gorm:"default:0"`
	IsMarkedForReview bool `json:"is_marked_for_review" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}
