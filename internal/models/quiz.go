package models

import (
	"time"
)

const DefaultPassingScore = 40.0

// Quiz is catalog data owned by the authoring service. The attempt service only reads it.
type Quiz struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Title       string  `json:"title" gorm:"not null;size:255"`
	Description *string `json:"description" gorm:"type:text"`
	CreatedByID string  `json:"created_by_id" gorm:"not null;index;size:255"`

	// Scheduling window
	StartTime       time.Time `json:"start_time" gorm:"not null"`
	EndTime         time.Time `json:"end_time" gorm:"not null"`
	DurationSeconds int       `json:"duration_seconds" gorm:"not null"`

	// Settings
	ShuffleQuestions  bool    `json:"shuffle_questions" gorm:"default:false"`
	ShuffleOptions    bool    `json:"shuffle_options" gorm:"default:false"`
	Adaptive          bool    `json:"adaptive" gorm:"default:false"`
	ProctoringEnabled bool    `json:"proctoring_enabled" gorm:"default:false"`
	MaxAttempts       int     `json:"max_attempts" gorm:"default:1"`
	PassingScore      float64 `json:"passing_score" gorm:"default:40"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion orders the questions of a quiz.
type QuizQuestion struct {
	QuizID     string `json:"quiz_id" gorm:"primaryKey;size:36"`
	QuestionID string `json:"question_id" gorm:"primaryKey;size:36"`
	Order      int    `json:"order" gorm:"default:0"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// QuizAssignment links a student to a quiz; it is the eligibility record for starting attempts.
type QuizAssignment struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	QuizID       string     `json:"quiz_id" gorm:"not null;size:36;uniqueIndex:idx_quiz_student_assignment"`
	StudentID    string     `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_quiz_student_assignment"`
	AssignedByID string     `json:"assigned_by_id" gorm:"not null;size:255"`
	AssignedAt   time.Time  `json:"assigned_at"`
	DueDate      *time.Time `json:"due_date"`
}

func (QuizAssignment) TableName() string {
	return "quiz_assignments"
}

// IsOpen reports whether now lies inside the quiz scheduling window.
func (q *Quiz) IsOpen(now time.Time) bool {
	return !now.Before(q.StartTime) && !now.After(q.EndTime)
}
