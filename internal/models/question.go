package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MCQ         QuestionType = "mcq"
	TrueFalse   QuestionType = "true_false"
	ShortAnswer QuestionType = "short_answer"
	LongAnswer  QuestionType = "long_answer"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// IsChoice reports whether answers to this type are resolved against the option set.
func (t QuestionType) IsChoice() bool {
	return t == MCQ || t == TrueFalse
}

type Question struct {
	ID          string                      `json:"id" gorm:"primaryKey;size:36"`
	Text        string                      `json:"text" gorm:"not null;type:text"`
	Type        QuestionType                `json:"type" gorm:"not null;size:50"`
	Difficulty  DifficultyLevel             `json:"difficulty" gorm:"default:medium;size:20"`
	Marks       float64                     `json:"marks" gorm:"default:1"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Explanation *string                     `json:"explanation" gorm:"type:text"`
	CreatedByID string                      `json:"created_by_id" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Options []QuestionOption `json:"options" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

type QuestionOption struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	QuestionID string `json:"question_id" gorm:"not null;index;size:36"`
	Text       string `json:"text" gorm:"not null;type:text"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	Position   int    `json:"position" gorm:"default:0"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// ResolveOption finds the option a submitted value refers to, by id first and then by exact text.
func (q *Question) ResolveOption(value string) *QuestionOption {
	for i := range q.Options {
		if q.Options[i].ID == value {
			return &q.Options[i]
		}
	}
	for i := range q.Options {
		if q.Options[i].Text == value {
			return &q.Options[i]
		}
	}
	return nil
}

// CorrectOption returns the option flagged correct, if any.
func (q *Question) CorrectOption() *QuestionOption {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}
