package services

import (
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// Grade scores the final answers of an attempt against its question snapshot.
// It is pure: the caller persists the result and must call it at most once per attempt.
//
// Answers to questions outside the snapshot are ignored. If a question has more than
// one answer row, the most recently updated one is graded.
func Grade(snapshot []*models.Question, answers []*models.Answer) GradeResult {
	result := GradeResult{
		PerAnswer: make(map[string]AnswerGrade, len(answers)),
	}

	latest := latestAnswers(answers)

	for _, question := range snapshot {
		result.TotalMarks += question.Marks

		answer, ok := latest[question.ID]
		if !ok {
			continue
		}

		grade := gradeAnswer(question, answer)
		result.PerAnswer[question.ID] = grade
		result.TotalScore += grade.ScoreObtained
	}

	return result
}

func gradeAnswer(question *models.Question, answer *models.Answer) AnswerGrade {
	if !question.Type.IsChoice() {
		// Open answers wait for a human grader
		return AnswerGrade{IsCorrect: nil, ScoreObtained: 0}
	}

	correct := false
	if answer.UserAnswer != nil {
		if option := question.ResolveOption(*answer.UserAnswer); option != nil {
			correct = option.IsCorrect
		}
	}

	grade := AnswerGrade{IsCorrect: &correct}
	if correct {
		grade.ScoreObtained = question.Marks
	}
	return grade
}

// latestAnswers keeps one answer per question, the one updated last
func latestAnswers(answers []*models.Answer) map[string]*models.Answer {
	latest := make(map[string]*models.Answer, len(answers))
	for _, answer := range answers {
		existing, ok := latest[answer.QuestionID]
		if !ok || !answer.UpdatedAt.Before(existing.UpdatedAt) {
			latest[answer.QuestionID] = answer
		}
	}
	return latest
}
