package services

import (
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// guard is a precondition evaluated before an operation body
type guard func() error

// checkGuards runs guards in order and returns the first failure
func checkGuards(guards ...guard) error {
	for _, g := range guards {
		if err := g(); err != nil {
			return err
		}
	}
	return nil
}

func requireOwner(actor Actor, attempt *models.Attempt, action string) guard {
	return func() error {
		if attempt.UserID != actor.ID {
			return NewPermissionError("attempt", action, "only the attempt owner may do this")
		}
		return nil
	}
}

// requireOwnerOrQuizCreator admits the attempt owner, the quiz author and admins
func requireOwnerOrQuizCreator(actor Actor, attempt *models.Attempt, quiz *models.Quiz, action string) guard {
	return func() error {
		if attempt.UserID == actor.ID || actor.IsAdmin() {
			return nil
		}
		if quiz != nil && quiz.CreatedByID == actor.ID {
			return nil
		}
		return NewPermissionError("attempt", action, "only the attempt owner or the quiz creator may do this")
	}
}

func requireQuizCreator(actor Actor, quiz *models.Quiz, action string) guard {
	return func() error {
		if quiz.CreatedByID == actor.ID || actor.IsAdmin() {
			return nil
		}
		return NewPermissionError("quiz", action, "only the quiz creator may do this")
	}
}

// requireSelfOrStaff admits the user themself, instructors and admins
func requireSelfOrStaff(actor Actor, userID string, action string) guard {
	return func() error {
		if actor.ID == userID || actor.Role.IsStaff() {
			return nil
		}
		return NewPermissionError("user", action, "cannot read another user's data")
	}
}

func requireNotSubmitted(attempt *models.Attempt) guard {
	return func() error {
		if attempt.IsSubmitted {
			return ErrAttemptAlreadySubmitted
		}
		return nil
	}
}

func requireSubmitted(attempt *models.Attempt) guard {
	return func() error {
		if !attempt.IsSubmitted {
			return ErrAttemptNotSubmitted
		}
		return nil
	}
}
