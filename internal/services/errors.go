package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

var (
	// Not found
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")

	// Access
	ErrAttemptAccessDenied     = errors.New("access denied to attempt")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrNotEligible             = errors.New("not eligible to start quiz")

	// State
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptNotSubmitted     = errors.New("attempt not yet submitted")

	// Input
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidSnapshot  = errors.New("invalid snapshot payload")

	// Infrastructure
	ErrSnapshotStorage = errors.New("snapshot storage failed")
)

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}
}

// PermissionError describes a failed guard
type PermissionError struct {
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: cannot %s %s: %s", e.Action, e.Resource, e.Reason)
}

// Is lets callers match a failed guard against the generic access sentinels
func (e *PermissionError) Is(target error) bool {
	switch target {
	case ErrInsufficientPermissions:
		return true
	case ErrAttemptAccessDenied:
		return e.Resource == "attempt"
	}
	return false
}

func NewPermissionError(resource, action, reason string) *PermissionError {
	return &PermissionError{Resource: resource, Action: action, Reason: reason}
}

// EligibilityError explains why an attempt cannot be started
type EligibilityError struct {
	QuizID string
	Reason string
}

func (e *EligibilityError) Error() string {
	return e.Reason
}

func (e *EligibilityError) Unwrap() error {
	return ErrNotEligible
}
