package repositories

import "context"

// Repository groups every repository the service uses
type Repository interface {
	// Catalog (read-only)
	Quiz() QuizRepository
	Question() QuestionRepository
	Assignment() AssignmentRepository

	// Attempt domain
	Attempt() AttemptRepository
	Answer() AnswerRepository
	ProctoringEvent() ProctoringEventRepository

	// Identity provider
	User() UserRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
