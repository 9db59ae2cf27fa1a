package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/cache"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/storage"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

// ServiceManagerConfig holds the collaborators shared by the services
type ServiceManagerConfig struct {
	Publisher     events.EventPublisher
	SnapshotStore storage.SnapshotStore
	RedisClient   *redis.Client

	// EnableAnalytics switches the instructor analytics endpoints on
	EnableAnalytics bool
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db           *gorm.DB
	repo         repositories.Repository
	logger       *slog.Logger
	validator    *validator.Validator
	config       ServiceManagerConfig
	cacheManager *cache.CacheManager

	// Service instances
	attemptService    AttemptService
	answerService     AnswerService
	resultsService    ResultsService
	proctoringService ProctoringService
	analyticsService  AnalyticsService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:           db,
		repo:         repo,
		logger:       logger,
		validator:    validator,
		config:       config,
		cacheManager: cache.NewCacheManager(config.RedisClient),
	}
}

// NewDefaultServiceManager runs without caching, event publishing or object storage
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, ServiceManagerConfig{
		SnapshotStore:   storage.NewDiscardSnapshotStore(),
		EnableAnalytics: true,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if sm.db == nil || sm.repo == nil {
		return fmt.Errorf("service manager requires a database and a repository")
	}

	sm.logger.Info("Initializing service manager")

	sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.Publisher, sm.cacheManager)
	sm.logger.Info("Attempt service initialized")

	sm.answerService = NewAnswerService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.Publisher)
	sm.logger.Info("Answer service initialized")

	sm.resultsService = NewResultsService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Results service initialized")

	sm.proctoringService = NewProctoringService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.Publisher, sm.config.SnapshotStore)
	sm.logger.Info("Proctoring service initialized")

	if sm.config.EnableAnalytics {
		sm.analyticsService = NewAnalyticsService(sm.repo, sm.db, sm.logger, sm.cacheManager)
		sm.logger.Info("Analytics service initialized")
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Answer() AnswerService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.answerService
}

func (sm *serviceManager) Results() ResultsService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.resultsService
}

func (sm *serviceManager) Proctoring() ProctoringService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.proctoringService
}

func (sm *serviceManager) Analytics() AnalyticsService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.analyticsService != nil {
		return sm.analyticsService
	}

	panic("analytics service not enabled")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown closes the publisher; the repository is owned by the caller
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.config.Publisher != nil {
		if err := sm.config.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
