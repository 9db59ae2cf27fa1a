package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/storage"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
	"github.com/SAP-F-2025/quiz-attempt-service/pkg/tracing"
)

// FaceConfidenceThreshold is the minimum tracker confidence for a single face to count as present
const FaceConfidenceThreshold = 0.7

type proctoringService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	snapshots storage.SnapshotStore
}

func NewProctoringService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, snapshots storage.SnapshotStore) ProctoringService {
	if snapshots == nil {
		snapshots = storage.NewDiscardSnapshotStore()
	}
	return &proctoringService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		snapshots: snapshots,
	}
}

// newEvent describes one event to append; it is built by each entry point
type newEvent struct {
	id        string
	eventType models.ProctoringEventType
	severity  models.Severity
	timestamp int64
	meta      map[string]interface{}
}

func (s *proctoringService) Record(ctx context.Context, actor Actor, attemptID string, req *LogEventRequest) (*LogEventResponse, error) {
	if !models.ProctoringEventType(req.EventType).IsValid() {
		return nil, ErrInvalidEventType
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	severity := models.SeverityWarning
	if req.Severity != "" {
		severity = models.Severity(req.Severity)
	}

	var timestamp int64
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	return s.record(ctx, actor, attemptID, newEvent{
		eventType: models.ProctoringEventType(req.EventType),
		severity:  severity,
		timestamp: timestamp,
		meta:      req.Meta,
	})
}

// ClassifyFaceDetection maps a face tracker reading to an event type and severity
func ClassifyFaceDetection(faceCount int, confidence float64) (models.ProctoringEventType, models.Severity) {
	switch {
	case faceCount > 1:
		return models.EventMultipleFaces, models.SeverityCritical
	case faceCount == 1 && confidence >= FaceConfidenceThreshold:
		return models.EventFaceDetected, models.SeverityInfo
	default:
		return models.EventFaceLost, models.SeverityWarning
	}
}

func (s *proctoringService) RecordFaceDetection(ctx context.Context, actor Actor, attemptID string, req *FaceDetectionRequest) (*LogEventResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	confidence := 0.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	var timestamp int64
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	eventType, severity := ClassifyFaceDetection(len(req.Detections), confidence)

	return s.record(ctx, actor, attemptID, newEvent{
		eventType: eventType,
		severity:  severity,
		timestamp: timestamp,
		meta: map[string]interface{}{
			"faceCount":  len(req.Detections),
			"confidence": confidence,
			"detections": req.Detections,
		},
	})
}

func (s *proctoringService) RecordSnapshot(ctx context.Context, actor Actor, attemptID string, req *SnapshotRequest) (*SnapshotResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	data, contentType, err := decodeSnapshot(req.Snapshot)
	if err != nil {
		return nil, err
	}

	// Ownership is checked before anything is written to the bucket
	attempt, err := getAttempt(ctx, s.repo, s.db, attemptID)
	if err != nil {
		return nil, err
	}
	if err := checkGuards(requireOwner(actor, attempt, "record snapshot")); err != nil {
		return nil, err
	}

	timestamp := models.FromEpochMillis(*req.Timestamp)
	// The event id keeps frames with equal client timestamps apart
	eventID := uuid.New().String()
	key := fmt.Sprintf("snapshots/%s_%d_%s.jpg", attemptID, timestamp.UnixMilli(), eventID)

	url, err := s.snapshots.Put(ctx, key, data, contentType)
	if err != nil {
		s.logger.Error("Failed to store webcam snapshot", "attempt_id", attemptID, "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSnapshotStorage, err)
	}

	resp, err := s.record(ctx, actor, attemptID, newEvent{
		id:        eventID,
		eventType: models.EventWebcamSnapshot,
		severity:  models.SeverityInfo,
		timestamp: timestamp.UnixMilli(),
		meta:      map[string]interface{}{"snapshotUrl": url},
	})
	if err != nil {
		return nil, err
	}

	return &SnapshotResponse{
		SnapshotURL: url,
		Event:       resp.Event,
	}, nil
}

// record appends the event and bumps the attempt counters in one transaction
func (s *proctoringService) record(ctx context.Context, actor Actor, attemptID string, in newEvent) (*LogEventResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "ProctoringService.Record",
		attribute.String("attempt_id", attemptID),
		attribute.String("event_type", string(in.eventType)))
	defer span.End()

	if !in.severity.IsValid() {
		return nil, ValidationErrors{*NewValidationError("severity", "must be one of info, warning, critical", in.severity)}
	}

	if in.id == "" {
		in.id = uuid.New().String()
	}

	event := &models.ProctoringEvent{
		ID:        in.id,
		AttemptID: attemptID,
		UserID:    actor.ID,
		EventType: in.eventType,
		Severity:  in.severity,
		Timestamp: models.FromEpochMillis(in.timestamp),
		Meta:      in.meta,
	}
	if event.Meta == nil {
		event.Meta = map[string]interface{}{}
	}

	delta := repositories.CounterDelta{SuspicionScore: in.severity.Weight()}
	if in.severity.CountsAsWarning() {
		delta.Warnings = 1
	}

	var attempt *models.Attempt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.Attempt().GetForUpdate(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if err := checkGuards(requireOwner(actor, attempt, "log proctoring event")); err != nil {
			return err
		}

		if err := s.repo.ProctoringEvent().Create(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to create proctoring event: %w", err)
		}

		if err := s.repo.Attempt().IncrementCounters(ctx, tx, attemptID, delta); err != nil {
			return err
		}

		// The row is locked, so the in-memory copy plus the delta is what was stored
		attempt.Warnings += delta.Warnings
		attempt.SuspicionScore += delta.SuspicionScore
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ProctoringEvents.WithLabelValues(string(event.EventType), string(event.Severity)).Inc()
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.ProctoringEventLogged, events.ProctoringEventLoggedEvent{
		AttemptID:      attemptID,
		EventID:        event.ID,
		UserID:         event.UserID,
		EventType:      string(event.EventType),
		Severity:       string(event.Severity),
		Timestamp:      models.EpochMillis(event.Timestamp),
		Meta:           event.Meta,
		Warnings:       attempt.Warnings,
		SuspicionScore: attempt.SuspicionScore,
	}))

	if event.Severity == models.SeverityCritical {
		s.logger.Warn("Critical proctoring event",
			"attempt_id", attemptID,
			"user_id", actor.ID,
			"event_type", event.EventType)
	}

	return &LogEventResponse{
		Event:          models.NewEventView(event),
		Warnings:       attempt.Warnings,
		SuspicionScore: attempt.SuspicionScore,
	}, nil
}

func (s *proctoringService) ListEvents(ctx context.Context, actor Actor, attemptID string) (*EventListResponse, error) {
	attempt, quiz, err := getAttemptWithQuiz(ctx, s.repo, s.db, attemptID)
	if err != nil {
		return nil, err
	}

	if err := checkGuards(requireOwnerOrQuizCreator(actor, attempt, quiz, "read proctoring events")); err != nil {
		return nil, err
	}

	list, err := s.repo.ProctoringEvent().ListByAttempt(ctx, s.db, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proctoring events: %w", err)
	}

	views := make([]models.EventView, 0, len(list))
	for _, event := range list {
		views = append(views, models.NewEventView(event))
	}

	return &EventListResponse{
		AttemptID:      attemptID,
		Events:         views,
		TotalEvents:    len(views),
		Warnings:       attempt.Warnings,
		SuspicionScore: attempt.SuspicionScore,
	}, nil
}

func (s *proctoringService) CanMonitor(ctx context.Context, actor Actor, attemptID string) error {
	attempt, quiz, err := getAttemptWithQuiz(ctx, s.repo, s.db, attemptID)
	if err != nil {
		return err
	}
	return checkGuards(requireOwnerOrQuizCreator(actor, attempt, quiz, "monitor"))
}

// decodeSnapshot accepts raw base64 or a data URL such as "data:image/png;base64,...."
func decodeSnapshot(payload string) ([]byte, string, error) {
	contentType := "image/jpeg"
	encoded := payload

	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", ErrInvalidSnapshot
		}
		if mediaType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"); mediaType != "" {
			contentType = mediaType
		}
		encoded = body
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) == 0 {
		return nil, "", ErrInvalidSnapshot
	}
	return data, contentType, nil
}
