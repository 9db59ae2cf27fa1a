package validator

// SaveAnswerRequest is the autosave payload for one question of an attempt
type SaveAnswerRequest struct {
	QuestionID      string  `json:"questionId" validate:"required"`
	Answer          *string `json:"answer" validate:"required"`
	TimeSpent       *int    `json:"timeSpent" validate:"omitempty,gte=0"`
	MarkedForReview *bool   `json:"markedForReview"`
}

// LogEventRequest is a client reported proctoring event. Timestamp is epoch milliseconds.
type LogEventRequest struct {
	EventType string                 `json:"eventType" validate:"required,proctor_event"`
	Timestamp *int64                 `json:"timestamp" validate:"required"`
	Severity  string                 `json:"severity" validate:"omitempty,severity"`
	Meta      map[string]interface{} `json:"meta"`
}

// FaceDetectionRequest carries the raw detections produced by the client face tracker
type FaceDetectionRequest struct {
	Detections []map[string]interface{} `json:"detections" validate:"required"`
	Confidence *float64                 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	Timestamp  *int64                   `json:"timestamp"`
}

// SnapshotRequest carries a base64 webcam frame, optionally as a data URL
type SnapshotRequest struct {
	Snapshot  string `json:"snapshot" validate:"required"`
	Timestamp *int64 `json:"timestamp" validate:"required"`
}
