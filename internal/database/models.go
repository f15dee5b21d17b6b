package database

import (
	"time"

	"github.com/google/uuid"
)

// ModelRecord is a registered model document
type ModelRecord struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Version   string    `json:"version,omitempty" db:"version"`
	Kind      string    `json:"kind" db:"kind"`
	Document  string    `json:"-" db:"document"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EvaluationRecord is one audited evaluation
type EvaluationRecord struct {
	ID         string    `json:"id" db:"id"`
	ModelID    string    `json:"model_id" db:"model_id"`
	Status     string    `json:"status" db:"status"`
	DurationUS int64     `json:"duration_us" db:"duration_us"`
	Result     string    `json:"result,omitempty" db:"result"`
	Error      string    `json:"error,omitempty" db:"error"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// NewModelRecord creates a model record, generating an ID when id is empty
func NewModelRecord(id, name, version, kind, document string) *ModelRecord {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	return &ModelRecord{
		ID:        id,
		Name:      name,
		Version:   version,
		Kind:      kind,
		Document:  document,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewEvaluationRecord creates an audit row; a non-nil err marks it failed
func NewEvaluationRecord(modelID string, duration time.Duration, result string, err error) *EvaluationRecord {
	rec := &EvaluationRecord{
		ID:         uuid.New().String(),
		ModelID:    modelID,
		Status:     StatusOK,
		DurationUS: duration.Microseconds(),
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		rec.Status = StatusError
		rec.Error = err.Error()
		rec.Result = ""
	}
	return rec
}
