package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/modelscore/internal/database"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/evaluator"
	"github.com/ZanzyTHEbar/modelscore/internal/field"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/monitoring"
	"github.com/google/uuid"
)

const (
	DefaultEvaluationLimit = 50
	MaxEvaluationLimit     = 500
)

// Repository persists registered models and the evaluation audit log
type Repository interface {
	SaveModel(rec *database.ModelRecord) error
	GetModelByName(name string) (*database.ModelRecord, error)
	ListModels() ([]*database.ModelRecord, error)
	DeleteModel(id string) error
	RecordEvaluation(rec *database.EvaluationRecord) error
	ListEvaluations(modelID string, limit int) ([]*database.EvaluationRecord, error)
	CountEvaluations(modelID string) (total int, failed int, err error)
}

// ModelInfo describes a loaded model
type ModelInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Version   string     `json:"version,omitempty"`
	Kind      model.Kind `json:"kind"`
	Target    string     `json:"target"`
	Fields    []string   `json:"fields"`
	Outputs   []string   `json:"outputs,omitempty"`
	Forecasts bool       `json:"forecasts"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Evaluation is the outcome of scoring one record
type Evaluation struct {
	ModelID    string         `json:"model_id"`
	Results    map[string]any `json:"results"`
	DurationUS int64          `json:"duration_us"`
}

type entry struct {
	info     ModelInfo
	model    *evaluator.Model
	preparer *field.Preparer
}

// Service keeps the loaded-evaluator table and routes records to it
type Service struct {
	repo    Repository
	metrics *monitoring.Metrics
	logger  *monitoring.Logger

	mu     sync.RWMutex
	models map[string]*entry

	// OnChange is called with a model id after it is replaced or removed
	OnChange func(modelID string)
}

// NewService creates a scoring service
func NewService(repo Repository, metrics *monitoring.Metrics, logger *monitoring.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		models:  make(map[string]*entry),
	}
}

// Register validates doc, builds its evaluator and persists it. The id is
// taken from the document, else from an existing model of the same name,
// else generated. Registering an existing id replaces that model.
func (s *Service) Register(doc *model.Document) (*ModelInfo, error) {
	if err := model.Validate(doc); err != nil {
		return nil, err
	}

	m, err := evaluator.New(doc, false)
	if err != nil {
		return nil, err
	}

	id, err := s.resolveID(doc)
	if err != nil {
		return nil, err
	}
	doc.ID = id

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}

	rec := database.NewModelRecord(id, doc.Name, doc.Version, string(doc.Kind), string(encoded))
	s.mu.RLock()
	if existing, ok := s.models[id]; ok {
		rec.CreatedAt = existing.info.CreatedAt
	}
	s.mu.RUnlock()

	if err := s.repo.SaveModel(rec); err != nil {
		return nil, err
	}

	info := s.install(rec, m)
	s.logger.ModelLogger("registered", id, doc.Name, string(doc.Kind))
	s.changed(id)

	return &info, nil
}

func (s *Service) resolveID(doc *model.Document) (string, error) {
	existing, err := s.repo.GetModelByName(doc.Name)
	if err != nil && !apperrors.IsCategory(err, apperrors.CategoryNotFound) {
		return "", err
	}

	switch {
	case existing != nil && doc.ID != "" && existing.ID != doc.ID:
		return "", apperrors.NewValidationErrorWithMap(map[string]string{
			"name": fmt.Sprintf("already registered as model %s", existing.ID),
		})
	case doc.ID != "":
		return doc.ID, nil
	case existing != nil:
		return existing.ID, nil
	default:
		return uuid.New().String(), nil
	}
}

func (s *Service) install(rec *database.ModelRecord, m *evaluator.Model) ModelInfo {
	doc := m.Document()

	info := ModelInfo{
		ID:        rec.ID,
		Name:      doc.Name,
		Version:   doc.Version,
		Kind:      doc.Kind,
		Target:    m.TargetName(),
		Fields:    make([]string, 0, len(doc.DataFields)),
		Forecasts: doc.Kind == model.KindTimeSeries,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	for _, def := range doc.DataFields {
		info.Fields = append(info.Fields, def.Name)
	}
	for _, out := range doc.Output {
		info.Outputs = append(info.Outputs, out.Name)
	}

	s.mu.Lock()
	s.models[rec.ID] = &entry{info: info, model: m, preparer: field.NewPreparer(doc.DataFields)}
	loaded := len(s.models)
	s.mu.Unlock()

	s.metrics.SetModelsLoaded(loaded)
	return info
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.models[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("model", id)
	}
	return e, nil
}

func (s *Service) changed(id string) {
	if s.OnChange != nil {
		s.OnChange(id)
	}
}

// Get returns a loaded model's description and document
func (s *Service) Get(id string) (*ModelInfo, *model.Document, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	info := e.info
	return &info, e.model.Document(), nil
}

// List returns every loaded model ordered by name
func (s *Service) List() []ModelInfo {
	s.mu.RLock()
	infos := make([]ModelInfo, 0, len(s.models))
	for _, e := range s.models {
		infos = append(infos, e.info)
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Remove unloads a model and deletes it with its evaluation history
func (s *Service) Remove(id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteModel(id); err != nil && !apperrors.IsCategory(err, apperrors.CategoryNotFound) {
		return err
	}

	s.mu.Lock()
	delete(s.models, id)
	loaded := len(s.models)
	s.mu.Unlock()

	s.metrics.SetModelsLoaded(loaded)
	s.logger.ModelLogger("removed", id, e.info.Name, string(e.info.Kind))
	s.changed(id)

	return nil
}

// Evaluate prepares raw against the model's field declarations and scores it.
// Every attempt past lookup is recorded in the audit log.
func (s *Service) Evaluate(id string, raw map[string]any) (*Evaluation, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	flat, err := s.score(e, raw)
	duration := time.Since(start)

	kind := string(e.info.Kind)
	s.metrics.RecordEvaluation(kind, duration, err != nil)
	s.logger.EvaluationLogger(id, kind, duration, err)
	s.audit(id, duration, flat, err)

	if err != nil {
		return nil, err
	}

	return &Evaluation{ModelID: id, Results: flat, DurationUS: duration.Microseconds()}, nil
}

func (s *Service) score(e *entry, raw map[string]any) (map[string]any, error) {
	record, err := e.preparer.Prepare(raw)
	if err != nil {
		return nil, err
	}

	results, err := e.model.Evaluate(record)
	if err != nil {
		return nil, err
	}

	return evaluator.Flatten(results), nil
}

func (s *Service) audit(id string, duration time.Duration, flat map[string]any, evalErr error) {
	var result string
	if evalErr == nil {
		encoded, err := json.Marshal(flat)
		if err != nil {
			s.logger.Warn("Failed to encode evaluation result", "model_id", id, "error", err)
		} else {
			result = string(encoded)
		}
	}

	if err := s.repo.RecordEvaluation(database.NewEvaluationRecord(id, duration, result, evalErr)); err != nil {
		s.logger.Error("Failed to record evaluation", "model_id", id, "error", err)
	}
}

// Forecast projects a time-series model horizon steps ahead
func (s *Service) Forecast(id string, horizon int) ([]float64, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.model.Forecast(horizon)
}

// Evaluations returns the newest audited evaluations of a loaded model.
// limit is clamped to [1, MaxEvaluationLimit]; zero means the default.
func (s *Service) Evaluations(id string, limit int) ([]*database.EvaluationRecord, error) {
	if _, err := s.lookup(id); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = DefaultEvaluationLimit
	case limit > MaxEvaluationLimit:
		limit = MaxEvaluationLimit
	}

	records, err := s.repo.ListEvaluations(id, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*database.EvaluationRecord{}
	}
	return records, nil
}

// Usage returns the audited evaluation counts of a loaded model
func (s *Service) Usage(id string) (map[string]int, error) {
	if _, err := s.lookup(id); err != nil {
		return nil, err
	}

	total, failed, err := s.repo.CountEvaluations(id)
	if err != nil {
		return nil, err
	}

	return map[string]int{
		"total":  total,
		"failed": failed,
	}, nil
}

// LoadAll rebuilds the evaluator table from the repository. Documents that
// no longer decode or build are skipped and reported in the returned error.
func (s *Service) LoadAll() (int, error) {
	records, err := s.repo.ListModels()
	if err != nil {
		return 0, err
	}

	var errs []error
	loaded := 0
	for _, rec := range records {
		doc, err := model.Decode([]byte(rec.Document), model.FormatJSON)
		if err == nil {
			var m *evaluator.Model
			if m, err = evaluator.New(doc, false); err == nil {
				s.install(rec, m)
				s.logger.ModelLogger("loaded", rec.ID, rec.Name, rec.Kind)
				loaded++
				continue
			}
		}
		s.logger.Warn("Skipping stored model", "model_id", rec.ID, "name", rec.Name, "error", err)
		errs = append(errs, fmt.Errorf("model %s: %w", rec.Name, err))
	}

	return loaded, errors.Join(errs...)
}

// LoadDirectory registers every document in store
func (s *Service) LoadDirectory(store *model.Store) (int, error) {
	names, err := store.List()
	if err != nil {
		return 0, err
	}

	var errs []error
	loaded := 0
	for _, name := range names {
		doc, err := store.Load(name)
		if err == nil {
			if _, err = s.Register(doc); err == nil {
				loaded++
				continue
			}
		}
		s.logger.Warn("Skipping model file", "name", name, "dir", store.Dir(), "error", err)
		errs = append(errs, fmt.Errorf("model file %s: %w", name, err))
	}

	return loaded, errors.Join(errs...)
}

// Stats returns loaded model counts by kind
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKind := make(map[string]int)
	for _, e := range s.models {
		byKind[string(e.info.Kind)]++
	}

	return map[string]interface{}{
		"models_loaded": len(s.models),
		"by_kind":       byKind,
	}
}
