package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveModel inserts a model or replaces the stored document of an existing id
func (r *Repository) SaveModel(rec *ModelRecord) error {
	stmt, err := r.db.GetPreparedStatement("upsert_model")
	if err != nil {
		return err
	}

	rec.UpdatedAt = time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	_, err = stmt.Exec(rec.ID, rec.Name, rec.Version, rec.Kind, rec.Document, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	return nil
}

// GetModel returns the model with the given id
func (r *Repository) GetModel(id string) (*ModelRecord, error) {
	stmt, err := r.db.GetPreparedStatement("get_model")
	if err != nil {
		return nil, err
	}

	rec, err := scanModel(stmt.QueryRow(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("model", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	return rec, nil
}

// GetModelByName returns the model registered under name
func (r *Repository) GetModelByName(name string) (*ModelRecord, error) {
	rec, err := scanModel(r.db.QueryRow(`
		SELECT id, name, version, kind, document, created_at, updated_at
		FROM models WHERE name = ?
	`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("model", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model by name: %w", err)
	}

	return rec, nil
}

// ListModels returns every registered model ordered by name
func (r *Repository) ListModels() ([]*ModelRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, name, version, kind, document, created_at, updated_at
		FROM models ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var records []*ModelRecord
	for rows.Next() {
		rec, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteModel removes a model and its evaluation history
func (r *Repository) DeleteModel(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM evaluations WHERE model_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete evaluations: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("model", id)
	}

	return tx.Commit()
}

// RecordEvaluation appends an evaluation audit row
func (r *Repository) RecordEvaluation(rec *EvaluationRecord) error {
	stmt, err := r.db.GetPreparedStatement("insert_evaluation")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(rec.ID, rec.ModelID, rec.Status, rec.DurationUS,
		nullable(rec.Result), nullable(rec.Error), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}

	return nil
}

// ListEvaluations returns the newest evaluations of a model, at most limit rows
func (r *Repository) ListEvaluations(modelID string, limit int) ([]*EvaluationRecord, error) {
	stmt, err := r.db.GetPreparedStatement("list_evaluations")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(modelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var records []*EvaluationRecord
	for rows.Next() {
		var rec EvaluationRecord
		var result, errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ModelID, &rec.Status, &rec.DurationUS,
			&result, &errText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		rec.Result = result.String
		rec.Error = errText.String
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// CountEvaluations returns total and failed evaluation counts for a model
func (r *Repository) CountEvaluations(modelID string) (total int, failed int, err error) {
	err = r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM evaluations WHERE model_id = ?
	`, StatusError, modelID).Scan(&total, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count evaluations: %w", err)
	}

	return total, failed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(row scanner) (*ModelRecord, error) {
	var rec ModelRecord
	var version sql.NullString
	if err := row.Scan(&rec.ID, &rec.Name, &version, &rec.Kind, &rec.Document,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Version = version.String
	return &rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
