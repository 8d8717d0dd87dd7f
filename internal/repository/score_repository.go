package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/data-siswa-api/internal/models"
)

// ScoreRepository manages persistence for TKA/PDSS exam scores.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs the repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Upsert inserts or replaces one score keyed by (student, category, subject).
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.ExamScore) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now
	const query = `INSERT INTO exam_scores (id, student_id, category, subject, score, exam_date, created_at, updated_at)
	VALUES (:id, :student_id, :category, :subject, :score, :exam_date, :created_at, :updated_at)
	ON CONFLICT (student_id, category, subject)
	DO UPDATE SET score = EXCLUDED.score, exam_date = EXCLUDED.exam_date, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("upsert exam score: %w", err)
	}
	return nil
}

// ListByStudent returns a student's scores, optionally filtered by category.
func (r *ScoreRepository) ListByStudent(ctx context.Context, filter models.ScoreFilter) ([]models.ExamScore, error) {
	query := `SELECT id, student_id, category, subject, score, exam_date, created_at, updated_at
	FROM exam_scores WHERE student_id = $1`
	args := []interface{}{filter.StudentID}
	if filter.Category != "" {
		query += " AND category = $2"
		args = append(args, filter.Category)
	}
	query += " ORDER BY category, subject"

	var scores []models.ExamScore
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, fmt.Errorf("list exam scores: %w", err)
	}
	return scores, nil
}

// Delete removes one score for a student.
func (r *ScoreRepository) Delete(ctx context.Context, studentID, scoreID string) error {
	const query = `DELETE FROM exam_scores WHERE id = $1 AND student_id = $2`
	result, err := r.db.ExecContext(ctx, query, scoreID, studentID)
	if err != nil {
		return fmt.Errorf("delete exam score: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
