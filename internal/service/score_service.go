package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type scoreStore interface {
	Upsert(ctx context.Context, score *models.ExamScore) error
	ListByStudent(ctx context.Context, filter models.ScoreFilter) ([]models.ExamScore, error)
	Delete(ctx context.Context, studentID, scoreID string) error
}

// ScoreService manages TKA and PDSS exam scores per student.
type ScoreService struct {
	scores   scoreStore
	students studentReader
	validate *validator.Validate
	logger   *zap.Logger
}

// NewScoreService constructs the service.
func NewScoreService(scores scoreStore, students studentReader, logger *zap.Logger) *ScoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreService{scores: scores, students: students, validate: validator.New(), logger: logger}
}

// Upsert inserts or replaces the scores for one category, keyed by subject.
func (s *ScoreService) Upsert(ctx context.Context, studentID string, req dto.UpsertScoresRequest) ([]models.ExamScore, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scores payload")
	}
	if !req.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown score category: %s", req.Category))
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}

	saved := make([]models.ExamScore, 0, len(req.Scores))
	for _, entry := range req.Scores {
		score := models.ExamScore{
			StudentID: studentID,
			Category:  req.Category,
			Subject:   entry.Subject,
			Score:     entry.Score,
			ExamDate:  entry.ExamDate,
		}
		if err := s.scores.Upsert(ctx, &score); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "save score")
		}
		saved = append(saved, score)
	}
	return saved, nil
}

// List returns a student's scores, optionally limited to one category.
func (s *ScoreService) List(ctx context.Context, studentID string, category models.ScoreCategory) ([]models.ExamScore, error) {
	if category != "" && !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown score category: %s", category))
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	scores, err := s.scores.ListByStudent(ctx, models.ScoreFilter{StudentID: studentID, Category: category})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list scores")
	}
	return scores, nil
}

// Delete removes one score row.
func (s *ScoreService) Delete(ctx context.Context, studentID, scoreID string) error {
	if err := s.scores.Delete(ctx, studentID, scoreID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "score not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete score")
	}
	return nil
}
