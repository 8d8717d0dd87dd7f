package dto

import (
	"time"

	"github.com/noah-isme/data-siswa-api/internal/models"
)

// ScoreEntry is one subject score in a batch upsert.
type ScoreEntry struct {
	Subject  string     `json:"subject" validate:"required"`
	Score    float64    `json:"score" validate:"gte=0,lte=1000"`
	ExamDate *time.Time `json:"exam_date"`
}

// UpsertScoresRequest replaces or inserts scores for one category.
type UpsertScoresRequest struct {
	Category models.ScoreCategory `json:"category" validate:"required"`
	Scores   []ScoreEntry         `json:"scores" validate:"required,min=1,dive"`
}
