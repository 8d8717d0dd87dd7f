package models

import "time"

// ScoreCategory distinguishes the supported exam types.
type ScoreCategory string

const (
	ScoreCategoryTKA  ScoreCategory = "TKA"
	ScoreCategoryPDSS ScoreCategory = "PDSS"
)

// Valid returns true when the category is a supported value.
func (c ScoreCategory) Valid() bool {
	return c == ScoreCategoryTKA || c == ScoreCategoryPDSS
}

// ExamScore represents one subject score from a TKA or PDSS test.
type ExamScore struct {
	ID        string        `db:"id" json:"id"`
	StudentID string        `db:"student_id" json:"student_id"`
	Category  ScoreCategory `db:"category" json:"category"`
	Subject   string        `db:"subject" json:"subject"`
	Score     float64       `db:"score" json:"score"`
	ExamDate  *time.Time    `db:"exam_date" json:"exam_date,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// ScoreFilter scopes exam score queries.
type ScoreFilter struct {
	StudentID string
	Category  ScoreCategory
}
