package models

import "time"

// ExportFormat enumerates supported export encodings.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "XLSX"
	ExportFormatCSV  ExportFormat = "CSV"
	ExportFormatPDF  ExportFormat = "PDF"
)

// Valid returns true when the format is supported.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatXLSX, ExportFormatCSV, ExportFormatPDF:
		return true
	default:
		return false
	}
}

// ExportStatus tracks the lifecycle of an export job.
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "PENDING"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusDone       ExportStatus = "DONE"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob records one requested student export.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	Format       ExportFormat `db:"format" json:"format"`
	Status       ExportStatus `db:"status" json:"status"`
	FilePath     *string      `db:"file_path" json:"file_path,omitempty"`
	DownloadURL  *string      `db:"download_url" json:"download_url,omitempty"`
	ExpiresAt    *time.Time   `db:"expires_at" json:"expires_at,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	RequestedBy  string       `db:"requested_by" json:"requested_by"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}
