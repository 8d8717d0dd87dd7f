package dto

import "github.com/noah-isme/data-siswa-api/internal/models"

// CreateExportRequest asks for a student export in the given format.
type CreateExportRequest struct {
	Format models.ExportFormat `json:"format"`
}
