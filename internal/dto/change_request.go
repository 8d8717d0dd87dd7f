package dto

import "github.com/noah-isme/data-siswa-api/internal/models"

// CreateChangeRequest payload for opening a student data change request.
type CreateChangeRequest struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// ChangeRequestActionRequest captures the reviewer decision.
type ChangeRequestActionRequest struct {
	Action models.ChangeRequestAction `json:"action"`
	Notes  string                     `json:"notes"`
}

// SubmitChangesRequest carries the student's proposed field map.
type SubmitChangesRequest struct {
	Changes map[string]string `json:"changes"`
}

// ChangeRequestDetail decorates a request with the computed diff for review.
type ChangeRequestDetail struct {
	models.ChangeRequest
	Diff map[string]models.FieldChange `json:"diff,omitempty"`
}
