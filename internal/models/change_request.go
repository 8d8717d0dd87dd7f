package models

import "time"

// ChangeRequestStatus captures workflow states for student data changes.
type ChangeRequestStatus string

const (
	ChangeRequestStatusRequested ChangeRequestStatus = "REQUESTED"
	ChangeRequestStatusEditing   ChangeRequestStatus = "EDITING"
	ChangeRequestStatusReview    ChangeRequestStatus = "REVIEW"
	ChangeRequestStatusApproved  ChangeRequestStatus = "APPROVED"
	ChangeRequestStatusRejected  ChangeRequestStatus = "REJECTED"
)

// Terminal reports whether the status ends the workflow.
func (s ChangeRequestStatus) Terminal() bool {
	return s == ChangeRequestStatusApproved || s == ChangeRequestStatusRejected
}

// NonTerminalStatuses lists the states that block a new request for the
// same student.
func NonTerminalStatuses() []ChangeRequestStatus {
	return []ChangeRequestStatus{
		ChangeRequestStatusRequested,
		ChangeRequestStatusEditing,
		ChangeRequestStatusReview,
	}
}

// ChangeRequestAction enumerates reviewer operations.
type ChangeRequestAction string

const (
	ChangeRequestActionApproveEdit ChangeRequestAction = "APPROVE_EDIT"
	ChangeRequestActionValidate    ChangeRequestAction = "VALIDATE"
	ChangeRequestActionReject      ChangeRequestAction = "REJECT"
)

// ChangeRequest stores a student's ask to modify their own record.
// OriginalData holds the full student snapshot taken at creation time and is
// never rewritten; ProposedChanges is the submitted field map set when the
// request moves to REVIEW.
type ChangeRequest struct {
	ID              string              `db:"id" json:"id"`
	StudentID       string              `db:"student_id" json:"student_id"`
	Status          ChangeRequestStatus `db:"status" json:"status"`
	Reason          string              `db:"reason" json:"reason"`
	OriginalData    []byte              `db:"original_data" json:"original_data"`
	ProposedChanges []byte              `db:"proposed_changes" json:"proposed_changes,omitempty"`
	AdminNotes      *string             `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	StudentID string
	Status    []ChangeRequestStatus
	Limit     int
	Offset    int
}
