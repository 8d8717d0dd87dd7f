package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionUpdate            = "UPDATE"
	AuditActionValidateRequest   = "VALIDATE_CHANGE_REQUEST"
	AuditActionResetVerification = "RESET_VERIFICATION"
	AuditActionImport            = "IMPORT"
	AuditActionDedupDelete       = "DEDUP_DELETE"
)

// FieldChange holds the before/after values of one student field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// AuditLogEntry is an append-only record of a student data change. Changes
// is a JSON object mapping field name to FieldChange. StudentName snapshots
// the name at write time so entries stay readable after later edits.
type AuditLogEntry struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	ActorEmail  string    `db:"actor_email" json:"actor_email"`
	Action      string    `db:"action" json:"action"`
	Changes     []byte    `db:"changes" json:"changes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter narrows audit listing queries.
type AuditLogFilter struct {
	StudentID string
	Action    string
	Limit     int
	Offset    int
}
