package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/data-siswa-api/internal/models"
)

const changeRequestColumns = `id, student_id, status, reason, original_data, proposed_changes, admin_notes, created_at, updated_at`

// ChangeRequestRepository persists change-request workflow data.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

// Create inserts a new change request row. The partial unique index on
// (student_id) for non-terminal statuses rejects a second active request.
func (r *ChangeRequestRepository) Create(ctx context.Context, req *models.ChangeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.ChangeRequestStatusRequested
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO change_requests
	(id, student_id, status, reason, original_data, proposed_changes, admin_notes, created_at, updated_at)
	VALUES (:id, :student_id, :status, :reason, :original_data, :proposed_changes, :admin_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a change request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM change_requests WHERE id = $1`, changeRequestColumns)
	var req models.ChangeRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// FindActiveByStudent returns the student's non-terminal request if one exists.
func (r *ChangeRequestRepository) FindActiveByStudent(ctx context.Context, studentID string) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM change_requests
	WHERE student_id = $1 AND status IN ($2, $3, $4)
	ORDER BY created_at DESC LIMIT 1`, changeRequestColumns)
	var req models.ChangeRequest
	err := r.db.GetContext(ctx, &req, query, studentID,
		models.ChangeRequestStatusRequested,
		models.ChangeRequestStatusEditing,
		models.ChangeRequestStatusReview,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindLatestByStudent returns the most recently created request regardless of
// status, or sql.ErrNoRows when the student never filed one.
func (r *ChangeRequestRepository) FindLatestByStudent(ctx context.Context, studentID string) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM change_requests
	WHERE student_id = $1 ORDER BY created_at DESC LIMIT 1`, changeRequestColumns)
	var req models.ChangeRequest
	if err := r.db.GetContext(ctx, &req, query, studentID); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns change requests matching the filter, most recently updated first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM change_requests", changeRequestColumns))

	conditions := make([]string, 0, 2)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY updated_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus moves a request from one status to another. The expected
// status sits in the WHERE clause so a concurrent transition loses with
// sql.ErrNoRows instead of overwriting.
func (r *ChangeRequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.ChangeRequestStatus, adminNotes *string) error {
	query := `UPDATE change_requests SET status = $1, admin_notes = COALESCE($2, admin_notes), updated_at = $3 WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, to, adminNotes, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update change request status: %w", err)
	}
	return requireRowsAffected(result)
}

// Reject marks any non-terminal request REJECTED and stores the admin notes.
func (r *ChangeRequestRepository) Reject(ctx context.Context, id string, adminNotes *string) error {
	query := `UPDATE change_requests SET status = $1, admin_notes = $2, updated_at = $3
	WHERE id = $4 AND status IN ($5, $6, $7)`
	result, err := r.db.ExecContext(ctx, query,
		models.ChangeRequestStatusRejected, adminNotes, time.Now().UTC(), id,
		models.ChangeRequestStatusRequested,
		models.ChangeRequestStatusEditing,
		models.ChangeRequestStatusReview,
	)
	if err != nil {
		return fmt.Errorf("reject change request: %w", err)
	}
	return requireRowsAffected(result)
}

// SubmitChanges stores the proposed field map and moves EDITING to REVIEW.
func (r *ChangeRequestRepository) SubmitChanges(ctx context.Context, id string, proposed []byte) error {
	query := `UPDATE change_requests SET status = $1, proposed_changes = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query,
		models.ChangeRequestStatusReview, proposed, time.Now().UTC(), id,
		models.ChangeRequestStatusEditing,
	)
	if err != nil {
		return fmt.Errorf("submit change request: %w", err)
	}
	return requireRowsAffected(result)
}

// Validate applies the approved student fields and flips the request from
// REVIEW to APPROVED inside one transaction, so neither write can land
// without the other.
func (r *ChangeRequestRepository) Validate(ctx context.Context, requestID string, student *models.Student) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin validate tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	student.UpdatedAt = time.Now().UTC()
	const studentQuery = `UPDATE students SET
	nisn = :nisn, nis = :nis, full_name = :full_name, gender = :gender,
	birth_place = :birth_place, birth_date = :birth_date, religion = :religion, nik = :nik,
	alamat = :alamat, rt = :rt, rw = :rw, dusun = :dusun, kelurahan = :kelurahan,
	kecamatan = :kecamatan, kode_pos = :kode_pos, phone = :phone, email = :email,
	father_name = :father_name, father_nik = :father_nik, mother_name = :mother_name,
	mother_nik = :mother_nik, guardian_phone = :guardian_phone, updated_at = :updated_at
	WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, studentQuery, student); err != nil {
		return fmt.Errorf("apply proposed changes: %w", err)
	}

	const requestQuery = `UPDATE change_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, requestQuery,
		models.ChangeRequestStatusApproved, time.Now().UTC(), requestID,
		models.ChangeRequestStatusReview,
	)
	if err != nil {
		return fmt.Errorf("approve change request: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit validate tx: %w", err)
	}
	return nil
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
