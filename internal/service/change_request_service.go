package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type changeRequestStore interface {
	Create(ctx context.Context, req *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	FindActiveByStudent(ctx context.Context, studentID string) (*models.ChangeRequest, error)
	FindLatestByStudent(ctx context.Context, studentID string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ChangeRequestStatus, adminNotes *string) error
	Reject(ctx context.Context, id string, adminNotes *string) error
	SubmitChanges(ctx context.Context, id string, proposed []byte) error
	Validate(ctx context.Context, requestID string, student *models.Student) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
}

// ChangeRequestService drives the student data change workflow.
type ChangeRequestService struct {
	requests changeRequestStore
	students studentReader
	audit    auditAppender
	logger   *zap.Logger
}

// NewChangeRequestService constructs the service.
func NewChangeRequestService(requests changeRequestStore, students studentReader, audit auditAppender, logger *zap.Logger) *ChangeRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeRequestService{requests: requests, students: students, audit: audit, logger: logger}
}

// Create opens a new request in REQUESTED, snapshotting the student record.
// A student may only file for their own record, and at most one non-terminal
// request may exist per student.
func (s *ChangeRequestService) Create(ctx context.Context, req dto.CreateChangeRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if strings.TrimSpace(req.StudentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	if err := s.requireOwnership(actor, req.StudentID); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}

	if _, err := s.requests.FindActiveByStudent(ctx, req.StudentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active change request")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check active request")
	}

	snapshot, err := json.Marshal(StudentFieldMap(student))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "snapshot student")
	}

	request := &models.ChangeRequest{
		StudentID:    req.StudentID,
		Status:       models.ChangeRequestStatusRequested,
		Reason:       strings.TrimSpace(req.Reason),
		OriginalData: snapshot,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		// The partial unique index closes the race between the active
		// check above and the insert.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active change request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create change request")
	}

	s.logger.Info("change request created",
		zap.String("request_id", request.ID),
		zap.String("student_id", request.StudentID))
	return request, nil
}

// Action applies an admin decision to a request.
func (s *ChangeRequestService) Action(ctx context.Context, requestID string, req dto.ChangeRequestActionRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load change request")
	}

	var notes *string
	if trimmed := strings.TrimSpace(req.Notes); trimmed != "" {
		notes = &trimmed
	}

	switch req.Action {
	case models.ChangeRequestActionApproveEdit:
		return s.approveEdit(ctx, request, notes)
	case models.ChangeRequestActionValidate:
		return s.validate(ctx, request, actor)
	case models.ChangeRequestActionReject:
		return s.reject(ctx, request, notes)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action: %s", req.Action))
	}
}

func (s *ChangeRequestService) approveEdit(ctx context.Context, request *models.ChangeRequest, notes *string) (*models.ChangeRequest, error) {
	if request.Status != models.ChangeRequestStatusRequested {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only REQUESTED requests can be approved for editing")
	}
	err := s.requests.UpdateStatus(ctx, request.ID, models.ChangeRequestStatusRequested, models.ChangeRequestStatusEditing, notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "approve edit")
	}
	return s.requests.GetByID(ctx, request.ID)
}

func (s *ChangeRequestService) validate(ctx context.Context, request *models.ChangeRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if request.Status != models.ChangeRequestStatusReview {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only requests in REVIEW can be validated")
	}
	if len(request.ProposedChanges) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request has no proposed changes")
	}

	var changes map[string]string
	if err := json.Unmarshal(request.ProposedChanges, &changes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decode proposed changes")
	}

	student, err := s.students.FindByID(ctx, request.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}

	updated := *student
	if err := ApplyStudentChanges(&updated, changes); err != nil {
		return nil, err
	}
	diff := DiffStudents(student, &updated)

	if err := s.requests.Validate(ctx, request.ID, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "validate change request")
	}

	if len(diff) > 0 {
		s.writeAudit(ctx, &updated, actor, models.AuditActionValidateRequest, diff)
	}

	s.logger.Info("change request validated",
		zap.String("request_id", request.ID),
		zap.String("student_id", request.StudentID),
		zap.Int("changed_fields", len(diff)))
	return s.requests.GetByID(ctx, request.ID)
}

func (s *ChangeRequestService) reject(ctx context.Context, request *models.ChangeRequest, notes *string) (*models.ChangeRequest, error) {
	if request.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is already closed")
	}
	if err := s.requests.Reject(ctx, request.ID, notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reject change request")
	}
	return s.requests.GetByID(ctx, request.ID)
}

// Submit stores the student's proposed field map and moves the request from
// EDITING to REVIEW. Submitting from REQUESTED is rejected; the admin must
// approve editing first.
func (s *ChangeRequestService) Submit(ctx context.Context, requestID string, req dto.SubmitChangesRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if len(req.Changes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "changes must not be empty")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load change request")
	}
	if err := s.requireOwnership(actor, request.StudentID); err != nil {
		return nil, err
	}
	if request.Status != models.ChangeRequestStatusEditing {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "changes can only be submitted while the request is in EDITING")
	}

	student, err := s.students.FindByID(ctx, request.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	scratch := *student
	if err := ApplyStudentChanges(&scratch, req.Changes); err != nil {
		return nil, err
	}

	proposed, err := json.Marshal(req.Changes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode proposed changes")
	}
	if err := s.requests.SubmitChanges(ctx, request.ID, proposed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "submit changes")
	}
	return s.requests.GetByID(ctx, request.ID)
}

// Status returns the student's most recent request, or nil when none exists.
// Students may only query their own status.
func (s *ChangeRequestService) Status(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if err := s.requireOwnership(actor, studentID); err != nil {
		return nil, err
	}
	request, err := s.requests.FindLatestByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load latest request")
	}
	return request, nil
}

// List returns requests matching the filter, decorated with the computed
// diff for requests that already carry proposed changes.
func (s *ChangeRequestService) List(ctx context.Context, filter models.ChangeRequestFilter) ([]dto.ChangeRequestDetail, error) {
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list change requests")
	}
	details := make([]dto.ChangeRequestDetail, 0, len(requests))
	for i := range requests {
		details = append(details, s.detail(&requests[i]))
	}
	return details, nil
}

// Get returns one request with its diff.
func (s *ChangeRequestService) Get(ctx context.Context, requestID string) (*dto.ChangeRequestDetail, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load change request")
	}
	detail := s.detail(request)
	return &detail, nil
}

// detail computes the review diff against the snapshot taken at creation
// time, so reviewers see exactly what would change if they validate.
func (s *ChangeRequestService) detail(request *models.ChangeRequest) dto.ChangeRequestDetail {
	detail := dto.ChangeRequestDetail{ChangeRequest: *request}
	if len(request.ProposedChanges) == 0 || len(request.OriginalData) == 0 {
		return detail
	}
	var original, proposed map[string]string
	if err := json.Unmarshal(request.OriginalData, &original); err != nil {
		s.logger.Warn("corrupt original snapshot", zap.String("request_id", request.ID), zap.Error(err))
		return detail
	}
	if err := json.Unmarshal(request.ProposedChanges, &proposed); err != nil {
		s.logger.Warn("corrupt proposed changes", zap.String("request_id", request.ID), zap.Error(err))
		return detail
	}
	after := make(map[string]string, len(original))
	for k, v := range original {
		after[k] = v
	}
	for k, v := range proposed {
		after[k] = v
	}
	detail.Diff = DiffFieldMaps(original, after)
	return detail
}

func (s *ChangeRequestService) requireOwnership(actor *models.JWTClaims, studentID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.StudentID == nil || *actor.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only act on their own record")
	}
	return nil
}

func (s *ChangeRequestService) writeAudit(ctx context.Context, student *models.Student, actor *models.JWTClaims, action string, diff map[string]models.FieldChange) {
	payload, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("encode audit changes", zap.Error(err))
		return
	}
	entry := &models.AuditLogEntry{
		StudentID:   student.ID,
		StudentName: student.FullName,
		ActorEmail:  actorEmail(actor),
		Action:      action,
		Changes:     payload,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append audit entry", zap.Error(err), zap.String("student_id", student.ID))
	}
}

func actorEmail(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.Email
}
