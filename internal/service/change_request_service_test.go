package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type changeRequestRepoStub struct {
	requests  map[string]*models.ChangeRequest
	validated *models.Student
	nextID    int
}

func newChangeRequestRepoStub() *changeRequestRepoStub {
	return &changeRequestRepoStub{requests: make(map[string]*models.ChangeRequest)}
}

func (s *changeRequestRepoStub) Create(ctx context.Context, req *models.ChangeRequest) error {
	if req.ID == "" {
		s.nextID++
		req.ID = fmt.Sprintf("req-%d", s.nextID)
	}
	if req.Status == "" {
		req.Status = models.ChangeRequestStatusRequested
	}
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *changeRequestRepoStub) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	if req, ok := s.requests[id]; ok {
		clone := *req
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *changeRequestRepoStub) FindActiveByStudent(ctx context.Context, studentID string) (*models.ChangeRequest, error) {
	for _, req := range s.requests {
		if req.StudentID == studentID && !req.Status.Terminal() {
			clone := *req
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *changeRequestRepoStub) FindLatestByStudent(ctx context.Context, studentID string) (*models.ChangeRequest, error) {
	var latest *models.ChangeRequest
	for _, req := range s.requests {
		if req.StudentID != studentID {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	clone := *latest
	return &clone, nil
}

func (s *changeRequestRepoStub) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	result := make([]models.ChangeRequest, 0, len(s.requests))
	for _, req := range s.requests {
		result = append(result, *req)
	}
	return result, nil
}

func (s *changeRequestRepoStub) UpdateStatus(ctx context.Context, id string, from, to models.ChangeRequestStatus, adminNotes *string) error {
	req, ok := s.requests[id]
	if !ok || req.Status != from {
		return sql.ErrNoRows
	}
	req.Status = to
	if adminNotes != nil {
		req.AdminNotes = adminNotes
	}
	return nil
}

func (s *changeRequestRepoStub) Reject(ctx context.Context, id string, adminNotes *string) error {
	req, ok := s.requests[id]
	if !ok || req.Status.Terminal() {
		return sql.ErrNoRows
	}
	req.Status = models.ChangeRequestStatusRejected
	req.AdminNotes = adminNotes
	return nil
}

func (s *changeRequestRepoStub) SubmitChanges(ctx context.Context, id string, proposed []byte) error {
	req, ok := s.requests[id]
	if !ok || req.Status != models.ChangeRequestStatusEditing {
		return sql.ErrNoRows
	}
	req.Status = models.ChangeRequestStatusReview
	req.ProposedChanges = proposed
	return nil
}

func (s *changeRequestRepoStub) Validate(ctx context.Context, requestID string, student *models.Student) error {
	req, ok := s.requests[requestID]
	if !ok || req.Status != models.ChangeRequestStatusReview {
		return sql.ErrNoRows
	}
	req.Status = models.ChangeRequestStatusApproved
	clone := *student
	s.validated = &clone
	return nil
}

type studentReaderStub struct {
	students map[string]*models.Student
}

func (s *studentReaderStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		clone := *student
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type auditRecorderStub struct {
	entries []*models.AuditLogEntry
}

func (s *auditRecorderStub) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@sekolah.id"}
}

func studentClaims(studentID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, Email: "siswa@sekolah.id", StudentID: &studentID}
}

func newWorkflowFixture() (*ChangeRequestService, *changeRequestRepoStub, *studentReaderStub, *auditRecorderStub) {
	repo := newChangeRequestRepoStub()
	students := &studentReaderStub{students: map[string]*models.Student{
		"student-1": {ID: "student-1", FullName: "Budi Santoso", NISN: "0051234567", Alamat: "Jl. Melati 1"},
	}}
	audit := &auditRecorderStub{}
	svc := NewChangeRequestService(repo, students, audit, nil)
	return svc, repo, students, audit
}

func TestChangeRequestCreateSnapshotsStudent(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture()

	request, err := svc.Create(context.Background(), dto.CreateChangeRequest{
		StudentID: "student-1",
		Reason:    "alamat pindah",
	}, studentClaims("student-1"))

	require.NoError(t, err)
	require.Equal(t, models.ChangeRequestStatusRequested, request.Status)

	var snapshot map[string]string
	require.NoError(t, json.Unmarshal(request.OriginalData, &snapshot))
	require.Equal(t, "Jl. Melati 1", snapshot["alamat"])
	require.Len(t, repo.requests, 1)
}

func TestChangeRequestCreateRejectsSecondActiveRequest(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture()
	actor := studentClaims("student-1")

	_, err := svc.Create(context.Background(), dto.CreateChangeRequest{StudentID: "student-1", Reason: "satu"}, actor)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), dto.CreateChangeRequest{StudentID: "student-1", Reason: "dua"}, actor)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestChangeRequestCreateForbidsOtherStudent(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture()

	_, err := svc.Create(context.Background(), dto.CreateChangeRequest{StudentID: "student-1", Reason: "x"}, studentClaims("student-9"))

	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestChangeRequestSubmitRequiresEditing(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture()
	actor := studentClaims("student-1")

	request, err := svc.Create(context.Background(), dto.CreateChangeRequest{StudentID: "student-1", Reason: "alamat"}, actor)
	require.NoError(t, err)

	// Still REQUESTED, the admin has not opened editing yet.
	_, err = svc.Submit(context.Background(), request.ID, dto.SubmitChangesRequest{
		Changes: map[string]string{"alamat": "Jl. Mawar 2"},
	}, actor)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestChangeRequestFullWorkflow(t *testing.T) {
	svc, repo, _, audit := newWorkflowFixture()
	student := studentClaims("student-1")
	admin := adminClaims()
	ctx := context.Background()

	request, err := svc.Create(ctx, dto.CreateChangeRequest{StudentID: "student-1", Reason: "alamat pindah"}, student)
	require.NoError(t, err)

	request, err = svc.Action(ctx, request.ID, dto.ChangeRequestActionRequest{Action: models.ChangeRequestActionApproveEdit}, admin)
	require.NoError(t, err)
	require.Equal(t, models.ChangeRequestStatusEditing, request.Status)

	request, err = svc.Submit(ctx, request.ID, dto.SubmitChangesRequest{
		Changes: map[string]string{"alamat": "Jl. Mawar 2"},
	}, student)
	require.NoError(t, err)
	require.Equal(t, models.ChangeRequestStatusReview, request.Status)

	request, err = svc.Action(ctx, request.ID, dto.ChangeRequestActionRequest{Action: models.ChangeRequestActionValidate}, admin)
	require.NoError(t, err)
	require.Equal(t, models.ChangeRequestStatusApproved, request.Status)

	require.NotNil(t, repo.validated)
	require.Equal(t, "Jl. Mawar 2", repo.validated.Alamat)
	require.Equal(t, "Budi Santoso", repo.validated.FullName)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	require.Equal(t, models.AuditActionValidateRequest, entry.Action)
	require.Equal(t, "admin@sekolah.id", entry.ActorEmail)
	var changes map[string]models.FieldChange
	require.NoError(t, json.Unmarshal(entry.Changes, &changes))
	require.Equal(t, models.FieldChange{Old: "Jl. Melati 1", New: "Jl. Mawar 2"}, changes["alamat"])
}

func TestChangeRequestValidateRejectsProtectedField(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture()
	admin := adminClaims()
	ctx := context.Background()

	proposed, _ := json.Marshal(map[string]string{"is_verified": "true"})
	repo.requests["req-x"] = &models.ChangeRequest{
		ID:              "req-x",
		StudentID:       "student-1",
		Status:          models.ChangeRequestStatusReview,
		ProposedChanges: proposed,
	}

	_, err := svc.Action(ctx, "req-x", dto.ChangeRequestActionRequest{Action: models.ChangeRequestActionValidate}, admin)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Equal(t, models.ChangeRequestStatusReview, repo.requests["req-x"].Status)
}

func TestChangeRequestRejectFromAnyActiveState(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture()
	student := studentClaims("student-1")
	admin := adminClaims()
	ctx := context.Background()

	request, err := svc.Create(ctx, dto.CreateChangeRequest{StudentID: "student-1", Reason: "x"}, student)
	require.NoError(t, err)

	request, err = svc.Action(ctx, request.ID, dto.ChangeRequestActionRequest{
		Action: models.ChangeRequestActionReject,
		Notes:  "data tidak sesuai",
	}, admin)
	require.NoError(t, err)
	require.Equal(t, models.ChangeRequestStatusRejected, request.Status)
	require.NotNil(t, request.AdminNotes)
	require.Equal(t, "data tidak sesuai", *request.AdminNotes)

	// Terminal requests stay closed.
	_, err = svc.Action(ctx, request.ID, dto.ChangeRequestActionRequest{Action: models.ChangeRequestActionReject}, admin)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestChangeRequestValidateRequiresReview(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture()
	admin := adminClaims()
	ctx := context.Background()

	request, err := svc.Create(ctx, dto.CreateChangeRequest{StudentID: "student-1", Reason: "x"}, admin)
	require.NoError(t, err)

	_, err = svc.Action(ctx, request.ID, dto.ChangeRequestActionRequest{Action: models.ChangeRequestActionValidate}, admin)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestChangeRequestStatusReturnsNilWhenNoneExists(t *testing.T) {
	svc, _, _, _ := newWorkflowFixture()

	request, err := svc.Status(context.Background(), "student-1", adminClaims())

	require.NoError(t, err)
	require.Nil(t, request)
}

func TestChangeRequestListComputesDiff(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture()

	original, _ := json.Marshal(map[string]string{"alamat": "Jl. Melati 1", "full_name": "Budi Santoso"})
	proposed, _ := json.Marshal(map[string]string{"alamat": "Jl. Mawar 2"})
	repo.requests["req-1"] = &models.ChangeRequest{
		ID:              "req-1",
		StudentID:       "student-1",
		Status:          models.ChangeRequestStatusReview,
		OriginalData:    original,
		ProposedChanges: proposed,
	}

	details, err := svc.List(context.Background(), models.ChangeRequestFilter{})
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, models.FieldChange{Old: "Jl. Melati 1", New: "Jl. Mawar 2"}, details[0].Diff["alamat"])
	_, touched := details[0].Diff["full_name"]
	require.False(t, touched)
}
