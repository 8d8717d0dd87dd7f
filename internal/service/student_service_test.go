package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type studentRepoStub struct {
	students   map[string]*models.Student
	duplicates []models.DuplicateGroup
	deleted    []string
	stats      models.StudentStats
	statsCalls int
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: make(map[string]*models.Student)}
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	result := make([]models.Student, 0, len(s.students))
	for _, student := range s.students {
		result = append(result, *student)
	}
	return result, len(result), nil
}

func (s *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		clone := *student
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) ExistsByNISN(ctx context.Context, nisn, excludeID string) (bool, error) {
	for _, student := range s.students {
		if student.NISN == nisn && student.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "student-new"
	}
	clone := *student
	s.students[student.ID] = &clone
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	clone := *student
	s.students[student.ID] = &clone
	return nil
}

func (s *studentRepoStub) SetVerification(ctx context.Context, id string, verified bool) error {
	student, ok := s.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.IsVerified = verified
	if verified {
		now := time.Now()
		student.VerifiedAt = &now
	} else {
		student.VerifiedAt = nil
	}
	return nil
}

func (s *studentRepoStub) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(s.students, id)
		s.deleted = append(s.deleted, id)
	}
	return nil
}

func (s *studentRepoStub) FindDuplicateNISN(ctx context.Context) ([]models.DuplicateGroup, error) {
	return s.duplicates, nil
}

func (s *studentRepoStub) Stats(ctx context.Context) (*models.StudentStats, error) {
	s.statsCalls++
	stats := s.stats
	return &stats, nil
}

func TestStudentUpdateWritesAuditDiff(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students["student-1"] = &models.Student{
		ID: "student-1", NISN: "0051234567", FullName: "Budi Santoso", Gender: "L", Alamat: "Jl. Melati 1",
	}
	audit := &auditRecorderStub{}
	svc := NewStudentService(repo, audit, nil, time.Minute, nil)

	payload := dto.StudentPayload{NISN: "0051234567", FullName: "Budi Santoso", Gender: "L", Alamat: "Jl. Mawar 2"}
	updated, err := svc.Update(context.Background(), "student-1", payload, adminClaims())

	require.NoError(t, err)
	require.Equal(t, "Jl. Mawar 2", updated.Alamat)
	require.Len(t, audit.entries, 1)
	require.Equal(t, models.AuditActionUpdate, audit.entries[0].Action)

	var changes map[string]models.FieldChange
	require.NoError(t, json.Unmarshal(audit.entries[0].Changes, &changes))
	require.Equal(t, models.FieldChange{Old: "Jl. Melati 1", New: "Jl. Mawar 2"}, changes["alamat"])
}

func TestStudentUpdateNoOpSkipsAudit(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students["student-1"] = &models.Student{
		ID: "student-1", NISN: "0051234567", FullName: "Budi Santoso", Gender: "L",
	}
	audit := &auditRecorderStub{}
	svc := NewStudentService(repo, audit, nil, time.Minute, nil)

	payload := dto.StudentPayload{NISN: "0051234567", FullName: "Budi Santoso", Gender: "L"}
	_, err := svc.Update(context.Background(), "student-1", payload, adminClaims())

	require.NoError(t, err)
	require.Empty(t, audit.entries)
}

func TestStudentCreateRejectsDuplicateNISN(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students["student-1"] = &models.Student{ID: "student-1", NISN: "0051234567", FullName: "Budi", Gender: "L"}
	svc := NewStudentService(repo, &auditRecorderStub{}, nil, time.Minute, nil)

	_, err := svc.Create(context.Background(), dto.StudentPayload{NISN: "0051234567", FullName: "Lain", Gender: "P"})

	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentVerifyForbidsOtherStudent(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students["student-1"] = &models.Student{ID: "student-1", NISN: "1", FullName: "Budi", Gender: "L"}
	svc := NewStudentService(repo, &auditRecorderStub{}, nil, time.Minute, nil)

	_, err := svc.Verify(context.Background(), "student-1", studentClaims("student-2"))

	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStudentResetVerificationAuditsAndClearsFlag(t *testing.T) {
	now := time.Now()
	repo := newStudentRepoStub()
	repo.students["student-1"] = &models.Student{
		ID: "student-1", NISN: "1", FullName: "Budi", Gender: "L", IsVerified: true, VerifiedAt: &now,
	}
	audit := &auditRecorderStub{}
	svc := NewStudentService(repo, audit, nil, time.Minute, nil)

	student, err := svc.ResetVerification(context.Background(), "student-1", adminClaims())

	require.NoError(t, err)
	require.False(t, student.IsVerified)
	require.Nil(t, student.VerifiedAt)
	require.Len(t, audit.entries, 1)
	require.Equal(t, models.AuditActionResetVerification, audit.entries[0].Action)
}

func TestStudentDedupKeepsOldestRow(t *testing.T) {
	repo := newStudentRepoStub()
	oldest := models.Student{ID: "student-1", NISN: "0051234567", FullName: "Budi"}
	newer := models.Student{ID: "student-2", NISN: "0051234567", FullName: "Budi S"}
	repo.students["student-1"] = &oldest
	repo.students["student-2"] = &newer
	repo.duplicates = []models.DuplicateGroup{{NISN: "0051234567", Students: []models.Student{oldest, newer}}}
	audit := &auditRecorderStub{}
	svc := NewStudentService(repo, audit, nil, time.Minute, nil)

	summary, err := svc.DedupCleanup(context.Background(), adminClaims())

	require.NoError(t, err)
	require.Equal(t, 1, summary.Deleted)
	require.Equal(t, []string{"student-1"}, summary.Kept)
	require.Equal(t, []string{"student-2"}, repo.deleted)
	require.Len(t, audit.entries, 1)
	require.Equal(t, models.AuditActionDedupDelete, audit.entries[0].Action)
}

func TestStudentStatsServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := newStudentRepoStub()
	repo.stats = models.StudentStats{Total: 10, Verified: 6, Unverified: 4}
	svc := NewStudentService(repo, &auditRecorderStub{}, client, time.Minute, nil)

	first, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, first.Total)

	second, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.statsCalls)
}

func TestStudentDeleteInvalidatesStatsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := newStudentRepoStub()
	repo.students["student-1"] = &models.Student{ID: "student-1", NISN: "1", FullName: "Budi"}
	repo.stats = models.StudentStats{Total: 1}
	svc := NewStudentService(repo, &auditRecorderStub{}, client, time.Minute, nil)

	_, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(statsCacheKey))

	require.NoError(t, svc.Delete(context.Background(), "student-1"))
	require.False(t, mr.Exists(statsCacheKey))
}
