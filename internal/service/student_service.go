package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

const statsCacheKey = "students:stats"

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByNISN(ctx context.Context, nisn string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetVerification(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, ids []string) error
	FindDuplicateNISN(ctx context.Context) ([]models.DuplicateGroup, error)
	Stats(ctx context.Context) (*models.StudentStats, error)
}

// StudentService manages student records, verification, and dedup cleanup.
type StudentService struct {
	students      studentStore
	audit         auditAppender
	cache         *redis.Client
	validate      *validator.Validate
	statsCacheTTL time.Duration
	logger        *zap.Logger
}

// NewStudentService constructs the service. The cache client may be nil, in
// which case stats are always read from the database.
func NewStudentService(students studentStore, audit auditAppender, cache *redis.Client, statsCacheTTL time.Duration, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:      students,
		audit:         audit,
		cache:         cache,
		validate:      validator.New(),
		statsCacheTTL: statsCacheTTL,
		logger:        logger,
	}
}

// List returns students matching the filter plus the total count.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list students")
	}
	return students, total, nil
}

// Get fetches one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	return student, nil
}

// Create inserts a new student. NISN must be unique.
func (s *StudentService) Create(ctx context.Context, payload dto.StudentPayload) (*models.Student, error) {
	if err := s.validate.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.students.ExistsByNISN(ctx, payload.NISN, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check nisn")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this NISN already exists")
	}

	student := &models.Student{}
	applyPayload(student, payload)
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create student")
	}
	s.invalidateStats(ctx)
	return student, nil
}

// Update applies a direct admin edit and records the field-level diff in the
// audit log. A no-op save writes no audit entry.
func (s *StudentService) Update(ctx context.Context, id string, payload dto.StudentPayload, actor *models.JWTClaims) (*models.Student, error) {
	if err := s.validate.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payload.NISN != before.NISN {
		exists, err := s.students.ExistsByNISN(ctx, payload.NISN, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check nisn")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this NISN already exists")
		}
	}

	after := *before
	applyPayload(&after, payload)
	diff := DiffStudents(before, &after)

	if err := s.students.Update(ctx, &after); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update student")
	}
	if len(diff) > 0 {
		s.writeAudit(ctx, &after, actor, models.AuditActionUpdate, diff)
	}
	return &after, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.students.Delete(ctx, []string{id}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete student")
	}
	s.invalidateStats(ctx)
	return nil
}

// Verify marks the student record as verified. Students may verify their own
// record; admins may verify any.
func (s *StudentService) Verify(ctx context.Context, id string, actor *models.JWTClaims) (*models.Student, error) {
	if actor != nil && actor.Role == models.RoleStudent {
		if actor.StudentID == nil || *actor.StudentID != id {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only verify their own record")
		}
	}
	if err := s.students.SetVerification(ctx, id, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "verify student")
	}
	s.invalidateStats(ctx)
	return s.Get(ctx, id)
}

// ResetVerification clears the verified flag and writes an audit entry.
// Admin only; enforced again here in case a route is miswired.
func (s *StudentService) ResetVerification(ctx context.Context, id string, actor *models.JWTClaims) (*models.Student, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.students.SetVerification(ctx, id, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reset verification")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, student, actor, models.AuditActionResetVerification, nil)
	s.invalidateStats(ctx)
	return student, nil
}

// DedupCleanup deletes all but the oldest student in every duplicate NISN
// group and records each deletion in the audit log.
func (s *StudentService) DedupCleanup(ctx context.Context, actor *models.JWTClaims) (*dto.DedupSummary, error) {
	groups, err := s.students.FindDuplicateNISN(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find duplicates")
	}
	summary := &dto.DedupSummary{Groups: len(groups)}
	toDelete := make([]string, 0)
	for _, group := range groups {
		if len(group.Students) < 2 {
			continue
		}
		// FindDuplicateNISN orders oldest first; the original row wins.
		summary.Kept = append(summary.Kept, group.Students[0].ID)
		for i := 1; i < len(group.Students); i++ {
			dup := group.Students[i]
			toDelete = append(toDelete, dup.ID)
			s.writeAudit(ctx, &dup, actor, models.AuditActionDedupDelete, nil)
		}
	}
	if len(toDelete) > 0 {
		if err := s.students.Delete(ctx, toDelete); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete duplicates")
		}
		s.invalidateStats(ctx)
	}
	summary.Deleted = len(toDelete)
	return summary, nil
}

// Stats returns the verification counters, served from Redis when fresh.
func (s *StudentService) Stats(ctx context.Context) (*models.StudentStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, statsCacheKey).Result()
		if err == nil {
			var stats models.StudentStats
			if jsonErr := json.Unmarshal([]byte(cached), &stats); jsonErr == nil {
				return &stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.students.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load stats")
	}
	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, payload, s.statsCacheTTL).Err(); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

func (s *StudentService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *StudentService) writeAudit(ctx context.Context, student *models.Student, actor *models.JWTClaims, action string, diff map[string]models.FieldChange) {
	var payload []byte
	if len(diff) > 0 {
		encoded, err := json.Marshal(diff)
		if err != nil {
			s.logger.Error("encode audit changes", zap.Error(err))
			return
		}
		payload = encoded
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

func applyPayload(student *models.Student, payload dto.StudentPayload) {
	student.NISN = strings.TrimSpace(payload.NISN)
	student.NIS = strings.TrimSpace(payload.NIS)
	student.FullName = strings.TrimSpace(payload.FullName)
	student.Gender = payload.Gender
	student.BirthPlace = payload.BirthPlace
	student.BirthDate = payload.BirthDate
	student.Religion = payload.Religion
	student.NIK = payload.NIK
	student.Alamat = payload.Alamat
	student.RT = payload.RT
	student.RW = payload.RW
	student.Dusun = payload.Dusun
	student.Kelurahan = payload.Kelurahan
	student.Kecamatan = payload.Kecamatan
	student.KodePos = payload.KodePos
	student.Phone = payload.Phone
	student.Email = payload.Email
	student.FatherName = payload.FatherName
	student.FatherNIK = payload.FatherNIK
	student.MotherName = payload.MotherName
	student.MotherNIK = payload.MotherNIK
	student.GuardianPhone = payload.GuardianPhone
}
