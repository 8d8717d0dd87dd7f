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

const studentColumns = `id, user_id, nisn, nis, full_name, gender, birth_place, birth_date, religion, nik,
	alamat, rt, rw, dusun, kelurahan, kecamatan, kode_pos, phone, email,
	father_name, father_nik, mother_name, mother_nik, guardian_phone,
	is_verified, verified_at, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("is_verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR nisn LIKE $%d OR nis LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"nisn":       "nisn",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// All returns every student ordered by name, used by export generation.
func (r *StudentRepository) All(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY full_name ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByNISN fetches a student by the national student number.
func (r *StudentRepository) FindByNISN(ctx context.Context, nisn string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE nisn = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, nisn); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByNISN checks if a student with the given NISN exists, optionally excluding an ID.
func (r *StudentRepository) ExistsByNISN(ctx context.Context, nisn string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE nisn = $1"
	args := []interface{}{nisn}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check nisn: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students
	(id, user_id, nisn, nis, full_name, gender, birth_place, birth_date, religion, nik,
	 alamat, rt, rw, dusun, kelurahan, kecamatan, kode_pos, phone, email,
	 father_name, father_nik, mother_name, mother_nik, guardian_phone,
	 is_verified, verified_at, created_at, updated_at)
	VALUES (:id, :user_id, :nisn, :nis, :full_name, :gender, :birth_place, :birth_date, :religion, :nik,
	 :alamat, :rt, :rw, :dusun, :kelurahan, :kecamatan, :kode_pos, :phone, :email,
	 :father_name, :father_nik, :mother_name, :mother_nik, :guardian_phone,
	 :is_verified, :verified_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies the demographic fields of an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET
	nisn = :nisn, nis = :nis, full_name = :full_name, gender = :gender,
	birth_place = :birth_place, birth_date = :birth_date, religion = :religion, nik = :nik,
	alamat = :alamat, rt = :rt, rw = :rw, dusun = :dusun, kelurahan = :kelurahan,
	kecamatan = :kecamatan, kode_pos = :kode_pos, phone = :phone, email = :email,
	father_name = :father_name, father_nik = :father_nik, mother_name = :mother_name,
	mother_nik = :mother_nik, guardian_phone = :guardian_phone, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetVerification toggles the verification flag. Verifying stamps the time,
// resetting clears it.
func (r *StudentRepository) SetVerification(ctx context.Context, id string, verified bool) error {
	var verifiedAt *time.Time
	if verified {
		now := time.Now().UTC()
		verifiedAt = &now
	}
	const query = `UPDATE students SET is_verified = $1, verified_at = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, verified, verifiedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	return requireRowsAffected(result)
}

// Delete removes student rows by ID. Only the dedup cleanup routine and the
// admin delete endpoint call this.
func (r *StudentRepository) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM students WHERE id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete students: %w", err)
	}
	return nil
}

// FindDuplicateNISN groups students sharing a NISN, oldest row first.
func (r *StudentRepository) FindDuplicateNISN(ctx context.Context) ([]models.DuplicateGroup, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
	WHERE nisn IN (SELECT nisn FROM students WHERE nisn <> '' GROUP BY nisn HAVING COUNT(*) > 1)
	ORDER BY nisn, created_at ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("find duplicate nisn: %w", err)
	}

	groups := make([]models.DuplicateGroup, 0)
	index := make(map[string]int)
	for _, s := range students {
		i, ok := index[s.NISN]
		if !ok {
			index[s.NISN] = len(groups)
			groups = append(groups, models.DuplicateGroup{NISN: s.NISN})
			i = len(groups) - 1
		}
		groups[i].Students = append(groups[i].Students, s)
	}
	return groups, nil
}

// Stats aggregates verification counts across all students.
func (r *StudentRepository) Stats(ctx context.Context) (*models.StudentStats, error) {
	const query = `SELECT COUNT(*) AS total,
	COUNT(*) FILTER (WHERE is_verified) AS verified,
	COUNT(*) FILTER (WHERE NOT is_verified) AS unverified
	FROM students`
	var stats models.StudentStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("student stats: %w", err)
	}
	return &stats, nil
}
