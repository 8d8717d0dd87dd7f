package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
	"github.com/noah-isme/data-siswa-api/pkg/export"
	"github.com/noah-isme/data-siswa-api/pkg/jobs"
	"github.com/noah-isme/data-siswa-api/pkg/storage"
)

const exportJobType = "students_export"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id, filePath, downloadURL string, expiresAt time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
}

type studentLister interface {
	All(ctx context.Context) ([]models.Student, error)
	ExistsByNISN(ctx context.Context, nisn string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
}

type enqueuer interface {
	Enqueue(job jobs.Job) error
}

// ExportService generates student exports asynchronously and handles
// spreadsheet imports.
type ExportService struct {
	jobs          exportJobStore
	students      studentLister
	audit         auditAppender
	queue         enqueuer
	store         *storage.LocalStorage
	signer        *storage.SignedURLSigner
	xlsx          *export.XLSXExporter
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	maxImportRows int
	logger        *zap.Logger
}

// NewExportService constructs the service. The queue may be nil in tests, in
// which case Request returns an error when enqueueing.
func NewExportService(jobsRepo exportJobStore, students studentLister, audit auditAppender, queue enqueuer, store *storage.LocalStorage, signer *storage.SignedURLSigner, maxImportRows int, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		jobs:          jobsRepo,
		students:      students,
		audit:         audit,
		queue:         queue,
		store:         store,
		signer:        signer,
		xlsx:          export.NewXLSXExporter(),
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		maxImportRows: maxImportRows,
		logger:        logger,
	}
}

// Request creates a PENDING export job and queues it for generation.
func (s *ExportService) Request(ctx context.Context, req dto.CreateExportRequest, actor *models.JWTClaims) (*models.ExportJob, error) {
	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", req.Format))
	}
	job := &models.ExportJob{
		Format:      req.Format,
		Status:      models.ExportStatusPending,
		RequestedBy: actorEmail(actor),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: exportJobType}); err != nil {
		s.markFailed(ctx, job.ID, "queue full")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enqueue export job")
	}
	s.logger.Info("export job queued", zap.String("job_id", job.ID), zap.String("format", string(job.Format)))
	return job, nil
}

// Job returns the current state of an export job.
func (s *ExportService) Job(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load export job")
	}
	return job, nil
}

// HandleJob is the queue handler that renders and stores the export file.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != exportJobType {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	record, err := s.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}
	if err := s.jobs.MarkProcessing(ctx, record.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	data, err := s.render(ctx, record.Format)
	if err != nil {
		s.markFailed(ctx, record.ID, err.Error())
		return err
	}

	filename := fmt.Sprintf("students-%s-%s.%s", record.ID, time.Now().UTC().Format("20060102-150405"), strings.ToLower(string(record.Format)))
	relPath, err := s.store.Save(filename, data)
	if err != nil {
		s.markFailed(ctx, record.ID, "store file")
		return fmt.Errorf("save export file: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(record.ID, relPath)
	if err != nil {
		s.markFailed(ctx, record.ID, "sign download url")
		return fmt.Errorf("sign export url: %w", err)
	}
	downloadURL := "/api/v1/export/" + token

	if err := s.jobs.MarkDone(ctx, record.ID, relPath, downloadURL, expiresAt); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	s.logger.Info("export job completed",
		zap.String("job_id", record.ID),
		zap.String("format", string(record.Format)),
		zap.String("file", relPath))
	return nil
}

// Download validates a signed token and opens the referenced file.
func (s *ExportService) Download(ctx context.Context, token string) (*os.File, *models.ExportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != models.ExportStatusDone {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export is not ready")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, job, nil
}

// CleanupExpired removes export files older than the retention window.
func (s *ExportService) CleanupExpired(ttl time.Duration) {
	removed, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
}

// Import reads an XLSX upload and creates the students it contains.
// Rows with an already-known NISN are skipped; malformed rows are reported
// without aborting the rest of the file.
func (s *ExportService) Import(ctx context.Context, r io.Reader, actor *models.JWTClaims) (*dto.ImportSummary, error) {
	data, err := export.ParseXLSX(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable spreadsheet")
	}
	if s.maxImportRows > 0 && len(data.Rows) > s.maxImportRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds the %d row limit", s.maxImportRows))
	}

	summary := &dto.ImportSummary{}
	for i, row := range data.Rows {
		// Spreadsheet rows are 1-based and the first row holds headers.
		rowNum := i + 2
		student := models.Student{}
		if err := ApplyStudentChanges(&student, normalizeImportRow(row)); err != nil {
			summary.Errors = append(summary.Errors, dto.ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		if student.NISN == "" || student.FullName == "" {
			summary.Errors = append(summary.Errors, dto.ImportRowError{Row: rowNum, Message: "nisn and full_name are required"})
			continue
		}
		exists, err := s.students.ExistsByNISN(ctx, student.NISN, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check nisn")
		}
		if exists {
			summary.Skipped++
			continue
		}
		if err := s.students.Create(ctx, &student); err != nil {
			summary.Errors = append(summary.Errors, dto.ImportRowError{Row: rowNum, Message: "could not save row"})
			s.logger.Warn("import row failed", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		s.writeImportAudit(ctx, &student, actor)
		summary.Imported++
	}
	return summary, nil
}

func (s *ExportService) render(ctx context.Context, format models.ExportFormat) ([]byte, error) {
	students, err := s.students.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	data := export.Dataset{Headers: StudentFieldNames()}
	data.Rows = make([]map[string]string, 0, len(students))
	for i := range students {
		data.Rows = append(data.Rows, StudentFieldMap(&students[i]))
	}

	switch format {
	case models.ExportFormatXLSX:
		return s.xlsx.Render(data)
	case models.ExportFormatCSV:
		return s.csv.Render(data)
	case models.ExportFormatPDF:
		return s.pdf.Render(data, "Data Siswa")
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func (s *ExportService) markFailed(ctx context.Context, id, message string) {
	if err := s.jobs.MarkFailed(ctx, id, message); err != nil {
		s.logger.Error("mark export failed", zap.Error(err), zap.String("job_id", id))
	}
}

func (s *ExportService) writeImportAudit(ctx context.Context, student *models.Student, actor *models.JWTClaims) {
	entry := &models.AuditLogEntry{
		StudentID:   student.ID,
		StudentName: student.FullName,
		ActorEmail:  actorEmail(actor),
		Action:      models.AuditActionImport,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append import audit entry", zap.Error(err), zap.String("student_id", student.ID))
	}
}

// normalizeImportRow maps common spreadsheet header spellings onto the
// canonical field names. Columns that match no known field are dropped so a
// stray "No." column does not poison the whole file.
func normalizeImportRow(row map[string]string) map[string]string {
	aliases := map[string]string{
		"nama":          "full_name",
		"nama_lengkap":  "full_name",
		"jenis_kelamin": "gender",
		"tempat_lahir":  "birth_place",
		"tanggal_lahir": "birth_date",
		"agama":         "religion",
		"no_hp":         "phone",
		"telepon":       "phone",
	}
	normalized := make(map[string]string, len(row))
	for key, value := range row {
		name := strings.ToLower(strings.TrimSpace(key))
		name = strings.ReplaceAll(name, " ", "_")
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		if _, known := studentFields[name]; !known {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		normalized[name] = value
	}
	return normalized
}
