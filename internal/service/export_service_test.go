package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
	"github.com/noah-isme/data-siswa-api/pkg/export"
	"github.com/noah-isme/data-siswa-api/pkg/jobs"
	"github.com/noah-isme/data-siswa-api/pkg/storage"
)

type exportJobStoreStub struct {
	records map[string]*models.ExportJob
	nextID  int
	failed  map[string]string
}

func newExportJobStoreStub() *exportJobStoreStub {
	return &exportJobStoreStub{records: map[string]*models.ExportJob{}, failed: map[string]string{}}
}

func (s *exportJobStoreStub) Create(_ context.Context, job *models.ExportJob) error {
	s.nextID++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", s.nextID)
	}
	copied := *job
	s.records[job.ID] = &copied
	return nil
}

func (s *exportJobStoreStub) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (s *exportJobStoreStub) MarkProcessing(_ context.Context, id string) error {
	s.records[id].Status = models.ExportStatusProcessing
	return nil
}

func (s *exportJobStoreStub) MarkDone(_ context.Context, id, filePath, downloadURL string, expiresAt time.Time) error {
	job := s.records[id]
	job.Status = models.ExportStatusDone
	job.FilePath = &filePath
	job.DownloadURL = &downloadURL
	job.ExpiresAt = &expiresAt
	return nil
}

func (s *exportJobStoreStub) MarkFailed(_ context.Context, id, message string) error {
	s.records[id].Status = models.ExportStatusFailed
	s.failed[id] = message
	return nil
}

type studentListerStub struct {
	students []models.Student
	created  []models.Student
}

func (s *studentListerStub) All(context.Context) ([]models.Student, error) {
	return s.students, nil
}

func (s *studentListerStub) ExistsByNISN(_ context.Context, nisn, _ string) (bool, error) {
	for _, st := range s.students {
		if st.NISN == nisn {
			return true, nil
		}
	}
	return false, nil
}

func (s *studentListerStub) Create(_ context.Context, student *models.Student) error {
	s.created = append(s.created, *student)
	return nil
}

type queueStub struct {
	enqueued []jobs.Job
	err      error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newExportFixture(t *testing.T, queue *queueStub) (*ExportService, *exportJobStoreStub, *studentListerStub, *auditRecorderStub) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	jobsRepo := newExportJobStoreStub()
	students := &studentListerStub{students: []models.Student{
		{ID: "student-1", NISN: "0051234567", FullName: "Budi Santoso"},
	}}
	audit := &auditRecorderStub{}
	svc := NewExportService(jobsRepo, students, audit, queue, store, signer, 100, nil)
	return svc, jobsRepo, students, audit
}

func TestExportRequestQueuesPendingJob(t *testing.T) {
	queue := &queueStub{}
	svc, repo, _, _ := newExportFixture(t, queue)

	job, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: models.ExportFormatXLSX}, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, models.ExportStatusPending, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
	_, stored := repo.records[job.ID]
	assert.True(t, stored)
}

func TestExportRequestRejectsUnknownFormat(t *testing.T) {
	svc, _, _, _ := newExportFixture(t, &queueStub{})

	_, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: "DOCX"}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportRequestMarksJobFailedWhenQueueFull(t *testing.T) {
	queue := &queueStub{err: fmt.Errorf("queue full")}
	svc, repo, _, _ := newExportFixture(t, queue)

	_, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: models.ExportFormatCSV}, adminClaims())
	require.Error(t, err)

	require.Len(t, repo.records, 1)
	for _, job := range repo.records {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportHandleJobProducesDownloadableFile(t *testing.T) {
	queue := &queueStub{}
	svc, repo, _, _ := newExportFixture(t, queue)

	job, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: models.ExportFormatXLSX}, adminClaims())
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(context.Background(), queue.enqueued[0]))

	record := repo.records[job.ID]
	require.Equal(t, models.ExportStatusDone, record.Status)
	require.NotNil(t, record.DownloadURL)
	require.True(t, strings.HasPrefix(*record.DownloadURL, "/api/v1/export/"))

	token := strings.TrimPrefix(*record.DownloadURL, "/api/v1/export/")
	file, downloaded, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, job.ID, downloaded.ID)

	buf := &bytes.Buffer{}
	_, err = buf.ReadFrom(file)
	require.NoError(t, err)
	parsed, err := export.ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "Budi Santoso", parsed.Rows[0]["full_name"])
}

func TestExportHandleJobRejectsUnknownType(t *testing.T) {
	svc, _, _, _ := newExportFixture(t, &queueStub{})

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Type: "mystery"})
	require.Error(t, err)
}

func TestExportDownloadRejectsTamperedToken(t *testing.T) {
	queue := &queueStub{}
	svc, repo, _, _ := newExportFixture(t, queue)

	job, err := svc.Request(context.Background(), dto.CreateExportRequest{Format: models.ExportFormatCSV}, adminClaims())
	require.NoError(t, err)
	require.NoError(t, svc.HandleJob(context.Background(), queue.enqueued[0]))

	token := strings.TrimPrefix(*repo.records[job.ID].DownloadURL, "/api/v1/export/")
	_, _, err = svc.Download(context.Background(), token+"00")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func importWorkbook(t *testing.T, headers []string, rows ...map[string]string) *bytes.Reader {
	t.Helper()
	data := export.Dataset{Headers: headers, Rows: rows}
	rendered, err := export.NewXLSXExporter().Render(data)
	require.NoError(t, err)
	return bytes.NewReader(rendered)
}

func TestImportCreatesSkipsAndReports(t *testing.T) {
	svc, _, students, audit := newExportFixture(t, &queueStub{})

	upload := importWorkbook(t,
		[]string{"No.", "nisn", "Nama", "tanggal_lahir"},
		map[string]string{"No.": "1", "nisn": "0059876543", "Nama": "Siti Rahayu", "tanggal_lahir": "2005-04-12"},
		map[string]string{"No.": "2", "nisn": "0051234567", "Nama": "Budi Santoso"},
		map[string]string{"No.": "3", "nisn": "0050001111", "Nama": "Andi Wijaya", "tanggal_lahir": "12/04/2005"},
	)

	summary, err := svc.Import(context.Background(), upload, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 4, summary.Errors[0].Row)

	require.Len(t, students.created, 1)
	assert.Equal(t, "Siti Rahayu", students.created[0].FullName)
	require.NotNil(t, students.created[0].BirthDate)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionImport, audit.entries[0].Action)
}

func TestImportEnforcesRowLimit(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(newExportJobStoreStub(), &studentListerStub{}, &auditRecorderStub{}, &queueStub{}, store, signer, 1, nil)

	upload := importWorkbook(t,
		[]string{"nisn", "nama"},
		map[string]string{"nisn": "0051", "nama": "A"},
		map[string]string{"nisn": "0052", "nama": "B"},
	)

	_, err = svc.Import(context.Background(), upload, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
