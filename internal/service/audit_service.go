package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type auditStore interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLogEntry, error)
}

// AuditService exposes read access to the append-only audit log.
type AuditService struct {
	audit  auditStore
	logger *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(audit auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{audit: audit, logger: logger}
}

// List returns audit entries matching the filter, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLogEntry, error) {
	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list audit entries")
	}
	return entries, nil
}
