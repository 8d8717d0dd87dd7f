package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	"github.com/noah-isme/data-siswa-api/pkg/ai"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

type completionProvider interface {
	Complete(ctx context.Context, systemPrompt string, history []ai.Message, message string) (string, error)
}

const chatSystemPrompt = `Kamu adalah asisten data siswa untuk sekolah menengah atas di Indonesia.
Jawab pertanyaan tentang data siswa, proses verifikasi, nilai TKA dan PDSS, serta alur pengajuan perubahan data.
Jawab singkat, sopan, dan dalam bahasa yang sama dengan pertanyaan.
Jangan mengarang data yang tidak kamu ketahui.`

// ChatService answers questions about student data through the assistant.
type ChatService struct {
	assistant completionProvider
	students  studentReader
	logger    *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(assistant completionProvider, students studentReader, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{assistant: assistant, students: students, logger: logger}
}

// Chat forwards the user message to the assistant. Student users get their
// own record embedded in the system prompt so answers can reference it.
func (s *ChatService) Chat(ctx context.Context, req dto.ChatRequest, actor *models.JWTClaims) (*dto.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message is required")
	}

	prompt := chatSystemPrompt
	if actor != nil && actor.Role == models.RoleStudent && actor.StudentID != nil {
		if extra := s.studentContext(ctx, *actor.StudentID); extra != "" {
			prompt = prompt + "\n\n" + extra
		}
	}

	reply, err := s.assistant.Complete(ctx, prompt, req.History, req.Message)
	if err != nil {
		s.logger.Error("assistant completion failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "assistant unavailable")
	}
	return &dto.ChatResponse{Reply: reply}, nil
}

func (s *ChatService) studentContext(ctx context.Context, studentID string) string {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("load student for chat context failed", zap.Error(err), zap.String("student_id", studentID))
		}
		return ""
	}
	status := "belum terverifikasi"
	if student.IsVerified {
		status = "sudah terverifikasi"
	}
	return fmt.Sprintf("Konteks siswa yang sedang bertanya: nama %s, NISN %s, status data %s.",
		student.FullName, student.NISN, status)
}
