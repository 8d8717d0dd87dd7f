package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
	"github.com/noah-isme/data-siswa-api/pkg/response"
)

type chatService interface {
	Chat(ctx context.Context, req dto.ChatRequest, actor *models.JWTClaims) (*dto.ChatResponse, error)
}

// ChatHandler exposes the assistant endpoint.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs the handler.
func NewChatHandler(service chatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Chat godoc
// @Summary Ask the student-data assistant a question
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.ChatRequest true "Message and optional history"
// @Success 200 {object} response.Envelope
// @Router /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "chat assistant not configured"))
		return
	}
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid chat payload"))
		return
	}
	reply, err := h.service.Chat(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply, nil)
}
