package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
	"github.com/noah-isme/data-siswa-api/pkg/response"
)

type changeRequestService interface {
	Create(ctx context.Context, req dto.CreateChangeRequest, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Action(ctx context.Context, requestID string, req dto.ChangeRequestActionRequest, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Submit(ctx context.Context, requestID string, req dto.SubmitChangesRequest, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Status(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]dto.ChangeRequestDetail, error)
	Get(ctx context.Context, requestID string) (*dto.ChangeRequestDetail, error)
}

// ChangeRequestHandler exposes the change-request workflow endpoints.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Create godoc
// @Summary Open a change request for a student record
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateChangeRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req dto.CreateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// List godoc
// @Summary List change requests
// @Tags ChangeRequests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param studentId query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	filter := models.ChangeRequestFilter{
		StudentID: strings.TrimSpace(c.Query("studentId")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.ChangeRequestStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.ChangeRequestStatus(part))
		}
		filter.Status = statuses
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get one change request with its computed diff
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Action godoc
// @Summary Apply an admin decision (APPROVE_EDIT, VALIDATE, REJECT)
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ChangeRequestActionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/action [post]
func (h *ChangeRequestHandler) Action(c *gin.Context) {
	var req dto.ChangeRequestActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid action payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Action(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Submit godoc
// @Summary Submit proposed field changes for review
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.SubmitChangesRequest true "Proposed changes"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/submit [post]
func (h *ChangeRequestHandler) Submit(c *gin.Context) {
	var req dto.SubmitChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submit payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Submit(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Status godoc
// @Summary Latest change request for a student, null when none exists
// @Tags ChangeRequests
// @Produce json
// @Param studentId query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /requests/status [get]
func (h *ChangeRequestHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Status(c.Request.Context(), c.Query("studentId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
