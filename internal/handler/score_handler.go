package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/data-siswa-api/internal/dto"
	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
	"github.com/noah-isme/data-siswa-api/pkg/response"
)

type scoreService interface {
	Upsert(ctx context.Context, studentID string, req dto.UpsertScoresRequest) ([]models.ExamScore, error)
	List(ctx context.Context, studentID string, category models.ScoreCategory) ([]models.ExamScore, error)
	Delete(ctx context.Context, studentID, scoreID string) error
}

// ScoreHandler exposes TKA/PDSS score endpoints.
type ScoreHandler struct {
	service scoreService
}

// NewScoreHandler constructs the handler.
func NewScoreHandler(service scoreService) *ScoreHandler {
	return &ScoreHandler{service: service}
}

// List godoc
// @Summary List a student's exam scores
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Param category query string false "TKA or PDSS"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/scores [get]
func (h *ScoreHandler) List(c *gin.Context) {
	category := models.ScoreCategory(strings.ToUpper(c.Query("category")))
	scores, err := h.service.List(c.Request.Context(), c.Param("id"), category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// Upsert godoc
// @Summary Insert or replace exam scores for one category
// @Tags Scores
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpsertScoresRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/scores [put]
func (h *ScoreHandler) Upsert(c *gin.Context) {
	var req dto.UpsertScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid scores payload"))
		return
	}
	scores, err := h.service.Upsert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// Delete godoc
// @Summary Delete one exam score
// @Tags Scores
// @Param id path string true "Student ID"
// @Param scoreId path string true "Score ID"
// @Success 204
// @Router /students/{id}/scores/{scoreId} [delete]
func (h *ScoreHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("scoreId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
