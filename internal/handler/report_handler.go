package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

// ReportHandler handles postponement request endpoints.
type ReportHandler struct {
	service  *service.ReportService
	teachers *service.TeacherService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc *service.ReportService, teachers *service.TeacherService) *ReportHandler {
	return &ReportHandler{service: svc, teachers: teachers}
}

// teacherIDForUser finds the teacher record owned by the authenticated user.
func (h *ReportHandler) teacherIDForUser(c *gin.Context, userID string) (string, bool) {
	teacher, err := h.teachers.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return teacher.ID, true
}

// List godoc
// @Summary List report requests
// @Tags Reports
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param assignment_id query string false "Filter by assignment"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	var filter models.ReportRequestFilter
	filter.TeacherID = c.Query("teacher_id")
	filter.AssignmentID = c.Query("assignment_id")
	filter.Status = models.ReportRequestStatus(strings.ToUpper(c.Query("status")))
	filter.Page, filter.PageSize = pageParams(c)

	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get report request by id
// @Tags Reports
// @Produce json
// @Param id path string true "Report request ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Create godoc
// @Summary File postponement request
// @Description Teachers request moving one of their assignments to another date.
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.ReportRequestInput true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var input service.ReportRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	teacherID, ok := h.teacherIDForUser(c, claims.UserID)
	if !ok {
		return
	}
	input.TeacherID = teacherID

	request, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Approve godoc
// @Summary Approve report request
// @Tags Reports
// @Produce json
// @Param id path string true "Report request ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/approve [post]
func (h *ReportHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject report request
// @Tags Reports
// @Produce json
// @Param id path string true "Report request ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/reject [post]
func (h *ReportHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Withdraw pending report request
// @Tags Reports
// @Param id path string true "Report request ID"
// @Success 204 {object} response.Envelope
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
