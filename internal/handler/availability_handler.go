package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

// AvailabilityHandler handles teacher availability endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// List godoc
// @Summary List availability records
// @Tags Availabilities
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param time_slot_id query string false "Filter by time slot"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /availabilities [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	var filter models.AvailabilityFilter
	filter.TeacherID = c.Query("teacher_id")
	filter.TimeSlotID = c.Query("time_slot_id")
	filter.From = dateQuery(c, "from")
	filter.To = dateQuery(c, "to")
	filter.Page, filter.PageSize = pageParams(c)

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get availability by id
// @Tags Availabilities
// @Produce json
// @Param id path string true "Availability ID"
// @Success 200 {object} response.Envelope
// @Router /availabilities/{id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Create availability record
// @Tags Availabilities
// @Accept json
// @Produce json
// @Param payload body service.AvailabilityRequest true "Availability payload"
// @Success 201 {object} response.Envelope
// @Router /availabilities [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req service.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Update availability record
// @Tags Availabilities
// @Accept json
// @Produce json
// @Param id path string true "Availability ID"
// @Param payload body service.AvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Router /availabilities/{id} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req service.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete availability record
// @Tags Availabilities
// @Param id path string true "Availability ID"
// @Success 204 {object} response.Envelope
// @Router /availabilities/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
