package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

// GeneratorHandler exposes automatic timetable generation.
type GeneratorHandler struct {
	service     *service.GeneratorService
	invalidator *service.TimetableService
}

// NewGeneratorHandler constructs a generator handler.
func NewGeneratorHandler(svc *service.GeneratorService, timetables *service.TimetableService) *GeneratorHandler {
	return &GeneratorHandler{service: svc, invalidator: timetables}
}

// Generate godoc
// @Summary Generate assignments
// @Description Run the automatic generator over a date window. Only one run executes at a time.
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAssignmentsRequest true "Generation window"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /assignments/generate [post]
func (h *GeneratorHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GenerateAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.AdminID = claims.UserID

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.invalidator != nil {
		h.invalidator.InvalidateAll(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}
