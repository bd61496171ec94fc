package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

// ConflictHandler handles conflict endpoints.
type ConflictHandler struct {
	service *service.ConflictService
}

// NewConflictHandler constructs a conflict handler.
func NewConflictHandler(svc *service.ConflictService) *ConflictHandler {
	return &ConflictHandler{service: svc}
}

// List godoc
// @Summary List conflicts
// @Tags Conflicts
// @Produce json
// @Param type query string false "Filter by type (ROOM, TEACHER, GROUP)"
// @Param resolved query bool false "Filter by resolution state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	var filter models.ConflictFilter
	filter.Type = models.ConflictType(strings.ToUpper(c.Query("type")))
	filter.Resolved = boolQuery(c, "resolved")
	filter.Page, filter.PageSize = pageParams(c)

	conflicts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, pagination)
}

// Get godoc
// @Summary Get conflict by id
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id} [get]
func (h *ConflictHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Preview godoc
// @Summary Preview conflict detection
// @Description Scan active assignments in the window without persisting anything.
// @Tags Conflicts
// @Produce json
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /conflicts/detect [get]
func (h *ConflictHandler) Preview(c *gin.Context) {
	from := dateQuery(c, "from")
	to := dateQuery(c, "to")
	if from == nil || to == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to must use the YYYY-MM-DD format"))
		return
	}

	candidates, err := h.service.Preview(c.Request.Context(), *from, *to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Detect godoc
// @Summary Run conflict detection
// @Description Scan active assignments in the window and persist new conflicts.
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body object true "Detection window"
// @Success 200 {object} response.Envelope
// @Router /conflicts/detect [post]
func (h *ConflictHandler) Detect(c *gin.Context) {
	var payload struct {
		DateFrom string `json:"date_from" binding:"required"`
		DateTo   string `json:"date_to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date_from and date_to required"))
		return
	}
	from, err := time.ParseInLocation(dateLayout, payload.DateFrom, time.UTC)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_from must use the YYYY-MM-DD format"))
		return
	}
	to, err := time.ParseInLocation(dateLayout, payload.DateTo, time.UTC)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_to must use the YYYY-MM-DD format"))
		return
	}

	conflicts, err := h.service.Detect(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// Resolve godoc
// @Summary Resolve conflict
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id}/resolve [post]
func (h *ConflictHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	conflict, err := h.service.Resolve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}
