package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

// TimetableHandler serves read-side timetable views and exports.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

func (h *TimetableHandler) window(c *gin.Context) (time.Time, time.Time, bool) {
	fromRaw := c.Query("from")
	toRaw := c.Query("to")
	if fromRaw == "" || toRaw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to query parameters are required"))
		return time.Time{}, time.Time{}, false
	}
	from, err := time.ParseInLocation(dateLayout, fromRaw, time.UTC)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must use the YYYY-MM-DD format"))
		return time.Time{}, time.Time{}, false
	}
	to, err := time.ParseInLocation(dateLayout, toRaw, time.UTC)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must use the YYYY-MM-DD format"))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// respond renders entries as JSON, CSV or PDF depending on the format query.
func (h *TimetableHandler) respond(c *gin.Context, entries []dto.TimetableEntry, title string) {
	switch strings.ToLower(c.Query("format")) {
	case "", "json":
		response.JSON(c, http.StatusOK, entries, nil)
	case "csv":
		data, err := h.service.ExportCSV(entries)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".csv"))
		c.Data(http.StatusOK, "text/csv", data)
	case "pdf":
		data, err := h.service.ExportPDF(entries, title)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".pdf"))
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json, csv or pdf"))
	}
}

// ForGroup godoc
// @Summary Group timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Group ID"
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Param format query string false "Output format (json, csv, pdf)"
// @Success 200 {object} response.Envelope
// @Router /timetables/groups/{id} [get]
func (h *TimetableHandler) ForGroup(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	entries, err := h.service.ForGroup(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, entries, "group-timetable")
}

// ForTeacher godoc
// @Summary Teacher timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Param format query string false "Output format (json, csv, pdf)"
// @Success 200 {object} response.Envelope
// @Router /timetables/teachers/{id} [get]
func (h *TimetableHandler) ForTeacher(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	entries, err := h.service.ForTeacher(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, entries, "teacher-timetable")
}

// ForRoom godoc
// @Summary Room timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Room ID"
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Param format query string false "Output format (json, csv, pdf)"
// @Success 200 {object} response.Envelope
// @Router /timetables/rooms/{id} [get]
func (h *TimetableHandler) ForRoom(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	entries, err := h.service.ForRoom(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, entries, "room-timetable")
}
