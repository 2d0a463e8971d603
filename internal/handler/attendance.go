package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hrm/internal/apperr"
	"hrm/internal/attendance"
)

func (h *Handler) listAttendance(c *gin.Context) {
	list, err := h.Attendance.List(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (h *Handler) markAttendance(c *gin.Context) {
	var req attendance.MarkInput
	if !bind(c, &req) {
		return
	}
	rec, err := h.Attendance.Mark(c.Request.Context(), caller(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) getAttendance(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rec, err := h.Attendance.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// myAttendance answers with the whole company for admins and with the
// caller's own month otherwise. month and year default to the current ones.
func (h *Handler) myAttendance(c *gin.Context) {
	now := time.Now()
	month, ok := intQuery(c, "month", int(now.Month()))
	if !ok {
		return
	}
	year, ok := intQuery(c, "year", now.Year())
	if !ok {
		return
	}

	me := caller(c)
	ctx := c.Request.Context()
	if me.IsAdmin {
		report, err := h.Attendance.CompanyReport(ctx, me, year, month)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}
	report, err := h.Attendance.MyReport(ctx, me, year, month)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, apperr.Validation("Invalid month or year"))
		return 0, false
	}
	return n, true
}
