package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hrm/internal/apperr"
	"hrm/internal/employee"
)

func (h *Handler) listCompanies(c *gin.Context) {
	list, err := h.Employees.Companies(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (h *Handler) getCompany(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	co, err := h.Employees.Company(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func (h *Handler) listEmployees(c *gin.Context) {
	list, err := h.Employees.List(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEmployees(list))
}

func (h *Handler) createEmployee(c *gin.Context) {
	var req employee.NewEmployee
	if !bind(c, &req) {
		return
	}
	emp, err := h.Employees.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewEmployee(emp))
}

func (h *Handler) getEmployee(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	emp, err := h.Employees.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEmployee(emp))
}

func (h *Handler) employeeAttendance(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	list, err := h.Attendance.ForEmployee(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (h *Handler) employeeLeaves(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	list, err := h.Leaves.ForEmployee(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (h *Handler) toggleAdmin(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	emp, err := h.Employees.ToggleAdmin(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Employee is now an admin"
	if !emp.IsAdmin {
		msg = "Employee is now not an admin"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "is_admin": emp.IsAdmin})
}

func (h *Handler) getProfile(c *gin.Context) {
	emp, err := h.Employees.Profile(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEmployee(emp))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var patch employee.ProfilePatch
	if !bind(c, &patch) {
		return
	}
	emp, err := h.Employees.UpdateProfile(c.Request.Context(), caller(c), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEmployee(emp))
}

const maxAvatarBytes = 5 << 20

// uploadAvatar accepts a multipart "file" field or {"data": "<data URL>"}.
func (h *Handler) uploadAvatar(c *gin.Context) {
	if h.Avatars == nil || !h.Avatars.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	ctx := c.Request.Context()
	var (
		url string
		err error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			fail(c, apperr.Validation("file field required"))
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
		if ferr != nil {
			fail(c, ferr)
			return
		}
		if len(data) > maxAvatarBytes {
			fail(c, apperr.Validation("file too large"))
			return
		}
		res, uerr := h.Avatars.UploadBytes(ctx, data, header.Filename)
		if res != nil {
			url = res.SecureURL
		}
		err = uerr
	} else {
		var body struct {
			Data string `json:"data"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil || body.Data == "" {
			fail(c, apperr.Validation(`provide {"data": "<base64 data URL>"}`))
			return
		}
		res, uerr := h.Avatars.UploadBase64(ctx, body.Data)
		if res != nil {
			url = res.SecureURL
		}
		err = uerr
	}
	if err != nil {
		slog.Warn("avatar upload failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	if url == "" {
		fail(c, errors.New("avatar upload returned no url"))
		return
	}

	emp, err := h.Employees.SetProfilePicture(ctx, caller(c), url)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewEmployee(emp))
}
