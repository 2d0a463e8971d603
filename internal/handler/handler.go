// Package handler exposes the services over HTTP with gin.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hrm/internal/account"
	"hrm/internal/apperr"
	"hrm/internal/attendance"
	"hrm/internal/auth"
	"hrm/internal/cloudinary"
	"hrm/internal/employee"
	"hrm/internal/httpmiddleware"
	"hrm/internal/invitation"
	"hrm/internal/leave"
	"hrm/internal/model"
)

// Avatars stores uploaded profile pictures.
type Avatars interface {
	Configured() bool
	UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
	UploadBase64(ctx context.Context, data string) (*cloudinary.UploadResult, error)
}

// Handler holds the services behind the API.
type Handler struct {
	Accounts    *account.Service
	Employees   *employee.Service
	Attendance  *attendance.Service
	Leaves      *leave.Service
	Invitations *invitation.Service
	Avatars     Avatars

	// Gate authenticates every route outside /api/auth and the public
	// invitation endpoints.
	Gate gin.HandlerFunc
}

// Register mounts all routes under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	a := api.Group("/auth")
	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/logout", h.logout)
	a.POST("/token/refresh", h.refresh)
	a.POST("/forgot-password", h.forgotPassword)
	a.POST("/verify-otp", h.verifyOTP)
	a.POST("/reset-password", h.resetPassword)

	api.GET("/invitations/verify", h.verifyInvitation)
	api.POST("/invitations/accept", h.acceptInvitation)

	authed := api.Group("", h.Gate)

	authed.GET("/companies", h.listCompanies)
	authed.GET("/companies/:id", h.getCompany)

	authed.GET("/employees", h.listEmployees)
	authed.POST("/employees", h.createEmployee)
	authed.GET("/employees/profile", h.getProfile)
	authed.PUT("/employees/profile", h.updateProfile)
	authed.PATCH("/employees/profile", h.updateProfile)
	authed.POST("/employees/profile/avatar", h.uploadAvatar)
	authed.GET("/employees/:id", h.getEmployee)
	authed.GET("/employees/:id/attendance", h.employeeAttendance)
	authed.GET("/employees/:id/leaves", h.employeeLeaves)
	authed.POST("/employees/:id/toggle-admin", h.toggleAdmin)

	authed.GET("/attendance", h.listAttendance)
	authed.POST("/attendance", h.markAttendance)
	authed.GET("/attendance/my-attendance", h.myAttendance)
	authed.GET("/attendance/:id", h.getAttendance)

	authed.GET("/leaves", h.listLeaves)
	authed.POST("/leaves", h.createLeave)
	authed.GET("/leaves/:id", h.getLeave)
	authed.POST("/leaves/:id/approve", h.approveLeave)
	authed.POST("/leaves/:id/reject", h.rejectLeave)

	authed.POST("/invitations/send", h.sendInvitation)
	authed.GET("/invitations/list", h.listInvitations)
}

// fail writes err as {"error": msg} with the status for its kind. Anything
// unclassified is logged and answered with a generic 500.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if kind == apperr.KindInternal {
		_ = c.Error(err)
		slog.Error("request failed", "err", err, "path", c.Request.URL.Path, "request_id", httpmiddleware.GetRequestID(c))
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	if kind == apperr.KindUpstream {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err, "Internal server error")})
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadBody = apperr.Validation("Invalid request body")

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, errBadBody)
		return false
	}
	return true
}

// caller returns the authenticated employee. Gate guarantees presence on
// authed routes.
func caller(c *gin.Context) model.Employee {
	emp, _ := auth.CurrentEmployee(c)
	return emp
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperr.NotFound("Not found."))
		return 0, false
	}
	return id, true
}

// employeeView is the API shape of an employee.
type employeeView struct {
	model.Employee
	Company     int64  `json:"company"`
	CompanyName string `json:"company_name"`
}

func viewEmployee(e model.Employee) employeeView {
	return employeeView{Employee: e, Company: e.CompanyID, CompanyName: e.CompanyName}
}

func viewEmployees(list []model.Employee) []employeeView {
	out := make([]employeeView, 0, len(list))
	for _, e := range list {
		out = append(out, viewEmployee(e))
	}
	return out
}

func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
