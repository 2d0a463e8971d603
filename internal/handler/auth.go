package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hrm/internal/account"
	"hrm/internal/model"
)

type sessionEmployee struct {
	ID         int64  `json:"id"`
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	Company    string `json:"company"`
}

func sessionBody(s account.Session) gin.H {
	return gin.H{
		"refresh":  s.Tokens.RefreshToken,
		"access":   s.Tokens.AccessToken,
		"employee": summary(s.Employee),
	}
}

func summary(e model.Employee) sessionEmployee {
	return sessionEmployee{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		FullName:   e.FullName,
		Email:      e.Email,
		IsAdmin:    e.IsAdmin,
		Company:    e.CompanyName,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req account.Registration
	if !bind(c, &req) {
		return
	}
	sess, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionBody(sess))
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bind(c, &req) {
		return
	}
	sess, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionBody(sess))
}

func (h *Handler) logout(c *gin.Context) {
	var req struct {
		Refresh      string `json:"refresh"`
		RefreshToken string `json:"refresh_token"`
	}
	// malformed bodies still log out
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token = req.Refresh
	}
	h.Accounts.Logout(c.Request.Context(), token)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !bind(c, &req) {
		return
	}
	access, _, err := h.Accounts.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bind(c, &req) {
		return
	}
	msg, err := h.Accounts.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) verifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !bind(c, &req) {
		return
	}
	token, err := h.Accounts.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "OTP verified successfully",
		"reset_token": token,
		"email":       req.Email,
	})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.Accounts.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
