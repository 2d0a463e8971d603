package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"hrm/internal/apperr"
	"hrm/internal/invitation"
)

func (h *Handler) sendInvitation(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bind(c, &req) {
		return
	}
	inv, err := h.Invitations.Send(c.Request.Context(), caller(c), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Invitation sent successfully", "invitation": inv})
}

func (h *Handler) verifyInvitation(c *gin.Context) {
	inv, err := h.Invitations.Verify(c.Request.Context(), c.Query("token"))
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.KindInternal {
			fail(c, err)
			return
		}
		c.JSON(statusFor(kind), gin.H{"valid": false, "error": apperr.Message(err, "")})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"email":        inv.Email,
		"company_name": inv.CompanyName,
		"invited_by":   inv.InvitedByName,
	})
}

func (h *Handler) acceptInvitation(c *gin.Context) {
	var req invitation.Acceptance
	if !bind(c, &req) {
		return
	}
	emp, err := h.Invitations.Accept(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	sess, err := h.Accounts.SessionFor(emp)
	if err != nil {
		fail(c, err)
		return
	}
	body := sessionBody(sess)
	body["message"] = "Account created successfully"
	c.JSON(http.StatusCreated, body)
}

func (h *Handler) listInvitations(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, apperr.NotFound("Invalid page."))
			return
		}
		page = n
	}
	p, err := h.Invitations.List(c.Request.Context(), caller(c), page)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    p.Count,
		"next":     pageURL(c, p.Next),
		"previous": pageURL(c, p.Previous),
		"results":  p.Results,
	})
}

// pageURL builds the absolute link to page n, or nil. Page 1 is linked
// without a page parameter.
func pageURL(c *gin.Context, n *int) *string {
	if n == nil {
		return nil
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	q := c.Request.URL.Query()
	if *n == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(*n))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}
