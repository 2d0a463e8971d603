package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hrm/internal/leave"
)

func (h *Handler) listLeaves(c *gin.Context) {
	list, err := h.Leaves.List(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(list))
}

func (h *Handler) createLeave(c *gin.Context) {
	var req leave.NewLeave
	if !bind(c, &req) {
		return
	}
	l, err := h.Leaves.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *Handler) getLeave(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	l, err := h.Leaves.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) approveLeave(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.Leaves.Approve(c.Request.Context(), caller(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Leave approved"})
}

func (h *Handler) rejectLeave(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.Leaves.Reject(c.Request.Context(), caller(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Leave rejected"})
}
