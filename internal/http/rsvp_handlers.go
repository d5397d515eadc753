package http

import (
	"github.com/gin-gonic/gin"

	"eventhub/internal/service"
)

type rsvpRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) upsertRSVP(c *gin.Context) {
	eventID, valid := parseID(c, "id", "event")
	if !valid {
		return
	}
	var req rsvpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	status, err := service.ParseRSVPStatus(req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}

	rsvp, err := h.rsvps.Upsert(c.Request.Context(), identityFrom(c), eventID, status)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, rsvp)
}

func (h *Handler) listEventRSVPs(c *gin.Context) {
	eventID, valid := parseID(c, "id", "event")
	if !valid {
		return
	}
	list, err := h.rsvps.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, list)
}

func (h *Handler) listMyRSVPs(c *gin.Context) {
	rsvps, err := h.rsvps.ListMine(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, rsvps)
}

func (h *Handler) deleteRSVP(c *gin.Context) {
	id, valid := parseID(c, "id", "rsvp")
	if !valid {
		return
	}
	if err := h.rsvps.Delete(c.Request.Context(), identityFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "rsvp deleted")
}
