package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"eventhub/internal/service"
)

type createEventRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	Date        string  `json:"date" binding:"required"`
	Location    string  `json:"location" binding:"required"`
}

type updateEventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
}

func (h *Handler) listEvents(c *gin.Context) {
	var input service.ListEventsInput
	if raw := c.Query("upcoming"); raw != "" {
		upcoming, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "upcoming must be a boolean")
			return
		}
		input.Upcoming = upcoming
	}
	if raw := c.Query("organizerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid organizer id")
			return
		}
		input.OrganizerID = id
	}

	events, err := h.events.List(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, events)
}

func (h *Handler) getEvent(c *gin.Context) {
	id, valid := parseID(c, "id", "event")
	if !valid {
		return
	}
	event, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, event)
}

func (h *Handler) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	event, err := h.events.Create(c.Request.Context(), identityFrom(c), service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, event)
}

func (h *Handler) updateEvent(c *gin.Context) {
	id, valid := parseID(c, "id", "event")
	if !valid {
		return
	}
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	event, err := h.events.Update(c.Request.Context(), identityFrom(c), id, service.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, event)
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id, valid := parseID(c, "id", "event")
	if !valid {
		return
	}
	if err := h.events.Delete(c.Request.Context(), identityFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "event deleted")
}
