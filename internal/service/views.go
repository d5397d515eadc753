package service

import (
	"time"

	"eventhub/internal/domain"
)

// UserView is the public shape of a user. It never carries the password hash.
type UserView struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type EventView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	OrganizerID int64     `json:"organizerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RSVPView struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"userId"`
	EventID   int64             `json:"eventId"`
	Status    domain.RSVPStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type RSVPCountsView struct {
	Going    int `json:"going"`
	Maybe    int `json:"maybe"`
	NotGoing int `json:"notGoing"`
	Total    int `json:"total"`
}

// RSVPList is an event's responses together with their tally.
type RSVPList struct {
	RSVPs  []RSVPView     `json:"rsvps"`
	Counts RSVPCountsView `json:"counts"`
}

type EventDeletedPayload struct {
	ID int64 `json:"id"`
}

type RSVPUpdatedPayload struct {
	RSVP   RSVPView       `json:"rsvp"`
	Counts RSVPCountsView `json:"counts"`
}

type RSVPDeletedPayload struct {
	ID      int64          `json:"id"`
	EventID int64          `json:"eventId"`
	UserID  int64          `json:"userId"`
	Counts  RSVPCountsView `json:"counts"`
}

func toUserView(u *domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func toEventView(e *domain.Event) EventView {
	return EventView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Location:    e.Location,
		OrganizerID: e.OrganizerID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toRSVPView(r *domain.RSVP) RSVPView {
	return RSVPView{
		ID:        r.ID,
		UserID:    r.UserID,
		EventID:   r.EventID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toCountsView(c domain.RSVPCounts) RSVPCountsView {
	return RSVPCountsView{
		Going:    c.Going,
		Maybe:    c.Maybe,
		NotGoing: c.NotGoing,
		Total:    c.Total,
	}
}
