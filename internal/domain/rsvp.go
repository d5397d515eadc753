package domain

import "time"

type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "GOING"
	RSVPMaybe    RSVPStatus = "MAYBE"
	RSVPNotGoing RSVPStatus = "NOT_GOING"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPNotGoing:
		return true
	}
	return false
}

// RSVP records a user's response to an event. There is at most one per (UserID, EventID).
type RSVP struct {
	ID        int64
	UserID    int64
	EventID   int64
	Status    RSVPStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RSVPCounts aggregates responses for a single event.
type RSVPCounts struct {
	Going    int
	Maybe    int
	NotGoing int
	Total    int
}

// Add tallies one response.
func (c *RSVPCounts) Add(status RSVPStatus) {
	switch status {
	case RSVPGoing:
		c.Going++
	case RSVPMaybe:
		c.Maybe++
	case RSVPNotGoing:
		c.NotGoing++
	default:
		return
	}
	c.Total++
}

// Attendee is a user who answered GOING or MAYBE, used for change notices.
type Attendee struct {
	UserID int64
	Name   string
	Email  string
	Status RSVPStatus
}
