package domain

import "time"

// Event is a scheduled gathering owned by its organizer.
type Event struct {
	ID          int64
	Title       string
	Description *string
	Date        time.Time
	Location    string
	OrganizerID int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventFilter narrows event listings. Zero values disable a filter.
type EventFilter struct {
	Upcoming    bool
	OrganizerID int64
	Now         time.Time
}
