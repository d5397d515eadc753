package repository

import (
	"context"

	"eventhub/internal/domain"
)

// EventRepository exposes persistence operations for Event aggregates.
type EventRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, event *domain.Event) (int64, error)
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Event, error)
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
}

// RSVPRepository manages responses to events.
type RSVPRepository interface {
	Init(ctx context.Context) error
	// Upsert creates or updates the single RSVP for (rsvp.UserID, rsvp.EventID) atomically.
	Upsert(ctx context.Context, rsvp *domain.RSVP) error
	Get(ctx context.Context, id int64) (*domain.RSVP, error)
	Delete(ctx context.Context, id int64) error
	ListByEvent(ctx context.Context, eventID int64) ([]domain.RSVP, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.RSVP, error)
	Attendees(ctx context.Context, eventID int64) ([]domain.Attendee, error)
}
