package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"eventhub/internal/auth"
	"eventhub/internal/domain"
	"eventhub/internal/mailer"
	"eventhub/internal/repository"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type CreateEventInput struct {
	Title       string
	Description *string
	Date        string
	Location    string
}

// UpdateEventInput changes only the fields that are set.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Date        *string
	Location    *string
}

type ListEventsInput struct {
	Upcoming    bool
	OrganizerID int64
}

// EventService coordinates event lifecycle operations.
type EventService interface {
	Create(ctx context.Context, identity auth.Identity, input CreateEventInput) (*EventView, error)
	Get(ctx context.Context, id int64) (*EventView, error)
	List(ctx context.Context, input ListEventsInput) ([]EventView, error)
	Update(ctx context.Context, identity auth.Identity, id int64, input UpdateEventInput) (*EventView, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
}

type eventService struct {
	events repository.EventRepository
	rsvps  repository.RSVPRepository
	users  repository.UserRepository
	deps   Collaborators
}

func NewEventService(events repository.EventRepository, rsvps repository.RSVPRepository, users repository.UserRepository, deps Collaborators) EventService {
	return &eventService{
		events: events,
		rsvps:  rsvps,
		users:  users,
		deps:   deps.withDefaults(),
	}
}

func (s *eventService) Create(ctx context.Context, identity auth.Identity, input CreateEventInput) (*EventView, error) {
	if err := s.deps.Policy.Check(ResourceEvent, ActionCreate, identity, 0); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", domain.ErrInvalidInput)
	}
	date, err := s.futureDate(input.Date)
	if err != nil {
		return nil, err
	}

	event := &domain.Event{
		Title:       title,
		Description: trimOptional(input.Description),
		Date:        date,
		Location:    location,
		OrganizerID: identity.UserID,
	}
	if _, err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	view := toEventView(event)
	s.deps.Announcer.Announce(ctx, TopicEventCreated, view)
	s.logger(event.ID).Info("event created")

	data := eventTemplateData(event)
	data.Name = s.userName(ctx, identity.UserID)
	s.deps.Notifier.Notify(mailer.KindEventCreated, identity.Email, data)

	return &view, nil
}

func (s *eventService) Get(ctx context.Context, id int64) (*EventView, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := toEventView(event)
	return &view, nil
}

func (s *eventService) List(ctx context.Context, input ListEventsInput) ([]EventView, error) {
	events, err := s.events.List(ctx, domain.EventFilter{
		Upcoming:    input.Upcoming,
		OrganizerID: input.OrganizerID,
		Now:         s.deps.Clock().UTC(),
	})
	if err != nil {
		return nil, err
	}

	views := make([]EventView, len(events))
	for i := range events {
		views[i] = toEventView(&events[i])
	}
	return views, nil
}

func (s *eventService) Update(ctx context.Context, identity auth.Identity, id int64, input UpdateEventInput) (*EventView, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Policy.Check(ResourceEvent, ActionUpdate, identity, event.OrganizerID); err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
		}
		event.Title = title
	}
	if input.Location != nil {
		location := strings.TrimSpace(*input.Location)
		if location == "" {
			return nil, fmt.Errorf("%w: location cannot be empty", domain.ErrInvalidInput)
		}
		event.Location = location
	}
	if input.Description != nil {
		event.Description = trimOptional(input.Description)
	}
	if input.Date != nil {
		date, err := s.futureDate(*input.Date)
		if err != nil {
			return nil, err
		}
		event.Date = date
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}

	view := toEventView(event)
	s.deps.Announcer.Announce(ctx, TopicEventUpdated, view)
	s.logger(event.ID).WithField("user_id", identity.UserID).Info("event updated")

	s.notifyAttendees(mailer.KindEventUpdated, event, s.attendees(ctx, event.ID))
	return &view, nil
}

func (s *eventService) Delete(ctx context.Context, identity auth.Identity, id int64) error {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deps.Policy.Check(ResourceEvent, ActionDelete, identity, event.OrganizerID); err != nil {
		return err
	}

	// RSVPs are removed by the cascade, so recipients are collected first.
	attendees := s.attendees(ctx, event.ID)

	if err := s.events.Delete(ctx, event.ID); err != nil {
		return err
	}

	s.deps.Announcer.Announce(ctx, TopicEventDeleted, EventDeletedPayload{ID: event.ID})
	s.logger(event.ID).WithField("user_id", identity.UserID).Info("event deleted")

	s.notifyAttendees(mailer.KindEventDeleted, event, attendees)
	return nil
}

func (s *eventService) attendees(ctx context.Context, eventID int64) []domain.Attendee {
	attendees, err := s.rsvps.Attendees(ctx, eventID)
	if err != nil {
		s.logger(eventID).Warnf("load attendees for notification: %v", err)
		return nil
	}
	return attendees
}

func (s *eventService) notifyAttendees(kind mailer.Kind, event *domain.Event, attendees []domain.Attendee) {
	for _, a := range attendees {
		data := eventTemplateData(event)
		data.Name = a.Name
		data.Status = string(a.Status)
		s.deps.Notifier.Notify(kind, a.Email, data)
	}
}

func (s *eventService) userName(ctx context.Context, userID int64) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.deps.Logger.WithField("user_id", userID).Warnf("load user for notification: %v", err)
		return ""
	}
	return user.Name
}

func (s *eventService) futureDate(raw string) (time.Time, error) {
	return parseFutureDate(raw, s.deps.Clock())
}

func (s *eventService) logger(eventID int64) logrus.FieldLogger {
	return s.deps.Logger.WithField("event_id", eventID)
}

func parseFutureDate(raw string, now time.Time) (time.Time, error) {
	date, err := parseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if !date.After(now) {
		return time.Time{}, fmt.Errorf("%w: date must be in the future", domain.ErrInvalidInput)
	}
	return date, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q is not a valid timestamp", domain.ErrInvalidInput, raw)
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func eventTemplateData(event *domain.Event) mailer.TemplateData {
	return mailer.TemplateData{
		EventTitle: event.Title,
		EventDate:  event.Date,
		Location:   event.Location,
	}
}
