package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"eventhub/internal/auth"
	"eventhub/internal/domain"
	"eventhub/internal/mailer"
	"eventhub/internal/repository"
)

// RSVPService manages responses to events.
type RSVPService interface {
	Upsert(ctx context.Context, identity auth.Identity, eventID int64, status domain.RSVPStatus) (*RSVPView, error)
	ListForEvent(ctx context.Context, eventID int64) (*RSVPList, error)
	ListMine(ctx context.Context, identity auth.Identity) ([]RSVPView, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
}

type rsvpService struct {
	events repository.EventRepository
	rsvps  repository.RSVPRepository
	users  repository.UserRepository
	deps   Collaborators
}

func NewRSVPService(events repository.EventRepository, rsvps repository.RSVPRepository, users repository.UserRepository, deps Collaborators) RSVPService {
	return &rsvpService{
		events: events,
		rsvps:  rsvps,
		users:  users,
		deps:   deps.withDefaults(),
	}
}

// ParseRSVPStatus accepts the canonical names in any case.
func ParseRSVPStatus(raw string) (domain.RSVPStatus, error) {
	status := domain.RSVPStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: status must be one of GOING, MAYBE, NOT_GOING", domain.ErrInvalidInput)
	}
	return status, nil
}

func (s *rsvpService) Upsert(ctx context.Context, identity auth.Identity, eventID int64, status domain.RSVPStatus) (*RSVPView, error) {
	if err := s.deps.Policy.Check(ResourceRSVP, ActionUpsert, identity, identity.UserID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Date.After(s.deps.Clock()) {
		return nil, fmt.Errorf("%w: cannot RSVP to a past event", domain.ErrInvalidInput)
	}

	rsvp := &domain.RSVP{
		UserID:  identity.UserID,
		EventID: event.ID,
		Status:  status,
	}
	if err := s.rsvps.Upsert(ctx, rsvp); err != nil {
		return nil, err
	}

	view := toRSVPView(rsvp)
	s.deps.Announcer.Announce(ctx, TopicRSVPUpdated, RSVPUpdatedPayload{
		RSVP:   view,
		Counts: s.counts(ctx, event.ID),
	})
	s.deps.Logger.WithFields(logrus.Fields{
		"event_id": event.ID,
		"user_id":  identity.UserID,
		"status":   status,
	}).Info("rsvp recorded")

	s.notify(ctx, identity, event, status)
	return &view, nil
}

func (s *rsvpService) ListForEvent(ctx context.Context, eventID int64) (*RSVPList, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	rsvps, err := s.rsvps.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	list := &RSVPList{RSVPs: make([]RSVPView, len(rsvps))}
	var counts domain.RSVPCounts
	for i := range rsvps {
		list.RSVPs[i] = toRSVPView(&rsvps[i])
		counts.Add(rsvps[i].Status)
	}
	list.Counts = toCountsView(counts)
	return list, nil
}

func (s *rsvpService) ListMine(ctx context.Context, identity auth.Identity) ([]RSVPView, error) {
	rsvps, err := s.rsvps.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]RSVPView, len(rsvps))
	for i := range rsvps {
		views[i] = toRSVPView(&rsvps[i])
	}
	return views, nil
}

func (s *rsvpService) Delete(ctx context.Context, identity auth.Identity, id int64) error {
	rsvp, err := s.rsvps.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deps.Policy.Check(ResourceRSVP, ActionDelete, identity, rsvp.UserID); err != nil {
		return err
	}
	if err := s.rsvps.Delete(ctx, rsvp.ID); err != nil {
		return err
	}

	s.deps.Announcer.Announce(ctx, TopicRSVPDeleted, RSVPDeletedPayload{
		ID:      rsvp.ID,
		EventID: rsvp.EventID,
		UserID:  rsvp.UserID,
		Counts:  s.counts(ctx, rsvp.EventID),
	})
	s.deps.Logger.WithFields(logrus.Fields{
		"event_id": rsvp.EventID,
		"user_id":  rsvp.UserID,
	}).Info("rsvp deleted")
	return nil
}

func (s *rsvpService) counts(ctx context.Context, eventID int64) RSVPCountsView {
	rsvps, err := s.rsvps.ListByEvent(ctx, eventID)
	if err != nil {
		s.deps.Logger.WithField("event_id", eventID).Warnf("count rsvps: %v", err)
		return RSVPCountsView{}
	}
	var counts domain.RSVPCounts
	for i := range rsvps {
		counts.Add(rsvps[i].Status)
	}
	return toCountsView(counts)
}

func (s *rsvpService) notify(ctx context.Context, identity auth.Identity, event *domain.Event, status domain.RSVPStatus) {
	data := eventTemplateData(event)
	data.Status = string(status)

	responder, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		s.deps.Logger.WithField("user_id", identity.UserID).Warnf("load user for notification: %v", err)
		responder = &domain.User{Email: identity.Email}
	}
	confirm := data
	confirm.Name = responder.Name
	s.deps.Notifier.Notify(mailer.KindRSVPConfirmed, responder.Email, confirm)

	if event.OrganizerID == identity.UserID {
		return
	}
	organizer, err := s.users.GetByID(ctx, event.OrganizerID)
	if err != nil {
		s.deps.Logger.WithField("user_id", event.OrganizerID).Warnf("load organizer for notification: %v", err)
		return
	}
	received := data
	received.Name = organizer.Name
	received.Responder = responder.Email
	if responder.Name != "" {
		received.Responder = responder.Name
	}
	s.deps.Notifier.Notify(mailer.KindRSVPReceived, organizer.Email, received)
}
