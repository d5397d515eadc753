package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"eventhub/internal/bus"
)

const (
	TopicEventCreated = "event:created"
	TopicEventUpdated = "event:updated"
	TopicEventDeleted = "event:deleted"
	TopicRSVPUpdated  = "rsvp:updated"
	TopicRSVPDeleted  = "rsvp:deleted"
)

// Broadcaster pushes a message to every live realtime client.
type Broadcaster interface {
	Broadcast(topic string, payload any)
}

// Announcer fans committed changes out to realtime clients and the message bus.
type Announcer struct {
	hub       Broadcaster
	publisher bus.Publisher
	logger    logrus.FieldLogger
}

func NewAnnouncer(hub Broadcaster, publisher bus.Publisher, logger logrus.FieldLogger) *Announcer {
	if publisher == nil {
		publisher = bus.NoopPublisher{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Announcer{hub: hub, publisher: publisher, logger: logger}
}

// Announce must only be called after the change is committed. It never fails.
func (a *Announcer) Announce(ctx context.Context, topic string, payload any) {
	a.hub.Broadcast(topic, payload)

	if err := a.publisher.Publish(context.WithoutCancel(ctx), topic, payload); err != nil {
		a.logger.WithField("topic", topic).Warnf("publish domain event: %v", err)
	}
}
