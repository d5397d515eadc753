// Package service holds the business rules for users, events and RSVPs. It is
// the only writer of persisted state and triggers notifications after commit.
package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"eventhub/internal/mailer"
)

// Clock returns the current time.
type Clock func() time.Time

// Notifier sends best-effort email notices. Implementations must not block on delivery.
type Notifier interface {
	Notify(kind mailer.Kind, to string, data mailer.TemplateData)
}

// Collaborators are the side-effect dependencies shared by the services.
type Collaborators struct {
	Announcer *Announcer
	Notifier  Notifier
	Policy    Policy
	Clock     Clock
	Logger    logrus.FieldLogger
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Policy == nil {
		c.Policy = DefaultPolicy()
	}
	if c.Notifier == nil {
		c.Notifier = discardNotifier{}
	}
	if c.Announcer == nil {
		c.Announcer = NewAnnouncer(discardBroadcaster{}, nil, c.Logger)
	}
	return c
}

type discardNotifier struct{}

func (discardNotifier) Notify(mailer.Kind, string, mailer.TemplateData) {}

type discardBroadcaster struct{}

func (discardBroadcaster) Broadcast(string, any) {}
