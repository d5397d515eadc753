package mailer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"eventhub/internal/worker"
)

type NotifierConfig struct {
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Notifier renders notices and dispatches them without waiting for delivery.
type Notifier struct {
	sender     Sender
	dispatcher worker.Dispatcher
	cfg        NotifierConfig
}

func NewNotifier(sender Sender, dispatcher worker.Dispatcher, cfg NotifierConfig) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Notifier{
		sender:     sender,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// Notify queues one delivery attempt for kind. It returns before the send
// happens; any failure along the way is logged and dropped.
func (n *Notifier) Notify(kind Kind, to string, data TemplateData) {
	logger := n.cfg.Logger.WithFields(logrus.Fields{
		"kind":      kind,
		"recipient": to,
	})

	email, err := Render(kind, to, data)
	if err != nil {
		logger.Warnf("render notification: %v", err)
		return
	}

	accepted := n.dispatcher.Submit(func(ctx context.Context) {
		sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()

		if err := n.sender.SendEmail(sendCtx, email); err != nil {
			logger.Warnf("send notification: %v", err)
			return
		}
		logger.Debug("notification sent")
	})
	if !accepted {
		logger.Warn("mail queue unavailable, notification dropped")
	}
}
