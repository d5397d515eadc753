package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"eventhub/internal/auth"
	"eventhub/internal/domain"
	"eventhub/internal/mailer"
	"eventhub/internal/repository"
	"eventhub/internal/repository/sqlite"
	"eventhub/internal/service"
)

type broadcast struct {
	topic   string
	payload any
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (r *recordingBroadcaster) Broadcast(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, broadcast{topic: topic, payload: payload})
}

func (r *recordingBroadcaster) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, b := range r.sent {
		out[i] = b.topic
	}
	return out
}

func (r *recordingBroadcaster) last() broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

type notice struct {
	kind mailer.Kind
	to   string
	data mailer.TemplateData
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recordingNotifier) Notify(kind mailer.Kind, to string, data mailer.TemplateData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{kind: kind, to: to, data: data})
}

func (r *recordingNotifier) byKind(kind mailer.Kind) []notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notice
	for _, n := range r.notices {
		if n.kind == kind {
			out = append(out, n)
		}
	}
	return out
}

var baseTime = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users  repository.UserRepository
	events repository.EventRepository
	rsvps  repository.RSVPRepository

	hub      *recordingBroadcaster
	notifier *recordingNotifier
	now      time.Time

	auth     service.AuthService
	eventSvc service.EventService
	rsvpSvc  service.RSVPService
	tokens   *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		users:    sqlite.NewUserRepository(db),
		events:   sqlite.NewEventRepository(db),
		rsvps:    sqlite.NewRSVPRepository(db),
		hub:      &recordingBroadcaster{},
		notifier: &recordingNotifier{},
		now:      baseTime,
	}
	ctx := context.Background()
	require.NoError(t, f.users.Init(ctx))
	require.NoError(t, f.events.Init(ctx))
	require.NoError(t, f.rsvps.Init(ctx))

	logger, _ := test.NewNullLogger()
	deps := service.Collaborators{
		Announcer: service.NewAnnouncer(f.hub, nil, logger),
		Notifier:  f.notifier,
		Clock:     func() time.Time { return f.now },
		Logger:    logger,
	}

	f.tokens, err = auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	f.auth = service.NewAuthService(f.users, f.tokens, bcrypt.MinCost, deps)
	f.eventSvc = service.NewEventService(f.events, f.rsvps, f.users, deps)
	f.rsvpSvc = service.NewRSVPService(f.events, f.rsvps, f.users, deps)
	return f
}

func (f *fixture) signup(t *testing.T, name, email string, role domain.Role) auth.Identity {
	t.Helper()
	res, err := f.auth.Signup(context.Background(), service.SignupInput{
		Name: name, Email: email, Password: "secret123", Role: role,
	})
	require.NoError(t, err)
	return auth.Identity{UserID: res.User.ID, Email: res.User.Email, Role: res.User.Role}
}

func (f *fixture) createEvent(t *testing.T, organizer auth.Identity, date time.Time) *service.EventView {
	t.Helper()
	ev, err := f.eventSvc.Create(context.Background(), organizer, service.CreateEventInput{
		Title:    "Conf",
		Date:     date.Format(time.RFC3339),
		Location: "Hall A",
	})
	require.NoError(t, err)
	return ev
}
