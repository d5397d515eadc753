package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/auth"
	"eventhub/internal/domain"
	"eventhub/internal/mailer"
	"eventhub/internal/service"
)

func TestRSVPService_UpsertKeepsSingleRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	guest := f.signup(t, "Gina", "gina@example.com", domain.RoleAttendee)
	ev := f.createEvent(t, owner, baseTime.Add(24*time.Hour))

	first, err := f.rsvpSvc.Upsert(ctx, guest, ev.ID, domain.RSVPGoing)
	require.NoError(t, err)
	second, err := f.rsvpSvc.Upsert(ctx, guest, ev.ID, domain.RSVPMaybe)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.RSVPMaybe, second.Status)

	list, err := f.rsvpSvc.ListForEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, list.RSVPs, 1)
	assert.Equal(t, domain.RSVPMaybe, list.RSVPs[0].Status)
	assert.Equal(t, service.RSVPCountsView{Maybe: 1, Total: 1}, list.Counts)
}

func TestRSVPService_UpsertBroadcastsWithCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	gina := f.signup(t, "Gina", "gina@example.com", domain.RoleAttendee)
	nick := f.signup(t, "Nick", "nick@example.com", domain.RoleAttendee)
	ev := f.createEvent(t, owner, baseTime.Add(24*time.Hour))

	_, err := f.rsvpSvc.Upsert(ctx, gina, ev.ID, domain.RSVPGoing)
	require.NoError(t, err)
	rsvp, err := f.rsvpSvc.Upsert(ctx, nick, ev.ID, domain.RSVPNotGoing)
	require.NoError(t, err)

	last := f.hub.last()
	assert.Equal(t, service.TopicRSVPUpdated, last.topic)
	payload, ok := last.payload.(service.RSVPUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, rsvp.ID, payload.RSVP.ID)
	assert.Equal(t, service.RSVPCountsView{Going: 1, NotGoing: 1, Total: 2}, payload.Counts)
}

func TestRSVPService_UpsertSendsConfirmationAndOrganizerNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	guest := f.signup(t, "Gina", "gina@example.com", domain.RoleAttendee)
	ev := f.createEvent(t, owner, baseTime.Add(24*time.Hour))

	_, err := f.rsvpSvc.Upsert(ctx, guest, ev.ID, domain.RSVPGoing)
	require.NoError(t, err)

	confirmed := f.notifier.byKind(mailer.KindRSVPConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "gina@example.com", confirmed[0].to)
	assert.Equal(t, "GOING", confirmed[0].data.Status)

	received := f.notifier.byKind(mailer.KindRSVPReceived)
	require.Len(t, received, 1)
	assert.Equal(t, "olga@example.com", received[0].to)
	assert.Equal(t, "Gina", received[0].data.Responder)
}

func TestRSVPService_OrganizerIsNotNotifiedOfOwnRSVP(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	ev := f.createEvent(t, owner, baseTime.Add(24*time.Hour))

	_, err := f.rsvpSvc.Upsert(context.Background(), owner, ev.ID, domain.RSVPGoing)
	require.NoError(t, err)
	assert.Len(t, f.notifier.byKind(mailer.KindRSVPConfirmed), 1)
	assert.Empty(t, f.notifier.byKind(mailer.KindRSVPReceived))
}

func TestRSVPService_PastEventIsRejectedForEveryRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	admin := f.signup(t, "Adam", "adam@example.com", domain.RoleAdmin)
	guest := f.signup(t, "Gina", "gina@example.com", domain.RoleAttendee)
	ev := f.createEvent(t, owner, baseTime.Add(time.Hour))

	f.now = baseTime.Add(2 * time.Hour)
	before := len(f.hub.topics())
	for _, caller := range []auth.Identity{owner, admin, guest} {
		_, err := f.rsvpSvc.Upsert(ctx, caller, ev.ID, domain.RSVPGoing)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, string(caller.Role))
	}
	assert.Len(t, f.hub.topics(), before)
}

func TestRSVPService_UpsertErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	ev := f.createEvent(t, owner, baseTime.Add(24*time.Hour))

	_, err := f.rsvpSvc.Upsert(ctx, owner, 999, domain.RSVPGoing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.rsvpSvc.Upsert(ctx, owner, ev.ID, domain.RSVPStatus("SOMETIMES"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRSVPService_ListForUnknownEvent(t *testing.T) {
	f := newFixture(t)
	_, err := f.rsvpSvc.ListForEvent(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRSVPService_ListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	gina := f.signup(t, "Gina", "gina@example.com", domain.RoleAttendee)
	nick := f.signup(t, "Nick", "nick@example.com", domain.RoleAttendee)
	a := f.createEvent(t, owner, baseTime.Add(24*time.Hour))
	b := f.createEvent(t, owner, baseTime.Add(48*time.Hour))

	_, err := f.rsvpSvc.Upsert(ctx, gina, a.ID, domain.RSVPGoing)
	require.NoError(t, err)
	_, err = f.rsvpSvc.Upsert(ctx, gina, b.ID, domain.RSVPMaybe)
	require.NoError(t, err)
	_, err = f.rsvpSvc.Upsert(ctx, nick, a.ID, domain.RSVPGoing)
	require.NoError(t, err)

	mine, err := f.rsvpSvc.ListMine(ctx, gina)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, gina.UserID, r.UserID)
	}
}

func TestRSVPService_DeleteOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.signup(t, "Olga", "olga@example.com", domain.RoleOrganizer)
	admin := f.signup(t, "Adam", "adam@example.com", domain.RoleAdmin)
	guest := f.signup(t, "Gina", "gina@example.com", domain.RoleAttendee)
	ev := f.createEvent(t, owner, baseTime.Add(24*time.Hour))
	rsvp, err := f.rsvpSvc.Upsert(ctx, guest, ev.ID, domain.RSVPGoing)
	require.NoError(t, err)

	assert.ErrorIs(t, f.rsvpSvc.Delete(ctx, admin, rsvp.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.rsvpSvc.Delete(ctx, owner, rsvp.ID), domain.ErrForbidden)

	require.NoError(t, f.rsvpSvc.Delete(ctx, guest, rsvp.ID))
	last := f.hub.last()
	assert.Equal(t, service.TopicRSVPDeleted, last.topic)
	assert.Equal(t, service.RSVPDeletedPayload{
		ID:      rsvp.ID,
		EventID: ev.ID,
		UserID:  guest.UserID,
		Counts:  service.RSVPCountsView{},
	}, last.payload)

	assert.ErrorIs(t, f.rsvpSvc.Delete(ctx, guest, rsvp.ID), domain.ErrNotFound)
}

func TestParseRSVPStatus(t *testing.T) {
	status, err := service.ParseRSVPStatus(" going ")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPGoing, status)

	status, err = service.ParseRSVPStatus("not_going")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPNotGoing, status)

	_, err = service.ParseRSVPStatus("nope")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
