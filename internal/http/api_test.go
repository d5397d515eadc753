package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"eventhub/internal/auth"
	apphttp "eventhub/internal/http"
	"eventhub/internal/mailer"
	"eventhub/internal/ratelimit"
	"eventhub/internal/realtime"
	"eventhub/internal/repository/sqlite"
	"eventhub/internal/service"
	"eventhub/internal/worker"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type testServer struct {
	srv *httptest.Server
	hub *realtime.Hub
}

func newTestServer(t *testing.T, loginAttempts int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	events := sqlite.NewEventRepository(db)
	rsvps := sqlite.NewRSVPRepository(db)
	ctx := t.Context()
	require.NoError(t, users.Init(ctx))
	require.NoError(t, events.Init(ctx))
	require.NoError(t, rsvps.Init(ctx))

	hub := realtime.NewHub(realtime.Config{Logger: logger})
	t.Cleanup(hub.Close)

	tokens, err := auth.NewTokenManager("api-test-secret", time.Hour)
	require.NoError(t, err)

	deps := service.Collaborators{
		Announcer: service.NewAnnouncer(hub, nil, logger),
		Notifier:  mailer.NewNotifier(mailer.NewLogSender(logger), worker.Inline{}, mailer.NotifierConfig{Logger: logger}),
		Logger:    logger,
	}

	handler := apphttp.NewHandler(
		service.NewAuthService(users, tokens, bcrypt.MinCost, deps),
		service.NewEventService(events, rsvps, users, deps),
		service.NewRSVPService(events, rsvps, users, deps),
		tokens,
		hub,
		ratelimit.NewMemoryLimiter(loginAttempts, time.Minute),
		apphttp.Config{CORSOrigin: "*", RequestTimeout: 5 * time.Second, Logger: logger},
	)
	router := gin.New()
	handler.RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (s *testServer) signup(t *testing.T, name, email, role string) string {
	t.Helper()
	status, resp := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusOK, status, resp.Error)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Token
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	frame := readFrame(t, conn)
	require.Equal(t, realtime.TypeConnected, frame.Type)
	return conn
}

type frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func futureDate() string {
	return time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
}

func TestBannerAndHealth(t *testing.T) {
	s := newTestServer(t, 0)

	status, resp := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.Equal(t, "Event Management API", resp.Message)

	s.dial(t)
	status, resp = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","clients":1}`, string(resp.Data))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 0)
	req, err := http.NewRequest(http.MethodOptions, s.srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.signup(t, "Ada", "ada@example.com", "")

	status, resp := s.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, "ATTENDEE", profile.Role)
	assert.NotContains(t, string(resp.Data), "secret123")

	status, resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	status, resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	status, _ = s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"name": "Bob"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(t, http.MethodGet, "/api/auth/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginThrottle(t *testing.T) {
	s := newTestServer(t, 2)
	s.signup(t, "Ada", "ada@example.com", "")

	creds := map[string]string{"email": "ada@example.com", "password": "wrong-one"}
	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, resp := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.False(t, resp.Success)
}

func TestCreateEventBroadcastsToAllConnections(t *testing.T) {
	s := newTestServer(t, 0)
	token := s.signup(t, "Olga", "olga@example.com", "ORGANIZER")
	first := s.dial(t)
	second := s.dial(t)

	status, resp := s.do(t, http.MethodPost, "/api/events", token, map[string]string{
		"title": "Conf", "date": futureDate(), "location": "Hall A",
	})
	require.Equal(t, http.StatusOK, status, resp.Error)
	var created struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "Conf", created.Title)

	for _, conn := range []*websocket.Conn{first, second} {
		f := readFrame(t, conn)
		assert.Equal(t, service.TopicEventCreated, f.Type)
		assert.False(t, f.Timestamp.IsZero())
		var data struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		}
		require.NoError(t, json.Unmarshal(f.Data, &data))
		assert.Equal(t, created.ID, data.ID)
	}
}

func TestEventRoleRules(t *testing.T) {
	s := newTestServer(t, 0)
	attendee := s.signup(t, "Ann", "ann@example.com", "ATTENDEE")
	owner := s.signup(t, "Olga", "olga@example.com", "ORGANIZER")
	other := s.signup(t, "Otto", "otto@example.com", "ORGANIZER")
	admin := s.signup(t, "Adam", "adam@example.com", "ADMIN")

	body := map[string]string{"title": "Conf", "date": futureDate(), "location": "Hall A"}
	status, _ := s.do(t, http.MethodPost, "/api/events", attendee, body)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodPost, "/api/events", "", body)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp := s.do(t, http.MethodPost, "/api/events", owner, body)
	require.Equal(t, http.StatusOK, status)
	var ev struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &ev))
	path := "/api/events/" + strconv.FormatInt(ev.ID, 10)

	status, _ = s.do(t, http.MethodPut, path, other, map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodPut, path, owner, map[string]string{"title": "Renamed"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, resp = s.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "event deleted", resp.Message)

	status, _ = s.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.do(t, http.MethodGet, "/api/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEventValidation(t *testing.T) {
	s := newTestServer(t, 0)
	owner := s.signup(t, "Olga", "olga@example.com", "ORGANIZER")

	status, resp := s.do(t, http.MethodPost, "/api/events", owner, map[string]string{
		"title": "Conf", "date": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339), "location": "Hall A",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, resp.Error, "future")

	status, _ = s.do(t, http.MethodGet, "/api/events?upcoming=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRSVPFlow(t *testing.T) {
	s := newTestServer(t, 0)
	owner := s.signup(t, "Olga", "olga@example.com", "ORGANIZER")
	guest := s.signup(t, "Gina", "gina@example.com", "ATTENDEE")

	_, resp := s.do(t, http.MethodPost, "/api/events", owner, map[string]string{
		"title": "Conf", "date": futureDate(), "location": "Hall A",
	})
	var ev struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &ev))
	base := "/api/events/" + strconv.FormatInt(ev.ID, 10)

	conn := s.dial(t)

	status, _ := s.do(t, http.MethodPost, base+"/rsvp", guest, map[string]string{"status": "going"})
	require.Equal(t, http.StatusOK, status)
	status, resp = s.do(t, http.MethodPost, base+"/rsvp", guest, map[string]string{"status": "MAYBE"})
	require.Equal(t, http.StatusOK, status)
	var rsvp struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &rsvp))
	assert.Equal(t, "MAYBE", rsvp.Status)

	assert.Equal(t, service.TopicRSVPUpdated, readFrame(t, conn).Type)
	assert.Equal(t, service.TopicRSVPUpdated, readFrame(t, conn).Type)

	status, _ = s.do(t, http.MethodPost, base+"/rsvp", guest, map[string]string{"status": "SOMETIMES"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = s.do(t, http.MethodGet, base+"/rsvps", "", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		RSVPs  []json.RawMessage `json:"rsvps"`
		Counts struct {
			Maybe int `json:"maybe"`
			Total int `json:"total"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list.RSVPs, 1)
	assert.Equal(t, 1, list.Counts.Maybe)
	assert.Equal(t, 1, list.Counts.Total)

	status, resp = s.do(t, http.MethodGet, "/api/rsvps/my", guest, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), `"status":"MAYBE"`)

	rsvpPath := "/api/rsvps/" + strconv.FormatInt(rsvp.ID, 10)
	status, _ = s.do(t, http.MethodDelete, rsvpPath, owner, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, resp = s.do(t, http.MethodDelete, rsvpPath, guest, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "rsvp deleted", resp.Message)
	assert.Equal(t, service.TopicRSVPDeleted, readFrame(t, conn).Type)

	status, resp = s.do(t, http.MethodGet, "/api/rsvps/my", guest, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(resp.Data))
}
