// Package realtime keeps the registry of live subscriber connections and fans
// out domain change frames to them.
//
// Delivery is best effort and at most once per live connection: frames are
// never queued for clients that connect later, never retried, and a client
// whose queue overflows or whose write fails is dropped from the registry.
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotRegistered is returned by SendTo for a transport the hub does not know.
	ErrNotRegistered = errors.New("realtime: transport not registered")
	// ErrQueueFull is returned by SendTo when the client cannot accept more frames.
	ErrQueueFull = errors.New("realtime: client send queue full")
)

// Transport is one subscriber connection. WriteMessage is only ever called from
// a single goroutine per transport; Close may be called concurrently with it.
type Transport interface {
	WriteMessage(data []byte) error
	Close() error
}

// Pinger is implemented by transports that need keepalive frames.
type Pinger interface {
	Ping() error
}

type Config struct {
	// SendBuffer bounds the number of frames queued per client.
	SendBuffer   int
	PingInterval time.Duration
	Logger       logrus.FieldLogger
	Now          func() time.Time
}

// Hub is the connection registry. The zero value is not usable; call NewHub.
type Hub struct {
	cfg Config

	mu      sync.Mutex
	clients map[Transport]*client
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	id        string
	transport Transport
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewHub(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Hub{
		cfg:     cfg,
		clients: make(map[Transport]*client),
	}
}

// Register adds t to the registry and starts its write pump. It returns the
// client id and true on first registration; registering a known transport or
// registering on a closed hub returns false and changes nothing.
func (h *Hub) Register(t Transport) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", false
	}
	if c, ok := h.clients[t]; ok {
		return c.id, false
	}

	c := &client{
		id:        uuid.NewString(),
		transport: t,
		send:      make(chan []byte, h.cfg.SendBuffer),
		done:      make(chan struct{}),
	}
	h.clients[t] = c

	h.wg.Add(1)
	go h.pump(c)

	h.cfg.Logger.WithField("client_id", c.id).Debug("realtime client registered")
	return c.id, true
}

// Unregister removes t and closes it. Unknown transports are ignored.
func (h *Hub) Unregister(t Transport) {
	h.mu.Lock()
	c, ok := h.clients[t]
	if ok {
		delete(h.clients, t)
	}
	h.mu.Unlock()

	if ok {
		h.shutdownClient(c)
	}
}

// Broadcast encodes one frame and queues it for every client registered at the
// time of the call. It never blocks on a slow client and never reports
// per-client failures: clients that cannot take the frame are evicted.
func (h *Hub) Broadcast(topic string, payload any) {
	data, err := encode(topic, payload, h.cfg.Now())
	if err != nil {
		h.cfg.Logger.WithField("topic", topic).Warnf("encode broadcast: %v", err)
		return
	}

	// The lock is held across the enqueue loop so frames from successive
	// Broadcast calls land in every client queue in call order.
	var dead []*client
	h.mu.Lock()
	for t, c := range h.clients {
		if !c.enqueue(data) {
			delete(h.clients, t)
			dead = append(dead, c)
		}
	}
	delivered := len(h.clients)
	h.mu.Unlock()

	for _, c := range dead {
		h.cfg.Logger.WithFields(logrus.Fields{
			"client_id": c.id,
			"topic":     topic,
		}).Warn("realtime client queue full, dropping client")
		h.shutdownClient(c)
	}

	h.cfg.Logger.WithFields(logrus.Fields{
		"topic":   topic,
		"clients": delivered,
		"evicted": len(dead),
	}).Debug("broadcast queued")
}

// SendTo queues a single frame for one client.
func (h *Hub) SendTo(t Transport, msgType string, data any) error {
	h.mu.Lock()
	c, ok := h.clients[t]
	h.mu.Unlock()
	if !ok {
		return ErrNotRegistered
	}

	frame, err := encode(msgType, data, h.cfg.Now())
	if err != nil {
		return err
	}
	if !c.enqueue(frame) {
		return ErrQueueFull
	}
	return nil
}

// Len reports the number of registered clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unregisters every client and waits for their pumps to exit. Later
// Register calls are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for t, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, t)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.shutdownClient(c)
	}
	h.wg.Wait()
}

// evict drops c after a failed write, unless it was already replaced or removed.
func (h *Hub) evict(c *client, cause error) {
	h.mu.Lock()
	current, ok := h.clients[c.transport]
	if ok && current == c {
		delete(h.clients, c.transport)
	}
	h.mu.Unlock()

	h.cfg.Logger.WithField("client_id", c.id).Warnf("realtime send failed, dropping client: %v", cause)
	h.shutdownClient(c)
}

func (h *Hub) shutdownClient(c *client) {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.transport.Close(); err != nil {
			h.cfg.Logger.WithField("client_id", c.id).Debugf("close transport: %v", err)
		}
	})
}

func (h *Hub) pump(c *client) {
	defer h.wg.Done()

	var tick <-chan time.Time
	pinger, canPing := c.transport.(Pinger)
	if canPing && h.cfg.PingInterval > 0 {
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.transport.WriteMessage(data); err != nil {
				h.evict(c, err)
				return
			}
		case <-tick:
			if err := pinger.Ping(); err != nil {
				h.evict(c, err)
				return
			}
		}
	}
}

func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
