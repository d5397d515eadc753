package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	maxInboundMessage = 4096
)

// WebSocketTransport adapts a gorilla connection to Transport.
type WebSocketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func NewWebSocketTransport(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketTransport {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &WebSocketTransport{conn: conn, writeTimeout: writeTimeout}
}

func (t *WebSocketTransport) WriteMessage(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WebSocketTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

func (t *WebSocketTransport) Close() error {
	return t.conn.Close()
}

// ServeWebSocket registers conn, greets it with a connected frame, and blocks
// reading until the peer goes away. Inbound frames are discarded; the socket
// carries no commands.
func (h *Hub) ServeWebSocket(conn *websocket.Conn, writeTimeout, pongWait time.Duration) {
	transport := NewWebSocketTransport(conn, writeTimeout)
	clientID, ok := h.Register(transport)
	if !ok {
		_ = conn.Close()
		return
	}
	defer h.Unregister(transport)

	logger := h.cfg.Logger.WithField("client_id", clientID)
	logger.Info("websocket client connected")

	if err := h.SendTo(transport, TypeConnected, map[string]string{
		"clientId": clientID,
		"message":  "Connected to event updates",
	}); err != nil {
		logger.Warnf("send connected frame: %v", err)
	}

	conn.SetReadLimit(maxInboundMessage)
	if pongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithFields(logrus.Fields{"error": err}).Debug("websocket read failed")
			}
			break
		}
	}
	logger.Info("websocket client disconnected")
}
