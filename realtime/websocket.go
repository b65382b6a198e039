package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Envelope is the WebSocket message frame in both directions.
// Server -> client: notification, ping. Client -> server: pong, ping, ack.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSDriver delivers notifications over registered WebSocket connections.
type WSDriver struct {
	registry *Registry
}

func NewWSDriver(registry *Registry) *WSDriver {
	return &WSDriver{registry: registry}
}

func (d *WSDriver) Kind() string { return string(ConnWebSocket) }

func (d *WSDriver) Deliver(_ context.Context, userID int, msg Message) Outcome {
	return d.registry.deliverVia(userID, ConnWebSocket, msg)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// ServeWS upgrades the HTTP connection, registers it and pumps notifications
// out until the transport breaks or the registry replaces the connection.
// The server pings on pingInterval and drops the connection when no pong (or
// any other client message) arrives within pongTimeout. Client acks are
// accepted as telemetry only. Caller must authenticate and set userId.
func ServeWS(registry *Registry, pingInterval, pongTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("userId")
		if userID == 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "err", err)
			return
		}

		connID := c.Query("connectionId")
		if connID == "" {
			connID = uuid.NewString()
		}
		conn := registry.Register(userID, connID, ConnWebSocket)

		// The transport allows exactly one writing goroutine, so the reader
		// never writes; replies it wants to send go through control and are
		// written by the writer loop below.
		control := make(chan Envelope, 4)

		// Reader: liveness tracking plus the small client->server vocabulary.
		go func() {
			defer func() {
				registry.Unregister(conn)
				_ = ws.Close()
			}()
			ws.SetReadLimit(1024)
			_ = ws.SetReadDeadline(time.Now().Add(pongTimeout))
			ws.SetPongHandler(func(string) error {
				conn.Touch()
				return ws.SetReadDeadline(time.Now().Add(pongTimeout))
			})
			for {
				_, raw, err := ws.ReadMessage()
				if err != nil {
					return
				}
				_ = ws.SetReadDeadline(time.Now().Add(pongTimeout))
				conn.Touch()

				var env Envelope
				if err := json.Unmarshal(raw, &env); err != nil {
					continue
				}
				switch env.Type {
				case "pong":
					// Deadline already extended above.
				case "ping":
					select {
					case control <- Envelope{Type: "pong"}:
					case <-conn.Done():
						return
					}
				case "ack":
					slog.Debug("notification ack", "userId", userID, "connId", connID, "payload", string(env.Payload))
				}
			}
		}()

		// Writer: notifications and periodic pings, same goroutine as the
		// handler so gin keeps the connection open for its lifetime.
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg := <-conn.Send():
				env := Envelope{Type: "notification", Payload: msg.Data}
				if err := writeEnvelope(ws, env); err != nil {
					registry.Unregister(conn)
					_ = ws.Close()
					return
				}
			case env := <-control:
				if err := writeEnvelope(ws, env); err != nil {
					registry.Unregister(conn)
					_ = ws.Close()
					return
				}
			case <-ticker.C:
				if err := writeEnvelope(ws, Envelope{Type: "ping"}); err != nil {
					registry.Unregister(conn)
					_ = ws.Close()
					return
				}
			case <-conn.Done():
				_ = ws.Close()
				return
			}
		}
	}
}

func writeEnvelope(ws *websocket.Conn, env Envelope) error {
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return ws.WriteJSON(env)
}
