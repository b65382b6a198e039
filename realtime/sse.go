package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SSEDriver delivers notifications over registered Server-Sent-Events
// streams. Retry is the client's responsibility via EventSource reconnect.
type SSEDriver struct {
	registry *Registry
}

func NewSSEDriver(registry *Registry) *SSEDriver {
	return &SSEDriver{registry: registry}
}

func (d *SSEDriver) Kind() string { return string(ConnSSE) }

func (d *SSEDriver) Deliver(_ context.Context, userID int, msg Message) Outcome {
	return d.registry.deliverVia(userID, ConnSSE, msg)
}

// formatSSEFrame renders one notification as a newline-delimited SSE frame.
func formatSSEFrame(data []byte) []byte {
	return []byte(fmt.Sprintf("event: notification\ndata: %s\n\n", data))
}

// sseHeartbeat is an SSE comment line; clients ignore it, proxies keep the
// stream open.
var sseHeartbeat = []byte(": keep-alive\n\n")

// ServeSSE returns the long-lived text/event-stream endpoint. The caller must
// authenticate first and set userId in the gin context. A client may pass a
// stable ?connectionId= to make reconnects replace the previous registration.
func ServeSSE(registry *Registry, heartbeat time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("userId")
		if userID == 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		connID := c.Query("connectionId")
		if connID == "" {
			connID = uuid.NewString()
		}
		conn := registry.Register(userID, connID, ConnSSE)

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")
		c.Writer.WriteHeader(http.StatusOK)

		// Initial comment so clients and proxies see bytes immediately.
		if _, err := c.Writer.Write([]byte(": connected\n\n")); err != nil {
			registry.Unregister(conn)
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case msg := <-conn.Send():
				if _, err := c.Writer.Write(formatSSEFrame(msg.Data)); err != nil {
					registry.Unregister(conn)
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := c.Writer.Write(sseHeartbeat); err != nil {
					registry.Unregister(conn)
					return
				}
				flusher.Flush()
			case <-conn.Done():
				// Unregistered elsewhere (replaced or dropped as slow).
				return
			case <-c.Request.Context().Done():
				registry.Unregister(conn)
				return
			}
		}
	}
}
