package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pusher "github.com/pusher/pusher-http-go/v5"

	"taskpulse-api/pkg/appenv"
)

// PusherDriver hands deliveries to the external push service. It keeps no
// connection state of its own: it addresses the user's logical channel
// ("user-<id>") and trusts the service to fan out. Delivered means accepted
// by the service API, not received by a client.
type PusherDriver struct {
	client pusher.Client
}

func NewPusherDriver(cfg appenv.PusherConfig) *PusherDriver {
	return &PusherDriver{client: pusher.Client{
		AppID:   cfg.AppID,
		Key:     cfg.Key,
		Secret:  cfg.Secret,
		Cluster: cfg.Cluster,
		Secure:  true,
	}}
}

func (d *PusherDriver) Kind() string { return "pusher" }

// Deliver triggers one event on the user's channel. The event name is the
// notification kind; the payload is the same rendered JSON used by SSE and
// WebSocket.
func (d *PusherDriver) Deliver(_ context.Context, userID int, msg Message) Outcome {
	channel := fmt.Sprintf("user-%d", userID)
	if err := d.client.Trigger(channel, msg.Event, json.RawMessage(msg.Data)); err != nil {
		slog.Warn("pusher trigger failed", "channel", channel, "event", msg.Event, "err", err)
		return TransportError
	}
	return Delivered
}
