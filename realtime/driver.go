package realtime

import "context"

// Outcome is the result of a single delivery attempt.
type Outcome int

const (
	// Delivered means the payload was handed to at least one live transport
	// (or, for the push service, accepted by its API).
	Delivered Outcome = iota
	// NoActiveConnection means the user had no live connection on this driver.
	// It is a signal, not an error: the persisted notification still exists.
	NoActiveConnection
	// TransportError means every attempted write failed. Broken connections
	// are unregistered by the driver; there is no in-driver retry.
	TransportError
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case NoActiveConnection:
		return "no_active_connection"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Message is the unit of delivery handed to drivers. Data is the rendered
// notification JSON shared by all drivers; Event is the notification kind,
// used by the push service as its named event type.
type Message struct {
	Event string
	Data  []byte
}

// Driver is a delivery mechanism for real-time notifications. Implementations
// must be safe for concurrent use; the dispatcher invokes them in parallel
// across recipients and across drivers.
type Driver interface {
	Kind() string
	Deliver(ctx context.Context, userID int, msg Message) Outcome
}
