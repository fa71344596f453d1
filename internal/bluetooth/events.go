package bluetooth

import "time"

// EventKind enumerates sampler events.
type EventKind int

const (
	EventDiscovered EventKind = iota
	EventUpdated
	EventConnected
	EventDisconnected
	EventLost
)

func (k EventKind) String() string {
	switch k {
	case EventDiscovered:
		return "discovered"
	case EventUpdated:
		return "updated"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Event is delivered to sampler subscribers on the serialized context.
// Name, Vendor, RSSI and State are only meaningful for discovered/updated
// events.
type Event struct {
	Kind   EventKind
	Handle Handle
	Name   string
	Vendor string
	RSSI   int16
	State  ConnectionState
	At     time.Time
}

// Advertisement is what a scan provider hands to the sampler.
// Vendor is a display label for devices without a name; it never fills Name.
type Advertisement struct {
	Handle Handle
	Name   string
	Vendor string
	RSSI   int16
	State  ConnectionState
	At     time.Time
}

// Handler consumes sampler events.
type Handler func(Event)

// ForHandle wraps fn so it only sees events for h.
func ForHandle(h Handle, fn Handler) Handler {
	return func(ev Event) {
		if ev.Handle == h {
			fn(ev)
		}
	}
}

// Sink accepts provider output. Implementations must be safe to call from
// any goroutine.
type Sink interface {
	Post(adv Advertisement)
	PostConnection(h Handle, state ConnectionState)
}

// Provider is a radio scan source. Both methods are idempotent.
type Provider interface {
	StartScanning() error
	StopScanning()
}
