// Package registry keeps the live set of visible devices for one scan
// session and produces the ranked list the search screen renders.
package registry

import (
	"sort"
	"sync"

	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/proximity"
	"github.com/rs/zerolog"
)

// ChangeKind distinguishes registry notifications.
type ChangeKind int

const (
	Discovered ChangeKind = iota
	Lost
)

// Change is passed to the OnChange callback. Device is a copy.
type Change struct {
	Kind   ChangeKind
	Device bluetooth.DiscoveredDevice
}

// Options configures a Registry.
type Options struct {
	SmoothingAlpha float64
	MaxDistance    float64
	OnChange       func(Change)
	Logger         zerolog.Logger
}

// Registry is the visible-device set. Handle is called on the sampler's
// serialized context; Snapshot and the other readers may be called from
// any goroutine.
type Registry struct {
	mu        sync.RWMutex
	devices   map[bluetooth.Handle]*bluetooth.DiscoveredDevice
	smoother  *proximity.Smoother[bluetooth.Handle]
	seq       uint64
	active    bool
	sessionID string

	maxDistance float64
	onChange    func(Change)
	log         zerolog.Logger
}

// New creates an idle registry. Call Start before feeding events.
func New(opts Options) (*Registry, error) {
	smoother, err := proximity.NewSmoother[bluetooth.Handle](opts.SmoothingAlpha)
	if err != nil {
		return nil, err
	}
	return &Registry{
		devices:     make(map[bluetooth.Handle]*bluetooth.DiscoveredDevice),
		smoother:    smoother,
		maxDistance: opts.MaxDistance,
		onChange:    opts.OnChange,
		log:         opts.Logger.With().Str("component", "registry").Logger(),
	}, nil
}

// Start resets all state for a new scan session and begins accepting events.
func (r *Registry) Start(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.devices)
	r.smoother.ClearAll()
	r.seq = 0
	r.active = true
	r.sessionID = sessionID
	r.log.Info().Str("session", sessionID).Msg("registry started")
}

// Stop freezes the registry: the last snapshot stays readable and further
// events are ignored until the next Start.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}
	r.active = false
	r.smoother.ClearAll()
	r.log.Info().Str("session", r.sessionID).Int("devices", len(r.devices)).Msg("registry frozen")
}

// Active reports whether the registry is accepting events.
func (r *Registry) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SessionID returns the id passed to the last Start.
func (r *Registry) SessionID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionID
}

// Handle applies one sampler event. Events for unknown handles (other than
// discovery) are ignored.
func (r *Registry) Handle(ev bluetooth.Event) {
	var changes []Change

	r.mu.Lock()
	if r.active {
		switch ev.Kind {
		case bluetooth.EventDiscovered, bluetooth.EventUpdated:
			if c, ok := r.upsert(ev); ok {
				changes = append(changes, c)
			}
		case bluetooth.EventConnected, bluetooth.EventDisconnected:
			if d, ok := r.devices[ev.Handle]; ok {
				d.Connection = ev.State
			}
		case bluetooth.EventLost:
			if d, ok := r.devices[ev.Handle]; ok {
				delete(r.devices, ev.Handle)
				r.smoother.Clear(ev.Handle)
				changes = append(changes, Change{Kind: Lost, Device: *d})
			}
		}
	}
	r.mu.Unlock()

	// Callbacks run outside the lock so they may read the registry.
	if r.onChange != nil {
		for _, c := range changes {
			r.onChange(c)
		}
	}
}

// upsert inserts an unseen handle or updates an existing one. A duplicate
// discovery is treated as an update. Must hold r.mu.
func (r *Registry) upsert(ev bluetooth.Event) (Change, bool) {
	d, exists := r.devices[ev.Handle]
	if !exists {
		r.seq++
		d = &bluetooth.DiscoveredDevice{
			Handle:    ev.Handle,
			Name:      ev.Name,
			Vendor:    ev.Vendor,
			Class:     bluetooth.Classify(ev.Name),
			FirstSeen: ev.At,
			Seq:       r.seq,
		}
		r.devices[ev.Handle] = d
	} else if d.Name == "" && ev.Name != "" {
		// First resolved name wins; class stays as first derived.
		d.Name = ev.Name
	}
	if d.Vendor == "" {
		d.Vendor = ev.Vendor
	}

	d.Connection = ev.State
	d.LastSeen = ev.At
	d.RSSI = ev.RSSI
	d.Distance = r.smoother.Smooth(ev.Handle, proximity.Estimate(ev.RSSI))
	d.Percentage = proximity.Percentage(d.Distance, r.maxDistance)

	if exists {
		return Change{}, false
	}
	return Change{Kind: Discovered, Device: *d}, true
}

// Snapshot returns a ranked copy of the visible devices: connected first,
// then strongest signal, ties in discovery order.
func (r *Registry) Snapshot() []bluetooth.DiscoveredDevice {
	r.mu.RLock()
	out := make([]bluetooth.DiscoveredDevice, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	r.mu.RUnlock()

	Rank(out)
	return out
}

// Rank sorts devices in list order in place.
func Rank(devices []bluetooth.DiscoveredDevice) {
	sort.Slice(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		if a.Connection != b.Connection {
			return a.Connection == bluetooth.Connected
		}
		if a.RSSI != b.RSSI {
			return a.RSSI > b.RSSI // Strongest first (less negative)
		}
		return a.Seq < b.Seq
	})
}

// Lookup returns a copy of the device with handle h.
func (r *Registry) Lookup(h bluetooth.Handle) (bluetooth.DiscoveredDevice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[h]
	if !ok {
		return bluetooth.DiscoveredDevice{}, false
	}
	return *d, true
}

// Len returns the number of visible devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Counts returns visible devices broken down by class.
func (r *Registry) Counts() map[bluetooth.DeviceClass]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[bluetooth.DeviceClass]int)
	for _, d := range r.devices {
		counts[d.Class]++
	}
	return counts
}
