// Package scan owns the scan session lifecycle: permission, providers,
// the discovery registry and the single tracking session.
package scan

import (
	"sync"

	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/permission"
	"ble-finder.klederson.com/internal/registry"
	"ble-finder.klederson.com/internal/tracking"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Access is the last permission answer.
type Access int

const (
	AccessUnknown Access = iota
	AccessGranted
	AccessDenied
)

func (a Access) String() string {
	switch a {
	case AccessGranted:
		return "granted"
	case AccessDenied:
		return "denied"
	default:
		return "pending"
	}
}

// Status describes the scan session.
type Status struct {
	Scanning  bool
	Access    Access
	SessionID string
}

// Listener receives controller notifications. Methods may be called from
// any goroutine, including the sampler's, and must not block.
type Listener interface {
	ScanStatus(Status)
	DeviceChange(registry.Change)
	TrackingState(tracking.State)
}

// Options configures a Controller.
type Options struct {
	Sampler        *bluetooth.Sampler
	Provider       bluetooth.Provider
	Gate           permission.Requester
	SmoothingAlpha float64
	MaxDistance    float64
	Logger         zerolog.Logger

	// NewSessionID defaults to random UUIDs.
	NewSessionID func() string
}

// Controller starts and stops scan sessions. Registry and tracking state is
// only mutated on the sampler's serialized context.
type Controller struct {
	sampler  *bluetooth.Sampler
	provider bluetooth.Provider
	gate     permission.Requester
	registry *registry.Registry
	session  *tracking.Session
	newID    func() string
	log      zerolog.Logger

	// opMu serializes session start and stop. mu guards the fields below
	// and is never held while waiting on the sampler.
	opMu     sync.Mutex
	mu       sync.Mutex
	status   Status
	gen      uint64
	listener Listener
}

// New wires a registry and a tracking session to the sampler.
func New(opts Options) (*Controller, error) {
	c := &Controller{
		sampler:  opts.Sampler,
		provider: opts.Provider,
		gate:     opts.Gate,
		newID:    opts.NewSessionID,
		log:      opts.Logger.With().Str("component", "scan").Logger(),
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}

	reg, err := registry.New(registry.Options{
		SmoothingAlpha: opts.SmoothingAlpha,
		MaxDistance:    opts.MaxDistance,
		OnChange:       c.deviceChange,
		Logger:         opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	session, err := tracking.New(opts.Sampler, tracking.Options{
		SmoothingAlpha: opts.SmoothingAlpha,
		MaxDistance:    opts.MaxDistance,
		OnChange:       c.trackingState,
		Logger:         opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	c.registry = reg
	c.session = session
	opts.Sampler.Subscribe(reg.Handle)
	return c, nil
}

// SetListener installs l. Pass nil to drop notifications.
func (c *Controller) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// Registry returns the discovery registry for snapshot reads.
func (c *Controller) Registry() *registry.Registry {
	return c.registry
}

// Status returns the current scan status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Start asks for radio access and, once granted, begins a new scan session.
// A denied request leaves the controller idle.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.status.Scanning {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.gate.RequestAccess(func(granted bool) {
		c.begin(gen, granted)
	})
}

func (c *Controller) begin(gen uint64, granted bool) {
	if st, ok := c.openSession(gen, granted); ok {
		c.notifyStatus(st)
	}
}

// openSession applies a permission answer. The caller notifies listeners
// once opMu is released.
func (c *Controller) openSession(gen uint64, granted bool) (Status, bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		// Stopped or restarted while waiting for access.
		c.mu.Unlock()
		return Status{}, false
	}
	if !granted {
		c.status.Access = AccessDenied
		st := c.status
		c.mu.Unlock()
		c.log.Warn().Msg("radio access denied, staying idle")
		return st, true
	}
	id := c.newID()
	c.status = Status{Scanning: true, Access: AccessGranted, SessionID: id}
	c.mu.Unlock()

	c.sampler.Exec(func() {
		c.sampler.Reset()
		c.registry.Start(id)
	})
	if err := c.provider.StartScanning(); err != nil {
		c.log.Error().Err(err).Msg("failed to start scanning")
		c.mu.Lock()
		c.status.Scanning = false
		c.mu.Unlock()
		c.sampler.Exec(c.registry.Stop)
	}

	st := c.Status()
	c.log.Info().Str("session", id).Bool("scanning", st.Scanning).Msg("scan session started")
	return st, true
}

// Stop ends the scan session. The registry keeps its last snapshot and the
// tracking session is stopped.
func (c *Controller) Stop() {
	if st, ok := c.closeSession(); ok {
		c.notifyStatus(st)
	}
}

func (c *Controller) closeSession() (Status, bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.gen++
	if !c.status.Scanning {
		c.mu.Unlock()
		return Status{}, false
	}
	c.status.Scanning = false
	st := c.status
	c.mu.Unlock()

	c.provider.StopScanning()
	c.sampler.Exec(func() {
		c.registry.Stop()
		c.session.Stop()
	})
	c.log.Info().Str("session", st.SessionID).Msg("scan session stopped")
	return st, true
}

// StartTracking opens a tracking session for h, replacing any current one.
func (c *Controller) StartTracking(h bluetooth.Handle) {
	c.sampler.Exec(func() { c.session.Start(h) })
}

// StopTracking closes the tracking session.
func (c *Controller) StopTracking() {
	c.sampler.Exec(c.session.Stop)
}

func (c *Controller) currentListener() Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}

func (c *Controller) notifyStatus(st Status) {
	if l := c.currentListener(); l != nil {
		l.ScanStatus(st)
	}
}

func (c *Controller) deviceChange(ch registry.Change) {
	if l := c.currentListener(); l != nil {
		l.DeviceChange(ch)
	}
}

func (c *Controller) trackingState(st tracking.State) {
	if l := c.currentListener(); l != nil {
		l.TrackingState(st)
	}
}
