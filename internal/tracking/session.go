// Package tracking follows a single device while its distance view is open.
package tracking

import (
	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/proximity"
	"github.com/rs/zerolog"
)

// Status is the session state.
type Status int

const (
	Idle Status = iota
	Tracking
)

func (s Status) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "idle"
}

// State is what a session publishes on every change.
type State struct {
	Status     Status
	Target     bluetooth.Handle
	Distance   proximity.Distance
	Percentage int
	Connection bluetooth.ConnectionState
}

// Subscriber is the part of the sampler a session needs.
type Subscriber interface {
	Subscribe(fn bluetooth.Handler) (unsubscribe func())
}

// Options configures a Session.
type Options struct {
	SmoothingAlpha float64
	MaxDistance    float64
	OnChange       func(State)
	Logger         zerolog.Logger
}

// Session owns the smoothing context for one target handle. All methods
// must run on the sampler's serialized context.
type Session struct {
	events      Subscriber
	smoother    *proximity.Smoother[bluetooth.Handle]
	maxDistance float64
	onChange    func(State)
	log         zerolog.Logger

	state       State
	unsubscribe func()
}

// New creates an idle session.
func New(events Subscriber, opts Options) (*Session, error) {
	smoother, err := proximity.NewSmoother[bluetooth.Handle](opts.SmoothingAlpha)
	if err != nil {
		return nil, err
	}
	return &Session{
		events:      events,
		smoother:    smoother,
		maxDistance: opts.MaxDistance,
		onChange:    opts.OnChange,
		log:         opts.Logger.With().Str("component", "tracking").Logger(),
	}, nil
}

// Start begins tracking h. A session already tracking another handle is
// stopped first.
func (s *Session) Start(h bluetooth.Handle) {
	if s.state.Status == Tracking {
		s.Stop()
	}

	s.smoother.Clear(h)
	s.state = State{
		Status:     Tracking,
		Target:     h,
		Distance:   proximity.Unknown,
		Percentage: 0,
		Connection: bluetooth.Disconnected,
	}
	s.unsubscribe = s.events.Subscribe(bluetooth.ForHandle(h, s.handle))
	s.log.Info().Str("handle", string(h)).Msg("tracking started")
	s.publish()
}

// Stop releases the target and discards its smoothing history.
func (s *Session) Stop() {
	if s.state.Status == Idle {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	target := s.state.Target
	s.smoother.Clear(target)
	s.state = State{Status: Idle, Distance: proximity.Unknown}
	s.log.Info().Str("handle", string(target)).Msg("tracking stopped")
	s.publish()
}

// State returns the last published state.
func (s *Session) State() State {
	return s.state
}

func (s *Session) handle(ev bluetooth.Event) {
	if s.state.Status != Tracking || ev.Handle != s.state.Target {
		return
	}

	switch ev.Kind {
	case bluetooth.EventDiscovered, bluetooth.EventUpdated:
		d := s.smoother.Smooth(ev.Handle, proximity.Estimate(ev.RSSI))
		s.state.Distance = d
		s.state.Percentage = proximity.Percentage(d, s.maxDistance)
		s.state.Connection = ev.State
	case bluetooth.EventConnected, bluetooth.EventDisconnected:
		s.state.Connection = ev.State
	default:
		// Lost: keep the last values until the view closes.
		return
	}
	s.publish()
}

func (s *Session) publish() {
	if s.onChange != nil {
		s.onChange(s.state)
	}
}
