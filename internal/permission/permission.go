// Package permission decides whether radio scanning may start.
package permission

import (
	"sync"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"
)

// Requester resolves access to the radio. The callback is invoked exactly
// once per call, possibly on another goroutine.
type Requester interface {
	RequestAccess(callback func(granted bool))
}

// Static answers every request with a fixed result. Used in demo mode.
type Static bool

// RequestAccess calls back immediately.
func (s Static) RequestAccess(callback func(granted bool)) {
	callback(bool(s))
}

// AdapterGate grants access when the local BLE adapter can be enabled.
// The adapter is enabled at most once; later requests reuse the result.
type AdapterGate struct {
	enable func() error
	log    zerolog.Logger

	once    sync.Once
	granted bool
}

// NewAdapterGate creates a gate for the default adapter.
func NewAdapterGate(logger zerolog.Logger) *AdapterGate {
	return &AdapterGate{
		enable: bluetooth.DefaultAdapter.Enable,
		log:    logger.With().Str("component", "permission").Logger(),
	}
}

// RequestAccess enables the adapter in the background and reports whether
// it succeeded.
func (g *AdapterGate) RequestAccess(callback func(granted bool)) {
	go func() {
		g.once.Do(func() {
			if err := g.enable(); err != nil {
				g.log.Error().Err(err).Msg("failed to enable BLE adapter (try running with sudo or setcap cap_net_admin+ep)")
				return
			}
			g.granted = true
			g.log.Info().Msg("BLE adapter enabled")
		})
		callback(g.granted)
	}()
}
