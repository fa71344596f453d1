package bluetooth

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NameResolver tries to resolve names for unnamed BLE devices in the background.
// It uses hcitool name which sends a name request to the device. Resolved
// names are picked up by the scanner on the device's next advertisement.
type NameResolver struct {
	mu     sync.Mutex
	tried  map[Handle]int
	active map[Handle]int
	names  map[Handle]string
	stop   chan struct{}
	once   sync.Once
	lookup func(ctx context.Context, mac string) string
	log    zerolog.Logger
}

const (
	maxAttempts    = 2
	resolveTimeout = 4 * time.Second
	resolvePause   = 3 * time.Second
)

// NewNameResolver creates a new resolver.
func NewNameResolver(logger zerolog.Logger) *NameResolver {
	return &NameResolver{
		tried:  make(map[Handle]int),
		active: make(map[Handle]int),
		names:  make(map[Handle]string),
		stop:   make(chan struct{}),
		lookup: hcitoolName,
		log:    logger.With().Str("component", "name-resolver").Logger(),
	}
}

// Name returns the resolved name for h, or "".
func (r *NameResolver) Name(h Handle) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names[h]
}

// Pending reports whether a name for h may still arrive: no name yet and
// either a lookup in flight or attempts left.
func (r *NameResolver) Pending(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[h] != "" {
		return false
	}
	return r.active[h] > 0 || r.tried[h] < maxAttempts
}

// RequestResolve queues h for background name resolution.
// Safe to call from any goroutine.
func (r *NameResolver) RequestResolve(h Handle) {
	r.mu.Lock()
	if r.names[h] != "" || r.active[h] > 0 || r.tried[h] >= maxAttempts {
		r.mu.Unlock()
		return
	}
	r.tried[h]++
	r.active[h]++
	r.mu.Unlock()

	go r.resolve(h)
}

func (r *NameResolver) resolve(h Handle) {
	defer func() {
		r.mu.Lock()
		r.active[h]--
		r.mu.Unlock()
	}()

	// Rate limit - don't spam
	select {
	case <-r.stop:
		return
	case <-time.After(resolvePause):
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	name := r.lookup(ctx, string(h))
	if name == "" {
		return
	}

	r.mu.Lock()
	r.names[h] = name
	r.mu.Unlock()
	r.log.Debug().Str("handle", string(h)).Str("name", name).Msg("name resolved")
}

func hcitoolName(ctx context.Context, mac string) string {
	out, err := exec.CommandContext(ctx, "hcitool", "name", mac).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Stop terminates pending resolutions.
func (r *NameResolver) Stop() {
	r.once.Do(func() { close(r.stop) })
}

// HcitoolAvailable checks if hcitool is available on the system.
func HcitoolAvailable() bool {
	_, err := exec.LookPath("hcitool")
	return err == nil
}
