package bluetooth

import (
	"bufio"
	"context"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ConnectionMonitor polls `hcitool con` and reports link changes for
// devices connected to this host.
type ConnectionMonitor struct {
	sink     Sink
	interval time.Duration
	list     func(ctx context.Context) ([]Handle, error)
	log      zerolog.Logger

	mu        sync.Mutex
	connected map[Handle]bool
	cancel    context.CancelFunc
}

// NewConnectionMonitor creates a monitor polling every interval.
func NewConnectionMonitor(sink Sink, interval time.Duration, logger zerolog.Logger) *ConnectionMonitor {
	return &ConnectionMonitor{
		sink:      sink,
		interval:  interval,
		list:      hcitoolConnections,
		connected: make(map[Handle]bool),
		log:       logger.With().Str("component", "conn-monitor").Logger(),
	}
}

// StartScanning begins periodic polling in a goroutine.
func (m *ConnectionMonitor) StartScanning() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go m.loop(ctx)
	return nil
}

// StopScanning halts polling. Known connections are kept so State stays
// answerable.
func (m *ConnectionMonitor) StopScanning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// State returns the last polled link state of h.
func (m *ConnectionMonitor) State(h Handle) ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected[h] {
		return Connected
	}
	return Disconnected
}

func (m *ConnectionMonitor) loop(ctx context.Context) {
	for {
		m.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.interval):
		}
	}
}

func (m *ConnectionMonitor) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	handles, err := m.list(pollCtx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Debug().Err(err).Msg("connection poll failed")
		}
		return
	}
	m.apply(handles)
}

// apply diffs the polled set against the known set and posts changes.
func (m *ConnectionMonitor) apply(handles []Handle) {
	now := make(map[Handle]bool, len(handles))
	for _, h := range handles {
		now[h] = true
	}

	m.mu.Lock()
	var up, down []Handle
	for h := range now {
		if !m.connected[h] {
			up = append(up, h)
		}
	}
	for h := range m.connected {
		if !now[h] {
			down = append(down, h)
		}
	}
	m.connected = now
	m.mu.Unlock()

	sort.Slice(up, func(i, j int) bool { return up[i] < up[j] })
	sort.Slice(down, func(i, j int) bool { return down[i] < down[j] })
	for _, h := range up {
		m.sink.PostConnection(h, Connected)
	}
	for _, h := range down {
		m.sink.PostConnection(h, Disconnected)
	}
}

func hcitoolConnections(ctx context.Context) ([]Handle, error) {
	out, err := exec.CommandContext(ctx, "hcitool", "con").Output()
	if err != nil {
		return nil, err
	}
	return parseConnections(string(out)), nil
}

// parseConnections extracts addresses from `hcitool con` output.
// Format: "	< ACL AA:BB:CC:DD:EE:FF handle 256 state 1 lm MASTER"
func parseConnections(output string) []Handle {
	var handles []Handle
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			if isValidMAC(field) {
				handles = append(handles, Handle(strings.ToUpper(field)))
				break
			}
		}
	}
	return handles
}

func isValidMAC(mac string) bool {
	if len(mac) != 17 {
		return false
	}
	for i, c := range mac {
		if (i+1)%3 == 0 {
			if c != ':' {
				return false
			}
		} else {
			if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')) {
				return false
			}
		}
	}
	return true
}
