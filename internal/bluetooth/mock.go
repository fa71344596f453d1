package bluetooth

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"ble-finder.klederson.com/internal/config"
	"github.com/google/uuid"
)

var mockDeviceNames = []string{
	"AirPods Pro",
	"AirPods Max",
	"Galaxy Buds2 Pro",
	"Pixel Buds",
	"AirTag",
	"Tile Mate",
	"Apple Watch",
	"Fitbit Charge 6",
	"Mi Band 8",
	"iPhone 15 Pro",
	"Pixel 9 Pro",
	"Galaxy S24 Ultra",
	"JBL Flip 6",
	"MacBook Air",
}

type mockDevice struct {
	handle    Handle
	name      string
	baseRSSI  float64
	phase     float64
	amplitude float64
	drift     float64 // dBm per second, simulates walking toward or away
	active    bool
	connected bool
}

// MockScanner generates fake devices for demo mode. Handles are random
// UUIDs, like the per-app identifiers some platforms hand out.
type MockScanner struct {
	sink     Sink
	interval time.Duration

	mu      sync.Mutex
	devices []mockDevice
	cancel  context.CancelFunc
	rng     *rand.Rand
	t       float64
}

// NewMockScanner creates a mock scanner with random fake devices.
func NewMockScanner(sink Sink) *MockScanner {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	total := config.DemoDeviceMin + rng.Intn(config.DemoDeviceMax-config.DemoDeviceMin+1)

	perm := rng.Perm(len(mockDeviceNames))
	devices := make([]mockDevice, 0, total)
	for i := 0; i < total && i < len(perm); i++ {
		devices = append(devices, mockDevice{
			handle:    Handle(uuid.NewString()),
			name:      mockDeviceNames[perm[i]],
			baseRSSI:  -45 - rng.Float64()*45, // -45 to -90 dBm
			phase:     rng.Float64() * 2 * math.Pi,
			amplitude: 2 + rng.Float64()*5,
			drift:     (rng.Float64() - 0.5) * 0.6,
			active:    true,
			connected: rng.Float64() < 0.15,
		})
	}

	return &MockScanner{
		sink:     sink,
		interval: 500 * time.Millisecond,
		devices:  devices,
		rng:      rng,
	}
}

// StartScanning begins the mock scanner.
func (s *MockScanner) StartScanning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.loop(ctx)
	return nil
}

// StopScanning halts the mock scanner.
func (s *MockScanner) StopScanning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *MockScanner) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.emit(s.interval.Seconds())
		}
	}
}

type mockLink struct {
	handle Handle
	state  ConnectionState
}

// emit advances simulated time by dt seconds and posts one advertisement
// per visible device. Posting happens after s.mu is released.
func (s *MockScanner) emit(dt float64) {
	ads, links := s.step(dt)
	for _, l := range links {
		s.sink.PostConnection(l.handle, l.state)
	}
	for _, adv := range ads {
		s.sink.Post(adv)
	}
}

func (s *MockScanner) step(dt float64) ([]Advertisement, []mockLink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		ads   []Advertisement
		links []mockLink
	)
	s.t += dt
	for i := range s.devices {
		d := &s.devices[i]

		// Randomly toggle device visibility (appear/disappear)
		if s.rng.Float64() < 0.002 {
			d.active = !d.active
		}
		if !d.active {
			continue
		}

		if s.rng.Float64() < 0.003 {
			d.connected = !d.connected
			state := Disconnected
			if d.connected {
				state = Connected
			}
			links = append(links, mockLink{handle: d.handle, state: state})
		}

		d.baseRSSI += d.drift * dt
		if d.baseRSSI > -35 || d.baseRSSI < -95 {
			d.drift = -d.drift
		}

		// Sinusoidal RSSI fluctuation + noise
		rssi := d.baseRSSI + d.amplitude*math.Sin(s.t*0.5+d.phase) + (s.rng.Float64()-0.5)*4
		if rssi > -20 {
			rssi = -20
		}

		state := Disconnected
		if d.connected {
			state = Connected
		}
		ads = append(ads, Advertisement{
			Handle: d.handle,
			Name:   d.name,
			RSSI:   int16(rssi),
			State:  state,
			At:     time.Now(),
		})
	}
	return ads, links
}
