package bluetooth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const queueSize = 256

type subscription struct {
	id uint64
	fn Handler
}

// Sampler is the single serialized event context of a scan. Providers post
// advertisements from their own goroutines; Run applies them one at a time,
// turning them into discovered/updated/lost events for subscribers.
//
// Ingest, Connection, Expire and Reset mutate sampler state and must only be
// called from the goroutine running Run (or via Exec). Tests without Run
// call them directly from a single goroutine.
type Sampler struct {
	queue    chan func()
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.Mutex
	subs   []subscription
	nextID uint64

	lostAfter time.Duration
	lastSeen  map[Handle]time.Time
	log       zerolog.Logger
}

// NewSampler creates a sampler that reports a handle lost after lostAfter
// without advertisements.
func NewSampler(lostAfter time.Duration, logger zerolog.Logger) *Sampler {
	return &Sampler{
		queue:     make(chan func(), queueSize),
		done:      make(chan struct{}),
		lostAfter: lostAfter,
		lastSeen:  make(map[Handle]time.Time),
		log:       logger.With().Str("component", "sampler").Logger(),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Sampler) Subscribe(fn Handler) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Post queues an advertisement. Safe from any goroutine.
func (s *Sampler) Post(adv Advertisement) {
	s.Exec(func() { s.Ingest(adv) })
}

// PostConnection queues a connection state change. Safe from any goroutine.
func (s *Sampler) PostConnection(h Handle, state ConnectionState) {
	at := time.Now()
	s.Exec(func() { s.Connection(h, state, at) })
}

// Exec runs fn on the serialized context. After Run has returned, fn is
// dropped.
func (s *Sampler) Exec(fn func()) {
	select {
	case s.queue <- fn:
	case <-s.done:
	}
}

// Run drains the queue until ctx is cancelled, checking for lost devices
// every sweep interval.
func (s *Sampler) Run(ctx context.Context, sweep time.Duration) error {
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()
	defer s.doneOnce.Do(func() { close(s.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.queue:
			fn()
		case now := <-ticker.C:
			s.Expire(now)
		}
	}
}

// Ingest records an advertisement and dispatches it as discovered (first
// sighting in this scan session) or updated.
func (s *Sampler) Ingest(adv Advertisement) {
	if adv.Handle == "" {
		return
	}
	if adv.At.IsZero() {
		adv.At = time.Now()
	}

	kind := EventUpdated
	if _, seen := s.lastSeen[adv.Handle]; !seen {
		kind = EventDiscovered
		s.log.Debug().Str("handle", string(adv.Handle)).Str("name", adv.Name).Int16("rssi", adv.RSSI).Msg("device discovered")
	}
	s.lastSeen[adv.Handle] = adv.At

	s.dispatch(Event{
		Kind:   kind,
		Handle: adv.Handle,
		Name:   adv.Name,
		Vendor: adv.Vendor,
		RSSI:   adv.RSSI,
		State:  adv.State,
		At:     adv.At,
	})
}

// Connection dispatches a connected or disconnected event.
func (s *Sampler) Connection(h Handle, state ConnectionState, at time.Time) {
	kind := EventDisconnected
	if state == Connected {
		kind = EventConnected
	}
	s.dispatch(Event{Kind: kind, Handle: h, State: state, At: at})
}

// Expire emits lost events for handles silent for longer than lostAfter.
// Returns the number of lost handles.
func (s *Sampler) Expire(now time.Time) int {
	cutoff := now.Add(-s.lostAfter)
	var lost []Handle
	for h, seen := range s.lastSeen {
		if seen.Before(cutoff) {
			lost = append(lost, h)
		}
	}
	sort.Slice(lost, func(i, j int) bool { return lost[i] < lost[j] })

	for _, h := range lost {
		delete(s.lastSeen, h)
		s.log.Debug().Str("handle", string(h)).Msg("device lost")
		s.dispatch(Event{Kind: EventLost, Handle: h, At: now})
	}
	return len(lost)
}

// Reset forgets every handle so the next advertisement of any device is a
// fresh discovery.
func (s *Sampler) Reset() {
	clear(s.lastSeen)
}

// Seen returns the number of handles currently considered visible.
func (s *Sampler) Seen() int {
	return len(s.lastSeen)
}

func (s *Sampler) dispatch(ev Event) {
	s.mu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}
