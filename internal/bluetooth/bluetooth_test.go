package bluetooth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

type memorySink struct {
	mu    sync.Mutex
	ads   []Advertisement
	links map[Handle]ConnectionState
}

func newMemorySink() *memorySink {
	return &memorySink{links: map[Handle]ConnectionState{}}
}

func (s *memorySink) Post(adv Advertisement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ads = append(s.ads, adv)
}

func (s *memorySink) PostConnection(h Handle, state ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[h] = state
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want DeviceClass
	}{
		{"AirPods Max", ClassEarbudsMax},
		{"Galaxy Buds MAX edition", ClassEarbudsMax},
		{"AirPods Pro", ClassEarbuds},
		{"Pixel Buds", ClassEarbuds},
		{"AirTag", ClassTag},
		{"Tile Mate", ClassTag},
		{"Apple Watch", ClassWearable},
		{"Mi Band 8", ClassWearable},
		{"iPhone 15 Pro", ClassPhone},
		{"Galaxy S24 Ultra", ClassPhone},
		{"JBL Flip 6", ClassUnknown},
		{"Max Speaker", ClassUnknown},
		{"", ClassUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.name); got != tc.want {
				t.Fatalf("Classify(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestParseDeviceClassRoundTrip(t *testing.T) {
	for c := ClassUnknown; c <= ClassPhone; c++ {
		if got := ParseDeviceClass(c.String()); got != c {
			t.Fatalf("ParseDeviceClass(%q) = %v", c.String(), got)
		}
	}
	if ParseDeviceClass("toaster") != ClassUnknown {
		t.Fatal("expected unknown for unrecognised class")
	}
}

func TestSamplerDiscoverThenUpdate(t *testing.T) {
	s := NewSampler(time.Minute, zerolog.Nop())
	rec := &recorder{}
	s.Subscribe(rec.handle)

	s.Ingest(Advertisement{Handle: "a", Name: "AirTag", RSSI: -60})
	s.Ingest(Advertisement{Handle: "a", RSSI: -61})
	s.Ingest(Advertisement{Handle: "b", RSSI: -70})

	want := []EventKind{EventDiscovered, EventUpdated, EventDiscovered}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if rec.events[0].Name != "AirTag" || rec.events[0].RSSI != -60 {
		t.Fatalf("unexpected payload %+v", rec.events[0])
	}
}

func TestSamplerIgnoresEmptyHandle(t *testing.T) {
	s := NewSampler(time.Minute, zerolog.Nop())
	rec := &recorder{}
	s.Subscribe(rec.handle)
	s.Ingest(Advertisement{RSSI: -50})
	if len(rec.kinds()) != 0 {
		t.Fatal("expected no events for empty handle")
	}
}

func TestSamplerExpireEmitsLostAndRediscovers(t *testing.T) {
	s := NewSampler(10*time.Second, zerolog.Nop())
	rec := &recorder{}
	s.Subscribe(rec.handle)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Ingest(Advertisement{Handle: "old", RSSI: -60, At: base})
	s.Ingest(Advertisement{Handle: "fresh", RSSI: -60, At: base.Add(8 * time.Second)})

	if n := s.Expire(base.Add(15 * time.Second)); n != 1 {
		t.Fatalf("expected 1 lost handle, got %d", n)
	}
	last := rec.events[len(rec.events)-1]
	if last.Kind != EventLost || last.Handle != "old" {
		t.Fatalf("expected lost event for old, got %+v", last)
	}
	if s.Seen() != 1 {
		t.Fatalf("expected 1 visible handle, got %d", s.Seen())
	}

	s.Ingest(Advertisement{Handle: "old", RSSI: -55, At: base.Add(16 * time.Second)})
	if k := rec.events[len(rec.events)-1].Kind; k != EventDiscovered {
		t.Fatalf("expected rediscovery, got %v", k)
	}
}

func TestSamplerResetStartsFreshSession(t *testing.T) {
	s := NewSampler(time.Minute, zerolog.Nop())
	rec := &recorder{}
	s.Subscribe(rec.handle)

	s.Ingest(Advertisement{Handle: "a", RSSI: -60})
	s.Reset()
	s.Ingest(Advertisement{Handle: "a", RSSI: -60})

	if k := rec.kinds(); k[1] != EventDiscovered {
		t.Fatalf("expected discovered after reset, got %v", k)
	}
}

func TestSamplerConnectionEvents(t *testing.T) {
	s := NewSampler(time.Minute, zerolog.Nop())
	rec := &recorder{}
	s.Subscribe(rec.handle)

	s.Connection("a", Connected, time.Now())
	s.Connection("a", Disconnected, time.Now())

	k := rec.kinds()
	if len(k) != 2 || k[0] != EventConnected || k[1] != EventDisconnected {
		t.Fatalf("unexpected kinds %v", k)
	}
}

func TestSamplerUnsubscribe(t *testing.T) {
	s := NewSampler(time.Minute, zerolog.Nop())
	first, second := &recorder{}, &recorder{}
	unsubscribe := s.Subscribe(first.handle)
	s.Subscribe(second.handle)

	s.Ingest(Advertisement{Handle: "a", RSSI: -60})
	unsubscribe()
	s.Ingest(Advertisement{Handle: "a", RSSI: -60})

	if len(first.kinds()) != 1 {
		t.Fatalf("unsubscribed handler saw %d events", len(first.kinds()))
	}
	if len(second.kinds()) != 2 {
		t.Fatalf("remaining handler saw %d events", len(second.kinds()))
	}
}

func TestForHandleFilters(t *testing.T) {
	rec := &recorder{}
	fn := ForHandle("target", rec.handle)
	fn(Event{Handle: "other"})
	fn(Event{Handle: "target"})
	if len(rec.kinds()) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.kinds()))
	}
}

func TestSamplerRunSerializesPostsAndExec(t *testing.T) {
	s := NewSampler(time.Minute, zerolog.Nop())
	rec := &recorder{}
	s.Subscribe(rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, time.Hour) }()

	s.Post(Advertisement{Handle: "a", RSSI: -60})
	s.PostConnection("a", Connected)
	done := make(chan struct{})
	s.Exec(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("exec did not run")
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	k := rec.kinds()
	if len(k) != 2 || k[0] != EventDiscovered || k[1] != EventConnected {
		t.Fatalf("unexpected order %v", k)
	}

	// Posting after Run has returned must not block.
	s.Post(Advertisement{Handle: "b", RSSI: -60})
}

func TestParseConnections(t *testing.T) {
	out := "Connections:\n\t< ACL aa:bb:cc:dd:ee:ff handle 256 state 1 lm MASTER AUTH ENCRYPT\n\t> ACL 11:22:33:44:55:66 handle 12 state 1 lm SLAVE\n"
	got := parseConnections(out)
	if len(got) != 2 || got[0] != "AA:BB:CC:DD:EE:FF" || got[1] != "11:22:33:44:55:66" {
		t.Fatalf("unexpected handles %v", got)
	}
	if len(parseConnections("Connections:\n")) != 0 {
		t.Fatal("expected no handles")
	}
}

func TestConnectionMonitorApplyDiffs(t *testing.T) {
	sink := newMemorySink()
	m := NewConnectionMonitor(sink, time.Second, zerolog.Nop())

	m.apply([]Handle{"A", "B"})
	if m.State("A") != Connected || sink.links["B"] != Connected {
		t.Fatalf("expected A and B connected, got %v", sink.links)
	}

	m.apply([]Handle{"B"})
	if m.State("A") != Disconnected || sink.links["A"] != Disconnected {
		t.Fatalf("expected A disconnected, got %v", sink.links)
	}
	if m.State("B") != Connected {
		t.Fatal("expected B still connected")
	}
}

func TestIsValidMAC(t *testing.T) {
	if !isValidMAC("AA:BB:CC:DD:EE:FF") {
		t.Fatal("valid MAC rejected")
	}
	for _, bad := range []string{"", "AA:BB:CC:DD:EE", "AA-BB-CC-DD-EE-FF", "GG:BB:CC:DD:EE:FF"} {
		if isValidMAC(bad) {
			t.Fatalf("invalid MAC %q accepted", bad)
		}
	}
}

type fakeProvider struct {
	started, stopped int
	err              error
}

func (p *fakeProvider) StartScanning() error {
	if p.err != nil {
		return p.err
	}
	p.started++
	return nil
}

func (p *fakeProvider) StopScanning() { p.stopped++ }

func TestProvidersRollbackOnError(t *testing.T) {
	first := &fakeProvider{}
	failing := &fakeProvider{err: errors.New("adapter busy")}
	ps := Providers{first, failing}

	if err := ps.StartScanning(); err == nil {
		t.Fatal("expected start error")
	}
	if first.started != 1 || first.stopped != 1 {
		t.Fatalf("expected first provider rolled back, got %+v", first)
	}
}

func TestMockScannerEmitsValidAdvertisements(t *testing.T) {
	sink := newMemorySink()
	m := NewMockScanner(sink)
	for i := 0; i < 20; i++ {
		m.emit(0.5)
	}

	if len(sink.ads) == 0 {
		t.Fatal("expected advertisements")
	}
	for _, adv := range sink.ads {
		if adv.Handle == "" || adv.Name == "" {
			t.Fatalf("incomplete advertisement %+v", adv)
		}
		if adv.RSSI >= 0 {
			t.Fatalf("invalid RSSI %d", adv.RSSI)
		}
	}
}

func TestManufacturerLabel(t *testing.T) {
	if got := manufacturerLabel("Apple", "AA:BB:CC:DD:EE:FF"); got != "Apple EE:FF" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := manufacturerLabel("Apple", "short"); got != "Apple" {
		t.Fatalf("unexpected label %q", got)
	}
}

type stubNames struct {
	names     map[Handle]string
	pending   bool
	requested int
}

func (n *stubNames) Name(h Handle) string  { return n.names[h] }
func (n *stubNames) RequestResolve(Handle) { n.requested++ }
func (n *stubNames) Pending(h Handle) bool { return n.pending && n.names[h] == "" }

func TestScannerWaitsForResolvedName(t *testing.T) {
	const h = Handle("AA:BB:CC:DD:EE:FF")
	sink := newMemorySink()
	names := &stubNames{names: map[Handle]string{}, pending: true}
	s := &BLEScanner{sink: sink, opts: BLEOptions{Names: names}}
	apple := []uint16{0x004C}

	s.advertise(h, "", apple, -60, time.Now())
	if len(sink.ads) != 0 || names.requested != 1 {
		t.Fatalf("expected device held back while resolving, got %d ads, %d requests", len(sink.ads), names.requested)
	}

	names.names[h] = "AirPods Pro"
	s.advertise(h, "", apple, -58, time.Now())
	if len(sink.ads) != 1 {
		t.Fatalf("expected one advertisement, got %d", len(sink.ads))
	}
	adv := sink.ads[0]
	if adv.Name != "AirPods Pro" || adv.Vendor != "" {
		t.Fatalf("unexpected advertisement %+v", adv)
	}
	if Classify(adv.Name) != ClassEarbuds {
		t.Fatalf("expected earbuds class, got %v", Classify(adv.Name))
	}
}

func TestScannerFallsBackToVendorLabel(t *testing.T) {
	const h = Handle("AA:BB:CC:DD:EE:FF")
	tests := []struct {
		name      string
		names     NameSource
		ids       []uint16
		unnamed   bool
		wantPost  bool
		wantLabel string
	}{
		{"resolver gave up", &stubNames{}, []uint16{0x004C}, false, true, "Apple EE:FF"},
		{"no resolver", nil, []uint16{0x004C}, false, true, "Apple EE:FF"},
		{"unknown vendor hidden", nil, []uint16{0x0958}, false, false, ""},
		{"unknown vendor included", nil, []uint16{0x0958}, true, true, ""},
		{"pending but included", &stubNames{pending: true}, []uint16{0x004C}, true, true, "Apple EE:FF"},
	}
	for _, tc := range tests {
		sink := newMemorySink()
		s := &BLEScanner{sink: sink, opts: BLEOptions{Names: tc.names, IncludeUnnamed: tc.unnamed}}
		s.advertise(h, "", tc.ids, -70, time.Now())

		if got := len(sink.ads) == 1; got != tc.wantPost {
			t.Fatalf("%s: posted=%v, want %v", tc.name, got, tc.wantPost)
		}
		if !tc.wantPost {
			continue
		}
		if adv := sink.ads[0]; adv.Name != "" || adv.Vendor != tc.wantLabel {
			t.Fatalf("%s: expected empty name and vendor %q, got %+v", tc.name, tc.wantLabel, adv)
		}
	}
}

func TestScannerPrefersAdvertisedName(t *testing.T) {
	sink := newMemorySink()
	names := &stubNames{pending: true}
	s := &BLEScanner{sink: sink, opts: BLEOptions{Names: names}}
	s.advertise("h1", "AirTag", []uint16{0x004C}, -50, time.Now())

	if len(sink.ads) != 1 || sink.ads[0].Name != "AirTag" || sink.ads[0].Vendor != "" {
		t.Fatalf("unexpected advertisements %+v", sink.ads)
	}
	if names.requested != 0 {
		t.Fatal("named device should not be queued for resolution")
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	tests := []struct {
		d    DiscoveredDevice
		want string
	}{
		{DiscoveredDevice{Name: "AirTag", Vendor: "Apple EE:FF"}, "AirTag"},
		{DiscoveredDevice{Vendor: "Apple EE:FF"}, "Apple EE:FF"},
		{DiscoveredDevice{}, "[unnamed]"},
	}
	for _, tc := range tests {
		if got := tc.d.DisplayName(); got != tc.want {
			t.Fatalf("DisplayName() = %q, want %q", got, tc.want)
		}
	}
}

func TestNameResolverPending(t *testing.T) {
	r := NewNameResolver(zerolog.Nop())
	defer r.Stop()

	if !r.Pending("h1") {
		t.Fatal("unseen handle should be pending")
	}
	r.mu.Lock()
	r.tried["h1"] = maxAttempts
	r.mu.Unlock()
	if r.Pending("h1") {
		t.Fatal("exhausted handle should not be pending")
	}

	r.mu.Lock()
	r.names["h2"] = "Pixel Buds"
	r.mu.Unlock()
	if r.Pending("h2") {
		t.Fatal("resolved handle should not be pending")
	}

	r.mu.Lock()
	r.active["h3"] = 1
	r.tried["h3"] = maxAttempts
	r.mu.Unlock()
	if !r.Pending("h3") {
		t.Fatal("handle with a lookup in flight should be pending")
	}
	r.RequestResolve("h3")
	if r.tried["h3"] != maxAttempts {
		t.Fatal("no new attempt while one is in flight")
	}
}

func TestLookupManufacturer(t *testing.T) {
	if got := LookupManufacturer(0x004C); got != "Apple" {
		t.Fatalf("expected Apple, got %q", got)
	}
	if got := LookupManufacturer(0x0958); got != "" {
		t.Fatalf("expected no label for non-personal vendor, got %q", got)
	}
}
