package bluetooth

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"
)

// NameSource supplies names resolved out of band for unnamed devices.
// Pending is true while a name for h may still arrive.
type NameSource interface {
	Name(h Handle) string
	RequestResolve(h Handle)
	Pending(h Handle) bool
}

// ConnectionLookup reports the current link state of a device.
type ConnectionLookup interface {
	State(h Handle) ConnectionState
}

// BLEOptions configures a BLEScanner. Names and Connections may be nil.
type BLEOptions struct {
	Names          NameSource
	Connections    ConnectionLookup
	IncludeUnnamed bool
	Logger         zerolog.Logger
}

// BLEScanner handles Bluetooth Low Energy scanning. The adapter must already
// be enabled (see permission.AdapterGate).
type BLEScanner struct {
	adapter *bluetooth.Adapter
	sink    Sink
	opts    BLEOptions
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewBLEScanner creates a scanner on the default adapter.
func NewBLEScanner(sink Sink, opts BLEOptions) *BLEScanner {
	return &BLEScanner{
		adapter: bluetooth.DefaultAdapter,
		sink:    sink,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "ble-scanner").Logger(),
	}
}

// StartScanning begins BLE scanning in a goroutine. Advertisements are
// posted to the sink.
func (s *BLEScanner) StartScanning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	go func() {
		err := s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !s.isRunning() {
				return
			}
			s.handleResult(result)
		})
		if err != nil {
			s.log.Error().Err(err).Msg("BLE scan stopped with error")
		}
	}()

	s.log.Info().Msg("BLE scanning started")
	return nil
}

// StopScanning halts the BLE scanner.
func (s *BLEScanner) StopScanning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if err := s.adapter.StopScan(); err != nil {
		s.log.Warn().Err(err).Msg("stop scan failed")
	}
	s.log.Info().Msg("BLE scanning stopped")
}

func (s *BLEScanner) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *BLEScanner) handleResult(result bluetooth.ScanResult) {
	var mfrs []uint16
	for _, m := range result.ManufacturerData() {
		mfrs = append(mfrs, m.CompanyID)
	}
	s.advertise(Handle(result.Address.String()), result.LocalName(), mfrs, result.RSSI, time.Now())
}

// advertise posts one sighting. A device with no name yet is held back while
// a name lookup is outstanding, so it is first listed under its real name.
func (s *BLEScanner) advertise(h Handle, local string, companyIDs []uint16, rssi int16, at time.Time) {
	name, pending := s.resolveName(h, local)
	var vendor string
	if name == "" {
		if pending && !s.opts.IncludeUnnamed {
			return
		}
		vendor = vendorLabel(h, companyIDs)
		if vendor == "" && !s.opts.IncludeUnnamed {
			return
		}
	}

	state := Disconnected
	if s.opts.Connections != nil {
		state = s.opts.Connections.State(h)
	}

	s.sink.Post(Advertisement{
		Handle: h,
		Name:   name,
		Vendor: vendor,
		RSSI:   rssi,
		State:  state,
		At:     at,
	})
}

// resolveName picks the advertised local name, then an out-of-band resolved
// name. Unresolved devices are queued for resolution and reported pending.
func (s *BLEScanner) resolveName(h Handle, local string) (name string, pending bool) {
	if local != "" {
		return local, false
	}
	if s.opts.Names == nil {
		return "", false
	}
	if name := s.opts.Names.Name(h); name != "" {
		return name, false
	}
	s.opts.Names.RequestResolve(h)
	return "", s.opts.Names.Pending(h)
}

// vendorLabel names the first known manufacturer, e.g. "Apple EE:FF".
func vendorLabel(h Handle, companyIDs []uint16) string {
	for _, id := range companyIDs {
		if mfrName := LookupManufacturer(id); mfrName != "" {
			return manufacturerLabel(mfrName, string(h))
		}
	}
	return ""
}

// manufacturerLabel builds "Apple EE:FF" from a vendor and a MAC address.
func manufacturerLabel(vendor, mac string) string {
	if len(mac) >= 17 {
		return fmt.Sprintf("%s %s", vendor, mac[12:])
	}
	return vendor
}
