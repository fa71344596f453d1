package bluetooth

import (
	"strings"
	"time"

	"ble-finder.klederson.com/internal/proximity"
)

// Handle identifies a radio peer for the duration of one scan session.
// It is not guaranteed stable across scans or restarts.
type Handle string

// DeviceClass is derived from the advertised name at discovery time.
type DeviceClass int

const (
	ClassUnknown DeviceClass = iota
	ClassEarbuds
	ClassEarbudsMax
	ClassTag
	ClassWearable
	ClassPhone
)

func (c DeviceClass) String() string {
	switch c {
	case ClassEarbuds:
		return "earbuds"
	case ClassEarbudsMax:
		return "earbuds-max"
	case ClassTag:
		return "tag"
	case ClassWearable:
		return "wearable"
	case ClassPhone:
		return "phone"
	default:
		return "unknown"
	}
}

// ParseDeviceClass is the inverse of String. Unrecognised input maps to
// ClassUnknown.
func ParseDeviceClass(s string) DeviceClass {
	for c := ClassUnknown; c <= ClassPhone; c++ {
		if c.String() == s {
			return c
		}
	}
	return ClassUnknown
}

// Tag returns the short list label for the class.
func (c DeviceClass) Tag() string {
	switch c {
	case ClassEarbuds:
		return "[BUDS]"
	case ClassEarbudsMax:
		return "[MAX]"
	case ClassTag:
		return "[TAG]"
	case ClassWearable:
		return "[WEAR]"
	case ClassPhone:
		return "[PHONE]"
	default:
		return "[BLE]"
	}
}

var (
	earbudsKeywords  = []string{"airpod", "earbud", "buds"}
	tagKeywords      = []string{"airtag", "tag", "tile", "tracker"}
	wearableKeywords = []string{"watch", "band", "fitbit"}
	phoneKeywords    = []string{"iphone", "phone", "pixel", "galaxy s"}
)

// Classify derives the device class from an advertised name using
// case-insensitive substring matches in priority order.
func Classify(name string) DeviceClass {
	n := strings.ToLower(name)
	switch {
	case containsAny(n, earbudsKeywords) && strings.Contains(n, "max"):
		return ClassEarbudsMax
	case containsAny(n, earbudsKeywords):
		return ClassEarbuds
	case containsAny(n, tagKeywords):
		return ClassTag
	case containsAny(n, wearableKeywords):
		return ClassWearable
	case containsAny(n, phoneKeywords):
		return ClassPhone
	}
	return ClassUnknown
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// ConnectionState is the link state reported by the platform.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
)

func (s ConnectionState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// DiscoveredDevice is one entry of the visible device set.
type DiscoveredDevice struct {
	Handle     Handle
	Name       string
	Vendor     string // Manufacturer label shown while Name is empty
	Class      DeviceClass
	Connection ConnectionState
	FirstSeen  time.Time
	LastSeen   time.Time
	RSSI       int16
	Distance   proximity.Distance
	Percentage int
	Seq        uint64 // Discovery order within the scan session
}

// DisplayName returns the device name, the vendor label, or "[unnamed]".
func (d *DiscoveredDevice) DisplayName() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Vendor != "":
		return d.Vendor
	}
	return "[unnamed]"
}
