// Package proximity turns signal strength into smoothed distance estimates
// and UI-facing proximity percentages.
package proximity

import (
	"fmt"
	"math"

	"ble-finder.klederson.com/internal/config"
)

// Distance is either Unknown or a known non-negative estimate.
// The zero value is Unknown.
type Distance struct {
	value float64
	known bool
}

// Unknown is the distance of a device without a valid reading.
var Unknown = Distance{}

// Known wraps a distance estimate. Negative inputs are treated as Unknown.
func Known(v float64) Distance {
	if v < 0 || math.IsNaN(v) {
		return Unknown
	}
	return Distance{value: v, known: true}
}

// Value returns the estimate and whether it is known.
func (d Distance) Value() (float64, bool) {
	return d.value, d.known
}

// IsKnown reports whether the distance holds an estimate.
func (d Distance) IsKnown() bool {
	return d.known
}

// Sentinel returns the estimate, or -1 when unknown. Only for display and
// persistence boundaries.
func (d Distance) Sentinel() float64 {
	if !d.known {
		return -1
	}
	return d.value
}

func (d Distance) String() string {
	if !d.known {
		return "unknown"
	}
	return fmt.Sprintf("~%.1fm", d.value)
}

// Estimate maps an RSSI reading to a distance using the fixed reference
// power. Readings >= 0 are invalid and yield Unknown.
func Estimate(rssi int16) Distance {
	return EstimateWithPower(rssi, config.TxPower)
}

// EstimateWithPower applies the log-distance path loss curve:
//
//	ratio = rssi / txPower
//	d = ratio^10                        if ratio < 1
//	d = 0.89976 * ratio^7.7095 + 0.111  otherwise
func EstimateWithPower(rssi int16, txPower float64) Distance {
	if rssi >= 0 || txPower >= 0 {
		return Unknown
	}
	ratio := float64(rssi) / txPower
	if ratio < 1.0 {
		return Known(math.Pow(ratio, 10))
	}
	return Known(0.89976*math.Pow(ratio, 7.7095) + 0.111)
}

// Percentage maps a distance onto 0..100 against maxDistance. Unknown
// distances are reported as 100 so the display does not start at 0%.
func Percentage(d Distance, maxDistance float64) int {
	v, ok := d.Value()
	if !ok {
		return 100
	}
	if maxDistance <= 0 {
		return 0
	}
	p := 100 - int(math.Round(v/maxDistance*100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
