package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/tracking"
	"github.com/charmbracelet/lipgloss"
)

// DistanceView is what the distance screen shows for the tracked device.
// Device comes from the registry and may be stale or zero if the device is
// not in the list.
type DistanceView struct {
	State   tracking.State
	Device  bluetooth.DiscoveredDevice
	Listed  bool
	Found   bool // saved to history during this view
	History []float64
}

// RenderDistancePanel renders the live proximity view for one device.
func RenderDistancePanel(v DistanceView, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	title := StylePanelTitle.Render("FIND DEVICE")
	hint := StyleHelp.Render("[F] found it  [ESC]")
	titleLine := title + strings.Repeat(" ", max(0, innerW-lipgloss.Width(title)-lipgloss.Width(hint))) + hint
	sep := StyleRing.Render(strings.Repeat("-", innerW))

	lines := []string{titleLine, sep, ""}

	labelSty := lipgloss.NewStyle().Foreground(ColorMidGreen)
	valSty := lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)

	name := string(v.State.Target)
	class := bluetooth.ClassUnknown
	if v.Listed {
		name = v.Device.DisplayName()
		class = v.Device.Class
	}

	link := v.State.Connection.String()
	if v.Found {
		link += "  (saved to history)"
	}
	fields := []struct{ label, value string }{
		{"Name", name},
		{"Handle", string(v.State.Target)},
		{"Type", class.String()},
		{"Link", link},
		{"Distance", v.State.Distance.String()},
	}
	if v.Listed {
		fields = append(fields, struct{ label, value string }{"Last", formatLastSeen(v.Device.LastSeen)})
	}

	for _, f := range fields {
		label := labelSty.Render(fmt.Sprintf("  %-10s", f.label))
		lines = append(lines, label+valSty.Render(f.value))
	}
	lines = append(lines, "")

	if v.Listed {
		barWidth := innerW - 22
		if barWidth < 10 {
			barWidth = 10
		}
		bar := renderSignalBar(float64(v.Device.RSSI), barWidth)
		rssiLabel := valSty.Render(fmt.Sprintf(" %ddBm", int(v.Device.RSSI)))
		lines = append(lines, labelSty.Render("  Signal ")+bar+rssiLabel)
		lines = append(lines, "")
	}

	if len(v.History) > 0 {
		sparkW := innerW - 4
		if sparkW < 10 {
			sparkW = 10
		}
		lines = append(lines, labelSty.Render("  Proximity History:"))
		spark := renderSparkline(v.History, sparkW)
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(spark))
		lines = append(lines, "")
	}

	gaugeH := height - len(lines) - 5 // leave room for label + border
	if gaugeH < 5 {
		gaugeH = 5
	}
	gaugeW := innerW
	if gaugeW > gaugeH*3 {
		gaugeW = gaugeH * 3 // keep roughly proportional
	}

	resolved := v.State.Status == tracking.Tracking && (v.State.Distance.IsKnown() || v.State.Percentage == 100)
	gauge := RenderGauge(gaugeW, gaugeH, v.State.Percentage, resolved)
	if gauge != "" {
		pad := max(0, (innerW-gaugeW)/2)
		prefix := strings.Repeat(" ", pad)
		for _, gl := range strings.Split(gauge, "\n") {
			lines = append(lines, prefix+gl)
		}
	}

	caption := proximityCaption(v.State)
	capPad := max(0, (innerW-len(caption))/2)
	lines = append(lines, strings.Repeat(" ", capPad)+valSty.Render(caption))

	for len(lines) < height-2 {
		lines = append(lines, "")
	}

	content := strings.Join(lines, "\n")
	return clampLines(StylePanelActive.Width(width-2).Height(height-2).Render(content), height)
}

// proximityCaption describes the tracking state in a few words.
func proximityCaption(st tracking.State) string {
	if st.Status != tracking.Tracking {
		return "not tracking"
	}
	if !st.Distance.IsKnown() {
		return "waiting for signal..."
	}
	switch p := st.Percentage; {
	case p >= 90:
		return "right here"
	case p >= 70:
		return "very close"
	case p >= 40:
		return "getting warmer"
	case p > 0:
		return "far away"
	default:
		return "out of range"
	}
}

func renderSignalBar(rssi float64, width int) string {
	// Map RSSI -100..-30 to 0..width filled bars
	ratio := (rssi + 100.0) / 70.0
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(math.Round(ratio * float64(width)))

	bar := strings.Repeat("|", filled) + strings.Repeat("-", width-filled)
	filledPart := percentStyle(int(ratio * 100)).Render(bar[:filled])
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(bar[filled:])
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	// Fixed 0..100 scale so the line reads as proximity, not relative change
	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int(values[i] / 100 * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteByte(chars[idx])
	}

	return sb.String()
}

func formatLastSeen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	if d < time.Second {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm ago", int(d.Minutes()))
}
