package ui

import (
	"fmt"
	"strings"

	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/scan"
	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st scan.Status, counts map[bluetooth.DeviceClass]int, maxRange float64) string {
	status := ""
	switch {
	case st.Access == scan.AccessDenied:
		status = StyleStatusDenied.Render("[NO RADIO ACCESS]")
	case st.Scanning:
		status = StyleStatusScanning.Render("[SCANNING]")
	default:
		status = StyleStatusPaused.Render("[PAUSED]")
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	buds := counts[bluetooth.ClassEarbuds] + counts[bluetooth.ClassEarbudsMax]

	info := fmt.Sprintf(" Devices: %d  Buds: %d  Tags: %d  Wear: %d  Phones: %d  Range: 0-%.0fm",
		total, buds, counts[bluetooth.ClassTag], counts[bluetooth.ClassWearable],
		counts[bluetooth.ClassPhone], maxRange)

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
