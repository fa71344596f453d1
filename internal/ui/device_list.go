package ui

import (
	"fmt"
	"strings"

	"ble-finder.klederson.com/internal/bluetooth"
)

// RenderDeviceList renders the ranked device list with a cursor. Devices are
// drawn in the order given.
func RenderDeviceList(devices []bluetooth.DiscoveredDevice, width, height int, cursorIndex int, scanning bool) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}

	title := StylePanelTitle.Render(fmt.Sprintf("NEARBY DEVICES [%d]", len(devices)))
	separator := StyleRing.Render(strings.Repeat("-", innerW))
	headerLines := []string{title, separator}
	headerCount := len(headerLines)

	innerH := height - 2
	if innerH < headerCount+1 {
		innerH = headerCount + 1
	}
	devSpace := innerH - headerCount
	if devSpace < 1 {
		devSpace = 1
	}

	var devLines []string
	if len(devices) == 0 {
		devLines = append(devLines, "")
		devLines = append(devLines, StyleHelp.Render(" No devices..."))
		if scanning {
			devLines = append(devLines, StyleHelp.Render(" Searching nearby"))
		} else {
			devLines = append(devLines, StyleHelp.Render(" Press [S] to start scanning"))
		}
	} else {
		linesPerDevice := 3 // 2 content + 1 blank
		maxVisible := devSpace / linesPerDevice
		if maxVisible < 1 {
			maxVisible = 1
		}

		// Keep the cursor in view
		viewStart := 0
		if cursorIndex >= maxVisible {
			viewStart = cursorIndex - maxVisible + 1
		}

		count := 0
		for i := viewStart; i < len(devices) && count < devSpace; i++ {
			for _, l := range renderDeviceEntry(&devices[i], innerW, i == cursorIndex) {
				if count >= devSpace {
					break
				}
				devLines = append(devLines, l)
				count++
			}
		}
	}

	for len(devLines) < devSpace {
		devLines = append(devLines, "")
	}

	all := make([]string, 0, innerH)
	all = append(all, headerLines...)
	all = append(all, devLines...)
	if len(all) > innerH {
		all = all[:innerH]
	}

	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(all, "\n"))
	return clampLines(rendered, height)
}

func renderDeviceEntry(d *bluetooth.DiscoveredDevice, maxW int, isCursor bool) []string {
	tag := d.Class.Tag()

	name := d.DisplayName()
	nameMax := maxW - 22
	if nameMax < 4 {
		nameMax = 4
	}
	if len(name) > nameMax {
		name = name[:nameMax]
	}

	link := " "
	if d.Connection == bluetooth.Connected {
		link = "="
	}

	cursor := "  "
	if isCursor {
		cursor = ">>"
	}

	rssiStr := fmt.Sprintf("%ddBm", int(d.RSSI))
	distStr := d.Distance.String()
	pctStr := fmt.Sprintf("%3d%%", d.Percentage)

	if isCursor {
		raw1 := truncRaw(fmt.Sprintf("%s %-7s %s %s", cursor, tag, link, name), maxW)
		raw2 := truncRaw(fmt.Sprintf("           %s  %s  %s", rssiStr, distStr, pctStr), maxW)
		return []string{StyleCursorLine.Render(raw1), StyleCursorLine.Render(raw2), ""}
	}

	linkMark := " "
	if d.Connection == bluetooth.Connected {
		linkMark = StyleConnected.Render("=")
	}
	line1 := fmt.Sprintf("   %s %s %s", classStyle(d.Class).Render(fmt.Sprintf("%-7s", tag)), linkMark, StyleDeviceName.Render(name))
	line2 := fmt.Sprintf("           %s  %s  %s",
		StyleDeviceRSSI.Render(rssiStr), StyleDeviceDist.Render(distStr),
		percentStyle(d.Percentage).Render(pctStr))
	return []string{line1, line2, ""}
}

// truncRaw pads or truncates a raw string to exactly w characters.
func truncRaw(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	if len(s) < w {
		return s + strings.Repeat(" ", w-len(s))
	}
	return s
}

// clampLines forces rendered output to exactly height lines.
// lipgloss Height() only sets a minimum; it won't truncate overflow.
func clampLines(rendered string, height int) string {
	outLines := strings.Split(rendered, "\n")
	if len(outLines) > height {
		outLines = outLines[:height]
	}
	for len(outLines) < height {
		outLines = append(outLines, "")
	}
	return strings.Join(outLines, "\n")
}
