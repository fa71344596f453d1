package ui

import (
	"fmt"
	"strings"

	"ble-finder.klederson.com/internal/history"
	"github.com/charmbracelet/lipgloss"
)

// RenderHistoryPanel renders the found-device history, most recent first.
func RenderHistoryPanel(entries []history.Entry, width, height, cursorIndex int, errMsg string) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}

	title := StylePanelTitle.Render(fmt.Sprintf("HISTORY [%d]", len(entries)))
	hint := StyleHelp.Render("[ENTER] track  [D] remove  [C] clear")
	lines := []string{
		title + strings.Repeat(" ", max(0, innerW-lipgloss.Width(title)-lipgloss.Width(hint))) + hint,
		StyleRing.Render(strings.Repeat("-", innerW)),
	}
	if errMsg != "" {
		lines = append(lines, StyleStatusDenied.Render(" "+errMsg))
	}

	innerH := height - 2
	space := innerH - len(lines)
	if space < 1 {
		space = 1
	}

	if len(entries) == 0 {
		lines = append(lines, "", StyleHelp.Render(" Nothing found yet."),
			StyleHelp.Render(" Open a device and press [F] once you have it."))
	} else {
		viewStart := 0
		if cursorIndex >= space {
			viewStart = cursorIndex - space + 1
		}
		for i := viewStart; i < len(entries) && i-viewStart < space; i++ {
			lines = append(lines, renderHistoryEntry(entries[i], innerW, i == cursorIndex))
		}
	}

	for len(lines) < innerH {
		lines = append(lines, "")
	}
	if len(lines) > innerH {
		lines = lines[:innerH]
	}

	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(lines, "\n"))
	return clampLines(rendered, height)
}

func renderHistoryEntry(e history.Entry, maxW int, isCursor bool) string {
	when := e.FoundAt.Local().Format("2006-01-02 15:04")
	tag := e.Class.Tag()
	name := e.Name
	nameMax := maxW - 30
	if nameMax < 4 {
		nameMax = 4
	}
	if len(name) > nameMax {
		name = name[:nameMax]
	}

	if isCursor {
		return StyleCursorLine.Render(truncRaw(fmt.Sprintf(">> %-7s %s  %s", tag, when, name), maxW))
	}
	return fmt.Sprintf("   %s %s  %s",
		classStyle(e.Class).Render(fmt.Sprintf("%-7s", tag)),
		StyleDeviceHandle.Render(when),
		StyleDeviceName.Render(name))
}
