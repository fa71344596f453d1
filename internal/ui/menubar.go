package ui

import (
	"fmt"
	"strings"

	"ble-finder.klederson.com/internal/config"
	"github.com/charmbracelet/lipgloss"
)

// Screen names the view the menu bar describes.
type Screen int

const (
	ScreenSearch Screen = iota
	ScreenDistance
	ScreenHistory
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, screen Screen, adapter string, scanning bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"S", "can"},
		{"P", "ause"},
	}
	switch screen {
	case ScreenSearch:
		keys = append(keys, struct{ key, label string }{"ENTER", " find"}, struct{ key, label string }{"H", "istory"})
	case ScreenDistance:
		keys = append(keys, struct{ key, label string }{"F", "ound"}, struct{ key, label string }{"ESC", " back"})
	case ScreenHistory:
		keys = append(keys, struct{ key, label string }{"ENTER", " find"}, struct{ key, label string }{"TAB", " devices"})
	}
	keys = append(keys, struct{ key, label string }{"Q", "uit"})

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	status := ""
	if scanning {
		status = StyleStatusScanning.Render("SCANNING")
	} else {
		status = StyleStatusPaused.Render("PAUSED")
	}

	adapterInfo := StyleMenuLabel.Render(fmt.Sprintf("Adapter: %s", adapter))

	left := StyleMenuKey.Render(title) + menu
	right := status + "  " + adapterInfo + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
