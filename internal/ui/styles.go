package ui

import (
	"ble-finder.klederson.com/internal/bluetooth"
	"github.com/charmbracelet/lipgloss"
)

// Matrix color palette
var (
	ColorMatrixGreen  = lipgloss.Color("#00FF41")
	ColorGreen        = lipgloss.Color("#00CC33")
	ColorMidGreen     = lipgloss.Color("#008F11")
	ColorDimGreen     = lipgloss.Color("#004A0A")
	ColorBlack        = lipgloss.Color("#000000")
	ColorClassBuds    = lipgloss.Color("#00FFAA")
	ColorClassTag     = lipgloss.Color("#FFCC00")
	ColorClassWear    = lipgloss.Color("#33FF66")
	ColorClassPhone   = lipgloss.Color("#66CCFF")
	ColorClassOther   = lipgloss.Color("#00AA22")
	ColorBorderBright = lipgloss.Color("#00FF41")
	ColorBorderNorm   = lipgloss.Color("#00AA22")
	ColorError        = lipgloss.Color("#FF3300")
	ColorWarning      = lipgloss.Color("#FFAA00")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleStatusScanning = lipgloss.NewStyle().
				Foreground(ColorMatrixGreen).
				Bold(true)

	StyleStatusPaused = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StyleStatusDenied = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleDeviceName = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleDeviceHandle = lipgloss.NewStyle().
				Foreground(ColorMidGreen)

	StyleDeviceRSSI = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleDeviceDist = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleConnected = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleRing = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleCursorLine = lipgloss.NewStyle().
			Foreground(ColorBlack).
			Background(ColorMatrixGreen).
			Bold(true)
)

// classStyle colors a device class tag.
func classStyle(c bluetooth.DeviceClass) lipgloss.Style {
	switch c {
	case bluetooth.ClassEarbuds, bluetooth.ClassEarbudsMax:
		return lipgloss.NewStyle().Foreground(ColorClassBuds)
	case bluetooth.ClassTag:
		return lipgloss.NewStyle().Foreground(ColorClassTag)
	case bluetooth.ClassWearable:
		return lipgloss.NewStyle().Foreground(ColorClassWear)
	case bluetooth.ClassPhone:
		return lipgloss.NewStyle().Foreground(ColorClassPhone)
	default:
		return lipgloss.NewStyle().Foreground(ColorClassOther)
	}
}
