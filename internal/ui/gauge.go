package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderGauge draws a circular proximity gauge. The ring fills clockwise
// from the top in proportion to percentage and the value is printed in the
// middle. When resolved is false the value shows as "--%".
func RenderGauge(width, height, percentage int, resolved bool) string {
	if width < 9 || height < 5 {
		return ""
	}

	grid := make([][]byte, height)
	lit := make([][]bool, height)
	for i := range grid {
		grid[i] = make([]byte, width)
		lit[i] = make([]bool, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	fcx := float64(width) / 2.0
	fcy := float64(height) / 2.0
	rx := fcx - 1.0 // horizontal radius in columns
	ry := fcy - 1.0 // vertical radius in rows
	if rx < 3 {
		rx = 3
	}
	if ry < 2 {
		ry = 2
	}

	fill := float64(clampPercent(percentage)) / 100.0
	if !resolved {
		fill = 0
	}

	// Ring, clockwise from north
	steps := 120
	for i := 0; i < steps; i++ {
		frac := float64(i) / float64(steps)
		a := frac * 2 * math.Pi
		col := int(math.Round(fcx + rx*math.Sin(a)))
		row := int(math.Round(fcy - ry*math.Cos(a)))
		if col < 0 || col >= width || row < 0 || row >= height {
			continue
		}
		if frac < fill {
			grid[row][col] = '#'
			lit[row][col] = true
		} else if grid[row][col] == ' ' {
			grid[row][col] = ringChar(a)
		}
	}

	label := fmt.Sprintf("%d%%", clampPercent(percentage))
	if !resolved {
		label = "--%"
	}
	cx := int(math.Round(fcx)) - len(label)/2
	cy := int(math.Round(fcy))
	for i := 0; i < len(label); i++ {
		setGrid(grid, width, height, cx+i, cy, label[i])
	}

	litSty := lipgloss.NewStyle().Foreground(lipgloss.Color(percentColor(percentage))).Bold(true)
	ringSty := lipgloss.NewStyle().Foreground(ColorDimGreen)
	labelSty := lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			ch := grid[row][col]
			switch {
			case row == cy && col >= cx && col < cx+len(label):
				sb.WriteString(labelSty.Render(string(ch)))
			case lit[row][col]:
				sb.WriteString(litSty.Render(string(ch)))
			case ch != ' ':
				sb.WriteString(ringSty.Render(string(ch)))
			default:
				sb.WriteByte(' ')
			}
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func setGrid(grid [][]byte, w, h, col, row int, ch byte) {
	if col >= 0 && col < w && row >= 0 && row < h {
		grid[row][col] = ch
	}
}

func ringChar(a float64) byte {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	sector := int(math.Round(a/(math.Pi/4))) % 8
	switch sector {
	case 0, 4:
		return '-'
	case 1, 5:
		return '\\'
	case 2, 6:
		return '|'
	case 3, 7:
		return '/'
	}
	return '-'
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// percentColor maps proximity to a green shade (brighter = closer).
func percentColor(p int) string {
	if p >= 80 {
		return "#00FF41"
	}
	if p >= 60 {
		return "#00CC33"
	}
	if p >= 40 {
		return "#00AA22"
	}
	if p >= 20 {
		return "#008F11"
	}
	return "#005511"
}

func percentStyle(p int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(percentColor(p))).Bold(p >= 80)
}
