package app

import (
	"context"
	"time"

	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/history"
	"ble-finder.klederson.com/internal/scan"
	"ble-finder.klederson.com/internal/tracking"
	"ble-finder.klederson.com/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

const trailSize = 120

// Controller is the scan lifecycle the model drives.
type Controller interface {
	Start()
	Stop()
	StartTracking(h bluetooth.Handle)
	StopTracking()
	Status() scan.Status
}

// Devices is the read side of the discovery registry.
type Devices interface {
	Snapshot() []bluetooth.DiscoveredDevice
	Lookup(h bluetooth.Handle) (bluetooth.DiscoveredDevice, bool)
	Counts() map[bluetooth.DeviceClass]int
}

// Options configures the model.
type Options struct {
	Adapter     string
	MaxDistance float64
	ListRefresh time.Duration
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	ctrl    Controller
	devices Devices
	store   history.Store
	trail   *Trail
}

// AppModel is the root Bubble Tea model for BLE Finder.
type AppModel struct {
	width  int
	height int

	screen     ui.Screen
	backTo     ui.Screen
	cursor     int
	histCursor int
	opts       Options

	shared *shared

	// Cached snapshots
	devices []bluetooth.DiscoveredDevice
	counts  map[bluetooth.DeviceClass]int
	entries []history.Entry
	status  scan.Status
	target  bluetooth.Handle
	tracked tracking.State
	found   bool
	errMsg  string
}

// New creates a new AppModel.
func New(ctrl Controller, devices Devices, store history.Store, opts Options) AppModel {
	return AppModel{
		screen: ui.ScreenSearch,
		opts:   opts,
		status: ctrl.Status(),
		shared: &shared{
			ctrl:    ctrl,
			devices: devices,
			store:   store,
			trail:   NewTrail(trailSize),
		},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.startCmd(),
		m.loadHistoryCmd(),
		refreshCmd(m.opts.ListRefresh),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case RefreshMsg:
		m.snapshot()
		return m, refreshCmd(m.opts.ListRefresh)

	case DeviceChangeMsg:
		m.snapshot()
		return m, nil

	case ScanStatusMsg:
		// Notifications may arrive out of order; the controller is the
		// source of truth.
		m.status = m.shared.ctrl.Status()
		m.snapshot()
		return m, nil

	case TrackingMsg:
		st := tracking.State(msg)
		if st.Status == tracking.Tracking {
			if st.Target != m.target {
				return m, nil // late update for a previous target
			}
			m.shared.trail.Push(float64(st.Percentage))
		}
		m.tracked = st
		return m, nil

	case HistoryMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.entries = msg.Entries
		if m.histCursor >= len(m.entries) {
			m.histCursor = max(0, len(m.entries)-1)
		}
		return m, nil

	case FoundMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.found = true
		return m, m.loadHistoryCmd()
	}

	return m, nil
}

func (m *AppModel) snapshot() {
	m.devices = m.shared.devices.Snapshot()
	m.counts = m.shared.devices.Counts()
	if m.cursor >= len(m.devices) {
		m.cursor = max(0, len(m.devices)-1)
	}
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "Q", "ctrl+c":
		return m, m.quitCmd()

	case "s", "S":
		return m, m.startCmd()

	case "p", "P":
		return m, m.stopCmd()
	}

	switch m.screen {
	case ui.ScreenSearch:
		return m.handleSearchKey(key)
	case ui.ScreenDistance:
		return m.handleDistanceKey(key)
	case ui.ScreenHistory:
		return m.handleHistoryKey(key)
	}
	return m, nil
}

func (m AppModel) handleSearchKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}
	case "home":
		m.cursor = 0
	case "end":
		if len(m.devices) > 0 {
			m.cursor = len(m.devices) - 1
		}
	case "enter":
		if m.cursor < len(m.devices) {
			m.openDistance(m.devices[m.cursor].Handle, ui.ScreenSearch)
		}
	case "tab", "h", "H":
		m.screen = ui.ScreenHistory
		return m, m.loadHistoryCmd()
	}
	return m, nil
}

func (m AppModel) handleDistanceKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.shared.ctrl.StopTracking()
		m.screen = m.backTo
		m.target = ""
		m.tracked = tracking.State{}
	case "f", "F":
		return m, m.saveFoundCmd()
	}
	return m, nil
}

func (m AppModel) handleHistoryKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.histCursor > 0 {
			m.histCursor--
		}
	case "down", "j":
		if m.histCursor < len(m.entries)-1 {
			m.histCursor++
		}
	case "enter":
		if m.histCursor < len(m.entries) {
			m.openDistance(m.entries[m.histCursor].Handle, ui.ScreenHistory)
		}
	case "d", "D":
		if m.histCursor < len(m.entries) {
			return m, m.removeHistoryCmd(m.entries[m.histCursor].Handle)
		}
	case "c", "C":
		return m, m.clearHistoryCmd()
	case "tab", "h", "H", "esc":
		m.screen = ui.ScreenSearch
	}
	return m, nil
}

func (m *AppModel) openDistance(h bluetooth.Handle, from ui.Screen) {
	m.shared.trail.Reset()
	m.found = false
	m.backTo = from
	m.screen = ui.ScreenDistance
	m.target = h
	m.tracked = tracking.State{Status: tracking.Tracking, Target: h}
	m.shared.ctrl.StartTracking(h)
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing BLE Finder..."
	}

	bodyH := m.height - 2 // menu + status
	if bodyH < 5 {
		bodyH = 5
	}

	menuBar := ui.RenderMenuBar(m.width, m.screen, m.opts.Adapter, m.status.Scanning)

	var body string
	switch m.screen {
	case ui.ScreenDistance:
		view := ui.DistanceView{
			State:   m.tracked,
			Found:   m.found,
			History: m.shared.trail.Values(),
		}
		view.Device, view.Listed = m.shared.devices.Lookup(m.target)
		body = ui.RenderDistancePanel(view, m.width, bodyH)
	case ui.ScreenHistory:
		body = ui.RenderHistoryPanel(m.entries, m.width, bodyH, m.histCursor, m.errMsg)
	default:
		body = ui.RenderDeviceList(m.devices, m.width, bodyH, m.cursor, m.status.Scanning)
	}

	statusBar := ui.RenderStatusBar(m.width, m.status, m.counts, m.opts.MaxDistance)
	return ui.ComposeLayout(menuBar, body, statusBar)
}

func (m AppModel) startCmd() tea.Cmd {
	ctrl := m.shared.ctrl
	return func() tea.Msg {
		ctrl.Start()
		return nil
	}
}

func (m AppModel) stopCmd() tea.Cmd {
	ctrl := m.shared.ctrl
	return func() tea.Msg {
		ctrl.Stop()
		return nil
	}
}

// quitCmd ends the scan session off the event loop, then quits.
func (m AppModel) quitCmd() tea.Cmd {
	ctrl := m.shared.ctrl
	return func() tea.Msg {
		ctrl.StopTracking()
		ctrl.Stop()
		return tea.Quit()
	}
}

func (m AppModel) loadHistoryCmd() tea.Cmd {
	store := m.shared.store
	return func() tea.Msg {
		entries, err := store.List(context.Background())
		return HistoryMsg{Entries: entries, Err: err}
	}
}

func (m AppModel) saveFoundCmd() tea.Cmd {
	store := m.shared.store
	target := m.target
	if target == "" {
		return nil
	}
	d, ok := m.shared.devices.Lookup(target)
	if !ok {
		d = bluetooth.DiscoveredDevice{Handle: target}
		for _, e := range m.entries {
			if e.Handle == target {
				d.Name, d.Class = e.Name, e.Class
				break
			}
		}
	}
	return func() tea.Msg {
		e, err := history.NewEntry(d, time.Now())
		if err == nil {
			err = store.Save(context.Background(), e)
		}
		return FoundMsg{Err: err}
	}
}

func (m AppModel) removeHistoryCmd(h bluetooth.Handle) tea.Cmd {
	store := m.shared.store
	return func() tea.Msg {
		if err := store.Remove(context.Background(), h); err != nil {
			return HistoryMsg{Err: err}
		}
		entries, err := store.List(context.Background())
		return HistoryMsg{Entries: entries, Err: err}
	}
}

func (m AppModel) clearHistoryCmd() tea.Cmd {
	store := m.shared.store
	return func() tea.Msg {
		if err := store.Clear(context.Background()); err != nil {
			return HistoryMsg{Err: err}
		}
		return HistoryMsg{}
	}
}

func refreshCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return RefreshMsg(t)
	})
}
