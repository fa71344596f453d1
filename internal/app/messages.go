package app

import (
	"sync"
	"time"

	"ble-finder.klederson.com/internal/history"
	"ble-finder.klederson.com/internal/registry"
	"ble-finder.klederson.com/internal/scan"
	"ble-finder.klederson.com/internal/tracking"
	tea "github.com/charmbracelet/bubbletea"
)

// RefreshMsg triggers a periodic registry snapshot.
type RefreshMsg time.Time

// DeviceChangeMsg nudges a snapshot when a device appears or leaves.
type DeviceChangeMsg registry.Change

// TrackingMsg carries a tracking session update.
type TrackingMsg tracking.State

// ScanStatusMsg reports scan session changes.
type ScanStatusMsg scan.Status

// HistoryMsg carries the reloaded history list.
type HistoryMsg struct {
	Entries []history.Entry
	Err     error
}

// FoundMsg reports the result of saving the tracked device to history.
type FoundMsg struct {
	Err error
}

// Bridge forwards controller notifications into a running program. Calls
// never block: messages are queued in order and a single goroutine feeds
// them to the program, so notifications raised while Update is running
// cannot stall the event loop.
type Bridge struct {
	program *tea.Program

	mu      sync.Mutex
	pending []tea.Msg
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewBridge creates a bridge for p. Call Close when p has exited.
func NewBridge(p *tea.Program) *Bridge {
	b := &Bridge{
		program: p,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go b.forward()
	return b
}

func (b *Bridge) ScanStatus(st scan.Status) {
	b.push(ScanStatusMsg(st))
}

func (b *Bridge) DeviceChange(c registry.Change) {
	b.push(DeviceChangeMsg(c))
}

func (b *Bridge) TrackingState(st tracking.State) {
	b.push(TrackingMsg(st))
}

// Close stops forwarding. Queued messages are dropped.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) push(msg tea.Msg) {
	b.mu.Lock()
	b.pending = append(b.pending, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) forward() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}

		b.mu.Lock()
		batch := b.pending
		b.pending = nil
		b.mu.Unlock()

		for _, msg := range batch {
			select {
			case <-b.done:
				return
			default:
			}
			b.program.Send(msg)
		}
	}
}
