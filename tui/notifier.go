package tui

import (
	"folio/feed"
	"folio/models"

	tea "github.com/charmbracelet/bubbletea"
)

// Notifier is a feed.Sink that turns loader updates into program messages.
// It never blocks, because the loader calls it while holding its lock.
type Notifier struct {
	events chan tea.Msg
}

func NewNotifier() *Notifier {
	return &Notifier{events: make(chan tea.Msg, 64)}
}

func (n *Notifier) notify(msg tea.Msg) {
	select {
	case n.events <- msg:
	default:
		// The view re-reads the display on every message
	}
}

func (n *Notifier) Append(category feed.Category, entries []models.Entry) {
	n.notify(feedChangedMsg{category: category, appended: len(entries)})
}

func (n *Notifier) Clear(category feed.Category) {
	n.notify(feedChangedMsg{category: category, cleared: true})
}

// Wait returns a command that resolves with the next notification
func (n *Notifier) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-n.events
	}
}

var _ feed.Sink = (*Notifier)(nil)
