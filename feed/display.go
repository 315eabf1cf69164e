package feed

import (
	"sync"

	"folio/models"
)

// Display keeps the rendered entries of every category in memory
type Display struct {
	sync.RWMutex
	entries map[Category][]models.Entry
}

func NewDisplay() *Display {
	return &Display{entries: make(map[Category][]models.Entry)}
}

// Append places entries after the ones already shown
func (d *Display) Append(category Category, entries []models.Entry) {
	d.Lock()
	defer d.Unlock()
	d.entries[category] = append(d.entries[category], entries...)
}

func (d *Display) Clear(category Category) {
	d.Lock()
	defer d.Unlock()
	delete(d.entries, category)
}

// Entries returns a copy of what is shown for a category
func (d *Display) Entries(category Category) []models.Entry {
	d.RLock()
	defer d.RUnlock()
	out := make([]models.Entry, len(d.entries[category]))
	copy(out, d.entries[category])
	return out
}

// MultiSink fans every call out to all sinks in order
type MultiSink []Sink

func (m MultiSink) Append(category Category, entries []models.Entry) {
	for _, s := range m {
		s.Append(category, entries)
	}
}

func (m MultiSink) Clear(category Category) {
	for _, s := range m {
		s.Clear(category)
	}
}

var _ Sink = (*Display)(nil)
var _ Sink = MultiSink(nil)
