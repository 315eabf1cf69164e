// Package feed incrementally reveals the Hacker News feed in fixed-size batches
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"folio/hackernews"
	"folio/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultBatchSize = 8

// Category is one of the independently paginated feed columns
type Category string

const (
	Best Category = "best"
	Ask  Category = "ask" // ask and show stories merged
	Jobs Category = "jobs"
)

var ErrUnknownCategory = errors.New("unknown category")

// Categories in display order
func Categories() []Category {
	return []Category{Best, Ask, Jobs}
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Source is the read-only API the loader pulls from
type Source interface {
	StoryIDs(ctx context.Context, list hackernews.List) ([]int64, error)
	Item(ctx context.Context, id int64) (*models.Item, error)
}

// Sink receives displayable items. Calls are serialized by the loader and
// must not call back into it.
type Sink interface {
	Append(category Category, entries []models.Entry)
	Clear(category Category)
}

type Options struct {
	BatchSize int
	// Partial keeps the rest of a batch when single item fetches fail
	Partial bool
}

type categoryState struct {
	ids        []int64
	cursor     int
	loading    bool
	generation uint64
}

// State is a snapshot of one category
type State struct {
	Total     int
	Cursor    int
	Loading   bool
	Exhausted bool
}

// BatchResult describes what a FetchBatch call did
type BatchResult struct {
	Category Category
	Skipped  bool
	Offset   int
	Cursor   int
	Total    int
	Appended []models.Entry
}

// Loader owns the cursor state of every category
type Loader struct {
	mu         sync.Mutex
	source     Source
	sink       Sink
	batchSize  int
	partial    bool
	generation uint64
	states     map[Category]*categoryState
}

func NewLoader(source Source, sink Sink, opts Options) *Loader {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	l := &Loader{
		source:    source,
		sink:      sink,
		batchSize: opts.BatchSize,
		partial:   opts.Partial,
	}
	l.states = emptyStates(l.generation)
	return l
}

func emptyStates(generation uint64) map[Category]*categoryState {
	states := make(map[Category]*categoryState, len(Categories()))
	for _, c := range Categories() {
		states[c] = &categoryState{generation: generation}
	}
	return states
}

// LoadIndex fetches the ranked ID lists, seeds fresh cursors and loads the
// first batch of every category. Index failures are logged and returned,
// first batch failures are only logged. An index that arrives after a
// refresh started is dropped.
func (l *Loader) LoadIndex(ctx context.Context) error {
	seeded, err := l.seed(ctx)
	if err != nil || !seeded {
		return err
	}

	var wg sync.WaitGroup
	for _, c := range Categories() {
		wg.Add(1)
		go func(c Category) {
			defer wg.Done()
			// Errors are already logged by FetchBatch
			_, _ = l.FetchBatch(ctx, c)
		}(c)
	}
	wg.Wait()

	return nil
}

// SeedIndex fetches the ranked ID lists and seeds fresh cursors without
// loading any items.
func (l *Loader) SeedIndex(ctx context.Context) error {
	_, err := l.seed(ctx)
	return err
}

func (l *Loader) seed(ctx context.Context) (bool, error) {
	l.mu.Lock()
	gen := l.generation
	l.mu.Unlock()

	var best, ask, show, jobs []int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { best, err = l.source.StoryIDs(gctx, hackernews.BestStories); return })
	g.Go(func() (err error) { ask, err = l.source.StoryIDs(gctx, hackernews.AskStories); return })
	g.Go(func() (err error) { show, err = l.source.StoryIDs(gctx, hackernews.ShowStories); return })
	g.Go(func() (err error) { jobs, err = l.source.StoryIDs(gctx, hackernews.JobStories); return })

	if err := g.Wait(); err != nil {
		indexErrors.Inc()
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Error loading feed index")
		return false, fmt.Errorf("loading index: %w", err)
	}

	merged := Interleave(ask, show)

	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		log.WithFields(log.Fields{
			"generation": gen,
		}).Debug("Dropping index loaded before refresh")
		return false, nil
	}
	l.states[Best] = &categoryState{ids: best, generation: gen}
	l.states[Ask] = &categoryState{ids: merged, generation: gen}
	l.states[Jobs] = &categoryState{ids: jobs, generation: gen}
	l.mu.Unlock()

	log.WithFields(log.Fields{
		"best": len(best),
		"ask":  len(merged),
		"jobs": len(jobs),
	}).Info("Loaded feed index")

	return true, nil
}

// FetchBatch loads the next window of a category. It is a no-op while a
// batch for the same category is in flight or once the category is
// exhausted. A failed batch leaves the cursor where it was.
func (l *Loader) FetchBatch(ctx context.Context, category Category) (BatchResult, error) {
	l.mu.Lock()
	state, ok := l.states[category]
	if !ok {
		l.mu.Unlock()
		return BatchResult{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if state.loading || state.cursor >= len(state.ids) {
		result := BatchResult{Category: category, Skipped: true, Cursor: state.cursor, Total: len(state.ids)}
		l.mu.Unlock()
		return result, nil
	}

	state.loading = true
	offset := state.cursor
	end := min(offset+l.batchSize, len(state.ids))
	window := state.ids[offset:end]
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		state.loading = false
		l.mu.Unlock()
	}()

	start := time.Now()
	items, err := l.fetchWindow(ctx, category, window)
	batchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		batchesTotal.WithLabelValues(string(category), "error").Inc()
		log.WithFields(log.Fields{
			"category": category,
			"offset":   offset,
			"error":    err,
		}).Error("Error fetching batch")
		return BatchResult{Category: category, Offset: offset, Cursor: offset, Total: len(state.ids)}, err
	}

	// Ranks follow the position in the ID list, so skipped items leave gaps
	displayable := make([]models.Entry, 0, len(items))
	for i, item := range items {
		if item.Displayable() {
			displayable = append(displayable, models.Entry{Rank: offset + i + 1, Item: *item})
		}
	}
	if skipped := len(window) - len(displayable); skipped > 0 {
		itemsSkipped.WithLabelValues(string(category)).Add(float64(skipped))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if state.generation != l.generation {
		batchesTotal.WithLabelValues(string(category), "stale").Inc()
		log.WithFields(log.Fields{
			"category": category,
			"offset":   offset,
		}).Debug("Dropping batch issued before refresh")
		return BatchResult{Category: category, Skipped: true, Offset: offset}, nil
	}

	// The cursor counts every ID in the window, including skipped ones
	state.cursor = end
	if len(displayable) > 0 {
		l.sink.Append(category, displayable)
	}
	batchesTotal.WithLabelValues(string(category), "ok").Inc()

	log.WithFields(log.Fields{
		"category": category,
		"offset":   offset,
		"appended": len(displayable),
		"cursor":   state.cursor,
		"total":    len(state.ids),
	}).Info("Fetched batch")

	return BatchResult{
		Category: category,
		Offset:   offset,
		Cursor:   state.cursor,
		Total:    len(state.ids),
		Appended: displayable,
	}, nil
}

// fetchWindow fetches all details concurrently and returns them in ID order
func (l *Loader) fetchWindow(ctx context.Context, category Category, window []int64) ([]*models.Item, error) {
	items := make([]*models.Item, len(window))

	if !l.partial {
		g, gctx := errgroup.WithContext(ctx)
		for i, id := range window {
			g.Go(func() error {
				item, err := l.source.Item(gctx, id)
				if err != nil {
					return err
				}
				items[i] = item
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return items, nil
	}

	var g errgroup.Group
	for i, id := range window {
		g.Go(func() error {
			item, err := l.source.Item(ctx, id)
			if err != nil {
				log.WithFields(log.Fields{
					"category": category,
					"id":       id,
					"error":    err,
				}).Warn("Skipping item that failed to load")
				return nil
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()
	return items, nil
}

// Refresh discards all category state, clears the display and loads the
// index again from empty. Batches still in flight from before the refresh
// are dropped when they complete.
func (l *Loader) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.states = emptyStates(gen)
	for _, c := range Categories() {
		l.sink.Clear(c)
	}
	l.mu.Unlock()

	log.WithFields(log.Fields{
		"generation": gen,
	}).Info("Refreshing feed")

	return l.LoadIndex(ctx)
}

// State returns a snapshot of a category. Unknown categories yield a zero State.
func (l *Loader) State(category Category) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[category]
	if !ok {
		return State{}
	}
	return State{
		Total:     len(state.ids),
		Cursor:    state.cursor,
		Loading:   state.loading,
		Exhausted: state.cursor >= len(state.ids) && len(state.ids) > 0,
	}
}

// LiveCount is the number of feed positions consumed across all categories
func (l *Loader) LiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, state := range l.states {
		total += state.cursor
	}
	return total
}

// Interleave merges two ranked lists position by position, a before b.
// Zero IDs are dropped.
func Interleave(a, b []int64) []int64 {
	merged := make([]int64, 0, len(a)+len(b))
	for i := 0; i < max(len(a), len(b)); i++ {
		if i < len(a) && a[i] != 0 {
			merged = append(merged, a[i])
		}
		if i < len(b) && b[i] != 0 {
			merged = append(merged, b[i])
		}
	}
	return merged
}
