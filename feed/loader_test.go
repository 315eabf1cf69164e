package feed_test

import (
	"context"
	"errors"
	"folio/feed"
	"folio/hackernews"
	"folio/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	lists    map[hackernews.List][]int64
	listErr  error
	dead     map[int64]bool
	missing  map[int64]bool
	failing  map[int64]bool
	gate     chan struct{} // when set, item fetches block until it is closed
	delays   map[int64]time.Duration
	requests []int64

	// the next best stories list fetch closes listHeld and waits for listGate
	listGate chan struct{}
	listHeld chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lists:   make(map[hackernews.List][]int64),
		dead:    make(map[int64]bool),
		missing: make(map[int64]bool),
		failing: make(map[int64]bool),
		delays:  make(map[int64]time.Duration),
	}
}

func (f *fakeSource) StoryIDs(ctx context.Context, list hackernews.List) ([]int64, error) {
	f.mu.Lock()
	var gate, held chan struct{}
	if list == hackernews.BestStories && f.listGate != nil {
		gate, held = f.listGate, f.listHeld
		f.listGate = nil
	}
	ids, err := f.lists[list], f.listErr
	f.mu.Unlock()

	if gate != nil {
		close(held)
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (f *fakeSource) Item(ctx context.Context, id int64) (*models.Item, error) {
	f.mu.Lock()
	gate := f.gate
	delay := f.delays[id]
	f.requests = append(f.requests, id)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.failing[id]:
		return nil, errors.New("boom")
	case f.missing[id]:
		return nil, nil
	case f.dead[id]:
		return &models.Item{Id: id, Dead: true}, nil
	}
	return &models.Item{Id: id, Title: "story"}, nil
}

func (f *fakeSource) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func seq(from, n int64) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = from + int64(i)
	}
	return ids
}

func ranks(entries []models.Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Rank
	}
	return out
}

func ids(entries []models.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Item.Id
	}
	return out
}

func newLoader(t *testing.T, src *fakeSource, opts feed.Options) (*feed.Loader, *feed.Display) {
	t.Helper()
	display := feed.NewDisplay()
	return feed.NewLoader(src, display, opts), display
}

func TestInterleave(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []int64
		expected []int64
	}{
		{name: "equal length", a: []int64{1, 3}, b: []int64{2, 4}, expected: []int64{1, 2, 3, 4}},
		{name: "a longer", a: []int64{1, 3, 5, 6}, b: []int64{2}, expected: []int64{1, 2, 3, 5, 6}},
		{name: "b longer", a: []int64{1}, b: []int64{2, 4, 6}, expected: []int64{1, 2, 4, 6}},
		{name: "zero ids dropped", a: []int64{1, 0}, b: []int64{0, 4}, expected: []int64{1, 4}},
		{name: "both empty", a: nil, b: nil, expected: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, feed.Interleave(tt.a, tt.b))
		})
	}
}

func TestParseCategory(t *testing.T) {
	c, err := feed.ParseCategory("jobs")
	require.NoError(t, err)
	assert.Equal(t, feed.Jobs, c)

	_, err = feed.ParseCategory("show")
	assert.ErrorIs(t, err, feed.ErrUnknownCategory)
}

func TestLoadIndexSeedsStatesAndFirstBatches(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(100, 20)
	src.lists[hackernews.AskStories] = []int64{201, 203}
	src.lists[hackernews.ShowStories] = []int64{202, 204, 206}
	src.lists[hackernews.JobStories] = seq(300, 3)

	loader, display := newLoader(t, src, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))

	assert.Equal(t, feed.State{Total: 20, Cursor: 8}, loader.State(feed.Best))
	assert.Equal(t, feed.State{Total: 5, Cursor: 5, Exhausted: true}, loader.State(feed.Ask))
	assert.Equal(t, feed.State{Total: 3, Cursor: 3, Exhausted: true}, loader.State(feed.Jobs))

	assert.Equal(t, seq(100, 8), ids(display.Entries(feed.Best)))
	assert.Equal(t, []int64{201, 202, 203, 204, 206}, ids(display.Entries(feed.Ask)))
	assert.Equal(t, 16, loader.LiveCount())
}

func TestLoadIndexFailureLeavesStateEmpty(t *testing.T) {
	src := newFakeSource()
	src.listErr = errors.New("offline")

	loader, display := newLoader(t, src, feed.Options{})
	err := loader.LoadIndex(context.Background())

	require.Error(t, err)
	for _, c := range feed.Categories() {
		assert.Equal(t, feed.State{}, loader.State(c))
		assert.Empty(t, display.Entries(c))
	}
	assert.Zero(t, src.requestCount())
}

func TestFetchBatchExhaustsInThreeTriggers(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 20)

	loader, display := newLoader(t, src, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))
	assert.Equal(t, 8, loader.State(feed.Best).Cursor)

	ctx := context.Background()
	res, err := loader.FetchBatch(ctx, feed.Best)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 8, res.Offset)
	assert.Equal(t, 16, res.Cursor)
	assert.Len(t, res.Appended, 8)

	res, err = loader.FetchBatch(ctx, feed.Best)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Cursor)
	assert.Len(t, res.Appended, 4)

	before := src.requestCount()
	res, err = loader.FetchBatch(ctx, feed.Best)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 20, res.Cursor)
	assert.Equal(t, before, src.requestCount())

	assert.Equal(t, seq(1, 20), ids(display.Entries(feed.Best)))
	assert.True(t, loader.State(feed.Best).Exhausted)
}

func TestFetchBatchSkipsDeadButAdvancesCursor(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 8)
	src.dead[2] = true
	src.missing[5] = true
	src.dead[8] = true

	loader, display := newLoader(t, src, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))

	entries := display.Entries(feed.Best)
	assert.Equal(t, []int64{1, 3, 4, 6, 7}, ids(entries))
	assert.Equal(t, []int{1, 3, 4, 6, 7}, ranks(entries))
	assert.Equal(t, 8, loader.State(feed.Best).Cursor)
}

func TestFetchBatchFailureKeepsCursorAndIsRetryable(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.JobStories] = seq(1, 10)
	src.failing[3] = true

	loader, display := newLoader(t, src, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))

	assert.Equal(t, feed.State{Total: 10}, loader.State(feed.Jobs))
	assert.Empty(t, display.Entries(feed.Jobs))

	_, err := loader.FetchBatch(context.Background(), feed.Jobs)
	require.Error(t, err)
	assert.Equal(t, feed.State{Total: 10}, loader.State(feed.Jobs))

	src.mu.Lock()
	delete(src.failing, 3)
	src.mu.Unlock()

	res, err := loader.FetchBatch(context.Background(), feed.Jobs)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Cursor)
	assert.Equal(t, seq(1, 8), ids(display.Entries(feed.Jobs)))
}

func TestPartialBatchesTolerateFailures(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.JobStories] = seq(1, 4)
	src.failing[2] = true

	loader, display := newLoader(t, src, feed.Options{Partial: true})
	require.NoError(t, loader.LoadIndex(context.Background()))

	assert.Equal(t, []int64{1, 3, 4}, ids(display.Entries(feed.Jobs)))
	assert.Equal(t, 4, loader.State(feed.Jobs).Cursor)
}

func TestFetchBatchWhileInFlightIsNoop(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 20)

	loader, _ := newLoader(t, src, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))

	gate := make(chan struct{})
	src.mu.Lock()
	src.gate = gate
	src.mu.Unlock()

	done := make(chan feed.BatchResult)
	go func() {
		res, _ := loader.FetchBatch(context.Background(), feed.Best)
		done <- res
	}()

	require.Eventually(t, func() bool { return loader.State(feed.Best).Loading }, testTimeout, testTick)

	res, err := loader.FetchBatch(context.Background(), feed.Best)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 8, res.Cursor)

	close(gate)
	first := <-done
	assert.False(t, first.Skipped)
	assert.Equal(t, 16, first.Cursor)
	assert.False(t, loader.State(feed.Best).Loading)
	assert.Equal(t, 16, src.requestCount())
}

func TestFetchBatchUnknownCategory(t *testing.T) {
	loader, _ := newLoader(t, newFakeSource(), feed.Options{})
	_, err := loader.FetchBatch(context.Background(), feed.Category("show"))
	assert.ErrorIs(t, err, feed.ErrUnknownCategory)
}

func TestRefreshResetsAndClears(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 20)
	src.lists[hackernews.JobStories] = seq(50, 2)

	loader, display := newLoader(t, src, feed.Options{})
	ctx := context.Background()
	require.NoError(t, loader.LoadIndex(ctx))
	_, err := loader.FetchBatch(ctx, feed.Best)
	require.NoError(t, err)
	require.Equal(t, 16, loader.State(feed.Best).Cursor)

	src.mu.Lock()
	src.lists[hackernews.BestStories] = seq(500, 3)
	src.mu.Unlock()

	require.NoError(t, loader.Refresh(ctx))

	assert.Equal(t, feed.State{Total: 3, Cursor: 3, Exhausted: true}, loader.State(feed.Best))
	assert.Equal(t, seq(500, 3), ids(display.Entries(feed.Best)))
	assert.Equal(t, seq(50, 2), ids(display.Entries(feed.Jobs)))
	assert.Equal(t, 5, loader.LiveCount())
}

func TestRefreshClearsDisplayWhenIndexFails(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 4)

	loader, display := newLoader(t, src, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))
	require.Len(t, display.Entries(feed.Best), 4)

	src.mu.Lock()
	src.listErr = errors.New("offline")
	src.mu.Unlock()

	assert.Error(t, loader.Refresh(context.Background()))
	assert.Empty(t, display.Entries(feed.Best))
	assert.Zero(t, loader.LiveCount())
}

func TestBatchCompletingAfterRefreshIsDropped(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 20)

	loader, display := newLoader(t, src, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))

	gate := make(chan struct{})
	src.mu.Lock()
	src.gate = gate
	src.mu.Unlock()

	done := make(chan feed.BatchResult)
	go func() {
		res, _ := loader.FetchBatch(context.Background(), feed.Best)
		done <- res
	}()
	require.Eventually(t, func() bool { return loader.State(feed.Best).Loading }, testTimeout, testTick)

	// Refresh with an index that fails, so only the stale batch could append
	src.mu.Lock()
	src.listErr = errors.New("offline")
	src.mu.Unlock()
	require.Error(t, loader.Refresh(context.Background()))

	close(gate)
	res := <-done
	assert.True(t, res.Skipped)
	assert.Empty(t, display.Entries(feed.Best))
	assert.Equal(t, feed.State{}, loader.State(feed.Best))
}

func TestCursorMonotonicAndBounded(t *testing.T) {
	for _, size := range []int{1, 3, 8, 25} {
		src := newFakeSource()
		src.lists[hackernews.BestStories] = seq(1, 20)

		loader, _ := newLoader(t, src, feed.Options{BatchSize: size})
		require.NoError(t, loader.LoadIndex(context.Background()))

		prev := loader.State(feed.Best).Cursor
		for i := 0; i < 30; i++ {
			_, err := loader.FetchBatch(context.Background(), feed.Best)
			require.NoError(t, err)
			cur := loader.State(feed.Best).Cursor
			assert.GreaterOrEqual(t, cur, prev)
			assert.LessOrEqual(t, cur, 20)
			prev = cur
		}
		assert.Equal(t, 20, prev)
	}
}

func TestIndexLoadedBeforeRefreshIsDropped(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 4)
	src.listGate = make(chan struct{})
	src.listHeld = make(chan struct{})
	loader, display := newLoader(t, src, feed.Options{})

	done := make(chan error, 1)
	go func() { done <- loader.LoadIndex(context.Background()) }()

	select {
	case <-src.listHeld:
	case <-time.After(testTimeout):
		t.Fatal("index load never started")
	}

	require.NoError(t, loader.Refresh(context.Background()))
	close(src.listGate)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("index load never finished")
	}

	assert.Equal(t, seq(1, 4), ids(display.Entries(feed.Best)))
	assert.Equal(t, 4, loader.State(feed.Best).Cursor)
	assert.Equal(t, 4, loader.LiveCount())
	assert.Equal(t, 4, src.requestCount())
}

func TestSeedIndexLoadsNoItems(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 20)
	src.lists[hackernews.JobStories] = seq(50, 3)
	loader, display := newLoader(t, src, feed.Options{})

	require.NoError(t, loader.SeedIndex(context.Background()))

	assert.Zero(t, src.requestCount())
	assert.Equal(t, feed.State{Total: 20}, loader.State(feed.Best))
	assert.Empty(t, display.Entries(feed.Best))

	result, err := loader.FetchBatch(context.Background(), feed.Jobs)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Cursor)
	assert.Equal(t, 3, src.requestCount())
}

func TestDisplayOrderFollowsIDOrder(t *testing.T) {
	src := newFakeSource()
	src.lists[hackernews.BestStories] = seq(1, 8)
	for i, id := range seq(1, 8) {
		// earlier IDs answer last
		src.delays[id] = time.Duration(8-i) * 10 * time.Millisecond
	}
	src.dead[3] = true
	loader, display := newLoader(t, src, feed.Options{})

	require.NoError(t, loader.LoadIndex(context.Background()))

	entries := display.Entries(feed.Best)
	assert.Equal(t, []int64{1, 2, 4, 5, 6, 7, 8}, ids(entries))
	assert.Equal(t, []int{1, 2, 4, 5, 6, 7, 8}, ranks(entries))
}
