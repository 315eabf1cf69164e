package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"folio/feed"
	"folio/hackernews"
	"folio/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{}

func (stubSource) StoryIDs(ctx context.Context, list hackernews.List) ([]int64, error) {
	switch list {
	case hackernews.BestStories:
		return []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, nil
	case hackernews.JobStories:
		return []int64{40}, nil
	}
	return nil, nil
}

func (stubSource) Item(ctx context.Context, id int64) (*models.Item, error) {
	return &models.Item{Id: id, Title: "Story", Url: "https://www.example.com/a", Score: 3, By: "pg", Time: 1_700_000_000}, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	display := feed.NewDisplay()
	notifier := NewNotifier()
	loader := feed.NewLoader(stubSource{}, feed.MultiSink{display, notifier}, feed.Options{})
	require.NoError(t, loader.LoadIndex(context.Background()))

	app := NewApp(RunOpts{Loader: loader, Display: display, Notifier: notifier})
	app.now = func() time.Time { return time.Unix(1_700_003_600, 0) }
	app.Update(indexLoadedMsg{})
	return app
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTruncateStr(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"test", 0, ""},
		{"日本語テスト", 5, "日本..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateStr(tt.input, tt.n))
	}
}

func TestVisibleRange(t *testing.T) {
	start, end := visibleRange(0, 20, 5)
	assert.Equal(t, []int{0, 5}, []int{start, end})

	start, end = visibleRange(9, 20, 5)
	assert.Equal(t, []int{5, 10}, []int{start, end})

	start, end = visibleRange(2, 3, 5)
	assert.Equal(t, []int{0, 3}, []int{start, end})
}

func TestRenderEntry(t *testing.T) {
	e := models.Entry{Rank: 4, Item: models.Item{Title: "Show HN: A thing", Url: "https://www.example.com", Score: 10, Descendants: 2, By: "dang", Time: 1_700_000_000}}
	out := renderEntry(feed.Ask, e, true, 80, time.Unix(1_700_007_200, 0))

	assert.Contains(t, out, "4.")
	assert.Contains(t, out, "Show HN: A thing")
	assert.Contains(t, out, "example.com")
	assert.Contains(t, out, "2h ago")
}

func TestRenderEntryLabelsOnlyMergedColumn(t *testing.T) {
	now := time.Unix(1_700_007_200, 0)
	plain := models.Entry{Rank: 1, Item: models.Item{Title: "A new database engine", Url: "https://www.example.com", By: "pg", Time: 1_700_000_000}}

	for _, category := range []feed.Category{feed.Best, feed.Jobs} {
		out := renderEntry(category, plain, false, 80, now)
		assert.NotContains(t, out, "Show HN", category)
		assert.NotContains(t, out, "Ask HN", category)
	}

	ask := models.Entry{Rank: 2, Item: models.Item{Title: "Ask HN: How do you test?", By: "pg", Time: 1_700_000_000}}
	assert.Contains(t, renderEntry(feed.Ask, ask, false, 80, now), "Ask HN")
	assert.Contains(t, renderEntry(feed.Ask, plain, false, 80, now), "Show HN")
}

func TestNavigationTriggersSentinelFetch(t *testing.T) {
	app := newTestApp(t)
	require.Len(t, app.display.Entries(feed.Best), 8)

	_, cmd := app.Update(key("j"))
	assert.Nil(t, cmd)
	assert.Equal(t, 1, app.selected[feed.Best])

	_, cmd = app.Update(key("G"))
	require.NotNil(t, cmd)
	assert.Equal(t, 7, app.selected[feed.Best])

	msg := cmd()
	done, ok := msg.(batchDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, 12, done.result.Cursor)
	assert.Len(t, app.display.Entries(feed.Best), 12)

	// Exhausted columns do not ask again
	_, cmd = app.Update(key("G"))
	assert.Nil(t, cmd)
}

func TestTabSwitching(t *testing.T) {
	app := newTestApp(t)

	app.Update(key("l"))
	assert.Equal(t, feed.Ask, app.category())
	app.Update(key("l"))
	assert.Equal(t, feed.Jobs, app.category())
	app.Update(key("l"))
	assert.Equal(t, feed.Best, app.category())
	app.Update(key("h"))
	assert.Equal(t, feed.Jobs, app.category())
}

func TestOpenUsesItemLink(t *testing.T) {
	app := newTestApp(t)
	var opened []string
	app.open = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	_, cmd := app.Update(key("o"))
	require.NotNil(t, cmd)
	cmd()
	_, cmd = app.Update(key("c"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []string{"https://www.example.com/a", "https://news.ycombinator.com/item?id=1"}, opened)
}

func TestClearResetsSelection(t *testing.T) {
	app := newTestApp(t)
	app.selected[feed.Best] = 5

	_, cmd := app.Update(feedChangedMsg{category: feed.Best, cleared: true})
	assert.NotNil(t, cmd)
	assert.Zero(t, app.selected[feed.Best])
}

func TestErrorsShowInStatusBar(t *testing.T) {
	app := newTestApp(t)
	app.width = 120

	app.Update(errMsg{err: errors.New("no browser")})
	assert.True(t, strings.Contains(app.View(), "no browser"))

	app.Update(key("j"))
	assert.Nil(t, app.err)
}

func TestNotifierNeverBlocks(t *testing.T) {
	n := NewNotifier()
	for i := 0; i < 200; i++ {
		n.Append(feed.Best, nil)
	}
	msg := n.Wait()()
	assert.Equal(t, feedChangedMsg{category: feed.Best}, msg)
}
