package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"folio/browser"
	"folio/feed"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// sentinelDistance is how close to the end of a column the selection has to
// get before the next batch is requested
const sentinelDistance = 3

type App struct {
	loader   *feed.Loader
	display  *feed.Display
	notifier *Notifier

	tab      int
	selected map[feed.Category]int

	width  int
	height int

	spinner    spinner.Model
	refreshing bool
	err        error

	now  func() time.Time
	open func(string) error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Loader   *feed.Loader
	Display  *feed.Display
	Notifier *Notifier
}

func NewApp(opts RunOpts) *App {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	return &App{
		loader:     opts.Loader,
		display:    opts.Display,
		notifier:   opts.Notifier,
		selected:   make(map[feed.Category]int),
		spinner:    sp,
		refreshing: true,
		now:        time.Now,
		open:       browser.Open,
	}
}

// Run starts the terminal browser and blocks until it exits
func Run(opts RunOpts) error {
	_, err := tea.NewProgram(NewApp(opts), tea.WithAltScreen()).Run()
	return err
}

func (a *App) category() feed.Category {
	return feed.Categories()[a.tab]
}

func (a *App) loadIndexCmd(refresh bool) tea.Cmd {
	loader := a.loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if refresh {
			return indexLoadedMsg{err: loader.Refresh(ctx)}
		}
		return indexLoadedMsg{err: loader.LoadIndex(ctx)}
	}
}

func (a *App) fetchBatchCmd(category feed.Category) tea.Cmd {
	loader := a.loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := loader.FetchBatch(ctx, category)
		return batchDoneMsg{result: result, err: err}
	}
}

func (a *App) openCmd(url string) tea.Cmd {
	open := a.open
	return func() tea.Msg {
		if err := open(url); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadIndexCmd(false), a.notifier.Wait())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case indexLoadedMsg:
		a.refreshing = false
		a.err = msg.err
		return a, nil

	case batchDoneMsg:
		if msg.err != nil {
			a.err = msg.err
		}
		return a, nil

	case feedChangedMsg:
		if msg.cleared {
			a.selected[msg.category] = 0
		}
		return a, a.notifier.Wait()

	case errMsg:
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	category := a.category()
	entries := a.display.Entries(category)
	selected := a.selected[category]

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "tab", "l", "right":
		a.tab = (a.tab + 1) % len(feed.Categories())
		return a, a.maybeFetch()

	case "shift+tab", "h", "left":
		a.tab = (a.tab + len(feed.Categories()) - 1) % len(feed.Categories())
		return a, a.maybeFetch()

	case "j", "down":
		if selected < len(entries)-1 {
			a.selected[category] = selected + 1
		}
		return a, a.maybeFetch()

	case "k", "up":
		if selected > 0 {
			a.selected[category] = selected - 1
		}
		return a, nil

	case "g", "home":
		a.selected[category] = 0
		return a, nil

	case "G", "end":
		a.selected[category] = max(0, len(entries)-1)
		return a, a.maybeFetch()

	case "r":
		if a.refreshing {
			return a, nil
		}
		a.refreshing = true
		return a, tea.Batch(a.spinner.Tick, a.loadIndexCmd(true))

	case "o", "enter":
		if selected < len(entries) {
			return a, a.openCmd(entries[selected].Item.Link())
		}
		return a, nil

	case "c":
		if selected < len(entries) {
			return a, a.openCmd(entries[selected].Item.DiscussionURL())
		}
		return a, nil
	}

	return a, nil
}

// maybeFetch requests the next batch of the current column when the
// selection is close to its end. The loader ignores requests while a batch
// is in flight or the column is exhausted.
func (a *App) maybeFetch() tea.Cmd {
	if a.refreshing {
		return nil
	}
	category := a.category()
	if a.selected[category] < len(a.display.Entries(category))-sentinelDistance {
		return nil
	}
	state := a.loader.State(category)
	if state.Loading || state.Exhausted {
		return nil
	}
	return a.fetchBatchCmd(category)
}

func (a *App) renderTabs() string {
	var tabs []string
	for i, c := range feed.Categories() {
		state := a.loader.State(c)
		label := fmt.Sprintf("%s %d/%d", strings.ToUpper(string(c)), state.Cursor, state.Total)
		if i == a.tab {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a *App) renderStatusBar() string {
	left := fmt.Sprintf(" %d stories live", a.loader.LiveCount())
	if a.refreshing || a.loader.State(a.category()).Loading {
		left += " " + a.spinner.View()
	}
	if a.err != nil {
		left += " " + errorStyle.Render(truncateStr(a.err.Error(), 40))
	}

	right := " tab switch  j/k move  o open  c comments  r refresh  q quit "

	gap := max(0, a.width-lipgloss.Width(left)-lipgloss.Width(right))
	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(a.width).Render(bar)
}

func (a *App) View() string {
	width := a.width
	if width == 0 {
		width = 80
	}
	height := a.height
	if height == 0 {
		height = 24
	}

	header := headerStyle.Render("Hacker News") + " " + liveCountStyle.Render(a.now().Format("Jan 2 15:04"))
	category := a.category()
	list := renderList(category, a.display.Entries(category), a.selected[category], height-4, width, a.now())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.renderTabs(),
		lipgloss.NewStyle().Height(height-4).Render(list),
		a.renderStatusBar(),
	)
}
