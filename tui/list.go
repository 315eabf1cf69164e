package tui

import (
	"fmt"
	"strings"
	"time"

	"folio/feed"
	"folio/models"
)

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func renderEntry(category feed.Category, e models.Entry, selected bool, width int, now time.Time) string {
	if width < 20 {
		width = 40
	}

	rank := itemRankStyle.Render(fmt.Sprintf("%3d.", e.Rank))
	title := truncateStr(e.Item.Title, width-8)
	if selected {
		title = itemSelectedStyle.Render("> " + title)
	} else {
		title = itemTitleStyle.Render("  " + title)
	}

	meta := "      "
	// Only the merged column mixes ask and show stories
	if category == feed.Ask {
		meta += kindStyle.Render(e.Item.Kind()) + " "
	}
	meta += itemDomainStyle.Render(e.Item.Domain())
	meta += itemMetaStyle.Render(fmt.Sprintf(" · %d points · %d comments · %s · %s",
		e.Item.Score, e.Item.Descendants, e.Item.By, e.Item.TimeAgo(now)))

	return rank + title + "\n" + meta
}

// visibleRange keeps the selection on screen for a list of n entries
func visibleRange(selected, n, visible int) (int, int) {
	if visible < 1 {
		visible = 1
	}
	start := 0
	if selected >= visible {
		start = selected - visible + 1
	}
	end := min(start+visible, n)
	start = max(0, end-visible)
	return start, end
}

func renderList(category feed.Category, entries []models.Entry, selected, height, width int, now time.Time) string {
	if len(entries) == 0 {
		return lipglossCenter("Nothing loaded yet", width, height)
	}

	// Each entry is 2 lines + 1 blank line
	start, end := visibleRange(selected, len(entries), height/3)

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderEntry(category, entries[i], i == selected, width, now))
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	return strings.Repeat("\n", max(0, height/3)) + strings.Repeat(" ", max(0, (width-len(s))/2)) + s
}
