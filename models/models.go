package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const DiscussionBase = "https://news.ycombinator.com/item?id="

// Item is a Hacker News item with the fields the site renders
type Item struct {
	Id          int64  `json:"id"`
	Type        string `json:"type,omitempty"`
	By          string `json:"by,omitempty"`
	Title       string `json:"title"`
	Url         string `json:"url,omitempty"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
	Dead        bool   `json:"dead,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
}

// Displayable reports whether the item should be rendered at all
func (i *Item) Displayable() bool {
	return i != nil && !i.Dead && !i.Deleted
}

// DiscussionURL links to the comment thread on news.ycombinator.com
func (i Item) DiscussionURL() string {
	return fmt.Sprintf("%s%d", DiscussionBase, i.Id)
}

// Link returns the story URL, falling back to the discussion for text posts
func (i Item) Link() string {
	if i.Url == "" {
		return i.DiscussionURL()
	}
	return i.Url
}

// Domain returns the host of the story URL without a leading www.
// Text posts live on news.ycombinator.com, unparseable URLs yield "".
func (i Item) Domain() string {
	if i.Url == "" {
		return "news.ycombinator.com"
	}
	u, err := url.Parse(i.Url)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// Kind labels entries of the merged ask/show category
func (i Item) Kind() string {
	if strings.HasPrefix(strings.ToLower(i.Title), "ask hn") {
		return "Ask HN"
	}
	return "Show HN"
}

// TimeAgo renders the age of the item as "12m ago", "3h ago" or "2d ago"
func (i Item) TimeAgo(now time.Time) string {
	return TimeAgo(i.Time, now)
}

func TimeAgo(unix int64, now time.Time) string {
	secs := now.Unix() - unix
	if secs < 0 {
		secs = 0
	}
	hours := secs / 3600
	if hours < 1 {
		return fmt.Sprintf("%dm ago", secs/60)
	}
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

// Entry is an item placed in a display container at its feed position
type Entry struct {
	Rank int  `json:"rank"`
	Item Item `json:"item"`
}

// CategoryView is the API shape of one feed category
type CategoryView struct {
	Category  string  `json:"category"`
	Total     int     `json:"total"`
	Cursor    int     `json:"cursor"`
	Loading   bool    `json:"loading"`
	Exhausted bool    `json:"exhausted"`
	Entries   []Entry `json:"entries"`
}

type FeedResponse struct {
	LiveCount  int            `json:"liveCount"`
	Categories []CategoryView `json:"categories"`
}

// BatchResponse is returned when a batch is triggered over HTTP
type BatchResponse struct {
	Category string  `json:"category"`
	Skipped  bool    `json:"skipped"`
	Cursor   int     `json:"cursor"`
	Total    int     `json:"total"`
	Appended []Entry `json:"appended"`
}

// Writing is one of the hand-written posts listed on the blog page
type Writing struct {
	Id       string   `json:"id" toml:"id"`
	Title    string   `json:"title" toml:"title"`
	Excerpt  string   `json:"excerpt" toml:"excerpt"`
	Date     string   `json:"date" toml:"date"`
	Category string   `json:"category" toml:"category"`
	Tags     []string `json:"tags" toml:"tags"`
	Url      string   `json:"url" toml:"url"`
	ReadTime int      `json:"readTime" toml:"read_time"`
}

// ContentEntry is a contribution pulled from the CodeProb contributor config
type ContentEntry struct {
	Title        string   `json:"title"`
	Filename     string   `json:"filename"`
	Author       string   `json:"author"`
	DateAdded    string   `json:"dateAdded"`
	Tags         []string `json:"tags,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	ReadTime     string   `json:"readTime,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Complexity   string   `json:"complexity,omitempty"`
	Type         string   `json:"type"`
	TypeSingular string   `json:"typeSingular"`
}

// Labels returns tags, or topics when an entry has no tags
func (e ContentEntry) Labels() []string {
	if len(e.Tags) > 0 {
		return e.Tags
	}
	return e.Topics
}

// URL of the entry on the CodeProb site
func (e ContentEntry) URL(base string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), e.Type, e.Filename)
}

// FeedEvent is pushed to SSE clients when a display container changes
type FeedEvent struct {
	Kind     string  `json:"kind"`
	Category string  `json:"category"`
	Entries  []Entry `json:"entries,omitempty"`
}
