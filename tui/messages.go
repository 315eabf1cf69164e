package tui

import "folio/feed"

type indexLoadedMsg struct {
	err error
}

type batchDoneMsg struct {
	result feed.BatchResult
	err    error
}

// feedChangedMsg is delivered when the loader appended to or cleared a column
type feedChangedMsg struct {
	category feed.Category
	appended int
	cleared  bool
}

type errMsg struct {
	err error
}
