package tui

import "github.com/pders01/reviewq/internal/queue"

type View int

const (
	ViewQueue View = iota
	ViewFilter
	ViewDeleteConfirm
	ViewPreview
)

type fetchResultMsg struct {
	result queue.Result
}

type searchDebounceFireMsg struct {
	seq uint64
}

type itemDeletedMsg struct {
	row queue.DisplayRow
	err error
}

type navigatedMsg struct {
	target queue.Target
	url    string
	err    error
}

type previewRenderedMsg struct {
	identifier string
	content    string
}
