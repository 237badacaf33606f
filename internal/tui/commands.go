package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/queue"
)

var errNoRowSelected = errors.New("no item selected")

// wrapErr adds operation context to an error while preserving it for errors.Is.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (a *App) fetch(t queue.Ticket) tea.Cmd {
	return func() tea.Msg {
		return fetchResultMsg{result: a.fetcher.Fetch(a.ctx, t)}
	}
}

// debounceSearch arms the search timer for seq.
func (a *App) debounceSearch(seq uint64) tea.Cmd {
	return tea.Tick(a.config.Queue.Debounce, func(time.Time) tea.Msg {
		return searchDebounceFireMsg{seq: seq}
	})
}

func (a *App) retire(row queue.DisplayRow) tea.Cmd {
	return func() tea.Msg {
		err := retryOperation(func() error {
			return queue.Remove(a.ctx, a.deleter, row.Identifier)
		}, content.IsTemporary)
		return itemDeletedMsg{row: row, err: wrapErr("retire "+row.Name, err)}
	}
}

func (a *App) open(target queue.Target) tea.Cmd {
	return func() tea.Msg {
		err := a.navigator.Navigate(a.ctx, target)
		return navigatedMsg{
			target: target,
			url:    target.URL(a.config.Editor.BaseURL),
			err:    wrapErr("open editor", err),
		}
	}
}

func (a *App) renderPreview(row queue.DisplayRow) tea.Cmd {
	return func() tea.Msg {
		var md strings.Builder
		md.WriteString(fmt.Sprintf("# %s\n\n", row.Name))
		md.WriteString(fmt.Sprintf("*%s • %s • updated %s*\n\n", row.ContentType, row.Status, row.LastUpdated))
		if row.MimeType != "" {
			md.WriteString(fmt.Sprintf("Media type: `%s`\n\n", row.MimeType))
		}
		md.WriteString(fmt.Sprintf("Identifier: `%s`\n\n", row.Identifier))
		md.WriteString("---\n\n")

		if row.Description != "" {
			md.WriteString(row.Description)
		} else {
			md.WriteString("_No description._")
		}

		r, err := a.getRenderer()
		if err != nil {
			return previewRenderedMsg{identifier: row.Identifier, content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(md.String())
		if err != nil {
			return previewRenderedMsg{
				identifier: row.Identifier,
				content:    fmt.Sprintf("Failed to render preview: %s\n\nPress Escape to go back.", err),
			}
		}
		return previewRenderedMsg{identifier: row.Identifier, content: rendered}
	}
}

// retryOperation retries op with exponential backoff while retryable
// reports the error as transient.
func retryOperation(op func() error, retryable func(error) bool) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if i < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<i))
		}
	}
	return lastErr
}
