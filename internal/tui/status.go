package tui

import (
	"fmt"
	"strings"
)

// StatusKind indicates severity for status messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// Canonical short status messages used across the app.
const (
	MsgLoading    = "Loading queue…"
	MsgRefreshing = "Refreshing…"
	MsgRetiring   = "Retiring…"
	MsgNoResults  = "No items match"
	MsgNoneChosen = "No item selected"
)

func MsgRetired(name string) string {
	return fmt.Sprintf("Retired '%s'", strings.TrimSpace(name))
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

func MsgUnsupported(name, mimeType string) string {
	if mimeType == "" {
		mimeType = "no media type"
	}
	return fmt.Sprintf("Cannot open '%s': %s has no editor", strings.TrimSpace(name), mimeType)
}

func MsgOpened(url string) string {
	return "Opened " + url
}

// MsgPageSummary reads "page 2/13 • 125 items".
func MsgPageSummary(page, pages, total int) string {
	if pages <= 1 {
		return MsgResultsCount(total)
	}
	return fmt.Sprintf("page %d/%d • %s", page+1, pages, MsgResultsCount(total))
}

func (k StatusKind) render(text string) string {
	switch k {
	case StatusSuccess:
		return StatusSuccessStyle.Render("✓ " + text)
	case StatusWarn:
		return StatusWarnStyle.Render("! " + text)
	case StatusError:
		return StatusErrorStyle.Render("✗ " + text)
	default:
		return StatusInfoStyle.Render(text)
	}
}
