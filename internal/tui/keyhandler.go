package tui

import (
	"errors"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/queue"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey}
}

func (kh *KeyHandler) bindings() config.KeyBindings {
	return kh.config.Keys.Bindings
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewQueue && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return kh.quit()
	case "esc", "enter", "down", "tab":
		kh.app.searchInput.Blur()
		kh.app.table.Focus()
		return kh.app, nil
	}

	before := kh.app.searchInput.Value()
	newSearchInput, cmd := kh.app.searchInput.Update(msg)
	kh.app.searchInput = newSearchInput

	if kh.app.searchInput.Value() == before {
		return kh.app, cmd
	}

	seq := kh.app.session.Search(kh.sanitizeSearchInput(kh.app.searchInput.Value()))
	return kh.app, tea.Batch(cmd, kh.app.debounceSearch(seq))
}

func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key == "ctrl+c" {
		model, cmd := kh.quit()
		return model, cmd, true
	}

	switch kh.app.view {
	case ViewQueue:
		return kh.handleQueueCustomKeys(key)
	case ViewFilter:
		return kh.handleFilterCustomKeys(key)
	case ViewDeleteConfirm:
		return kh.handleDeleteConfirmKeys(key)
	case ViewPreview:
		if key == kh.bindings().Back || key == kh.bindings().Quit {
			model, cmd := kh.navigateBack()
			return model, cmd, true
		}
	}

	return kh.app, nil, false
}

func (kh *KeyHandler) handleQueueCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	b := kh.bindings()

	switch key {
	case b.Quit:
		model, cmd := kh.quit()
		return model, cmd, true

	case b.Search:
		a.clearNotice()
		a.table.Blur()
		return a, a.searchInput.Focus(), true

	case b.Back:
		a.clearNotice()
		return a, nil, true

	case kh.modifierKey + b.Filter:
		a.filterSelected = make(map[string]bool)
		for _, f := range a.session.State().Filters {
			a.filterSelected[f] = true
		}
		a.filterCursor = 0
		a.previousView = a.view
		a.view = ViewFilter
		return a, nil, true

	case kh.modifierKey + b.Sort:
		t, ok := a.session.SetSort(queue.ToggleSort(a.session.State().SortBy))
		if !ok {
			return a, nil, true
		}
		a.setStatus("Sorted by "+queue.SortLabel(a.session.State().SortBy), StatusInfo)
		return a, tea.Batch(a.fetch(t), a.spinner.Tick), true

	case kh.modifierKey + b.Refresh:
		a.clearNotice()
		a.setStatus(MsgRefreshing, StatusInfo)
		return a, tea.Batch(a.fetch(a.session.Refresh()), a.spinner.Tick), true

	case "left", "h", "pgup":
		return a, kh.changePage(-1), true

	case "right", "l", "pgdown":
		return a, kh.changePage(1), true

	case "enter":
		row, ok := a.selectedRow()
		if !ok {
			a.err = errNoRowSelected
			return a, nil, true
		}
		target, err := a.router.RouteRow(row)
		if err != nil {
			if errors.Is(err, queue.ErrUnsupportedType) {
				a.err = nil
				a.setStatus(MsgUnsupported(row.Name, row.MimeType), StatusWarn)
				return a, nil, true
			}
			a.err = err
			return a, nil, true
		}
		a.clearNotice()
		return a, a.open(target), true

	case kh.modifierKey + b.Preview:
		row, ok := a.selectedRow()
		if !ok {
			return a, nil, true
		}
		a.previewRow = &row
		a.previousView = a.view
		a.view = ViewPreview
		a.viewport.SetContent(renderMuted("Rendering…"))
		return a, a.renderPreview(row), true

	case kh.modifierKey + b.Delete:
		row, ok := a.selectedRow()
		if !ok {
			return a, nil, true
		}
		a.rowToDelete = &row
		a.previousView = a.view
		a.view = ViewDeleteConfirm
		return a, nil, true
	}

	return a, nil, false
}

func (kh *KeyHandler) changePage(delta int) tea.Cmd {
	a := kh.app
	t, ok := a.session.SetPage(a.session.State().Page + delta)
	if !ok {
		return nil
	}
	a.paginator.Page = a.session.State().Page
	return tea.Batch(a.fetch(t), a.spinner.Tick)
}

func (kh *KeyHandler) handleFilterCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch key {
	case kh.bindings().Back:
		model, cmd := kh.navigateBack()
		return model, cmd, true

	case "up", "k":
		if a.filterCursor > 0 {
			a.filterCursor--
		}
		return a, nil, true

	case "down", "j":
		if a.filterCursor < len(a.categories)-1 {
			a.filterCursor++
		}
		return a, nil, true

	case " ", "x":
		if a.filterCursor < len(a.categories) {
			category := a.categories[a.filterCursor]
			if a.filterSelected[category] {
				delete(a.filterSelected, category)
			} else {
				a.filterSelected[category] = true
			}
		}
		return a, nil, true

	case "enter":
		selected := make([]string, 0, len(a.filterSelected))
		for category := range a.filterSelected {
			selected = append(selected, category)
		}
		a.view = ViewQueue
		t, ok := a.session.SetFilters(selected)
		if !ok {
			return a, nil, true
		}
		return a, tea.Batch(a.fetch(t), a.spinner.Tick), true
	}

	return a, nil, true
}

func (kh *KeyHandler) handleDeleteConfirmKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch key {
	case "enter", "y":
		if a.rowToDelete == nil {
			model, cmd := kh.navigateBack()
			return model, cmd, true
		}
		row := *a.rowToDelete
		a.rowToDelete = nil
		a.view = ViewQueue
		a.deleting = true
		a.clearNotice()
		return a, tea.Batch(a.retire(row), a.spinner.Tick), true

	case kh.bindings().Back, "n":
		model, cmd := kh.navigateBack()
		return model, cmd, true
	}

	return a, nil, true
}

func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewQueue:
		kh.app.table, cmd = kh.app.table.Update(msg)
	case ViewPreview:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
	}

	return kh.app, cmd
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewFilter, ViewDeleteConfirm, ViewPreview:
		kh.app.view = ViewQueue
		kh.app.rowToDelete = nil
		kh.app.previewRow = nil
	}
	return kh.app, nil
}

func (kh *KeyHandler) quit() (tea.Model, tea.Cmd) {
	kh.app.session.Close()
	return kh.app, tea.Quit
}

func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.bindings()
	mod := kh.modifierKey

	switch kh.app.view {
	case ViewQueue:
		if kh.app.searchInput.Focused() {
			return []string{"type to search", "enter/esc done"}
		}
		help := []string{
			b.Search + " search",
			mod + b.Filter + " filter",
			mod + b.Sort + " sort",
			"enter open",
			mod + b.Preview + " preview",
			mod + b.Delete + " retire",
			mod + b.Refresh + " refresh",
		}
		if kh.app.session.ShowPagination() {
			help = append(help, "←/→ page")
		}
		return append(help, b.Quit+" quit")
	case ViewFilter:
		return []string{"↑/↓ move", "space toggle", "enter apply", b.Back + " cancel"}
	case ViewDeleteConfirm:
		return []string{"enter confirm", b.Back + " cancel"}
	case ViewPreview:
		return []string{"↑/↓ scroll", b.Back + " back"}
	}
	return nil
}

const maxSearchRunes = 256

// sanitizeSearchInput trims and limits search input length in runes.
func (kh *KeyHandler) sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if utf8.RuneCountInString(input) > maxSearchRunes {
		input = string([]rune(input)[:maxSearchRunes])
	}

	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	input = strings.ReplaceAll(input, "\t", " ")

	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	return strings.TrimSpace(input)
}
