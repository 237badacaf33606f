package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/queue"
)

// Chrome above and below the table: header, search box, separator, pager, status.
const chromeHeight = 9

// Deps are the collaborators the queue view drives.
type Deps struct {
	Querier   queue.Querier
	Deleter   queue.Deleter
	Navigator queue.Navigator
	Router    *queue.Router
}

type App struct {
	ctx        context.Context
	config     *config.Config
	session    *queue.Session
	fetcher    *queue.Fetcher
	deleter    queue.Deleter
	navigator  queue.Navigator
	router     *queue.Router
	keyHandler *KeyHandler

	table       table.Model
	searchInput textinput.Model
	paginator   paginator.Model
	spinner     spinner.Model
	viewport    viewport.Model

	view         View
	previousView View
	width        int
	height       int

	categories     []string
	filterCursor   int
	filterSelected map[string]bool

	rowToDelete *queue.DisplayRow
	previewRow  *queue.DisplayRow
	deleting    bool

	err        error
	status     string
	statusKind StatusKind

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

func NewApp(cfg *config.Config, deps Deps) *App {
	ApplyTheme(cfg.UI.Colors)

	si := textinput.New()
	si.Placeholder = "Search name or description…"
	si.CharLimit = 256
	si.Width = 50
	si.Prompt = "🔍 "

	t := table.New(
		table.WithColumns(queueColumns(80)),
		table.WithFocused(true),
		table.WithHeight(cfg.Queue.PageSize),
	)
	styles := table.DefaultStyles()
	styles.Header = TableHeaderStyle
	styles.Selected = SelectedRowStyle
	t.SetStyles(styles)

	p := paginator.New()
	p.Type = paginator.Dots
	p.ActiveDot = lipgloss.NewStyle().Foreground(AccentColor).Render("•")
	p.InactiveDot = lipgloss.NewStyle().Foreground(MutedColor).Render("•")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	app := &App{
		ctx:    context.Background(),
		config: cfg,
		session: queue.NewSession(queue.Options{
			PageSize:    cfg.Queue.PageSize,
			Statuses:    cfg.Queue.Statuses,
			DefaultIcon: cfg.Queue.DefaultIcon,
		}),
		fetcher:        queue.NewFetcher(deps.Querier, cfg.Backend.Timeout),
		deleter:        deps.Deleter,
		navigator:      deps.Navigator,
		router:         deps.Router,
		table:          t,
		searchInput:    si,
		paginator:      p,
		spinner:        sp,
		viewport:       viewport.New(80, 20),
		view:           ViewQueue,
		categories:     append([]string(nil), cfg.Queue.Categories...),
		filterSelected: make(map[string]bool),
	}

	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

func queueColumns(width int) []table.Column {
	typeW, statusW, updatedW := 22, 11, 16
	titleW := width - typeW - statusW - updatedW - 8
	if titleW < 20 {
		titleW = 20
	}
	return []table.Column{
		{Title: "Title", Width: titleW},
		{Title: "Type", Width: typeW},
		{Title: "Status", Width: statusW},
		{Title: "Last Modified", Width: updatedW},
	}
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth := a.config.UI.Preview.WordWrapMaxWidth
	if maxWidth <= 0 {
		maxWidth = 120
	}
	minWidth := a.config.UI.Preview.WordWrapMinWidth
	if minWidth <= 0 {
		minWidth = 40
	}

	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width > 0 && wordWrapWidth > a.width-4 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.fetch(a.session.Mount()),
		a.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.table.SetColumns(queueColumns(msg.Width))
		a.table.SetWidth(msg.Width)
		a.table.SetHeight(max(msg.Height-chromeHeight, 3))
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-4, 3)

		inputWidth := msg.Width - 10
		if inputWidth < 20 {
			inputWidth = msg.Width
		}
		a.searchInput.Width = inputWidth
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case searchDebounceFireMsg:
		if t, ok := a.session.SearchSettled(msg.seq); ok {
			return a, tea.Batch(a.fetch(t), a.spinner.Tick)
		}
		return a, nil

	case fetchResultMsg:
		if !a.session.Apply(msg.result) {
			return a, nil
		}
		a.err = a.session.Err()
		a.syncRows()
		return a, nil

	case itemDeletedMsg:
		a.deleting = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.setStatus(MsgRetired(msg.row.Name), StatusSuccess)
		return a, a.fetch(a.session.Deleted(msg.row.Identifier))

	case navigatedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.setStatus(MsgOpened(truncateMiddle(msg.url, max(a.width-12, 24))), StatusInfo)
		return a, nil

	case previewRenderedMsg:
		if a.view == ViewPreview && a.previewRow != nil && a.previewRow.Identifier == msg.identifier {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}
		return a, nil

	case spinner.TickMsg:
		if !a.session.Loading() && !a.deleting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.view == ViewPreview {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

// syncRows copies the session's rows into the table and pager.
func (a *App) syncRows() {
	rows := a.session.Rows()
	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		name := r.Name
		if r.QuestionSet {
			name = "❓ " + name
		}
		tableRows[i] = table.Row{name, r.ContentType, r.Status, r.LastUpdated}
	}
	a.table.SetRows(tableRows)
	if a.table.Cursor() >= len(tableRows) {
		a.table.SetCursor(max(len(tableRows)-1, 0))
	}

	a.paginator.PerPage = a.session.PageSize()
	a.paginator.TotalPages = max(a.session.PageCount(), 1)
	a.paginator.Page = a.session.State().Page
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearNotice() {
	a.err = nil
	a.status = ""
}

// selectedRow is the row under the table cursor.
func (a *App) selectedRow() (queue.DisplayRow, bool) {
	return a.session.RowAt(a.table.Cursor())
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewFilter:
		content = a.filterView()
	case ViewDeleteConfirm:
		content = a.deleteConfirmView()
	case ViewPreview:
		content = lipgloss.JoinVertical(lipgloss.Left, a.previewHeader(), a.viewport.View())
	default:
		content = a.queueView()
	}

	separator := renderSeparator(a.width)
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.getCustomStatusBar())
}

func (a *App) queueView() string {
	state := a.session.State()

	subtitle := fmt.Sprintf("Sort: %s", queue.SortLabel(state.SortBy))
	if len(state.Filters) > 0 {
		subtitle += " • Categories: " + strings.Join(state.Filters, ", ")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, TitleStyle.Render("Review Queue"), " ", renderHeader(MsgPageSummary(state.Page, a.session.PageCount(), a.session.TotalCount()), subtitle, max(a.width-20, 20)))

	search := renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), max(a.searchInput.Width, 20))

	var body string
	switch {
	case a.session.Loading() && len(a.session.Rows()) == 0:
		body = renderCentered(a.width, max(a.height-chromeHeight, 3), a.spinner.View()+" "+renderMuted(MsgLoading))
	case len(a.session.Rows()) == 0 && state.DebouncedSearchTerm == "" && len(state.Filters) == 0:
		body = renderCentered(a.width, max(a.height-chromeHeight, 3), GetEmptyQueueMessage())
	case len(a.session.Rows()) == 0:
		body = renderCentered(a.width, max(a.height-chromeHeight, 3), renderMuted(MsgNoResults))
	default:
		body = a.table.View()
	}

	rows := []string{header, search, body}
	if a.session.ShowPagination() {
		rows = append(rows, lipgloss.NewStyle().Width(a.width).Align(lipgloss.Center).Render(a.paginator.View()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) filterView() string {
	var b strings.Builder
	b.WriteString(ModalHighlightStyle.Render("Filter by category"))
	b.WriteString("\n\n")

	if len(a.categories) == 0 {
		b.WriteString(renderMuted("No categories configured"))
	}
	for i, category := range a.categories {
		cursor := "  "
		if i == a.filterCursor {
			cursor = "› "
		}
		box := "[ ]"
		if a.filterSelected[category] {
			box = CheckedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s%s %s", cursor, box, category)
		if i == a.filterCursor {
			line = ModalTextStyle.Bold(true).Render(line)
		} else {
			line = ModalTextStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(renderHelp("space toggle • enter apply • esc cancel"))

	return renderModal(a.width, max(a.height-3, 3), AccentColor, b.String())
}

// previewHeader is the one-line title above the preview viewport.
func (a *App) previewHeader() string {
	if a.previewRow == nil {
		return LogoStyle.Render(CompactLogo)
	}
	row := a.previewRow

	editor := "no editor"
	if class, ok := a.router.Classify(row.MimeType); ok {
		editor = string(class)
	}

	return strings.Join([]string{
		LogoStyle.Render(CompactLogo),
		ModalTextStyle.Render(truncateEnd(row.Name, max(a.width/2, 10))),
		statusStyle(row.Status).Render(row.Status),
		TimeStyle.Render(row.LastUpdated),
		renderMuted("→ " + editor),
	}, " ")
}

func (a *App) deleteConfirmView() string {
	if a.rowToDelete == nil {
		return renderCentered(a.width, max(a.height-3, 3), renderMuted(MsgNoneChosen))
	}

	name := truncateEnd(a.rowToDelete.Name, 50)
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		ModalHighlightStyle.Render("Retire this item?"),
		"",
		ModalTextStyle.Render(name),
		renderMuted(a.rowToDelete.ContentType+" • "+a.rowToDelete.Identifier),
		"",
		renderHelp("enter confirm • esc cancel"),
	)
	return renderModal(a.width, max(a.height-3, 3), ErrorColor, content)
}

func (a *App) getCustomStatusBar() string {
	style := StatusBarStyle.Width(a.width)

	if a.err != nil {
		kind := StatusError
		if errors.Is(a.err, queue.ErrUnsupportedType) {
			kind = StatusWarn
		}
		return style.Render(kind.render(a.err.Error()))
	}

	var parts []string
	if a.session.Loading() || a.deleting {
		label := MsgLoading
		if a.deleting {
			label = MsgRetiring
		}
		parts = append(parts, a.spinner.View()+" "+label)
	} else if a.status != "" {
		parts = append(parts, a.statusKind.render(a.status))
	}

	if commands := a.keyHandler.GetHelpForCurrentView(); len(commands) > 0 {
		parts = append(parts, strings.Join(commands, " • "))
	}

	return style.Render(strings.Join(parts, "  "))
}
