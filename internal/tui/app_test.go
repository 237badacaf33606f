package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/queue"
)

type fakeQuerier struct {
	mu       sync.Mutex
	requests []content.SearchRequest
	resp     *content.SearchResponse
	err      error
}

func (f *fakeQuerier) Search(_ context.Context, req content.SearchRequest) (*content.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func (f *fakeQuerier) last(t *testing.T) content.SearchRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func (f *fakeQuerier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeDeleter struct {
	retired []string
	errs    []error
	calls   int
}

func (f *fakeDeleter) Retire(_ context.Context, identifier string) error {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.retired = append(f.retired, identifier)
	return nil
}

type fakeNavigator struct {
	targets []queue.Target
	err     error
}

func (f *fakeNavigator) Navigate(_ context.Context, target queue.Target) error {
	f.targets = append(f.targets, target)
	return f.err
}

func sampleResponse() *content.SearchResponse {
	return &content.SearchResponse{
		Count: 25,
		Content: []content.Item{
			{Identifier: "do_1", Name: "Algebra I", PrimaryCategory: "Course", Status: "Review", MimeType: "application/vnd.ekstep.content-collection", LastUpdatedOn: "2025-01-10T11:00:00.000+0000"},
			{Identifier: "do_2", Name: "Fractions", Description: "Halves and **quarters**", PrimaryCategory: "Learning Resource", Status: "FlagReview", MimeType: "application/pdf"},
			{Identifier: "do_3", Name: "Mystery", PrimaryCategory: "Learning Resource", Status: "Review", MimeType: "application/x-unknown"},
		},
		QuestionSet: []content.Item{
			{Identifier: "do_q1", Name: "Quiz", PrimaryCategory: "Practice Question Set", Status: "Review", MimeType: "application/vnd.sunbird.questionset"},
		},
	}
}

type testApp struct {
	*App
	querier   *fakeQuerier
	deleter   *fakeDeleter
	navigator *fakeNavigator
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.TestConfig()
	router, err := queue.NewRouter(cfg.Routes)
	require.NoError(t, err)

	q := &fakeQuerier{resp: sampleResponse()}
	d := &fakeDeleter{}
	n := &fakeNavigator{}

	app := NewApp(cfg, Deps{Querier: q, Deleter: d, Navigator: n, Router: router})
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	return &testApp{App: app, querier: q, deleter: d, navigator: n}
}

// mounted returns an app whose first page has loaded.
func mounted(t *testing.T) *testApp {
	t.Helper()
	ta := newTestApp(t)
	drain(t, ta.App, ta.Init())
	require.Equal(t, 1, ta.querier.calls())
	return ta
}

// drain runs cmd and feeds the app's own result messages back into Update.
// Timers are never run: their messages are sent explicitly by tests.
func drain(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(t, app, c)
		}
	case fetchResultMsg, itemDeletedMsg, navigatedMsg, previewRenderedMsg:
		_, next := app.Update(msg)
		drain(t, app, next)
	}
}

func press(app *App, msg tea.KeyMsg) tea.Cmd {
	_, cmd := app.Update(msg)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitLoadsFirstPage(t *testing.T) {
	ta := mounted(t)

	req := ta.querier.last(t)
	assert.Equal(t, 0, req.Offset)
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, content.OrderDesc, req.Sort.Order)
	assert.Equal(t, []string{"Review", "FlagReview"}, req.Statuses)

	assert.False(t, ta.session.Loading())
	assert.Len(t, ta.table.Rows(), 4)
	assert.Equal(t, "❓ Quiz", ta.table.Rows()[3][0])
	assert.Equal(t, 3, ta.paginator.TotalPages)
	assert.Contains(t, ta.View(), "Review Queue")
}

func TestViewStateTransitions(t *testing.T) {
	tests := []struct {
		name         string
		initialView  View
		msg          tea.KeyMsg
		expectedView View
	}{
		{"queue to filter on ctrl+f", ViewQueue, tea.KeyMsg{Type: tea.KeyCtrlF}, ViewFilter},
		{"queue to delete confirm on ctrl+x", ViewQueue, tea.KeyMsg{Type: tea.KeyCtrlX}, ViewDeleteConfirm},
		{"queue to preview on ctrl+p", ViewQueue, tea.KeyMsg{Type: tea.KeyCtrlP}, ViewPreview},
		{"filter back on esc", ViewFilter, tea.KeyMsg{Type: tea.KeyEsc}, ViewQueue},
		{"delete confirm back on esc", ViewDeleteConfirm, tea.KeyMsg{Type: tea.KeyEsc}, ViewQueue},
		{"preview back on esc", ViewPreview, tea.KeyMsg{Type: tea.KeyEsc}, ViewQueue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := mounted(t)
			ta.view = tt.initialView

			updated, _ := ta.Update(tt.msg)
			assert.Equal(t, tt.expectedView, updated.(*App).view)
		})
	}
}

func TestSearchIsDebounced(t *testing.T) {
	ta := mounted(t)

	press(ta.App, runes("/"))
	require.True(t, ta.searchInput.Focused())

	for _, r := range "Alg" {
		press(ta.App, runes(string(r)))
	}
	assert.Equal(t, "alg", ta.session.State().SearchTerm)
	assert.Equal(t, "Alg", ta.searchInput.Value())
	assert.Equal(t, 1, ta.querier.calls(), "typing alone must not query")

	// Timers armed for earlier keystrokes are superseded.
	for seq := uint64(1); seq < 3; seq++ {
		_, cmd := ta.Update(searchDebounceFireMsg{seq: seq})
		assert.Nil(t, cmd)
	}

	_, cmd := ta.Update(searchDebounceFireMsg{seq: 3})
	drain(t, ta.App, cmd)

	assert.Equal(t, 2, ta.querier.calls())
	assert.Equal(t, "alg", ta.querier.last(t).Query)
	assert.Equal(t, "alg", ta.session.State().DebouncedSearchTerm)
}

func TestSearchSettleTicksSpinner(t *testing.T) {
	ta := mounted(t)

	press(ta.App, runes("/"))
	press(ta.App, runes("a"))

	_, cmd := ta.Update(searchDebounceFireMsg{seq: 1})
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok, "fetch and spinner tick are batched")

	var sawTick, sawFetch bool
	for _, c := range batch {
		switch c().(type) {
		case spinner.TickMsg:
			sawTick = true
		case fetchResultMsg:
			sawFetch = true
		}
	}
	assert.True(t, sawTick)
	assert.True(t, sawFetch)
}

func TestSearchInputKeepsTypingQ(t *testing.T) {
	ta := mounted(t)

	press(ta.App, runes("/"))
	cmd := press(ta.App, runes("q"))

	require.NotNil(t, cmd)
	assert.Equal(t, "q", ta.searchInput.Value())

	press(ta.App, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, ta.searchInput.Focused())
}

func TestSortToggle(t *testing.T) {
	ta := mounted(t)

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlT}))
	assert.Equal(t, content.OrderAsc, ta.querier.last(t).Sort.Order)
	assert.Equal(t, queue.SortCreatedOn, ta.session.State().SortBy)
	assert.Contains(t, ta.status, "Created On")

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlT}))
	assert.Equal(t, content.OrderDesc, ta.querier.last(t).Sort.Order)
	assert.Equal(t, 3, ta.querier.calls())
}

func TestFilterPicker(t *testing.T) {
	ta := mounted(t)

	press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlF})
	require.Equal(t, ViewFilter, ta.view)

	// Toggle "Course", move down, toggle "Learning Resource", untoggle it again.
	press(ta.App, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	press(ta.App, tea.KeyMsg{Type: tea.KeyDown})
	press(ta.App, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	press(ta.App, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Contains(t, ta.View(), "Filter by category")

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, ViewQueue, ta.view)
	assert.Equal(t, []string{"Course"}, ta.querier.last(t).Categories)
	assert.Equal(t, 2, ta.querier.calls())

	// Re-applying the same selection does not refetch.
	press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.True(t, ta.filterSelected["Course"])
	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, 2, ta.querier.calls())
}

func TestPaging(t *testing.T) {
	ta := mounted(t)

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyLeft}))
	assert.Equal(t, 1, ta.querier.calls(), "already on the first page")

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyRight}))
	assert.Equal(t, 10, ta.querier.last(t).Offset)
	assert.Equal(t, 1, ta.paginator.Page)

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyRight}))
	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyRight}))
	assert.Equal(t, 20, ta.querier.last(t).Offset, "clamped to the last page")
	assert.Equal(t, 3, ta.querier.calls())

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyLeft}))
	assert.Equal(t, 10, ta.querier.last(t).Offset)
}

func TestOpenSelectedItem(t *testing.T) {
	ta := mounted(t)

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyEnter}))

	require.Len(t, ta.navigator.targets, 1)
	target := ta.navigator.targets[0]
	assert.Equal(t, queue.ClassCollection, target.Class)
	assert.Equal(t, "/collection", target.Path)
	assert.Equal(t, "do_1", target.Identifier)
	assert.Equal(t, queue.ReviewMode, target.Mode)
	assert.Contains(t, ta.status, "http://editor.test/collection?identifier=do_1")
}

func TestOpenUnsupportedTypeWarns(t *testing.T) {
	ta := mounted(t)

	ta.table.SetCursor(2)
	cmd := press(ta.App, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, ta.navigator.targets)
	assert.Equal(t, StatusWarn, ta.statusKind)
	assert.Contains(t, ta.status, "Mystery")
	assert.NoError(t, ta.err)
}

func TestOpenNavigationFailure(t *testing.T) {
	ta := mounted(t)
	ta.navigator.err = errors.New("no opener")

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyEnter}))
	require.Error(t, ta.err)
	assert.Contains(t, ta.err.Error(), "no opener")
}

func TestDeleteConfirmRetiresAndRefetches(t *testing.T) {
	ta := mounted(t)

	ta.table.SetCursor(1)
	press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.Equal(t, ViewDeleteConfirm, ta.view)
	assert.Contains(t, ta.View(), "Fractions")

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, []string{"do_2"}, ta.deleter.retired)
	assert.Equal(t, ViewQueue, ta.view)
	assert.Equal(t, 2, ta.querier.calls())
	assert.Equal(t, uint64(1), ta.session.State().ChangeSignal)
	assert.Equal(t, StatusSuccess, ta.statusKind)
	assert.False(t, ta.deleting)
}

func TestDeleteRetriesTemporaryFailures(t *testing.T) {
	ta := mounted(t)
	ta.deleter.errs = []error{&content.APIError{Op: "retire", StatusCode: 503}}

	press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlX})
	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, 2, ta.deleter.calls)
	assert.Equal(t, []string{"do_1"}, ta.deleter.retired)
	assert.Equal(t, 2, ta.querier.calls())
}

func TestDeleteFailureLeavesListUnchanged(t *testing.T) {
	ta := mounted(t)
	ta.deleter.errs = []error{&content.APIError{Op: "retire", StatusCode: 403}}

	press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlX})
	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, 1, ta.deleter.calls, "client errors are not retried")
	assert.Equal(t, 1, ta.querier.calls())
	assert.Equal(t, uint64(0), ta.session.State().ChangeSignal)
	require.Error(t, ta.err)
	assert.Contains(t, ta.getCustomStatusBar(), "HTTP 403")
	assert.Len(t, ta.table.Rows(), 4)
}

func TestFetchErrorKeepsRows(t *testing.T) {
	ta := mounted(t)
	ta.querier.err = errors.New("connection refused")

	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlR}))

	require.Error(t, ta.err)
	assert.Len(t, ta.table.Rows(), 4)
	assert.False(t, ta.session.Loading())
	assert.Contains(t, ta.getCustomStatusBar(), "connection refused")
}

func TestStaleFetchResultIgnored(t *testing.T) {
	ta := mounted(t)

	stale := queue.Result{Generation: 0, Response: &content.SearchResponse{}}
	ta.Update(fetchResultMsg{result: stale})

	assert.Len(t, ta.table.Rows(), 4)
}

func TestPreviewRendersDescription(t *testing.T) {
	ta := mounted(t)

	ta.table.SetCursor(1)
	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlP}))

	require.Equal(t, ViewPreview, ta.view)
	view := ta.View()
	assert.Contains(t, view, "Fractions")
	assert.Contains(t, view, "quarters")
	assert.Contains(t, view, CompactLogo)
	assert.Contains(t, view, "FlagReview")
	assert.Contains(t, view, "→ generic")
}

func TestPreviewHeaderFlagsUnroutableItems(t *testing.T) {
	ta := mounted(t)

	ta.table.SetCursor(2)
	drain(t, ta.App, press(ta.App, tea.KeyMsg{Type: tea.KeyCtrlP}))

	require.Equal(t, ViewPreview, ta.view)
	view := ta.View()
	assert.Contains(t, view, "Mystery")
	assert.Contains(t, view, "→ no editor")
}

func TestQuitClosesSession(t *testing.T) {
	ta := mounted(t)

	cmd := press(ta.App, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	press(ta.App, runes("/"))
	press(ta.App, runes("x"))
	_, next := ta.Update(searchDebounceFireMsg{seq: 1})
	assert.Nil(t, next, "a closed session issues no queries")
}

func TestEmptyQueueMessage(t *testing.T) {
	ta := newTestApp(t)
	ta.querier.resp = &content.SearchResponse{}
	drain(t, ta.App, ta.Init())

	assert.Contains(t, ta.View(), "Nothing is waiting for review")
}

func TestRetryOperation(t *testing.T) {
	temporary := &content.APIError{StatusCode: 502}

	calls := 0
	err := retryOperation(func() error {
		calls++
		if calls < 3 {
			return temporary
		}
		return nil
	}, content.IsTemporary)
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	permanent := errors.New("bad request")
	err = retryOperation(func() error {
		calls++
		return permanent
	}, content.IsTemporary)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}
