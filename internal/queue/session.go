package queue

import (
	"slices"
	"strings"
	"time"

	"github.com/pders01/reviewq/internal/debuglog"
)

// QueryState is everything that determines the current server query.
type QueryState struct {
	SearchTerm          string
	DebouncedSearchTerm string
	Filters             []string
	SortBy              string
	Page                int
	ChangeSignal        uint64
}

// Options configures a Session.
type Options struct {
	PageSize    int
	Statuses    []string
	DefaultIcon string
	Now         func() time.Time
}

// Session is the state machine behind one queue view. It is not safe for
// concurrent use; adapters drive it from a single goroutine and run the
// returned Tickets through a Fetcher.
type Session struct {
	composer    Composer
	debouncer   *Debouncer
	defaultIcon string
	now         func() time.Time

	state      QueryState
	generation uint64
	loading    bool
	closed     bool

	page ResultPage
	rows []DisplayRow
	err  error
}

func NewSession(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		composer:    NewComposer(opts.PageSize, opts.Statuses),
		debouncer:   NewDebouncer(),
		defaultIcon: opts.DefaultIcon,
		now:         now,
		state:       QueryState{SortBy: SortUpdated},
		rows:        []DisplayRow{},
	}
}

// Mount issues the initial query.
func (s *Session) Mount() Ticket {
	return s.issue()
}

func (s *Session) issue() Ticket {
	s.generation++
	s.loading = true
	s.err = nil

	req := s.composer.Compose(s.state.DebouncedSearchTerm, s.state.Filters, s.state.SortBy, s.state.Page)
	debuglog.Debugf("Issuing queue query gen=%d query=%q categories=%v order=%s offset=%d",
		s.generation, req.Query, req.Categories, req.Sort.Order, req.Offset)

	return Ticket{Generation: s.generation, Request: req}
}

// Search records input, case-folded, and returns the debounce sequence to
// arm a timer with.
func (s *Session) Search(raw string) uint64 {
	term := strings.ToLower(raw)
	s.state.SearchTerm = term
	return s.debouncer.Push(term)
}

// SearchSettled is called when the debounce window for seq elapses. It
// returns a ticket only if seq is current and the settled term differs from
// the one already queried.
func (s *Session) SearchSettled(seq uint64) (Ticket, bool) {
	if s.closed {
		return Ticket{}, false
	}
	term, ok := s.debouncer.Fire(seq)
	if !ok || term == s.state.DebouncedSearchTerm {
		return Ticket{}, false
	}
	s.state.DebouncedSearchTerm = term
	return s.issue(), true
}

// SetFilters replaces the category filter set.
func (s *Session) SetFilters(filters []string) (Ticket, bool) {
	canonical := CanonicalFilters(filters)
	if s.closed || slices.Equal(canonical, s.state.Filters) {
		return Ticket{}, false
	}
	s.state.Filters = canonical
	return s.issue(), true
}

// SetSort changes the sort label.
func (s *Session) SetSort(sortBy string) (Ticket, bool) {
	if s.closed || sortBy == s.state.SortBy {
		return Ticket{}, false
	}
	s.state.SortBy = sortBy
	return s.issue(), true
}

// SetPage moves to a zero-based page, clamped to the known page range.
func (s *Session) SetPage(page int) (Ticket, bool) {
	if page < 0 {
		page = 0
	}
	if count := s.PageCount(); count > 0 && page >= count {
		page = count - 1
	}
	if s.closed || page == s.state.Page {
		return Ticket{}, false
	}
	s.state.Page = page
	return s.issue(), true
}

// Deleted bumps the change signal after a successful retire.
func (s *Session) Deleted(identifier string) Ticket {
	debuglog.Infof("Item %s removed, refreshing queue", identifier)
	return s.Refresh()
}

// Refresh forces a refetch of the current query.
func (s *Session) Refresh() Ticket {
	s.state.ChangeSignal++
	return s.issue()
}

// Apply accepts a fetch result. Results from superseded tickets are
// discarded and Apply reports false. A failed fetch keeps the previous page.
func (s *Session) Apply(r Result) bool {
	if r.Generation != s.generation {
		staleResultsTotal.Inc()
		debuglog.Debugf("Discarding stale queue result gen=%d (latest %d)", r.Generation, s.generation)
		return false
	}

	s.loading = false
	if r.Err != nil {
		s.err = r.Err
		return true
	}

	s.err = nil
	s.page = Page(r.Response)
	s.rows = Normalize(r.Response, s.now(), s.defaultIcon)
	return true
}

// RowAt returns the displayed row at index.
func (s *Session) RowAt(index int) (DisplayRow, bool) {
	if index < 0 || index >= len(s.rows) {
		return DisplayRow{}, false
	}
	row := s.rows[index]
	debuglog.Debugf("Row %d resolved to %s", index, row.Identifier)
	return row, true
}

// Close stops the debouncer. No further tickets are issued from input.
func (s *Session) Close() {
	s.closed = true
	s.debouncer.Stop()
}

func (s *Session) State() QueryState {
	st := s.state
	st.Filters = slices.Clone(s.state.Filters)
	return st
}

func (s *Session) Rows() []DisplayRow { return s.rows }
func (s *Session) ResultPage() ResultPage { return s.page }
func (s *Session) Loading() bool { return s.loading }
func (s *Session) Err() error { return s.err }
func (s *Session) PageSize() int { return s.composer.PageSize }
func (s *Session) TotalCount() int { return s.page.TotalCount }

// PageCount is the number of pages for the last successful result.
func (s *Session) PageCount() int {
	return PageCount(s.page.TotalCount, s.composer.PageSize)
}

// PageCount is ceil(total / pageSize).
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ShowPagination reports whether the result spans more than one page.
func (s *Session) ShowPagination() bool {
	return s.page.TotalCount > s.composer.PageSize
}
