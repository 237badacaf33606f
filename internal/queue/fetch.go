package queue

import (
	"context"
	"time"

	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/debuglog"
)

// Querier runs a composed search against the content collaborator.
type Querier interface {
	Search(ctx context.Context, req content.SearchRequest) (*content.SearchResponse, error)
}

// Ticket is one issued query. Generations increase monotonically per Session.
type Ticket struct {
	Generation uint64
	Request    content.SearchRequest
}

// Result is the outcome of fetching a Ticket. Exactly one of Response and
// Err is meaningful.
type Result struct {
	Generation uint64
	Response   *content.SearchResponse
	Err        error
	Duration   time.Duration
}

type Fetcher struct {
	querier Querier
	timeout time.Duration
}

// NewFetcher wraps q. A positive timeout bounds each fetch.
func NewFetcher(q Querier, timeout time.Duration) *Fetcher {
	return &Fetcher{querier: q, timeout: timeout}
}

// Fetch never fails: errors are carried in the Result.
func (f *Fetcher) Fetch(ctx context.Context, t Ticket) Result {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := f.querier.Search(ctx, t.Request)
	elapsed := time.Since(start)

	fetchesTotal.WithLabelValues(outcome(err)).Inc()
	fetchDuration.Observe(elapsed.Seconds())

	logger := debuglog.WithFields(map[string]interface{}{
		"generation": t.Generation,
		"query":      t.Request.Query,
		"offset":     t.Request.Offset,
		"duration":   elapsed.Round(time.Millisecond),
	})

	if err != nil {
		logger.Errorf("Queue fetch failed: %v", err)
		return Result{Generation: t.Generation, Err: err, Duration: elapsed}
	}
	if resp == nil {
		resp = &content.SearchResponse{}
	}

	logger.Debugf("Queue fetch returned %d+%d of %d", len(resp.Content), len(resp.QuestionSet), resp.Count)
	return Result{Generation: t.Generation, Response: resp, Duration: elapsed}
}
