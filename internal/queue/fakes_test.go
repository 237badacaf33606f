package queue

import (
	"context"
	"sync"

	"github.com/pders01/reviewq/internal/content"
)

type fakeQuerier struct {
	mu       sync.Mutex
	requests []content.SearchRequest
	resp     *content.SearchResponse
	err      error
}

func (f *fakeQuerier) Search(ctx context.Context, req content.SearchRequest) (*content.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.resp, f.err
}

func (f *fakeQuerier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeDeleter struct {
	retired []string
	err     error
}

func (f *fakeDeleter) Retire(_ context.Context, identifier string) error {
	if f.err != nil {
		return f.err
	}
	f.retired = append(f.retired, identifier)
	return nil
}
