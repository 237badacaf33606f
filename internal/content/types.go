// Package content models the workspace content-search service and provides
// an HTTP client for it.
package content

import (
	"encoding/json"
	"fmt"
)

// Item is one content record as returned by the search service.
type Item struct {
	Identifier      string `json:"identifier"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PrimaryCategory string `json:"primaryCategory"`
	Status          string `json:"status"`
	MimeType        string `json:"mimeType"`
	LastUpdatedOn   string `json:"lastUpdatedOn"`
	CreatedOn       string `json:"createdOn,omitempty"`
	AppIcon         string `json:"appIcon,omitempty"`
}

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// SortFieldLastUpdated is the only field the queue sorts on.
const SortFieldLastUpdated = "lastUpdatedOn"

type Sort struct {
	Field string
	Order Order
}

// SearchRequest is a fully composed query. A nil Categories slice means no
// category restriction.
type SearchRequest struct {
	Statuses   []string
	Query      string
	Limit      int
	Offset     int
	Categories []string
	Sort       Sort
}

// SearchResponse carries the two result collections. Count is the total
// number of matches across all pages.
type SearchResponse struct {
	Count       int    `json:"count"`
	Content     []Item `json:"content"`
	QuestionSet []Item `json:"QuestionSet"`
}

type wireFilters struct {
	Status          []string `json:"status"`
	PrimaryCategory []string `json:"primaryCategory,omitempty"`
}

type wireRequest struct {
	Filters wireFilters      `json:"filters"`
	Query   string           `json:"query"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	SortBy  map[string]Order `json:"sort_by"`
}

type requestEnvelope struct {
	Request wireRequest `json:"request"`
}

type responseEnvelope struct {
	ID           string          `json:"id,omitempty"`
	ResponseCode string          `json:"responseCode"`
	Params       responseParams  `json:"params"`
	Result       *SearchResponse `json:"result"`
}

type responseParams struct {
	Status string `json:"status,omitempty"`
	ErrMsg string `json:"errmsg,omitempty"`
}

// MarshalJSON renders the request in the service's envelope format.
func (r SearchRequest) MarshalJSON() ([]byte, error) {
	field := r.Sort.Field
	if field == "" {
		field = SortFieldLastUpdated
	}
	order := r.Sort.Order
	if order == "" {
		order = OrderDesc
	}

	statuses := r.Statuses
	if statuses == nil {
		statuses = []string{}
	}

	return json.Marshal(requestEnvelope{Request: wireRequest{
		Filters: wireFilters{
			Status:          statuses,
			PrimaryCategory: r.Categories,
		},
		Query:  r.Query,
		Limit:  r.Limit,
		Offset: r.Offset,
		SortBy: map[string]Order{field: order},
	}})
}

// UnmarshalJSON accepts the envelope format produced by MarshalJSON.
func (r *SearchRequest) UnmarshalJSON(data []byte) error {
	var env requestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	*r = SearchRequest{
		Statuses:   env.Request.Filters.Status,
		Query:      env.Request.Query,
		Limit:      env.Request.Limit,
		Offset:     env.Request.Offset,
		Categories: env.Request.Filters.PrimaryCategory,
	}
	for field, order := range env.Request.SortBy {
		r.Sort = Sort{Field: field, Order: order}
	}
	return nil
}

// ParseResult decodes either a full service envelope or a bare result object.
func ParseResult(data []byte) (*SearchResponse, error) {
	var env responseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding search result: %w", err)
	}
	if env.ResponseCode != "" && env.ResponseCode != "OK" {
		return nil, fmt.Errorf("%w: %s %s", ErrUnexpectedResponse, env.ResponseCode, env.Params.ErrMsg)
	}
	if env.Result != nil {
		return env.Result, nil
	}

	var bare SearchResponse
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("decoding search result: %w", err)
	}
	return &bare, nil
}
