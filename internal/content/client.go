package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultUserAgent  = "reviewq/1.0 (https://github.com/pders01/reviewq)"
	defaultTimeout    = 15 * time.Second
	defaultSearchPath = "/action/composite/v3/search"
	defaultRetirePath = "/action/content/v3/retire"

	// maxErrorBody caps how much of a failed response is kept in an APIError.
	maxErrorBody = 512
)

type Options struct {
	BaseURL    string
	SearchPath string
	RetirePath string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the workspace content-search service.
type Client struct {
	client     *http.Client
	baseURL    string
	searchPath string
	retirePath string
	userAgent  string
}

func NewClient(opts Options) *Client {
	c := &Client{
		client:     opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		searchPath: opts.SearchPath,
		retirePath: strings.TrimRight(opts.RetirePath, "/"),
		userAgent:  opts.UserAgent,
	}

	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if c.searchPath == "" {
		c.searchPath = defaultSearchPath
	}
	if c.retirePath == "" {
		c.retirePath = defaultRetirePath
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	return c
}

// Search runs a composed query and returns both result collections.
func (c *Client) Search(ctx context.Context, sr SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+c.searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching content: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("search", req, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	result, err := ParseResult(data)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Retire permanently removes an item from the review workflow.
func (c *Client) Retire(ctx context.Context, identifier string) error {
	if identifier == "" {
		return fmt.Errorf("retire: empty identifier")
	}

	endpoint := c.baseURL + c.retirePath + "/" + url.PathEscape(identifier)
	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("retiring %s: %w", identifier, err)
	}
	defer resp.Body.Close()

	return checkStatus("retire", req, resp)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func checkStatus(op string, req *http.Request, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Op:         op,
		StatusCode: resp.StatusCode,
		RequestID:  req.Header.Get("X-Request-ID"),
		Body:       strings.TrimSpace(string(body)),
	}
}
