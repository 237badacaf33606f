package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/localstore"
	"github.com/pders01/reviewq/internal/queue"
	"github.com/pders01/reviewq/internal/validation"
)

type handlers struct {
	cfg      *config.Config
	deps     Deps
	composer queue.Composer
	fetcher  *queue.Fetcher
}

type rowResponse struct {
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContentType   string `json:"contentType"`
	Status        string `json:"status"`
	MimeType      string `json:"mimeType"`
	AppIcon       string `json:"appIcon"`
	LastUpdatedOn string `json:"lastUpdatedOn,omitempty"`
	LastUpdated   string `json:"lastUpdated"`
	QuestionSet   bool   `json:"questionSet"`
}

type queueResponse struct {
	Rows           []rowResponse `json:"rows"`
	TotalCount     int           `json:"totalCount"`
	Page           int           `json:"page"`
	PageCount      int           `json:"pageCount"`
	ShowPagination bool          `json:"showPagination"`
	Query          string        `json:"query"`
	Categories     []string      `json:"categories"`
	Sort           string        `json:"sort"`
}

type routeRequest struct {
	Identifier string `json:"identifier"`
	MimeType   string `json:"mimeType"`
}

type routeResponse struct {
	queue.Target
	URL string `json:"url"`
}

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
	Backend       string  `json:"backend"`
	SeededAt      string  `json:"seeded_at,omitempty"`
}

// seedReporter is implemented by backends that are loaded from a file.
type seedReporter interface {
	SeededAt() (time.Time, error)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.deps.StartTime).Seconds(),
		Version:       h.deps.Version,
		GoVersion:     runtime.Version(),
		Backend:       h.cfg.Backend.Kind,
	}

	if sr, ok := h.deps.Querier.(seedReporter); ok {
		seeded, err := sr.SeededAt()
		if err != nil {
			h.writeError(w, r, http.StatusServiceUnavailable, fmt.Errorf("reading workspace: %w", err))
			return
		}
		if !seeded.IsZero() {
			resp.SeededAt = seeded.UTC().Format(time.RFC3339)
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// listQueue answers GET /api/v1/queue?q=&category=&sort=&page=.
func (h *handlers) listQueue(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	page := 0
	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, http.StatusBadRequest, errors.New("page must be a non-negative integer"))
			return
		}
		page = n
	}

	sortBy, err := parseSort(params.Get("sort"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	var categories []string
	for _, c := range params["category"] {
		categories = append(categories, strings.Split(c, ",")...)
	}

	req := h.composer.Compose(strings.TrimSpace(params.Get("q")), categories, sortBy, page)
	res := h.fetcher.Fetch(r.Context(), queue.Ticket{Request: req})
	if res.Err != nil {
		h.writeError(w, r, upstreamStatus(res.Err), res.Err)
		return
	}

	now := h.deps.Now()
	rows := queue.Normalize(res.Response, now, h.cfg.Queue.DefaultIcon)
	out := queueResponse{
		Rows:           make([]rowResponse, len(rows)),
		TotalCount:     res.Response.Count,
		Page:           page,
		PageCount:      queue.PageCount(res.Response.Count, h.composer.PageSize),
		ShowPagination: res.Response.Count > h.composer.PageSize,
		Query:          req.Query,
		Categories:     req.Categories,
		Sort:           queue.SortLabel(sortBy),
	}
	if out.Categories == nil {
		out.Categories = []string{}
	}
	for i, row := range rows {
		out.Rows[i] = toRowResponse(row)
	}

	writeJSON(w, http.StatusOK, out)
}

// routeItem answers POST /api/v1/queue/route with the editor target.
func (h *handlers) routeItem(w http.ResponseWriter, r *http.Request) {
	var body routeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if err := validation.ValidateIdentifier(body.Identifier); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	target, err := h.deps.Router.Route(body.Identifier, body.MimeType)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrUnsupportedType) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, r, status, err)
		return
	}

	writeJSON(w, http.StatusOK, routeResponse{
		Target: target,
		URL:    target.URL(h.cfg.Editor.BaseURL),
	})
}

// retireItem answers DELETE /api/v1/queue/{identifier}.
func (h *handlers) retireItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identifier")
	if err := validation.ValidateIdentifier(id); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := queue.Remove(r.Context(), h.deps.Deleter, id); err != nil {
		h.writeError(w, r, upstreamStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseSort(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "updated", "last updated":
		return queue.SortUpdated, nil
	case "created", "created on", "createdon":
		return queue.SortCreatedOn, nil
	default:
		return "", errors.New("sort must be 'updated' or 'created'")
	}
}

// upstreamStatus maps a collaborator failure to a response status.
func upstreamStatus(err error) int {
	if errors.Is(err, localstore.ErrNotFound) {
		return http.StatusNotFound
	}
	var apiErr *content.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func toRowResponse(row queue.DisplayRow) rowResponse {
	out := rowResponse{
		Identifier:  row.Identifier,
		Name:        row.Name,
		Description: row.Description,
		ContentType: row.ContentType,
		Status:      row.Status,
		MimeType:    row.MimeType,
		AppIcon:     row.AppIcon,
		LastUpdated: row.LastUpdated,
		QuestionSet: row.QuestionSet,
	}
	if !row.LastUpdatedOn.IsZero() {
		out.LastUpdatedOn = row.LastUpdatedOn.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqID := middleware.GetReqID(r.Context())
	if status >= http.StatusInternalServerError {
		h.deps.Logger.Warn("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
