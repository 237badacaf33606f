package queue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pders01/reviewq/internal/config"
)

// ReviewMode is the editor mode every queue navigation opens in.
const ReviewMode = "review"

var ErrUnsupportedType = errors.New("unsupported media type")

// Class names a group of media types that share an editor.
type Class string

const (
	ClassQuestionSet Class = "question_set"
	ClassGeneric     Class = "generic"
	ClassCollection  Class = "collection"
)

// Target is where an item opens.
type Target struct {
	Class      Class  `json:"class"`
	Path       string `json:"path"`
	Identifier string `json:"identifier"`
	Mode       string `json:"mode"`
}

// URL joins the target onto an editor base URL.
func (t Target) URL(base string) string {
	q := url.Values{}
	q.Set("identifier", t.Identifier)
	q.Set("mode", t.Mode)
	return strings.TrimRight(base, "/") + t.Path + "?" + q.Encode()
}

// Navigator opens a target for the operator.
type Navigator interface {
	Navigate(ctx context.Context, target Target) error
}

type route struct {
	class Class
	path  string
}

// Router maps media types to editor destinations.
type Router struct {
	byMime map[string]route
}

// NewRouter builds a Router from the configured classes. A media type
// listed under more than one class is rejected.
func NewRouter(cfg config.RoutesConfig) (*Router, error) {
	r := &Router{byMime: make(map[string]route)}

	for _, c := range []struct {
		class Class
		rc    config.RouteClass
	}{
		{ClassQuestionSet, cfg.QuestionSet},
		{ClassGeneric, cfg.Generic},
		{ClassCollection, cfg.Collection},
	} {
		if c.rc.Path == "" {
			return nil, fmt.Errorf("route %s has no path", c.class)
		}
		for _, mime := range c.rc.MimeTypes {
			key := strings.ToLower(strings.TrimSpace(mime))
			if prev, ok := r.byMime[key]; ok && prev.class != c.class {
				return nil, fmt.Errorf("media type %s is listed under both %s and %s", mime, prev.class, c.class)
			}
			r.byMime[key] = route{class: c.class, path: c.rc.Path}
		}
	}

	return r, nil
}

// Classify returns the class for a media type.
func (r *Router) Classify(mimeType string) (Class, bool) {
	rt, ok := r.byMime[strings.ToLower(strings.TrimSpace(mimeType))]
	return rt.class, ok
}

// Route picks the editor for an item. Items without a known media type
// yield ErrUnsupportedType.
func (r *Router) Route(identifier, mimeType string) (Target, error) {
	if strings.TrimSpace(mimeType) == "" {
		routesTotal.WithLabelValues("unsupported").Inc()
		return Target{}, fmt.Errorf("%w: %s has no media type", ErrUnsupportedType, identifier)
	}

	rt, ok := r.byMime[strings.ToLower(strings.TrimSpace(mimeType))]
	if !ok {
		routesTotal.WithLabelValues("unsupported").Inc()
		return Target{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	routesTotal.WithLabelValues(string(rt.class)).Inc()
	return Target{
		Class:      rt.class,
		Path:       rt.path,
		Identifier: identifier,
		Mode:       ReviewMode,
	}, nil
}

// RouteRow routes a displayed row.
func (r *Router) RouteRow(row DisplayRow) (Target, error) {
	return r.Route(row.Identifier, row.MimeType)
}
