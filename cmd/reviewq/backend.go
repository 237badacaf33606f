package main

import (
	"fmt"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/localstore"
	"github.com/pders01/reviewq/internal/queue"
	"github.com/pders01/reviewq/internal/validation"
)

// backend is a content collaborator both adapters can drive.
type backend interface {
	queue.Querier
	queue.Deleter
	Close() error
}

type httpBackend struct {
	*content.Client
}

func (httpBackend) Close() error { return nil }

func openBackend(cfg *config.Config) (backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendHTTP:
		validator := validation.NewEndpointValidator()
		if cfg.Backend.StrictEndpoints {
			validator = validation.NewStrictEndpointValidator()
		}
		base, err := validator.Normalize(cfg.Backend.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("backend.base_url: %w", err)
		}
		return httpBackend{content.NewClient(content.Options{
			BaseURL:    base,
			SearchPath: cfg.Backend.SearchPath,
			RetirePath: cfg.Backend.RetirePath,
			UserAgent:  cfg.Backend.UserAgent,
			Timeout:    cfg.Backend.Timeout,
		})}, nil

	case config.BackendLocal:
		b, err := localstore.Open(cfg.Local)
		if err != nil {
			return nil, fmt.Errorf("opening local workspace: %w", err)
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown backend %q (want %q or %q)", cfg.Backend.Kind, config.BackendHTTP, config.BackendLocal)
	}
}
