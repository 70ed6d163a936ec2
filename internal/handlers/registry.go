// Package handlers defines the Handler contract, the registry that maps job
// types to handlers, and a set of reference handler implementations.
package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/contentforge/orchestrator/internal/models"
	"github.com/ternarybob/arbor"
)

// Handler processes a single job's parameters and returns its results, or an
// error if processing failed. report lets a handler push intermediate
// progress; implementations may call it zero or more times.
type Handler func(ctx context.Context, job *models.Job, report ProgressReporter) (*models.Results, error)

// ProgressReporter lets a handler publish intermediate progress without
// depending on the store or webhook dispatcher directly.
type ProgressReporter func(progress models.Progress)

// Registry maps job type names to Handler implementations. It is populated
// once at startup and is safe for concurrent reads thereafter, matching
// JobTypeRegistry's RWMutex-guarded map.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   arbor.ILogger
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register adds a handler for jobType. Registering the same type twice is an
// error, matching the teacher's duplicate-registration guard.
func (r *Registry) Register(jobType string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if jobType == "" {
		return fmt.Errorf("job type cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("handler already registered for job type %s", jobType)
	}
	r.handlers[jobType] = h

	if r.logger != nil {
		r.logger.Info().Str("job_type", jobType).Msg("handler registered")
	}
	return nil
}

// Get returns the handler for jobType, or models.ErrCodeUnknownJobType if
// none is registered.
func (r *Registry) Get(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("%s: no handler registered for job type %s", models.ErrCodeUnknownJobType, jobType)
	}
	return h, nil
}

// JobTypes returns a sorted list of every registered job type.
func (r *Registry) JobTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
