package chain

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"go-fetch-cache/internal/interfaces"
	"go-fetch-cache/internal/metrics"
	"go-fetch-cache/internal/models"
)

// Progress checkpoints reported while a chain runs
const (
	ProgressStarted      = 0.0
	ProgressFirstFetched = 0.3
	ProgressDerived      = 0.6
	ProgressSecondFetch  = 0.8
	ProgressDone         = 1.0
)

// State is the observable state of a Coordinator
type State struct {
	IsLoading bool
	Progress  float64
	Err       error
}

// Observer receives every state change
type Observer func(State)

// Coordinator runs two dependent live fetches and publishes loading state.
// State changes are delivered to observers one at a time, in the order they
// happen. Observers may read State() but must not call back into methods
// that change it.
type Coordinator struct {
	fetcher interfaces.Fetcher
	logger  *zap.Logger

	notifyMu sync.Mutex // serializes publication

	mu        sync.Mutex
	state     State
	observers []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Observer
}

// NewCoordinator creates an idle Coordinator
func NewCoordinator(fetcher interfaces.Fetcher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		logger:  logger,
	}
}

// State returns a snapshot of the current state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for state changes and returns a function that
// removes it
func (c *Coordinator) Subscribe(fn Observer) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers = append(c.observers, subscription{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.observers {
			if sub.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// ClearError resets the error field
func (c *Coordinator) ClearError() {
	c.update(func(s *State) { s.Err = nil })
}

func (c *Coordinator) update(mutate func(*State)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	mutate(&c.state)
	snapshot := c.state
	observers := c.observers
	c.mu.Unlock()

	for _, sub := range observers {
		sub.fn(snapshot)
	}
}

// ChainTwo fetches first, derives the second request from the decoded first
// response and returns the decoded second response. Both fetches are live.
//
// Any failure, including a decode failure, is reported as a network error
// both in the returned error and in the coordinator state. IsLoading is
// false and Progress is 1.0 once ChainTwo returns.
func ChainTwo[T, U any](ctx context.Context, c *Coordinator, first models.RequestConfiguration, derive func(T) models.RequestConfiguration) (U, error) {
	var second U

	c.update(func(s *State) {
		s.IsLoading = true
		s.Err = nil
		s.Progress = ProgressStarted
	})

	err := func() error {
		firstResult, err := fetchDecoded[T](ctx, c.fetcher, first)
		if err != nil {
			return err
		}
		c.setProgress(ProgressFirstFetched)

		next := derive(firstResult)
		c.setProgress(ProgressDerived)

		second, err = fetchDecoded[U](ctx, c.fetcher, next)
		if err != nil {
			return err
		}
		c.setProgress(ProgressSecondFetch)
		return nil
	}()

	if err != nil {
		wrapped := models.NewNetworkError(err)
		c.logger.Warn("Request chain failed", zap.String("domain", first.Domain), zap.String("path", first.Path), zap.Error(err))
		metrics.RecordChainRun(false)
		c.update(func(s *State) {
			s.Err = wrapped
			s.IsLoading = false
			s.Progress = ProgressDone
		})
		var zero U
		return zero, wrapped
	}

	metrics.RecordChainRun(true)
	c.update(func(s *State) {
		s.IsLoading = false
		s.Progress = ProgressDone
	})
	return second, nil
}

func (c *Coordinator) setProgress(p float64) {
	c.update(func(s *State) { s.Progress = p })
}

func fetchDecoded[T any](ctx context.Context, fetcher interfaces.Fetcher, cfg models.RequestConfiguration) (T, error) {
	var result T

	data, err := fetcher.Fetch(ctx, cfg)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}
	return result, nil
}
