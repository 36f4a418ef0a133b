package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by a filter run that was replaced by a newer
// one. Only the most recent run ever delivers results.
var ErrSuperseded = errors.New("filter run superseded by a newer request")

// dateFilter applies a release-date predicate across an arbitrarily large
// plugin set by resolving dates in small concurrent batches with an
// inter-batch delay, keeping pressure off the rate-limited API.
//
// At most one run is current at a time. Starting a new run cancels the
// previous one in place; cancellation is cooperative, checked at the start
// of each batch and again after its resolution completes. Work already in
// flight for the current batch runs to completion, its results are simply
// discarded.
type dateFilter struct {
	batchSize int
	delay     time.Duration
	resolve   func(ctx context.Context, p Plugin) (*ReleaseInfo, error)
	logger    func(format string, args ...any)

	mu     sync.Mutex // guards cancel
	cancel context.CancelFunc
}

func newDateFilter(batchSize int, delay time.Duration, resolve func(context.Context, Plugin) (*ReleaseInfo, error), logger func(string, ...any)) *dateFilter {
	return &dateFilter{
		batchSize: batchSize,
		delay:     delay,
		resolve:   resolve,
		logger:    logger,
	}
}

// Run filters plugins down to those whose resolved release date is not
// before cutoff. Plugins whose date cannot be resolved are excluded: only
// entries with a confirmed matching date pass.
func (f *dateFilter) Run(ctx context.Context, plugins []Plugin, cutoff time.Time) ([]Plugin, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.supersede(cancel)

	runID := uuid.NewString()[:8]
	f.logger("date filter %s: %d plugins, batch size %d", runID, len(plugins), f.batchSize)

	matched := make([]bool, len(plugins))
	for start := 0; start < len(plugins); start += f.batchSize {
		if err := f.interrupted(ctx, runCtx); err != nil {
			return nil, err
		}

		end := min(start+f.batchSize, len(plugins))
		g, batchCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				info, err := f.resolve(batchCtx, plugins[i])
				if err != nil || info == nil {
					// Conservative exclusion: unverifiable dates never pass.
					return nil
				}
				if !info.Date.Before(cutoff) {
					matched[i] = true
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := f.interrupted(ctx, runCtx); err != nil {
			return nil, err
		}

		if end < len(plugins) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-runCtx.Done():
				return nil, ErrSuperseded
			case <-time.After(f.delay):
			}
		}
	}

	if err := f.interrupted(ctx, runCtx); err != nil {
		return nil, err
	}

	var out []Plugin
	for i, ok := range matched {
		if ok {
			out = append(out, plugins[i])
		}
	}
	f.logger("date filter %s: %d of %d plugins matched", runID, len(out), len(plugins))
	return out, nil
}

// supersede atomically replaces the current run's cancel func, cancelling
// any run still in flight.
func (f *dateFilter) supersede(cancel context.CancelFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
}

// interrupted reports why the run must stop: the caller's own cancellation
// wins over supersession.
func (f *dateFilter) interrupted(ctx, runCtx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if runCtx.Err() != nil {
		return ErrSuperseded
	}
	return nil
}
