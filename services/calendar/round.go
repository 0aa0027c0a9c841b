package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"airingcal/models"

	"github.com/sourcegraph/conc/pool"
)

//go:generate mockgen -destination=mocks/fetcher.go -package=mocks airingcal/services/calendar Fetcher

// Fetcher retrieves one schedule week. offset is relative to the current
// week: negative for past weeks, zero for this week, positive for future ones.
type Fetcher interface {
	FetchWeek(ctx context.Context, offset int) (*models.WeeklySchedule, error)
}

// RoundOptions bounds the fetches of a round.
type RoundOptions struct {
	MaxConcurrent int
	FetchTimeout  time.Duration
}

// DefaultRoundOptions fetches every week of a round at once and gives each
// fetch 15 seconds.
func DefaultRoundOptions() RoundOptions {
	return RoundOptions{MaxConcurrent: 7, FetchTimeout: 15 * time.Second}
}

// RunRound fetches every week of r and returns once all of them have settled,
// successfully or not. Results are in the order of r.Offsets. A failed week
// is recorded in its WeekResult and never stops the others. onSettle, when
// set, is called with the running count of settled fetches.
func RunRound(ctx context.Context, fetcher Fetcher, r Round, opts RoundOptions, onSettle func(settled int)) []WeekResult {
	results := make([]WeekResult, len(r.Offsets))
	if len(r.Offsets) == 0 {
		return results
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = len(r.Offsets)
	}
	log := slog.Default().With("component", "calendar-round", "generation", r.Generation, "month", r.Month.String())

	var settled atomic.Int32
	p := pool.New().WithMaxGoroutines(maxConcurrent)
	for i, offset := range r.Offsets {
		p.Go(func() {
			payload, err := fetchOne(ctx, fetcher, offset, opts.FetchTimeout)
			if err != nil {
				log.Warn("schedule week unavailable", "offset", offset, "error", err)
			}
			results[i] = WeekResult{Offset: offset, Payload: payload, Err: err}
			n := settled.Add(1)
			if onSettle != nil {
				onSettle(int(n))
			}
		})
	}
	p.Wait()

	return results
}

func fetchOne(ctx context.Context, fetcher Fetcher, offset int, timeout time.Duration) (payload *models.WeeklySchedule, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			payload, err = nil, fmt.Errorf("fetch week %d: panic: %v", offset, rec)
		}
	}()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	payload, err = fetcher.FetchWeek(ctx, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch week %d: %w", offset, err)
	}
	return payload, nil
}
