/*
scheduler.go - Automated month opening

PURPOSE:
  When a new month starts, resolves every employee of every company for
  that month, so the month's state table holds an inherited snapshot per
  employee before anyone edits it. Opening is the same Resolve the
  snapshot endpoint performs; the scheduler only does it early.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Tracks the last month opened per company, in memory
  - A company whose document is missing or corrupt is logged and retried
    on the next tick

USAGE:
  scheduler := NewMonthScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - payroll/snapshot_store.go: ListActive / Resolve
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"go.uber.org/zap"
)

// MonthScheduler opens the current month for every company.
type MonthScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	opened map[string]payroll.Period
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonthScheduler creates a new scheduler.
func NewMonthScheduler(handler *Handler) *MonthScheduler {
	return &MonthScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           time.Now,
		opened:        make(map[string]payroll.Period),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler. It opens the current month immediately.
func (ms *MonthScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	log := ms.Handler.logger.Named("scheduler")
	if !ms.Enabled {
		log.Info("disabled, not starting")
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.wg.Add(1)
	go ms.run()

	log.Info("started", zap.Duration("interval", ms.CheckInterval))
}

// Stop halts the scheduler and waits for a running check to finish.
func (ms *MonthScheduler) Stop() {
	ms.mu.Lock()
	if ms.ticker == nil {
		ms.mu.Unlock()
		return
	}
	ms.ticker.Stop()
	close(ms.stop)
	ms.ticker = nil
	ms.mu.Unlock()

	ms.wg.Wait()
}

func (ms *MonthScheduler) run() {
	defer ms.wg.Done()

	ms.RunNow(context.Background())
	for {
		ms.mu.Lock()
		ticker := ms.ticker
		ms.mu.Unlock()
		if ticker == nil {
			return
		}
		select {
		case <-ticker.C:
			ms.RunNow(context.Background())
		case <-ms.stop:
			return
		}
	}
}

// RunNow opens the current month for every company not yet opened, and
// returns how many companies were opened.
func (ms *MonthScheduler) RunNow(ctx context.Context) int {
	now := ms.now().UTC()
	period := payroll.NewPeriod(now.Year(), now.Month())
	log := ms.Handler.logger.Named("scheduler").With(zap.Stringer("period", period))

	opened := 0
	for _, co := range ms.Handler.Companies.List() {
		ms.mu.Lock()
		done := ms.opened[co.ID] == period
		ms.mu.Unlock()
		if done {
			continue
		}

		active, err := ms.Handler.Snapshots.ListActive(ctx, co.Scope(), period)
		if err != nil {
			log.Warn("month not opened", zap.String("company", co.ID), zap.Error(err))
			continue
		}

		ms.mu.Lock()
		ms.opened[co.ID] = period
		ms.mu.Unlock()
		opened++
		log.Info("month opened", zap.String("company", co.ID), zap.Int("active", len(active)))
	}
	return opened
}
