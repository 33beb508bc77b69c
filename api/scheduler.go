/*
scheduler.go - Automated monthly billing scheduler

PURPOSE:
  Runs the recurring-charge generator on a cron schedule so rent, utilities
  and transport charges post themselves at the start of each billing month
  without an operator calling /api/admin/generate.

DESIGN:
  - Runs a background goroutine with a short check interval
  - A cron expression decides when a billing run is actually due; between
    due times the ticker wakes up and goes back to sleep
  - The generator itself is idempotent (already-billed months are skipped),
    so an extra run after a restart posts nothing twice

CONFIGURATION:
  - CheckInterval: how often to poll the clock (default: 1 minute)
  - Cron expression: standard 5-field syntax, default "0 6 1 * *"
    (06:00 on the 1st of every month)
  - Enabled: scheduler can be disabled for testing or manual-only operation

SEE ALSO:
  - recurring/generate.go: the generator this drives
  - config/config.go: CHARGE_SCHEDULER_ENABLED / CHARGE_SCHEDULER_CRON
*/

package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/charge-engine/charge"
	"github.com/warp/charge-engine/metrics"
	"github.com/warp/charge-engine/recurring"
)

// runTimeout bounds a single billing run.
const runTimeout = 5 * time.Minute

// BillingScheduler triggers monthly charge generation on a cron schedule.
type BillingScheduler struct {
	Generator     *recurring.Generator
	CheckInterval time.Duration
	Enabled       bool

	schedule cron.Schedule
	nextRun  time.Time

	ticker  *time.Ticker
	stop    chan bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewBillingScheduler creates a scheduler that bills against the given
// store. cronExpr uses standard 5-field cron syntax.
func NewBillingScheduler(store charge.Store, cronExpr string) (*BillingScheduler, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return &BillingScheduler{
		Generator:     recurring.NewGenerator(store),
		CheckInterval: time.Minute,
		Enabled:       true,
		schedule:      schedule,
		nextRun:       schedule.Next(time.Now()),
		stop:          make(chan bool),
	}, nil
}

// Start launches the background billing loop. Safe to call once; further
// calls are no-ops while running.
func (s *BillingScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || !s.Enabled {
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	log.Printf("[Scheduler] Started, next billing run at %s", s.nextRun.Format(time.RFC3339))
}

// Stop halts the billing loop and waits for any in-flight run to finish.
func (s *BillingScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	log.Printf("[Scheduler] Stopped")
}

func (s *BillingScheduler) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.checkAndProcess()
		case <-s.stop:
			return
		}
	}
}

// checkAndProcess fires a billing run when the cron due time has passed.
func (s *BillingScheduler) checkAndProcess() {
	s.mu.Lock()
	due := !time.Now().Before(s.nextRun)
	s.mu.Unlock()

	if !due {
		return
	}
	s.RunNow()
}

// RunNow executes one billing run immediately and reschedules the next
// cron occurrence. Exposed for manual triggering and tests.
func (s *BillingScheduler) RunNow() {
	start := time.Now()
	log.Printf("[Scheduler] Billing run starting")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report, err := s.Generator.GenerateCurrentMonth(ctx)
	metrics.ObserveSchedulerRun(start, err)

	if err != nil {
		log.Printf("[Scheduler] Billing run failed: %v", err)
	} else {
		for _, c := range report.Posted {
			metrics.ObserveChargePosted(string(c.Type), string(c.Source))
		}
		log.Printf("[Scheduler] Billing run for %s: %d posted, %d skipped, %d failed",
			report.Month, len(report.Posted), report.Skipped, len(report.Failed))
		for _, f := range report.Failed {
			log.Printf("[Scheduler] Schedule %s failed: %v", f.ScheduleID, f.Err)
		}
	}

	s.mu.Lock()
	s.nextRun = s.schedule.Next(time.Now())
	s.mu.Unlock()
	log.Printf("[Scheduler] Next billing run at %s", s.nextRun.Format(time.RFC3339))
}

// GetNextRunTime reports when the next billing run is due.
func (s *BillingScheduler) GetNextRunTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}
