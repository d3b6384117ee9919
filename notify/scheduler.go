/*
Package notify implements the Notification Scheduler (spec.md §4.2): an
independent periodic scan that fires one-shot reminders a configurable
lead time before a task's scheduled start.

Structurally this is the same ticker+goroutine+stop-channel+WaitGroup
worker as timer.Engine and the teacher's ReconciliationScheduler
(api/scheduler.go), run at a 30s period instead of 1s/1h.
*/
package notify

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/metrics"
	"github.com/kvaranth/dayclock/plan"
)

const scanInterval = 30 * time.Second

// Snapshotter is the read seam onto the timer engine's current tasks.
type Snapshotter interface {
	Snapshot() plan.Snapshot
}

// Callback fires (title, message) for a task whose scheduled start is
// approaching.
type Callback func(title, message string)

// Scheduler scans a Snapshotter every 30 seconds and fires each
// qualifying task's reminder at most once per engine lifetime.
type Scheduler struct {
	source      Snapshotter
	clock       plan.Clock
	notifyAhead func() time.Duration
	callback    Callback
	logger      *zap.SugaredLogger

	mu     sync.Mutex
	fired  map[plan.TaskID]struct{}
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Scheduler. notifyAhead is called on every scan so
// settings changes (notify_before_minutes) take effect without a restart.
func New(source Snapshotter, clock plan.Clock, notifyAhead func() time.Duration, callback Callback, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		source:      source,
		clock:       clock,
		notifyAhead: notifyAhead,
		callback:    callback,
		logger:      logger,
		fired:       make(map[plan.TaskID]struct{}),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return
	}
	s.ticker = time.NewTicker(scanInterval)
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	s.scan()
	for {
		select {
		case <-s.ticker.C:
			s.scan()
		case <-s.stopCh:
			return
		}
	}
}

// scan reads a snapshot under the engine's lock (via Snapshot()) and
// invokes the callback outside any lock, so one slow/panicking listener
// never blocks the scheduler's own state.
func (s *Scheduler) scan() {
	snap := s.source.Snapshot()
	now := s.clock.Now()
	ahead := s.notifyAhead()

	type firing struct {
		title, message string
	}
	var toFire []firing

	s.mu.Lock()
	for _, t := range snap.Tasks {
		if t.ScheduledTime == "" {
			continue
		}
		if _, ok := s.fired[t.ID]; ok {
			continue
		}
		if t.Status.IsTerminal() {
			continue
		}
		scheduled, err := time.ParseInLocation("2006-01-02 15:04", snap.Date+" "+t.ScheduledTime, now.Location())
		if err != nil {
			continue
		}
		secondsUntil := scheduled.Sub(now)
		if secondsUntil >= 0 && secondsUntil <= ahead {
			s.fired[t.ID] = struct{}{}
			mins := int(secondsUntil.Minutes())
			msg := fmt.Sprintf("in %d min (%s)", mins, t.ScheduledTime)
			if mins <= 0 {
				msg = "right now"
			}
			toFire = append(toFire, firing{title: fmt.Sprintf("Coming up: %s", t.Name), message: msg})
		}
	}
	s.mu.Unlock()

	for _, f := range toFire {
		metrics.NotificationsFired.Inc()
		s.safeCallback(f.title, f.message)
	}
}

func (s *Scheduler) safeCallback(title, message string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnw("notification callback panicked", "recover", r)
		}
	}()
	if s.callback != nil {
		s.callback(title, message)
	}
}
