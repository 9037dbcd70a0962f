// internal/service/liveclass/poller.go
package liveclass

import (
	"context"
	"sync"
	"time"

	"lms-admin-service/internal/domain/liveclass"
	"lms-admin-service/internal/repository/lmsapi"

	"go.uber.org/zap"
)

// StatusFetcher asks the LMS API for a class's authoritative status.
type StatusFetcher interface {
	LiveClassStatus(ctx context.Context, classID string) (lmsapi.StatusResponse, error)
}

// StatusSink receives every snapshot a task applies.
type StatusSink interface {
	SnapshotChanged(class liveclass.LiveClass, prev, next liveclass.Snapshot)
}

type PollerConfig struct {
	// ProtectionWindow is how long after creation a class is left alone
	// while the upstream finishes provisioning it.
	ProtectionWindow time.Duration
	LiveInterval     time.Duration
	StartingInterval time.Duration
	UpcomingInterval time.Duration
	PollTimeout      time.Duration
}

func (c *PollerConfig) setDefaults() {
	if c.ProtectionWindow < 0 {
		c.ProtectionWindow = 0
	}
	if c.LiveInterval <= 0 {
		c.LiveInterval = 10 * time.Second
	}
	if c.StartingInterval <= 0 {
		c.StartingInterval = 20 * time.Second
	}
	if c.UpcomingInterval <= 0 {
		c.UpcomingInterval = 60 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 8 * time.Second
	}
}

// Poller owns one polling task per watched live class.
type Poller struct {
	fetcher StatusFetcher
	clock   Clock
	cfg     PollerConfig
	sinks   []StatusSink
	logger  *zap.Logger

	mu    sync.Mutex
	tasks map[string]*Task
}

func NewPoller(fetcher StatusFetcher, clock Clock, cfg PollerConfig, logger *zap.Logger, sinks ...StatusSink) *Poller {
	cfg.setDefaults()
	if clock == nil {
		clock = RealClock()
	}
	return &Poller{
		fetcher: fetcher,
		clock:   clock,
		cfg:     cfg,
		sinks:   sinks,
		logger:  logger,
		tasks:   make(map[string]*Task),
	}
}

// Watch starts polling class. A class that is already watched keeps its task
// unless its id, creation time or start time changed, in which case the old
// task is cancelled and a new one started.
func (p *Poller) Watch(class liveclass.LiveClass) *Task {
	p.mu.Lock()
	if t, ok := p.tasks[class.ID]; ok {
		if t.sameIdentity(class) {
			p.mu.Unlock()
			t.updateClass(class)
			if class.Status.Terminal() && t.Active() {
				t.Apply(liveclass.Snapshot{
					ClassID:   class.ID,
					Status:    class.Status,
					CanDelete: true,
					Source:    liveclass.SourceLocal,
					CheckedAt: p.clock.Now(),
				})
			}
			return t
		}
		t.Cancel()
		p.logger.Debug("restarting live class poller", zap.String("class_id", class.ID))
	}
	t := newTask(p, class)
	p.tasks[class.ID] = t
	p.mu.Unlock()

	t.start()
	return t
}

// Unwatch cancels the task for classID. It reports whether one existed.
func (p *Poller) Unwatch(classID string) bool {
	p.mu.Lock()
	t, ok := p.tasks[classID]
	delete(p.tasks, classID)
	p.mu.Unlock()

	if ok {
		t.Cancel()
	}
	return ok
}

// Sync makes the watched set equal to classes.
func (p *Poller) Sync(classes []liveclass.LiveClass) {
	keep := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		keep[c.ID] = struct{}{}
		p.Watch(c)
	}

	p.mu.Lock()
	var stale []*Task
	for id, t := range p.tasks {
		if _, ok := keep[id]; !ok {
			stale = append(stale, t)
			delete(p.tasks, id)
		}
	}
	p.mu.Unlock()

	for _, t := range stale {
		t.Cancel()
	}
}

func (p *Poller) Task(classID string) (*Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[classID]
	return t, ok
}

// Len is the number of watched classes.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Stop cancels every task.
func (p *Poller) Stop() {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = make(map[string]*Task)
	p.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
}

func (p *Poller) notify(class liveclass.LiveClass, prev, next liveclass.Snapshot) {
	for _, s := range p.sinks {
		s.SnapshotChanged(class, prev, next)
	}
}

// Task polls a single class. All state is guarded by mu; gen is bumped on
// every reschedule and on cancel so callbacks from older timers are dropped.
type Task struct {
	p *Poller

	mu        sync.Mutex
	class     liveclass.LiveClass
	snapshot  liveclass.Snapshot
	timer     Timer
	gen       uint64
	cancelled bool
	done      bool
}

func newTask(p *Poller, class liveclass.LiveClass) *Task {
	return &Task{p: p, class: class}
}

func (t *Task) sameIdentity(c liveclass.LiveClass) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.class.ID == c.ID && t.class.CreatedAt.Equal(c.CreatedAt) && t.class.StartTime.Equal(c.StartTime)
}

func (t *Task) updateClass(c liveclass.LiveClass) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.class = c
}

func (t *Task) windowEnd() time.Time {
	return t.class.CreatedAt.Add(t.p.cfg.ProtectionWindow)
}

func (t *Task) start() {
	now := t.p.clock.Now()

	t.mu.Lock()
	t.snapshot = liveclass.Snapshot{
		ClassID:   t.class.ID,
		Status:    t.class.Status,
		Source:    liveclass.SourceLocal,
		CheckedAt: now,
	}
	if t.class.Status == "" {
		t.snapshot.Status = liveclass.StatusScheduled
	}
	if t.snapshot.Status.Terminal() {
		// Finished classes can always be removed and are never polled.
		t.snapshot.CanDelete = true
		t.done = true
	} else {
		delay := t.windowEnd().Sub(now)
		if delay < 0 {
			delay = 0
		}
		t.scheduleLocked(delay)
	}
	class, snap := t.class, t.snapshot
	t.mu.Unlock()

	t.p.notify(class, liveclass.Snapshot{}, snap)
}

func (t *Task) scheduleLocked(d time.Duration) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.p.clock.AfterFunc(d, func() { t.poll(gen) })
}

// nextDelayLocked picks the interval for the current state, never landing
// inside the protection window.
func (t *Task) nextDelayLocked(now time.Time) time.Duration {
	var d time.Duration
	switch {
	case t.snapshot.Status == liveclass.StatusLive:
		d = t.p.cfg.LiveInterval
	case !now.Before(t.class.StartTime):
		d = t.p.cfg.StartingInterval
	default:
		d = t.p.cfg.UpcomingInterval
	}
	if untilWindow := t.windowEnd().Sub(now); untilWindow > d {
		d = untilWindow
	}
	return d
}

func (t *Task) live(gen uint64) bool {
	return !t.cancelled && !t.done && gen == t.gen
}

func (t *Task) poll(gen uint64) {
	t.mu.Lock()
	if !t.live(gen) {
		t.mu.Unlock()
		return
	}
	classID := t.class.ID
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.p.cfg.PollTimeout)
	resp, err := t.p.fetcher.LiveClassStatus(ctx, classID)
	cancel()

	now := t.p.clock.Now()

	t.mu.Lock()
	if !t.live(gen) {
		// Cancelled or superseded while the request was in flight.
		t.mu.Unlock()
		return
	}
	if err != nil {
		t.scheduleLocked(t.nextDelayLocked(now))
		t.mu.Unlock()
		t.p.logger.Warn("live class status poll failed",
			zap.String("class_id", classID),
			zap.Error(err))
		return
	}

	prev := t.snapshot
	t.snapshot = snapshotFromResponse(classID, resp, liveclass.SourcePoll, now)
	if t.snapshot.Status.Terminal() {
		t.done = true
		t.timer = nil
	} else {
		t.scheduleLocked(t.nextDelayLocked(now))
	}
	class, next := t.class, t.snapshot
	t.mu.Unlock()

	t.p.notify(class, prev, next)
}

// Apply replaces the snapshot with one obtained outside the poll loop, such
// as a synchronous re-check. A terminal status stops polling; otherwise,
// outside the protection window, the next poll is one interval for the new
// state after this observation.
func (t *Task) Apply(next liveclass.Snapshot) {
	now := t.p.clock.Now()

	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	prev := t.snapshot
	t.snapshot = next
	switch {
	case t.done:
	case next.Status.Terminal():
		t.done = true
		t.gen++
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	case !now.Before(t.windowEnd()):
		t.scheduleLocked(t.nextDelayLocked(now))
	}
	class := t.class
	t.mu.Unlock()

	t.p.notify(class, prev, next)
}

// ApplyOptimistic shows a locally assumed status until the server confirms it.
// Outside the protection window the next poll is pulled in to the live interval.
func (t *Task) ApplyOptimistic(next liveclass.Snapshot) {
	now := t.p.clock.Now()

	t.mu.Lock()
	if t.cancelled || t.done {
		t.mu.Unlock()
		return
	}
	prev := t.snapshot
	next.Source = liveclass.SourceOptimistic
	t.snapshot = next
	if !now.Before(t.windowEnd()) {
		t.scheduleLocked(t.p.cfg.LiveInterval)
	}
	class := t.class
	t.mu.Unlock()

	t.p.notify(class, prev, next)
}

// Cancel stops the task. Responses that arrive afterwards are discarded.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Task) Snapshot() liveclass.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

func (t *Task) Class() liveclass.LiveClass {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.class
}

// Active reports whether the task still has polls ahead of it.
func (t *Task) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.cancelled && !t.done
}

func snapshotFromResponse(classID string, r lmsapi.StatusResponse, source liveclass.SnapshotSource, at time.Time) liveclass.Snapshot {
	snap := liveclass.Snapshot{
		ClassID:   classID,
		Status:    liveclass.ParseStatus(r.Status),
		CanDelete: r.CanDelete,
		CanEdit:   r.CanEdit,
		Message:   r.Message,
		Source:    source,
		CheckedAt: at,
	}
	if snap.Status == liveclass.StatusLive {
		snap.CanDelete = false
		snap.CanEdit = false
	}
	return snap
}
