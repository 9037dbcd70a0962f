package liveclass

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lms-admin-service/internal/domain/liveclass"
	"lms-admin-service/internal/repository/lmsapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type scriptedFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	answer func(classID string, call int) (lmsapi.StatusResponse, error)
}

func newScriptedFetcher(answer func(string, int) (lmsapi.StatusResponse, error)) *scriptedFetcher {
	return &scriptedFetcher{calls: map[string]int{}, answer: answer}
}

func (f *scriptedFetcher) LiveClassStatus(ctx context.Context, classID string) (lmsapi.StatusResponse, error) {
	f.mu.Lock()
	f.calls[classID]++
	n := f.calls[classID]
	answer := f.answer
	f.mu.Unlock()
	return answer(classID, n)
}

func (f *scriptedFetcher) Calls(classID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[classID]
}

func always(status string) func(string, int) (lmsapi.StatusResponse, error) {
	return func(string, int) (lmsapi.StatusResponse, error) {
		return lmsapi.StatusResponse{Status: status, CanDelete: true, CanEdit: true}, nil
	}
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []liveclass.Snapshot
}

func (r *recordingSink) SnapshotChanged(class liveclass.LiveClass, prev, next liveclass.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, next)
}

func (r *recordingSink) Last() liveclass.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func testConfig() PollerConfig {
	return PollerConfig{
		ProtectionWindow: 2 * time.Minute,
		LiveInterval:     10 * time.Second,
		StartingInterval: 20 * time.Second,
		UpcomingInterval: 60 * time.Second,
		PollTimeout:      time.Second,
	}
}

func newTestPoller(f StatusFetcher, sinks ...StatusSink) (*Poller, *manualClock) {
	clock := newManualClock(epoch)
	return NewPoller(f, clock, testConfig(), zap.NewNop(), sinks...), clock
}

func upcomingClass(id string, createdAt time.Time) liveclass.LiveClass {
	return liveclass.LiveClass{
		ID:        id,
		Title:     "Algebra",
		CourseIDs: []string{"c1"},
		StartTime: epoch.Add(time.Hour),
		Platform:  liveclass.PlatformMeritHub,
		Status:    liveclass.StatusScheduled,
		CreatedAt: createdAt,
	}
}

func TestTerminalClassIsNeverPolled(t *testing.T) {
	for _, status := range []liveclass.Status{liveclass.StatusCompleted, liveclass.StatusExpired} {
		f := newScriptedFetcher(always("scheduled"))
		p, clock := newTestPoller(f)

		class := upcomingClass("lc-"+string(status), epoch.Add(-time.Hour))
		class.Status = status
		task := p.Watch(class)

		clock.Advance(24 * time.Hour)

		assert.Zero(t, f.Calls(class.ID))
		assert.False(t, task.Active())
		snap := task.Snapshot()
		assert.True(t, snap.CanDelete)
		assert.True(t, snap.Deletable())
		assert.Equal(t, liveclass.SourceLocal, snap.Source)
		assert.Zero(t, clock.Pending())
	}
}

func TestProtectionWindowDelaysFirstPoll(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	p.Watch(upcomingClass("lc-1", epoch))

	clock.Advance(2*time.Minute - time.Second)
	assert.Zero(t, f.Calls("lc-1"))

	clock.Advance(time.Second)
	assert.Equal(t, 1, f.Calls("lc-1"))

	// Upcoming classes are polled every minute.
	clock.Advance(59 * time.Second)
	assert.Equal(t, 1, f.Calls("lc-1"))
	clock.Advance(time.Second)
	assert.Equal(t, 2, f.Calls("lc-1"))
}

func TestOldClassIsPolledImmediately(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	p.Watch(upcomingClass("lc-1", epoch.Add(-10*time.Minute)))

	clock.Advance(0)
	assert.Equal(t, 1, f.Calls("lc-1"))
}

func TestIntervalFollowsState(t *testing.T) {
	t.Run("start time passed", func(t *testing.T) {
		f := newScriptedFetcher(always("scheduled"))
		p, clock := newTestPoller(f)
		class := upcomingClass("lc-1", epoch.Add(-time.Hour))
		class.StartTime = epoch.Add(-time.Minute)
		p.Watch(class)

		clock.Advance(0)
		require.Equal(t, 1, f.Calls("lc-1"))
		clock.Advance(20 * time.Second)
		assert.Equal(t, 2, f.Calls("lc-1"))
		clock.Advance(40 * time.Second)
		assert.Equal(t, 4, f.Calls("lc-1"))
	})

	t.Run("live", func(t *testing.T) {
		f := newScriptedFetcher(always("Live"))
		p, clock := newTestPoller(f)
		p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))

		clock.Advance(0)
		require.Equal(t, 1, f.Calls("lc-1"))
		clock.Advance(30 * time.Second)
		assert.Equal(t, 4, f.Calls("lc-1"))
	})
}

func TestLiveStatusDisablesActions(t *testing.T) {
	f := newScriptedFetcher(always("ongoing"))
	p, clock := newTestPoller(f)
	task := p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))

	clock.Advance(0)

	snap := task.Snapshot()
	assert.Equal(t, liveclass.StatusLive, snap.Status)
	assert.False(t, snap.CanDelete)
	assert.False(t, snap.CanEdit)
	assert.Equal(t, liveclass.SourcePoll, snap.Source)
}

func TestServerTerminalStatusStopsPolling(t *testing.T) {
	f := newScriptedFetcher(func(_ string, call int) (lmsapi.StatusResponse, error) {
		if call == 1 {
			return lmsapi.StatusResponse{Status: "live"}, nil
		}
		return lmsapi.StatusResponse{Status: "completed", CanDelete: true}, nil
	})
	p, clock := newTestPoller(f)
	task := p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))

	clock.Advance(0)
	clock.Advance(10 * time.Second)
	require.Equal(t, 2, f.Calls("lc-1"))

	clock.Advance(time.Hour)
	assert.Equal(t, 2, f.Calls("lc-1"))
	assert.False(t, task.Active())
	assert.True(t, task.Snapshot().Deletable())
}

func TestCancelStopsPolling(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	p.Watch(upcomingClass("lc-1", epoch))

	assert.True(t, p.Unwatch("lc-1"))
	clock.Advance(time.Hour)

	assert.Zero(t, f.Calls("lc-1"))
	assert.Zero(t, p.Len())
	assert.False(t, p.Unwatch("lc-1"))
}

func TestResponseAfterCancelIsDropped(t *testing.T) {
	var task *Task
	f := newScriptedFetcher(func(string, int) (lmsapi.StatusResponse, error) {
		// The card is closed while the request is in flight.
		task.Cancel()
		return lmsapi.StatusResponse{Status: "live"}, nil
	})
	sink := &recordingSink{}
	p, clock := newTestPoller(f, sink)
	task = p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))

	clock.Advance(0)
	clock.Advance(time.Hour)

	assert.Equal(t, 1, f.Calls("lc-1"))
	assert.Equal(t, liveclass.StatusScheduled, task.Snapshot().Status)
	assert.Equal(t, liveclass.SourceLocal, sink.Last().Source)
}

func TestPollErrorKeepsSnapshotAndRetries(t *testing.T) {
	f := newScriptedFetcher(func(_ string, call int) (lmsapi.StatusResponse, error) {
		if call == 1 {
			return lmsapi.StatusResponse{}, errors.New("timeout")
		}
		return lmsapi.StatusResponse{Status: "scheduled", CanEdit: true}, nil
	})
	p, clock := newTestPoller(f)
	task := p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))

	clock.Advance(0)
	assert.Equal(t, liveclass.SourceLocal, task.Snapshot().Source)

	clock.Advance(time.Minute)
	assert.Equal(t, 2, f.Calls("lc-1"))
	assert.True(t, task.Snapshot().CanEdit)
}

func TestOptimisticSnapshotIsOverwrittenByNextPoll(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	task := p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))
	clock.Advance(0)
	require.Equal(t, 1, f.Calls("lc-1"))

	task.ApplyOptimistic(liveclass.Snapshot{ClassID: "lc-1", Status: liveclass.StatusLive})
	assert.True(t, task.Snapshot().Optimistic())
	assert.Equal(t, liveclass.StatusLive, task.Snapshot().Status)

	// The next poll is pulled in to the live interval.
	clock.Advance(10 * time.Second)
	assert.Equal(t, 2, f.Calls("lc-1"))
	snap := task.Snapshot()
	assert.False(t, snap.Optimistic())
	assert.Equal(t, liveclass.StatusScheduled, snap.Status)
}

func TestAppliedLiveStatusSwitchesToLiveCadence(t *testing.T) {
	f := newScriptedFetcher(func(_ string, call int) (lmsapi.StatusResponse, error) {
		if call == 1 {
			return lmsapi.StatusResponse{Status: "scheduled", CanDelete: true, CanEdit: true}, nil
		}
		return lmsapi.StatusResponse{Status: "live"}, nil
	})
	p, clock := newTestPoller(f)
	task := p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))
	clock.Advance(0)
	require.Equal(t, 1, f.Calls("lc-1"))

	// A re-check reports live; the upcoming 60s timer gives way to 10s.
	clock.Advance(5 * time.Second)
	task.Apply(snapshotFromResponse("lc-1", lmsapi.StatusResponse{Status: "live"}, liveclass.SourcePoll, clock.Now()))

	clock.Advance(9 * time.Second)
	assert.Equal(t, 1, f.Calls("lc-1"))
	clock.Advance(time.Second)
	assert.Equal(t, 2, f.Calls("lc-1"))
	clock.Advance(10 * time.Second)
	assert.Equal(t, 3, f.Calls("lc-1"))
}

func TestAppliedStatusAfterStartUsesStartingCadence(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	class := upcomingClass("lc-1", epoch.Add(-time.Hour))
	class.StartTime = epoch.Add(30 * time.Second)
	task := p.Watch(class)
	clock.Advance(0)
	require.Equal(t, 1, f.Calls("lc-1"))

	// Re-checked once the start time passed: next poll 20s later, not at 60s.
	clock.Advance(35 * time.Second)
	task.Apply(snapshotFromResponse("lc-1", lmsapi.StatusResponse{Status: "scheduled"}, liveclass.SourcePoll, clock.Now()))
	clock.Advance(19 * time.Second)
	assert.Equal(t, 1, f.Calls("lc-1"))
	clock.Advance(time.Second)
	assert.Equal(t, 2, f.Calls("lc-1"))
}

func TestAppliedStatusInsideProtectionWindowKeepsSchedule(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	task := p.Watch(upcomingClass("lc-1", epoch))

	clock.Advance(30 * time.Second)
	task.Apply(snapshotFromResponse("lc-1", lmsapi.StatusResponse{Status: "live"}, liveclass.SourcePoll, clock.Now()))
	clock.Advance(time.Minute)
	assert.Zero(t, f.Calls("lc-1"))
	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, f.Calls("lc-1"))
}

func TestOptimisticInsideProtectionWindowKeepsSchedule(t *testing.T) {
	f := newScriptedFetcher(always("live"))
	p, clock := newTestPoller(f)
	task := p.Watch(upcomingClass("lc-1", epoch))

	task.ApplyOptimistic(liveclass.Snapshot{ClassID: "lc-1", Status: liveclass.StatusLive})
	clock.Advance(time.Minute)
	assert.Zero(t, f.Calls("lc-1"))
	assert.True(t, task.Snapshot().Optimistic())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, f.Calls("lc-1"))
	assert.False(t, task.Snapshot().Optimistic())
}

func TestWatchKeepsOrRestartsTask(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, _ := newTestPoller(f)
	class := upcomingClass("lc-1", epoch)

	first := p.Watch(class)
	class.Title = "Renamed"
	same := p.Watch(class)
	assert.Same(t, first, same)
	assert.Equal(t, "Renamed", same.Class().Title)

	class.StartTime = class.StartTime.Add(time.Hour)
	restarted := p.Watch(class)
	assert.NotSame(t, first, restarted)
	assert.False(t, first.Active())
	assert.True(t, restarted.Active())
	assert.Equal(t, 1, p.Len())
}

func TestWatchWithTerminalStatusStopsExistingTask(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	class := upcomingClass("lc-1", epoch.Add(-time.Hour))
	task := p.Watch(class)

	class.Status = liveclass.StatusCompleted
	p.Watch(class)
	clock.Advance(time.Hour)

	assert.Zero(t, f.Calls("lc-1"))
	assert.False(t, task.Active())
	assert.True(t, task.Snapshot().Deletable())
}

func TestSyncReconcilesWatchedSet(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	a := upcomingClass("a", epoch)
	b := upcomingClass("b", epoch)
	p.Sync([]liveclass.LiveClass{a, b})
	require.Equal(t, 2, p.Len())

	c := upcomingClass("c", epoch)
	p.Sync([]liveclass.LiveClass{b, c})
	assert.Equal(t, 2, p.Len())
	_, ok := p.Task("a")
	assert.False(t, ok)

	clock.Advance(3 * time.Minute)
	assert.Zero(t, f.Calls("a"))
	assert.Equal(t, 2, f.Calls("b"))
	assert.Equal(t, 2, f.Calls("c"))
}

func TestStopCancelsEverything(t *testing.T) {
	f := newScriptedFetcher(always("scheduled"))
	p, clock := newTestPoller(f)
	p.Sync([]liveclass.LiveClass{upcomingClass("a", epoch), upcomingClass("b", epoch)})

	p.Stop()
	clock.Advance(time.Hour)

	assert.Zero(t, p.Len())
	assert.Zero(t, f.Calls("a"))
	assert.Zero(t, f.Calls("b"))
}

func TestSinksReceiveSnapshots(t *testing.T) {
	f := newScriptedFetcher(always("live"))
	sink := &recordingSink{}
	p, clock := newTestPoller(f, sink)
	p.Watch(upcomingClass("lc-1", epoch.Add(-time.Hour)))

	clock.Advance(0)

	require.Len(t, sink.snaps, 2)
	assert.Equal(t, liveclass.SourceLocal, sink.snaps[0].Source)
	assert.Equal(t, liveclass.StatusLive, sink.snaps[1].Status)
}
