// internal/service/liveclass/sinks.go
package liveclass

import (
	"context"
	"time"

	"lms-admin-service/internal/domain/liveclass"
	wstypes "lms-admin-service/internal/domain/websocket"

	"go.uber.org/zap"
)

const sinkTimeout = 3 * time.Second

// SnapshotStore persists the latest snapshot per class.
type SnapshotStore interface {
	Put(ctx context.Context, snap liveclass.Snapshot) error
	Get(ctx context.Context, classID string) (liveclass.Snapshot, error)
	Delete(ctx context.Context, classID string) error
}

type TransitionRepository interface {
	Create(ctx context.Context, t *liveclass.StatusTransition) error
	List(ctx context.Context, filters *liveclass.TransitionListFilters) ([]liveclass.StatusTransition, int64, error)
}

// Broadcaster pushes snapshots to connected dashboards.
type Broadcaster interface {
	BroadcastLiveClassStatus(class liveclass.LiveClass, snap liveclass.Snapshot)
}

// Alerter raises operator-facing alerts.
type Alerter interface {
	BroadcastSystemAlert(alert *wstypes.SystemAlertData)
}

// changed ignores CheckedAt so repeated identical polls stay quiet.
func changed(prev, next liveclass.Snapshot) bool {
	return prev.Status != next.Status ||
		prev.CanDelete != next.CanDelete ||
		prev.CanEdit != next.CanEdit ||
		prev.Message != next.Message ||
		prev.Source != next.Source
}

type BroadcastSink struct {
	b Broadcaster
}

func NewBroadcastSink(b Broadcaster) *BroadcastSink {
	return &BroadcastSink{b: b}
}

func (s *BroadcastSink) SnapshotChanged(class liveclass.LiveClass, prev, next liveclass.Snapshot) {
	if changed(prev, next) {
		s.b.BroadcastLiveClassStatus(class, next)
	}
}

type CacheSink struct {
	store  SnapshotStore
	logger *zap.Logger
}

func NewCacheSink(store SnapshotStore, logger *zap.Logger) *CacheSink {
	return &CacheSink{store: store, logger: logger}
}

func (s *CacheSink) SnapshotChanged(class liveclass.LiveClass, prev, next liveclass.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	if err := s.store.Put(ctx, next); err != nil {
		s.logger.Warn("failed to cache live class snapshot",
			zap.String("class_id", next.ClassID),
			zap.Error(err))
	}
}

// TransitionSink records status changes confirmed by the server. Optimistic
// and initial local snapshots are not recorded.
type TransitionSink struct {
	repo   TransitionRepository
	logger *zap.Logger
}

func NewTransitionSink(repo TransitionRepository, logger *zap.Logger) *TransitionSink {
	return &TransitionSink{repo: repo, logger: logger}
}

func (s *TransitionSink) SnapshotChanged(class liveclass.LiveClass, prev, next liveclass.Snapshot) {
	if next.Source != liveclass.SourcePoll || prev.Status == "" || prev.Status == next.Status {
		return
	}

	t := &liveclass.StatusTransition{
		ClassID:    next.ClassID,
		CourseIDs:  class.CourseIDs,
		FromStatus: prev.Status,
		ToStatus:   next.Status,
		Source:     next.Source,
		Message:    next.Message,
	}
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, t); err != nil {
		s.logger.Error("failed to record live class transition",
			zap.String("class_id", next.ClassID),
			zap.String("from", string(prev.Status)),
			zap.String("to", string(next.Status)),
			zap.Error(err))
	}
}
