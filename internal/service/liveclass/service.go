// internal/service/liveclass/service.go
package liveclass

import (
	"context"
	"fmt"
	"math"
	"strings"

	"lms-admin-service/internal/domain/liveclass"
	wstypes "lms-admin-service/internal/domain/websocket"
	xerrors "lms-admin-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// LiveClassAPI is the part of the LMS API this service needs.
type LiveClassAPI interface {
	StatusFetcher
	ListUpcomingLiveClasses(ctx context.Context) ([]liveclass.LiveClass, error)
	ScheduleLiveClass(ctx context.Context, req liveclass.ScheduleRequest) (liveclass.LiveClass, error)
	EditLiveClass(ctx context.Context, classID string, req liveclass.UpdateRequest) (liveclass.LiveClass, error)
	DeleteLiveClass(ctx context.Context, classID string) error
}

type Service struct {
	api              LiveClassAPI
	poller           *Poller
	cache            SnapshotStore
	transitions      TransitionRepository
	meritHubClientID string
	alerter          Alerter
	logger           *zap.Logger
}

func NewService(api LiveClassAPI, poller *Poller, cache SnapshotStore, transitions TransitionRepository, meritHubClientID string, logger *zap.Logger) *Service {
	return &Service{
		api:              api,
		poller:           poller,
		cache:            cache,
		transitions:      transitions,
		meritHubClientID: meritHubClientID,
		logger:           logger,
	}
}

// SetAlerter makes forced deletions visible on the system channel.
func (s *Service) SetAlerter(a Alerter) {
	s.alerter = a
}

// ListUpcoming fetches the dashboard classes and makes them the watched set.
func (s *Service) ListUpcoming(ctx context.Context) ([]liveclass.Card, error) {
	classes, err := s.api.ListUpcomingLiveClasses(ctx)
	if err != nil {
		s.logger.Error("failed to list upcoming live classes", zap.Error(err))
		return nil, err
	}

	s.poller.Sync(classes)

	cards := make([]liveclass.Card, 0, len(classes))
	for _, c := range classes {
		cards = append(cards, s.card(c))
	}
	return cards, nil
}

func (s *Service) card(c liveclass.LiveClass) liveclass.Card {
	if t, ok := s.poller.Task(c.ID); ok {
		return liveclass.Card{Class: t.Class(), Snapshot: t.Snapshot()}
	}
	return liveclass.Card{Class: c, Snapshot: liveclass.Snapshot{ClassID: c.ID, Status: c.Status, Source: liveclass.SourceLocal}}
}

// Schedule creates a class upstream and starts watching it.
func (s *Service) Schedule(ctx context.Context, req liveclass.ScheduleRequest) (*liveclass.Card, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validateSchedule(req); err != nil {
		return nil, err
	}
	if req.Platform == "" {
		req.Platform = liveclass.PlatformMeritHub
	}

	created, err := s.api.ScheduleLiveClass(ctx, req)
	if err != nil {
		s.logger.Error("failed to schedule live class", zap.String("title", req.Title), zap.Error(err))
		return nil, err
	}

	// Fill in what the upstream did not echo back.
	if created.Title == "" {
		created.Title = req.Title
	}
	if created.UserID == "" {
		created.UserID = req.UserID
	}
	if len(created.CourseIDs) == 0 {
		created.CourseIDs = req.CourseIDs
	}
	if created.StartTime.IsZero() {
		created.StartTime = req.StartTime
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.poller.clock.Now()
	}

	if created.ID == "" {
		s.logger.Warn("scheduled live class has no id; it will appear on the next refresh")
		card := liveclass.Card{Class: created, Snapshot: liveclass.Snapshot{Status: created.Status, Source: liveclass.SourceLocal}}
		return &card, nil
	}

	s.poller.Watch(created)
	s.logger.Info("live class scheduled",
		zap.String("class_id", created.ID),
		zap.Time("start_time", created.StartTime),
		zap.String("platform", string(created.Platform)))

	card := s.card(created)
	return &card, nil
}

// Edit updates a class after confirming with the server that it may be edited.
func (s *Service) Edit(ctx context.Context, classID string, req liveclass.UpdateRequest, opts liveclass.EditOptions) (*liveclass.Card, error) {
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", xerrors.ErrInvalidInput)
		}
		req.Title = &trimmed
	}
	if req.CourseIDs != nil && len(req.CourseIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one course is required", xerrors.ErrInvalidInput)
	}
	if req.StartTime != nil && req.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", xerrors.ErrInvalidInput)
	}

	snap, checkErr := s.recheck(ctx, classID)
	switch {
	case checkErr != nil && !opts.Force:
		s.logger.Warn("status re-check failed before edit", zap.String("class_id", classID), zap.Error(checkErr))
		return nil, fmt.Errorf("%w: %v", xerrors.ErrStatusUnverified, checkErr)
	case checkErr != nil:
		if known, ok := s.knownSnapshot(ctx, classID); ok && known.Status == liveclass.StatusLive {
			return nil, fmt.Errorf("%w: class is live", xerrors.ErrNotEditable)
		}
		s.logger.Warn("editing live class without status confirmation", zap.String("class_id", classID), zap.Error(checkErr))
	case !snap.Editable():
		return nil, fmt.Errorf("%w: %s", xerrors.ErrNotEditable, reason(snap))
	}

	updated, err := s.api.EditLiveClass(ctx, classID, req)
	if err != nil {
		s.logger.Error("failed to edit live class", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	merged := s.mergeEdit(classID, req, updated)
	// Watch restarts polling when the start time changed.
	s.poller.Watch(merged)

	if checkErr != nil {
		s.alertUnverified("edited", classID, checkErr)
	}

	s.logger.Info("live class edited", zap.String("class_id", classID), zap.Bool("forced", checkErr != nil))
	card := s.card(merged)
	return &card, nil
}

func (s *Service) mergeEdit(classID string, req liveclass.UpdateRequest, updated liveclass.LiveClass) liveclass.LiveClass {
	base := liveclass.LiveClass{ID: classID}
	if t, ok := s.poller.Task(classID); ok {
		base = t.Class()
	}
	if req.Title != nil {
		base.Title = *req.Title
	}
	if req.CourseIDs != nil {
		base.CourseIDs = req.CourseIDs
	}
	if req.StartTime != nil {
		base.StartTime = *req.StartTime
	}
	if req.Platform != nil {
		base.Platform = *req.Platform
	}
	if updated.ID == "" {
		return base
	}
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = base.CreatedAt
	}
	if updated.JoinURL == "" {
		updated.JoinURL = base.JoinURL
	}
	if updated.InstructorLink == "" {
		updated.InstructorLink = base.InstructorLink
	}
	return updated
}

// Delete removes a class. The admin must confirm, and the server must still
// allow deletion at the time of the request. Force skips the check only when
// the server could not be reached.
func (s *Service) Delete(ctx context.Context, classID string, opts liveclass.DeleteOptions) error {
	if !opts.Confirmed {
		return xerrors.ErrConfirmationRequired
	}

	snap, checkErr := s.recheck(ctx, classID)
	switch {
	case checkErr != nil && !opts.Force:
		s.logger.Warn("status re-check failed before delete", zap.String("class_id", classID), zap.Error(checkErr))
		return fmt.Errorf("%w: %v", xerrors.ErrStatusUnverified, checkErr)
	case checkErr != nil:
		if known, ok := s.knownSnapshot(ctx, classID); ok && known.Status == liveclass.StatusLive {
			return fmt.Errorf("%w: class is live", xerrors.ErrNotDeletable)
		}
		s.logger.Warn("deleting live class without status confirmation", zap.String("class_id", classID), zap.Error(checkErr))
	case !snap.Deletable():
		return fmt.Errorf("%w: %s", xerrors.ErrNotDeletable, reason(snap))
	}

	if err := s.api.DeleteLiveClass(ctx, classID); err != nil {
		s.logger.Error("failed to delete live class", zap.String("class_id", classID), zap.Error(err))
		return err
	}

	s.poller.Unwatch(classID)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, classID); err != nil {
			s.logger.Warn("failed to drop cached snapshot", zap.String("class_id", classID), zap.Error(err))
		}
	}

	forced := checkErr != nil
	if forced {
		s.alertUnverified("deleted", classID, checkErr)
	}

	s.logger.Info("live class deleted", zap.String("class_id", classID), zap.Bool("forced", forced))
	return nil
}

// GoLive returns the instructor's join link and marks the class live locally
// until the next poll confirms or corrects it.
func (s *Service) GoLive(ctx context.Context, classID string) (*liveclass.GoLiveResult, error) {
	class, err := s.findClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	task := s.poller.Watch(class)
	if current := task.Snapshot(); current.Status.Terminal() {
		return nil, fmt.Errorf("%w: class is %s", xerrors.ErrConflict, current.Status)
	}

	link := JoinURL(task.Class(), s.meritHubClientID)
	if link == "" {
		return nil, xerrors.ErrNoJoinLink
	}

	task.ApplyOptimistic(liveclass.Snapshot{
		ClassID:   classID,
		Status:    liveclass.StatusLive,
		Source:    liveclass.SourceOptimistic,
		CheckedAt: s.poller.clock.Now(),
	})

	s.logger.Info("live class started", zap.String("class_id", classID), zap.String("platform", string(class.Platform)))
	return &liveclass.GoLiveResult{ClassID: classID, JoinURL: link, Snapshot: task.Snapshot()}, nil
}

// Status returns the latest known snapshot, falling back to the cache for
// classes that are not being watched.
func (s *Service) Status(ctx context.Context, classID string) (liveclass.Snapshot, error) {
	if snap, ok := s.knownSnapshot(ctx, classID); ok {
		return snap, nil
	}
	return liveclass.Snapshot{}, fmt.Errorf("%w: live class %s is not watched", xerrors.ErrNotFound, classID)
}

// alertUnverified reports a mutation that went ahead without a status check.
func (s *Service) alertUnverified(action, classID string, checkErr error) {
	if s.alerter == nil {
		return
	}
	s.alerter.BroadcastSystemAlert(&wstypes.SystemAlertData{
		Severity: "warning",
		Title:    "Live class force-" + action,
		Message:  fmt.Sprintf("class %s was %s without a status check: %v", classID, action, checkErr),
	})
}

func (s *Service) knownSnapshot(ctx context.Context, classID string) (liveclass.Snapshot, bool) {
	if t, ok := s.poller.Task(classID); ok {
		return t.Snapshot(), true
	}
	if s.cache == nil {
		return liveclass.Snapshot{}, false
	}
	snap, err := s.cache.Get(ctx, classID)
	if err != nil {
		return liveclass.Snapshot{}, false
	}
	return snap, true
}

// Watch starts polling a class shown on the dashboard.
func (s *Service) Watch(ctx context.Context, classID string) (*liveclass.Card, error) {
	class, err := s.findClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	s.poller.Watch(class)
	card := s.card(class)
	return &card, nil
}

// Unwatch stops polling a class whose card was removed.
func (s *Service) Unwatch(classID string) bool {
	return s.poller.Unwatch(classID)
}

func (s *Service) ListTransitions(ctx context.Context, filters *liveclass.TransitionListFilters) (*liveclass.TransitionListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	transitions, total, err := s.transitions.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	return &liveclass.TransitionListResponse{
		Transitions: transitions,
		Total:       total,
		Page:        filters.Page,
		PageSize:    filters.PageSize,
		TotalPages:  int(math.Ceil(float64(total) / float64(filters.PageSize))),
	}, nil
}

// recheck asks the server for the status now and applies it to the watched task.
func (s *Service) recheck(ctx context.Context, classID string) (liveclass.Snapshot, error) {
	resp, err := s.api.LiveClassStatus(ctx, classID)
	if err != nil {
		return liveclass.Snapshot{}, err
	}
	snap := snapshotFromResponse(classID, resp, liveclass.SourcePoll, s.poller.clock.Now())
	if t, ok := s.poller.Task(classID); ok {
		t.Apply(snap)
	}
	return snap, nil
}

func (s *Service) findClass(ctx context.Context, classID string) (liveclass.LiveClass, error) {
	if t, ok := s.poller.Task(classID); ok {
		return t.Class(), nil
	}

	classes, err := s.api.ListUpcomingLiveClasses(ctx)
	if err != nil {
		return liveclass.LiveClass{}, err
	}
	for _, c := range classes {
		if c.ID == classID {
			return c, nil
		}
	}
	return liveclass.LiveClass{}, fmt.Errorf("%w: live class %s", xerrors.ErrNotFound, classID)
}

func reason(snap liveclass.Snapshot) string {
	if snap.Message != "" {
		return snap.Message
	}
	if snap.Status == liveclass.StatusLive {
		return "class is live"
	}
	return "not allowed by server"
}

func validateSchedule(req liveclass.ScheduleRequest) error {
	var missing []string
	if req.Title == "" {
		missing = append(missing, "title")
	}
	if req.UserID == "" {
		missing = append(missing, "user_id")
	}
	if len(req.CourseIDs) == 0 {
		missing = append(missing, "course_ids")
	}
	for _, id := range req.CourseIDs {
		if strings.TrimSpace(id) == "" {
			missing = append(missing, "course_ids")
			break
		}
	}
	if req.StartTime.IsZero() {
		missing = append(missing, "start_time")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", xerrors.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if req.Platform != "" && req.Platform != liveclass.PlatformZoom && req.Platform != liveclass.PlatformMeritHub {
		return fmt.Errorf("%w: unsupported platform %q", xerrors.ErrInvalidInput, req.Platform)
	}
	return nil
}
