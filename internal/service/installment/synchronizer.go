// internal/service/installment/synchronizer.go
package installment

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"lms-admin-service/internal/domain/installment"
	"lms-admin-service/internal/domain/subscription"
	xerrors "lms-admin-service/internal/pkg/errors"
	"lms-admin-service/internal/pkg/pricing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PlanAPI is the part of the LMS API the synchronizer needs.
type PlanAPI interface {
	ListInstallments(ctx context.Context, courseID string) ([]installment.Plan, error)
	CreateInstallment(ctx context.Context, p installment.CreatePlanPayload) error
}

type DraftStore interface {
	Save(ctx context.Context, session *installment.EditorSession) error
	Get(ctx context.Context, id string) (*installment.EditorSession, error)
	Delete(ctx context.Context, id string) error
}

type SubmissionLog interface {
	CreateBatch(ctx context.Context, submissions []*installment.Submission) error
	List(ctx context.Context, filters *installment.SubmissionListFilters) ([]installment.Submission, int64, error)
}

// Notifier tells connected dashboards that a course's plans changed.
type Notifier interface {
	BroadcastInstallmentUpdated(result *installment.SubmitResult)
}

type Options struct {
	MatchStrategy installment.MatchStrategy
	Concurrency   int
}

type Synchronizer struct {
	api      PlanAPI
	drafts   DraftStore
	audit    SubmissionLog
	notifier Notifier
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func NewSynchronizer(api PlanAPI, drafts DraftStore, audit SubmissionLog, notifier Notifier, opts Options, logger *zap.Logger) *Synchronizer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.MatchStrategy != installment.MatchByValidityID {
		opts.MatchStrategy = installment.MatchByLabel
	}
	return &Synchronizer{
		api:      api,
		drafts:   drafts,
		audit:    audit,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Initialize builds an editor session with one row per validity, merged with
// the plans already saved for the course.
func (s *Synchronizer) Initialize(ctx context.Context, courseID string, sub subscription.Subscription, createdBy int64) (*installment.EditorSession, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, fmt.Errorf("%w: course id is required", xerrors.ErrInvalidInput)
	}
	if err := validateSubscription(sub); err != nil {
		return nil, err
	}

	session := &installment.EditorSession{
		ID:              ulid.Make().String(),
		CourseID:        courseID,
		SubscriptionID:  sub.ID,
		GSTPercent:      sub.GSTPercent,
		HandlingPercent: sub.HandlingPercent,
		CreatedBy:       createdBy,
		CreatedAt:       s.now(),
	}
	session.UpdatedAt = session.CreatedAt

	existing, err := s.api.ListInstallments(ctx, courseID)
	if err != nil {
		// Editing still works from defaults.
		s.logger.Warn("failed to fetch existing installment plans",
			zap.String("course_id", courseID),
			zap.Error(err))
		session.Warning = "Existing installment plans could not be loaded; defaults are shown."
		existing = nil
	}

	rows := make([]installment.EditorRow, 0, len(sub.Validities))
	for _, v := range sub.Validities {
		row := installment.EditorRow{
			ValidityID:           v.ID,
			ValidityMonths:       v.DurationMonths,
			PlanType:             v.PlanLabel(),
			Price:                v.BasePrice,
			Discount:             v.DiscountPercent,
			NumberOfInstallments: 1,
		}
		if plan, ok := s.match(existing, v); ok {
			row.NumberOfInstallments = pricing.ClampInstallments(plan.NumberOfInstallments)
			row.ExistingPlanID = plan.ID
		}
		if err := s.quote(session, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	session.Rows = rows

	if err := s.drafts.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("installment editor opened",
		zap.String("session_id", session.ID),
		zap.String("course_id", courseID),
		zap.Int("rows", len(rows)),
		zap.Int("existing_plans", len(existing)))

	return session, nil
}

// match finds the saved plan for a validity according to the configured strategy.
func (s *Synchronizer) match(plans []installment.Plan, v subscription.Validity) (installment.Plan, bool) {
	if s.opts.MatchStrategy == installment.MatchByValidityID {
		for _, p := range plans {
			if p.ValidityID != "" && p.ValidityID == v.ID {
				return p, true
			}
		}
		label := v.PlanLabel()
		for _, p := range plans {
			if p.ValidityID == "" && strings.EqualFold(strings.TrimSpace(p.PlanType), label) {
				return p, true
			}
		}
		return installment.Plan{}, false
	}

	label := v.PlanLabel()
	for _, p := range plans {
		if strings.EqualFold(strings.TrimSpace(p.PlanType), label) {
			return p, true
		}
	}
	return installment.Plan{}, false
}

func (s *Synchronizer) quote(session *installment.EditorSession, row *installment.EditorRow) error {
	q, err := pricing.Calculate(pricing.Input{
		BasePrice:       row.Price,
		DiscountPercent: row.Discount,
		GSTPercent:      session.GSTPercent,
		HandlingPercent: session.HandlingPercent,
		Installments:    row.NumberOfInstallments,
	})
	if err != nil {
		return fmt.Errorf("validity %s: %w", row.ValidityID, err)
	}
	row.Quote = q
	return nil
}

func (s *Synchronizer) Get(ctx context.Context, sessionID string) (*installment.EditorSession, error) {
	return s.drafts.Get(ctx, sessionID)
}

// UpdateRow changes the installment count of one validity and recomputes its quote.
func (s *Synchronizer) UpdateRow(ctx context.Context, sessionID, validityID string, n int) (*installment.EditorSession, error) {
	if !pricing.ValidInstallments(n) {
		return nil, fmt.Errorf("%w: got %d", pricing.ErrInvalidInstallments, n)
	}

	session, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	row, ok := session.Row(validityID)
	if !ok {
		return nil, fmt.Errorf("%w: validity %s is not part of this editor", xerrors.ErrNotFound, validityID)
	}
	row.NumberOfInstallments = n
	if err := s.quote(session, row); err != nil {
		return nil, err
	}
	session.UpdatedAt = s.now()

	if err := s.drafts.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Discard drops the working copy without saving anything.
func (s *Synchronizer) Discard(ctx context.Context, sessionID string) error {
	return s.drafts.Delete(ctx, sessionID)
}

// Submit sends one create-installment request per row. Rows are independent:
// a failure does not roll back rows that were saved. When any row fails the
// working copy is kept and ErrPartialSubmit is returned with the full result.
func (s *Synchronizer) Submit(ctx context.Context, sessionID string, submittedBy int64) (*installment.SubmitResult, error) {
	session, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &installment.SubmitResult{
		SessionID: session.ID,
		CourseID:  session.CourseID,
		Results:   make([]installment.RowResult, len(session.Rows)),
	}
	audits := make([]*installment.Submission, len(session.Rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	var mu sync.Mutex
	for i, row := range session.Rows {
		i, row := i, row
		g.Go(func() error {
			payload := installment.CreatePlanPayload{
				CourseID:             session.CourseID,
				PlanType:             row.PlanType,
				ValidityID:           row.ValidityID,
				NumberOfInstallments: row.NumberOfInstallments,
				Price:                row.Price,
				Discount:             row.Discount,
			}
			callErr := s.api.CreateInstallment(gctx, payload)

			rr := installment.RowResult{ValidityID: row.ValidityID, PlanType: row.PlanType, Success: callErr == nil}
			audit := &installment.Submission{
				SessionID:            session.ID,
				CourseID:             session.CourseID,
				ValidityID:           row.ValidityID,
				PlanType:             row.PlanType,
				NumberOfInstallments: row.NumberOfInstallments,
				Price:                row.Price,
				Discount:             row.Discount,
				Status:               installment.SubmissionSucceeded,
				SubmittedBy:          sql.NullInt64{Int64: submittedBy, Valid: submittedBy != 0},
			}
			if callErr != nil {
				rr.Error = callErr.Error()
				audit.Status = installment.SubmissionFailed
				audit.FailureReason = sql.NullString{String: callErr.Error(), Valid: true}
				s.logger.Warn("installment plan save failed",
					zap.String("session_id", session.ID),
					zap.String("validity_id", row.ValidityID),
					zap.Error(callErr))
			}

			mu.Lock()
			result.Results[i] = rr
			audits[i] = audit
			mu.Unlock()
			// Row failures are collected, never returned, so the group does not cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	for _, rr := range result.Results {
		if rr.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	if s.audit != nil {
		if err := s.audit.CreateBatch(ctx, audits); err != nil {
			s.logger.Error("failed to record installment submissions",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}
	}

	if result.Failed > 0 {
		s.logger.Warn("installment submit partially failed",
			zap.String("session_id", session.ID),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed))
		return result, fmt.Errorf("%w: %d of %d failed", xerrors.ErrPartialSubmit, result.Failed, len(result.Results))
	}

	if err := s.drafts.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to discard submitted editor session", zap.String("session_id", session.ID), zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.BroadcastInstallmentUpdated(result)
	}

	s.logger.Info("installment plans submitted",
		zap.String("session_id", session.ID),
		zap.String("course_id", session.CourseID),
		zap.Int("rows", result.Succeeded))

	return result, nil
}

// ListSubmissions returns the audit history of submits.
func (s *Synchronizer) ListSubmissions(ctx context.Context, filters *installment.SubmissionListFilters) (*installment.SubmissionListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	submissions, total, err := s.audit.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	return &installment.SubmissionListResponse{
		Submissions: submissions,
		Total:       total,
		Page:        filters.Page,
		PageSize:    filters.PageSize,
		TotalPages:  int(math.Ceil(float64(total) / float64(filters.PageSize))),
	}, nil
}

func validateSubscription(sub subscription.Subscription) error {
	if len(sub.Validities) == 0 {
		return fmt.Errorf("%w: at least one validity is required", xerrors.ErrInvalidInput)
	}
	if !pricing.ValidGSTPercent(sub.GSTPercent) {
		return fmt.Errorf("%w: unsupported gst percent %s", xerrors.ErrInvalidInput, sub.GSTPercent)
	}
	if !pricing.ValidHandlingPercent(sub.HandlingPercent) {
		return fmt.Errorf("%w: unsupported handling percent %s", xerrors.ErrInvalidInput, sub.HandlingPercent)
	}
	for _, v := range sub.Validities {
		if v.ID == "" || v.DurationMonths <= 0 {
			return fmt.Errorf("%w: validity needs an id and a positive duration", xerrors.ErrInvalidInput)
		}
	}
	return nil
}
