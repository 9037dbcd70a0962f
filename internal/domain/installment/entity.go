// internal/domain/installment/entity.go
package installment

import (
	"database/sql"
	"time"

	"lms-admin-service/internal/pkg/pricing"

	"github.com/shopspring/decimal"
)

// MatchStrategy decides how persisted plans are paired with validities.
type MatchStrategy string

const (
	// MatchByLabel pairs on a case-insensitive "<N> months" plan type.
	MatchByLabel MatchStrategy = "label"
	// MatchByValidityID pairs on the plan's validity id, falling back to the label
	// for plans that were saved without one.
	MatchByValidityID MatchStrategy = "validity_id"
)

type SubmissionStatus string

const (
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Plan is an installment configuration persisted by the LMS API.
type Plan struct {
	ID                   string          `json:"id,omitempty"`
	CourseID             string          `json:"course_id"`
	ValidityID           string          `json:"validity_id,omitempty"`
	PlanType             string          `json:"plan_type"`
	NumberOfInstallments int             `json:"number_of_installments"`
	Price                decimal.Decimal `json:"price"`
	Discount             decimal.Decimal `json:"discount"`
}

// EditorRow is the editable configuration of one validity.
type EditorRow struct {
	ValidityID           string          `json:"validity_id"`
	ValidityMonths       int             `json:"validity_months"`
	PlanType             string          `json:"plan_type"`
	Price                decimal.Decimal `json:"price"`
	Discount             decimal.Decimal `json:"discount"`
	NumberOfInstallments int             `json:"number_of_installments"`
	ExistingPlanID       string          `json:"existing_plan_id,omitempty"`
	Quote                pricing.Quote   `json:"quote"`
}

// EditorSession is the working copy an admin edits before submitting.
type EditorSession struct {
	ID              string          `json:"id"`
	CourseID        string          `json:"course_id"`
	SubscriptionID  string          `json:"subscription_id,omitempty"`
	GSTPercent      decimal.Decimal `json:"gst_percent"`
	HandlingPercent decimal.Decimal `json:"handling_percent"`
	Rows            []EditorRow     `json:"rows"`
	Warning         string          `json:"warning,omitempty"`
	CreatedBy       int64           `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Row returns the row for validityID.
func (s *EditorSession) Row(validityID string) (*EditorRow, bool) {
	for i := range s.Rows {
		if s.Rows[i].ValidityID == validityID {
			return &s.Rows[i], true
		}
	}
	return nil, false
}

// Submission is one audited create-installment call.
type Submission struct {
	ID                   int64            `json:"id" db:"id"`
	SessionID            string           `json:"session_id" db:"session_id"`
	CourseID             string           `json:"course_id" db:"course_id"`
	ValidityID           string           `json:"validity_id" db:"validity_id"`
	PlanType             string           `json:"plan_type" db:"plan_type"`
	NumberOfInstallments int              `json:"number_of_installments" db:"number_of_installments"`
	Price                decimal.Decimal  `json:"price" db:"price"`
	Discount             decimal.Decimal  `json:"discount" db:"discount"`
	Status               SubmissionStatus `json:"status" db:"status"`
	FailureReason        sql.NullString   `json:"failure_reason,omitempty" db:"failure_reason"`
	SubmittedBy          sql.NullInt64    `json:"submitted_by,omitempty" db:"submitted_by"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
}
