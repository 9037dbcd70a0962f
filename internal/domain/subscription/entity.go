// internal/domain/subscription/entity.go
package subscription

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validity is one duration tier of a course subscription.
type Validity struct {
	ID              string          `json:"id" binding:"required"`
	DurationMonths  int             `json:"duration_months" binding:"required,gt=0"`
	BasePrice       decimal.Decimal `json:"base_price" binding:"gte=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent" binding:"gte=0,lte=100"`
}

// PlanLabel is the installment plan type a validity maps to, e.g. "6 months".
func (v Validity) PlanLabel() string {
	return fmt.Sprintf("%d months", v.DurationMonths)
}

type Feature struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description,omitempty"`
}

type Subscription struct {
	ID              string          `json:"id"`
	CourseID        string          `json:"course_id"`
	Name            string          `json:"name"`
	Validities      []Validity      `json:"validities" binding:"required,min=1,dive"`
	GSTPercent      decimal.Decimal `json:"gst_percent"`
	HandlingPercent decimal.Decimal `json:"handling_percent"`
	Features        []Feature       `json:"features,omitempty" binding:"omitempty,dive"`
}
