// internal/domain/installment/dto.go
package installment

import (
	"lms-admin-service/internal/domain/subscription"

	"github.com/shopspring/decimal"
)

type OpenEditorRequest struct {
	Subscription subscription.Subscription `json:"subscription" binding:"required"`
}

type UpdateRowRequest struct {
	NumberOfInstallments int `json:"number_of_installments" binding:"required,min=1,max=24"`
}

// CreatePlanPayload is sent once per validity on submit.
type CreatePlanPayload struct {
	CourseID             string          `json:"course_id"`
	PlanType             string          `json:"plan_type"`
	ValidityID           string          `json:"validity_id"`
	NumberOfInstallments int             `json:"number_of_installments"`
	Price                decimal.Decimal `json:"price"`
	Discount             decimal.Decimal `json:"discount"`
}

type RowResult struct {
	ValidityID string `json:"validity_id"`
	PlanType   string `json:"plan_type"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type SubmitResult struct {
	SessionID string      `json:"session_id"`
	CourseID  string      `json:"course_id"`
	Results   []RowResult `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type SubmissionListFilters struct {
	CourseID string `form:"course_id"`
	Status   string `form:"status" binding:"omitempty,oneof=succeeded failed"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type SubmissionListResponse struct {
	Submissions []Submission `json:"submissions"`
	Total       int64        `json:"total"`
	Page        int          `json:"page"`
	PageSize    int          `json:"page_size"`
	TotalPages  int          `json:"total_pages"`
}
