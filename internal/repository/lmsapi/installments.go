// internal/repository/lmsapi/installments.go
package lmsapi

import (
	"context"
	"net/http"
	"net/url"

	"lms-admin-service/internal/domain/installment"

	"github.com/shopspring/decimal"
)

type planDTO struct {
	ID                   string          `json:"id"`
	MongoID              string          `json:"_id"`
	CourseID             string          `json:"courseId"`
	ValidityID           string          `json:"validityId"`
	PlanType             string          `json:"planType"`
	NumberOfInstallments int             `json:"numberOfInstallments"`
	Price                decimal.Decimal `json:"price"`
	Discount             decimal.Decimal `json:"discount"`
}

func (p planDTO) toDomain(courseID string) installment.Plan {
	id := p.ID
	if id == "" {
		id = p.MongoID
	}
	if p.CourseID != "" {
		courseID = p.CourseID
	}
	return installment.Plan{
		ID:                   id,
		CourseID:             courseID,
		ValidityID:           p.ValidityID,
		PlanType:             p.PlanType,
		NumberOfInstallments: p.NumberOfInstallments,
		Price:                p.Price,
		Discount:             p.Discount,
	}
}

type createInstallmentDTO struct {
	CourseID             string          `json:"courseId"`
	PlanType             string          `json:"planType"`
	ValidityID           string          `json:"validityId"`
	NumberOfInstallments int             `json:"numberOfInstallments"`
	Price                decimal.Decimal `json:"price"`
	Discount             decimal.Decimal `json:"discount"`
}

// ListInstallments returns the plans already saved for a course.
func (c *Client) ListInstallments(ctx context.Context, courseID string) ([]installment.Plan, error) {
	var out struct {
		Data []planDTO `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/installments/"+url.PathEscape(courseID), nil, &out); err != nil {
		return nil, err
	}

	plans := make([]installment.Plan, 0, len(out.Data))
	for _, p := range out.Data {
		plans = append(plans, p.toDomain(courseID))
	}
	return plans, nil
}

// CreateInstallment saves one plan. The upstream treats it as an upsert keyed on course and plan type.
func (c *Client) CreateInstallment(ctx context.Context, p installment.CreatePlanPayload) error {
	body := createInstallmentDTO{
		CourseID:             p.CourseID,
		PlanType:             p.PlanType,
		ValidityID:           p.ValidityID,
		NumberOfInstallments: p.NumberOfInstallments,
		Price:                p.Price,
		Discount:             p.Discount,
	}
	return c.do(ctx, http.MethodPost, "/admin/create-installment", body, nil)
}
