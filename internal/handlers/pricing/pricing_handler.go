// internal/handlers/pricing/pricing_handler.go
package pricing

import (
	"net/http"

	"lms-admin-service/internal/domain/subscription"
	"lms-admin-service/internal/pkg/pricing"
	"lms-admin-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct{}

func NewPricingHandler() *PricingHandler {
	return &PricingHandler{}
}

// Quote returns the price breakdown for one validity and installment count
func (h *PricingHandler) Quote(c *gin.Context) {
	var req subscription.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid quote request", err)
		return
	}

	if !pricing.ValidGSTPercent(req.GSTPercent) {
		response.ValidationError(c, "gst_percent must be one of 0, 5, 12, 18", nil)
		return
	}
	if !pricing.ValidHandlingPercent(req.HandlingPercent) {
		response.ValidationError(c, "handling_percent must be one of 0, 1, 1.5, 2, 2.5", nil)
		return
	}

	quote, err := pricing.Calculate(pricing.Input{
		BasePrice:       req.BasePrice,
		DiscountPercent: req.DiscountPercent,
		GSTPercent:      req.GSTPercent,
		HandlingPercent: req.HandlingPercent,
		Installments:    req.Installments,
	})
	if err != nil {
		response.FromError(c, "invalid pricing input", err)
		return
	}

	response.Success(c, http.StatusOK, "quote calculated", quote)
}
