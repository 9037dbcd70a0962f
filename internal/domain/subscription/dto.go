// internal/domain/subscription/dto.go
package subscription

import (
	"github.com/shopspring/decimal"
)

// QuoteRequest asks for the pricing breakdown of a single validity.
type QuoteRequest struct {
	BasePrice       decimal.Decimal `json:"base_price" binding:"gte=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent" binding:"gte=0,lte=100"`
	GSTPercent      decimal.Decimal `json:"gst_percent"`
	HandlingPercent decimal.Decimal `json:"handling_percent"`
	Installments    int             `json:"installments" binding:"required,min=1,max=24"`
}
