// internal/pkg/pricing/calculator.go
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	MinInstallments = 1
	MaxInstallments = 24
)

var (
	ErrInvalidInput        = errors.New("invalid pricing input")
	ErrInvalidInstallments = errors.New("installments must be at least 1")
)

var hundred = decimal.NewFromInt(100)

// Input holds everything needed to price one validity.
type Input struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	GSTPercent      decimal.Decimal `json:"gst_percent"`
	HandlingPercent decimal.Decimal `json:"handling_percent"`
	Installments    int             `json:"installments"`
}

// Quote is the derived pricing breakdown.
//
// FinalPrice is floored and PerInstallment is ceiled, so
// PerInstallment*Installments can exceed FinalPrice by Surplus (< Installments).
type Quote struct {
	Discounted     decimal.Decimal `json:"discounted"`
	GSTAmount      decimal.Decimal `json:"gst_amount"`
	HandlingAmount decimal.Decimal `json:"handling_amount"`
	FinalPrice     int64           `json:"final_price"`
	PerInstallment int64           `json:"per_installment"`
	Installments   int             `json:"installments"`
	Surplus        int64           `json:"surplus"`
}

// Calculate applies discount, then GST and handling on the discounted price,
// floors the total and splits it into ceiled installments.
func Calculate(in Input) (Quote, error) {
	if in.Installments < MinInstallments {
		return Quote{}, ErrInvalidInstallments
	}
	if err := in.validate(); err != nil {
		return Quote{}, err
	}

	discounted := in.BasePrice.Mul(decimal.NewFromInt(1).Sub(in.DiscountPercent.Div(hundred)))
	gst := discounted.Mul(in.GSTPercent).Div(hundred)
	handling := discounted.Mul(in.HandlingPercent).Div(hundred)

	final := discounted.Add(gst).Add(handling).Floor().IntPart()
	n := int64(in.Installments)
	per := decimal.NewFromInt(final).Div(decimal.NewFromInt(n)).Ceil().IntPart()

	return Quote{
		Discounted:     discounted,
		GSTAmount:      gst,
		HandlingAmount: handling,
		FinalPrice:     final,
		PerInstallment: per,
		Installments:   in.Installments,
		Surplus:        per*n - final,
	}, nil
}

func (in Input) validate() error {
	if in.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base price must not be negative", ErrInvalidInput)
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidInput)
	}
	if in.GSTPercent.IsNegative() || in.HandlingPercent.IsNegative() {
		return fmt.Errorf("%w: percentages must not be negative", ErrInvalidInput)
	}
	return nil
}

// ClampInstallments forces n into [MinInstallments, MaxInstallments].
func ClampInstallments(n int) int {
	if n < MinInstallments {
		return MinInstallments
	}
	if n > MaxInstallments {
		return MaxInstallments
	}
	return n
}

// ValidInstallments reports whether n is an accepted installment count.
func ValidInstallments(n int) bool {
	return n >= MinInstallments && n <= MaxInstallments
}

var (
	gstRates      = []decimal.Decimal{decimal.NewFromInt(0), decimal.NewFromInt(5), decimal.NewFromInt(12), decimal.NewFromInt(18)}
	handlingRates = []decimal.Decimal{
		decimal.NewFromInt(0), decimal.NewFromInt(1), decimal.RequireFromString("1.5"),
		decimal.NewFromInt(2), decimal.RequireFromString("2.5"),
	}
)

// ValidGSTPercent reports whether p is one of the GST slabs offered in the admin.
func ValidGSTPercent(p decimal.Decimal) bool {
	return containsRate(gstRates, p)
}

// ValidHandlingPercent reports whether p is one of the handling-charge options.
func ValidHandlingPercent(p decimal.Decimal) bool {
	return containsRate(handlingRates, p)
}

func containsRate(rates []decimal.Decimal, p decimal.Decimal) bool {
	for _, r := range rates {
		if r.Equal(p) {
			return true
		}
	}
	return false
}
