package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name           string
		in             Input
		wantDiscounted string
		wantGST        string
		wantHandling   string
		wantFinal      int64
		wantPer        int64
		wantSurplus    int64
	}{
		{
			name:           "discount gst and handling",
			in:             Input{BasePrice: d("1000"), DiscountPercent: d("10"), GSTPercent: d("18"), HandlingPercent: d("2"), Installments: 3},
			wantDiscounted: "900", wantGST: "162", wantHandling: "18",
			wantFinal: 1080, wantPer: 360, wantSurplus: 0,
		},
		{
			name:           "odd total split in two",
			in:             Input{BasePrice: d("999"), DiscountPercent: d("0"), GSTPercent: d("0"), HandlingPercent: d("0"), Installments: 2},
			wantDiscounted: "999", wantGST: "0", wantHandling: "0",
			wantFinal: 999, wantPer: 500, wantSurplus: 1,
		},
		{
			name:           "full discount",
			in:             Input{BasePrice: d("4999.99"), DiscountPercent: d("100"), GSTPercent: d("18"), HandlingPercent: d("2.5"), Installments: 7},
			wantDiscounted: "0", wantGST: "0", wantHandling: "0",
			wantFinal: 0, wantPer: 0, wantSurplus: 0,
		},
		{
			name:           "fractional total is floored",
			in:             Input{BasePrice: d("1499"), DiscountPercent: d("15"), GSTPercent: d("5"), HandlingPercent: d("1.5"), Installments: 4},
			wantDiscounted: "1274.15", wantGST: "63.7075", wantHandling: "19.11225",
			wantFinal: 1356, wantPer: 339, wantSurplus: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Calculate(tt.in)
			require.NoError(t, err)
			assert.True(t, d(tt.wantDiscounted).Equal(q.Discounted), "discounted = %s", q.Discounted)
			assert.True(t, d(tt.wantGST).Equal(q.GSTAmount), "gst = %s", q.GSTAmount)
			assert.True(t, d(tt.wantHandling).Equal(q.HandlingAmount), "handling = %s", q.HandlingAmount)
			assert.Equal(t, tt.wantFinal, q.FinalPrice)
			assert.Equal(t, tt.wantPer, q.PerInstallment)
			assert.Equal(t, tt.wantSurplus, q.Surplus)
		})
	}
}

func TestCalculate_Properties(t *testing.T) {
	bases := []string{"0", "1", "99.99", "999", "1000", "12345.67"}
	discounts := []string{"0", "7.5", "10", "50", "99", "100"}
	gsts := []string{"0", "5", "12", "18"}
	handlings := []string{"0", "1", "1.5", "2", "2.5"}

	for _, b := range bases {
		for _, disc := range discounts {
			for _, g := range gsts {
				for _, h := range handlings {
					for n := 1; n <= MaxInstallments; n += 5 {
						in := Input{BasePrice: d(b), DiscountPercent: d(disc), GSTPercent: d(g), HandlingPercent: d(h), Installments: n}
						q, err := Calculate(in)
						require.NoError(t, err)

						again, _ := Calculate(in)
						assert.Equal(t, q, again)

						factor := d("1").Sub(d(disc).Div(hundred))
						uplift := d("1").Add(d(g).Add(d(h)).Div(hundred))
						want := d(b).Mul(factor).Mul(uplift).Floor().IntPart()
						assert.Equal(t, want, q.FinalPrice, "final for %+v", in)

						assert.GreaterOrEqual(t, q.FinalPrice, int64(0))
						assert.GreaterOrEqual(t, q.PerInstallment*int64(n), q.FinalPrice)
						assert.Less(t, q.Surplus, int64(n))
					}
				}
			}
		}
	}
}

func TestCalculate_Rejects(t *testing.T) {
	base := Input{BasePrice: d("100"), DiscountPercent: d("0"), GSTPercent: d("0"), HandlingPercent: d("0"), Installments: 1}

	zero := base
	zero.Installments = 0
	_, err := Calculate(zero)
	assert.ErrorIs(t, err, ErrInvalidInstallments)

	negative := base
	negative.BasePrice = d("-1")
	_, err = Calculate(negative)
	assert.ErrorIs(t, err, ErrInvalidInput)

	over := base
	over.DiscountPercent = d("100.01")
	_, err = Calculate(over)
	assert.ErrorIs(t, err, ErrInvalidInput)

	gst := base
	gst.GSTPercent = d("-5")
	_, err = Calculate(gst)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClampInstallments(t *testing.T) {
	assert.Equal(t, 1, ClampInstallments(0))
	assert.Equal(t, 1, ClampInstallments(-3))
	assert.Equal(t, 12, ClampInstallments(12))
	assert.Equal(t, 24, ClampInstallments(40))
	assert.True(t, ValidInstallments(24))
	assert.False(t, ValidInstallments(25))
}

func TestRateOptions(t *testing.T) {
	assert.True(t, ValidGSTPercent(d("18")))
	assert.False(t, ValidGSTPercent(d("10")))
	assert.True(t, ValidHandlingPercent(d("1.50")))
	assert.False(t, ValidHandlingPercent(d("3")))
}
