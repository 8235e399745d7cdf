package requisition

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceLine(t *testing.T) {
	unit, total := PriceLine(d("12000"), d("3"), d("2.5"))
	require.True(t, unit.Equal(d("4800")), unit.String())
	require.True(t, total.Equal(d("14400")), total.String())
}

func TestPriceLineMissingWeightCountsAsOne(t *testing.T) {
	for _, w := range []decimal.Decimal{decimal.Zero, d("-1")} {
		unit, total := PriceLine(d("10"), d("4"), w)
		require.True(t, unit.Equal(d("10")))
		require.True(t, total.Equal(d("40")))
	}
}

func TestPricingIsIdempotent(t *testing.T) {
	it := Item{GrossCost: d("7"), Quantity: d("3"), ReferenceWeight: d("3")}
	first := it.Priced()
	again := first
	for i := 0; i < 5; i++ {
		again = again.Priced()
	}
	require.True(t, first.UnitPrice.Equal(again.UnitPrice))
	require.True(t, first.Total.Equal(again.Total))
}

func TestRequisitionTotal(t *testing.T) {
	r := Requisition{Items: []Item{
		{GrossCost: d("10"), Quantity: d("2"), ReferenceWeight: d("2")},
		{GrossCost: d("3"), Quantity: d("1")},
	}}
	require.True(t, r.Total().Equal(d("13")), r.Total().String())
}
