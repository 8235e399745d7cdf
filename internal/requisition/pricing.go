package requisition

import "github.com/shopspring/decimal"

// PriceLine derives the unit price and total of a line. A missing or
// non-positive reference weight counts as 1.
func PriceLine(grossCost, quantity, referenceWeight decimal.Decimal) (unitPrice, total decimal.Decimal) {
	weight := referenceWeight
	if !weight.IsPositive() {
		weight = decimal.NewFromInt(1)
	}
	unitPrice = grossCost.Div(weight)
	total = unitPrice.Mul(quantity)
	return unitPrice, total
}

// Priced returns a copy of item with UnitPrice and Total recomputed.
func (it Item) Priced() Item {
	it.UnitPrice, it.Total = PriceLine(it.GrossCost, it.Quantity, it.ReferenceWeight)
	return it
}

// Total sums the priced totals of the requisition items.
func (r Requisition) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.Priced().Total)
	}
	return sum
}
