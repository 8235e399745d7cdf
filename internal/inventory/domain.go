package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents received stock.
	MovementIn MovementType = "IN"
	// MovementOut represents consumed stock.
	MovementOut MovementType = "OUT"
	// MovementAdjust is a signed manual correction.
	MovementAdjust MovementType = "ADJUST"
)

// ParseMovementType validates raw.
func ParseMovementType(raw string) (MovementType, error) {
	switch t := MovementType(raw); t {
	case MovementIn, MovementOut, MovementAdjust:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown movement type %q", ErrValidation, raw)
}

// Movement is one posted stock change together with the balance it left.
type Movement struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Type         MovementType    `json:"type"`
	IngredientID int64           `json:"ingredient_id"`
	Qty          decimal.Decimal `json:"qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	BalanceQty   decimal.Decimal `json:"balance_qty"`
	BalanceCost  decimal.Decimal `json:"balance_cost"`
	Note         string          `json:"note"`
	RefModule    string          `json:"ref_module,omitempty"`
	RefID        string          `json:"ref_id,omitempty"`
	PostedAt     time.Time       `json:"posted_at"`
	CreatedBy    int64           `json:"created_by"`
}

// Balance summarises stock per ingredient.
type Balance struct {
	IngredientID   int64           `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	Qty            decimal.Decimal `json:"qty"`
	AvgCost        decimal.Decimal `json:"avg_cost"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MovementInput describes a movement to post. Qty is positive for IN and OUT
// and signed for ADJUST.
type MovementInput struct {
	Code         string          `json:"code" validate:"max=40"`
	Type         MovementType    `json:"type" validate:"required,oneof=IN OUT ADJUST"`
	IngredientID int64           `json:"ingredient_id" validate:"required,gt=0"`
	Qty          decimal.Decimal `json:"qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Note         string          `json:"note" validate:"max=500"`
	RefModule    string          `json:"ref_module" validate:"max=40"`
	RefID        string          `json:"ref_id" validate:"max=60"`
}

// MovementFilter narrows the stock card.
type MovementFilter struct {
	IngredientID int64
	From         time.Time
	To           time.Time
	Limit        int
}

var (
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("inventory: invalid input: %w", httpx.ErrValidation)
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = fmt.Errorf("inventory: negative stock not allowed: %w", httpx.ErrUnprocessable)
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be positive: %w", httpx.ErrValidation)
	// ErrInvalidUnitCost indicates invalid cost value.
	ErrInvalidUnitCost = fmt.Errorf("inventory: unit cost must be >= 0: %w", httpx.ErrValidation)
	// ErrBalanceNotFound indicates missing balance row.
	ErrBalanceNotFound = fmt.Errorf("inventory: balance not found: %w", httpx.ErrNotFound)
)
