package ingredients

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
)

// Ingredient is a purchasable item. Weight is the reference weight used to
// derive the unit price of requisition lines; zero means "per unit".
type Ingredient struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Weight    decimal.Decimal `json:"weight"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Input holds the editable ingredient fields.
type Input struct {
	Code   string          `json:"code" validate:"required,max=30"`
	Name   string          `json:"name" validate:"required,max=160"`
	Unit   string          `json:"unit" validate:"required,max=20"`
	Weight decimal.Decimal `json:"weight"`
}

func (in Input) trimmed() Input {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	return in
}

func (in Input) named(id int64) shared.Named {
	return shared.Named{ID: id, Name: in.Name, Code: in.Code}
}
