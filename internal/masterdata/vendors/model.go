package vendors

import (
	"strings"
	"time"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
)

// Vendor is a supplier requisitions are bought from.
type Vendor struct {
	ID        int64     `json:"id"`
	TaxID     string    `json:"tax_id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input holds the editable vendor fields.
type Input struct {
	TaxID   string `json:"tax_id" validate:"required,max=30"`
	Name    string `json:"name" validate:"required,max=160"`
	Contact string `json:"contact" validate:"max=120"`
	Address string `json:"address" validate:"max=200"`
	Email   string `json:"email" validate:"omitempty,email,max=160"`
	Phone   string `json:"phone" validate:"max=40"`
}

func (in Input) trimmed() Input {
	in.TaxID = strings.TrimSpace(in.TaxID)
	in.Name = strings.TrimSpace(in.Name)
	in.Contact = strings.TrimSpace(in.Contact)
	in.Address = strings.TrimSpace(in.Address)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func (in Input) named(id int64) shared.Named {
	return shared.Named{ID: id, Name: in.Name, Code: in.TaxID}
}
