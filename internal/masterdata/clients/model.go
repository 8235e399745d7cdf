package clients

import (
	"strings"
	"time"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
)

// Client is a customer the company sells to.
type Client struct {
	ID        int64     `json:"id"`
	Document  string    `json:"document"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input holds the editable client fields.
type Input struct {
	Document string `json:"document" validate:"required,max=30"`
	Name     string `json:"name" validate:"required,max=160"`
	City     string `json:"city" validate:"max=80"`
	Address  string `json:"address" validate:"max=200"`
	Email    string `json:"email" validate:"omitempty,email,max=160"`
	Phone    string `json:"phone" validate:"max=40"`
}

func (in Input) trimmed() Input {
	in.Document = strings.TrimSpace(in.Document)
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	in.Address = strings.TrimSpace(in.Address)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func (in Input) named(id int64) shared.Named {
	return shared.Named{ID: id, Name: in.Name, Code: in.Document}
}
