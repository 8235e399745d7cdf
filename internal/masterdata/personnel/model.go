package personnel

import (
	"strings"
	"time"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
)

// Person is an employee that can check or approve requisitions.
type Person struct {
	ID        int64     `json:"id"`
	Document  string    `json:"document"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input holds the editable fields of a person.
type Input struct {
	Document string `json:"document" validate:"required,max=30"`
	Name     string `json:"name" validate:"required,max=160"`
	Position string `json:"position" validate:"max=120"`
	Address  string `json:"address" validate:"max=200"`
	Email    string `json:"email" validate:"omitempty,email,max=160"`
	Phone    string `json:"phone" validate:"max=40"`
}

func (in Input) trimmed() Input {
	in.Document = strings.TrimSpace(in.Document)
	in.Name = strings.TrimSpace(in.Name)
	in.Position = strings.TrimSpace(in.Position)
	in.Address = strings.TrimSpace(in.Address)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func (in Input) named(id int64) shared.Named {
	return shared.Named{ID: id, Name: in.Name, Code: in.Document}
}
