package shared

import (
	"fmt"
	"strings"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

var (
	ErrNotFound   = fmt.Errorf("masterdata: not found: %w", httpx.ErrNotFound)
	ErrDuplicate  = fmt.Errorf("masterdata: duplicate entry: %w", httpx.ErrDuplicate)
	ErrValidation = fmt.Errorf("masterdata: validation failed: %w", httpx.ErrValidation)
	ErrInvalidID  = fmt.Errorf("masterdata: invalid ID: %w", httpx.ErrValidation)
	ErrInUse      = fmt.Errorf("masterdata: still referenced: %w", httpx.ErrConflict)
)

// DuplicateError lists the existing entries a candidate collides with.
type DuplicateError struct {
	Names []string
}

func (e *DuplicateError) Error() string {
	return "Ya existe un registro con ese nombre o código: " + strings.Join(e.Names, ", ")
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}
