package ingredients

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	nextID      int64
	ingredients map[int64]Ingredient
}

func newMemoryRepo(seed ...Ingredient) *memoryRepo {
	m := &memoryRepo{ingredients: map[int64]Ingredient{}}
	for _, it := range seed {
		m.nextID = max(m.nextID, it.ID)
		m.ingredients[it.ID] = it
	}
	return m
}

func (m *memoryRepo) List(context.Context, shared.ListFilters) ([]Ingredient, int, error) {
	out := []Ingredient{}
	for _, it := range m.ingredients {
		out = append(out, it)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Ingredient, error) {
	it, ok := m.ingredients[id]
	if !ok {
		return Ingredient{}, shared.ErrNotFound
	}
	return it, nil
}

func (m *memoryRepo) Names(context.Context) ([]shared.Named, error) {
	out := []shared.Named{}
	for _, it := range m.ingredients {
		out = append(out, shared.Named{ID: it.ID, Name: it.Name, Code: it.Code})
	}
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, in Input) (Ingredient, error) {
	m.nextID++
	it := Ingredient{ID: m.nextID, Code: in.Code, Name: in.Name, Unit: in.Unit, Weight: in.Weight}
	m.ingredients[it.ID] = it
	return it, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, in Input) (Ingredient, error) {
	if _, ok := m.ingredients[id]; !ok {
		return Ingredient{}, shared.ErrNotFound
	}
	it := Ingredient{ID: id, Code: in.Code, Name: in.Name, Unit: in.Unit, Weight: in.Weight}
	m.ingredients[id] = it
	return it, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	delete(m.ingredients, id)
	return nil
}

func TestCreateRejectsCaseInsensitiveDuplicate(t *testing.T) {
	svc := NewService(newMemoryRepo(Ingredient{ID: 1, Name: "Tomate", Code: "001", Unit: "kg"}))

	_, err := svc.Create(context.Background(), Input{Name: "TOMATE", Code: "002", Unit: "kg"})
	var dup *shared.DuplicateError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, []string{"Tomate"}, dup.Names)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(Ingredient{ID: 1, Name: "Tomate", Code: "001", Unit: "kg"}))

	_, err := svc.Create(context.Background(), Input{Name: "Papa criolla", Code: "001", Unit: "kg"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateNormalizesAndStoresWeight(t *testing.T) {
	svc := NewService(newMemoryRepo())
	it, err := svc.Create(context.Background(), Input{Name: " Aceite de oliva ", Code: "A-10", Unit: " L ", Weight: decimal.RequireFromString("0.92")})
	require.NoError(t, err)
	require.Equal(t, "Aceite de oliva", it.Name)
	require.Equal(t, "l", it.Unit)
	require.True(t, it.Weight.Equal(decimal.RequireFromString("0.92")))
}

func TestCreateRejectsNegativeWeight(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Input{Name: "Sal", Code: "S1", Unit: "kg", Weight: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)
}
