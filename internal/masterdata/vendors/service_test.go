package vendors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	nextID  int64
	vendors map[int64]Vendor
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{vendors: map[int64]Vendor{}}
}

func (m *memoryRepo) List(_ context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	out := []Vendor{}
	for _, v := range m.vendors {
		if filters.Search == "" || strings.Contains(strings.ToLower(v.Name), strings.ToLower(filters.Search)) {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, shared.ErrNotFound
	}
	return v, nil
}

func (m *memoryRepo) Names(context.Context) ([]shared.Named, error) {
	out := []shared.Named{}
	for _, v := range m.vendors {
		out = append(out, shared.Named{ID: v.ID, Name: v.Name, Code: v.TaxID})
	}
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, in Input) (Vendor, error) {
	m.nextID++
	v := Vendor{ID: m.nextID, TaxID: in.TaxID, Name: in.Name, Contact: in.Contact, Email: in.Email, Phone: in.Phone}
	m.vendors[v.ID] = v
	return v, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, in Input) (Vendor, error) {
	if _, ok := m.vendors[id]; !ok {
		return Vendor{}, shared.ErrNotFound
	}
	v := Vendor{ID: id, TaxID: in.TaxID, Name: in.Name, Contact: in.Contact, Email: in.Email, Phone: in.Phone}
	m.vendors[id] = v
	return v, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.vendors[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.vendors, id)
	return nil
}

func TestCreateBlocksDuplicateName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, Input{TaxID: "900.123.456-7", Name: "Distribuidora Andina S.A.S"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Input{TaxID: "800111222", Name: "DISTRIBUIDORA ANDINA SAS"})
	var dup *shared.DuplicateError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, []string{"Distribuidora Andina S.A.S"}, dup.Names)

	_, err = svc.Create(ctx, Input{TaxID: "9001234567", Name: "Otra"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateDoesNotCollideWithItself(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	v, err := svc.Create(ctx, Input{TaxID: "1", Name: "Lácteos del Valle"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, v.ID, Input{TaxID: "1", Name: "Lacteos del Valle", Phone: " 3001234567 "})
	require.NoError(t, err)
	require.Equal(t, "3001234567", updated.Phone)
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Input{TaxID: "1", Name: "  ", Email: "nope"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
}

func TestDuplicatesPreview(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, Input{TaxID: "1", Name: "Frutas Ñuñoa"})
	require.NoError(t, err)

	names, err := svc.Duplicates(ctx, 0, Input{Name: "frutas nunoa"})
	require.NoError(t, err)
	require.Equal(t, []string{"Frutas Ñuñoa"}, names)
}

func TestInvalidIDs(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
	require.ErrorIs(t, svc.Delete(context.Background(), -1), shared.ErrInvalidID)
	require.ErrorIs(t, svc.Delete(context.Background(), 9), shared.ErrNotFound)
}
