package clients

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
	clients map[int64]Client
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clients: map[int64]Client{}}
}

func (m *memoryRepo) List(_ context.Context, filters shared.ListFilters) ([]Client, int, error) {
	out := []Client{}
	for _, v := range m.clients {
		if filters.Search == "" || strings.Contains(strings.ToLower(v.Name), strings.ToLower(filters.Search)) {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Client, error) {
	v, ok := m.clients[id]
	if !ok {
		return Client{}, shared.ErrNotFound
	}
	return v, nil
}

func (m *memoryRepo) Names(context.Context) ([]shared.Named, error) {
	out := []shared.Named{}
	for _, v := range m.clients {
		out = append(out, shared.Named{ID: v.ID, Name: v.Name, Code: v.Document})
	}
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, in Input) (Client, error) {
	m.nextID++
	v := Client{ID: m.nextID, Document: in.Document, Name: in.Name, City: in.City, Email: in.Email, Phone: in.Phone}
	m.clients[v.ID] = v
	return v, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, in Input) (Client, error) {
	if _, ok := m.clients[id]; !ok {
		return Client{}, shared.ErrNotFound
	}
	v := Client{ID: id, Document: in.Document, Name: in.Name, City: in.City, Email: in.Email, Phone: in.Phone}
	m.clients[id] = v
	return v, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.clients[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

func TestCreateBlocksDuplicateName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, Input{Document: "900.123.456-7", Name: "Restaurante La Cumbre S.A.S"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Input{Document: "800111222", Name: "RESTAURANTE LA CUMBRE SAS"})
	var dup *shared.DuplicateError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, []string{"Restaurante La Cumbre S.A.S"}, dup.Names)

	_, err = svc.Create(ctx, Input{Document: "9001234567", Name: "Otra"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateDoesNotCollideWithItself(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	v, err := svc.Create(ctx, Input{Document: "1", Name: "Hotel Álamo"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, v.ID, Input{Document: "1", Name: "Hotel Alamo", Phone: " 3001234567 "})
	require.NoError(t, err)
	require.Equal(t, "3001234567", updated.Phone)
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Input{Document: "1", Name: "  ", Email: "nope"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
}

func TestDuplicatesPreview(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, Input{Document: "1", Name: "Café Ñapanga"})
	require.NoError(t, err)

	names, err := svc.Duplicates(ctx, 0, Input{Name: "cafe napanga"})
	require.NoError(t, err)
	require.Equal(t, []string{"Café Ñapanga"}, names)
}

func TestInvalidIDs(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
	require.ErrorIs(t, svc.Delete(context.Background(), -1), shared.ErrInvalidID)
	require.ErrorIs(t, svc.Delete(context.Background(), 9), shared.ErrNotFound)
}
