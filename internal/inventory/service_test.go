package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

type memoryRepo struct {
	balances  map[int64]Balance
	movements []Movement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{balances: make(map[int64]Balance)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Balances(ctx context.Context, search string) ([]Balance, error) {
	out := make([]Balance, 0, len(r.balances))
	for _, b := range r.balances {
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryRepo) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	out := []Movement{}
	for _, m := range r.movements {
		if m.IngredientID == filter.IngredientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (tx *memoryTx) GetBalanceForUpdate(ctx context.Context, ingredientID int64) (Balance, error) {
	if bal, ok := tx.repo.balances[ingredientID]; ok {
		return bal, nil
	}
	return Balance{IngredientID: ingredientID}, ErrBalanceNotFound
}

func (tx *memoryTx) UpsertBalance(ctx context.Context, balance Balance) error {
	tx.repo.balances[balance.IngredientID] = balance
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	tx.repo.nextID++
	m.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, m)
	return m.ID, nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAverageMovingCost(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, ServiceConfig{}, nil)
	ctx := context.Background()

	m, err := svc.Post(ctx, 1, MovementInput{Type: MovementIn, IngredientID: 1, Qty: dec("10"), UnitCost: dec("100000"), Note: "REQ#1"})
	require.NoError(t, err)
	require.True(t, m.BalanceQty.Equal(dec("10")))
	require.True(t, m.BalanceCost.Equal(dec("100000")))

	m, err = svc.Post(ctx, 1, MovementInput{Type: MovementIn, IngredientID: 1, Qty: dec("5"), UnitCost: dec("120000")})
	require.NoError(t, err)
	require.True(t, m.BalanceQty.Equal(dec("15")))
	require.Equal(t, "106666.6667", m.BalanceCost.String())

	m, err = svc.Post(ctx, 1, MovementInput{Type: MovementOut, IngredientID: 1, Qty: dec("8"), Note: "cocina"})
	require.NoError(t, err)
	require.True(t, m.Qty.Equal(dec("-8")))
	require.True(t, m.BalanceQty.Equal(dec("7")))
	require.Equal(t, "106666.6667", m.UnitCost.String())
	require.Equal(t, "106666.6667", m.BalanceCost.String())
}

func TestOutToZeroResetsCost(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, ServiceConfig{}, nil)
	ctx := context.Background()

	_, err := svc.Post(ctx, 1, MovementInput{Type: MovementIn, IngredientID: 2, Qty: dec("2.5"), UnitCost: dec("4000")})
	require.NoError(t, err)
	m, err := svc.Post(ctx, 1, MovementInput{Type: MovementAdjust, IngredientID: 2, Qty: dec("-2.5")})
	require.NoError(t, err)
	require.True(t, m.BalanceQty.IsZero())
	require.True(t, m.BalanceCost.IsZero())

	card, err := svc.Movements(ctx, MovementFilter{IngredientID: 2})
	require.NoError(t, err)
	require.Len(t, card, 2)
}

func TestNegativeStockGuard(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, ServiceConfig{}, nil)

	_, err := svc.Post(context.Background(), 1, MovementInput{Type: MovementOut, IngredientID: 1, Qty: dec("1")})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.ErrorIs(t, err, httpx.ErrUnprocessable)
	require.Empty(t, repo.movements)

	allow := NewService(newMemoryRepo(), nil, nil, ServiceConfig{AllowNegativeStock: true}, nil)
	m, err := allow.Post(context.Background(), 1, MovementInput{Type: MovementOut, IngredientID: 1, Qty: dec("1")})
	require.NoError(t, err)
	require.True(t, m.BalanceQty.Equal(dec("-1")))
}

func TestPostValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, ServiceConfig{}, nil)
	ctx := context.Background()

	_, err := svc.Post(ctx, 1, MovementInput{Type: MovementIn, IngredientID: 1, Qty: dec("0")})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Post(ctx, 1, MovementInput{Type: MovementIn, IngredientID: 1, Qty: dec("1"), UnitCost: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, err = svc.Post(ctx, 1, MovementInput{Type: MovementAdjust, IngredientID: 1})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Post(ctx, 1, MovementInput{Type: "TRANSFER", IngredientID: 1, Qty: dec("1")})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	_, err = svc.Movements(ctx, MovementFilter{})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDuplicateCodeRejected(t *testing.T) {
	idem := &memoryIdempotency{keys: map[string]bool{}}
	repo := newMemoryRepo()
	svc := NewService(repo, nil, idem, ServiceConfig{}, nil)
	ctx := context.Background()

	in := MovementInput{Code: "ENT-1", Type: MovementIn, IngredientID: 1, Qty: dec("3"), UnitCost: dec("10")}
	_, err := svc.Post(ctx, 1, in)
	require.NoError(t, err)
	_, err = svc.Post(ctx, 1, in)
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.Len(t, repo.movements, 1)

	// A failed post releases its key.
	out := MovementInput{Code: "SAL-1", Type: MovementOut, IngredientID: 1, Qty: dec("9")}
	_, err = svc.Post(ctx, 1, out)
	require.ErrorIs(t, err, ErrNegativeStock)
	require.False(t, idem.keys["OUT:SAL-1:1"])
}

func TestParseMovementType(t *testing.T) {
	typ, err := ParseMovementType("ADJUST")
	require.NoError(t, err)
	require.Equal(t, MovementAdjust, typ)
	_, err = ParseMovementType("in")
	require.ErrorIs(t, err, httpx.ErrValidation)
}
