package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dagelec/dagelec-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Balances(ctx context.Context, search string) ([]Balance, error)
	Movements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards movement codes against double posting.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	allowNeg    bool
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service. audit and idem may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		allowNeg:    cfg.AllowNegativeStock,
		validate:    validator.New(),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Balances lists current stock.
func (s *Service) Balances(ctx context.Context, search string) ([]Balance, error) {
	return s.repo.Balances(ctx, search)
}

// Movements lists the stock card of one ingredient.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.IngredientID <= 0 {
		return nil, fmt.Errorf("%w: ingredient required", ErrValidation)
	}
	return s.repo.Movements(ctx, filter)
}

// Post records a movement and updates the moving average cost of the
// ingredient. IN and OUT take a positive quantity; ADJUST takes a signed one.
func (s *Service) Post(ctx context.Context, actorID int64, in MovementInput) (Movement, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Note = strings.TrimSpace(in.Note)
	if err := s.validate.Struct(in); err != nil {
		return Movement{}, err
	}
	change := in.Qty
	switch in.Type {
	case MovementIn:
		if !in.Qty.IsPositive() {
			return Movement{}, ErrInvalidQuantity
		}
		if in.UnitCost.IsNegative() {
			return Movement{}, ErrInvalidUnitCost
		}
	case MovementOut:
		if !in.Qty.IsPositive() {
			return Movement{}, ErrInvalidQuantity
		}
		change = in.Qty.Neg()
	case MovementAdjust:
		if in.Qty.IsZero() {
			return Movement{}, ErrInvalidQuantity
		}
		if in.Qty.IsPositive() && in.UnitCost.IsNegative() {
			return Movement{}, ErrInvalidUnitCost
		}
	}
	return s.postMovement(ctx, actorID, in, change)
}

func (s *Service) postMovement(ctx context.Context, actorID int64, in MovementInput, change decimal.Decimal) (Movement, error) {
	now := s.now()
	code := in.Code
	if code == "" {
		code = fmt.Sprintf("INV-%d", now.UnixNano())
	}
	key := fmt.Sprintf("%s:%s:%d", in.Type, code, in.IngredientID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return Movement{}, err
		}
		insertedKey = true
	}

	var posted Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		balance, err := tx.GetBalanceForUpdate(ctx, in.IngredientID)
		if err != nil && !errors.Is(err, ErrBalanceNotFound) {
			return err
		}
		if errors.Is(err, ErrBalanceNotFound) {
			balance = Balance{IngredientID: in.IngredientID}
		}
		newQty := balance.Qty.Add(change)
		if !s.allowNeg && newQty.IsNegative() {
			return ErrNegativeStock
		}
		unitCost := balance.AvgCost
		newAvg := balance.AvgCost
		if change.IsPositive() {
			unitCost = in.UnitCost
			total := balance.Qty.Mul(balance.AvgCost).Add(change.Mul(unitCost))
			if !newQty.IsZero() {
				newAvg = total.DivRound(newQty, 4)
			}
		} else if !newQty.IsPositive() {
			newAvg = decimal.Zero
		}

		posted = Movement{
			Code:         code,
			Type:         in.Type,
			IngredientID: in.IngredientID,
			Qty:          change,
			UnitCost:     unitCost,
			BalanceQty:   newQty,
			BalanceCost:  newAvg,
			Note:         in.Note,
			RefModule:    in.RefModule,
			RefID:        in.RefID,
			PostedAt:     now,
			CreatedBy:    actorID,
		}
		id, err := tx.InsertMovement(ctx, posted)
		if err != nil {
			return err
		}
		posted.ID = id
		balance.Qty = newQty
		balance.AvgCost = newAvg
		return tx.UpsertBalance(ctx, balance)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(context.WithoutCancel(ctx), key)
		}
		return Movement{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   fmt.Sprintf("inventory:%s", in.Type),
			Entity:   "inventory_movement",
			EntityID: code,
			Meta: map[string]any{
				"ingredient_id": in.IngredientID,
				"qty":           change.String(),
				"note":          in.Note,
			},
		}); err != nil {
			s.logger.Warn("inventory audit failed", slog.String("code", code), slog.Any("error", err))
		}
	}
	return posted, nil
}
