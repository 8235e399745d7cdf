package ingredients

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Ingredient, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Ingredient, error) {
	if id <= 0 {
		return Ingredient{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Duplicates returns the existing ingredients a candidate would collide with.
// Either the name or the code matching is enough.
func (s *Service) Duplicates(ctx context.Context, id int64, in Input) ([]string, error) {
	names, err := s.repo.Names(ctx)
	if err != nil {
		return nil, err
	}
	return shared.FindDuplicates(names, in.trimmed().named(id), true), nil
}

func (s *Service) Create(ctx context.Context, in Input) (Ingredient, error) {
	in, err := s.check(ctx, 0, in)
	if err != nil {
		return Ingredient{}, err
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (Ingredient, error) {
	if id <= 0 {
		return Ingredient{}, shared.ErrInvalidID
	}
	in, err := s.check(ctx, id, in)
	if err != nil {
		return Ingredient{}, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) check(ctx context.Context, id int64, in Input) (Input, error) {
	in = in.trimmed()
	if err := s.validate.Struct(in); err != nil {
		return Input{}, err
	}
	if in.Weight.IsNegative() {
		return Input{}, fmt.Errorf("%w: weight must not be negative", shared.ErrValidation)
	}
	names, err := s.repo.Names(ctx)
	if err != nil {
		return Input{}, err
	}
	if err := shared.CheckDuplicates(names, in.named(id), true); err != nil {
		return Input{}, err
	}
	return in, nil
}
