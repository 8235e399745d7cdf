package clients

import (
	"context"

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	if id <= 0 {
		return Client{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Duplicates returns the existing clients a candidate would collide with.
// Either the name or the document matching is enough.
func (s *Service) Duplicates(ctx context.Context, id int64, in Input) ([]string, error) {
	names, err := s.repo.Names(ctx)
	if err != nil {
		return nil, err
	}
	return shared.FindDuplicates(names, in.trimmed().named(id), true), nil
}

func (s *Service) Create(ctx context.Context, in Input) (Client, error) {
	in, err := s.check(ctx, 0, in)
	if err != nil {
		return Client{}, err
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (Client, error) {
	if id <= 0 {
		return Client{}, shared.ErrInvalidID
	}
	in, err := s.check(ctx, id, in)
	if err != nil {
		return Client{}, err
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
	names, err := s.repo.Names(ctx)
	if err != nil {
		return Input{}, err
	}
	if err := shared.CheckDuplicates(names, in.named(id), true); err != nil {
		return Input{}, err
	}
	return in, nil
}
