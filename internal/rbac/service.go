package rbac

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source loads the grants of a user.
type Source interface {
	UserPermissions(ctx context.Context, userID int64) ([]Entry, error)
}

// Service fetches permission matrices from the backing Source.
type Service struct {
	source  Source
	timeout time.Duration
	group   singleflight.Group
}

// NewService constructs a Service. A zero timeout disables the deadline.
func NewService(source Source, timeout time.Duration) *Service {
	return &Service{source: source, timeout: timeout}
}

// Fetch returns the user's grants. Concurrent fetches for one user share a
// single query. Any failure is reported as ErrPermissionsUnavailable.
func (s *Service) Fetch(ctx context.Context, userID int64) ([]Entry, error) {
	if s == nil || s.source == nil {
		return nil, ErrPermissionsUnavailable
	}
	key := strconv.FormatInt(userID, 10)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, s.timeout)
			defer cancel()
		}
		return s.source.UserPermissions(fetchCtx, userID)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrPermissionsUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPermissionsUnavailable, res.Err)
		}
		entries, _ := res.Val.([]Entry)
		out := make([]Entry, len(entries))
		copy(out, entries)
		return out, nil
	}
}

// LoadInto fetches the user's grants and loads them into store. On failure the
// store is cleared so that nothing is authorized.
func (s *Service) LoadInto(ctx context.Context, userID int64, store *Store) error {
	entries, err := s.Fetch(ctx, userID)
	if err != nil {
		store.Clear()
		return err
	}
	store.Load(entries)
	return nil
}
