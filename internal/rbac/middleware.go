package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

type evaluatorContextKey struct{}

// ContextWithEvaluator stores the request evaluator in context.
func ContextWithEvaluator(ctx context.Context, ev *Evaluator) context.Context {
	return context.WithValue(ctx, evaluatorContextKey{}, ev)
}

// EvaluatorFromContext returns the request evaluator. Without one, an evaluator
// over an unloaded store is returned, which authorizes nothing.
func EvaluatorFromContext(ctx context.Context) *Evaluator {
	if ev, ok := ctx.Value(evaluatorContextKey{}).(*Evaluator); ok && ev != nil {
		return ev
	}
	return NewEvaluator(NewStore(), nil)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Catalog Catalog
	Logger  *slog.Logger
}

// Attach resolves the session's permission matrix and stores an Evaluator in
// the request context. The matrix is read from the session when present and
// fetched otherwise; a fetch failure aborts the request with 503.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := NewStore()
		sess := shared.SessionFromContext(r.Context())
		if userID, ok := m.currentUserID(sess); ok {
			if entries, ok := decodeEntries(sess.Get(shared.SessionKeyPermissions)); ok {
				store.Load(entries)
			} else if err := m.Service.LoadInto(r.Context(), userID, store); err != nil {
				m.logError("rbac load permissions", err)
				httpx.RespondError(w, err)
				return
			} else {
				PersistToSession(sess, store)
			}
		}
		ctx := ContextWithEvaluator(r.Context(), NewEvaluator(store, m.Catalog))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects requests whose evaluator does not grant action on formID.
// Anonymous requests get 401; everything else not granted gets 403.
func (m Middleware) Require(formID string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentUserID(shared.SessionFromContext(r.Context())); !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !EvaluatorFromContext(r.Context()).HasPermission(formID, action) {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous requests.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.currentUserID(shared.SessionFromContext(r.Context())); !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PersistToSession writes the store contents into the session.
func PersistToSession(sess *shared.Session, store *Store) {
	if sess == nil {
		return
	}
	if !store.Loaded() {
		sess.Delete(shared.SessionKeyPermissions)
		return
	}
	data, err := json.Marshal(store.All())
	if err != nil {
		return
	}
	sess.Set(shared.SessionKeyPermissions, string(data))
}

func decodeEntries(raw string) ([]Entry, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (m Middleware) currentUserID(sess *shared.Session) (int64, bool) {
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		m.logError("rbac parse user id", errors.New(raw))
		return 0, false
	}
	return id, true
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}
