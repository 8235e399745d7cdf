package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

// SessionKeyIDToken holds the identity token issued at sign-in.
const SessionKeyIDToken = "dagelec.id_token"

// SessionRegistry records server-side session metadata.
type SessionRegistry interface {
	RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	provider    Provider
	registry    SessionRegistry
	permissions *rbac.Service
	catalog     rbac.Catalog
	sessions    *shared.SessionManager
	csrf        *shared.CSRFManager
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance. registry may be nil.
func NewHandler(logger *slog.Logger, provider Provider, registry SessionRegistry, permissions *rbac.Service, catalog rbac.Catalog, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		provider:    provider,
		registry:    registry,
		permissions: permissions,
		catalog:     catalog,
		sessions:    sessions,
		csrf:        csrf,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sign-in", h.handleSignIn)
	r.Post("/sign-out", h.handleSignOut)
	r.Get("/token", h.handleToken)
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signInResponse struct {
	User        *User            `json:"user"`
	Token       Token            `json:"token"`
	Permissions []rbac.Entry     `json:"permissions"`
	Menu        []rbac.MenuEntry `json:"menu"`
	Groups      []rbac.MenuGroup `json:"groups"`
	CSRFToken   string           `json:"csrf_token"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during sign-in")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", MessageGeneric)
		return
	}

	user, token, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		msg := UserMessage(err)
		if msg == MessageBadCredentials {
			h.logger.Info("sign-in rejected", slog.String("email", req.Email), slog.Any("error", err))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", msg)
			return
		}
		h.logger.Error("sign-in failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", msg)
		return
	}

	sess.ClearScoped()
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.Set(SessionKeyIDToken, token.Value)
	if h.registry != nil && sess.ID != "" {
		expiresAt := time.Now().Add(h.sessions.TTL())
		if err := h.registry.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
			h.logger.Warn("register session", slog.Any("error", err))
		}
	}

	store := rbac.NewStore()
	if err := h.permissions.LoadInto(r.Context(), user.ID, store); err != nil {
		h.logger.Error("sign-in permissions", slog.Int64("user", user.ID), slog.Any("error", err))
		rbac.PersistToSession(sess, store)
		httpx.RespondError(w, err)
		return
	}
	rbac.PersistToSession(sess, store)

	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	ev := rbac.NewEvaluator(store, h.catalog)
	entries := store.All()
	if entries == nil {
		entries = []rbac.Entry{}
	}
	httpx.JSON(w, http.StatusOK, signInResponse{
		User:        user,
		Token:       token,
		Permissions: entries,
		Menu:        ev.FormMenu(),
		Groups:      ev.MenuGroups(),
		CSRFToken:   csrfToken,
	})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.provider.SignOut(r.Context(), sess.ID); err != nil {
			h.logger.Warn("sign-out", slog.Any("error", err))
		}
		sess.ClearScoped()
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	token, err := h.provider.FreshIDToken(r.Context(), userID, sess.Get(SessionKeyIDToken))
	if err != nil {
		if UserMessage(err) == MessageBadCredentials {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", MessageBadCredentials)
			return
		}
		h.logger.Error("fresh token", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", MessageGeneric)
		return
	}
	sess.Set(SessionKeyIDToken, token.Value)
	httpx.JSON(w, http.StatusOK, token)
}
