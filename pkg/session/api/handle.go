package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	autherrors "github.com/alpgraphic/alpgraphics-sub003/pkg/errors"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/session"
)

// Handle exposes session introspection and the mobile token endpoints.
type Handle struct {
	webSessions   *session.Service
	mobileService *session.MobileService
}

type Option func(*Handle)

func NewHandle(opts ...Option) *Handle {
	h := &Handle{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func WithSessionService(ss *session.Service) Option {
	return func(h *Handle) {
		h.webSessions = ss
	}
}

func WithMobileService(ms *session.MobileService) Option {
	return func(h *Handle) {
		h.mobileService = ms
	}
}

// MobileRoutes mounts the unauthenticated mobile token endpoints.
func (h *Handle) MobileRoutes(r chi.Router) {
	r.Post("/refresh", h.PostRefresh)
	r.Post("/logout", h.PostMobileLogout)
}

// ProtectedRoutes mounts endpoints that require an authenticated identity.
func (h *Handle) ProtectedRoutes(r chi.Router) {
	r.Get("/me", h.GetMe)
	r.Get("/sessions", h.GetSessions)
	r.Delete("/sessions", h.DeleteSessions)
}

type meResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// GetMe returns the identity resolved by the auth middleware.
func (h *Handle) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := session.IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, r, session.ErrUnauthenticated)
		return
	}
	render.JSON(w, r, meResponse{
		AccountID: identity.AccountID,
		Email:     identity.Email,
		Role:      string(identity.Role),
	})
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// PostRefresh exchanges a valid refresh token for a new access token.
// The refresh token's own expiry is never extended.
func (h *Handle) PostRefresh(w http.ResponseWriter, r *http.Request) {
	accessToken, _, err := h.mobileService.Refresh(r.Context(), w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, refreshResponse{AccessToken: accessToken})
}

// PostMobileLogout deletes every mobile session the request carries.
func (h *Handle) PostMobileLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.mobileService.Destroy(r.Context(), w, r); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"success": true})
}

type sessionInfo struct {
	Channel        string `json:"channel"`
	IPAddress      string `json:"ip_address"`
	UserAgent      string `json:"user_agent"`
	CreatedAt      string `json:"created_at"`
	ExpiresAt      string `json:"expires_at"`
	LastActivityAt string `json:"last_activity_at"`
}

// GetSessions lists the caller's active sessions across both channels.
func (h *Handle) GetSessions(w http.ResponseWriter, r *http.Request) {
	identity := session.IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, r, session.ErrUnauthenticated)
		return
	}

	sessions, err := h.webSessions.ListForAccount(r.Context(), identity.AccountID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]sessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionInfo{
			Channel:        string(s.Channel),
			IPAddress:      s.IPAddress,
			UserAgent:      s.UserAgent,
			CreatedAt:      s.CreatedAt.Format(time.RFC3339),
			ExpiresAt:      s.ExpiresAt.Format(time.RFC3339),
			LastActivityAt: s.LastActivityAt.Format(time.RFC3339),
		})
	}
	render.JSON(w, r, out)
}

// DeleteSessions revokes every session for the caller, including the
// one making the request.
func (h *Handle) DeleteSessions(w http.ResponseWriter, r *http.Request) {
	identity := session.IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, r, session.ErrUnauthenticated)
		return
	}

	if err := h.webSessions.DestroyAllForAccount(r.Context(), identity.AccountID); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"success": true})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := autherrors.GetCode(err)
	body := map[string]interface{}{"error": errorMessage(err)}
	if e, ok := err.(*autherrors.Error); ok && e.Details != nil {
		body["details"] = e.Details
	}

	render.Status(r, autherrors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, body)
}

func errorMessage(err error) string {
	if e, ok := err.(*autherrors.Error); ok {
		return e.Message
	}
	return "internal error"
}
