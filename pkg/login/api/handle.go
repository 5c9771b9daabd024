package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	autherrors "github.com/alpgraphic/alpgraphics-sub003/pkg/errors"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/login"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/password"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/session"
)

// Handle exposes the login, 2FA and password endpoints.
type Handle struct {
	loginService  *login.Service
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

func WithLoginService(ls *login.Service) Option {
	return func(h *Handle) {
		h.loginService = ls
	}
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

// Routes mounts the public auth endpoints.
func (h *Handle) Routes(r chi.Router) {
	r.Post("/login", h.PostLogin)
	r.Post("/2fa/verify", h.PostVerify2FA)
	r.Post("/logout", h.PostLogout)
	r.Post("/password/validate", h.PostValidatePassword)
}

// ProtectedRoutes mounts endpoints that require an authenticated identity.
func (h *Handle) ProtectedRoutes(r chi.Router) {
	r.Post("/password/change", h.PostChangePassword)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PostLogin authenticates credentials. Admin accounts receive a
// requires_2fa response; other accounts receive sessions directly.
func (h *Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "unable to parse request body")
		return
	}

	result, err := h.loginService.Login(r.Context(), w, req.Username, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

type verify2FARequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// PostVerify2FA completes an admin login with a TOTP passcode.
func (h *Handle) PostVerify2FA(w http.ResponseWriter, r *http.Request) {
	var req verify2FARequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "unable to parse request body")
		return
	}

	result, err := h.loginService.VerifyTotp(r.Context(), w, req.Username, req.Code, clientIP(r), r.UserAgent())
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// PostLogout destroys whatever sessions the request carries, on both
// channels, and clears all cookies.
func (h *Handle) PostLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.webSessions.Destroy(r.Context(), w, r); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.mobileService.Destroy(r.Context(), w, r); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"success": true})
}

type validatePasswordRequest struct {
	Password     string `json:"password"`
	IdentityHint string `json:"identity_hint,omitempty"`
}

// PostValidatePassword runs the password policy for UI feedback.
func (h *Handle) PostValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req validatePasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "unable to parse request body")
		return
	}

	render.JSON(w, r, password.Validate(req.Password, req.IdentityHint))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PostChangePassword rotates the caller's password and logs out every
// session. Requires RequireAuth upstream.
func (h *Handle) PostChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := session.IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, r, session.ErrUnauthenticated)
		return
	}

	var req changePasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "unable to parse request body")
		return
	}

	if err := h.loginService.ChangePassword(r.Context(), identity.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"success": true})
}

// clientIP extracts the best-effort client address for audit metadata.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": message})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := autherrors.GetCode(err)
	body := map[string]interface{}{"error": errorMessage(err)}

	var structured *autherrors.Error
	if e, ok := err.(*autherrors.Error); ok {
		structured = e
	}
	if structured != nil && structured.Details != nil {
		body["details"] = structured.Details
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
