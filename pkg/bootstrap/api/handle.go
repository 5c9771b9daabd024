package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/bootstrap"
	autherrors "github.com/alpgraphic/alpgraphics-sub003/pkg/errors"
)

// Handle exposes the one-time admin setup endpoint.
type Handle struct {
	service *bootstrap.Service
}

type Option func(*Handle)

func NewHandle(opts ...Option) *Handle {
	h := &Handle{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func WithService(s *bootstrap.Service) Option {
	return func(h *Handle) {
		h.service = s
	}
}

func (h *Handle) Routes(r chi.Router) {
	r.Post("/setup", h.PostSetup)
}

type setupRequest struct {
	Step     string `json:"step"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Secret   string `json:"secret"`
	Code     string `json:"code"`
}

type initResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
}

// PostSetup drives the two-step admin bootstrap. step=init returns a
// fresh TOTP secret without persisting anything; step=verify proves
// possession of the secret and atomically creates the admin account.
// The verify response never echoes the secret back.
func (h *Handle) PostSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "unable to parse request body")
		return
	}

	switch req.Step {
	case "init":
		result, err := h.service.Init(r.Context(), req.Email)
		if err != nil {
			respondError(w, r, err)
			return
		}
		render.JSON(w, r, initResponse{Secret: result.Secret, ProvisioningURI: result.ProvisioningURI})

	case "verify":
		acct, err := h.service.Verify(r.Context(), req.Email, req.Username, req.Password, req.Secret, req.Code)
		if err != nil {
			respondError(w, r, err)
			return
		}
		render.JSON(w, r, verifyResponse{Success: true, Email: acct.Email})

	default:
		badRequest(w, r, "step must be init or verify")
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": message})
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
