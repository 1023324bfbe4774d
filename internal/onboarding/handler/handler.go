// Package handler exposes the onboarding gateway: one POST endpoint taking
// tagged commands, and a state endpoint for resuming.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/platform/httputil"
	"stoop/pkg/platform/middleware/auth"
	"stoop/pkg/requestcontext"
)

// Service is the onboarding state machine.
type Service interface {
	Handle(ctx context.Context, accountID id.AccountID, cmd models.Command) (any, error)
	State(ctx context.Context, accountID id.AccountID) (models.State, error)
}

// Handler serves the onboarding endpoints.
type Handler struct {
	service   Service
	validator auth.TokenValidator
	logger    *slog.Logger
}

func New(service Service, validator auth.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the onboarding routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/onboarding", h.handleCommand)
	r.Get("/onboarding/categories", h.handleCategories)
	r.With(auth.RequireOnboardingToken(h.validator, h.logger)).Get("/onboarding/state", h.handleState)
}

// handleCommand decodes one tagged command and dispatches it. send-otp and
// verify-otp are public; every other action needs the onboarding token.
func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := readBody(r)
	if err != nil {
		h.writeError(ctx, w, "invalid onboarding request", err)
		return
	}
	cmd, err := models.DecodeCommand(body)
	if err != nil {
		h.writeError(ctx, w, "invalid onboarding request", err)
		return
	}

	var accountID id.AccountID
	if !models.IsPublic(cmd) {
		accountID, err = h.authenticate(r)
		if err != nil {
			h.writeError(ctx, w, "unauthorized onboarding command", err)
			return
		}
	}

	result, err := h.service.Handle(ctx, accountID, cmd)
	if err != nil {
		h.writeError(ctx, w, "onboarding command failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// categoriesResponse feeds the client's business category picker.
type categoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

func (h *Handler) handleCategories(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, categoriesResponse{Categories: models.Categories()})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := requestcontext.AccountID(ctx)
	if accountID.IsNil() {
		h.logger.ErrorContext(ctx, "account missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	st, err := h.service.State(ctx, accountID)
	if err != nil {
		h.writeError(ctx, w, "onboarding state failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) authenticate(r *http.Request) (id.AccountID, error) {
	token, ok := auth.BearerToken(r)
	if !ok {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header")
	}
	accountID, err := h.validator.Validate(token)
	if err != nil {
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid or expired token")
	}
	return accountID, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodyBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body")
	}
	if len(body) > httputil.MaxBodyBytes {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body too large")
	}
	return body, nil
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
