package geo

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/platform/httputil"
	"stoop/pkg/requestcontext"
)

// AddressService is what the address endpoints need from the resolver.
type AddressService interface {
	Suggest(ctx context.Context, query string) ([]AddressCandidate, error)
	Resolve(ctx context.Context, address string) (AddressCandidate, error)
}

// Handler serves the public address lookup endpoints.
type Handler struct {
	service AddressService
	logger  *slog.Logger
}

func NewHandler(service AddressService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/address/suggest", h.handleSuggest)
	r.Post("/address/resolve", h.handleResolve)
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidates, err := h.service.Suggest(ctx, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(ctx, w, "address suggest failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidates)
}

type resolveRequest struct {
	Address string `json:"address"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req resolveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidate, err := h.service.Resolve(ctx, req.Address)
	if err != nil {
		h.writeError(ctx, w, "address resolve failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidate)
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
