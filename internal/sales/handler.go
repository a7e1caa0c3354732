package sales

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopstack-erp/shopstack/internal/platform/httpx"
	"github.com/shopstack-erp/shopstack/internal/shared"
)

// Handler exposes the sale lifecycle over HTTP. It stays thin: decode,
// delegate, respond.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler builds the Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// MountRoutes registers the sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.List)
	r.Post("/sales", h.Create)
	r.Get("/sales/{saleNo}", h.Show)
	r.Put("/sales/{saleNo}", h.Update)
	r.Delete("/sales/{saleNo}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.svc.InsertSale(r.Context(), req, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	sales, err := h.svc.GetAllSales(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	sale, err := h.svc.GetSale(r.Context(), chi.URLParam(r, "saleNo"), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	var req UpdateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.svc.UpdateSale(r.Context(), chi.URLParam(r, "saleNo"), req, userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "sale updated"})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserFromContext(r.Context())
	if err := h.svc.DeleteSale(r.Context(), chi.URLParam(r, "saleNo"), userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "sale deleted"})
}
