package sale

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/common"
	"github.com/jobelinc/stocktrack/internal/money"
	"github.com/jobelinc/stocktrack/internal/obs"
	"github.com/jobelinc/stocktrack/internal/pricing"
	"github.com/jobelinc/stocktrack/internal/stock"
)

// Lister pages through committed transactions.
type Lister interface {
	List(ctx context.Context, status *string, limit, offset int32) ([]Transaction, error)
}

// Handler exposes the transaction endpoints.
type Handler struct {
	Engine     *Engine
	Lister     Lister
	Validate   *validator.Validate
	DefaultTax decimal.Decimal
}

type commitLineRequest struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"required"`
}

type commitRequest struct {
	Lines      []commitLineRequest `json:"lines" validate:"required,min=1,dive"`
	TaxPercent *string             `json:"tax_percent"`
	Tendered   string              `json:"tendered" validate:"required"`
}

// Commit handles POST /api/v1/sales.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	taxPercent := h.DefaultTax
	if req.TaxPercent != nil {
		parsed, err := decimal.NewFromString(*req.TaxPercent)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "tax_percent must be a decimal string", nil)
			return
		}
		taxPercent = parsed
	}
	tendered, err := money.FromString(req.Tendered)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "tendered must be a decimal string", nil)
		return
	}
	basket := make([]BasketLine, 0, len(req.Lines))
	for _, ln := range req.Lines {
		basket = append(basket, BasketLine{SKU: ln.SKU, Qty: ln.Qty})
	}

	txn, err := h.Engine.CommitTransaction(r.Context(), basket, taxPercent, tendered)
	if err != nil {
		h.writeCommitError(w, err)
		return
	}
	if obs.SaleCommitTotal != nil {
		obs.SaleCommitTotal.WithLabelValues("committed").Inc()
	}
	if obs.SaleCommitAmount != nil {
		obs.SaleCommitAmount.Observe(txn.Total.InexactFloat64())
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": transactionResponse(txn)})
}

func (h *Handler) writeCommitError(w http.ResponseWriter, err error) {
	if obs.SaleCommitTotal != nil {
		obs.SaleCommitTotal.WithLabelValues("rejected").Inc()
	}
	var insufficient *stock.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		if obs.StockRejectionTotal != nil {
			obs.StockRejectionTotal.Inc()
		}
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", insufficient.Error(), map[string]any{
			"sku":       insufficient.SKU,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.Is(err, stock.ErrUnknownSKU):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrEmptyBasket),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidDiscount),
		errors.Is(err, pricing.ErrInvalidTax),
		errors.Is(err, stock.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "commit failed", nil)
	}
}

// Get handles GET /api/v1/sales/{saleId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "saleId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	txn, err := h.Engine.Store.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "transaction not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load transaction", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": transactionResponse(txn)})
}

// List handles GET /api/v1/sales.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	offset := int32((page - 1) * perPage)
	var status *string
	if raw := r.URL.Query().Get("status"); raw != "" {
		if _, err := ParseStatus(raw); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status filter", nil)
			return
		}
		status = &raw
	}
	txns, err := h.Lister.List(r.Context(), status, int32(perPage), offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list transactions", nil)
		return
	}
	response := make([]map[string]any, 0, len(txns))
	for _, txn := range txns {
		response = append(response, map[string]any{
			"id":        txn.ID.String(),
			"status":    string(txn.Status),
			"total":     money.String(txn.Total),
			"createdAt": txn.CreatedAt,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       response,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(response)},
	})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PATCH /api/v1/sales/{saleId}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "saleId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	next, err := ParseStatus(req.Status)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status", nil)
		return
	}

	txn, err := h.Engine.TransitionStatus(r.Context(), id, next)
	if err != nil {
		if obs.StatusTransitionTotal != nil {
			obs.StatusTransitionTotal.WithLabelValues(string(next), "rejected").Inc()
		}
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "transaction not found", nil)
		case errors.Is(err, ErrNoStatusChange):
			common.JSONError(w, http.StatusConflict, "NO_STATUS_CHANGE", "transaction already has that status", nil)
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "status update failed", nil)
		}
		return
	}
	if obs.StatusTransitionTotal != nil {
		obs.StatusTransitionTotal.WithLabelValues(string(next), "applied").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":     txn.ID.String(),
		"status": string(txn.Status),
	}})
}

func transactionResponse(txn Transaction) map[string]any {
	lines := make([]map[string]any, 0, len(txn.Lines))
	for _, ln := range txn.Lines {
		lines = append(lines, map[string]any{
			"sku":             ln.SKU,
			"name":            ln.Name,
			"qty":             ln.Qty,
			"unitPrice":       money.String(ln.UnitPrice),
			"discountedPrice": money.String(ln.DiscountedPrice),
			"lineTotal":       money.String(ln.Total),
		})
	}
	return map[string]any{
		"id":         txn.ID.String(),
		"status":     string(txn.Status),
		"lines":      lines,
		"taxPercent": txn.TaxPercent.String(),
		"subtotal":   money.String(txn.Subtotal),
		"tax":        money.String(txn.Tax),
		"total":      money.String(txn.Total),
		"tendered":   money.String(txn.Tendered),
		"change":     money.String(txn.Change),
		"createdAt":  txn.CreatedAt,
	}
}
