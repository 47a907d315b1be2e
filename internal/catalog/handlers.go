package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/common"
	"github.com/jobelinc/stocktrack/internal/repo"
	"github.com/jobelinc/stocktrack/internal/stock"
)

// StockWriter sets shelf quantities directly, bypassing the purchase flow.
type StockWriter interface {
	UpsertLevel(ctx context.Context, lvl stock.Level) error
}

// Handler exposes catalog endpoints.
type Handler struct {
	Service  *Service
	Stock    StockWriter
	Validate *validator.Validate
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	offset := int32((page - 1) * perPage)
	items, err := h.Service.List(r.Context(), int32(perPage), offset)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(items)},
	})
}

// ProductDetail handles GET /api/v1/products/{sku}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

type upsertProductRequest struct {
	SKU             string  `json:"sku" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	UnitCost        string  `json:"unit_cost" validate:"required"`
	UnitPrice       string  `json:"unit_price" validate:"required"`
	DiscountPercent *string `json:"discount_percent"`
}

// UpsertProduct handles PUT /api/v1/products/{sku}.
func (h *Handler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req upsertProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	req.SKU = chi.URLParam(r, "sku")
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	p := repo.Product{SKU: req.SKU, Name: req.Name}
	var err error
	if p.UnitCost, err = decimal.NewFromString(req.UnitCost); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unit_cost must be a decimal string", nil)
		return
	}
	if p.UnitPrice, err = decimal.NewFromString(req.UnitPrice); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unit_price must be a decimal string", nil)
		return
	}
	if req.DiscountPercent != nil {
		d, err := decimal.NewFromString(*req.DiscountPercent)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "discount_percent must be a decimal string", nil)
			return
		}
		p.DiscountPercent = &d
	}
	if err := h.Service.Upsert(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"sku": p.SKU}})
}

type upsertStockRequest struct {
	Quantity          int `json:"quantity" validate:"gte=0"`
	LowStockThreshold int `json:"low_stock_threshold" validate:"gte=0"`
}

// UpsertStockLevel handles PUT /api/v1/stock/{sku}. It is the back-office
// stock correction: receiving purchase orders is the usual way in.
func (h *Handler) UpsertStockLevel(w http.ResponseWriter, r *http.Request) {
	if h.Stock == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "stock writer not configured", nil)
		return
	}
	var req upsertStockRequest
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
	sku := chi.URLParam(r, "sku")
	lvl := stock.Level{
		SKU:               sku,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		OutOfStock:        req.Quantity == 0,
	}
	if err := h.Stock.UpsertLevel(r.Context(), lvl); err != nil {
		writeError(w, err)
		return
	}
	h.Service.invalidateList(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": lvl})
}

// LowStock handles GET /api/v1/stock/low.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	offset := int32((page - 1) * perPage)
	levels, err := h.Service.LowStock(r.Context(), int32(perPage), offset)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": levels})
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		message := appErr.Message
		if message == "" {
			message = "internal error"
		}
		common.JSONError(w, status, code, message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
