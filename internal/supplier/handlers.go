package supplier

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
	"github.com/jobelinc/stocktrack/internal/stock"
)

// Handler exposes supplier and purchase order endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createSupplierRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// CreateSupplier handles POST /api/v1/suppliers.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
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
	sup, err := h.Svc.Store.InsertSupplier(r.Context(), Supplier{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create supplier", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": supplierResponse(sup)})
}

// Suppliers handles GET /api/v1/suppliers.
func (h *Handler) Suppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Svc.Store.ListSuppliers(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list suppliers", nil)
		return
	}
	rows := make([]map[string]any, 0, len(suppliers))
	for _, sup := range suppliers {
		rows = append(rows, supplierResponse(sup))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

type orderLineRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Qty      int    `json:"qty" validate:"required,gt=0"`
	UnitCost string `json:"unit_cost" validate:"required"`
}

type createOrderRequest struct {
	SupplierID string             `json:"supplier_id" validate:"required"`
	Lines      []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CreateOrder handles POST /api/v1/purchase-orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
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
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid supplier id", nil)
		return
	}
	lines := make([]OrderLine, 0, len(req.Lines))
	for _, ln := range req.Lines {
		cost, err := decimal.NewFromString(ln.UnitCost)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unit_cost must be a decimal string", nil)
			return
		}
		lines = append(lines, OrderLine{SKU: ln.SKU, Qty: ln.Qty, UnitCost: cost})
	}

	po, err := h.Svc.CreateOrder(r.Context(), supplierID, lines)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyOrder), errors.Is(err, stock.ErrInvalidQuantity):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create purchase order", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": orderResponse(po)})
}

// Orders handles GET /api/v1/purchase-orders.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	offset := int32((page - 1) * perPage)
	var status *string
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = &raw
	}
	orders, err := h.Svc.Store.ListOrders(r.Context(), status, int32(perPage), offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list purchase orders", nil)
		return
	}
	rows := make([]map[string]any, 0, len(orders))
	for _, po := range orders {
		rows = append(rows, orderResponse(po))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(rows)},
	})
}

// Order handles GET /api/v1/purchase-orders/{orderId}.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	po, err := h.Svc.Store.GetOrder(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orderResponse(po)})
}

// Receive handles POST /api/v1/purchase-orders/{orderId}/receive.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Svc.Receive)
}

// Cancel handles POST /api/v1/purchase-orders/{orderId}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Svc.Cancel)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	po, err := fn(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orderResponse(po)})
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "purchase order not found", nil)
	case errors.Is(err, ErrNoOrderChange):
		common.JSONError(w, http.StatusConflict, "NO_STATUS_CHANGE", "purchase order already has that status", nil)
	case errors.Is(err, ErrInvalidOrderStatus):
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "purchase order operation failed", nil)
	}
}

func supplierResponse(s Supplier) map[string]any {
	return map[string]any{
		"id":    s.ID.String(),
		"name":  s.Name,
		"email": s.Email,
		"phone": s.Phone,
	}
}

func orderResponse(po PurchaseOrder) map[string]any {
	lines := make([]map[string]any, 0, len(po.Lines))
	for _, ln := range po.Lines {
		lines = append(lines, map[string]any{
			"sku":      ln.SKU,
			"qty":      ln.Qty,
			"unitCost": ln.UnitCost.StringFixed(2),
		})
	}
	return map[string]any{
		"id":         po.ID.String(),
		"supplierId": po.SupplierID.String(),
		"status":     string(po.Status),
		"lines":      lines,
		"createdAt":  po.CreatedAt,
	}
}
