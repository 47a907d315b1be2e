package sale_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/jobelinc/stocktrack/internal/money"
	"github.com/jobelinc/stocktrack/internal/sale"
	"github.com/jobelinc/stocktrack/internal/stock"
)

func newRouter(levels ...stock.Level) (*chi.Mux, *sale.MemoryStore) {
	eng, _, store := newEngine(levels...)
	handler := &sale.Handler{
		Engine:     eng,
		Lister:     store,
		Validate:   validator.New(),
		DefaultTax: money.MustParse("5"),
	}
	router := chi.NewRouter()
	router.Post("/api/v1/sales", handler.Commit)
	router.Get("/api/v1/sales", handler.List)
	router.Get("/api/v1/sales/{saleId}", handler.Get)
	router.Patch("/api/v1/sales/{saleId}/status", handler.UpdateStatus)
	return router, store
}

func TestCommitEndpoint(t *testing.T) {
	router, _ := newRouter(stock.Level{SKU: "SKU-1", Quantity: 10})

	body := `{"lines":[{"sku":"SKU-1","qty":2}],"tendered":"20.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Total  string `json:"total"`
			Change string `json:"change"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "pending", resp.Data.Status)
	require.Equal(t, "18.90", resp.Data.Total)
	require.Equal(t, "1.10", resp.Data.Change)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/sales/"+resp.Data.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCommitEndpointInsufficientStock(t *testing.T) {
	router, _ := newRouter(stock.Level{SKU: "SKU-1", Quantity: 1})

	body := `{"lines":[{"sku":"SKU-1","qty":5}],"tendered":"100.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				SKU       string `json:"sku"`
				Requested int    `json:"requested"`
				Available int    `json:"available"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	require.Equal(t, "SKU-1", resp.Error.Details.SKU)
	require.Equal(t, 5, resp.Error.Details.Requested)
	require.Equal(t, 1, resp.Error.Details.Available)
}

func TestCommitEndpointRejectsEmptyBasket(t *testing.T) {
	router, _ := newRouter()

	body := `{"lines":[],"tendered":"10.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	router, _ := newRouter(stock.Level{SKU: "SKU-1", Quantity: 10})

	body := `{"lines":[{"sku":"SKU-1","qty":1}],"tendered":"100.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	patch := func(status string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch,
			"/api/v1/sales/"+created.Data.ID+"/status",
			strings.NewReader(`{"status":"`+status+`"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusConflict, patch("pending").Code)
	require.Equal(t, http.StatusConflict, patch("delivered").Code)
	require.Equal(t, http.StatusBadRequest, patch("shipped").Code)
	require.Equal(t, http.StatusOK, patch("out_for_delivery").Code)
	require.Equal(t, http.StatusOK, patch("delivered").Code)
}

func TestListEndpointFiltersByStatus(t *testing.T) {
	router, _ := newRouter(stock.Level{SKU: "SKU-1", Quantity: 10})

	for i := 0; i < 3; i++ {
		body := `{"lines":[{"sku":"SKU-1","qty":1}],"tendered":"100.00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales?status=pending", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	for _, row := range resp.Data {
		require.Equal(t, "pending", row.Status)
	}
}
