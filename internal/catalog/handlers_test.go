package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/jobelinc/stocktrack/internal/catalog"
	"github.com/jobelinc/stocktrack/internal/money"
	"github.com/jobelinc/stocktrack/internal/pricing"
	"github.com/jobelinc/stocktrack/internal/repo"
	"github.com/jobelinc/stocktrack/internal/stock"
)

type fakeStore struct {
	products map[string]repo.Product
}

func (f *fakeStore) List(_ context.Context, _, _ int32) ([]repo.Product, error) {
	out := make([]repo.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, sku string) (repo.Product, error) {
	p, ok := f.products[sku]
	if !ok {
		return repo.Product{}, repo.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeStore) Upsert(_ context.Context, p repo.Product) error {
	f.products[p.SKU] = p
	return nil
}

func (f *fakeStore) Snapshots(_ context.Context, skus []string) (map[string]pricing.Snapshot, error) {
	out := make(map[string]pricing.Snapshot, len(skus))
	for _, sku := range skus {
		if p, ok := f.products[sku]; ok {
			out[sku] = pricing.Snapshot{SKU: p.SKU, Name: p.Name, UnitCost: p.UnitCost, UnitPrice: p.UnitPrice, DiscountPercent: p.DiscountPercent}
		}
	}
	return out, nil
}

func newHandler() (*catalog.Handler, *fakeStore, *stock.MemoryStore) {
	tenPct := money.MustParse("10")
	store := &fakeStore{products: map[string]repo.Product{
		"SKU-1": {SKU: "SKU-1", Name: "Widget", UnitCost: money.MustParse("6.00"), UnitPrice: money.MustParse("10.00"), DiscountPercent: &tenPct},
	}}
	ledger := stock.NewMemoryStore()
	ledger.Put(stock.Level{SKU: "SKU-1", Quantity: 3, LowStockThreshold: 5})
	svc := &catalog.Service{Store: store, Stock: ledger, Cache: catalog.NewCache(nil, 0)}
	return &catalog.Handler{Service: svc, Validate: validator.New()}, store, ledger
}

func TestProductDetail(t *testing.T) {
	handler, _, _ := newHandler()

	router := chi.NewRouter()
	router.Get("/api/v1/products/{sku}", handler.ProductDetail)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/SKU-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data catalog.Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "10.00", resp.Data.UnitPrice)
	require.Equal(t, "9.00", resp.Data.EffectivePrice)
	require.Equal(t, 3, resp.Data.Quantity)
}

func TestProductDetailNotFound(t *testing.T) {
	handler, _, _ := newHandler()

	router := chi.NewRouter()
	router.Get("/api/v1/products/{sku}", handler.ProductDetail)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/NOPE", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpsertProductRejectsBadDiscount(t *testing.T) {
	handler, store, _ := newHandler()

	router := chi.NewRouter()
	router.Put("/api/v1/products/{sku}", handler.UpsertProduct)

	body := `{"name":"Widget","unit_cost":"6.00","unit_price":"10.00","discount_percent":"150"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/SKU-9", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, exists := store.products["SKU-9"]
	require.False(t, exists)
}

func TestLowStockListing(t *testing.T) {
	handler, _, _ := newHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/low", nil)
	rec := httptest.NewRecorder()
	handler.LowStock(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []stock.Level `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "SKU-1", resp.Data[0].SKU)
}
