package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jobelinc/stocktrack/internal/common"
	"github.com/jobelinc/stocktrack/internal/money"
	"github.com/jobelinc/stocktrack/internal/pricing"
	"github.com/jobelinc/stocktrack/internal/repo"
	"github.com/jobelinc/stocktrack/internal/stock"
	"github.com/jobelinc/stocktrack/internal/tenant"
)

// Store is the catalog persistence contract.
type Store interface {
	List(ctx context.Context, limit, offset int32) ([]repo.Product, error)
	Get(ctx context.Context, sku string) (repo.Product, error)
	Upsert(ctx context.Context, p repo.Product) error
	Snapshots(ctx context.Context, skus []string) (map[string]pricing.Snapshot, error)
}

// StockView exposes the ledger reads the catalog surfaces.
type StockView interface {
	Levels(ctx context.Context, skus []string) (map[string]stock.Level, error)
	LowStock(ctx context.Context, limit, offset int32) ([]stock.Level, error)
}

// Item is the public catalog payload for one SKU. Prices are fixed-point
// strings so clients never see binary floats.
type Item struct {
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	UnitPrice       string  `json:"unit_price"`
	DiscountPercent *string `json:"discount_percent,omitempty"`
	EffectivePrice  string  `json:"effective_price"`
	Quantity        int     `json:"quantity"`
	OutOfStock      bool    `json:"out_of_stock"`
}

// Service assembles catalog DTOs with a Redis JSON cache in front. It is
// also the SnapshotSource the sale engine prices from.
type Service struct {
	Store Store
	Stock StockView
	Cache *Cache
}

// List returns the tenant catalog page with live stock levels. Only the
// first unfiltered page is cached, mirroring how storefront traffic skews.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]Item, error) {
	key := ""
	if offset == 0 {
		slug, _ := tenant.From(ctx)
		key = tenant.PrefixKey(slug, fmt.Sprintf("catalog:list:%d", limit))
		var cached []Item
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	products, err := s.Store.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	skus := make([]string, 0, len(products))
	for _, p := range products {
		skus = append(skus, p.SKU)
	}
	levels, err := s.Stock.Levels(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("stock levels: %w", err)
	}

	items := make([]Item, 0, len(products))
	for _, p := range products {
		item, err := buildItem(p, levels[p.SKU])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if key != "" {
		_ = s.Cache.SetJSON(ctx, key, items)
	}
	return items, nil
}

// Get returns one catalog item by SKU.
func (s *Service) Get(ctx context.Context, sku string) (Item, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Item{}, &common.AppError{Code: "BAD_REQUEST", Message: "sku is required", HTTPStatus: http.StatusBadRequest}
	}
	p, err := s.Store.Get(ctx, sku)
	if err != nil {
		if errors.Is(err, repo.ErrProductNotFound) {
			return Item{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return Item{}, err
	}
	levels, err := s.Stock.Levels(ctx, []string{sku})
	if err != nil {
		return Item{}, err
	}
	return buildItem(p, levels[sku])
}

// Upsert writes a catalog row and invalidates the tenant list cache.
func (s *Service) Upsert(ctx context.Context, p repo.Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return &common.AppError{Code: "BAD_REQUEST", Message: "sku is required", HTTPStatus: http.StatusBadRequest}
	}
	if _, err := pricing.ApplyDiscount(p.UnitPrice, p.DiscountPercent); err != nil {
		return &common.AppError{Code: "BAD_REQUEST", Message: "discount percent out of range", HTTPStatus: http.StatusBadRequest, Err: err}
	}
	if err := s.Store.Upsert(ctx, p); err != nil {
		return err
	}
	s.invalidateList(ctx)
	return nil
}

// Snapshots implements the sale engine's SnapshotSource. It always reads the
// store, never the cache: commits price from the catalog of record.
func (s *Service) Snapshots(ctx context.Context, skus []string) (map[string]pricing.Snapshot, error) {
	return s.Store.Snapshots(ctx, skus)
}

// LowStock lists SKUs at or under their threshold for the back office.
func (s *Service) LowStock(ctx context.Context, limit, offset int32) ([]stock.Level, error) {
	return s.Stock.LowStock(ctx, limit, offset)
}

func (s *Service) invalidateList(ctx context.Context) {
	if s.Cache == nil || s.Cache.client == nil {
		return
	}
	slug, _ := tenant.From(ctx)
	// Common page sizes; a missed size just expires via TTL.
	for _, limit := range []int32{10, 20, 50, 100} {
		_ = s.Cache.client.Del(ctx, tenant.PrefixKey(slug, fmt.Sprintf("catalog:list:%d", limit))).Err()
	}
}

func buildItem(p repo.Product, lvl stock.Level) (Item, error) {
	effective, err := pricing.ApplyDiscount(p.UnitPrice, p.DiscountPercent)
	if err != nil {
		return Item{}, err
	}
	item := Item{
		SKU:            p.SKU,
		Name:           p.Name,
		UnitPrice:      money.String(p.UnitPrice),
		EffectivePrice: money.String(effective),
		Quantity:       lvl.Quantity,
		OutOfStock:     lvl.OutOfStock || lvl.SKU == "",
	}
	if p.DiscountPercent != nil {
		d := p.DiscountPercent.String()
		item.DiscountPercent = &d
	}
	return item, nil
}
