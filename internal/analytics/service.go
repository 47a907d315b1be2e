package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobelinc/stocktrack/internal/repo"
	"github.com/jobelinc/stocktrack/internal/tenant"
)

// Querier defines the database access required for analytics operations.
type Querier interface {
	SalesSummaryRange(ctx context.Context, from, to time.Time) (repo.SalesSummary, error)
	TopSKUs(ctx context.Context, from, to time.Time, limit, offset int32) ([]repo.TopSKU, error)
}

// Service provides cached access to sales aggregates.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) cacheKey(ctx context.Context, parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	slug, _ := tenant.From(ctx)
	return tenant.PrefixKey(slug, strings.Join(formatted, ":"))
}

// SalesSummary returns the sales aggregate between the provided bounds,
// inclusive of from and exclusive of to.
func (s *Service) SalesSummary(ctx context.Context, from, to time.Time) (repo.SalesSummary, error) {
	if s == nil || s.Q == nil {
		return repo.SalesSummary{}, fmt.Errorf("analytics service not configured")
	}
	key := s.cacheKey(ctx, "an", "sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached repo.SalesSummary
	if s.load(ctx, key, &cached) {
		return cached, nil
	}
	sum, err := s.Q.SalesSummaryRange(ctx, from, to)
	if err != nil {
		return repo.SalesSummary{}, err
	}
	s.store(ctx, key, sum)
	return sum, nil
}

// TopSKUs returns paginated best-selling SKUs ordered by quantity sold.
func (s *Service) TopSKUs(ctx context.Context, from, to time.Time, limit, offset int32) ([]repo.TopSKU, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := s.cacheKey(ctx, "an", "top", from.Format("2006-01-02"), to.Format("2006-01-02"), limit, offset)
	var cached []repo.TopSKU
	if s.load(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.TopSKUs(ctx, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *Service) load(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
