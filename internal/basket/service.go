package basket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobelinc/stocktrack/internal/sale"
	"github.com/jobelinc/stocktrack/internal/tenant"
)

// ErrNotFound indicates the requested basket could not be located.
var ErrNotFound = errors.New("basket not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Basket is a draft sale held in Redis until the client commits it. It is
// ephemeral: every write refreshes the TTL and an idle basket simply expires.
type Basket struct {
	ID        string            `json:"id"`
	Lines     []sale.BasketLine `json:"lines"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Service stores draft baskets in Redis keyed by a client-supplied id.
type Service struct {
	R   *redis.Client
	TTL time.Duration
	Now func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) key(ctx context.Context, id string) string {
	slug, _ := tenant.From(ctx)
	return tenant.PrefixKey(slug, "basket:"+id)
}

// Get loads a basket by id.
func (s *Service) Get(ctx context.Context, id string) (Basket, error) {
	if s == nil || s.R == nil {
		return Basket{}, errors.New("basket service not configured")
	}
	if strings.TrimSpace(id) == "" {
		return Basket{}, fmt.Errorf("basket id required: %w", ErrInvalidInput)
	}
	data, err := s.R.Get(ctx, s.key(ctx, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Basket{}, ErrNotFound
	}
	if err != nil {
		return Basket{}, err
	}
	var b Basket
	if err := json.Unmarshal(data, &b); err != nil {
		return Basket{}, err
	}
	return b, nil
}

// SetLine sets the quantity for one SKU, creating the basket when absent.
// A zero quantity removes the line; an empty basket is deleted outright.
func (s *Service) SetLine(ctx context.Context, id, sku string, qty int) (Basket, error) {
	if s == nil || s.R == nil {
		return Basket{}, errors.New("basket service not configured")
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(sku) == "" {
		return Basket{}, fmt.Errorf("basket id and sku required: %w", ErrInvalidInput)
	}
	if qty < 0 {
		return Basket{}, fmt.Errorf("qty must not be negative: %w", ErrInvalidInput)
	}

	b, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		b = Basket{ID: id}
	} else if err != nil {
		return Basket{}, err
	}

	lines := make([]sale.BasketLine, 0, len(b.Lines)+1)
	found := false
	for _, ln := range b.Lines {
		if ln.SKU == sku {
			found = true
			if qty > 0 {
				lines = append(lines, sale.BasketLine{SKU: sku, Qty: qty})
			}
			continue
		}
		lines = append(lines, ln)
	}
	if !found && qty > 0 {
		lines = append(lines, sale.BasketLine{SKU: sku, Qty: qty})
	}
	b.Lines = lines
	b.UpdatedAt = s.now()

	if len(b.Lines) == 0 {
		return b, s.Clear(ctx, id)
	}
	return b, s.store(ctx, b)
}

// Clear deletes a basket.
func (s *Service) Clear(ctx context.Context, id string) error {
	if s == nil || s.R == nil {
		return errors.New("basket service not configured")
	}
	return s.R.Del(ctx, s.key(ctx, id)).Err()
}

func (s *Service) store(ctx context.Context, b Basket) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, s.key(ctx, b.ID), data, s.ttl()).Err()
}
