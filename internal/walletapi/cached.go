package walletapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/congo-pay/wallet_bff/internal/querycache"
)

// Cached serves the read accessors from a querycache.Store scoped to the
// client's bearer token. Mutations always go to the backend and failures are
// never cached.
type Cached struct {
	client *Client
	store  querycache.Store
	ttl    time.Duration
	scope  string
	logger *slog.Logger
}

// NewCached wraps client. A nil store disables caching.
func NewCached(client *Client, store querycache.Store, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		client: client,
		store:  store,
		ttl:    ttl,
		scope:  scopeOf(client.Token()),
		logger: logger,
	}
}

func scopeOf(token string) string {
	if token == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *Cached) key(parts ...string) string {
	return "wallet:" + c.scope + ":" + strings.Join(parts, ":")
}

func cachedFetch[T any](ctx context.Context, c *Cached, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c.store == nil || c.ttl <= 0 {
		return fetch(ctx)
	}
	var cached T
	hit, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("query cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if hit {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("query cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return value, nil
}

func (c *Cached) Countries(ctx context.Context) ([]Country, error) {
	return cachedFetch(ctx, c, c.key("countries"), c.client.Countries)
}

func (c *Cached) Balances(ctx context.Context) ([]Balance, error) {
	return cachedFetch(ctx, c, c.key("balances"), c.client.Balances)
}

// RefreshBalances drops the cached balances and fetches them again.
func (c *Cached) RefreshBalances(ctx context.Context) ([]Balance, error) {
	if c.store != nil {
		if err := c.store.Delete(ctx, c.key("balances")); err != nil {
			c.logger.Warn("query cache invalidation failed", slog.Any("error", err))
		}
	}
	return c.Balances(ctx)
}

func (c *Cached) Providers(ctx context.Context, countryCode, currency string) ([]Provider, error) {
	return cachedFetch(ctx, c, c.key("providers", countryCode, currency), func(ctx context.Context) ([]Provider, error) {
		return c.client.Providers(ctx, countryCode, currency)
	})
}

func (c *Cached) BankDetails(ctx context.Context, countryCode, currency string) (BankDetails, error) {
	return cachedFetch(ctx, c, c.key("bank_details", countryCode, currency), func(ctx context.Context) (BankDetails, error) {
		return c.client.BankDetails(ctx, countryCode, currency)
	})
}

func (c *Cached) CurrentUser(ctx context.Context) (User, error) {
	return cachedFetch(ctx, c, c.key("me"), c.client.CurrentUser)
}

func (c *Cached) InitiateDeposit(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	return c.client.InitiateDeposit(ctx, req)
}

func (c *Cached) ConfirmDeposit(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	return c.client.ConfirmDeposit(ctx, req)
}

func (c *Cached) Receipt(ctx context.Context, id ID) (Receipt, error) {
	return c.client.Receipt(ctx, id)
}
