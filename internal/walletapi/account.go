package walletapi

import (
	"context"
	"encoding/json"
	"net/http"
)

// Countries lists the countries deposits can be made from.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, "countries", "/countries", nil, nil, &raw); err != nil {
		return nil, err
	}
	var countries []Country
	if err := decodeList(raw, "countries", &countries); err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: invalidMessage, Err: err}
	}
	return countries, nil
}

// Balances lists the user's fiat balances per currency.
func (c *Client) Balances(ctx context.Context) ([]Balance, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, "wallet.balances", "/wallet/balances", nil, nil, &raw); err != nil {
		return nil, err
	}
	var balances []Balance
	if err := decodeList(raw, "balances", &balances); err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: invalidMessage, Err: err}
	}
	return balances, nil
}

// RefreshBalances is Balances; the uncached client never serves stale data.
func (c *Client) RefreshBalances(ctx context.Context) ([]Balance, error) {
	return c.Balances(ctx)
}

// CurrentUser fetches the authenticated profile.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	_, err := c.do(ctx, http.MethodGet, "users.me", "/users/me", nil, nil, &user)
	return user, err
}
