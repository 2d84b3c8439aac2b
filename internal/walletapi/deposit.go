package walletapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/congo-pay/wallet_bff/internal/channel"
)

// PINLength is the number of digits in a transaction PIN.
const PINLength = 5

var (
	// ErrInvalidPIN is returned before any request when the PIN is not exactly
	// PINLength decimal digits.
	ErrInvalidPIN = errors.New("PIN must be exactly 5 digits")
	// ErrProviderRequired is returned for mobile money initiations without a provider.
	ErrProviderRequired = errors.New("mobile money provider is required")
	// ErrMissingTransactionID is returned when confirming without an identifier.
	ErrMissingTransactionID = errors.New("transaction id is required")
)

// ValidPIN reports whether pin is exactly PINLength ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != PINLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// InitiateDeposit creates a pending deposit. The returned result may carry an
// empty TransactionID when the backend response had none.
func (c *Client) InitiateDeposit(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	switch req.Channel {
	case channel.MobileMoney:
		if req.ProviderID == nil || req.ProviderID.IsZero() {
			return InitiateResult{}, ErrProviderRequired
		}
	case channel.BankTransfer:
		req.ProviderID = nil
	}

	var raw json.RawMessage
	env, err := c.do(ctx, http.MethodPost, "deposit.initiate", "/wallet/deposit/initiate", nil, req, &raw)
	if err != nil {
		return InitiateResult{}, err
	}
	// An unusable data payload leaves the transaction id empty; the caller
	// reports the missing id.
	var payload txPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.logger.Warn("initiate response data not understood", slog.Any("error", err))
		}
	}
	return InitiateResult{
		TransactionID: payload.transactionID(env.TransactionID),
		Reference:     payload.reference(),
		Amount:        payload.amount(),
		Fee:           payload.fee(),
		Status:        payload.status(),
		Message:       env.message(),
	}, nil
}

// ConfirmDeposit finalizes a pending deposit with the user's PIN.
func (c *Client) ConfirmDeposit(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	if req.TransactionID.IsZero() {
		return ConfirmResult{}, ErrMissingTransactionID
	}
	if !ValidPIN(req.PIN) {
		return ConfirmResult{}, ErrInvalidPIN
	}

	var payload txPayload
	env, err := c.do(ctx, http.MethodPost, "deposit.confirm", "/wallet/deposit/confirm", nil, req, &payload)
	if err != nil {
		return ConfirmResult{}, err
	}
	id := payload.transactionID(env.TransactionID)
	if id.IsZero() {
		id = req.TransactionID
	}
	return ConfirmResult{
		TransactionID: id,
		Reference:     payload.reference(),
		Amount:        payload.amount(),
		Fee:           payload.fee(),
		Status:        payload.status(),
		Message:       env.message(),
	}, nil
}

// BankDetails fetches the collection account for a (country, currency).
func (c *Client) BankDetails(ctx context.Context, countryCode, currency string) (BankDetails, error) {
	var details BankDetails
	_, err := c.do(ctx, http.MethodGet, "deposit.bank_details", "/wallet/deposit/bank-details",
		url.Values{"countryCode": {countryCode}, "currency": {currency}}, nil, &details)
	return details, err
}

// Providers lists the mobile-money providers for a (country, currency).
func (c *Client) Providers(ctx context.Context, countryCode, currency string) ([]Provider, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, http.MethodGet, "deposit.providers", "/wallet/deposit/mobile-money/providers",
		url.Values{"countryCode": {countryCode}, "currency": {currency}}, nil, &raw)
	if err != nil {
		return nil, err
	}
	var providers []Provider
	if err := decodeList(raw, "providers", &providers); err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: invalidMessage, Err: err}
	}
	return providers, nil
}

// Receipt fetches the receipt of a completed deposit.
func (c *Client) Receipt(ctx context.Context, id ID) (Receipt, error) {
	if id.IsZero() {
		return Receipt{}, ErrMissingTransactionID
	}
	var receipt Receipt
	_, err := c.do(ctx, http.MethodGet, "deposit.receipt", "/wallet/deposit/receipt/"+url.PathEscape(id.String()), nil, nil, &receipt)
	if err != nil {
		return Receipt{}, err
	}
	if receipt.TransactionID.IsZero() {
		receipt.TransactionID = id
	}
	return receipt, nil
}

// decodeList accepts either a bare array or an object wrapping the array under key.
func decodeList(raw json.RawMessage, key string, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return err
		}
		inner, ok := wrapped[key]
		if !ok {
			return nil
		}
		raw = inner
	}
	return json.Unmarshal(raw, dst)
}
