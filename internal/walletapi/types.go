package walletapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_bff/internal/channel"
)

// ID is a backend identifier that may arrive as a JSON string or number. It is
// re-encoded with the JSON type it was received with.
type ID struct {
	value   string
	numeric bool
}

// NewID builds a string identifier.
func NewID(s string) ID { return ID{value: strings.TrimSpace(s)} }

// NumericID builds an identifier that encodes as a JSON number.
func NumericID(s string) ID { return ID{value: strings.TrimSpace(s), numeric: true} }

func (id ID) String() string { return id.value }

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool { return id.value == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.value == "" {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts strings and numbers; any other JSON value leaves the
// identifier empty rather than failing the surrounding document.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*id = ID{}
	if len(b) == 0 {
		return nil
	}
	switch c := b[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = NewID(s)
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = NumericID(n.String())
	}
	return nil
}

// Country is a selectable deposit country.
type Country struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
	Flag string `json:"flag"`
}

// Balance is a fiat wallet balance in one currency.
type Balance struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// Provider is a mobile-money operator available for a (country, currency).
type Provider struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// BankDetails is the collection account a bank transfer deposit is paid into.
// Reference is only known once a deposit has been initiated.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Reference     string `json:"reference,omitempty"`
}

// PINStatus is what the backend explicitly reports about a transaction PIN.
type PINStatus string

const (
	PINStatusUnknown PINStatus = "unknown"
	PINStatusSet     PINStatus = "set"
	PINStatusNotSet  PINStatus = "not_set"
)

// User is the authenticated profile.
type User struct {
	ID                ID     `json:"id"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	HasPIN            *bool  `json:"hasPin,omitempty"`
	PINSet            *bool  `json:"pinSet,omitempty"`
	TransactionPINSet *bool  `json:"transactionPinSet,omitempty"`
}

// PINStatus only trusts explicit boolean flags; without one the status is
// unknown and the confirm/initiate error decides.
func (u User) PINStatus() PINStatus {
	for _, flag := range []*bool{u.HasPIN, u.PINSet, u.TransactionPINSet} {
		if flag == nil {
			continue
		}
		if *flag {
			return PINStatusSet
		}
		return PINStatusNotSet
	}
	return PINStatusUnknown
}

// InitiateRequest starts a deposit. ProviderID is required for mobile money
// and never sent for bank transfers.
type InitiateRequest struct {
	Amount      string       `json:"amount"`
	Currency    string       `json:"currency"`
	CountryCode string       `json:"countryCode"`
	Channel     channel.Kind `json:"channel"`
	ProviderID  *ID          `json:"providerId,omitempty"`
}

// InitiateResult is what the client could extract from an initiate response.
// TransactionID is empty when the response carried no identifier.
type InitiateResult struct {
	TransactionID ID
	Reference     string
	Amount        decimal.NullDecimal
	Fee           decimal.NullDecimal
	Status        string
	Message       string
}

// ConfirmRequest finalizes a pending deposit with the user's PIN.
type ConfirmRequest struct {
	TransactionID ID     `json:"transactionId"`
	PIN           string `json:"pin"`
}

// ConfirmResult is what the client could extract from a confirm response.
type ConfirmResult struct {
	TransactionID ID
	Reference     string
	Amount        decimal.NullDecimal
	Fee           decimal.NullDecimal
	Status        string
	Message       string
}

// Receipt is the stored record of a completed deposit.
type Receipt struct {
	TransactionID ID                  `json:"transactionId"`
	Reference     string              `json:"reference"`
	Amount        decimal.NullDecimal `json:"amount"`
	Fee           decimal.NullDecimal `json:"fee"`
	Currency      string              `json:"currency"`
	Channel       string              `json:"channel"`
	Status        string              `json:"status"`
	CreatedAt     string              `json:"createdAt"`
}

// txEcho holds the places a deposit response may carry transaction fields.
type txEcho struct {
	TransactionID      ID              `json:"transactionId"`
	TransactionIDSnake ID              `json:"transaction_id"`
	ID                 ID              `json:"id"`
	Reference          string          `json:"reference"`
	Amount             json.RawMessage `json:"amount"`
	Fee                json.RawMessage `json:"fee"`
	Status             string          `json:"status"`
}

type txPayload struct {
	txEcho
	Transaction *txEcho `json:"transaction"`
	BankDetails *struct {
		Reference string `json:"reference"`
	} `json:"bankDetails"`
}

func (p txPayload) transactionID(env ID) ID {
	candidates := []ID{p.TransactionID, p.TransactionIDSnake, p.ID}
	if p.Transaction != nil {
		candidates = append(candidates, p.Transaction.ID, p.Transaction.TransactionID)
	}
	candidates = append(candidates, env)
	for _, id := range candidates {
		if !id.IsZero() {
			return id
		}
	}
	return ID{}
}

func (p txPayload) reference() string {
	if p.Reference != "" {
		return p.Reference
	}
	if p.Transaction != nil && p.Transaction.Reference != "" {
		return p.Transaction.Reference
	}
	if p.BankDetails != nil {
		return p.BankDetails.Reference
	}
	return ""
}

func (p txPayload) amount() decimal.NullDecimal {
	if v := parseAmount(p.Amount); v.Valid {
		return v
	}
	if p.Transaction != nil {
		return parseAmount(p.Transaction.Amount)
	}
	return decimal.NullDecimal{}
}

func (p txPayload) fee() decimal.NullDecimal {
	if v := parseAmount(p.Fee); v.Valid {
		return v
	}
	if p.Transaction != nil {
		return parseAmount(p.Transaction.Fee)
	}
	return decimal.NullDecimal{}
}

func (p txPayload) status() string {
	if p.Status == "" && p.Transaction != nil {
		return p.Transaction.Status
	}
	return p.Status
}

// parseAmount reads a string or number amount; anything unparseable is treated
// as absent.
func parseAmount(raw json.RawMessage) decimal.NullDecimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.NullDecimal{}
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.NullDecimal{}
		}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
