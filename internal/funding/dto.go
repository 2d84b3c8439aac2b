package funding

import (
	"github.com/congo-pay/wallet_bff/internal/shell"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

// OpenRequest mounts the fund screen. TabBar is the host tab bar at mount time.
type OpenRequest struct {
	Country string              `json:"country"`
	Channel string              `json:"channel"`
	TabBar  *shell.TabBarConfig `json:"tab_bar"`
}

type CountryRequest struct {
	Code string `json:"code"`
}

type ChannelRequest struct {
	Channel string `json:"channel"`
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

// ProviderRequest accepts the provider id as a JSON string or number.
type ProviderRequest struct {
	ProviderID walletapi.ID `json:"provider_id"`
}

type PhoneRequest struct {
	Phone string `json:"phone"`
}

type AccountNameRequest struct {
	AccountName string `json:"account_name"`
}

type PickerRequest struct {
	Picker string `json:"picker"`
}

type KeyRequest struct {
	Key string `json:"key"`
}

type RetryRequest struct {
	Resource string `json:"resource"`
}

// OpenResponse is returned when a screen session is created.
type OpenResponse struct {
	SessionID string       `json:"session_id"`
	Screen    shell.Screen `json:"screen"`
}

// ScreenResponse is returned after every action. Error is set when the action
// was rejected before reaching the wallet API.
type ScreenResponse struct {
	Error  string       `json:"error,omitempty"`
	Screen shell.Screen `json:"screen"`
}

// CloseResponse carries the tab bar configuration restored on unmount.
type CloseResponse struct {
	TabBar shell.TabBarConfig `json:"tab_bar"`
}
