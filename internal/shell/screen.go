// Package shell renders the fund screen from a deposit snapshot. It holds no
// workflow logic: which modal is open and what the submit button does follow
// from the controller phase.
package shell

import (
	"strings"

	"github.com/congo-pay/wallet_bff/internal/channel"
	"github.com/congo-pay/wallet_bff/internal/deposit"
	"github.com/congo-pay/wallet_bff/internal/money"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

// Submit button labels.
const (
	LabelProcessing   = "Processing..."
	LabelTransferMade = "I've Made the Transfer"
	LabelContinue     = "Continue"
)

// Modal kinds.
const (
	ModalProviderPicker = "provider_picker"
	ModalCountryPicker  = "country_picker"
	ModalPinPad         = "pin_pad"
	ModalReceipt        = "receipt"
)

// Pickers a client may open.
const (
	PickerNone     = ""
	PickerProvider = "provider"
	PickerCountry  = "country"
)

// Actions offered on a notice.
const (
	ActionDismiss  = "dismiss"
	ActionRetry    = "retry"
	ActionSetupPIN = deposit.ActionSetupPIN
)

// View is presentation-only state kept next to the controller.
type View struct {
	Picker string
	TabBar TabBarConfig
}

type Screen struct {
	Phase         deposit.Phase     `json:"phase"`
	Country       CountryView       `json:"country"`
	Currency      string            `json:"currency"`
	Symbol        string            `json:"symbol"`
	Amount        string            `json:"amount"`
	AmountDisplay string            `json:"amount_display,omitempty"`
	Balance       *BalanceView      `json:"balance,omitempty"`
	Channels      []ChannelOption   `json:"channels"`
	Bank          *BankPanel        `json:"bank,omitempty"`
	MobileMoney   *MobileMoneyPanel `json:"mobile_money,omitempty"`
	Submit        Button            `json:"submit"`
	Modal         *Modal            `json:"modal,omitempty"`
	Notice        *NoticeView       `json:"notice,omitempty"`
	TabBar        TabBarConfig      `json:"tab_bar"`
}

type CountryView struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Flag string `json:"flag,omitempty"`
}

type BalanceView struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type ChannelOption struct {
	Kind     channel.Kind `json:"kind"`
	Label    string       `json:"label"`
	Selected bool         `json:"selected"`
}

type BankPanel struct {
	Loading           bool   `json:"loading"`
	Loaded            bool   `json:"loaded"`
	BankName          string `json:"bank_name,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	AccountName       string `json:"account_name,omitempty"`
	Reference         string `json:"reference,omitempty"`
	SenderAccountName string `json:"sender_account_name,omitempty"`
}

type ProviderView struct {
	ID       walletapi.ID `json:"id"`
	Name     string       `json:"name"`
	Code     string       `json:"code,omitempty"`
	Selected bool         `json:"selected"`
}

type MobileMoneyPanel struct {
	Loading   bool           `json:"loading"`
	Loaded    bool           `json:"loaded"`
	Providers []ProviderView `json:"providers"`
	Provider  *ProviderView  `json:"provider,omitempty"`
	Phone     string         `json:"phone"`
}

// Button is the primary action. Action names the route the client calls.
type Button struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Action  string `json:"action"`
}

type Modal struct {
	Kind      string         `json:"kind"`
	Countries []CountryView  `json:"countries,omitempty"`
	Providers []ProviderView `json:"providers,omitempty"`
	PinPad    *PinPad        `json:"pin_pad,omitempty"`
	Receipt   *ReceiptView   `json:"receipt,omitempty"`
}

// PinPad never carries the digits, only how many were entered.
type PinPad struct {
	Length int      `json:"length"`
	Filled int      `json:"filled"`
	Busy   bool     `json:"busy"`
	Keys   []string `json:"keys"`
}

type ReceiptView struct {
	TransactionID walletapi.ID `json:"transaction_id"`
	Reference     string       `json:"reference,omitempty"`
	Channel       string       `json:"channel"`
	Provider      string       `json:"provider,omitempty"`
	Amount        string       `json:"amount"`
	Fee           string       `json:"fee,omitempty"`
	Status        string       `json:"status,omitempty"`
	CreatedAt     string       `json:"created_at,omitempty"`
	Loading       bool         `json:"loading"`
}

type NoticeView struct {
	Kind    deposit.ErrorKind `json:"kind"`
	Message string            `json:"message"`
	Retry   string            `json:"retry,omitempty"`
	Actions []string          `json:"actions"`
}

var pinKeys = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", deposit.KeyBackspace}

// Render builds the screen for a snapshot.
func Render(s deposit.Snapshot, v View) Screen {
	screen := Screen{
		Phase:    s.Phase,
		Country:  countryView(s),
		Currency: s.Currency,
		Symbol:   s.Symbol,
		Amount:   s.Amount,
		TabBar:   v.TabBar,
	}
	if d, err := money.Parse(s.Amount); err == nil {
		screen.AmountDisplay = money.Display(s.Symbol, d)
	}
	for _, b := range s.Balances.Data {
		if strings.EqualFold(b.Currency, s.Currency) {
			screen.Balance = &BalanceView{Currency: b.Currency, Amount: money.Display(s.Symbol, b.Balance)}
			break
		}
	}

	var kind channel.Kind
	switch ch := s.Channel.(type) {
	case deposit.BankTransfer:
		kind = ch.Kind()
		screen.Bank = bankPanel(ch)
	case deposit.MobileMoney:
		kind = ch.Kind()
		screen.MobileMoney = mobileMoneyPanel(ch)
	}
	for _, k := range []channel.Kind{channel.BankTransfer, channel.MobileMoney} {
		screen.Channels = append(screen.Channels, ChannelOption{Kind: k, Label: k.Label(), Selected: k == kind})
	}

	screen.Submit = submitButton(s)
	screen.Modal = modal(s, v, screen.MobileMoney)
	if s.Notice != nil {
		screen.Notice = noticeView(*s.Notice)
	}
	return screen
}

func countryView(s deposit.Snapshot) CountryView {
	view := CountryView{Code: s.Country}
	for _, c := range s.Countries.Data {
		if strings.EqualFold(c.Code, s.Country) {
			view.Name = c.Name
			view.Flag = c.Flag
			break
		}
	}
	return view
}

func bankPanel(ch deposit.BankTransfer) *BankPanel {
	d := ch.Details.Data
	return &BankPanel{
		Loading:           ch.Details.Loading,
		Loaded:            ch.Details.Loaded,
		BankName:          d.BankName,
		AccountNumber:     d.AccountNumber,
		AccountName:       d.AccountName,
		Reference:         d.Reference,
		SenderAccountName: ch.AccountName,
	}
}

func mobileMoneyPanel(ch deposit.MobileMoney) *MobileMoneyPanel {
	panel := &MobileMoneyPanel{
		Loading:   ch.Providers.Loading,
		Loaded:    ch.Providers.Loaded,
		Providers: make([]ProviderView, 0, len(ch.Providers.Data)),
		Phone:     ch.Phone,
	}
	for _, p := range ch.Providers.Data {
		view := ProviderView{ID: p.ID, Name: p.Name, Code: p.Code}
		if ch.Provider != nil && ch.Provider.ID.String() == p.ID.String() {
			view.Selected = true
			selected := view
			panel.Provider = &selected
		}
		panel.Providers = append(panel.Providers, view)
	}
	return panel
}

func submitButton(s deposit.Snapshot) Button {
	switch s.Phase {
	case deposit.PhaseInitiating:
		return Button{Label: LabelProcessing, Action: "submit"}
	case deposit.PhaseAwaitingTransfer:
		enabled := s.Pending != nil && s.Pending.Reference != ""
		return Button{Label: LabelTransferMade, Enabled: enabled, Action: "transfer-made"}
	case deposit.PhaseAwaitingPIN, deposit.PhaseConfirming, deposit.PhaseSuccess:
		return Button{Label: LabelContinue, Action: "submit"}
	}
	return Button{Label: LabelContinue, Enabled: s.Ready, Action: "submit"}
}

func modal(s deposit.Snapshot, v View, mm *MobileMoneyPanel) *Modal {
	switch s.Phase {
	case deposit.PhaseAwaitingPIN, deposit.PhaseConfirming:
		return &Modal{Kind: ModalPinPad, PinPad: &PinPad{
			Length: walletapi.PINLength,
			Filled: s.PINDigits,
			Busy:   s.Phase == deposit.PhaseConfirming,
			Keys:   pinKeys,
		}}
	case deposit.PhaseSuccess:
		if s.Completed != nil {
			return &Modal{Kind: ModalReceipt, Receipt: receiptView(s)}
		}
	case deposit.PhaseInitiating, deposit.PhaseAwaitingTransfer:
		return nil
	}

	switch v.Picker {
	case PickerProvider:
		if mm == nil {
			return nil
		}
		return &Modal{Kind: ModalProviderPicker, Providers: mm.Providers}
	case PickerCountry:
		countries := make([]CountryView, 0, len(s.Countries.Data))
		for _, c := range s.Countries.Data {
			countries = append(countries, CountryView{Code: c.Code, Name: c.Name, Flag: c.Flag})
		}
		return &Modal{Kind: ModalCountryPicker, Countries: countries}
	}
	return nil
}

func receiptView(s deposit.Snapshot) *ReceiptView {
	done := s.Completed
	symbol := channel.SymbolForCountry(s.Country)
	if done.Currency != "" && !strings.EqualFold(done.Currency, s.Currency) {
		symbol = done.Currency + " "
	}
	view := &ReceiptView{
		TransactionID: done.TransactionID,
		Reference:     done.Reference,
		Channel:       done.Channel.Label(),
		Provider:      done.ProviderName,
		Amount:        money.Display(symbol, done.Amount),
		Status:        done.Status,
		Loading:       s.Receipt.Loading,
	}
	if done.Fee.Valid {
		view.Fee = money.Display(symbol, done.Fee.Decimal)
	}
	if s.Receipt.Loaded {
		r := s.Receipt.Data
		if r.Status != "" {
			view.Status = r.Status
		}
		if r.Reference != "" {
			view.Reference = r.Reference
		}
		view.CreatedAt = r.CreatedAt
	}
	return view
}

func noticeView(n deposit.Notice) *NoticeView {
	view := &NoticeView{Kind: n.Kind, Message: n.Message, Retry: n.Retry, Actions: []string{ActionDismiss}}
	if n.Retry != "" {
		view.Actions = append(view.Actions, ActionRetry)
	}
	if n.Action != "" {
		view.Actions = append(view.Actions, n.Action)
	}
	return view
}
