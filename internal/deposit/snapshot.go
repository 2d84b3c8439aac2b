package deposit

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_bff/internal/channel"
	"github.com/congo-pay/wallet_bff/internal/money"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

// Phase is the externally visible workflow state.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingProviderData Phase = "awaiting_provider_data"
	PhaseReadyToSubmit        Phase = "ready_to_submit"
	PhaseInitiating           Phase = "initiating"
	PhaseAwaitingTransfer     Phase = "awaiting_transfer_confirmation"
	PhaseAwaitingPIN          Phase = "awaiting_pin"
	PhaseConfirming           Phase = "confirming"
	PhaseSuccess              Phase = "success"
	PhaseFailed               Phase = "failed"
)

// PendingStage tells whether the user already asserted the bank transfer.
type PendingStage string

const (
	PendingCreated          PendingStage = "created"
	PendingTransferAsserted PendingStage = "transfer_asserted"
)

// PendingTransaction is an initiated deposit that has not been confirmed.
type PendingTransaction struct {
	ID      walletapi.ID
	Channel channel.Kind
	// Amount is what the user entered; EchoAmount and Fee are what the
	// initiate response returned, if anything.
	Amount       decimal.Decimal
	EchoAmount   decimal.NullDecimal
	Fee          decimal.NullDecimal
	Reference    string
	Currency     string
	ProviderName string
	Stage        PendingStage
}

// resolveAmount picks the first positive amount of the confirm echo, the
// initiate echo and the entered amount.
func (p *PendingTransaction) resolveAmount(confirmed decimal.NullDecimal) (decimal.Decimal, bool) {
	for _, candidate := range []decimal.NullDecimal{confirmed, p.EchoAmount, decimal.NewNullDecimal(p.Amount)} {
		if candidate.Valid && candidate.Decimal.IsPositive() {
			return candidate.Decimal, true
		}
	}
	return decimal.Zero, false
}

// Completed is the deposit shown on the success screen.
type Completed struct {
	TransactionID walletapi.ID
	Reference     string
	Channel       channel.Kind
	Amount        decimal.Decimal
	Fee           decimal.NullDecimal
	Currency      string
	Status        string
	ProviderName  string
}

// Snapshot is a consistent copy of the controller state. The PIN is only
// exposed as the number of digits entered.
type Snapshot struct {
	Phase     Phase
	Country   string
	Currency  string
	Symbol    string
	Countries Resource[[]walletapi.Country]
	Balances  Resource[[]walletapi.Balance]
	// Channel holds a BankTransfer or MobileMoney value.
	Channel   Channel
	Amount    string
	Ready     bool
	Pending   *PendingTransaction
	PINDigits int
	Notice    *Notice
	Completed *Completed
	Receipt   Resource[walletapi.Receipt]
	PINStatus walletapi.PINStatus
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Phase:     c.phase(),
		Country:   c.country,
		Currency:  c.currency(),
		Symbol:    channel.SymbolForCountry(c.country),
		Countries: c.countries,
		Balances:  c.balances,
		Channel:   copyChannel(c.channel),
		Amount:    c.amount,
		Ready:     c.readyLocked(),
		PINDigits: len(c.pin),
		Receipt:   c.receipt,
		PINStatus: walletapi.PINStatusUnknown,
	}
	if c.pending != nil {
		p := *c.pending
		s.Pending = &p
	}
	if c.notice != nil {
		n := *c.notice
		s.Notice = &n
	}
	if c.completed != nil {
		done := *c.completed
		s.Completed = &done
	}
	if c.user.Loaded {
		s.PINStatus = c.user.Data.PINStatus()
	}
	return s
}

// Phase returns the current workflow phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase()
}

func (c *Controller) phase() Phase {
	switch c.stage {
	case stageInitiating:
		return PhaseInitiating
	case stageTransfer:
		return PhaseAwaitingTransfer
	case stagePIN:
		return PhaseAwaitingPIN
	case stageConfirming:
		return PhaseConfirming
	case stageSuccess:
		return PhaseSuccess
	case stageFailed:
		return PhaseFailed
	}
	if c.readyLocked() {
		return PhaseReadyToSubmit
	}
	if _, err := money.Parse(c.amount); err == nil {
		if _, ok := c.channel.(*MobileMoney); ok {
			return PhaseAwaitingProviderData
		}
	}
	return PhaseIdle
}
