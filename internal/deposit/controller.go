// Package deposit drives the fund screen: it validates the form, initiates a
// deposit, waits for the bank transfer when needed, collects the PIN and
// confirms. One Controller serves one screen visit.
package deposit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/wallet_bff/internal/channel"
	"github.com/congo-pay/wallet_bff/internal/money"
	"github.com/congo-pay/wallet_bff/internal/notification"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

// MinPhoneLength is the shortest mobile money number accepted.
const MinPhoneLength = 9

// KeyBackspace removes the last PIN digit.
const KeyBackspace = "backspace"

// Remote is the subset of the wallet API the workflow needs.
type Remote interface {
	Countries(ctx context.Context) ([]walletapi.Country, error)
	Balances(ctx context.Context) ([]walletapi.Balance, error)
	RefreshBalances(ctx context.Context) ([]walletapi.Balance, error)
	Providers(ctx context.Context, countryCode, currency string) ([]walletapi.Provider, error)
	BankDetails(ctx context.Context, countryCode, currency string) (walletapi.BankDetails, error)
	InitiateDeposit(ctx context.Context, req walletapi.InitiateRequest) (walletapi.InitiateResult, error)
	ConfirmDeposit(ctx context.Context, req walletapi.ConfirmRequest) (walletapi.ConfirmResult, error)
	Receipt(ctx context.Context, id walletapi.ID) (walletapi.Receipt, error)
	CurrentUser(ctx context.Context) (walletapi.User, error)
}

// Metrics counts deposit outcomes. *metrics.Metrics implements it.
type Metrics interface {
	DepositInitiated(channel, outcome string)
	DepositConfirmed(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) DepositInitiated(string, string) {}
func (noopMetrics) DepositConfirmed(string)         {}

// Options configures a Controller. Zero values select Nigeria, bank transfer,
// the default logger and no notifications.
type Options struct {
	Country  string
	Channel  channel.Kind
	Logger   *slog.Logger
	Notifier notification.Notifier
	Metrics  Metrics
}

type stage int

const (
	stageForm stage = iota
	stageInitiating
	stageTransfer
	stagePIN
	stageConfirming
	stageSuccess
	stageFailed
)

func (s stage) String() string {
	switch s {
	case stageInitiating:
		return string(PhaseInitiating)
	case stageTransfer:
		return string(PhaseAwaitingTransfer)
	case stagePIN:
		return string(PhaseAwaitingPIN)
	case stageConfirming:
		return string(PhaseConfirming)
	case stageSuccess:
		return string(PhaseSuccess)
	case stageFailed:
		return string(PhaseFailed)
	default:
		return "form"
	}
}

// Controller is the deposit workflow of one screen session. Its methods are
// safe for concurrent use; remote calls are made without holding the lock and
// their results are discarded when the workflow moved on in the meantime.
type Controller struct {
	remote   Remote
	logger   *slog.Logger
	notifier notification.Notifier
	metrics  Metrics

	mu        sync.Mutex
	epoch     uint64
	stage     stage
	country   string
	channel   Channel
	amount    string
	pending   *PendingTransaction
	pin       string
	notice    *Notice
	completed *Completed

	countries Resource[[]walletapi.Country]
	balances  Resource[[]walletapi.Balance]
	user      Resource[walletapi.User]
	receipt   Resource[walletapi.Receipt]
}

// New builds a controller in the idle phase. Call Load to fetch its data.
func New(remote Remote, opts Options) *Controller {
	country := strings.ToUpper(strings.TrimSpace(opts.Country))
	if country == "" {
		country = channel.DefaultCountry
	}
	kind := opts.Channel
	if kind == "" {
		kind = channel.BankTransfer
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var m Metrics = noopMetrics{}
	if opts.Metrics != nil {
		m = opts.Metrics
	}
	return &Controller{
		remote:   remote,
		logger:   logger,
		notifier: opts.Notifier,
		metrics:  m,
		country:  country,
		channel:  newChannel(kind),
	}
}

func (c *Controller) setStage(s stage) {
	if c.stage == s {
		return
	}
	c.logger.Debug("deposit transition", slog.String("from", c.stage.String()), slog.String("to", s.String()))
	c.stage = s
}

func (c *Controller) currency() string { return channel.CurrencyForCountry(c.country) }

// Load fetches countries, balances, the profile and the active channel's
// resource in parallel. Failures are recorded on each resource; the first one
// is returned.
func (c *Controller) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.loadCountries(ctx) })
	g.Go(func() error { return c.loadBalances(ctx, false) })
	g.Go(func() error { return c.loadChannel(ctx) })
	g.Go(func() error {
		c.loadUser(ctx)
		return nil
	})
	return g.Wait()
}

func (c *Controller) loadCountries(ctx context.Context) error {
	c.mu.Lock()
	gen := c.countries.begin()
	c.mu.Unlock()

	countries, err := c.remote.Countries(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countries.finish(gen, countries, err) && err != nil {
		c.notice = noticeFor(err, ResourceCountries)
	}
	return err
}

func (c *Controller) loadBalances(ctx context.Context, refresh bool) error {
	c.mu.Lock()
	gen := c.balances.begin()
	c.mu.Unlock()

	fetch := c.remote.Balances
	if refresh {
		fetch = c.remote.RefreshBalances
	}
	balances, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balances.finish(gen, balances, err) && err != nil && !refresh {
		c.notice = noticeFor(err, ResourceBalances)
	}
	return err
}

// loadUser only feeds the PIN status shortcut; a failure is not surfaced.
func (c *Controller) loadUser(ctx context.Context) {
	c.mu.Lock()
	gen := c.user.begin()
	c.mu.Unlock()

	user, err := c.remote.CurrentUser(ctx)

	c.mu.Lock()
	c.user.finish(gen, user, err)
	c.mu.Unlock()
	if err != nil {
		c.logger.Debug("profile unavailable", slog.Any("error", err))
	}
}

// loadChannel fetches bank details or providers for the current
// (country, currency). A result is dropped when the channel was switched.
func (c *Controller) loadChannel(ctx context.Context) error {
	c.mu.Lock()
	country, currency := c.country, c.currency()
	switch ch := c.channel.(type) {
	case *BankTransfer:
		gen := ch.Details.begin()
		c.mu.Unlock()

		details, err := c.remote.BankDetails(ctx, country, currency)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.channel != Channel(ch) || !ch.Details.finish(gen, details, err) {
			return nil
		}
		if err != nil {
			c.notice = noticeFor(err, ResourceBankDetails)
			return err
		}
		if c.pending != nil && c.pending.Channel == channel.BankTransfer {
			ch.Details.Data.Reference = c.pending.Reference
		}
		return nil

	case *MobileMoney:
		gen := ch.Providers.begin()
		c.mu.Unlock()

		providers, err := c.remote.Providers(ctx, country, currency)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.channel != Channel(ch) || !ch.Providers.finish(gen, providers, err) {
			return nil
		}
		if err != nil {
			c.notice = noticeFor(err, ResourceProviders)
			return err
		}
		if ch.Provider != nil && findProvider(providers, ch.Provider.ID.String()) == nil {
			ch.Provider = nil
		}
		return nil
	}
	c.mu.Unlock()
	return nil
}

func findProvider(providers []walletapi.Provider, id string) *walletapi.Provider {
	for i := range providers {
		if providers[i].ID.String() == id {
			p := providers[i]
			return &p
		}
	}
	return nil
}

// beginEdit checks the form may be edited and leaves failed or success
// screens for the form. Edits during a bank transfer wait are allowed only
// when allowTransfer is set; the pending transaction is then dropped.
func (c *Controller) beginEdit(allowTransfer bool) error {
	switch c.stage {
	case stageInitiating, stageConfirming:
		return ErrBusy
	case stagePIN:
		return ErrFlowInProgress
	case stageTransfer:
		if !allowTransfer {
			return ErrFlowInProgress
		}
		c.dropPending()
		c.setStage(stageForm)
	case stageFailed:
		c.notice = nil
		c.setStage(stageForm)
	case stageSuccess:
		c.completed = nil
		c.receipt.reset()
		c.notice = nil
		c.setStage(stageForm)
	}
	return nil
}

func (c *Controller) dropPending() {
	if c.pending == nil {
		return
	}
	c.logger.Debug("pending deposit dropped", slog.String("transaction_id", c.pending.ID.String()))
	c.pending = nil
	c.pin = ""
	if bt, ok := c.channel.(*BankTransfer); ok {
		bt.Details.Data.Reference = ""
	}
}

// SelectCountry switches the country. The amount is kept; channel selections
// are reset and the channel resource is fetched for the new currency.
func (c *Controller) SelectCountry(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	c.mu.Lock()
	if !c.countryAllowed(code) {
		c.mu.Unlock()
		return ErrUnknownCountry
	}
	if code == c.country {
		c.mu.Unlock()
		return nil
	}
	if err := c.beginEdit(true); err != nil {
		c.mu.Unlock()
		return err
	}
	c.dropPending()
	c.country = code
	c.channel = newChannel(c.channel.Kind())
	c.mu.Unlock()

	return c.loadChannel(ctx)
}

func (c *Controller) countryAllowed(code string) bool {
	if code == "" {
		return false
	}
	for _, country := range c.countries.Data {
		if strings.EqualFold(country.Code, code) {
			return true
		}
	}
	return channel.Known(code)
}

// SelectChannel switches between bank transfer and mobile money. The amount
// and country are kept and the new channel starts empty.
func (c *Controller) SelectChannel(ctx context.Context, kind channel.Kind) error {
	if kind != channel.BankTransfer && kind != channel.MobileMoney {
		return ErrUnknownChannel
	}

	c.mu.Lock()
	if c.channel.Kind() == kind {
		c.mu.Unlock()
		return nil
	}
	if err := c.beginEdit(true); err != nil {
		c.mu.Unlock()
		return err
	}
	c.dropPending()
	c.channel = newChannel(kind)
	c.mu.Unlock()

	return c.loadChannel(ctx)
}

// SetAmount stores the typed amount, regrouped for display.
func (c *Controller) SetAmount(raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beginEdit(false); err != nil {
		return err
	}
	c.amount = money.FormatInput(raw)
	return nil
}

// SelectProvider picks a mobile money provider by id.
func (c *Controller) SelectProvider(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	mm, ok := c.channel.(*MobileMoney)
	if !ok {
		return ErrWrongChannel
	}
	provider := findProvider(mm.Providers.Data, strings.TrimSpace(id))
	if provider == nil {
		return ErrUnknownProvider
	}
	if err := c.beginEdit(false); err != nil {
		return err
	}
	mm.Provider = provider
	return nil
}

// SetPhone stores the mobile money number without spaces or dashes.
func (c *Controller) SetPhone(raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	mm, ok := c.channel.(*MobileMoney)
	if !ok {
		return ErrWrongChannel
	}
	if err := c.beginEdit(false); err != nil {
		return err
	}
	mm.Phone = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, raw)
	return nil
}

// SetAccountName stores the name of the account the transfer is sent from.
func (c *Controller) SetAccountName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bt, ok := c.channel.(*BankTransfer)
	if !ok {
		return ErrWrongChannel
	}
	if c.stage != stageTransfer {
		if err := c.beginEdit(false); err != nil {
			return err
		}
	}
	bt.AccountName = strings.TrimSpace(name)
	return nil
}

// Ready is the submission guard.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyLocked()
}

func (c *Controller) readyLocked() bool {
	switch c.stage {
	case stageForm, stageFailed, stageSuccess:
	default:
		return false
	}
	_, err := c.validateForm()
	return err == nil
}

// validateForm checks the amount then the channel requirements.
func (c *Controller) validateForm() (decimal.Decimal, error) {
	amount, err := money.Parse(c.amount)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	switch ch := c.channel.(type) {
	case *MobileMoney:
		if ch.Provider == nil {
			return amount, ErrProviderRequired
		}
		if len([]rune(ch.Phone)) < MinPhoneLength {
			return amount, ErrPhoneTooShort
		}
	case *BankTransfer:
		if !ch.Details.Loaded {
			return amount, ErrBankDetailsUnavailable
		}
	}
	return amount, nil
}

// Submit initiates a deposit from the form. While a bank transfer is waiting
// for the user's transfer, Submit acts as AssertTransfer and no second
// deposit is initiated.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.stage {
	case stageInitiating, stageConfirming:
		c.mu.Unlock()
		return ErrBusy
	case stageTransfer:
		defer c.mu.Unlock()
		return c.assertTransferLocked()
	case stagePIN:
		c.mu.Unlock()
		return ErrFlowInProgress
	}

	amount, err := c.validateForm()
	if err != nil {
		c.notice = noticeFor(err, "")
		c.mu.Unlock()
		return err
	}
	if c.user.Loaded && c.user.Data.PINStatus() == walletapi.PINStatusNotSet {
		c.notice = noticeFor(ErrPINNotConfigured, "")
		c.mu.Unlock()
		return ErrPINNotConfigured
	}

	req := walletapi.InitiateRequest{
		Amount:      money.Wire(amount),
		Currency:    c.currency(),
		CountryCode: c.country,
		Channel:     c.channel.Kind(),
	}
	var providerName string
	if mm, ok := c.channel.(*MobileMoney); ok {
		id := mm.Provider.ID
		req.ProviderID = &id
		providerName = mm.Provider.Name
	}
	epoch := c.epoch
	c.notice = nil
	c.completed = nil
	c.receipt.reset()
	c.setStage(stageInitiating)
	c.mu.Unlock()

	res, err := c.remote.InitiateDeposit(ctx, req)

	c.mu.Lock()
	if c.epoch != epoch || c.stage != stageInitiating {
		c.mu.Unlock()
		c.logger.Debug("stale initiate response ignored")
		return nil
	}
	if err != nil {
		kind := Classify(err)
		c.notice = noticeFor(err, "")
		c.setStage(stageFailed)
		c.mu.Unlock()
		c.metrics.DepositInitiated(string(req.Channel), string(kind))
		c.logger.Warn("deposit initiate failed", slog.String("channel", string(req.Channel)), slog.String("kind", string(kind)), slog.Any("error", err))
		return err
	}
	if res.TransactionID.IsZero() {
		c.notice = &Notice{Kind: KindMissingTransactionID, Message: ErrTransactionIDNotFound.Error()}
		c.setStage(stageFailed)
		c.mu.Unlock()
		c.metrics.DepositInitiated(string(req.Channel), string(KindMissingTransactionID))
		return ErrTransactionIDNotFound
	}

	c.pending = &PendingTransaction{
		ID:           res.TransactionID,
		Channel:      req.Channel,
		Amount:       amount,
		EchoAmount:   res.Amount,
		Fee:          res.Fee,
		Reference:    res.Reference,
		Currency:     req.Currency,
		ProviderName: providerName,
		Stage:        PendingCreated,
	}
	c.pin = ""
	switch ch := c.channel.(type) {
	case *MobileMoney:
		c.setStage(stagePIN)
	case *BankTransfer:
		ch.Details.Data.Reference = res.Reference
		c.setStage(stageTransfer)
	}
	msg := notification.Message{
		Kind:        notification.KindDepositInitiated,
		Destination: res.TransactionID.String(),
		Body:        req.Currency + " " + req.Amount + " via " + string(req.Channel),
	}
	c.mu.Unlock()

	c.metrics.DepositInitiated(string(req.Channel), "ok")
	c.notify(ctx, msg)
	return nil
}

// AssertTransfer records that the user made the bank transfer and opens the
// PIN pad. No remote call is made.
func (c *Controller) AssertTransfer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assertTransferLocked()
}

func (c *Controller) assertTransferLocked() error {
	switch c.stage {
	case stageTransfer:
	case stageInitiating, stageConfirming:
		return ErrBusy
	default:
		return ErrFlowInProgress
	}
	if c.pending == nil || c.pending.Reference == "" {
		c.notice = noticeFor(ErrMissingReference, "")
		return ErrMissingReference
	}
	c.pending.Stage = PendingTransferAsserted
	c.pin = ""
	c.notice = nil
	c.setStage(stagePIN)
	return nil
}

// PressKey appends a digit to the PIN or removes one on KeyBackspace. The
// fifth digit confirms the deposit.
func (c *Controller) PressKey(ctx context.Context, key string) error {
	c.mu.Lock()
	switch c.stage {
	case stagePIN:
	case stageConfirming:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrPinPadClosed
	}

	if key == KeyBackspace {
		if n := len(c.pin); n > 0 {
			c.pin = c.pin[:n-1]
		}
		c.mu.Unlock()
		return nil
	}
	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		c.mu.Unlock()
		return ErrInvalidPinKey
	}
	if len(c.pin) >= walletapi.PINLength {
		c.mu.Unlock()
		return ErrBusy
	}
	c.pin += key
	if len(c.pin) < walletapi.PINLength {
		c.mu.Unlock()
		return nil
	}

	call, err := c.prepareConfirm()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.runConfirm(ctx, call)
}

// ConfirmPIN confirms the pending deposit with the entered PIN.
func (c *Controller) ConfirmPIN(ctx context.Context) error {
	c.mu.Lock()
	switch c.stage {
	case stagePIN:
	case stageConfirming:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrPinPadClosed
	}
	if !walletapi.ValidPIN(c.pin) {
		c.mu.Unlock()
		return walletapi.ErrInvalidPIN
	}
	call, err := c.prepareConfirm()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.runConfirm(ctx, call)
}

type confirmCall struct {
	epoch uint64
	id    walletapi.ID
	pin   string
}

// prepareConfirm moves to the confirming stage. The caller holds the lock.
func (c *Controller) prepareConfirm() (confirmCall, error) {
	p := c.pending
	if p == nil {
		c.pin = ""
		return confirmCall{}, ErrPinPadClosed
	}
	if _, ok := p.resolveAmount(decimal.NullDecimal{}); !ok {
		c.pin = ""
		c.notice = noticeFor(ErrAmountUnresolved, "")
		return confirmCall{}, ErrAmountUnresolved
	}
	call := confirmCall{epoch: c.epoch, id: p.ID, pin: c.pin}
	c.notice = nil
	c.setStage(stageConfirming)
	return call, nil
}

func (c *Controller) runConfirm(ctx context.Context, call confirmCall) error {
	res, err := c.remote.ConfirmDeposit(ctx, walletapi.ConfirmRequest{TransactionID: call.id, PIN: call.pin})

	c.mu.Lock()
	if c.epoch != call.epoch || c.pending == nil || c.pending.ID != call.id {
		c.mu.Unlock()
		c.logger.Debug("stale confirm response ignored", slog.String("transaction_id", call.id.String()))
		return nil
	}
	if err != nil {
		kind := Classify(err)
		c.notice = noticeFor(err, "")
		c.pin = ""
		if kind == KindPINNotConfigured {
			c.dropPending()
			c.setStage(stageForm)
		} else {
			c.setStage(stagePIN)
		}
		c.mu.Unlock()
		c.metrics.DepositConfirmed(string(kind))
		c.logger.Warn("deposit confirm failed", slog.String("transaction_id", call.id.String()), slog.String("kind", string(kind)))
		return err
	}

	p := c.pending
	amount, _ := p.resolveAmount(res.Amount)
	fee := res.Fee
	if !fee.Valid {
		fee = p.Fee
	}
	id := res.TransactionID
	if id.IsZero() {
		id = p.ID
	}
	ref := res.Reference
	if ref == "" {
		ref = p.Reference
	}
	c.completed = &Completed{
		TransactionID: id,
		Reference:     ref,
		Channel:       p.Channel,
		Amount:        amount,
		Fee:           fee,
		Currency:      p.Currency,
		Status:        res.Status,
		ProviderName:  p.ProviderName,
	}
	c.dropPending()
	c.amount = ""
	switch ch := c.channel.(type) {
	case *MobileMoney:
		ch.Provider = nil
		ch.Phone = ""
	case *BankTransfer:
		ch.AccountName = ""
	}
	c.receipt.reset()
	c.notice = nil
	c.setStage(stageSuccess)
	msg := notification.Message{
		Kind:        notification.KindDepositConfirmed,
		Destination: id.String(),
		Body:        money.Display(channel.SymbolForCountry(c.country), amount),
	}
	c.mu.Unlock()

	c.metrics.DepositConfirmed("ok")
	c.notify(ctx, msg)
	if err := c.loadBalances(ctx, true); err != nil {
		c.logger.Warn("balance refresh failed", slog.Any("error", err))
	}
	return nil
}

func (c *Controller) notify(ctx context.Context, msg notification.Message) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Send(ctx, msg); err != nil {
		c.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

// Dismiss cancels whatever modal or step is open and returns to the form. The
// pending deposit and PIN are discarded; amount and channel are kept. Late
// responses to calls issued before Dismiss are ignored.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.dropPending()
	c.pin = ""
	c.notice = nil
	c.completed = nil
	c.receipt.reset()
	c.setStage(stageForm)
}

// DismissNotice hides the current notice. A failed initiate returns to the form.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = nil
	if c.stage == stageFailed {
		c.setStage(stageForm)
	}
}

// Retry re-issues the load of a named resource.
func (c *Controller) Retry(ctx context.Context, resource string) error {
	c.mu.Lock()
	kind := c.channel.Kind()
	if c.notice != nil && c.notice.Retry == resource {
		c.notice = nil
	}
	c.mu.Unlock()

	switch resource {
	case ResourceCountries:
		return c.loadCountries(ctx)
	case ResourceBalances:
		return c.loadBalances(ctx, false)
	case ResourceBankDetails:
		if kind != channel.BankTransfer {
			return ErrWrongChannel
		}
		return c.loadChannel(ctx)
	case ResourceProviders:
		if kind != channel.MobileMoney {
			return ErrWrongChannel
		}
		return c.loadChannel(ctx)
	case ResourceReceipt:
		return c.LoadReceipt(ctx)
	default:
		return ErrUnknownResource
	}
}

// LoadReceipt fetches the receipt of the deposit just completed.
func (c *Controller) LoadReceipt(ctx context.Context) error {
	c.mu.Lock()
	if c.completed == nil {
		c.mu.Unlock()
		return ErrNoCompletedDeposit
	}
	id := c.completed.TransactionID
	gen := c.receipt.begin()
	c.mu.Unlock()

	receipt, err := c.remote.Receipt(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receipt.finish(gen, receipt, err) && err != nil {
		c.notice = noticeFor(err, ResourceReceipt)
	}
	return err
}
