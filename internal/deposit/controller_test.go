package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_bff/internal/channel"
	"github.com/congo-pay/wallet_bff/internal/logging"
	"github.com/congo-pay/wallet_bff/internal/notification"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

type fakeRemote struct {
	mu        sync.Mutex
	countries []walletapi.Country
	balances  []walletapi.Balance
	providers []walletapi.Provider
	bank      walletapi.BankDetails
	bankErr   error
	user      walletapi.User

	initiate func(walletapi.InitiateRequest) (walletapi.InitiateResult, error)
	confirm  func(walletapi.ConfirmRequest) (walletapi.ConfirmResult, error)

	initiateReqs []walletapi.InitiateRequest
	confirmReqs  []walletapi.ConfirmRequest
	providerArgs [][2]string
	refreshCalls int
	receiptCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		countries: []walletapi.Country{{Code: "NG", Name: "Nigeria"}, {Code: "GH", Name: "Ghana"}},
		balances:  []walletapi.Balance{{Currency: "NGN", Balance: decimal.NewFromInt(1000)}},
		providers: []walletapi.Provider{
			{ID: walletapi.NumericID("3"), Name: "MTN", Code: "mtn"},
			{ID: walletapi.NumericID("4"), Name: "Airtel", Code: "airtel"},
		},
		bank: walletapi.BankDetails{BankName: "Congo Bank", AccountNumber: "0123456789", AccountName: "Congo Pay"},
		initiate: func(walletapi.InitiateRequest) (walletapi.InitiateResult, error) {
			return walletapi.InitiateResult{TransactionID: walletapi.NumericID("42")}, nil
		},
		confirm: func(req walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
			return walletapi.ConfirmResult{TransactionID: req.TransactionID, Status: "completed"}, nil
		},
	}
}

func (f *fakeRemote) Countries(context.Context) ([]walletapi.Country, error) {
	return f.countries, nil
}

func (f *fakeRemote) Balances(context.Context) ([]walletapi.Balance, error) {
	return f.balances, nil
}

func (f *fakeRemote) RefreshBalances(context.Context) ([]walletapi.Balance, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	return f.balances, nil
}

func (f *fakeRemote) Providers(_ context.Context, country, currency string) ([]walletapi.Provider, error) {
	f.mu.Lock()
	f.providerArgs = append(f.providerArgs, [2]string{country, currency})
	f.mu.Unlock()
	return f.providers, nil
}

func (f *fakeRemote) BankDetails(context.Context, string, string) (walletapi.BankDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bankErr != nil {
		return walletapi.BankDetails{}, f.bankErr
	}
	return f.bank, nil
}

func (f *fakeRemote) InitiateDeposit(_ context.Context, req walletapi.InitiateRequest) (walletapi.InitiateResult, error) {
	f.mu.Lock()
	f.initiateReqs = append(f.initiateReqs, req)
	fn := f.initiate
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeRemote) ConfirmDeposit(_ context.Context, req walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
	f.mu.Lock()
	f.confirmReqs = append(f.confirmReqs, req)
	fn := f.confirm
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeRemote) Receipt(_ context.Context, id walletapi.ID) (walletapi.Receipt, error) {
	f.mu.Lock()
	f.receiptCalls++
	f.mu.Unlock()
	return walletapi.Receipt{TransactionID: id, Status: "completed"}, nil
}

func (f *fakeRemote) CurrentUser(context.Context) (walletapi.User, error) {
	return f.user, nil
}

func (f *fakeRemote) calls() (initiates, confirms int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.initiateReqs), len(f.confirmReqs)
}

func newController(t *testing.T, remote *fakeRemote, kind channel.Kind, notifier notification.Notifier) *Controller {
	t.Helper()
	c := New(remote, Options{Country: "NG", Channel: kind, Logger: logging.Discard(), Notifier: notifier})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func fillMobileMoney(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.SetAmount("5,000"); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if err := c.SelectProvider("3"); err != nil {
		t.Fatalf("select provider: %v", err)
	}
	if err := c.SetPhone("0801234567"); err != nil {
		t.Fatalf("set phone: %v", err)
	}
}

func typePIN(t *testing.T, c *Controller, digits string) error {
	t.Helper()
	var err error
	for i := 0; i < len(digits); i++ {
		err = c.PressKey(context.Background(), digits[i:i+1])
	}
	return err
}

func TestReadyGuardMobileMoney(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		provider string
		phone    string
		ready    bool
	}{
		{"empty amount", "", "3", "0801234567", false},
		{"zero amount", "0", "3", "0801234567", false},
		{"non numeric", "abc", "3", "0801234567", false},
		{"no provider", "5,000", "", "0801234567", false},
		{"short phone", "5,000", "3", "08012345", false},
		{"complete", "5,000", "3", "080123456", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newController(t, newFakeRemote(), channel.MobileMoney, nil)
			_ = c.SetAmount(tc.amount)
			if tc.provider != "" {
				if err := c.SelectProvider(tc.provider); err != nil {
					t.Fatalf("select provider: %v", err)
				}
			}
			_ = c.SetPhone(tc.phone)
			if got := c.Ready(); got != tc.ready {
				t.Fatalf("expected ready=%v, got %v", tc.ready, got)
			}
		})
	}
}

func TestReadyGuardBankTransfer(t *testing.T) {
	remote := newFakeRemote()
	remote.bankErr = &walletapi.APIError{Status: 503, Message: "service unavailable"}
	c := New(remote, Options{Channel: channel.BankTransfer, Logger: logging.Discard()})
	_ = c.Load(context.Background())
	_ = c.SetAmount("10,000")
	if c.Ready() {
		t.Fatal("bank transfer must not be ready without bank details")
	}
	snap := c.Snapshot()
	if snap.Notice == nil || snap.Notice.Retry != ResourceBankDetails {
		t.Fatalf("expected retryable notice, got %+v", snap.Notice)
	}

	remote.mu.Lock()
	remote.bankErr = nil
	remote.mu.Unlock()
	if err := c.Retry(context.Background(), ResourceBankDetails); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !c.Ready() {
		t.Fatal("expected ready once bank details loaded")
	}
	if c.Phase() != PhaseReadyToSubmit {
		t.Fatalf("unexpected phase %s", c.Phase())
	}
}

func TestMobileMoneyHappyPath(t *testing.T) {
	remote := newFakeRemote()
	recorder := &notification.Recorder{}
	c := newController(t, remote, channel.MobileMoney, recorder)
	fillMobileMoney(t, c)

	if c.Phase() != PhaseReadyToSubmit {
		t.Fatalf("expected ready phase, got %s", c.Phase())
	}
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	payload, _ := json.Marshal(remote.initiateReqs[0])
	want := `{"amount":"5000","currency":"NGN","countryCode":"NG","channel":"mobile_money","providerId":3}`
	if string(payload) != want {
		t.Fatalf("unexpected initiate payload %s", payload)
	}
	if c.Phase() != PhaseAwaitingPIN {
		t.Fatalf("expected pin phase, got %s", c.Phase())
	}

	if err := typePIN(t, c, "1234"); err != nil {
		t.Fatalf("press keys: %v", err)
	}
	if _, confirms := remote.calls(); confirms != 0 {
		t.Fatal("confirm must wait for the fifth digit")
	}
	if err := c.PressKey(context.Background(), "5"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	confirmPayload, _ := json.Marshal(remote.confirmReqs[0])
	if string(confirmPayload) != `{"transactionId":42,"pin":"12345"}` {
		t.Fatalf("unexpected confirm payload %s", confirmPayload)
	}

	snap := c.Snapshot()
	if snap.Phase != PhaseSuccess {
		t.Fatalf("expected success, got %s", snap.Phase)
	}
	if snap.Amount != "" || snap.Pending != nil || snap.PINDigits != 0 {
		t.Fatalf("form not reset: %+v", snap)
	}
	mm, ok := snap.Channel.(MobileMoney)
	if !ok {
		t.Fatalf("expected mobile money channel, got %T", snap.Channel)
	}
	if mm.Provider != nil || mm.Phone != "" {
		t.Fatalf("provider and phone must be cleared: %+v", mm)
	}
	if snap.Completed == nil || !snap.Completed.Amount.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("unexpected completed deposit %+v", snap.Completed)
	}
	if remote.refreshCalls != 1 {
		t.Fatalf("expected balances refetch, got %d", remote.refreshCalls)
	}

	msgs := recorder.Messages()
	if len(msgs) != 2 || msgs[0].Kind != notification.KindDepositInitiated || msgs[1].Kind != notification.KindDepositConfirmed {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
	if msgs[1].Destination != "42" {
		t.Fatalf("unexpected destination %q", msgs[1].Destination)
	}
}

func TestBankTransferTwoStep(t *testing.T) {
	remote := newFakeRemote()
	remote.initiate = func(walletapi.InitiateRequest) (walletapi.InitiateResult, error) {
		return walletapi.InitiateResult{TransactionID: walletapi.NewID("tx-1"), Reference: "REF123"}, nil
	}
	c := newController(t, remote, channel.BankTransfer, nil)
	_ = c.SetAmount("10,000")

	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	req := remote.initiateReqs[0]
	if req.Channel != channel.BankTransfer || req.ProviderID != nil || req.Amount != "10000" {
		t.Fatalf("unexpected initiate request %+v", req)
	}

	snap := c.Snapshot()
	if snap.Phase != PhaseAwaitingTransfer {
		t.Fatalf("expected transfer confirmation phase, got %s", snap.Phase)
	}
	if snap.Pending == nil || snap.Pending.Stage != PendingCreated {
		t.Fatalf("unexpected pending %+v", snap.Pending)
	}
	bt := snap.Channel.(BankTransfer)
	if bt.Details.Data.Reference != "REF123" {
		t.Fatalf("expected reference on bank details, got %q", bt.Details.Data.Reference)
	}
	if err := c.PressKey(context.Background(), "1"); !errors.Is(err, ErrPinPadClosed) {
		t.Fatalf("pin pad must stay closed, got %v", err)
	}

	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if initiates, _ := remote.calls(); initiates != 1 {
		t.Fatalf("expected a single initiate, got %d", initiates)
	}
	snap = c.Snapshot()
	if snap.Phase != PhaseAwaitingPIN || snap.Pending.Stage != PendingTransferAsserted {
		t.Fatalf("expected pin phase after transfer, got %s %+v", snap.Phase, snap.Pending)
	}
}

func TestBankTransferWithoutReference(t *testing.T) {
	remote := newFakeRemote()
	c := newController(t, remote, channel.BankTransfer, nil)
	_ = c.SetAmount("10,000")
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := c.AssertTransfer(); !errors.Is(err, ErrMissingReference) {
		t.Fatalf("expected missing reference, got %v", err)
	}
	if c.Phase() != PhaseAwaitingTransfer {
		t.Fatalf("unexpected phase %s", c.Phase())
	}
}

func TestPINMismatchKeepsPending(t *testing.T) {
	remote := newFakeRemote()
	remote.confirm = func(walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
		return walletapi.ConfirmResult{}, &walletapi.APIError{Status: 400, Message: "Incorrect transaction PIN"}
	}
	c := newController(t, remote, channel.MobileMoney, nil)
	fillMobileMoney(t, c)
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := typePIN(t, c, "12345")
	if Classify(err) != KindPINMismatch {
		t.Fatalf("expected pin mismatch, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Phase != PhaseAwaitingPIN || snap.PINDigits != 0 {
		t.Fatalf("expected empty pin pad, got %s with %d digits", snap.Phase, snap.PINDigits)
	}
	if snap.Pending == nil || snap.Pending.ID.String() != "42" {
		t.Fatalf("pending transaction must be kept, got %+v", snap.Pending)
	}
	if snap.Notice == nil || snap.Notice.Kind != KindPINMismatch {
		t.Fatalf("unexpected notice %+v", snap.Notice)
	}

	remote.mu.Lock()
	remote.confirm = func(req walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
		return walletapi.ConfirmResult{TransactionID: req.TransactionID}, nil
	}
	remote.mu.Unlock()
	if err := typePIN(t, c, "54321"); err != nil {
		t.Fatalf("retry pin: %v", err)
	}
	if c.Phase() != PhaseSuccess {
		t.Fatalf("expected success, got %s", c.Phase())
	}
}

func TestPINNotConfiguredExitsFlow(t *testing.T) {
	remote := newFakeRemote()
	remote.confirm = func(walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
		return walletapi.ConfirmResult{}, &walletapi.APIError{Status: 400, Message: "Transaction PIN not set"}
	}
	c := newController(t, remote, channel.MobileMoney, nil)
	fillMobileMoney(t, c)
	_ = c.Submit(context.Background())

	err := typePIN(t, c, "12345")
	if Classify(err) != KindPINNotConfigured {
		t.Fatalf("expected not configured, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Pending != nil {
		t.Fatal("pending transaction must be discarded")
	}
	if snap.Notice == nil || snap.Notice.Action != ActionSetupPIN {
		t.Fatalf("expected setup action, got %+v", snap.Notice)
	}
	if snap.Phase != PhaseReadyToSubmit {
		t.Fatalf("expected form to be kept, got %s", snap.Phase)
	}
}

func TestExplicitPINNotSetBlocksSubmit(t *testing.T) {
	remote := newFakeRemote()
	no := false
	remote.user = walletapi.User{PINSet: &no}
	c := newController(t, remote, channel.MobileMoney, nil)
	fillMobileMoney(t, c)
	if err := c.Submit(context.Background()); !errors.Is(err, ErrPINNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if initiates, _ := remote.calls(); initiates != 0 {
		t.Fatal("initiate must not be called")
	}
}

func TestMissingTransactionID(t *testing.T) {
	remote := newFakeRemote()
	remote.initiate = func(walletapi.InitiateRequest) (walletapi.InitiateResult, error) {
		return walletapi.InitiateResult{Status: "pending"}, nil
	}
	c := newController(t, remote, channel.MobileMoney, nil)
	fillMobileMoney(t, c)

	err := c.Submit(context.Background())
	if !errors.Is(err, ErrTransactionIDNotFound) {
		t.Fatalf("expected missing id error, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Phase != PhaseFailed || snap.Pending != nil {
		t.Fatalf("unexpected state %s %+v", snap.Phase, snap.Pending)
	}
	if snap.Notice == nil || snap.Notice.Message != "Transaction ID not found" {
		t.Fatalf("unexpected notice %+v", snap.Notice)
	}
	if err := c.PressKey(context.Background(), "1"); !errors.Is(err, ErrPinPadClosed) {
		t.Fatalf("pin pad must be closed, got %v", err)
	}

	c.DismissNotice()
	if c.Phase() != PhaseReadyToSubmit {
		t.Fatalf("expected form after dismissing, got %s", c.Phase())
	}
}

func TestValidationMakesNoCall(t *testing.T) {
	remote := newFakeRemote()
	c := newController(t, remote, channel.MobileMoney, nil)
	_ = c.SetAmount("0")

	err := c.Submit(context.Background())
	if !errors.Is(err, ErrInvalidAmount) || !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if initiates, _ := remote.calls(); initiates != 0 {
		t.Fatal("no remote call expected")
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("unexpected phase %s", c.Phase())
	}

	_ = c.SetAmount("5,000")
	if err := c.Submit(context.Background()); !errors.Is(err, ErrProviderRequired) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if c.Phase() != PhaseAwaitingProviderData {
		t.Fatalf("unexpected phase %s", c.Phase())
	}
}

func TestPINKeypad(t *testing.T) {
	remote := newFakeRemote()
	started := make(chan struct{})
	release := make(chan struct{})
	remote.confirm = func(req walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
		close(started)
		<-release
		return walletapi.ConfirmResult{TransactionID: req.TransactionID}, nil
	}
	c := newController(t, remote, channel.MobileMoney, nil)
	fillMobileMoney(t, c)
	_ = c.Submit(context.Background())

	if err := c.PressKey(context.Background(), "."); !errors.Is(err, ErrInvalidPinKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
	if c.Snapshot().PINDigits != 0 {
		t.Fatal("rejected key must not change the buffer")
	}
	_ = typePIN(t, c, "129")
	_ = c.PressKey(context.Background(), KeyBackspace)
	if got := c.Snapshot().PINDigits; got != 2 {
		t.Fatalf("expected 2 digits after backspace, got %d", got)
	}
	_ = typePIN(t, c, "34")

	done := make(chan error, 1)
	go func() { done <- c.PressKey(context.Background(), "5") }()
	<-started

	if err := c.PressKey(context.Background(), "6"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected busy while confirming, got %v", err)
	}
	if err := c.ConfirmPIN(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected busy while confirming, got %v", err)
	}
	if got := c.Snapshot().PINDigits; got != 5 {
		t.Fatalf("buffer must not grow past 5, got %d", got)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, confirms := remote.calls(); confirms != 1 {
		t.Fatalf("expected exactly one confirm, got %d", confirms)
	}
	if remote.confirmReqs[0].PIN != "12345" {
		t.Fatalf("unexpected pin %q", remote.confirmReqs[0].PIN)
	}
}

func TestLateInitiateAfterDismissIgnored(t *testing.T) {
	remote := newFakeRemote()
	started := make(chan struct{})
	release := make(chan struct{})
	remote.initiate = func(walletapi.InitiateRequest) (walletapi.InitiateResult, error) {
		close(started)
		<-release
		return walletapi.InitiateResult{TransactionID: walletapi.NewID("late")}, nil
	}
	c := newController(t, remote, channel.MobileMoney, nil)
	fillMobileMoney(t, c)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-started
	if c.Ready() {
		t.Fatal("submit must be disabled while initiating")
	}
	if err := c.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	c.Dismiss()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := c.Snapshot()
	if snap.Pending != nil || snap.Phase == PhaseAwaitingPIN {
		t.Fatalf("late response must be ignored, got %s %+v", snap.Phase, snap.Pending)
	}
	if snap.Amount != "5,000" {
		t.Fatalf("amount must be kept, got %q", snap.Amount)
	}
}

func TestLateConfirmAfterDismissIgnored(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure", &walletapi.APIError{Status: 400, Message: "Incorrect transaction PIN"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			remote := newFakeRemote()
			started := make(chan struct{})
			release := make(chan struct{})
			remote.confirm = func(req walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
				close(started)
				<-release
				if tc.err != nil {
					return walletapi.ConfirmResult{}, tc.err
				}
				return walletapi.ConfirmResult{TransactionID: req.TransactionID, Status: "completed"}, nil
			}
			recorder := &notification.Recorder{}
			c := newController(t, remote, channel.MobileMoney, recorder)
			fillMobileMoney(t, c)
			if err := c.Submit(context.Background()); err != nil {
				t.Fatalf("submit: %v", err)
			}
			if err := typePIN(t, c, "1234"); err != nil {
				t.Fatalf("type pin: %v", err)
			}

			done := make(chan error, 1)
			go func() { done <- c.PressKey(context.Background(), "5") }()
			<-started
			if c.Phase() != PhaseConfirming {
				t.Fatalf("expected confirming, got %s", c.Phase())
			}
			c.Dismiss()
			close(release)
			if err := <-done; err != nil {
				t.Fatalf("late confirm must be dropped silently, got %v", err)
			}

			snap := c.Snapshot()
			if snap.Phase != PhaseReadyToSubmit {
				t.Fatalf("expected form, got %s", snap.Phase)
			}
			if snap.Completed != nil || snap.Pending != nil || snap.Notice != nil {
				t.Fatalf("late response must not change state, got %+v %+v %+v", snap.Completed, snap.Pending, snap.Notice)
			}
			if snap.Amount != "5,000" {
				t.Fatalf("amount must be kept, got %q", snap.Amount)
			}
			remote.mu.Lock()
			refreshes := remote.refreshCalls
			remote.mu.Unlock()
			if refreshes != 0 {
				t.Fatalf("balances must not refresh for a dropped confirm, got %d", refreshes)
			}
			// only the initiate notification
			if n := len(recorder.Messages()); n != 1 {
				t.Fatalf("expected 1 notification, got %d", n)
			}
		})
	}
}

func TestDismissKeepsAmountAndChannel(t *testing.T) {
	c := newController(t, newFakeRemote(), channel.MobileMoney, nil)
	fillMobileMoney(t, c)
	_ = c.Submit(context.Background())
	_ = typePIN(t, c, "12")

	c.Dismiss()
	snap := c.Snapshot()
	if snap.Pending != nil || snap.PINDigits != 0 {
		t.Fatalf("pending and pin must be cleared: %+v", snap)
	}
	if snap.Amount != "5,000" || snap.Channel.Kind() != channel.MobileMoney {
		t.Fatalf("amount and channel must be kept: %+v", snap)
	}
	if snap.Phase != PhaseReadyToSubmit {
		t.Fatalf("unexpected phase %s", snap.Phase)
	}
}

func TestSelectChannelResetsSelections(t *testing.T) {
	remote := newFakeRemote()
	remote.initiate = func(walletapi.InitiateRequest) (walletapi.InitiateResult, error) {
		return walletapi.InitiateResult{TransactionID: walletapi.NewID("tx"), Reference: "REF"}, nil
	}
	c := newController(t, remote, channel.BankTransfer, nil)
	_ = c.SetAmount("2,500")
	_ = c.Submit(context.Background())

	if err := c.SetAmount("3,000"); !errors.Is(err, ErrFlowInProgress) {
		t.Fatalf("amount must be locked while a transfer is pending, got %v", err)
	}
	if err := c.SelectChannel(context.Background(), channel.MobileMoney); err != nil {
		t.Fatalf("select channel: %v", err)
	}
	snap := c.Snapshot()
	if snap.Pending != nil {
		t.Fatal("switching channel must drop the pending transfer")
	}
	if snap.Amount != "2,500" {
		t.Fatalf("amount must be kept, got %q", snap.Amount)
	}
	mm := snap.Channel.(MobileMoney)
	if !mm.Providers.Loaded || mm.Provider != nil {
		t.Fatalf("unexpected provider state %+v", mm)
	}

	_ = c.SelectProvider("4")
	if err := c.SelectCountry(context.Background(), "gh"); err != nil {
		t.Fatalf("select country: %v", err)
	}
	snap = c.Snapshot()
	if snap.Currency != "GHS" || snap.Amount != "2,500" {
		t.Fatalf("unexpected state after country switch: %s %q", snap.Currency, snap.Amount)
	}
	if snap.Channel.(MobileMoney).Provider != nil {
		t.Fatal("provider must be reset on country switch")
	}
	last := remote.providerArgs[len(remote.providerArgs)-1]
	if last != [2]string{"GH", "GHS"} {
		t.Fatalf("providers must be reloaded for the new country, got %v", last)
	}
	if err := c.SelectCountry(context.Background(), "XX"); !errors.Is(err, ErrUnknownCountry) {
		t.Fatalf("expected unknown country, got %v", err)
	}
}

func TestSuccessAmountsPreferEchoes(t *testing.T) {
	remote := newFakeRemote()
	remote.initiate = func(walletapi.InitiateRequest) (walletapi.InitiateResult, error) {
		return walletapi.InitiateResult{
			TransactionID: walletapi.NewID("tx"),
			Amount:        decimal.NewNullDecimal(decimal.NewFromInt(5000)),
			Fee:           decimal.NewNullDecimal(decimal.NewFromInt(50)),
		}, nil
	}
	remote.confirm = func(walletapi.ConfirmRequest) (walletapi.ConfirmResult, error) {
		return walletapi.ConfirmResult{Amount: decimal.NewNullDecimal(decimal.NewFromInt(4950))}, nil
	}
	c := newController(t, remote, channel.MobileMoney, nil)
	fillMobileMoney(t, c)
	_ = c.Submit(context.Background())
	if err := typePIN(t, c, "12345"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	done := c.Snapshot().Completed
	if done == nil {
		t.Fatal("expected completed deposit")
	}
	if !done.Amount.Equal(decimal.NewFromInt(4950)) {
		t.Fatalf("expected confirm echo amount, got %s", done.Amount)
	}
	if !done.Fee.Valid || !done.Fee.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected initiate echo fee, got %+v", done.Fee)
	}
	if done.TransactionID.String() != "tx" {
		t.Fatalf("expected pending id fallback, got %q", done.TransactionID)
	}

	if err := c.LoadReceipt(context.Background()); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if snap := c.Snapshot(); !snap.Receipt.Loaded || snap.Receipt.Data.TransactionID.String() != "tx" {
		t.Fatalf("unexpected receipt %+v", snap.Receipt)
	}
}

func TestRetryUnknownResource(t *testing.T) {
	c := newController(t, newFakeRemote(), channel.BankTransfer, nil)
	if err := c.Retry(context.Background(), "ledger"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected unknown resource, got %v", err)
	}
	if err := c.Retry(context.Background(), ResourceProviders); !errors.Is(err, ErrWrongChannel) {
		t.Fatalf("expected wrong channel, got %v", err)
	}
	if err := c.LoadReceipt(context.Background()); !errors.Is(err, ErrNoCompletedDeposit) {
		t.Fatalf("expected no completed deposit, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrInvalidAmount, KindValidation},
		{walletapi.ErrInvalidPIN, KindValidation},
		{ErrTransactionIDNotFound, KindMissingTransactionID},
		{&walletapi.APIError{Status: 400, Message: "Invalid PIN"}, KindPINMismatch},
		{&walletapi.APIError{Status: 400, Message: "The PIN you entered does not match"}, KindPINMismatch},
		{&walletapi.APIError{Status: 400, Message: "Please set up your transaction PIN"}, KindPINNotConfigured},
		{&walletapi.APIError{Status: 400, Message: "No PIN configured for this account"}, KindPINNotConfigured},
		{&walletapi.APIError{Status: 400, Message: "Please set your transaction PIN first"}, KindPINNotConfigured},
		{&walletapi.APIError{Status: 400, Message: "Invalid PIN, could not create deposit"}, KindPINMismatch},
		{&walletapi.APIError{Status: 400, Message: "Invalid amount"}, KindRemote},
		{&walletapi.APIError{Message: "network error, please check your connection"}, KindRemote},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%v: expected %s, got %s", tc.err, tc.want, got)
		}
	}
	if Classify(nil) != "" {
		t.Fatal("nil error has no kind")
	}
}
