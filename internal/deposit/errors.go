package deposit

import (
	"errors"
	"strings"

	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

var (
	ErrInvalidAmount          = errors.New("enter a valid amount greater than zero")
	ErrProviderRequired       = errors.New("select a mobile money provider")
	ErrPhoneTooShort          = errors.New("enter a valid mobile money number")
	ErrBankDetailsUnavailable = errors.New("bank details are not available yet")
	ErrUnknownProvider        = errors.New("unknown mobile money provider")
	ErrUnknownCountry         = errors.New("unknown country")
	ErrUnknownChannel         = errors.New("unknown deposit channel")
	ErrWrongChannel           = errors.New("not available for the selected channel")
	ErrInvalidPinKey          = errors.New("only digits can be entered")
	ErrAmountUnresolved       = errors.New("unable to determine the deposit amount")

	ErrTransactionIDNotFound = errors.New("Transaction ID not found")
	ErrPINNotConfigured      = errors.New("transaction PIN is not set up")
	ErrMissingReference      = errors.New("transfer reference is missing, cancel and start again")

	ErrBusy               = errors.New("a request is already in progress")
	ErrFlowInProgress     = errors.New("finish or cancel the current deposit first")
	ErrPinPadClosed       = errors.New("no deposit is waiting for a PIN")
	ErrNoCompletedDeposit = errors.New("no completed deposit")
	ErrUnknownResource    = errors.New("unknown resource")
)

// ErrorKind is how a failure is surfaced to the user.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindPINNotConfigured     ErrorKind = "pin_not_configured"
	KindPINMismatch          ErrorKind = "pin_mismatch"
	KindMissingTransactionID ErrorKind = "missing_transaction_id"
	KindRemote               ErrorKind = "remote"
)

// ActionSetupPIN asks the client to navigate to PIN setup.
const ActionSetupPIN = "setup_pin"

var validationErrors = []error{
	ErrInvalidAmount,
	ErrProviderRequired,
	ErrPhoneTooShort,
	ErrBankDetailsUnavailable,
	ErrUnknownProvider,
	ErrUnknownCountry,
	ErrUnknownChannel,
	ErrWrongChannel,
	ErrInvalidPinKey,
	ErrAmountUnresolved,
	ErrMissingReference,
	walletapi.ErrInvalidPIN,
	walletapi.ErrProviderRequired,
	walletapi.ErrMissingTransactionID,
}

var (
	notConfiguredHints = []string{
		"not set", "not configured", "not created", "no pin", "set up", "setup",
		"set your", "create a pin", "create your", "create a transaction pin",
	}
	mismatchHints = []string{"incorrect", "invalid", "wrong", "mismatch", "does not match"}
)

// Classify maps a failure to its ErrorKind. Backend failures are classified by
// message: a PIN-related message that mentions a wrong value is
// KindPINMismatch, one that asks for setup is KindPINNotConfigured.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return KindValidation
		}
	}
	switch {
	case errors.Is(err, ErrTransactionIDNotFound):
		return KindMissingTransactionID
	case errors.Is(err, ErrPINNotConfigured):
		return KindPINNotConfigured
	}

	msg := strings.ToLower(walletapi.Message(err))
	if strings.Contains(msg, "pin") {
		if containsAny(msg, mismatchHints) {
			return KindPINMismatch
		}
		if containsAny(msg, notConfiguredHints) {
			return KindPINNotConfigured
		}
	}
	return KindRemote
}

// IsValidation reports whether err was raised locally before any remote call.
func IsValidation(err error) bool { return Classify(err) == KindValidation }

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// Notice is the error currently surfaced on the screen.
type Notice struct {
	Kind    ErrorKind
	Message string
	// Retry names the resource whose load can be re-issued.
	Retry  string
	Action string
}

func noticeFor(err error, retry string) *Notice {
	kind := Classify(err)
	n := &Notice{Kind: kind, Message: walletapi.Message(err)}
	if n.Message == "" {
		n.Message = "something went wrong, please try again"
	}
	switch kind {
	case KindPINNotConfigured:
		n.Action = ActionSetupPIN
	case KindRemote:
		n.Retry = retry
	}
	return n
}
