package deposit

import (
	"github.com/congo-pay/wallet_bff/internal/channel"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

// Resource names accepted by Controller.Retry.
const (
	ResourceCountries   = "countries"
	ResourceBalances    = "balances"
	ResourceProviders   = "providers"
	ResourceBankDetails = "bank_details"
	ResourceReceipt     = "receipt"
)

// Resource is the state of one remote read. Results of a load that was
// superseded by a later begin or reset are dropped.
type Resource[T any] struct {
	Data    T
	Loaded  bool
	Loading bool
	Err     error
	gen     uint64
}

func (r *Resource[T]) begin() uint64 {
	r.gen++
	r.Loading = true
	r.Err = nil
	return r.gen
}

// finish applies a result and reports whether it was still current.
func (r *Resource[T]) finish(gen uint64, data T, err error) bool {
	if gen != r.gen {
		return false
	}
	r.Loading = false
	if err != nil {
		r.Err = err
		return true
	}
	r.Data = data
	r.Loaded = true
	r.Err = nil
	return true
}

func (r *Resource[T]) reset() {
	var zero T
	r.gen++
	r.Data = zero
	r.Loaded = false
	r.Loading = false
	r.Err = nil
}

// Channel is the active deposit channel together with its own fields. It is
// either BankTransfer or MobileMoney.
type Channel interface {
	Kind() channel.Kind
	isChannel()
}

// BankTransfer deposits are paid into the collection account in Details.
type BankTransfer struct {
	Details     Resource[walletapi.BankDetails]
	AccountName string
}

func (BankTransfer) Kind() channel.Kind { return channel.BankTransfer }
func (BankTransfer) isChannel()         {}

// MobileMoney deposits are pulled from Phone through Provider.
type MobileMoney struct {
	Providers Resource[[]walletapi.Provider]
	Provider  *walletapi.Provider
	Phone     string
}

func (MobileMoney) Kind() channel.Kind { return channel.MobileMoney }
func (MobileMoney) isChannel()         {}

func newChannel(kind channel.Kind) Channel {
	if kind == channel.MobileMoney {
		return &MobileMoney{}
	}
	return &BankTransfer{}
}

// copyChannel returns a value copy safe to hand out of the lock.
func copyChannel(ch Channel) Channel {
	switch ch := ch.(type) {
	case *BankTransfer:
		return *ch
	case *MobileMoney:
		cp := *ch
		if ch.Provider != nil {
			p := *ch.Provider
			cp.Provider = &p
		}
		return cp
	}
	return nil
}
