package ledger

import (
	"sync"

	"github.com/tendermint/tendermint/crypto"

	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// ReceiveHook is recipient code run after a payment to its address has been
// credited. An error fails the payment, and with it the whole transaction.
type ReceiveHook func(from crypto.Address, amount uint64) error

// Hooks is the registry of receive hooks. It outlives transactions and is
// safe for concurrent use.
type Hooks struct {
	mtx   sync.RWMutex
	hooks map[string]ReceiveHook
}

func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[string]ReceiveHook)}
}

// Register installs hook for addr, replacing any previous one. A nil hook
// removes it.
func (h *Hooks) Register(addr crypto.Address, hook ReceiveHook) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if hook == nil {
		delete(h.hooks, string(addr))
		return
	}
	h.hooks[string(addr)] = hook
}

func (h *Hooks) get(addr crypto.Address) ReceiveHook {
	if h == nil {
		return nil
	}
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return h.hooks[string(addr)]
}

//-----------------------------------------------------------------------------

// Payee is the capability to receive native currency. It can only be
// obtained from Bank.Payee.
type Payee struct {
	addr crypto.Address
}

func (p Payee) Address() crypto.Address {
	return p.addr
}

// Bank holds native currency balances.
type Bank struct {
	kv    store.KVStore
	hooks *Hooks
}

// NewBank returns a bank over kv. hooks may be nil.
func NewBank(kv store.KVStore, hooks *Hooks) *Bank {
	return &Bank{kv: kv, hooks: hooks}
}

func (b *Bank) Balance(addr crypto.Address) (uint64, error) {
	return store.GetUint64(b.kv, balanceKey(addr))
}

// SetBalance overwrites the balance of addr. Only genesis uses it.
func (b *Bank) SetBalance(addr crypto.Address, amount uint64) error {
	return store.SetUint64(b.kv, balanceKey(addr), amount)
}

// Payee checks addr can receive payments.
func (b *Bank) Payee(addr crypto.Address) (Payee, error) {
	if len(addr) != crypto.AddressSize {
		return Payee{}, types.ErrInvalid("recipient", "expected %d byte address, got %d", crypto.AddressSize, len(addr))
	}
	return Payee{addr: addr}, nil
}

// Send moves amount from one account to another and then runs the
// recipient's receive hook, if any.
func (b *Bank) Send(from crypto.Address, to Payee, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if len(to.addr) == 0 {
		return types.ErrInvalid("recipient", "zero payee")
	}
	fromBal, err := b.Balance(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return types.InsufficientFundsError{Required: amount, Provided: fromBal}
	}
	if err := store.SetUint64(b.kv, balanceKey(from), fromBal-amount); err != nil {
		return err
	}
	toBal, err := b.Balance(to.addr)
	if err != nil {
		return err
	}
	if toBal, err = ecomath.SafeAddUint64(toBal, amount); err != nil {
		return types.ErrInvalid("amount", "recipient balance overflow")
	}
	if err := store.SetUint64(b.kv, balanceKey(to.addr), toBal); err != nil {
		return err
	}

	if hook := b.hooks.get(to.addr); hook != nil {
		return hook(from, amount)
	}
	return nil
}
