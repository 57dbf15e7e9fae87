package ledger

import (
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// Auth answers role, pause and blacklist questions from the store and owns
// the reentrancy guard of the transaction it was created for.
type Auth struct {
	kv    store.KVStore
	guard guard
}

func NewAuth(kv store.KVStore) *Auth {
	return &Auth{kv: kv}
}

func (a *Auth) HasRole(role types.Role, addr crypto.Address) (bool, error) {
	return getFlag(a.kv, roleKey(string(role), addr))
}

func (a *Auth) GrantRole(role types.Role, addr crypto.Address) error {
	if err := role.ValidateBasic(); err != nil {
		return err
	}
	return setFlag(a.kv, roleKey(string(role), addr), true)
}

func (a *Auth) RevokeRole(role types.Role, addr crypto.Address) error {
	return setFlag(a.kv, roleKey(string(role), addr), false)
}

func (a *Auth) IsPaused() (bool, error) {
	return getFlag(a.kv, pausedKey())
}

func (a *Auth) SetPaused(paused bool) error {
	return setFlag(a.kv, pausedKey(), paused)
}

func (a *Auth) IsBlacklisted(addr crypto.Address) (bool, error) {
	return getFlag(a.kv, blacklistKey(addr))
}

func (a *Auth) SetBlacklisted(addr crypto.Address, blacklisted bool) error {
	return setFlag(a.kv, blacklistKey(addr), blacklisted)
}

// Enter acquires the reentrancy guard for op. It fails if any guarded
// operation is already executing.
func (a *Auth) Enter(op string) error {
	return a.guard.enter(op)
}

// Exit releases the reentrancy guard.
func (a *Auth) Exit() {
	a.guard.exit()
}

type guard struct {
	active string
}

func (g *guard) enter(op string) error {
	if g.active != "" {
		return types.ReentrancyError{Op: op, Active: g.active}
	}
	g.active = op
	return nil
}

func (g *guard) exit() {
	g.active = ""
}
