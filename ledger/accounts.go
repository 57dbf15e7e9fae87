package ledger

import (
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/store"
)

// Accounts tracks the next expected transaction sequence of every signer.
type Accounts struct {
	kv store.KVStore
}

func NewAccounts(kv store.KVStore) *Accounts {
	return &Accounts{kv: kv}
}

func (a *Accounts) Sequence(addr crypto.Address) (uint64, error) {
	return store.GetUint64(a.kv, sequenceKey(addr))
}

func (a *Accounts) IncrementSequence(addr crypto.Address) error {
	seq, err := a.Sequence(addr)
	if err != nil {
		return err
	}
	return store.SetUint64(a.kv, sequenceKey(addr), seq+1)
}
