package ledger

import (
	"github.com/tendermint/tendermint/crypto"

	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
	"github.com/ali-3-3-3/EcoXChange/store"
)

// Credits is the ledger of settlement tokens. One credit is one verified
// carbon-offset unit.
type Credits struct {
	kv store.KVStore
}

func NewCredits(kv store.KVStore) *Credits {
	return &Credits{kv: kv}
}

func (c *Credits) BalanceOf(addr crypto.Address) (uint64, error) {
	return store.GetUint64(c.kv, creditKey(addr))
}

func (c *Credits) TotalSupply() (uint64, error) {
	return store.GetUint64(c.kv, creditSupplyKey())
}

// Mint creates amount credits owned by addr.
func (c *Credits) Mint(addr crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	supply, err := c.TotalSupply()
	if err != nil {
		return err
	}
	if supply, err = ecomath.SafeAddUint64(supply, amount); err != nil {
		return err
	}
	bal, err := c.BalanceOf(addr)
	if err != nil {
		return err
	}
	if bal, err = ecomath.SafeAddUint64(bal, amount); err != nil {
		return err
	}
	if err := store.SetUint64(c.kv, creditSupplyKey(), supply); err != nil {
		return err
	}
	return store.SetUint64(c.kv, creditKey(addr), bal)
}
