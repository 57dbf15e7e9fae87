package ledger

import (
	"fmt"

	"github.com/google/orderedcode"
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/store"
)

const (
	// prefixes are unique across every package sharing the application store
	prefixProject      = int64(30)
	prefixCollateral   = int64(31)
	prefixRole         = int64(32)
	prefixBlacklist    = int64(33)
	prefixPaused       = int64(34)
	prefixBalance      = int64(35)
	prefixCredit       = int64(36)
	prefixCreditSupply = int64(37)
	prefixSequence     = int64(38)
)

func projectKey(id uint64) []byte {
	return mustKey(prefixProject, id)
}

func collateralKey(seller crypto.Address, id uint64) []byte {
	return mustKey(prefixCollateral, string(seller), id)
}

func roleKey(role string, addr crypto.Address) []byte {
	return mustKey(prefixRole, role, string(addr))
}

func blacklistKey(addr crypto.Address) []byte {
	return mustKey(prefixBlacklist, string(addr))
}

func pausedKey() []byte {
	return mustKey(prefixPaused)
}

func balanceKey(addr crypto.Address) []byte {
	return mustKey(prefixBalance, string(addr))
}

func creditKey(addr crypto.Address) []byte {
	return mustKey(prefixCredit, string(addr))
}

func creditSupplyKey() []byte {
	return mustKey(prefixCreditSupply)
}

func sequenceKey(addr crypto.Address) []byte {
	return mustKey(prefixSequence, string(addr))
}

func mustKey(items ...interface{}) []byte {
	key, err := orderedcode.Append(nil, items...)
	if err != nil {
		panic(fmt.Sprintf("encode key %v: %v", items, err))
	}
	return key
}

//-----------------------------------------------------------------------------

func getFlag(kv store.KVStore, key []byte) (bool, error) {
	bz, err := kv.Get(key)
	if err != nil {
		return false, err
	}
	return len(bz) > 0, nil
}

func setFlag(kv store.KVStore, key []byte, on bool) error {
	if !on {
		return kv.Delete(key)
	}
	return kv.Set(key, []byte{1})
}
