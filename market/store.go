package market

import (
	"bytes"
	"fmt"

	"github.com/google/orderedcode"
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/store"
)

const (
	prefixStake          = int64(20)
	prefixBuyers         = int64(21)
	prefixReplayPool     = int64(22)
	prefixSellerProjects = int64(23)
)

func mustKey(parts ...interface{}) []byte {
	key, err := orderedcode.Append(nil, parts...)
	if err != nil {
		panic(fmt.Errorf("market: encoding key: %w", err))
	}
	return key
}

func stakeKey(projectID uint64, buyer crypto.Address) []byte {
	return mustKey(prefixStake, projectID, string(buyer))
}

func buyersKey(projectID uint64) []byte {
	return mustKey(prefixBuyers, projectID)
}

func replayPoolKey(seller crypto.Address, projectID uint64) []byte {
	return mustKey(prefixReplayPool, string(seller), projectID)
}

func sellerProjectsKey(seller crypto.Address) []byte {
	return mustKey(prefixSellerProjects, string(seller))
}

// book is the market's own state: buyer stakes and the buyer set of every
// ongoing project, resale pools and seller project lists.
type book struct {
	kv store.KVStore
}

func (b book) stake(projectID uint64, buyer crypto.Address) (uint64, error) {
	return store.GetUint64(b.kv, stakeKey(projectID, buyer))
}

func (b book) setStake(projectID uint64, buyer crypto.Address, amount uint64) error {
	return store.SetUint64(b.kv, stakeKey(projectID, buyer), amount)
}

// buyers returns the buyer set of a project in first-purchase order.
func (b book) buyers(projectID uint64) ([]crypto.Address, error) {
	var buyers []crypto.Address
	if _, err := store.GetJSON(b.kv, buyersKey(projectID), &buyers); err != nil {
		return nil, err
	}
	return buyers, nil
}

// addBuyer records buyer once.
func (b book) addBuyer(projectID uint64, buyer crypto.Address) error {
	buyers, err := b.buyers(projectID)
	if err != nil {
		return err
	}
	for _, addr := range buyers {
		if bytes.Equal(addr, buyer) {
			return nil
		}
	}
	return store.SetJSON(b.kv, buyersKey(projectID), append(buyers, buyer))
}

func (b book) clearBuyers(projectID uint64) error {
	return b.kv.Delete(buyersKey(projectID))
}

func (b book) replayPool(seller crypto.Address, projectID uint64) (uint64, error) {
	return store.GetUint64(b.kv, replayPoolKey(seller, projectID))
}

func (b book) setReplayPool(seller crypto.Address, projectID, amount uint64) error {
	return store.SetUint64(b.kv, replayPoolKey(seller, projectID), amount)
}

func (b book) sellerProjects(seller crypto.Address) ([]uint64, error) {
	var ids []uint64
	if _, err := store.GetJSON(b.kv, sellerProjectsKey(seller), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// addSellerProject records projectID once.
func (b book) addSellerProject(seller crypto.Address, projectID uint64) error {
	ids, err := b.sellerProjects(seller)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == projectID {
			return nil
		}
	}
	return store.SetJSON(b.kv, sellerProjectsKey(seller), append(ids, projectID))
}
