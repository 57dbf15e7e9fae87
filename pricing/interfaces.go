package pricing

import (
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/types"
)

// SupplyReader exposes the ledger counters the strategies price against.
type SupplyReader interface {
	Supply(projectID uint64) (uint64, error)
	Sold(projectID uint64) (uint64, error)
}

// Authorizer answers role checks for the admin operations.
type Authorizer interface {
	HasRole(role types.Role, addr crypto.Address) (bool, error)
}
