package market

import (
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/ledger"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// ProjectLedger tracks per-project supply, listing and sale counters and the
// collateral sellers have staked.
type ProjectLedger interface {
	Exists(id uint64) (bool, error)
	OwnedBy(id uint64, addr crypto.Address) (bool, error)
	Supply(id uint64) (uint64, error)
	Sold(id uint64) (uint64, error)
	Listed(id uint64) (uint64, error)
	State(id uint64) (types.ProjectState, error)
	SetSupply(id, amount uint64) error
	SetSold(id, amount uint64) error
	SetListed(id, amount uint64) error
	SetCompleted(id uint64) error
	StakedCollateral(seller crypto.Address, id uint64) (uint64, error)
	StakeCollateral(seller crypto.Address, id, amount uint64) error
}

// Authorizer checks roles, the pause switch and the blacklist, and guards
// against reentrant calls within a transaction.
type Authorizer interface {
	HasRole(role types.Role, addr crypto.Address) (bool, error)
	IsPaused() (bool, error)
	IsBlacklisted(addr crypto.Address) (bool, error)
	Enter(op string) error
	Exit()
}

// CreditLedger issues carbon credits.
type CreditLedger interface {
	Mint(addr crypto.Address, amount uint64) error
}

// Bank moves native currency. Payments out of escrow can only go to a
// Payee.
type Bank interface {
	Balance(addr crypto.Address) (uint64, error)
	Payee(addr crypto.Address) (ledger.Payee, error)
	Send(from crypto.Address, to ledger.Payee, amount uint64) error
}

// Pricer quotes prices and is told about every settled trade.
type Pricer interface {
	CurrentPrice(projectID uint64) (uint64, error)
	RecordTrade(projectID, amount uint64, isBuy bool) error
}
