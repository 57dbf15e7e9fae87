package ledger

import (
	"bytes"

	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// Project is the registry record of a carbon project: how many credits it is
// expected to produce and how many of them are listed and sold.
type Project struct {
	ID     uint64             `json:"id"`
	Owner  crypto.Address     `json:"owner"`
	Supply uint64             `json:"supply"`
	Listed uint64             `json:"listed"`
	Sold   uint64             `json:"sold"`
	State  types.ProjectState `json:"state"`
}

// Projects is the project ledger. Unknown projects read as zero.
type Projects struct {
	kv store.KVStore
}

func NewProjects(kv store.KVStore) *Projects {
	return &Projects{kv: kv}
}

// Register adds a new ongoing project.
func (p *Projects) Register(proj Project) error {
	exists, err := p.Exists(proj.ID)
	if err != nil {
		return err
	}
	if exists {
		return types.StateError{ProjectID: proj.ID, Reason: "already registered"}
	}
	if len(proj.Owner) != crypto.AddressSize {
		return types.ErrInvalid("owner", "expected %d byte address", crypto.AddressSize)
	}
	proj.Listed, proj.Sold, proj.State = 0, 0, types.ProjectOngoing
	return store.SetJSON(p.kv, projectKey(proj.ID), proj)
}

// Get returns the project record and whether it exists.
func (p *Projects) Get(id uint64) (Project, bool, error) {
	var proj Project
	found, err := store.GetJSON(p.kv, projectKey(id), &proj)
	return proj, found, err
}

func (p *Projects) Exists(id uint64) (bool, error) {
	return p.kv.Has(projectKey(id))
}

func (p *Projects) OwnedBy(id uint64, addr crypto.Address) (bool, error) {
	proj, found, err := p.Get(id)
	if err != nil || !found {
		return false, err
	}
	return bytes.Equal(proj.Owner, addr), nil
}

func (p *Projects) Supply(id uint64) (uint64, error) {
	proj, _, err := p.Get(id)
	return proj.Supply, err
}

func (p *Projects) Sold(id uint64) (uint64, error) {
	proj, _, err := p.Get(id)
	return proj.Sold, err
}

func (p *Projects) Listed(id uint64) (uint64, error) {
	proj, _, err := p.Get(id)
	return proj.Listed, err
}

func (p *Projects) State(id uint64) (types.ProjectState, error) {
	proj, _, err := p.Get(id)
	return proj.State, err
}

func (p *Projects) SetSupply(id, amount uint64) error {
	return p.update(id, func(proj *Project) { proj.Supply = amount })
}

func (p *Projects) SetSold(id, amount uint64) error {
	return p.update(id, func(proj *Project) { proj.Sold = amount })
}

func (p *Projects) SetListed(id, amount uint64) error {
	return p.update(id, func(proj *Project) { proj.Listed = amount })
}

func (p *Projects) SetCompleted(id uint64) error {
	return p.update(id, func(proj *Project) { proj.State = types.ProjectCompleted })
}

// StakedCollateral returns the collateral seller has escrowed against id.
func (p *Projects) StakedCollateral(seller crypto.Address, id uint64) (uint64, error) {
	return store.GetUint64(p.kv, collateralKey(seller, id))
}

// StakeCollateral overwrites the collateral seller has escrowed against id.
func (p *Projects) StakeCollateral(seller crypto.Address, id, amount uint64) error {
	return store.SetUint64(p.kv, collateralKey(seller, id), amount)
}

func (p *Projects) update(id uint64, fn func(*Project)) error {
	proj, found, err := p.Get(id)
	if err != nil {
		return err
	}
	if !found {
		return types.StateError{ProjectID: id, Reason: "not registered"}
	}
	fn(&proj)
	return store.SetJSON(p.kv, projectKey(id), proj)
}
