package app

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/ledger"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// GenesisState is the application state a chain starts from. It is carried
// in the app_state field of the Tendermint genesis document.
type GenesisState struct {
	Roles     []GenesisRole     `json:"roles"`
	Balances  []GenesisBalance  `json:"balances"`
	Projects  []GenesisProject  `json:"projects"`
	Pricing   []GenesisPricing  `json:"pricing,omitempty"`
	Blacklist []crypto.Address  `json:"blacklist,omitempty"`
	Paused    bool              `json:"paused,omitempty"`
	Market    *GenesisCondition `json:"market_conditions,omitempty"`
	// Reserve seeds the account validation bonuses are paid from.
	Reserve uint64 `json:"market_reserve,omitempty"`
}

type GenesisRole struct {
	Role    types.Role     `json:"role"`
	Address crypto.Address `json:"address"`
}

type GenesisBalance struct {
	Address crypto.Address `json:"address"`
	Amount  uint64         `json:"amount"`
}

type GenesisProject struct {
	ID     uint64         `json:"id"`
	Owner  crypto.Address `json:"owner"`
	Supply uint64         `json:"supply"`
}

type GenesisPricing struct {
	ProjectID    uint64             `json:"project_id"`
	Model        types.PricingModel `json:"model"`
	QualityScore uint64             `json:"quality_score"`
}

type GenesisCondition struct {
	DemandMultiplier uint64 `json:"demand_multiplier"`
	SupplyMultiplier uint64 `json:"supply_multiplier"`
	VolatilityIndex  uint64 `json:"volatility_index"`
	Sentiment        uint64 `json:"sentiment"`
}

// DefaultGenesisState returns an empty market administered by admin.
func DefaultGenesisState(admin crypto.Address) *GenesisState {
	return &GenesisState{
		Roles: []GenesisRole{{Role: types.RoleAdmin, Address: admin}},
	}
}

// GenesisStateFromJSON decodes and validates a genesis app state.
func GenesisStateFromJSON(bz []byte) (*GenesisState, error) {
	gen := new(GenesisState)
	if len(bz) == 0 {
		return gen, nil
	}
	if err := json.Unmarshal(bz, gen); err != nil {
		return nil, fmt.Errorf("decode app state: %w", err)
	}
	if err := gen.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid app state: %w", err)
	}
	return gen, nil
}

// ValidateBasic performs the checks that do not need the store.
func (gen *GenesisState) ValidateBasic() error {
	var admin bool
	for i, r := range gen.Roles {
		if err := r.Role.ValidateBasic(); err != nil {
			return fmt.Errorf("roles[%d]: %w", i, err)
		}
		if len(r.Address) != crypto.AddressSize {
			return fmt.Errorf("roles[%d]: invalid address %v", i, r.Address)
		}
		admin = admin || r.Role == types.RoleAdmin
	}
	for i, b := range gen.Balances {
		if len(b.Address) != crypto.AddressSize {
			return fmt.Errorf("balances[%d]: invalid address %v", i, b.Address)
		}
		if bytes.Equal(b.Address, types.MarketAddress) || bytes.Equal(b.Address, types.ReserveAddress) {
			return fmt.Errorf("balances[%d]: %v is a market account, use market_reserve", i, b.Address)
		}
	}
	seen := make(map[uint64]bool, len(gen.Projects))
	for i, p := range gen.Projects {
		if seen[p.ID] {
			return fmt.Errorf("projects[%d]: duplicate id %d", i, p.ID)
		}
		seen[p.ID] = true
		if len(p.Owner) != crypto.AddressSize {
			return fmt.Errorf("projects[%d]: invalid owner %v", i, p.Owner)
		}
	}
	for i, p := range gen.Pricing {
		if !p.Model.IsValid() {
			return fmt.Errorf("pricing[%d]: unknown model %d", i, p.Model)
		}
		if err := types.ValidateScore(p.QualityScore); err != nil {
			return fmt.Errorf("pricing[%d]: %w", i, err)
		}
	}
	if c := gen.Market; c != nil {
		err := types.ValidateMarketConditions(c.DemandMultiplier, c.SupplyMultiplier, c.VolatilityIndex, c.Sentiment)
		if err != nil {
			return fmt.Errorf("market_conditions: %w", err)
		}
	}
	if !admin && (len(gen.Pricing) > 0 || gen.Market != nil) {
		return fmt.Errorf("pricing and market conditions need an admin role")
	}
	return nil
}

// firstAdmin returns the admin that initializes genesis pricing.
func (gen *GenesisState) firstAdmin() crypto.Address {
	for _, r := range gen.Roles {
		if r.Role == types.RoleAdmin {
			return r.Address
		}
	}
	return nil
}

// apply writes the genesis state through the components of k.
func (gen *GenesisState) apply(k keepers) error {
	for _, r := range gen.Roles {
		if err := k.auth.GrantRole(r.Role, r.Address); err != nil {
			return err
		}
	}
	for _, addr := range gen.Blacklist {
		if err := k.auth.SetBlacklisted(addr, true); err != nil {
			return err
		}
	}
	if err := k.auth.SetPaused(gen.Paused); err != nil {
		return err
	}
	for _, b := range gen.Balances {
		if err := k.bank.SetBalance(b.Address, b.Amount); err != nil {
			return err
		}
	}
	if gen.Reserve > 0 {
		if err := k.bank.SetBalance(types.ReserveAddress, gen.Reserve); err != nil {
			return err
		}
	}
	for _, p := range gen.Projects {
		err := k.projects.Register(ledger.Project{ID: p.ID, Owner: p.Owner, Supply: p.Supply})
		if err != nil {
			return err
		}
	}

	admin := gen.firstAdmin()
	for _, p := range gen.Pricing {
		if err := k.pricing.Initialize(admin, p.ProjectID, p.Model, p.QualityScore); err != nil {
			return fmt.Errorf("pricing for project %d: %w", p.ProjectID, err)
		}
	}
	if c := gen.Market; c != nil {
		err := k.pricing.UpdateMarketConditions(admin, c.DemandMultiplier, c.SupplyMultiplier, c.VolatilityIndex, c.Sentiment)
		if err != nil {
			return err
		}
	}
	return nil
}
