package types

import (
	"github.com/tendermint/tendermint/crypto"
)

// Msg is a state transition carried by a Tx.
type Msg interface {
	// Type is the route the application dispatches the message on.
	Type() string
	// ValidateBasic performs stateless checks.
	ValidateBasic() error
}

const (
	TypeMsgInitializePricing      = "initialize_pricing"
	TypeMsgUpdateMarketConditions = "update_market_conditions"
	TypeMsgChangeModel            = "change_model"
	TypeMsgUpdateQuality          = "update_quality"
	TypeMsgSell                   = "sell"
	TypeMsgBuy                    = "buy"
	TypeMsgValidateProject        = "validate_project"
)

var msgConstructors = map[string]func() Msg{
	TypeMsgInitializePricing:      func() Msg { return &MsgInitializePricing{} },
	TypeMsgUpdateMarketConditions: func() Msg { return &MsgUpdateMarketConditions{} },
	TypeMsgChangeModel:            func() Msg { return &MsgChangeModel{} },
	TypeMsgUpdateQuality:          func() Msg { return &MsgUpdateQuality{} },
	TypeMsgSell:                   func() Msg { return &MsgSell{} },
	TypeMsgBuy:                    func() Msg { return &MsgBuy{} },
	TypeMsgValidateProject:        func() Msg { return &MsgValidateProject{} },
}

type MsgInitializePricing struct {
	ProjectID    uint64       `json:"project_id"`
	Model        PricingModel `json:"model"`
	QualityScore uint64       `json:"quality_score"`
}

type MsgUpdateMarketConditions struct {
	DemandMultiplier uint64 `json:"demand_multiplier"`
	SupplyMultiplier uint64 `json:"supply_multiplier"`
	VolatilityIndex  uint64 `json:"volatility_index"`
	Sentiment        uint64 `json:"sentiment"`
}

type MsgChangeModel struct {
	ProjectID uint64       `json:"project_id"`
	Model     PricingModel `json:"model"`
}

type MsgUpdateQuality struct {
	ProjectID    uint64 `json:"project_id"`
	QualityScore uint64 `json:"quality_score"`
}

// MsgSell lists credits of a project. Collateral is attached as Tx funds.
type MsgSell struct {
	Amount    uint64 `json:"amount"`
	ProjectID uint64 `json:"project_id"`
}

// MsgBuy buys listed credits from Seller. Payment is attached as Tx funds.
type MsgBuy struct {
	Amount    uint64         `json:"amount"`
	Seller    crypto.Address `json:"seller"`
	ProjectID uint64         `json:"project_id"`
}

type MsgValidateProject struct {
	Seller       crypto.Address `json:"seller"`
	ProjectID    uint64         `json:"project_id"`
	IsValid      bool           `json:"is_valid"`
	ActualAmount uint64         `json:"actual_amount"`
}

func (*MsgInitializePricing) Type() string      { return TypeMsgInitializePricing }
func (*MsgUpdateMarketConditions) Type() string { return TypeMsgUpdateMarketConditions }
func (*MsgChangeModel) Type() string            { return TypeMsgChangeModel }
func (*MsgUpdateQuality) Type() string          { return TypeMsgUpdateQuality }
func (*MsgSell) Type() string                   { return TypeMsgSell }
func (*MsgBuy) Type() string                    { return TypeMsgBuy }
func (*MsgValidateProject) Type() string        { return TypeMsgValidateProject }

func (m *MsgInitializePricing) ValidateBasic() error {
	if !m.Model.IsValid() {
		return ErrInvalid("model", "unknown pricing model %d", uint8(m.Model))
	}
	return ValidateScore(m.QualityScore)
}

func (m *MsgUpdateMarketConditions) ValidateBasic() error {
	return ValidateMarketConditions(m.DemandMultiplier, m.SupplyMultiplier, m.VolatilityIndex, m.Sentiment)
}

func (m *MsgChangeModel) ValidateBasic() error {
	if !m.Model.IsValid() {
		return ErrInvalid("model", "unknown pricing model %d", uint8(m.Model))
	}
	return nil
}

func (m *MsgUpdateQuality) ValidateBasic() error {
	return ValidateScore(m.QualityScore)
}

func (m *MsgSell) ValidateBasic() error {
	return ValidateTradeAmount(m.Amount)
}

func (m *MsgBuy) ValidateBasic() error {
	if err := ValidateTradeAmount(m.Amount); err != nil {
		return err
	}
	return validateAddress("seller", m.Seller)
}

func (m *MsgValidateProject) ValidateBasic() error {
	return validateAddress("seller", m.Seller)
}

func validateAddress(field string, addr crypto.Address) error {
	if len(addr) != crypto.AddressSize {
		return ErrInvalid(field, "expected %d byte address, got %d", crypto.AddressSize, len(addr))
	}
	return nil
}
