package pricing

import (
	"math"
	"time"

	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// State is everything a strategy needs to price one project.
type State struct {
	Pricing ProjectPricing
	Curve   BondingCurve
	Supply  uint64
	Sold    uint64
	Now     time.Time

	// Refresh makes strategies that serve a stored price recompute it from
	// the market instead. It is set when a trade or an admin change moves
	// the price.
	Refresh bool
}

// Strategy computes the current price of a project. The result always lies
// in [MinPrice, MaxPrice] of the project. Intermediate overflow saturates
// and is then clamped.
type Strategy func(s State, c MarketConditions) uint64

var strategies = [...]Strategy{
	types.ModelFixed:           storedPrice,
	types.ModelSupplyDemand:    supplyDemandPrice,
	types.ModelBondingCurve:    bondingCurvePrice,
	types.ModelAuction:         storedPrice,
	types.ModelTWAP:            twapPrice,
	types.ModelQualityAdjusted: qualityAdjustedPrice,
}

// StrategyFor returns the strategy of model m. Unknown models price at the
// stored price.
func StrategyFor(m types.PricingModel) Strategy {
	if !m.IsValid() {
		return storedPrice
	}
	return strategies[m]
}

func clampPrice(p ProjectPricing, price uint64) uint64 {
	return ecomath.Clamp(price, p.MinPrice, p.MaxPrice)
}

// mulDiv is ecomath.MulDiv saturating at math.MaxUint64. Divisors are
// always non-zero constants here.
func mulDiv(a, b, c uint64) uint64 {
	v, err := ecomath.MulDiv(a, b, c)
	if err != nil {
		return math.MaxUint64
	}
	return v
}

func qualityMultiplier(score uint64) uint64 {
	return qualityOffset + score
}

func qualityAdjust(base, score uint64) (uint64, error) {
	return ecomath.MulDiv(base, qualityMultiplier(score), ecomath.PermilleScale)
}

func storedPrice(s State, _ MarketConditions) uint64 {
	return clampPrice(s.Pricing, s.Pricing.CurrentPrice)
}

func supplyDemandPrice(s State, c MarketConditions) uint64 {
	if s.Pricing.TotalVolume > 0 && !s.Refresh {
		return storedPrice(s, c)
	}
	return freshSupplyDemandPrice(s, c)
}

// freshSupplyDemandPrice prices scarcity: the fewer credits remain
// available, the higher the pressure on the base price, up to 2x.
func freshSupplyDemandPrice(s State, c MarketConditions) uint64 {
	availability := uint64(ecomath.OnePermille)
	if s.Supply > 0 {
		available := ecomath.SaturatingSub(s.Supply, s.Sold)
		availability = mulDiv(available, ecomath.PermilleScale, s.Supply)
	}
	pressure := 2*uint64(ecomath.OnePermille) - ecomath.MinUint64(availability, ecomath.PermilleScale)

	price := mulDiv(s.Pricing.BasePrice, pressure, ecomath.PermilleScale)
	price = mulDiv(price, c.DemandMultiplier, ecomath.PermilleScale)
	price = mulDiv(price, qualityMultiplier(s.Pricing.QualityScore), ecomath.PermilleScale)
	price = mulDiv(price, uint64(TimeDecay(s.Now.Sub(s.Pricing.LastTradeTime))), ecomath.PermilleScale)
	return clampPrice(s.Pricing, price)
}

func bondingCurvePrice(s State, _ MarketConditions) uint64 {
	sq, err := ecomath.SafeMulUint64(s.Sold, s.Sold)
	if err != nil {
		sq = math.MaxUint64
	}
	price := ecomath.SaturatingAdd(s.Curve.Intercept, mulDiv(s.Curve.Slope, sq, curveScale))
	return clampPrice(s.Pricing, price)
}

func qualityAdjustedPrice(s State, _ MarketConditions) uint64 {
	price := mulDiv(s.Pricing.BasePrice, qualityMultiplier(s.Pricing.QualityScore), ecomath.PermilleScale)
	return clampPrice(s.Pricing, price)
}

func twapPrice(s State, c MarketConditions) uint64 {
	stored := storedPrice(s, c)
	fresh := freshSupplyDemandPrice(s, c)
	price := ecomath.SaturatingAdd(
		twapStoredWeight.MustOf(stored),
		twapFreshWeight.MustOf(fresh),
	)
	return clampPrice(s.Pricing, price)
}
