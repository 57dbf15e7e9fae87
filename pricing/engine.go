package pricing

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/libs/log"
	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// Engine prices carbon credits. It owns the market conditions record and
// one pricing record per project, all kept in the store it is built with.
//
// An Engine is bound to a single transaction: it reads the block time from
// its Context and emits events into the Context's EventManager. It is not
// safe for concurrent use.
type Engine struct {
	ctx      types.Context
	kv       store.KVStore
	projects SupplyReader
	auth     Authorizer
	logger   log.Logger
}

// NewEngine returns an Engine over kv.
func NewEngine(ctx types.Context, kv store.KVStore, projects SupplyReader, auth Authorizer, logger log.Logger) *Engine {
	return &Engine{
		ctx:      ctx,
		kv:       kv,
		projects: projects,
		auth:     auth,
		logger:   logger.With("module", "pricing"),
	}
}

// Initialize creates the pricing record of a project.
func (e *Engine) Initialize(caller crypto.Address, projectID uint64, model types.PricingModel, quality uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !model.IsValid() {
		return types.ErrInvalid("model", "unknown pricing model %d", model)
	}
	if err := types.ValidateScore(quality); err != nil {
		return err
	}
	_, found, err := loadPricing(e.kv, projectID)
	if err != nil {
		return err
	}
	if found {
		return types.StateError{ProjectID: projectID, Reason: "pricing already initialized"}
	}

	base, err := qualityAdjust(BasePrice, quality)
	if err != nil {
		return types.ErrInvalid("base_price", "%v", err)
	}
	p := ProjectPricing{
		ProjectID:     projectID,
		BasePrice:     base,
		CurrentPrice:  base,
		MinPrice:      MinPriceRatio.MustOf(base),
		MaxPrice:      MaxPriceRatio.MustOf(base),
		Model:         model,
		LastTradeTime: e.ctx.Time,
		QualityScore:  quality,
		DemandScore:   DefaultScore,
		SupplyScore:   DefaultScore,
	}
	if model == types.ModelBondingCurve {
		if err := saveCurve(e.kv, projectID, defaultCurve(base)); err != nil {
			return err
		}
	}
	if err := savePricing(e.kv, p); err != nil {
		return err
	}

	e.ctx.Events.Emit(types.EventPriceUpdated{
		ProjectID: projectID,
		OldPrice:  BasePrice,
		NewPrice:  base,
		Reason:    types.PriceReasonInitialized,
	})
	e.logger.Info("pricing initialized", "project", projectID, "model", model, "base_price", base)
	return nil
}

// CurrentPrice returns the price of one credit of the project. Projects
// without pricing trade at BasePrice.
func (e *Engine) CurrentPrice(projectID uint64) (uint64, error) {
	st, _, err := e.state(projectID)
	if err != nil {
		return 0, err
	}
	conds, err := loadConditions(e.kv)
	if err != nil {
		return 0, err
	}
	return StrategyFor(st.Pricing.Model)(st, conds), nil
}

// PriceImpact projects the effect of a trade of amount credits without
// changing any state.
func (e *Engine) PriceImpact(projectID, amount uint64, isBuy bool) (Impact, error) {
	st, found, err := e.state(projectID)
	if err != nil {
		return Impact{}, err
	}
	conds, err := loadConditions(e.kv)
	if err != nil {
		return Impact{}, err
	}
	impact := priceImpact(st, conds, amount, isBuy)
	if !found {
		impact.ProjectedPrice = BasePrice
	}
	return impact, nil
}

func priceImpact(st State, conds MarketConditions, amount uint64, isBuy bool) Impact {
	depth := st.Sold
	if isBuy {
		depth = ecomath.SaturatingSub(st.Supply, st.Sold)
	}
	ratio := ecomath.MinUint64(
		mulDiv(amount, ecomath.PermilleScale, ecomath.SaturatingAdd(depth, 1)),
		uint64(MaxImpact),
	)

	current := StrategyFor(st.Pricing.Model)(st, conds)
	delta := mulDiv(current, ratio, ecomath.PermilleScale)
	projected := ecomath.SaturatingSub(current, delta)
	if isBuy {
		projected = ecomath.SaturatingAdd(current, delta)
	}
	return Impact{
		ImpactPermille: ratio,
		ProjectedPrice: clampPrice(st.Pricing, projected),
	}
}

// RecordTrade updates the price of a project after amount credits were
// bought or listed. The ledger counters must already reflect the trade.
// It does nothing for projects without pricing.
func (e *Engine) RecordTrade(projectID, amount uint64, isBuy bool) error {
	st, found, err := e.state(projectID)
	if err != nil || !found {
		return err
	}
	conds, err := loadConditions(e.kv)
	if err != nil {
		return err
	}

	p := st.Pricing
	next := p.CurrentPrice
	switch p.Model {
	case types.ModelFixed:
	case types.ModelAuction:
		next = priceImpact(st, conds, amount, isBuy).ProjectedPrice
	default:
		st.Refresh = true
		st.Pricing.LastTradeTime = e.ctx.Time
		next = StrategyFor(p.Model)(st, conds)
	}

	volume, err := ecomath.SafeAddUint64(p.TotalVolume, amount)
	if err != nil {
		return types.ErrInvalid("total_volume", "%v", err)
	}
	old := p.CurrentPrice
	p.CurrentPrice = next
	p.TotalVolume = volume
	p.LastTradeTime = e.ctx.Time
	if isBuy {
		p.DemandScore = ecomath.MinUint64(p.DemandScore+scoreStepUp, types.MaxScore)
		p.SupplyScore = ecomath.SaturatingSub(p.SupplyScore, scoreStepDown)
	} else {
		p.SupplyScore = ecomath.MinUint64(p.SupplyScore+scoreStepUp, types.MaxScore)
		p.DemandScore = ecomath.SaturatingSub(p.DemandScore, scoreStepDown)
	}
	if err := savePricing(e.kv, p); err != nil {
		return err
	}
	if err := e.recordSample(projectID, amount, next); err != nil {
		return err
	}

	if next != old {
		e.ctx.Events.Emit(types.EventPriceUpdated{
			ProjectID: projectID,
			OldPrice:  old,
			NewPrice:  next,
			Reason:    types.PriceReasonTrade,
		})
	}
	e.checkVolatility(projectID, old, next)
	e.logger.Debug("trade recorded", "project", projectID, "amount", amount, "buy", isBuy, "price", next)
	return nil
}

func (e *Engine) checkVolatility(projectID, old, next uint64) {
	if old == 0 {
		return
	}
	var move uint64
	if next > old {
		move = next - old
	} else {
		move = old - next
	}
	change, err := ecomath.PermilleOf(move, old)
	if err != nil {
		change = math.MaxUint64
	}
	if change <= VolatilityThreshold {
		return
	}
	e.ctx.Events.Emit(types.EventVolatilityAlert{ProjectID: projectID, ChangePermille: uint64(change)})
	e.logger.Info("volatility alert", "project", projectID, "old_price", old, "new_price", next,
		"change", change)
}

func (e *Engine) recordSample(projectID, amount, price uint64) error {
	day := DayOf(e.ctx.Time)
	s, _, err := loadSample(e.kv, projectID, day)
	if err != nil {
		return err
	}
	s.Volume = ecomath.SaturatingAdd(s.Volume, amount)
	s.Trades++
	s.LastPrice = price
	return saveSample(e.kv, projectID, s)
}

// UpdateMarketConditions replaces the market conditions record.
func (e *Engine) UpdateMarketConditions(caller crypto.Address, demand, supply, volatility, sentiment uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := types.ValidateMarketConditions(demand, supply, volatility, sentiment); err != nil {
		return err
	}
	prev, err := loadConditions(e.kv)
	if err != nil {
		return err
	}
	next := MarketConditions{
		DemandMultiplier: demand,
		SupplyMultiplier: supply,
		VolatilityIndex:  volatility,
		Sentiment:        sentiment,
		LastUpdate:       e.ctx.Time,
		Version:          prev.Version + 1,
	}
	if err := saveConditions(e.kv, next); err != nil {
		return err
	}
	e.logger.Info("market conditions updated", "version", next.Version,
		"demand", demand, "supply", supply, "volatility", volatility, "sentiment", sentiment)
	return nil
}

// ChangeModel switches a project to another pricing model and reprices it.
func (e *Engine) ChangeModel(caller crypto.Address, projectID uint64, model types.PricingModel) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if !model.IsValid() {
		return types.ErrInvalid("model", "unknown pricing model %d", model)
	}
	return e.reprice(projectID, types.PriceReasonModel, func(st *State) error {
		st.Pricing.Model = model
		if model != types.ModelBondingCurve {
			return nil
		}
		curve, found, err := loadCurve(e.kv, projectID)
		if err != nil {
			return err
		}
		if found {
			st.Curve = curve
			return nil
		}
		st.Curve = defaultCurve(st.Pricing.BasePrice)
		return saveCurve(e.kv, projectID, st.Curve)
	})
}

// UpdateQuality sets the quality score of a project and reprices it. The
// base price set at initialization does not change.
func (e *Engine) UpdateQuality(caller crypto.Address, projectID, quality uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := types.ValidateScore(quality); err != nil {
		return err
	}
	return e.reprice(projectID, types.PriceReasonQuality, func(st *State) error {
		st.Pricing.QualityScore = quality
		return nil
	})
}

func (e *Engine) reprice(projectID uint64, reason string, mutate func(*State) error) error {
	st, found, err := e.state(projectID)
	if err != nil {
		return err
	}
	if !found {
		return types.StateError{ProjectID: projectID, Reason: "pricing not initialized"}
	}
	conds, err := loadConditions(e.kv)
	if err != nil {
		return err
	}
	if err := mutate(&st); err != nil {
		return err
	}

	old := st.Pricing.CurrentPrice
	st.Refresh = true
	st.Pricing.CurrentPrice = StrategyFor(st.Pricing.Model)(st, conds)
	if err := savePricing(e.kv, st.Pricing); err != nil {
		return err
	}
	e.ctx.Events.Emit(types.EventPriceUpdated{
		ProjectID: projectID,
		OldPrice:  old,
		NewPrice:  st.Pricing.CurrentPrice,
		Reason:    reason,
	})
	e.logger.Info("project repriced", "project", projectID, "reason", reason,
		"model", st.Pricing.Model, "price", st.Pricing.CurrentPrice)
	return nil
}

// PricingInfo returns the pricing record of a project with its live price.
func (e *Engine) PricingInfo(projectID uint64) (PricingInfo, error) {
	st, found, err := e.state(projectID)
	if err != nil {
		return PricingInfo{}, err
	}
	if !found {
		return PricingInfo{}, types.StateError{ProjectID: projectID, Reason: "pricing not initialized"}
	}
	conds, err := loadConditions(e.kv)
	if err != nil {
		return PricingInfo{}, err
	}
	p := st.Pricing
	current := StrategyFor(p.Model)(st, conds)
	return PricingInfo{
		ProjectID:    projectID,
		CurrentPrice: current,
		BasePrice:    p.BasePrice,
		MinPrice:     p.MinPrice,
		MaxPrice:     p.MaxPrice,
		Model:        p.Model,
		TotalVolume:  p.TotalVolume,
		QualityScore: p.QualityScore,
		DemandScore:  p.DemandScore,
		SupplyScore:  p.SupplyScore,
		Premium:      premium(current, p.BasePrice),
	}, nil
}

func premium(current, base uint64) string {
	if base == 0 {
		return "0"
	}
	c := decimal.NewFromBigInt(new(big.Int).SetUint64(current), 0)
	b := decimal.NewFromBigInt(new(big.Int).SetUint64(base), 0)
	return c.DivRound(b, 3).StringFixed(3)
}

// MarketConditions returns the market conditions record.
func (e *Engine) MarketConditions() (MarketConditions, error) {
	return loadConditions(e.kv)
}

// History returns the daily samples of a project between two days,
// inclusive. Days without trades are omitted.
func (e *Engine) History(projectID uint64, fromDay, toDay int64) ([]DailySample, error) {
	if fromDay > toDay {
		return nil, types.ErrInvalid("range", "from %d after to %d", fromDay, toDay)
	}
	// The difference of two ordered int64 values always fits a uint64.
	span := uint64(toDay - fromDay)
	if span >= MaxHistoryDays {
		return nil, types.ErrInvalid("range", "span of %d days above %d", ecomath.SaturatingAdd(span, 1), MaxHistoryDays)
	}
	var samples []DailySample
	for i := uint64(0); i <= span; i++ {
		day := fromDay + int64(i)
		s, found, err := loadSample(e.kv, projectID, day)
		if err != nil {
			return nil, err
		}
		if found {
			samples = append(samples, s)
		}
	}
	return samples, nil
}

// state assembles the strategy input of a project. Projects without
// pricing get a FIXED record at BasePrice so that every read has a defined
// answer.
func (e *Engine) state(projectID uint64) (State, bool, error) {
	p, found, err := loadPricing(e.kv, projectID)
	if err != nil {
		return State{}, false, err
	}
	if !found {
		p = ProjectPricing{
			ProjectID:    projectID,
			BasePrice:    BasePrice,
			CurrentPrice: BasePrice,
			MinPrice:     MinPriceRatio.MustOf(BasePrice),
			MaxPrice:     MaxPriceRatio.MustOf(BasePrice),
			Model:        types.ModelFixed,
			DemandScore:  DefaultScore,
			SupplyScore:  DefaultScore,
		}
	}
	st := State{Pricing: p, Now: e.ctx.Time}

	if p.Model == types.ModelBondingCurve {
		curve, ok, err := loadCurve(e.kv, projectID)
		if err != nil {
			return State{}, false, err
		}
		if !ok {
			curve = defaultCurve(p.BasePrice)
		}
		st.Curve = curve
	}
	if st.Supply, err = e.projects.Supply(projectID); err != nil {
		return State{}, false, fmt.Errorf("reading supply: %w", err)
	}
	if st.Sold, err = e.projects.Sold(projectID); err != nil {
		return State{}, false, fmt.Errorf("reading sold: %w", err)
	}
	return st, found, nil
}

func (e *Engine) requireAdmin(caller crypto.Address) error {
	ok, err := e.auth.HasRole(types.RoleAdmin, caller)
	if err != nil {
		return err
	}
	if !ok {
		return types.AuthorizationError{Addr: caller, Reason: "admin role required"}
	}
	return nil
}
