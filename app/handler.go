package app

import (
	"strconv"

	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/ali-3-3-3/EcoXChange/ledger"
	"github.com/ali-3-3-3/EcoXChange/libs/log"
	"github.com/ali-3-3-3/EcoXChange/market"
	"github.com/ali-3-3-3/EcoXChange/pricing"
	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// keepers are the components of one transaction, all writing to the same
// store.
type keepers struct {
	projects *ledger.Projects
	auth     *ledger.Auth
	credits  *ledger.Credits
	bank     *ledger.Bank
	accounts *ledger.Accounts
	pricing  *pricing.Engine
	market   *market.Engine
}

func newKeepers(ctx types.Context, kv store.KVStore, hooks *ledger.Hooks, logger log.Logger) keepers {
	k := keepers{
		projects: ledger.NewProjects(kv),
		auth:     ledger.NewAuth(kv),
		credits:  ledger.NewCredits(kv),
		bank:     ledger.NewBank(kv, hooks),
		accounts: ledger.NewAccounts(kv),
	}
	k.pricing = pricing.NewEngine(ctx, kv, k.projects, k.auth, logger)
	k.market = market.NewEngine(ctx, kv, market.Deps{
		Projects: k.projects,
		Auth:     k.auth,
		Credits:  k.credits,
		Bank:     k.bank,
		Pricer:   k.pricing,
	}, logger)
	return k
}

// handle executes msg on behalf of call.Sender. Attached funds have already
// been moved to the market account.
func (app *Application) handle(k keepers, call types.Call, msg types.Msg) error {
	switch msg := msg.(type) {
	case *types.MsgSell:
		if err := k.market.Sell(call, msg.Amount, msg.ProjectID); err != nil {
			return err
		}
		app.metrics.TradedCredits.With("side", "sell").Add(float64(msg.Amount))
		return nil

	case *types.MsgBuy:
		if err := k.market.Buy(call, msg.Amount, msg.Seller, msg.ProjectID); err != nil {
			return err
		}
		app.metrics.TradedCredits.With("side", "buy").Add(float64(msg.Amount))
		return nil

	case *types.MsgValidateProject:
		s, err := k.market.ValidateProject(call, msg.Seller, msg.ProjectID, msg.IsValid, msg.ActualAmount)
		if err != nil {
			return err
		}
		app.metrics.Settlements.With("valid", strconv.FormatBool(s.Valid)).Add(1)
		return nil
	}

	if call.Funds > 0 {
		return types.ErrInvalid("funds", "%s does not accept funds", msg.Type())
	}
	switch msg := msg.(type) {
	case *types.MsgInitializePricing:
		return k.pricing.Initialize(call.Sender, msg.ProjectID, msg.Model, msg.QualityScore)
	case *types.MsgUpdateMarketConditions:
		return k.pricing.UpdateMarketConditions(call.Sender,
			msg.DemandMultiplier, msg.SupplyMultiplier, msg.VolatilityIndex, msg.Sentiment)
	case *types.MsgChangeModel:
		return k.pricing.ChangeModel(call.Sender, msg.ProjectID, msg.Model)
	case *types.MsgUpdateQuality:
		return k.pricing.UpdateQuality(call.Sender, msg.ProjectID, msg.QualityScore)
	}
	return types.ErrInvalid("type", "unhandled message %s", msg.Type())
}

// abciEvents converts emitted events to their ABCI form.
func abciEvents(events []types.Event) []abci.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]abci.Event, 0, len(events))
	for _, ev := range events {
		attrs := ev.Attributes()
		ae := abci.Event{
			Type:       ev.EventType(),
			Attributes: make([]abci.EventAttribute, 0, len(attrs)),
		}
		for _, a := range attrs {
			ae.Attributes = append(ae.Attributes, abci.EventAttribute{
				Key:   []byte(a.Key),
				Value: []byte(a.Value),
				Index: true,
			})
		}
		out = append(out, ae)
	}
	return out
}
