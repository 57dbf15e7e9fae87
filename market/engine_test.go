package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/crypto"
	dbm "github.com/tendermint/tm-db"

	"github.com/ali-3-3-3/EcoXChange/ledger"
	"github.com/ali-3-3-3/EcoXChange/libs/log"
	"github.com/ali-3-3-3/EcoXChange/pricing"
	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

var (
	admin     = crypto.AddressHash([]byte("admin"))
	validator = crypto.AddressHash([]byte("validator"))
	seller    = crypto.AddressHash([]byte("seller"))
	rival     = crypto.AddressHash([]byte("rival"))
	buyer1    = crypto.AddressHash([]byte("buyer1"))
	buyer2    = crypto.AddressHash([]byte("buyer2"))

	blockTime = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
)

const (
	startBalance   = 1_000_000
	reserveBalance = 1000
)

// env is the set of components one transaction runs against.
type env struct {
	market   *Engine
	pricing  *pricing.Engine
	projects *ledger.Projects
	auth     *ledger.Auth
	credits  *ledger.Credits
	bank     *ledger.Bank
}

type fixture struct {
	db     dbm.DB
	hooks  *ledger.Hooks
	events []types.Event
}

func newFixture(t require.TestingT) *fixture {
	f := &fixture{db: dbm.NewMemDB(), hooks: ledger.NewHooks()}
	v := f.env(f.db, types.NewContext(1, blockTime))
	for role, addrs := range map[types.Role][]crypto.Address{
		types.RoleAdmin:     {admin},
		types.RoleValidator: {validator},
		types.RoleCompany:   {seller, rival},
	} {
		for _, addr := range addrs {
			require.NoError(t, v.auth.GrantRole(role, addr))
		}
	}
	for _, addr := range []crypto.Address{seller, rival, buyer1, buyer2} {
		require.NoError(t, v.bank.SetBalance(addr, startBalance))
	}
	require.NoError(t, v.bank.SetBalance(types.ReserveAddress, reserveBalance))
	require.NoError(t, v.projects.Register(ledger.Project{ID: 1, Owner: seller, Supply: 100}))
	require.NoError(t, v.projects.Register(ledger.Project{ID: 2, Owner: seller, Supply: 2000}))
	return f
}

func (f *fixture) env(kv store.KVStore, ctx types.Context) env {
	logger := log.TestingLogger()
	v := env{
		projects: ledger.NewProjects(kv),
		auth:     ledger.NewAuth(kv),
		credits:  ledger.NewCredits(kv),
		bank:     ledger.NewBank(kv, f.hooks),
	}
	v.pricing = pricing.NewEngine(ctx, kv, v.projects, v.auth, logger)
	v.market = NewEngine(ctx, kv, Deps{
		Projects: v.projects,
		Auth:     v.auth,
		Credits:  v.credits,
		Bank:     v.bank,
		Pricer:   v.pricing,
	}, logger)
	return v
}

// exec runs fn as one atomic transaction from sender with funds attached.
func (f *fixture) exec(sender crypto.Address, funds uint64, fn func(env, types.Call) error) error {
	cache := store.NewCacheStore(f.db)
	ctx := types.NewContext(2, blockTime)
	v := f.env(cache, ctx)

	err := func() error {
		if funds > 0 {
			escrow, err := v.bank.Payee(types.MarketAddress)
			if err != nil {
				return err
			}
			if err := v.bank.Send(sender, escrow, funds); err != nil {
				return err
			}
		}
		return fn(v, types.Call{Sender: sender, Funds: funds})
	}()
	if err != nil {
		cache.Discard()
		return err
	}
	f.events = ctx.Events.Events()
	return cache.Write()
}

// view returns components over committed state.
func (f *fixture) view() env {
	return f.env(f.db, types.NewContext(2, blockTime))
}

func (f *fixture) sell(sender crypto.Address, funds, amount, projectID uint64) error {
	return f.exec(sender, funds, func(v env, call types.Call) error {
		return v.market.Sell(call, amount, projectID)
	})
}

func (f *fixture) buy(sender crypto.Address, funds, amount, projectID uint64) error {
	return f.exec(sender, funds, func(v env, call types.Call) error {
		return v.market.Buy(call, amount, seller, projectID)
	})
}

func (f *fixture) validate(projectID uint64, isValid bool, actual uint64) (Settlement, error) {
	var s Settlement
	err := f.exec(validator, 0, func(v env, call types.Call) (err error) {
		s, err = v.market.ValidateProject(call, seller, projectID, isValid, actual)
		return err
	})
	return s, err
}

func balance(t *testing.T, v env, addr crypto.Address) uint64 {
	t.Helper()
	bal, err := v.bank.Balance(addr)
	require.NoError(t, err)
	return bal
}

func credits(t *testing.T, v env, addr crypto.Address) uint64 {
	t.Helper()
	bal, err := v.credits.BalanceOf(addr)
	require.NoError(t, err)
	return bal
}

func project(t *testing.T, v env, id uint64) ledger.Project {
	t.Helper()
	p, found, err := v.projects.Get(id)
	require.NoError(t, err)
	require.True(t, found)
	return p
}

func TestSellCollateral(t *testing.T) {
	f := newFixture(t)

	err := f.sell(seller, 129, 100, 1)
	var fundsErr types.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, types.InsufficientFundsError{Required: 130, Provided: 129}, fundsErr)

	v := f.view()
	assert.EqualValues(t, startBalance, balance(t, v, seller), "failed sell is reverted")
	assert.Zero(t, project(t, v, 1).Listed)

	require.NoError(t, f.sell(seller, 130, 100, 1))
	assert.Equal(t, []types.Event{
		types.EventTrade{Actor: seller, Amount: 100, Price: pricing.BasePrice, Total: 100 * pricing.BasePrice},
	}, f.events)

	v = f.view()
	assert.EqualValues(t, 100, project(t, v, 1).Listed)
	collateral, err := v.projects.StakedCollateral(seller, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 130, collateral)
	assert.EqualValues(t, 130, balance(t, v, types.MarketAddress))
	assert.EqualValues(t, startBalance-130, balance(t, v, seller))
}

func TestSellRefundsExcessCollateral(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 500, 10, 1))
	require.NoError(t, f.sell(seller, 13, 10, 1))

	v := f.view()
	assert.EqualValues(t, startBalance-26, balance(t, v, seller))
	assert.EqualValues(t, 26, balance(t, v, types.MarketAddress))
	collateral, err := v.projects.StakedCollateral(seller, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 26, collateral)

	ids, err := v.market.SellerProjects(seller)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids, "project recorded once")
}

func TestSellRejected(t *testing.T) {
	f := newFixture(t)
	var (
		authErr  types.AuthorizationError
		valErr   types.ValidationError
		stateErr types.StateError
	)

	require.ErrorAs(t, f.sell(buyer1, 130, 100, 1), &authErr, "company role required")
	require.ErrorAs(t, f.sell(rival, 130, 100, 1), &authErr, "owner required")
	require.ErrorAs(t, f.sell(seller, 0, 0, 1), &valErr)
	require.ErrorAs(t, f.sell(seller, 20000, types.MaxTradeAmount+1, 2), &valErr)
	require.ErrorAs(t, f.sell(seller, 200, 101, 1), &valErr, "listing above supply")
	require.ErrorAs(t, f.sell(seller, 130, 100, 9), &stateErr)

	require.NoError(t, f.exec(admin, 0, func(v env, _ types.Call) error {
		return v.auth.SetBlacklisted(seller, true)
	}))
	require.ErrorAs(t, f.sell(seller, 130, 100, 1), &authErr)
	require.NoError(t, f.exec(admin, 0, func(v env, _ types.Call) error {
		if err := v.auth.SetBlacklisted(seller, false); err != nil {
			return err
		}
		return v.auth.SetPaused(true)
	}))
	require.ErrorAs(t, f.sell(seller, 130, 100, 1), &authErr)

	v := f.view()
	assert.EqualValues(t, startBalance, balance(t, v, seller))
	assert.Zero(t, balance(t, v, types.MarketAddress))
}

func TestBuyOngoing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 65, 50, 1))

	require.NoError(t, f.buy(buyer1, 20000, 10, 1))
	assert.Equal(t, []types.Event{
		types.EventTrade{Buy: true, Actor: buyer1, Amount: 10, Price: 1000, Total: 10000},
	}, f.events)
	require.NoError(t, f.buy(buyer1, 5000, 5, 1))
	require.NoError(t, f.buy(buyer2, 1000, 1, 1))

	v := f.view()
	assert.EqualValues(t, startBalance-15000, balance(t, v, buyer1), "excess refunded")
	assert.EqualValues(t, 65+16000, balance(t, v, types.MarketAddress), "payments held in escrow")
	assert.EqualValues(t, 16, project(t, v, 1).Sold)
	assert.Zero(t, credits(t, v, buyer1), "nothing minted before validation")

	buyers, err := v.market.ProjectBuyers(1)
	require.NoError(t, err)
	assert.Equal(t, []crypto.Address{buyer1, buyer2}, buyers)
	stake, err := v.market.Stake(1, buyer1)
	require.NoError(t, err)
	assert.EqualValues(t, 15, stake)
}

func TestBuyRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 13, 10, 1))
	var (
		fundsErr types.InsufficientFundsError
		valErr   types.ValidationError
		stateErr types.StateError
	)

	require.ErrorAs(t, f.buy(buyer1, 4999, 5, 1), &fundsErr)
	assert.Equal(t, types.InsufficientFundsError{Required: 5000, Provided: 4999}, fundsErr)
	require.ErrorAs(t, f.buy(buyer1, 20000, 11, 1), &valErr, "more than listed")
	require.ErrorAs(t, f.buy(buyer1, 20000, 0, 1), &valErr)
	require.ErrorAs(t, f.buy(buyer1, 20000, 1, 7), &stateErr)
	require.ErrorAs(t, f.exec(buyer1, 1000, func(v env, call types.Call) error {
		return v.market.Buy(call, 1, rival, 1)
	}), &valErr, "seller must own the project")

	v := f.view()
	assert.Zero(t, project(t, v, 1).Sold)
	assert.EqualValues(t, startBalance, balance(t, v, buyer1))
	buyers, err := v.market.ProjectBuyers(1)
	require.NoError(t, err)
	assert.Empty(t, buyers)
}

func TestBuyPricesPostTradeSupply(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.exec(admin, 0, func(v env, call types.Call) error {
		return v.pricing.Initialize(call.Sender, 1, types.ModelSupplyDemand, 500)
	}))
	require.NoError(t, f.sell(seller, 130, 100, 1))

	before, err := f.view().pricing.CurrentPrice(1)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, before, "listing leaves availability at 100%")

	require.NoError(t, f.buy(buyer1, 20000, 10, 1))
	var trade types.EventTrade
	var updates []types.EventPriceUpdated
	for _, ev := range f.events {
		switch ev := ev.(type) {
		case types.EventTrade:
			trade = ev
		case types.EventPriceUpdated:
			updates = append(updates, ev)
		}
	}
	assert.EqualValues(t, 1000, trade.Price)
	assert.EqualValues(t, 10000, trade.Total)
	// The trade is recorded with 10 of 100 sold: pressure 1100.
	assert.Equal(t, []types.EventPriceUpdated{
		{ProjectID: 1, OldPrice: 1000, NewPrice: 1100, Reason: types.PriceReasonTrade},
	}, updates)

	after, err := f.view().pricing.CurrentPrice(1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after, before)
	assert.EqualValues(t, 1100, after)
}

func TestValidateValid(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 1300, 1000, 2))
	require.NoError(t, f.buy(buyer1, 10000, 10, 2))
	require.NoError(t, f.buy(buyer2, 20000, 20, 2))

	s, err := f.validate(2, true, 90)
	require.NoError(t, err)
	assert.Equal(t, Settlement{
		ProjectID:  2,
		Seller:     seller,
		Valid:      true,
		Actual:     90,
		Sold:       30,
		Collateral: 1300,
		Minted:     30,
		Refund:     1300 + 3 + 30,
		Bonus:      3,
		Supply:     60,
	}, s)
	assert.Equal(t, []types.Event{
		types.EventProjectValidated{Seller: seller, ProjectID: 2, IsValid: true},
	}, f.events)

	v := f.view()
	assert.EqualValues(t, 10, credits(t, v, buyer1))
	assert.EqualValues(t, 20, credits(t, v, buyer2))
	assert.EqualValues(t, startBalance+3+30, balance(t, v, seller))
	assert.EqualValues(t, reserveBalance-3, balance(t, v, types.ReserveAddress))
	assert.Equal(t, ledger.Project{ID: 2, Owner: seller, Supply: 60, State: types.ProjectCompleted}, project(t, v, 2))

	collateral, err := v.projects.StakedCollateral(seller, 2)
	require.NoError(t, err)
	assert.Zero(t, collateral)
	buyers, err := v.market.ProjectBuyers(2)
	require.NoError(t, err)
	assert.Empty(t, buyers)
	stake, err := v.market.Stake(2, buyer2)
	require.NoError(t, err)
	assert.Zero(t, stake)

	var stateErr types.StateError
	_, err = f.validate(2, true, 90)
	require.ErrorAs(t, err, &stateErr)
	assert.EqualValues(t, startBalance+3+30, balance(t, f.view(), seller), "no double payout")
}

func TestValidateValidWithoutBuyers(t *testing.T) {
	testCases := []struct {
		name      string
		reserve   uint64
		bonus     uint64
		shortfall uint64
	}{
		{"funded", reserveBalance, 3, 0},
		{"partly funded", 2, 2, 1},
		{"empty reserve", 0, 0, 3},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.view().bank.SetBalance(types.ReserveAddress, tc.reserve))
			require.NoError(t, f.sell(seller, 1300, 1000, 2))

			s, err := f.validate(2, true, 1000)
			require.NoError(t, err)
			assert.Equal(t, Settlement{
				ProjectID:      2,
				Seller:         seller,
				Valid:          true,
				Actual:         1000,
				Collateral:     1300,
				Refund:         1300 + tc.bonus,
				Bonus:          tc.bonus,
				BonusShortfall: tc.shortfall,
				Supply:         1000,
			}, s)

			v := f.view()
			assert.EqualValues(t, startBalance+tc.bonus, balance(t, v, seller))
			assert.EqualValues(t, tc.reserve-tc.bonus, balance(t, v, types.ReserveAddress))
			assert.Zero(t, balance(t, v, types.MarketAddress), "escrow drained")
			assert.Equal(t, types.ProjectCompleted, project(t, v, 2).State)
		})
	}
}

func TestValidateInvalidTotalShortfall(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 13, 10, 1))
	require.NoError(t, f.buy(buyer1, 10000, 10, 1))

	s, err := f.validate(1, false, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.Minted)
	assert.EqualValues(t, 10, s.Compensation)
	assert.EqualValues(t, 0, s.Refund)
	assert.EqualValues(t, 0, s.SellerMinted)
	assert.EqualValues(t, 3, s.RetainedPenalty())
	assert.Equal(t, []types.Event{
		types.EventPenalty{Seller: seller, ProjectID: 1},
		types.EventProjectValidated{Seller: seller, ProjectID: 1, IsValid: false},
	}, f.events)

	v := f.view()
	assert.Zero(t, credits(t, v, buyer1))
	assert.EqualValues(t, startBalance-10000+10, balance(t, v, buyer1))
	assert.Zero(t, credits(t, v, seller))
	assert.EqualValues(t, startBalance-13, balance(t, v, seller), "collateral kept")
	assert.Zero(t, project(t, v, 1).Supply)
}

func TestValidateInvalidPartialShortfall(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 13, 10, 1))
	require.NoError(t, f.buy(buyer1, 3000, 3, 1))
	require.NoError(t, f.buy(buyer2, 1000, 1, 1))

	s, err := f.validate(1, false, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Minted)
	assert.EqualValues(t, 3, s.Compensation)
	assert.EqualValues(t, 2, s.Refund)

	v := f.view()
	assert.EqualValues(t, 1, credits(t, v, buyer1))
	assert.EqualValues(t, startBalance-3000+2, balance(t, v, buyer1))
	assert.EqualValues(t, 0, credits(t, v, buyer2))
	assert.EqualValues(t, startBalance-1000+1, balance(t, v, buyer2))
	assert.EqualValues(t, startBalance-13+2, balance(t, v, seller))
}

func TestValidateInvalidSurplus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 13, 10, 1))
	require.NoError(t, f.buy(buyer1, 10000, 10, 1))

	s, err := f.validate(1, false, 25)
	require.NoError(t, err)
	assert.EqualValues(t, 10, s.Minted)
	assert.EqualValues(t, 15, s.SellerMinted)
	assert.EqualValues(t, 10, s.Refund)
	assert.Zero(t, s.Compensation)

	v := f.view()
	assert.EqualValues(t, 10, credits(t, v, buyer1))
	assert.EqualValues(t, 15, credits(t, v, seller))
	assert.EqualValues(t, startBalance-13+10, balance(t, v, seller))
	assert.Zero(t, project(t, v, 1).Supply)
}

func TestValidateRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 13, 10, 1))
	var (
		authErr  types.AuthorizationError
		valErr   types.ValidationError
		stateErr types.StateError
	)

	require.ErrorAs(t, f.exec(admin, 0, func(v env, call types.Call) error {
		_, err := v.market.ValidateProject(call, seller, 1, true, 10)
		return err
	}), &authErr)
	require.ErrorAs(t, f.exec(validator, 0, func(v env, call types.Call) error {
		_, err := v.market.ValidateProject(call, rival, 1, true, 10)
		return err
	}), &valErr)
	_, err := f.validate(5, true, 10)
	require.ErrorAs(t, err, &stateErr)

	assert.Equal(t, types.ProjectOngoing, project(t, f.view(), 1).State)
}

func TestResale(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 130, 100, 1))
	require.NoError(t, f.buy(buyer1, 30000, 30, 1))
	_, err := f.validate(1, true, 90)
	require.NoError(t, err)
	sellerBalance := balance(t, f.view(), seller)

	var valErr types.ValidationError
	require.ErrorAs(t, f.sell(seller, 0, 61, 1), &valErr, "only the 60 unsold credits can be listed")
	require.NoError(t, f.sell(seller, 50, 20, 1))
	assert.Equal(t, sellerBalance, balance(t, f.view(), seller), "no collateral for resale")

	pool, err := f.view().market.ReplayPool(seller, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 20, pool)

	require.ErrorAs(t, f.buy(buyer2, 100000, 21, 1), &valErr)
	require.NoError(t, f.buy(buyer2, 6000, 5, 1))

	v := f.view()
	assert.EqualValues(t, 5, credits(t, v, buyer2), "minted immediately")
	assert.EqualValues(t, sellerBalance+5000, balance(t, v, seller), "paid immediately")
	pool, err = v.market.ReplayPool(seller, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 15, pool)
	stake, err := v.market.Stake(1, buyer2)
	require.NoError(t, err)
	assert.Zero(t, stake)
}

func TestReentrancyFromReceiveHook(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 13, 10, 1))
	require.NoError(t, f.buy(buyer1, 10000, 10, 1))

	// The seller's receive hook tries to buy back into the project while
	// its settlement payout is being made.
	var current env
	var hookErr error
	f.hooks.Register(seller, func(from crypto.Address, amount uint64) error {
		hookErr = current.market.Buy(types.Call{Sender: seller}, 1, seller, 1)
		return hookErr
	})
	err := f.exec(validator, 0, func(v env, call types.Call) error {
		current = v
		_, err := v.market.ValidateProject(call, seller, 1, true, 10)
		return err
	})
	var reErr types.ReentrancyError
	require.ErrorAs(t, err, &reErr)
	assert.Equal(t, types.ReentrancyError{Op: opBuy, Active: opValidate}, reErr)
	require.ErrorAs(t, hookErr, &reErr)

	v := f.view()
	assert.Equal(t, types.ProjectOngoing, project(t, v, 1).State, "settlement reverted")
	assert.Zero(t, credits(t, v, buyer1))
	stake, err := v.market.Stake(1, buyer1)
	require.NoError(t, err)
	assert.EqualValues(t, 10, stake)

	// Without re-entry the same settlement goes through.
	f.hooks.Register(seller, func(crypto.Address, uint64) error { return nil })
	_, err = f.validate(1, true, 10)
	require.NoError(t, err)
	f.hooks.Register(seller, nil)
}

func TestReentrancyFromRefund(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sell(seller, 13, 10, 1))

	var current env
	f.hooks.Register(buyer1, func(crypto.Address, uint64) error {
		return current.market.Sell(types.Call{Sender: buyer1}, 1, 1)
	})
	defer f.hooks.Register(buyer1, nil)

	err := f.exec(buyer1, 5000, func(v env, call types.Call) error {
		current = v
		return v.market.Buy(call, 1, seller, 1)
	})
	var reErr types.ReentrancyError
	require.ErrorAs(t, err, &reErr)
	assert.Zero(t, project(t, f.view(), 1).Sold)
	assert.EqualValues(t, startBalance, balance(t, f.view(), buyer1))
}
