package market

import (
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/libs/log"
	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

const (
	opSell     = "sell"
	opBuy      = "buy"
	opValidate = "validate_project"
)

// Deps are the collaborators an Engine settles trades against.
type Deps struct {
	Projects ProjectLedger
	Auth     Authorizer
	Credits  CreditLedger
	Bank     Bank
	Pricer   Pricer
}

// Engine runs the trade lifecycle of carbon credit projects: sellers list
// credits against collateral, buyers escrow payment and validators settle.
//
// Escrowed collateral and payments are held by types.MarketAddress. Every
// operation updates ledger state before it pays anybody.
type Engine struct {
	Deps

	ctx    types.Context
	book   book
	logger log.Logger
}

// NewEngine returns an Engine bound to one transaction.
func NewEngine(ctx types.Context, kv store.KVStore, deps Deps, logger log.Logger) *Engine {
	return &Engine{
		Deps:   deps,
		ctx:    ctx,
		book:   book{kv: kv},
		logger: logger.With("module", "market"),
	}
}

// Sell lists amount credits of a project owned by the caller. Listing
// credits of an ongoing project requires call.Funds to cover
// StakeRequired(amount); the excess is refunded. Listing credits of a
// completed project moves them into the caller's resale pool.
func (e *Engine) Sell(call types.Call, amount, projectID uint64) error {
	if err := e.Auth.Enter(opSell); err != nil {
		return err
	}
	defer e.Auth.Exit()

	seller := call.Sender
	if err := e.checkCaller(seller); err != nil {
		return err
	}
	if err := types.ValidateTradeAmount(amount); err != nil {
		return err
	}
	if err := e.requireRole(types.RoleCompany, seller); err != nil {
		return err
	}
	state, err := e.projectState(projectID)
	if err != nil {
		return err
	}
	owned, err := e.Projects.OwnedBy(projectID, seller)
	if err != nil {
		return err
	}
	if !owned {
		return types.AuthorizationError{Addr: seller, Reason: "not the project owner"}
	}

	supply, err := e.Projects.Supply(projectID)
	if err != nil {
		return err
	}
	listed, err := e.Projects.Listed(projectID)
	if err != nil {
		return err
	}
	newListed, err := addChecked("amount", listed, amount)
	if err != nil {
		return err
	}
	if newListed > supply {
		return types.ErrInvalid("amount", "listing %d credits exceeds the %d available", newListed, supply)
	}

	refund := call.Funds
	if state == types.ProjectCompleted {
		pool, err := e.book.replayPool(seller, projectID)
		if err != nil {
			return err
		}
		if err := e.book.setReplayPool(seller, projectID, pool+amount); err != nil {
			return err
		}
	} else {
		required, err := StakeRequired(amount)
		if err != nil {
			return types.ErrInvalid("amount", "%v", err)
		}
		if call.Funds < required {
			return types.InsufficientFundsError{Required: required, Provided: call.Funds}
		}
		staked, err := e.Projects.StakedCollateral(seller, projectID)
		if err != nil {
			return err
		}
		staked, err = addChecked("collateral", staked, required)
		if err != nil {
			return err
		}
		if err := e.Projects.StakeCollateral(seller, projectID, staked); err != nil {
			return err
		}
		if err := e.book.addSellerProject(seller, projectID); err != nil {
			return err
		}
		refund -= required
	}
	if err := e.Projects.SetListed(projectID, newListed); err != nil {
		return err
	}

	if err := e.Pricer.RecordTrade(projectID, amount, false); err != nil {
		return err
	}
	price, total, err := e.quote(projectID, amount)
	if err != nil {
		return err
	}
	e.ctx.Events.Emit(types.EventTrade{Buy: false, Actor: seller, Amount: amount, Price: price, Total: total})
	e.logger.Info("credits listed", "project", projectID, "seller", seller, "amount", amount,
		"state", state, "listed", newListed)

	return e.pay(payout{from: types.MarketAddress, to: seller, amount: refund})
}

// Buy purchases amount credits listed by seller. call.Funds must cover
// amount times the post-trade price. Credits of a completed project are
// minted to the buyer at once and the seller is paid; for an ongoing
// project the payment stays in escrow and the buyer's stake grows until
// the project is validated.
func (e *Engine) Buy(call types.Call, amount uint64, seller crypto.Address, projectID uint64) error {
	if err := e.Auth.Enter(opBuy); err != nil {
		return err
	}
	defer e.Auth.Exit()

	buyer := call.Sender
	if err := e.checkCaller(buyer); err != nil {
		return err
	}
	if err := types.ValidateTradeAmount(amount); err != nil {
		return err
	}
	state, err := e.projectState(projectID)
	if err != nil {
		return err
	}
	owned, err := e.Projects.OwnedBy(projectID, seller)
	if err != nil {
		return err
	}
	if !owned {
		return types.ErrInvalid("seller", "%v does not own project %d", seller, projectID)
	}

	sold, err := e.Projects.Sold(projectID)
	if err != nil {
		return err
	}
	newSold, err := addChecked("amount", sold, amount)
	if err != nil {
		return err
	}
	var pool uint64
	if state == types.ProjectCompleted {
		if pool, err = e.book.replayPool(seller, projectID); err != nil {
			return err
		}
		if pool < amount {
			return types.ErrInvalid("amount", "%d credits requested, %d for resale", amount, pool)
		}
	} else {
		listed, err := e.Projects.Listed(projectID)
		if err != nil {
			return err
		}
		if newSold > listed {
			return types.ErrInvalid("amount", "%d credits requested, %d left", amount, listed-sold)
		}
	}

	// The price is read after the sale is booked.
	if err := e.Projects.SetSold(projectID, newSold); err != nil {
		return err
	}
	price, totalCost, err := e.quote(projectID, amount)
	if err != nil {
		return err
	}
	if call.Funds < totalCost {
		return types.InsufficientFundsError{Required: totalCost, Provided: call.Funds}
	}

	payouts := make([]payout, 0, 2)
	if state == types.ProjectCompleted {
		if err := e.book.setReplayPool(seller, projectID, pool-amount); err != nil {
			return err
		}
		if err := e.Credits.Mint(buyer, amount); err != nil {
			return err
		}
		payouts = append(payouts, payout{from: types.MarketAddress, to: seller, amount: totalCost})
	} else {
		stake, err := e.book.stake(projectID, buyer)
		if err != nil {
			return err
		}
		if err := e.book.setStake(projectID, buyer, stake+amount); err != nil {
			return err
		}
		if err := e.book.addBuyer(projectID, buyer); err != nil {
			return err
		}
	}

	if err := e.Pricer.RecordTrade(projectID, amount, true); err != nil {
		return err
	}
	e.ctx.Events.Emit(types.EventTrade{Buy: true, Actor: buyer, Amount: amount, Price: price, Total: totalCost})
	e.logger.Info("credits bought", "project", projectID, "buyer", buyer, "seller", seller,
		"amount", amount, "price", price, "state", state)

	payouts = append(payouts, payout{from: types.MarketAddress, to: buyer, amount: call.Funds - totalCost})
	return e.pay(payouts...)
}

// ValidateProject settles an ongoing project once its actual output is
// known. It can succeed only once per project.
func (e *Engine) ValidateProject(
	call types.Call,
	seller crypto.Address,
	projectID uint64,
	isValid bool,
	actual uint64,
) (Settlement, error) {
	if err := e.Auth.Enter(opValidate); err != nil {
		return Settlement{}, err
	}
	defer e.Auth.Exit()

	if err := e.requireRole(types.RoleValidator, call.Sender); err != nil {
		return Settlement{}, err
	}
	state, err := e.projectState(projectID)
	if err != nil {
		return Settlement{}, err
	}
	if state == types.ProjectCompleted {
		return Settlement{}, types.StateError{ProjectID: projectID, Reason: "already validated"}
	}
	owned, err := e.Projects.OwnedBy(projectID, seller)
	if err != nil {
		return Settlement{}, err
	}
	if !owned {
		return Settlement{}, types.ErrInvalid("seller", "%v does not own project %d", seller, projectID)
	}
	if err := e.Projects.SetCompleted(projectID); err != nil {
		return Settlement{}, err
	}

	sold, err := e.Projects.Sold(projectID)
	if err != nil {
		return Settlement{}, err
	}
	collateral, err := e.Projects.StakedCollateral(seller, projectID)
	if err != nil {
		return Settlement{}, err
	}
	buyers, err := e.book.buyers(projectID)
	if err != nil {
		return Settlement{}, err
	}

	s := Settlement{
		ProjectID:  projectID,
		Seller:     seller,
		Valid:      isValid,
		Actual:     actual,
		Sold:       sold,
		Collateral: collateral,
	}
	var payouts []payout
	if isValid {
		payouts, err = e.settleValid(&s, buyers)
	} else {
		payouts, err = e.settleInvalid(&s, buyers)
	}
	if err != nil {
		return Settlement{}, err
	}

	if err := e.Projects.SetSupply(projectID, s.Supply); err != nil {
		return Settlement{}, err
	}
	if err := e.Projects.SetListed(projectID, 0); err != nil {
		return Settlement{}, err
	}
	if err := e.Projects.SetSold(projectID, 0); err != nil {
		return Settlement{}, err
	}
	if err := e.Projects.StakeCollateral(seller, projectID, 0); err != nil {
		return Settlement{}, err
	}
	if err := e.book.clearBuyers(projectID); err != nil {
		return Settlement{}, err
	}

	if !isValid {
		e.ctx.Events.Emit(types.EventPenalty{Seller: seller, ProjectID: projectID})
	}
	e.ctx.Events.Emit(types.EventProjectValidated{Seller: seller, ProjectID: projectID, IsValid: isValid})
	e.logger.Info("project validated", "project", projectID, "seller", seller, "valid", isValid,
		"actual", actual, "sold", sold, "minted", s.Minted, "compensation", s.Compensation,
		"refund", s.Refund, "retained", s.RetainedPenalty())

	if err := e.pay(payouts...); err != nil {
		return Settlement{}, err
	}
	return s, nil
}

// settleValid mints every stake in full and returns collateral plus bonus
// and the proceeds of the sold credits to the seller.
func (e *Engine) settleValid(s *Settlement, buyers []crypto.Address) ([]payout, error) {
	payouts := make([]payout, 0, 1)
	for _, buyer := range buyers {
		stake, err := e.releaseStake(s.ProjectID, buyer)
		if err != nil {
			return nil, err
		}
		if err := e.Credits.Mint(buyer, stake); err != nil {
			return nil, err
		}
		if s.Minted, err = addChecked("minted", s.Minted, stake); err != nil {
			return nil, err
		}
	}

	s.Supply = ecomath.SaturatingSub(s.Actual, s.Sold)
	escrowed, err := addChecked("refund", s.Collateral, s.Sold)
	if err != nil {
		return nil, err
	}
	reserve, err := e.Bank.Balance(types.ReserveAddress)
	if err != nil {
		return nil, err
	}
	due := BonusRatio.MustOf(s.Collateral)
	s.Bonus = ecomath.MinUint64(due, reserve)
	s.BonusShortfall = due - s.Bonus
	if s.BonusShortfall > 0 {
		e.logger.Info("validation bonus capped by reserve", "project", s.ProjectID,
			"due", due, "paid", s.Bonus)
	}
	if s.Refund, err = addChecked("refund", escrowed, s.Bonus); err != nil {
		return nil, err
	}
	return append(payouts,
		payout{from: types.MarketAddress, to: s.Seller, amount: escrowed},
		payout{from: types.ReserveAddress, to: s.Seller, amount: s.Bonus},
	), nil
}

// settleInvalid keeps the collateral. When the project delivered at least
// what was sold, buyers get their stakes and the seller the remainder;
// otherwise every buyer gets a pro-rata share and cash for the shortfall.
func (e *Engine) settleInvalid(s *Settlement, buyers []crypto.Address) ([]payout, error) {
	payouts := make([]payout, 0, len(buyers)+1)
	for _, buyer := range buyers {
		stake, err := e.releaseStake(s.ProjectID, buyer)
		if err != nil {
			return nil, err
		}
		share, compensation, err := BuyerShare(stake, s.Actual, s.Sold)
		if err != nil {
			return nil, types.ErrInvalid("stake", "%v", err)
		}
		if err := e.Credits.Mint(buyer, share); err != nil {
			return nil, err
		}
		if s.Minted, err = addChecked("minted", s.Minted, share); err != nil {
			return nil, err
		}
		if s.Compensation, err = addChecked("compensation", s.Compensation, compensation); err != nil {
			return nil, err
		}
		payouts = append(payouts, payout{from: types.MarketAddress, to: buyer, amount: compensation})
	}

	if s.Actual >= s.Sold {
		s.SellerMinted = s.Actual - s.Sold
		if err := e.Credits.Mint(s.Seller, s.SellerMinted); err != nil {
			return nil, err
		}
		s.Refund = s.Sold
	} else {
		s.Refund = s.Actual
	}
	s.Supply = 0
	return append(payouts, payout{from: types.MarketAddress, to: s.Seller, amount: s.Refund}), nil
}

func (e *Engine) releaseStake(projectID uint64, buyer crypto.Address) (uint64, error) {
	stake, err := e.book.stake(projectID, buyer)
	if err != nil {
		return 0, err
	}
	return stake, e.book.setStake(projectID, buyer, 0)
}

// pay sends each payout from its source account. Recipients may run code on receipt,
// so it must be the last step of an operation.
func (e *Engine) pay(payouts ...payout) error {
	for _, p := range payouts {
		if p.amount == 0 {
			continue
		}
		payee, err := e.Bank.Payee(p.to)
		if err != nil {
			return err
		}
		if err := e.Bank.Send(p.from, payee, p.amount); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) quote(projectID, amount uint64) (price, total uint64, err error) {
	if price, err = e.Pricer.CurrentPrice(projectID); err != nil {
		return 0, 0, err
	}
	if total, err = ecomath.SafeMulUint64(amount, price); err != nil {
		return 0, 0, types.ErrInvalid("total_cost", "%v", err)
	}
	return price, total, nil
}

func (e *Engine) projectState(projectID uint64) (types.ProjectState, error) {
	exists, err := e.Projects.Exists(projectID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, types.StateError{ProjectID: projectID, Reason: "not registered"}
	}
	return e.Projects.State(projectID)
}

func (e *Engine) checkCaller(addr crypto.Address) error {
	paused, err := e.Auth.IsPaused()
	if err != nil {
		return err
	}
	if paused {
		return types.AuthorizationError{Reason: "market is paused"}
	}
	blacklisted, err := e.Auth.IsBlacklisted(addr)
	if err != nil {
		return err
	}
	if blacklisted {
		return types.AuthorizationError{Addr: addr, Reason: "blacklisted"}
	}
	return nil
}

func (e *Engine) requireRole(role types.Role, addr crypto.Address) error {
	ok, err := e.Auth.HasRole(role, addr)
	if err != nil {
		return err
	}
	if !ok {
		return types.AuthorizationError{Addr: addr, Reason: string(role) + " role required"}
	}
	return nil
}

//-----------------------------------------------------------------------------
// Queries

// ProjectBuyers returns the buyers holding a stake in an ongoing project.
func (e *Engine) ProjectBuyers(projectID uint64) ([]crypto.Address, error) {
	return e.book.buyers(projectID)
}

// Stake returns the credits buyer has bought of an ongoing project.
func (e *Engine) Stake(projectID uint64, buyer crypto.Address) (uint64, error) {
	return e.book.stake(projectID, buyer)
}

// SellerProjects returns the ongoing projects seller has listed credits of.
func (e *Engine) SellerProjects(seller crypto.Address) ([]uint64, error) {
	return e.book.sellerProjects(seller)
}

// ReplayPool returns the credits seller offers for resale.
func (e *Engine) ReplayPool(seller crypto.Address, projectID uint64) (uint64, error) {
	return e.book.replayPool(seller, projectID)
}
