package app

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto"

	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

// Query paths.
const (
	QueryPrice      = "price"
	QueryPricing    = "pricing"
	QueryConditions = "conditions"
	QueryImpact     = "impact"
	QueryBuyers     = "buyers"
	QueryHistory    = "history"
	QueryProject    = "project"
	QueryBalance    = "balance"
	QueryAccount    = "account"
)

// ImpactRequest is the JSON body of an /impact query.
type ImpactRequest struct {
	ProjectID uint64 `json:"project_id"`
	Amount    uint64 `json:"amount"`
	IsBuy     bool   `json:"is_buy"`
}

// HistoryRequest is the JSON body of a /history query. Days are counted
// from the Unix epoch.
type HistoryRequest struct {
	ProjectID uint64 `json:"project_id"`
	FromDay   int64  `json:"from_day"`
	ToDay     int64  `json:"to_day"`
}

type PriceResponse struct {
	ProjectID uint64 `json:"project_id"`
	Price     uint64 `json:"price"`
}

type BuyerStake struct {
	Address crypto.Address `json:"address"`
	Stake   uint64         `json:"stake"`
}

type BalanceResponse struct {
	Address crypto.Address `json:"address"`
	Balance uint64         `json:"balance"`
	Credits uint64         `json:"credits"`
}

type AccountResponse struct {
	Address  crypto.Address `json:"address"`
	Sequence uint64         `json:"sequence"`
}

// Query answers read-only requests against the last committed state. The
// response value is JSON.
func (app *Application) Query(req abci.RequestQuery) abci.ResponseQuery {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	view := store.NewCacheStore(app.db)
	defer view.Discard()
	ctx := types.NewContext(app.state.Height, app.state.Time)
	k := newKeepers(ctx, view, nil, app.logger)

	res, err := app.route(k, req.Path, req.Data)
	if err != nil {
		return abci.ResponseQuery{
			Code:      types.CodeFromError(err),
			Log:       err.Error(),
			Height:    app.state.Height,
			Codespace: Codespace,
		}
	}
	bz, err := json.Marshal(res)
	if err != nil {
		return abci.ResponseQuery{Code: types.CodeTypeEncodingError, Log: err.Error(), Codespace: Codespace}
	}
	return abci.ResponseQuery{
		Code:   types.CodeTypeOK,
		Key:    req.Data,
		Value:  bz,
		Height: app.state.Height,
	}
}

func (app *Application) route(k keepers, path string, data []byte) (interface{}, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch parts[0] {
	case QueryPrice:
		id, err := parseProjectID(arg)
		if err != nil {
			return nil, err
		}
		price, err := k.pricing.CurrentPrice(id)
		return PriceResponse{ProjectID: id, Price: price}, err

	case QueryPricing:
		id, err := parseProjectID(arg)
		if err != nil {
			return nil, err
		}
		return k.pricing.PricingInfo(id)

	case QueryConditions:
		return k.pricing.MarketConditions()

	case QueryImpact:
		var req ImpactRequest
		if err := decodeRequest(data, &req); err != nil {
			return nil, err
		}
		if err := types.ValidateTradeAmount(req.Amount); err != nil {
			return nil, err
		}
		return k.pricing.PriceImpact(req.ProjectID, req.Amount, req.IsBuy)

	case QueryBuyers:
		id, err := parseProjectID(arg)
		if err != nil {
			return nil, err
		}
		buyers, err := k.market.ProjectBuyers(id)
		if err != nil {
			return nil, err
		}
		out := make([]BuyerStake, 0, len(buyers))
		for _, b := range buyers {
			stake, err := k.market.Stake(id, b)
			if err != nil {
				return nil, err
			}
			out = append(out, BuyerStake{Address: b, Stake: stake})
		}
		return out, nil

	case QueryHistory:
		var req HistoryRequest
		if err := decodeRequest(data, &req); err != nil {
			return nil, err
		}
		return k.pricing.History(req.ProjectID, req.FromDay, req.ToDay)

	case QueryProject:
		id, err := parseProjectID(arg)
		if err != nil {
			return nil, err
		}
		p, found, err := k.projects.Get(id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, types.StateError{ProjectID: id, Reason: "not registered"}
		}
		return p, nil

	case QueryBalance:
		addr, err := parseAddress(arg)
		if err != nil {
			return nil, err
		}
		bal, err := k.bank.Balance(addr)
		if err != nil {
			return nil, err
		}
		credits, err := k.credits.BalanceOf(addr)
		return BalanceResponse{Address: addr, Balance: bal, Credits: credits}, err

	case QueryAccount:
		addr, err := parseAddress(arg)
		if err != nil {
			return nil, err
		}
		seq, err := k.accounts.Sequence(addr)
		return AccountResponse{Address: addr, Sequence: seq}, err
	}
	return nil, types.ErrInvalid("path", "unknown query path %q", path)
}

func parseProjectID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, types.ErrInvalid("project_id", "%q is not a project id", s)
	}
	return id, nil
}

func parseAddress(s string) (crypto.Address, error) {
	bz, err := hex.DecodeString(s)
	if err != nil || len(bz) != crypto.AddressSize {
		return nil, types.ErrInvalid("address", "%q is not a hex encoded address", s)
	}
	return crypto.Address(bz), nil
}

func decodeRequest(data []byte, ptr interface{}) error {
	if err := json.Unmarshal(data, ptr); err != nil {
		return types.ErrInvalid("data", "%v", err)
	}
	return nil
}
