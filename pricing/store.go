package pricing

import (
	"fmt"

	"github.com/google/orderedcode"

	"github.com/ali-3-3-3/EcoXChange/store"
)

const (
	prefixPricing    = int64(10)
	prefixCurve      = int64(11)
	prefixConditions = int64(12)
	prefixSample     = int64(13)
)

func mustKey(parts ...interface{}) []byte {
	key, err := orderedcode.Append(nil, parts...)
	if err != nil {
		panic(fmt.Errorf("pricing: encoding key: %w", err))
	}
	return key
}

func pricingKey(projectID uint64) []byte {
	return mustKey(prefixPricing, projectID)
}

func curveKey(projectID uint64) []byte {
	return mustKey(prefixCurve, projectID)
}

func conditionsKey() []byte {
	return mustKey(prefixConditions)
}

func sampleKey(projectID uint64, day int64) []byte {
	return mustKey(prefixSample, projectID, day)
}

func loadPricing(kv store.KVStore, projectID uint64) (ProjectPricing, bool, error) {
	var p ProjectPricing
	found, err := store.GetJSON(kv, pricingKey(projectID), &p)
	return p, found, err
}

func savePricing(kv store.KVStore, p ProjectPricing) error {
	return store.SetJSON(kv, pricingKey(p.ProjectID), p)
}

func loadCurve(kv store.KVStore, projectID uint64) (BondingCurve, bool, error) {
	var c BondingCurve
	found, err := store.GetJSON(kv, curveKey(projectID), &c)
	return c, found, err
}

func saveCurve(kv store.KVStore, projectID uint64, c BondingCurve) error {
	return store.SetJSON(kv, curveKey(projectID), c)
}

func loadConditions(kv store.KVStore) (MarketConditions, error) {
	c := DefaultMarketConditions()
	if _, err := store.GetJSON(kv, conditionsKey(), &c); err != nil {
		return MarketConditions{}, err
	}
	return c, nil
}

func saveConditions(kv store.KVStore, c MarketConditions) error {
	return store.SetJSON(kv, conditionsKey(), c)
}

func loadSample(kv store.KVStore, projectID uint64, day int64) (DailySample, bool, error) {
	s := DailySample{Day: day}
	found, err := store.GetJSON(kv, sampleKey(projectID, day), &s)
	return s, found, err
}

func saveSample(kv store.KVStore, projectID uint64, s DailySample) error {
	return store.SetJSON(kv, sampleKey(projectID, s.Day), s)
}
