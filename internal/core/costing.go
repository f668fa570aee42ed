package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CostingPolicy decides an item's unit cost after a stock receipt.
type CostingPolicy string

const (
	CostingWeightedAverage CostingPolicy = "weighted_average"
	CostingLastCost        CostingPolicy = "last_cost"
)

// ParseCostingPolicy accepts the config spelling of a policy. Empty means weighted average.
func ParseCostingPolicy(s string) (CostingPolicy, error) {
	switch CostingPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CostingWeightedAverage:
		return CostingWeightedAverage, nil
	case CostingLastCost:
		return CostingLastCost, nil
	}
	return "", validationf("costing_policy", "unknown costing policy %q", s)
}

// ApplyCostingPolicy returns the new unit cost after receiving qty units at unitCost
// on top of oldQty units carried at oldCost.
//
//	weighted_average: (oldQty*oldCost + qty*unitCost) / (oldQty + qty)
//	last_cost:        unitCost
func ApplyCostingPolicy(policy CostingPolicy, oldQty, oldCost, qty, unitCost decimal.Decimal) decimal.Decimal {
	switch policy {
	case CostingLastCost:
		return unitCost
	default:
		newQty := oldQty.Add(qty)
		if newQty.Sign() <= 0 {
			return unitCost
		}
		return oldQty.Mul(oldCost).Add(qty.Mul(unitCost)).DivRound(newQty, 4)
	}
}

func (p CostingPolicy) String() string { return string(p) }
