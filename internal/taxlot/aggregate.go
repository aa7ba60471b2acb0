package taxlot

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Aggregate values every open lot at currentPrice and totals the results.
//
// currentBalance is accepted so callers can pass their view of the holding
// alongside the lots, but it is not reconciled here; Calculate reports a
// mismatch as a warning.
func Aggregate(lots []TaxLot, currentBalance, currentPrice decimal.Decimal) UnrealizedTotal {
	_ = currentBalance

	total := UnrealizedTotal{Lots: make([]UnrealizedGain, 0, len(lots))}
	for _, lot := range lots {
		costBasis := lot.RemainingAmount.Mul(lot.UnitCostUSD)
		currentValue := lot.RemainingAmount.Mul(currentPrice)
		gain := currentValue.Sub(costBasis)

		total.Lots = append(total.Lots, UnrealizedGain{
			SourceHash:          lot.SourceHash,
			AcquiredAt:          lot.AcquiredAt,
			RemainingAmount:     lot.RemainingAmount,
			UnitCostUSD:         lot.UnitCostUSD,
			CurrentUnitPriceUSD: currentPrice,
			CostBasis:           costBasis,
			CurrentValue:        currentValue,
			UnrealizedGain:      gain,
			GainPercentage:      percentage(gain, costBasis),
		})

		total.TotalCostBasis = total.TotalCostBasis.Add(costBasis)
		total.TotalCurrentValue = total.TotalCurrentValue.Add(currentValue)
	}

	total.TotalGain = total.TotalCurrentValue.Sub(total.TotalCostBasis)
	total.TotalGainPercentage = percentage(total.TotalGain, total.TotalCostBasis)
	return total
}

// Summarize rolls realized gains and the unrealized totals into a Summary.
// buyCount and sellCount are the number of acquisitions and disposals that
// were fed to the matcher.
func Summarize(realized []RealizedGain, unrealized UnrealizedTotal, buyCount, sellCount int) Summary {
	var s Summary
	for _, g := range realized {
		s.TotalRealizedGain = s.TotalRealizedGain.Add(g.GainLoss)
		switch g.HoldingPeriod {
		case ShortTerm:
			s.ShortTermGains = s.ShortTermGains.Add(g.GainLoss)
		case LongTerm:
			s.LongTermGains = s.LongTermGains.Add(g.GainLoss)
		}
	}
	s.TotalUnrealizedGain = unrealized.TotalGain
	s.TotalGain = s.TotalRealizedGain.Add(s.TotalUnrealizedGain)
	s.BuyCount = buyCount
	s.SellCount = sellCount
	s.TotalTransactions = buyCount + sellCount
	return s
}

// OpenAmount returns the total quantity still held across lots.
func OpenAmount(lots []TaxLot) decimal.Decimal {
	sum := decimal.Zero
	for _, lot := range lots {
		sum = sum.Add(lot.RemainingAmount)
	}
	return sum
}

// percentage returns part/whole*100, or zero when whole is not positive.
func percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
