package taxlot

import (
	"time"

	"github.com/shopspring/decimal"
)

// longTermThreshold is the minimum holding duration for a long-term gain.
const longTermThreshold = 365 * 24 * time.Hour

// unmatchedDisposal records the part of a sell the lot queue could not cover.
type unmatchedDisposal struct {
	sellHash string
	amount   decimal.Decimal
}

// ClassifyHoldingPeriod returns LongTerm when the asset was held for at least
// 365 days and ShortTerm otherwise. A missing timestamp on either side
// classifies as LongTerm.
func ClassifyHoldingPeriod(acquiredAt, disposedAt *time.Time) HoldingPeriod {
	if acquiredAt == nil || disposedAt == nil {
		return LongTerm
	}
	if disposedAt.Sub(*acquiredAt) < longTermThreshold {
		return ShortTerm
	}
	return LongTerm
}

// Match pairs sells against buys in FIFO order. Both slices must already be
// sorted oldest first and must not contain zero or negative amounts.
//
// A sell larger than the quantity left in the queue is matched as far as the
// queue allows; the rest is dropped without producing a gain record. The
// returned lots are the ones still open, in acquisition order, with their
// remaining amounts reduced by every match.
func Match(buys, sells []Transaction) ([]RealizedGain, []TaxLot) {
	realized, remaining, _ := match(buys, sells)
	return realized, remaining
}

func match(buys, sells []Transaction) ([]RealizedGain, []TaxLot, []unmatchedDisposal) {
	queue := make([]TaxLot, len(buys))
	for i, buy := range buys {
		queue[i] = TaxLot{
			SourceHash:      buy.Hash,
			AcquiredAt:      buy.Timestamp,
			UnitCostUSD:     buy.UnitPriceUSD,
			RemainingAmount: buy.Amount,
		}
	}

	realized := []RealizedGain{}
	var unmatched []unmatchedDisposal
	head := 0

	for _, sell := range sells {
		toSell := sell.Amount
		for toSell.IsPositive() {
			if head == len(queue) {
				unmatched = append(unmatched, unmatchedDisposal{sellHash: sell.Hash, amount: toSell})
				break
			}

			lot := &queue[head]
			if !lot.RemainingAmount.IsPositive() {
				head++
				continue
			}

			matched := decimal.Min(lot.RemainingAmount, toSell)
			realized = append(realized, realize(sell, lot, matched))

			lot.RemainingAmount = lot.RemainingAmount.Sub(matched)
			toSell = toSell.Sub(matched)
			if lot.RemainingAmount.IsZero() {
				head++
			}
		}
	}

	remaining := make([]TaxLot, len(queue)-head)
	copy(remaining, queue[head:])
	return realized, remaining, unmatched
}

func realize(sell Transaction, lot *TaxLot, matched decimal.Decimal) RealizedGain {
	costBasis := matched.Mul(lot.UnitCostUSD)
	proceeds := matched.Mul(sell.UnitPriceUSD)
	return RealizedGain{
		SellHash:      sell.Hash,
		BuyHash:       lot.SourceHash,
		MatchedAmount: matched,
		BuyUnitPrice:  lot.UnitCostUSD,
		SellUnitPrice: sell.UnitPriceUSD,
		CostBasis:     costBasis,
		Proceeds:      proceeds,
		GainLoss:      proceeds.Sub(costBasis),
		AcquiredAt:    lot.AcquiredAt,
		DisposedAt:    sell.Timestamp,
		HoldingPeriod: ClassifyHoldingPeriod(lot.AcquiredAt, sell.Timestamp),
	}
}
