package taxlot

import "fmt"

// InputError reports a transaction, or a top-level input value, that is
// malformed. Index is -1 for top-level values.
type InputError struct {
	Index  int
	Hash   string
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	if e.Hash != "" {
		return fmt.Sprintf("transaction %d (%s): %s: %s", e.Index, e.Hash, e.Field, e.Reason)
	}
	return fmt.Sprintf("transaction %d: %s: %s", e.Index, e.Field, e.Reason)
}

// Validate checks in without computing anything. Calculate runs the same
// checks, so callers only need it to reject input before doing costly work
// such as price lookups.
func Validate(in Input) error {
	if in.CurrentBalance.IsNegative() {
		return &InputError{Index: -1, Field: "current_balance", Reason: "must not be negative"}
	}
	if in.CurrentUnitPriceUSD.IsNegative() {
		return &InputError{Index: -1, Field: "current_unit_price_usd", Reason: "must not be negative"}
	}
	for i, tx := range in.Transactions {
		if err := validate(i, tx); err != nil {
			return err
		}
	}
	return nil
}

// Calculate runs the full FIFO computation for one asset.
//
// Transactions may mix directions; they are partitioned into acquisitions and
// disposals keeping the caller's order within each direction, which must be
// oldest first. Zero-amount transactions are dropped. Malformed input yields
// an *InputError and no result.
func Calculate(in Input) (*Result, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	buys, sells := partition(in.Transactions)

	realized, remaining, unmatched := match(buys, sells)
	unrealized := Aggregate(remaining, in.CurrentBalance, in.CurrentUnitPriceUSD)

	res := &Result{
		Method:          Method,
		RealizedGains:   realized,
		UnrealizedGains: unrealized,
		RemainingLots:   remaining,
		Summary:         Summarize(realized, unrealized, len(buys), len(sells)),
	}

	for _, u := range unmatched {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarningUnmatchedDisposal,
			Hash:    u.sellHash,
			Amount:  u.amount,
			Message: fmt.Sprintf("%s of the disposal had no acquisition left to match and was excluded", u.amount),
		})
	}

	if open := OpenAmount(remaining); !open.Equal(in.CurrentBalance) {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarningBalanceMismatch,
			Amount:  in.CurrentBalance.Sub(open),
			Message: fmt.Sprintf("current balance %s differs from open lot total %s", in.CurrentBalance, open),
		})
	}

	return res, nil
}

func partition(txs []Transaction) (buys, sells []Transaction) {
	for _, tx := range txs {
		if tx.Amount.IsZero() {
			continue
		}
		switch tx.Direction {
		case DirectionReceived:
			buys = append(buys, tx)
		case DirectionSent:
			sells = append(sells, tx)
		}
	}
	return buys, sells
}

func validate(i int, tx Transaction) error {
	switch {
	case tx.Hash == "":
		return &InputError{Index: i, Field: "hash", Reason: "is required"}
	case !tx.Direction.Valid():
		return &InputError{Index: i, Hash: tx.Hash, Field: "direction", Reason: fmt.Sprintf("unsupported value %q", tx.Direction)}
	case tx.Amount.IsNegative():
		return &InputError{Index: i, Hash: tx.Hash, Field: "amount", Reason: "must not be negative"}
	case tx.UnitPriceUSD.IsNegative():
		return &InputError{Index: i, Hash: tx.Hash, Field: "unit_price_usd", Reason: "must not be negative"}
	}
	return nil
}
