package backtest

import (
	"github.com/rustyeddy/pead/market"
	"github.com/shopspring/decimal"
)

// Ledger is the cash account of one symbol's backtest. Cash is kept in
// decimal so long runs do not accumulate float drift.
type Ledger struct {
	cash decimal.Decimal
	rate decimal.Decimal
}

// NewLedger opens an account with startingCash and a proportional
// commission rate charged on every fill.
func NewLedger(startingCash, commissionRate float64) *Ledger {
	return &Ledger{
		cash: decimal.NewFromFloat(startingCash),
		rate: decimal.NewFromFloat(commissionRate),
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash.InexactFloat64()
}

// Open books an entry fill and returns the commission charged.
// A long pays the notional, a short receives it.
func (l *Ledger) Open(side market.Side, size int64, price float64) float64 {
	notional, fee := l.fill(size, price)
	if side == market.Short {
		l.cash = l.cash.Add(notional).Sub(fee)
	} else {
		l.cash = l.cash.Sub(notional).Sub(fee)
	}
	return fee.InexactFloat64()
}

// Close books the exit fill of a position opened with Open.
func (l *Ledger) Close(side market.Side, size int64, price float64) float64 {
	notional, fee := l.fill(size, price)
	if side == market.Short {
		l.cash = l.cash.Sub(notional).Sub(fee)
	} else {
		l.cash = l.cash.Add(notional).Sub(fee)
	}
	return fee.InexactFloat64()
}

// Equity marks a position of size shares on side to price.
func (l *Ledger) Equity(side market.Side, size int64, price float64) float64 {
	mark := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(size * int64(side)))
	return l.cash.Add(mark).InexactFloat64()
}

func (l *Ledger) fill(size int64, price float64) (notional, fee decimal.Decimal) {
	notional = decimal.NewFromFloat(price).Mul(decimal.NewFromInt(size))
	fee = notional.Mul(l.rate)
	return notional, fee
}
