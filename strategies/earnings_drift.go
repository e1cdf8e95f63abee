package strategies

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/pead/config"
	"github.com/rustyeddy/pead/market"
	"github.com/rustyeddy/pead/risk"
	"github.com/rustyeddy/pead/signal"
)

// State of the per-symbol position machine.
type State int

const (
	Flat State = iota
	OpenLong
	OpenShort
)

func (s State) String() string {
	switch s {
	case OpenLong:
		return "OPEN_LONG"
	case OpenShort:
		return "OPEN_SHORT"
	default:
		return "FLAT"
	}
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	TakeProfit ExitReason = "take_profit"
	StopLoss   ExitReason = "stop_loss"
	Timeout    ExitReason = "timeout"
)

// SkipReason records why an evaluated entry did not open a position.
type SkipReason string

const (
	SkipInsufficientSize SkipReason = "insufficient_size"
	SkipSignalUndefined  SkipReason = "signal_undefined"
	SkipNoPrediction     SkipReason = "no_prediction"
)

// Params are the entry and exit rules. They are shared read-only across
// symbols.
type Params struct {
	TakeProfit        float64
	StopLoss          float64
	HoldingPeriodBars int
	MaxTradeValue     float64
	EntryThreshold    float64
	Weights           signal.Weights
	EntryWindow       market.Window
}

// DefaultParams mirrors config.Default().
func DefaultParams() Params {
	p, err := ParamsFromConfig(config.Default().Strategy)
	if err != nil {
		panic(err)
	}
	return p
}

// ParamsFromConfig converts the strategy section of the config.
func ParamsFromConfig(c config.StrategyConfig) (Params, error) {
	w, err := c.EntryWindow.Window()
	if err != nil {
		return Params{}, fmt.Errorf("entry window: %w", err)
	}
	p := Params{
		TakeProfit:        c.TakeProfit,
		StopLoss:          c.StopLoss,
		HoldingPeriodBars: c.HoldingPeriodBars,
		MaxTradeValue:     c.MaxTradeValue,
		EntryThreshold:    c.EntryThreshold,
		Weights:           c.Weights(),
		EntryWindow:       w,
	}
	return p, p.Validate()
}

// Validate rejects rules that cannot produce meaningful trades.
func (p Params) Validate() error {
	switch {
	case p.TakeProfit <= 0:
		return errors.New("take profit must be positive")
	case p.StopLoss <= 0:
		return errors.New("stop loss must be positive")
	case p.HoldingPeriodBars <= 0:
		return errors.New("holding period must be positive")
	case p.MaxTradeValue <= 0:
		return errors.New("max trade value must be positive")
	case p.EntryThreshold <= 0:
		return errors.New("entry threshold must be positive")
	case p.EntryWindow.Start > p.EntryWindow.End:
		return errors.New("entry window start is after end")
	}
	return nil
}

// Position is the open position of a symbol.
type Position struct {
	Side       market.Side
	EntryPrice float64
	Size       int64
	EntryTime  time.Time
	BarsHeld   int
}

// ActionKind is what the machine decided on a bar.
type ActionKind int

const (
	Hold ActionKind = iota
	Open
	Close
	Skip
)

// Action is the decision for one bar. The engine executes Open and Close
// at Price; Skip is informational.
type Action struct {
	Kind  ActionKind
	Side  market.Side
	Size  int64
	Price float64

	Reason ExitReason // Close
	Skip   SkipReason // Skip
	Err    error      // Skip with SkipSignalUndefined

	Score    signal.Score // Open and Skip, when computed
	Position Position     // Close: the position as it was closed
}

// EarningsDrift trades the post-announcement drift of one symbol. It is
// not safe for concurrent use; each symbol owns its own instance.
type EarningsDrift struct {
	params Params
	events map[time.Time]market.EarningsEvent
	preds  []market.SurprisePrediction

	pos         Position
	open        bool
	lastAttempt time.Time
}

// NewEarningsDrift builds a machine over one symbol's earnings and
// predictions. The first event seen for a report date wins.
func NewEarningsDrift(p Params, events []market.EarningsEvent, preds []market.SurprisePrediction) *EarningsDrift {
	byDate := make(map[time.Time]market.EarningsEvent, len(events))
	for _, ev := range events {
		d := market.DateOf(ev.ReportDate)
		if _, dup := byDate[d]; !dup {
			byDate[d] = ev
		}
	}
	return &EarningsDrift{
		params: p,
		events: byDate,
		preds:  append([]market.SurprisePrediction(nil), preds...),
	}
}

// State reports the current machine state.
func (s *EarningsDrift) State() State {
	if !s.open {
		return Flat
	}
	if s.pos.Side == market.Short {
		return OpenShort
	}
	return OpenLong
}

// Position returns the open position, if any.
func (s *EarningsDrift) Position() (Position, bool) {
	return s.pos, s.open
}

// OnBar advances the machine by one bar. Exits are evaluated for a
// position opened on an earlier bar. No entry is evaluated on a bar that
// held a position.
func (s *EarningsDrift) OnBar(b market.Bar) Action {
	if s.open {
		return s.checkExit(b)
	}
	return s.checkEntry(b)
}

// ForceClose closes an open position at b with reason timeout. It is used
// when the bar series ends with a position still open.
func (s *EarningsDrift) ForceClose(b market.Bar) (Action, bool) {
	if !s.open {
		return Action{}, false
	}
	return s.close(b, Timeout), true
}

// checkExit order is fixed: take profit, stop loss, then timeout.
func (s *EarningsDrift) checkExit(b market.Bar) Action {
	s.pos.BarsHeld++
	change := risk.FavorableChange(s.pos.Side.Sign(), s.pos.EntryPrice, b.Close)

	switch {
	case change >= s.params.TakeProfit:
		return s.close(b, TakeProfit)
	case change <= -s.params.StopLoss:
		return s.close(b, StopLoss)
	case s.pos.BarsHeld >= s.params.HoldingPeriodBars:
		return s.close(b, Timeout)
	}
	return Action{Kind: Hold}
}

func (s *EarningsDrift) close(b market.Bar, reason ExitReason) Action {
	p := s.pos
	s.pos = Position{}
	s.open = false
	return Action{
		Kind:     Close,
		Side:     p.Side,
		Size:     p.Size,
		Price:    b.Close,
		Reason:   reason,
		Position: p,
	}
}

func (s *EarningsDrift) checkEntry(b market.Bar) Action {
	if !s.params.EntryWindow.Contains(b.Time) {
		return Action{Kind: Hold}
	}
	// one attempt per calendar date
	if !s.lastAttempt.IsZero() && market.SameDate(s.lastAttempt, b.Time) {
		return Action{Kind: Hold}
	}

	date := market.DateOf(b.Time)
	ev, ok := s.events[date]
	if !ok {
		return Action{Kind: Hold}
	}
	s.lastAttempt = b.Time

	pred, ok := signal.Nearest(s.preds, date)
	if !ok {
		return Action{Kind: Skip, Skip: SkipNoPrediction, Price: b.Close}
	}
	score, err := signal.Surprise(ev, pred, s.params.Weights)
	if err != nil {
		return Action{Kind: Skip, Skip: SkipSignalUndefined, Err: err, Price: b.Close}
	}

	var side market.Side
	switch {
	case score.Blended >= s.params.EntryThreshold:
		side = market.Long
	case score.Blended <= -s.params.EntryThreshold:
		side = market.Short
	default:
		return Action{Kind: Hold, Score: score}
	}

	size := risk.SharesForNotional(s.params.MaxTradeValue, b.Close)
	if size <= 0 {
		return Action{Kind: Skip, Skip: SkipInsufficientSize, Side: side, Price: b.Close, Score: score}
	}

	s.pos = Position{
		Side:       side,
		EntryPrice: b.Close,
		Size:       size,
		EntryTime:  b.Time,
	}
	s.open = true
	return Action{Kind: Open, Side: side, Size: size, Price: b.Close, Score: score}
}
