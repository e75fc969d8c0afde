package ledger

import "github.com/alanyoungcy/tradecouncil/internal/domain"

// Policy holds the resolution constants. The tolerance and band values mirror
// long-standing platform behavior; they are tunable policy, not fixed law.
type Policy struct {
	// CorrectTolerance is the fraction of |targetDiff| within which a
	// directional prediction that moved the right way counts as correct.
	CorrectTolerance float64
	// HoldBand is the fraction of the creation price within which a HOLD
	// prediction counts as correct.
	HoldBand float64
	// NotionalUnit is the fixed position size in quote currency used for P&L.
	NotionalUnit float64
	// DefaultMove is the expected move per timeframe used to derive a target
	// price when the decision carries no take-profit level.
	DefaultMove map[domain.Timeframe]float64
}

// DefaultPolicy returns the production resolution policy.
func DefaultPolicy() Policy {
	return Policy{
		CorrectTolerance: 0.2,
		HoldBand:         0.05,
		NotionalUnit:     100,
		DefaultMove: map[domain.Timeframe]float64{
			domain.Timeframe1h:  0.02,
			domain.Timeframe4h:  0.04,
			domain.Timeframe1d:  0.05,
			domain.Timeframe7d:  0.10,
			domain.Timeframe30d: 0.20,
		},
	}
}

// TargetPrice derives the target for a new prediction. A take-profit level
// supplied by the decision wins; otherwise the default band for the timeframe
// is applied in the decision's direction. HOLD and WATCH target the creation
// price itself.
func (pol Policy) TargetPrice(dec domain.AgentDecision, price float64, tf domain.Timeframe) float64 {
	if dec.TakeProfit != nil && *dec.TakeProfit > 0 {
		return *dec.TakeProfit
	}
	move := pol.DefaultMove[tf]
	switch dec.Action {
	case domain.ActionBuy:
		return price * (1 + move)
	case domain.ActionSell:
		return price * (1 - move)
	default:
		return price
	}
}

// Grade scores a prediction against the realized price. WATCH predictions are
// informational: they are graded on price stability like HOLD but never carry
// profit or loss.
func (pol Policy) Grade(p domain.Prediction, actualPrice float64) (domain.Outcome, float64) {
	priceDiff := actualPrice - p.PriceAtCreation
	targetDiff := p.TargetPrice - p.PriceAtCreation

	switch p.Action {
	case domain.ActionBuy:
		outcome := domain.OutcomeIncorrect
		if priceDiff > 0 {
			outcome = domain.OutcomePartial
			if absFloat(priceDiff-targetDiff) < pol.CorrectTolerance*absFloat(targetDiff) {
				outcome = domain.OutcomeCorrect
			}
		}
		return outcome, priceDiff * pol.NotionalUnit

	case domain.ActionSell:
		outcome := domain.OutcomeIncorrect
		if priceDiff < 0 {
			outcome = domain.OutcomePartial
			if absFloat(priceDiff-targetDiff) < pol.CorrectTolerance*absFloat(targetDiff) {
				outcome = domain.OutcomeCorrect
			}
		}
		return outcome, -priceDiff * pol.NotionalUnit

	case domain.ActionHold, domain.ActionWatch:
		outcome := domain.OutcomeIncorrect
		if absFloat(priceDiff) < pol.HoldBand*p.PriceAtCreation {
			outcome = domain.OutcomeCorrect
		}
		return outcome, 0
	}
	return domain.OutcomeIncorrect, 0
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
