package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

func TestTargetPrice(t *testing.T) {
	pol := DefaultPolicy()

	t.Run("take profit wins", func(t *testing.T) {
		tp := 123.0
		dec := domain.AgentDecision{Action: domain.ActionBuy, TakeProfit: &tp}
		assert.Equal(t, 123.0, pol.TargetPrice(dec, 100, domain.Timeframe1d))
	})

	t.Run("buy default band", func(t *testing.T) {
		dec := domain.AgentDecision{Action: domain.ActionBuy}
		assert.InDelta(t, 105, pol.TargetPrice(dec, 100, domain.Timeframe1d), 1e-9)
		assert.InDelta(t, 102, pol.TargetPrice(dec, 100, domain.Timeframe1h), 1e-9)
	})

	t.Run("sell default band", func(t *testing.T) {
		dec := domain.AgentDecision{Action: domain.ActionSell}
		assert.InDelta(t, 95, pol.TargetPrice(dec, 100, domain.Timeframe1d), 1e-9)
	})

	t.Run("hold targets creation price", func(t *testing.T) {
		dec := domain.AgentDecision{Action: domain.ActionHold}
		assert.Equal(t, 100.0, pol.TargetPrice(dec, 100, domain.Timeframe1d))
	})
}

func TestGradeBuy(t *testing.T) {
	pol := DefaultPolicy()
	p := domain.Prediction{
		Action:          domain.ActionBuy,
		PriceAtCreation: 100,
		TargetPrice:     110,
	}

	t.Run("near target is correct", func(t *testing.T) {
		// Realized +9 against a +10 target: within 20% tolerance.
		outcome, pnl := pol.Grade(p, 109)
		assert.Equal(t, domain.OutcomeCorrect, outcome)
		assert.InDelta(t, 900, pnl, 1e-9)
	})

	t.Run("right direction short of target is partial", func(t *testing.T) {
		outcome, pnl := pol.Grade(p, 104)
		assert.Equal(t, domain.OutcomePartial, outcome)
		assert.InDelta(t, 400, pnl, 1e-9)
	})

	t.Run("wrong direction is incorrect", func(t *testing.T) {
		outcome, pnl := pol.Grade(p, 95)
		assert.Equal(t, domain.OutcomeIncorrect, outcome)
		assert.InDelta(t, -500, pnl, 1e-9)
	})
}

func TestGradeSell(t *testing.T) {
	pol := DefaultPolicy()
	p := domain.Prediction{
		Action:          domain.ActionSell,
		PriceAtCreation: 100,
		TargetPrice:     90,
	}

	t.Run("near target is correct with positive pnl", func(t *testing.T) {
		outcome, pnl := pol.Grade(p, 91)
		assert.Equal(t, domain.OutcomeCorrect, outcome)
		assert.InDelta(t, 900, pnl, 1e-9)
	})

	t.Run("price rose is incorrect with negative pnl", func(t *testing.T) {
		outcome, pnl := pol.Grade(p, 105)
		assert.Equal(t, domain.OutcomeIncorrect, outcome)
		assert.InDelta(t, -500, pnl, 1e-9)
	})
}

func TestGradeHoldAndWatch(t *testing.T) {
	pol := DefaultPolicy()

	t.Run("hold inside band", func(t *testing.T) {
		p := domain.Prediction{Action: domain.ActionHold, PriceAtCreation: 100, TargetPrice: 100}
		outcome, pnl := pol.Grade(p, 104.9)
		assert.Equal(t, domain.OutcomeCorrect, outcome)
		assert.Zero(t, pnl)
	})

	t.Run("hold outside band", func(t *testing.T) {
		p := domain.Prediction{Action: domain.ActionHold, PriceAtCreation: 100, TargetPrice: 100}
		outcome, pnl := pol.Grade(p, 106)
		assert.Equal(t, domain.OutcomeIncorrect, outcome)
		assert.Zero(t, pnl)
	})

	t.Run("watch never carries pnl", func(t *testing.T) {
		p := domain.Prediction{Action: domain.ActionWatch, PriceAtCreation: 100, TargetPrice: 100}
		outcome, pnl := pol.Grade(p, 101)
		assert.Equal(t, domain.OutcomeCorrect, outcome)
		assert.Zero(t, pnl)
	})
}
