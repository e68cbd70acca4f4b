package conflict

import (
	"testing"
	"time"

	"slothold/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var claimBase = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func contender(userID string, claimOffset time.Duration) models.Contender {
	return models.Contender{
		Holder:    models.HolderIdentity{UserID: userID},
		ClaimedAt: claimBase.Add(claimOffset),
	}
}

func activeSet(contenders ...models.Contender) map[string]bool {
	active := make(map[string]bool, len(contenders))
	for _, c := range contenders {
		active[c.Holder.String()] = true
	}
	return active
}

func reverse(contenders []models.Contender) []models.Contender {
	out := make([]models.Contender, len(contenders))
	for i, c := range contenders {
		out[len(contenders)-1-i] = c
	}
	return out
}

func TestFirstComeFirstServed(t *testing.T) {
	early := contender("early", 0)
	mid := contender("mid", time.Minute)
	late := contender("late", 2*time.Minute)

	t.Run("earliest active claim wins regardless of input order", func(t *testing.T) {
		contenders := []models.Contender{mid, late, early}
		active := activeSet(early, mid, late)

		out := firstComeFirstServed(contenders, active)
		require.NotNil(t, out.winner)
		assert.Equal(t, early.Holder, out.winner.Holder)
		assert.Len(t, out.losers, 2)

		again := firstComeFirstServed(reverse(contenders), active)
		require.NotNil(t, again.winner)
		assert.Equal(t, out.winner.Holder, again.winner.Holder)
	})

	t.Run("an expired nominal winner is skipped", func(t *testing.T) {
		out := firstComeFirstServed([]models.Contender{early, mid, late}, activeSet(mid, late))
		require.NotNil(t, out.winner)
		assert.Equal(t, mid.Holder, out.winner.Holder)
	})

	t.Run("identical claim times break ties on holder identity", func(t *testing.T) {
		a := contender("aaa", 0)
		b := contender("bbb", 0)
		active := activeSet(a, b)

		out := firstComeFirstServed([]models.Contender{b, a}, active)
		require.NotNil(t, out.winner)
		assert.Equal(t, a.Holder, out.winner.Holder)
	})

	t.Run("losers carry individual reasons", func(t *testing.T) {
		out := firstComeFirstServed([]models.Contender{early, mid, late}, activeSet(early, mid))
		require.NotNil(t, out.winner)

		reasons := make(map[string]string)
		for _, l := range out.losers {
			reasons[l.Holder.String()] = l.Reason
		}
		assert.Equal(t, "another contender claimed the slot first", reasons[mid.Holder.String()])
		assert.Equal(t, "your hold expired before the conflict was resolved", reasons[late.Holder.String()])
	})
}

func TestPriorityBased(t *testing.T) {
	t.Run("higher priority beats an earlier claim", func(t *testing.T) {
		low := contender("low", 0)
		high := contender("high", 5*time.Minute)
		high.Priority = 8

		out := priorityBased([]models.Contender{low, high}, activeSet(low, high))
		require.NotNil(t, out.winner)
		assert.Equal(t, high.Holder, out.winner.Holder)
		require.Len(t, out.losers, 1)
		assert.Equal(t, "outranked by a higher-priority claim", out.losers[0].Reason)
	})

	t.Run("equal priorities fall back to claim time", func(t *testing.T) {
		first := contender("first", 0)
		first.Priority = 5
		second := contender("second", time.Minute)
		second.Priority = 5

		out := priorityBased([]models.Contender{second, first}, activeSet(first, second))
		require.NotNil(t, out.winner)
		assert.Equal(t, first.Holder, out.winner.Holder)
	})
}

func TestPaymentIntentPriority(t *testing.T) {
	t.Run("a later claim with a payment intent beats an earlier one without", func(t *testing.T) {
		noIntent := contender("no-intent", 0)
		withIntent := contender("with-intent", time.Minute)
		withIntent.HasPaymentIntent = true

		out := paymentIntentPriority([]models.Contender{noIntent, withIntent}, activeSet(noIntent, withIntent))
		require.NotNil(t, out.winner)
		assert.Equal(t, withIntent.Holder, out.winner.Holder)
		require.Len(t, out.losers, 1)
		assert.Contains(t, out.losers[0].Reason, "payment intent")
	})

	t.Run("no payment intent anywhere matches first come first served", func(t *testing.T) {
		contenders := []models.Contender{contender("b", time.Minute), contender("a", 0)}
		active := activeSet(contenders...)

		withPayment := paymentIntentPriority(contenders, active)
		plain := firstComeFirstServed(contenders, active)
		require.NotNil(t, withPayment.winner)
		require.NotNil(t, plain.winner)
		assert.Equal(t, plain.winner.Holder, withPayment.winner.Holder)
	})

	t.Run("falls back when every intent holder has expired", func(t *testing.T) {
		expired := contender("expired", 0)
		expired.HasPaymentIntent = true
		live := contender("live", time.Minute)

		out := paymentIntentPriority([]models.Contender{expired, live}, activeSet(live))
		require.NotNil(t, out.winner)
		assert.Equal(t, live.Holder, out.winner.Holder)
	})
}

func TestReturningCustomerPriority(t *testing.T) {
	t.Run("returning customer beats an earlier new customer", func(t *testing.T) {
		newCustomer := contender("new", 0)
		returning := contender("returning", time.Minute)
		returning.IsReturningCustomer = true

		out := returningCustomerPriority([]models.Contender{newCustomer, returning}, activeSet(newCustomer, returning))
		require.NotNil(t, out.winner)
		assert.Equal(t, returning.Holder, out.winner.Holder)
		require.Len(t, out.losers, 1)
		assert.Contains(t, out.losers[0].Reason, "returning customer")
	})

	t.Run("no returning customers matches first come first served", func(t *testing.T) {
		contenders := []models.Contender{contender("b", time.Minute), contender("a", 0)}
		active := activeSet(contenders...)

		out := returningCustomerPriority(contenders, active)
		plain := firstComeFirstServed(contenders, active)
		require.NotNil(t, out.winner)
		assert.Equal(t, plain.winner.Holder, out.winner.Holder)
	})
}

func TestManualReview(t *testing.T) {
	a := contender("a", 0)
	b := contender("b", time.Minute)

	out := manualReview([]models.Contender{a, b})
	assert.Nil(t, out.winner)
	require.Len(t, out.losers, 2)
	for _, l := range out.losers {
		assert.Equal(t, "conflict flagged for manual review", l.Reason)
	}
}

func TestResolveWithStrategy(t *testing.T) {
	t.Run("rejects an unknown strategy", func(t *testing.T) {
		_, err := resolveWithStrategy("coin_flip", []models.Contender{contender("a", 0)}, nil)
		require.Error(t, err)
	})

	t.Run("is deterministic for a fixed input", func(t *testing.T) {
		contenders := []models.Contender{
			contender("c", 2*time.Minute),
			contender("a", 0),
			contender("b", time.Minute),
		}
		active := activeSet(contenders...)

		for _, strategy := range []models.ResolutionStrategy{
			models.StrategyFirstComeFirstServed,
			models.StrategyPriorityBased,
			models.StrategyPaymentIntentPriority,
			models.StrategyReturningCustomer,
		} {
			first, err := resolveWithStrategy(strategy, contenders, active)
			require.NoError(t, err)
			require.NotNil(t, first.winner, strategy)
			for i := 0; i < 5; i++ {
				again, err := resolveWithStrategy(strategy, contenders, active)
				require.NoError(t, err)
				require.NotNil(t, again.winner)
				assert.Equal(t, first.winner.Holder, again.winner.Holder, strategy)
			}
		}
	})
}
