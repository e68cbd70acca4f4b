package conflict

import (
	"fmt"
	"sort"

	"slothold/models"
)

// Each strategy is a pure function of (contenders, active-holder set) to an
// outcome. No store access happens here; the resolver validates liveness
// beforehand and hands the result in.
type outcome struct {
	winner *models.Contender
	losers []models.LoserOutcome
}

// resolveWithStrategy dispatches over the closed strategy set.
func resolveWithStrategy(strategy models.ResolutionStrategy, contenders []models.Contender, active map[string]bool) (outcome, error) {
	switch strategy {
	case models.StrategyFirstComeFirstServed:
		return firstComeFirstServed(contenders, active), nil
	case models.StrategyPriorityBased:
		return priorityBased(contenders, active), nil
	case models.StrategyPaymentIntentPriority:
		return paymentIntentPriority(contenders, active), nil
	case models.StrategyReturningCustomer:
		return returningCustomerPriority(contenders, active), nil
	case models.StrategyManual:
		return manualReview(contenders), nil
	}
	return outcome{}, fmt.Errorf("unknown resolution strategy %q", strategy)
}

// byClaimTime orders contenders by claim timestamp ascending, tie-broken by
// holder identity so resolution never depends on input order.
func byClaimTime(contenders []models.Contender) []models.Contender {
	sorted := append([]models.Contender(nil), contenders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ClaimedAt.Equal(sorted[j].ClaimedAt) {
			return sorted[i].ClaimedAt.Before(sorted[j].ClaimedAt)
		}
		return sorted[i].Holder.String() < sorted[j].Holder.String()
	})
	return sorted
}

// pickEarliestActive walks contenders in claim order and returns the first
// whose reservation is still live; an expired nominal winner is skipped and
// the remainder considered.
func pickEarliestActive(sorted []models.Contender, active map[string]bool) *models.Contender {
	for i := range sorted {
		if active[sorted[i].Holder.String()] {
			return &sorted[i]
		}
	}
	return nil
}

func loserReason(c models.Contender, active map[string]bool, reason string) string {
	if !active[c.Holder.String()] {
		return "your hold expired before the conflict was resolved"
	}
	return reason
}

func collectLosers(contenders []models.Contender, winner *models.Contender, active map[string]bool, reason string) []models.LoserOutcome {
	var losers []models.LoserOutcome
	for _, c := range contenders {
		if winner != nil && c.Holder.Matches(winner.Holder) {
			continue
		}
		losers = append(losers, models.LoserOutcome{
			Holder: c.Holder,
			Reason: loserReason(c, active, reason),
		})
	}
	return losers
}

func firstComeFirstServed(contenders []models.Contender, active map[string]bool) outcome {
	sorted := byClaimTime(contenders)
	winner := pickEarliestActive(sorted, active)
	return outcome{
		winner: winner,
		losers: collectLosers(contenders, winner, active, "another contender claimed the slot first"),
	}
}

func priorityBased(contenders []models.Contender, active map[string]bool) outcome {
	sorted := byClaimTime(contenders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	winner := pickEarliestActive(sorted, active)
	return outcome{
		winner: winner,
		losers: collectLosers(contenders, winner, active, "outranked by a higher-priority claim"),
	}
}

func paymentIntentPriority(contenders []models.Contender, active map[string]bool) outcome {
	var withIntent []models.Contender
	for _, c := range contenders {
		if c.HasPaymentIntent {
			withIntent = append(withIntent, c)
		}
	}
	if len(withIntent) == 0 {
		// No payment intent anywhere: identical to first come, first served.
		return firstComeFirstServed(contenders, active)
	}
	winner := pickEarliestActive(byClaimTime(withIntent), active)
	if winner == nil {
		return firstComeFirstServed(contenders, active)
	}
	return outcome{
		winner: winner,
		losers: collectLosers(contenders, winner, active,
			"another contender with a payment intent claimed first (payment intent priority)"),
	}
}

func returningCustomerPriority(contenders []models.Contender, active map[string]bool) outcome {
	var returning []models.Contender
	for _, c := range contenders {
		if c.IsReturningCustomer {
			returning = append(returning, c)
		}
	}
	if len(returning) == 0 {
		return firstComeFirstServed(contenders, active)
	}
	winner := pickEarliestActive(byClaimTime(returning), active)
	if winner == nil {
		return firstComeFirstServed(contenders, active)
	}
	return outcome{
		winner: winner,
		losers: collectLosers(contenders, winner, active,
			"a returning customer claimed first (returning customer priority)"),
	}
}

// manualReview picks no winner; every contender is reported as pending
// human review.
func manualReview(contenders []models.Contender) outcome {
	losers := make([]models.LoserOutcome, 0, len(contenders))
	for _, c := range contenders {
		losers = append(losers, models.LoserOutcome{
			Holder: c.Holder,
			Reason: "conflict flagged for manual review",
		})
	}
	return outcome{losers: losers}
}
