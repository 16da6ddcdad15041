package fraud

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

type Decision string

const (
	DecisionApproved    Decision = "APPROVED"
	DecisionUnderReview Decision = "UNDER_REVIEW"
	DecisionRejected    Decision = "REJECTED"
)

const (
	rejectThreshold = 70
	reviewThreshold = 40

	// HistoryWindow bounds the lookback over the source account's recent
	// transfers considered by the frequency rules.
	HistoryWindow = time.Hour
)

type RuleHit struct {
	Rule   string
	Points int
	Reason string
}

type Result struct {
	Score    int
	Decision Decision
	Details  string
	Hits     []RuleHit
}

var (
	highValueCritical = decimal.NewFromInt(10000)
	highValueFloor    = decimal.NewFromInt(5000)
	roundStep         = decimal.NewFromInt(1000)
	microCeiling      = decimal.NewFromInt(1)
)

// Engine scores transfers with an additive rule set. Analyze is pure: the
// suspicious-hour rule reads the transfer's own creation time and the
// frequency rules read only the supplied history snapshot, so re-running
// analysis after a crash yields the identical result.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Analyze(t *entity.Transfer, history []*entity.Transfer) Result {
	recent := filterRecent(t, history)

	var hits []RuleHit
	add := func(rule string, points int, reason string) {
		hits = append(hits, RuleHit{Rule: rule, Points: points, Reason: reason})
	}

	switch {
	case t.Amount.GreaterThan(highValueCritical):
		add("high_value_critical", 50, fmt.Sprintf("amount %s exceeds %s", t.Amount, highValueCritical))
	case t.Amount.GreaterThan(highValueFloor):
		add("high_value", 30, fmt.Sprintf("amount %s exceeds %s", t.Amount, highValueFloor))
	}

	if hour := t.CreatedAt.Local().Hour(); hour < 6 {
		add("suspicious_hour", 20, fmt.Sprintf("created at suspicious hour %02d", hour))
	}

	if t.SourceAccountID == t.DestinationAccountID {
		add("self_transfer", 80, "source and destination account are the same")
	}

	switch n := len(recent); {
	case n >= 3:
		add("high_frequency", 40, fmt.Sprintf("%d transfers from source in the last hour", n))
	case n == 2:
		add("moderate_frequency", 15, "2 transfers from source in the last hour")
	}

	if n := countToDestination(recent, t.DestinationAccountID); n >= 2 {
		add("repeated_destination", 35, fmt.Sprintf("%d prior transfers to the same destination in the last hour", n))
	}

	if t.Amount.GreaterThanOrEqual(roundStep) && t.Amount.Mod(roundStep).IsZero() {
		add("round_amount", 10, fmt.Sprintf("round amount %s", t.Amount))
	}

	if t.Amount.LessThanOrEqual(microCeiling) && len(recent) >= 1 {
		add("micro_transaction", 25, fmt.Sprintf("micro amount %s with recent activity", t.Amount))
	}

	score := 0
	for _, h := range hits {
		score += h.Points
	}

	return Result{
		Score:    score,
		Decision: decide(score),
		Details:  formatDetails(hits),
		Hits:     hits,
	}
}

func decide(score int) Decision {
	switch {
	case score > rejectThreshold:
		return DecisionRejected
	case score >= reviewThreshold:
		return DecisionUnderReview
	default:
		return DecisionApproved
	}
}

// filterRecent keeps other transfers from the same source inside the lookback
// window before the analyzed transfer. The repository already pages by window;
// filtering again here keeps the engine correct on any snapshot.
func filterRecent(t *entity.Transfer, history []*entity.Transfer) []*entity.Transfer {
	cutoff := t.CreatedAt.Add(-HistoryWindow)
	var recent []*entity.Transfer
	for _, h := range history {
		if h.ID == t.ID {
			continue
		}
		if h.SourceAccountID != t.SourceAccountID {
			continue
		}
		if h.CreatedAt.Before(cutoff) || h.CreatedAt.After(t.CreatedAt) {
			continue
		}
		recent = append(recent, h)
	}
	return recent
}

func countToDestination(recent []*entity.Transfer, destinationID string) int {
	n := 0
	for _, h := range recent {
		if h.DestinationAccountID == destinationID {
			n++
		}
	}
	return n
}

func formatDetails(hits []RuleHit) string {
	if len(hits) == 0 {
		return "no rules triggered"
	}
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("%s(+%d): %s", h.Rule, h.Points, h.Reason))
	}
	return strings.Join(parts, "; ")
}
