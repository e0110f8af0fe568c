package extract

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ledgerline/statement-engine/internal/rules"
)

// ErrAllStrategiesFailed means every strategy in the chain scored zero or
// returned an error; the statement cannot be parsed and needs manual review.
var ErrAllStrategiesFailed = errors.New("all extraction strategies failed")

// SelectorConfig holds the tunable selection thresholds.
type SelectorConfig struct {
	// EarlyExitScore/EarlyExitMinCount: stop trying further strategies once
	// the running best clears both.
	EarlyExitScore    float64
	EarlyExitMinCount int

	// MinAcceptScore: best results below this are still returned, but
	// flagged as partial quality for human review.
	MinAcceptScore float64
}

// DefaultSelectorConfig returns the stock thresholds.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		EarlyExitScore:    0.9,
		EarlyExitMinCount: 10,
		MinAcceptScore:    0.5,
	}
}

// Diagnostics records how selection went, for the caller's review queue.
type Diagnostics struct {
	Scores         map[string]float64 `json:"strategy_scores"`
	Failures       map[string]string  `json:"strategy_failures,omitempty"`
	Selected       string             `json:"selected_strategy,omitempty"`
	PartialQuality bool               `json:"partial_quality,omitempty"`
}

// Selector runs the strategy chain in fixed priority order and keeps the
// best-scoring result. Strategies run strictly sequentially; the early-exit
// check is what makes the common case (a clean Standard parse) cheap.
type Selector struct {
	cfg        SelectorConfig
	strategies []Strategy
	log        zerolog.Logger
}

// NewSelector builds the default chain:
// Standard -> Flexible -> Adaptive -> BruteForce.
func NewSelector(cfg SelectorConfig, log zerolog.Logger) *Selector {
	return NewSelectorWithStrategies(cfg, log,
		Standard{}, Flexible{}, Adaptive{}, BruteForce{})
}

// NewSelectorWithStrategies builds a selector over an explicit chain.
// Priority is the argument order.
func NewSelectorWithStrategies(cfg SelectorConfig, log zerolog.Logger, strategies ...Strategy) *Selector {
	return &Selector{cfg: cfg, strategies: strategies, log: log}
}

// Run executes the chain and returns the winning result. A strategy that
// errors (or panics) is recorded in diagnostics and the chain continues;
// only a fully failed chain returns ErrAllStrategiesFailed.
func (s *Selector) Run(text string, rs rules.RuleSet) (Result, Diagnostics, error) {
	diag := Diagnostics{
		Scores:   make(map[string]float64, len(s.strategies)),
		Failures: make(map[string]string),
	}

	var best Result
	bestScore := 0.0

	for _, strat := range s.strategies {
		res, err := runStrategy(strat, text, rs)
		if err != nil {
			diag.Failures[strat.Name()] = err.Error()
			diag.Scores[strat.Name()] = 0
			s.log.Debug().Str("strategy", strat.Name()).Err(err).Msg("strategy failed")
			continue
		}

		score := Score(res.Transactions, text)
		diag.Scores[strat.Name()] = score
		s.log.Debug().
			Str("strategy", strat.Name()).
			Float64("score", score).
			Int("rows", len(res.Transactions)).
			Msg("strategy scored")

		// Strictly greater keeps earlier (higher-priority) strategies on ties.
		if score > bestScore {
			best = res
			bestScore = score
			diag.Selected = strat.Name()
		}

		if bestScore >= s.cfg.EarlyExitScore && len(best.Transactions) > s.cfg.EarlyExitMinCount {
			break
		}
	}

	if bestScore == 0 {
		return Result{}, diag, fmt.Errorf("%w: %v", ErrAllStrategiesFailed, diag.Failures)
	}
	if bestScore < s.cfg.MinAcceptScore {
		diag.PartialQuality = true
		s.log.Warn().
			Str("strategy", diag.Selected).
			Float64("score", bestScore).
			Msg("best strategy below completion threshold")
	}
	return best, diag, nil
}

// runStrategy isolates a strategy call: a panic inside a pattern is treated
// as that strategy's failure, never as control flow.
func runStrategy(strat Strategy, text string, rs rules.RuleSet) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", strat.Name(), r)
		}
	}()
	return strat.Extract(text, rs)
}
