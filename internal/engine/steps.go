package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/ledgerline/statement-engine/internal/classify"
	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/extract"
	"github.com/ledgerline/statement-engine/internal/logger"
	"github.com/ledgerline/statement-engine/internal/msi"
	"github.com/ledgerline/statement-engine/internal/normalize"
	"github.com/ledgerline/statement-engine/internal/reconcile"
	"github.com/ledgerline/statement-engine/internal/rules"
)

// classifyStep detects the bank and account type, overlays the caller's
// advisory classification and hints, and records profile updates for
// high-confidence disagreements.
type classifyStep struct{}

func (s *classifyStep) name() string { return "classify" }

func (s *classifyStep) execute(ctx context.Context, st *state) error {
	st.classification = classify.Merge(classify.Classify(st.input.Text), st.input.Advisory)

	st.bank = st.input.BankHint
	if st.bank == "" {
		st.bank = st.classification.BankID
	}
	st.accountType = st.input.AccountTypeHint
	if st.accountType == "" || st.accountType == domain.UnknownType {
		st.accountType = st.classification.AccountType
	}

	st.updates = classify.ProfileUpdates(st.input.Account, st.input.KnownProfile, st.classification)

	log := logger.FromContext(ctx)
	log.Debug().
		Str("bank", st.bank).
		Str("account_type", string(st.accountType)).
		Float64("bank_confidence", st.classification.BankConfidence).
		Msg("statement classified")
	return nil
}

// resolveRulesStep merges the base rule set with the bank's overrides.
type resolveRulesStep struct {
	provider *rules.Provider
}

func (s *resolveRulesStep) name() string { return "resolve_rules" }

func (s *resolveRulesStep) execute(ctx context.Context, st *state) error {
	st.rules = s.provider.Resolve(st.bank)
	return nil
}

// extractStep runs the strategy chain. A fully failed chain is the one
// fatal error the pipeline produces after input validation.
type extractStep struct {
	cfg extract.SelectorConfig
}

func (s *extractStep) name() string { return "extract" }

func (s *extractStep) execute(ctx context.Context, st *state) error {
	sel := extract.NewSelector(s.cfg, logger.ForComponent(logger.FromContext(ctx), "extract"))
	res, diag, err := sel.Run(st.input.Text, st.rules)
	st.extractDiag = diag
	if err != nil {
		return err
	}
	st.extracted = res
	return nil
}

// normalizeStep merges continuation lines, classifies directions, drops
// noise and deduplicates. Transactions get their refs here, before anything
// downstream needs to point at them.
type normalizeStep struct {
	cfg normalize.Config
}

func (s *normalizeStep) name() string { return "normalize" }

func (s *normalizeStep) execute(ctx context.Context, st *state) error {
	merged := normalize.MergeContinuations(st.extracted, st.rawLines, st.rules)
	st.stated = normalize.Normalize(merged, st.rules, s.cfg)
	st.txs = st.stated.Transactions
	st.dropped = st.stated.Dropped

	if st.stated.OpeningBalance == nil || st.stated.ClosingBalance == nil {
		opening, closing := normalize.StatedBalances(st.rawLines, st.rules)
		if st.stated.OpeningBalance == nil {
			st.stated.OpeningBalance = opening
		}
		if st.stated.ClosingBalance == nil {
			st.stated.ClosingBalance = closing
		}
	}

	for i := range st.txs {
		st.txs[i].Ref = uuid.NewString()
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Int("transactions", len(st.txs)).
		Int("dropped", st.dropped).
		Msg("normalization done")
	return nil
}

// reconcileStep aggregates totals and checks them against the statement
// balances. Mismatches are advisory and land on the summary, not here.
type reconcileStep struct {
	cfg reconcile.Config
}

func (s *reconcileStep) name() string { return "reconcile" }

func (s *reconcileStep) execute(ctx context.Context, st *state) error {
	stated := reconcile.StatedBalances{
		Opening: st.stated.OpeningBalance,
		Closing: st.stated.ClosingBalance,
	}
	st.summary = reconcile.Summarize(st.txs, stated, s.cfg, logger.FromContext(ctx))
	st.summary.DetectedBank = st.bank
	return nil
}

// matchInstallmentsStep links credit-card charges to invoice candidates.
// It only runs for credit-card accounts; installment plans do not exist on
// checking accounts.
type matchInstallmentsStep struct {
	cfg msi.Config
}

func (s *matchInstallmentsStep) name() string { return "match_installments" }

func (s *matchInstallmentsStep) execute(ctx context.Context, st *state) error {
	if !classify.MSIEligible(st.accountType) || len(st.input.Invoices) == 0 {
		return nil
	}
	matcher := msi.NewMatcher(st.input.Invoices, s.cfg, logger.ForComponent(logger.FromContext(ctx), "msi"))
	if st.input.PeriodStart.IsValid() && st.input.PeriodEnd.IsValid() {
		st.matches = matcher.MatchPeriod(st.txs, st.input.PeriodStart, st.input.PeriodEnd)
	} else {
		st.matches = matcher.Match(st.txs)
	}
	return nil
}
