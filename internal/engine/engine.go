// Package engine wires the parse pipeline: classification, rule resolution,
// extraction, normalization, reconciliation and installment matching run as
// ordered steps over shared state, and the result is a single Report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerline/statement-engine/internal/classify"
	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/extract"
	"github.com/ledgerline/statement-engine/internal/logger"
	"github.com/ledgerline/statement-engine/internal/msi"
	"github.com/ledgerline/statement-engine/internal/normalize"
	"github.com/ledgerline/statement-engine/internal/reconcile"
	"github.com/ledgerline/statement-engine/internal/rules"
)

// ErrEmptyText means the caller handed over a blank statement. There is
// nothing to parse and no report is produced.
var ErrEmptyText = errors.New("statement text is empty")

// Config aggregates the tunables of every pipeline stage.
type Config struct {
	Selector   extract.SelectorConfig
	Normalizer normalize.Config
	Reconciler reconcile.Config
	Matcher    msi.Config
}

// DefaultConfig returns the stock settings for all stages.
func DefaultConfig() Config {
	return Config{
		Selector:   extract.DefaultSelectorConfig(),
		Normalizer: normalize.DefaultConfig(),
		Reconciler: reconcile.DefaultConfig(),
		Matcher:    msi.DefaultConfig(),
	}
}

// Input is one parse request. Hints are optional: a set BankHint skips bank
// detection for rule resolution, and an AccountTypeHint other than UNKNOWN
// overrides the detected account type. Advisory carries an external
// classification that competes with the text heuristic on confidence.
type Input struct {
	Text            string                    `json:"text"`
	Account         domain.AccountMetadata    `json:"account"`
	KnownProfile    classify.KnownProfile     `json:"-"`
	Advisory        *classify.Advisory        `json:"advisory,omitempty"`
	BankHint        string                    `json:"bank_hint,omitempty"`
	AccountTypeHint domain.AccountType        `json:"account_type_hint,omitempty"`
	Invoices        []domain.InvoiceCandidate `json:"invoices,omitempty"`

	// PeriodStart/PeriodEnd override the installment-candidate window that
	// is otherwise inferred from transaction dates. Both must be set.
	PeriodStart civil.Date `json:"period_start,omitempty"`
	PeriodEnd   civil.Date `json:"period_end,omitempty"`
}

// Report is the full outcome of one parse run.
type Report struct {
	RunID          string                        `json:"run_id"`
	Bank           string                        `json:"bank,omitempty"`
	AccountType    domain.AccountType            `json:"account_type"`
	Transactions   []domain.Transaction          `json:"transactions"`
	Summary        domain.StatementSummary       `json:"summary"`
	Matches        []domain.MatchResult          `json:"installment_matches,omitempty"`
	ProfileUpdates []domain.AccountProfileUpdate `json:"profile_updates,omitempty"`
	Diagnostics    Diagnostics                   `json:"diagnostics"`
}

// Diagnostics collects the non-fatal signals a reviewer needs to judge the
// parse without re-running it.
type Diagnostics struct {
	Extraction       extract.Diagnostics `json:"extraction"`
	Classification   classify.Result     `json:"classification"`
	DroppedRows      int                 `json:"dropped_rows"`
	AmbiguousMatches int                 `json:"ambiguous_matches"`
	DurationMS       int64               `json:"duration_ms"`
}

// Engine is a reusable parse pipeline. It holds no per-run state; one Engine
// can serve any number of Parse calls.
type Engine struct {
	cfg      Config
	provider *rules.Provider
	log      zerolog.Logger
}

// New builds an engine with the embedded bank overrides.
func New(cfg Config, log zerolog.Logger) (*Engine, error) {
	provider, err := rules.NewProvider()
	if err != nil {
		return nil, fmt.Errorf("engine: loading bank rules: %w", err)
	}
	return &Engine{cfg: cfg, provider: provider, log: log}, nil
}

// state is the shared scratch space the steps pass along, in the order the
// pipeline runs them.
type state struct {
	input    Input
	runID    string
	rawLines []string

	classification classify.Result
	bank           string
	accountType    domain.AccountType
	updates        []domain.AccountProfileUpdate

	rules       rules.RuleSet
	extracted   extract.Result
	extractDiag extract.Diagnostics

	stated  normalize.Result
	txs     []domain.Transaction
	dropped int

	summary domain.StatementSummary
	matches []domain.MatchResult
}

type step interface {
	name() string
	execute(ctx context.Context, st *state) error
}

// Parse runs the full pipeline over one statement. Only an empty input or a
// fully failed extraction is fatal; everything else degrades into
// diagnostics on the report.
func (e *Engine) Parse(ctx context.Context, input Input) (Report, error) {
	if strings.TrimSpace(input.Text) == "" {
		return Report{}, ErrEmptyText
	}

	started := time.Now()
	st := &state{
		input:    input,
		runID:    uuid.NewString(),
		rawLines: extract.Lines(input.Text),
	}

	log := logger.ForComponent(e.log, "engine").With().Str("run_id", st.runID).Logger()
	ctx = logger.WithContext(ctx, log)
	log.Info().Int("lines", len(st.rawLines)).Msg("parse started")

	steps := []step{
		&classifyStep{},
		&resolveRulesStep{provider: e.provider},
		&extractStep{cfg: e.cfg.Selector},
		&normalizeStep{cfg: e.cfg.Normalizer},
		&reconcileStep{cfg: e.cfg.Reconciler},
		&matchInstallmentsStep{cfg: e.cfg.Matcher},
	}
	for _, s := range steps {
		if err := s.execute(ctx, st); err != nil {
			log.Error().Str("step", s.name()).Err(err).Msg("parse failed")
			return e.report(st, started), fmt.Errorf("engine: %s: %w", s.name(), err)
		}
	}

	rep := e.report(st, started)
	log.Info().
		Int("transactions", len(rep.Transactions)).
		Str("bank", rep.Bank).
		Str("status", string(rep.Summary.Status)).
		Msg("parse finished")
	return rep, nil
}

func (e *Engine) report(st *state, started time.Time) Report {
	ambiguous := 0
	for _, m := range st.matches {
		if m.Ambiguous {
			ambiguous++
		}
	}
	return Report{
		RunID:          st.runID,
		Bank:           st.bank,
		AccountType:    st.accountType,
		Transactions:   st.txs,
		Summary:        st.summary,
		Matches:        st.matches,
		ProfileUpdates: st.updates,
		Diagnostics: Diagnostics{
			Extraction:       st.extractDiag,
			Classification:   st.classification,
			DroppedRows:      st.dropped,
			AmbiguousMatches: ambiguous,
			DurationMS:       time.Since(started).Milliseconds(),
		},
	}
}
