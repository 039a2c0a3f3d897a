// Package reveal drives the staged reveal: for each stage of a plan it loads
// the previous stage's record, seeds the allocation with a block hash,
// checks the outcome against the plan and persists a new record.
package reveal

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/archive"
	"github.com/lox/beaconmixer/internal/chain"
	"github.com/lox/beaconmixer/internal/plan"
	"github.com/lox/beaconmixer/internal/record"
)

// Runner executes the stages of a plan strictly one after another.
type Runner struct {
	plan    *plan.Plan
	opts    beacon.Options
	source  chain.Source
	archive *archive.Archive
	clock   quartz.Clock
	logger  *log.Logger
	runID   string
}

// Option configures a Runner.
type Option func(*Runner)

// WithArchive records every completed stage in a.
func WithArchive(a *archive.Archive) Option {
	return func(r *Runner) { r.archive = a }
}

// WithClock overrides the clock used for record timestamps.
func WithClock(c quartz.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// Result describes a completed stage.
type Result struct {
	Stage  plan.Stage
	Block  chain.Block
	Path   string
	Record *record.Record
	Counts beacon.Counts
}

// NewRunner validates p and prepares a runner.
func NewRunner(p *plan.Plan, source chain.Source, logger *log.Logger, options ...Option) (*Runner, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	opts, err := p.ShuffleOptions()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		plan:   p,
		opts:   opts,
		source: source,
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("reveal"),
	}
	for _, o := range options {
		o(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	return r, nil
}

// RunID identifies every record this runner writes.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes the stages from the one labelled from (the first when empty)
// through the end of the plan. The first failure stops the pipeline;
// records already written are left in place.
func (r *Runner) Run(ctx context.Context, from string) ([]*Result, error) {
	start := 0
	if from != "" {
		start = r.plan.StageIndex(from)
		if start < 0 {
			return nil, fmt.Errorf("unknown stage %q", from)
		}
	}

	var results []*Result
	for _, stage := range r.plan.Stages[start:] {
		res, err := r.RunStage(ctx, stage.Label)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RunStage executes a single stage.
func (r *Runner) RunStage(ctx context.Context, label string) (*Result, error) {
	idx := r.plan.StageIndex(label)
	if idx < 0 {
		return nil, fmt.Errorf("unknown stage %q", label)
	}
	stage := r.plan.Stages[idx]
	logger := r.logger.With("stage", stage.Label)

	prev, err := r.previous(idx)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", stage.Label, err)
	}

	ref, err := stage.BlockRef()
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", stage.Label, err)
	}
	logger.Info("Fetching seed block", "block", ref)

	block, err := r.source.BlockByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, chain.ErrBlockNotFound) && !ref.Latest {
			r.logLatest(ctx, logger)
		}
		return nil, fmt.Errorf("stage %s: %w", stage.Label, err)
	}
	logger.Info("Using seed", "block", block.Number, "hash", block.Hash)

	tokens, err := Apply(block.Hash, prev, stage, r.opts)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", stage.Label, err)
	}
	counts := tokens.Counts()
	if err := beacon.CheckCounts(stage.Label, tokens, r.plan.Targets(idx)); err != nil {
		return nil, err
	}

	rec := record.New(tokens, block.Hash, block.Number, r.clock.Now())
	rec.RunID = r.runID
	rec.Stage = stage.Label

	path := r.plan.RecordPath(stage.Label)
	if err := record.Save(path, rec); err != nil {
		return nil, fmt.Errorf("stage %s: %w", stage.Label, err)
	}

	if r.archive != nil {
		seq, err := r.archive.Append(archive.Entry{
			RunID:       r.runID,
			Stage:       stage.Label,
			BlockHash:   block.Hash,
			BlockNumber: block.Number,
			Counts:      counts,
			Record:      path,
			Digest:      record.Fingerprint(tokens),
			CreatedAt:   r.clock.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Label, err)
		}
		logger.Debug("Archived stage run", "seq", seq)
	}

	logger.Info("Stage complete",
		"path", path,
		"assigned", counts.Assigned(),
		"remaining", counts[beacon.Unassigned])

	return &Result{
		Stage:  stage,
		Block:  *block,
		Path:   path,
		Record: rec,
		Counts: counts,
	}, nil
}

// previous returns the collection a stage starts from: all unassigned for
// the first stage, otherwise the checked record of the stage before it.
func (r *Runner) previous(idx int) (beacon.Tokens, error) {
	if idx == 0 {
		return beacon.NewTokens(r.plan.Collection.Size), nil
	}

	before := r.plan.Stages[idx-1]
	path := r.plan.RecordPath(before.Label)
	rec, err := record.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading previous stage %s: %w", before.Label, err)
	}
	tokens, err := rec.Check()
	if err != nil {
		return nil, fmt.Errorf("previous stage %s: %w", before.Label, err)
	}
	if err := beacon.CheckCounts(before.Label, tokens, r.plan.Targets(idx-1)); err != nil {
		return nil, fmt.Errorf("previous stage %s: %w", before.Label, err)
	}
	return tokens, nil
}

// logLatest helps the operator pick a block that exists.
func (r *Runner) logLatest(ctx context.Context, logger *log.Logger) {
	latest, err := r.source.BlockByRef(ctx, chain.Latest)
	if err != nil {
		logger.Warn("Could not fetch latest block", "error", err)
		return
	}
	logger.Error("Requested block not found", "latest", latest.Number)
}

// Apply computes a stage outcome from the previous collection. It is the
// pure part of a stage, shared with verification.
func Apply(seed string, prev beacon.Tokens, stage plan.Stage, opts beacon.Options) (beacon.Tokens, error) {
	tier, err := stage.TierValue()
	if err != nil {
		return nil, err
	}
	tokens, err := beacon.AllocateWith(seed, prev, stage.Quantity, tier, opts)
	if err != nil {
		return nil, err
	}
	if stage.Remainder == "" {
		return tokens, nil
	}
	rem, err := stage.RemainderValue()
	if err != nil {
		return nil, err
	}
	return beacon.FillUnknown(tokens, rem)
}
