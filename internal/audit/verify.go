// Package audit lets anyone holding the stage records confirm a reveal:
// every stage is recomputed from its predecessor and recorded seed, and the
// spread of each tier across the collection is tested for uniformity.
package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/plan"
	"github.com/lox/beaconmixer/internal/record"
	"github.com/lox/beaconmixer/internal/reveal"
)

// StageReport is the verification outcome of one stage.
type StageReport struct {
	Stage       string
	BlockNumber uint64
	BlockHash   string
	Counts      beacon.Counts
	// Mismatches counts tokens whose recorded tier differs from the
	// recomputed one; FirstMismatch is the 1-based ID of the first of them.
	Mismatches    int
	FirstMismatch int
}

// OK reports whether the record matched the recomputation exactly.
func (r StageReport) OK() bool {
	return r.Mismatches == 0
}

// ErrMismatch is returned by VerifyChain when any stage fails to reproduce.
var ErrMismatch = errors.New("recorded stage does not match recomputation")

// LoadChain loads the records of consecutive stages, starting from the first,
// and stops at the first stage that has no record yet.
func LoadChain(p *plan.Plan) ([]*record.Record, error) {
	var records []*record.Record
	for _, stage := range p.Stages {
		rec, err := record.Load(p.RecordPath(stage.Label))
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Label, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// VerifyStage recomputes stage from prev and the seed stored in rec.
func VerifyStage(prev beacon.Tokens, rec *record.Record, stage plan.Stage, opts beacon.Options) (StageReport, error) {
	report := StageReport{
		Stage:       stage.Label,
		BlockNumber: rec.BlockNumber,
		BlockHash:   rec.BlockHash,
	}

	recorded, err := rec.Check()
	if err != nil {
		return report, err
	}
	report.Counts = recorded.Counts()

	want, err := reveal.Apply(rec.BlockHash, prev, stage, opts)
	if err != nil {
		return report, err
	}
	if len(want) != len(recorded) {
		return report, fmt.Errorf("stage %s: record holds %d tokens, expected %d", stage.Label, len(recorded), len(want))
	}

	if want.Equal(recorded) {
		return report, nil
	}
	for i := range want {
		if want[i] != recorded[i] {
			if report.Mismatches == 0 {
				report.FirstMismatch = i + 1
			}
			report.Mismatches++
		}
	}
	return report, nil
}

// VerifyChain verifies records against p. Stages are independent once their
// predecessors are on disk, so they are checked concurrently.
func VerifyChain(ctx context.Context, p *plan.Plan, records []*record.Record) ([]StageReport, error) {
	if len(records) > len(p.Stages) {
		return nil, fmt.Errorf("%d records for a %d stage plan", len(records), len(p.Stages))
	}
	opts, err := p.ShuffleOptions()
	if err != nil {
		return nil, err
	}

	reports := make([]StageReport, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			prev := beacon.NewTokens(p.Collection.Size)
			if i > 0 {
				var err error
				prev, err = records[i-1].Check()
				if err != nil {
					return fmt.Errorf("stage %s: %w", p.Stages[i-1].Label, err)
				}
			}

			report, err := VerifyStage(prev, rec, p.Stages[i], opts)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range reports {
		if !r.OK() {
			return reports, fmt.Errorf("stage %s: %w (%d tokens differ, first at token %d)", r.Stage, ErrMismatch, r.Mismatches, r.FirstMismatch)
		}
	}
	return reports, nil
}
