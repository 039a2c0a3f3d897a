package main

import (
	"errors"
	"fmt"

	"github.com/lox/beaconmixer/internal/audit"
	"github.com/lox/beaconmixer/internal/display"
	"github.com/lox/beaconmixer/internal/plan"
	"github.com/lox/beaconmixer/internal/record"
)

// VerifyCmd recomputes every recorded stage.
type VerifyCmd struct{}

func (c *VerifyCmd) Run(g *Globals) error {
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	p, err := plan.Load(g.Plan)
	if err != nil {
		return err
	}
	records, err := audit.LoadChain(p)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no stage records found in %s", p.Collection.OutputDir)
	}

	reports, err := audit.VerifyChain(ctx, p, records)
	if len(reports) > 0 {
		fmt.Println(display.Verification(reports))
	}
	if err != nil {
		return err
	}
	logger.Info("All recorded stages reproduced", "stages", len(reports))
	return nil
}

// AuditCmd tests the spread of each tier in a stage record.
type AuditCmd struct {
	Stage   string  `short:"s" help:"Stage to audit (default: latest recorded)"`
	Buckets int     `default:"20" help:"Number of contiguous token ID ranges"`
	Alpha   float64 `default:"0.01" help:"Flag p-values below this threshold"`
}

func (c *AuditCmd) Run(g *Globals) error {
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	p, err := plan.Load(g.Plan)
	if err != nil {
		return err
	}
	rec, label, err := stageRecord(p, c.Stage)
	if err != nil {
		return err
	}
	tokens, err := rec.Check()
	if err != nil {
		return err
	}

	spreads, err := audit.Uniformity(tokens, c.Buckets)
	if err != nil {
		return err
	}
	fmt.Println(display.Counts(label, tokens.Counts()))
	fmt.Println(display.Spreads(spreads, c.Alpha))

	for _, s := range spreads {
		if s.PValue < c.Alpha {
			logger.Warn("Beacon type clusters in part of the collection", "beacon", s.Tier, "p_value", s.PValue)
		}
	}
	return nil
}

// stageRecord loads the record for label, or the last recorded stage when
// label is empty.
func stageRecord(p *plan.Plan, label string) (*record.Record, string, error) {
	if label != "" {
		if p.StageIndex(label) < 0 {
			return nil, "", fmt.Errorf("unknown stage %q", label)
		}
		rec, err := record.Load(p.RecordPath(label))
		if err != nil {
			return nil, "", err
		}
		return rec, label, nil
	}

	records, err := audit.LoadChain(p)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", errors.New("no stage has been revealed yet")
	}
	last := len(records) - 1
	return records[last], p.Stages[last].Label, nil
}
