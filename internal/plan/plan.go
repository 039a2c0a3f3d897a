// Package plan loads the reveal plan: the collection size and the ordered
// stages that give each tier its tokens.
package plan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/chain"
)

// Plan represents a complete reveal plan
type Plan struct {
	Collection CollectionSettings `hcl:"collection,block"`
	Shuffle    *ShuffleSettings   `hcl:"shuffle,block"`
	Stages     []Stage            `hcl:"stage,block"`
}

// CollectionSettings describes the token collection and where stage output
// goes.
type CollectionSettings struct {
	Size      int    `hcl:"size"`
	OutputDir string `hcl:"output_dir,optional"`
	Archive   string `hcl:"archive,optional"`
}

// ShuffleSettings tunes the seeded permutation.
type ShuffleSettings struct {
	Passes    int    `hcl:"passes,optional"`
	Reduction string `hcl:"reduction,optional"`
}

// Stage allocates one tier. Remainder, when set, fills every token still
// unassigned after the allocation.
type Stage struct {
	Label     string `hcl:"label,label"`
	Tier      string `hcl:"tier"`
	Quantity  int    `hcl:"quantity"`
	Block     string `hcl:"block,optional"`
	Remainder string `hcl:"remainder,optional"`
}

const (
	defaultOutputDir = "reveal"
	recordSuffix     = "_Reveal.json"
)

// DefaultPlan returns the plan used for the 47895-token beacon collection.
// It uses cursor reduction; the published records of that collection can
// only be reproduced with Reduction set to "pool".
func DefaultPlan() *Plan {
	return &Plan{
		Collection: CollectionSettings{
			Size:      47895,
			OutputDir: defaultOutputDir,
		},
		Shuffle: &ShuffleSettings{
			Passes:    beacon.DefaultPasses,
			Reduction: beacon.ReduceCursor.String(),
		},
		Stages: []Stage{
			{Label: "Standard", Tier: "Standard", Quantity: 25619, Block: "14497878"},
			{Label: "Rare", Tier: "Rare", Quantity: 13651, Block: "latest"},
			{Label: "Final", Tier: "Mythic", Quantity: 6439, Block: "latest", Remainder: "Ultra"},
		},
	}
}

// Load loads a plan from an HCL file. A missing file yields DefaultPlan.
func Load(filename string) (*Plan, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultPlan(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and applies defaults.
func Parse(src []byte, filename string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var p Plan
	diags = gohcl.DecodeBody(file.Body, nil, &p)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if p.Collection.OutputDir == "" {
		p.Collection.OutputDir = defaultOutputDir
	}
	if p.Shuffle == nil {
		p.Shuffle = &ShuffleSettings{}
	}
	if p.Shuffle.Passes == 0 {
		p.Shuffle.Passes = beacon.DefaultPasses
	}
	if p.Shuffle.Reduction == "" {
		p.Shuffle.Reduction = beacon.ReduceCursor.String()
	}
	for i := range p.Stages {
		if p.Stages[i].Block == "" {
			p.Stages[i].Block = "latest"
		}
	}

	return &p, nil
}

// Validate validates the plan
func (p *Plan) Validate() error {
	if p.Collection.Size <= 0 {
		return fmt.Errorf("collection size must be positive, got %d", p.Collection.Size)
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("at least one stage must be configured")
	}
	if _, err := p.ShuffleOptions(); err != nil {
		return err
	}

	labels := make(map[string]bool)
	tiers := make(map[beacon.Tier]string)
	claim := func(stage string, tier beacon.Tier) error {
		if prev, ok := tiers[tier]; ok {
			return fmt.Errorf("stage %s: tier %s already allocated by stage %s", stage, tier, prev)
		}
		tiers[tier] = stage
		return nil
	}

	allocated := 0
	for i, stage := range p.Stages {
		if stage.Label == "" {
			return fmt.Errorf("stage %d: label must not be empty", i+1)
		}
		if labels[stage.Label] {
			return fmt.Errorf("stage %s: duplicate label", stage.Label)
		}
		labels[stage.Label] = true

		tier, err := stage.TierValue()
		if err != nil {
			return err
		}
		if err := claim(stage.Label, tier); err != nil {
			return err
		}
		if stage.Quantity < 0 {
			return fmt.Errorf("stage %s: quantity must not be negative", stage.Label)
		}
		allocated += stage.Quantity
		if allocated > p.Collection.Size {
			return fmt.Errorf("stage %s: %d tokens allocated but the collection only has %d", stage.Label, allocated, p.Collection.Size)
		}
		if _, err := chain.ParseBlockRef(stage.Block); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Label, err)
		}

		if stage.Remainder != "" {
			if i != len(p.Stages)-1 {
				return fmt.Errorf("stage %s: only the last stage may fill the remainder", stage.Label)
			}
			rem, err := stage.RemainderValue()
			if err != nil {
				return err
			}
			if err := claim(stage.Label, rem); err != nil {
				return err
			}
		}
	}

	return nil
}

// ShuffleOptions converts the shuffle block into permutation options.
func (p *Plan) ShuffleOptions() (beacon.Options, error) {
	opts := beacon.DefaultOptions()
	if p.Shuffle == nil {
		return opts, nil
	}
	if p.Shuffle.Passes < 0 {
		return opts, fmt.Errorf("shuffle passes must be positive, got %d", p.Shuffle.Passes)
	}
	if p.Shuffle.Passes > 0 {
		opts.Passes = p.Shuffle.Passes
	}
	r, err := beacon.ParseReduction(p.Shuffle.Reduction)
	if err != nil {
		return opts, err
	}
	opts.Reduction = r
	return opts, nil
}

// StageIndex returns the position of the stage with label, or -1.
func (p *Plan) StageIndex(label string) int {
	for i, s := range p.Stages {
		if s.Label == label {
			return i
		}
	}
	return -1
}

// RecordPath returns where the record of the stage with label is written.
func (p *Plan) RecordPath(label string) string {
	return filepath.Join(p.Collection.OutputDir, label+recordSuffix)
}

// Targets returns the per-tier counts the collection must hold once stage
// idx has completed.
func (p *Plan) Targets(idx int) beacon.Counts {
	var want beacon.Counts
	assigned := 0
	for _, stage := range p.Stages[:idx+1] {
		tier, _ := stage.TierValue()
		want[tier] += stage.Quantity
		assigned += stage.Quantity
	}
	remaining := p.Collection.Size - assigned

	if p.Stages[idx].Remainder != "" {
		rem, _ := p.Stages[idx].RemainderValue()
		want[rem] += remaining
		remaining = 0
	}
	want[beacon.Unassigned] = remaining
	return want
}

// TierValue parses the stage tier.
func (s Stage) TierValue() (beacon.Tier, error) {
	return concreteTier(s.Label, "tier", s.Tier)
}

// RemainderValue parses the remainder tier.
func (s Stage) RemainderValue() (beacon.Tier, error) {
	return concreteTier(s.Label, "remainder", s.Remainder)
}

// BlockRef parses the stage block selector.
func (s Stage) BlockRef() (chain.BlockRef, error) {
	return chain.ParseBlockRef(s.Block)
}

func concreteTier(stage, field, value string) (beacon.Tier, error) {
	tier, err := beacon.ParseTier(value)
	if err != nil {
		return beacon.Unassigned, fmt.Errorf("stage %s: %s: %w", stage, field, err)
	}
	if !tier.Concrete() {
		return beacon.Unassigned, fmt.Errorf("stage %s: %s must be a concrete beacon type", stage, field)
	}
	return tier, nil
}
