package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/chain"
)

const samplePlan = `
collection {
  size       = 1500
  output_dir = "out"
}

shuffle {
  reduction = "pool"
}

stage "Standard" {
  tier     = "Standard"
  quantity = 999
  block    = 14497878
}

stage "Rare" {
  tier     = "Rare"
  quantity = 301
}

stage "Final" {
  tier      = "Mythic"
  quantity  = 125
  block     = "0xdd3900"
  remainder = "Ultra"
}
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePlan), "plan.hcl")
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	assert.Equal(t, 1500, p.Collection.Size)
	assert.Equal(t, "out", p.Collection.OutputDir)
	require.Len(t, p.Stages, 3)
	assert.Equal(t, "14497878", p.Stages[0].Block)
	assert.Equal(t, "latest", p.Stages[1].Block)

	opts, err := p.ShuffleOptions()
	require.NoError(t, err)
	assert.Equal(t, beacon.Options{Passes: beacon.DefaultPasses, Reduction: beacon.ReducePool}, opts)

	ref, err := p.Stages[2].BlockRef()
	require.NoError(t, err)
	assert.Equal(t, chain.Number(0xdd3900), ref)

	assert.Equal(t, filepath.Join("out", "Rare_Reveal.json"), p.RecordPath("Rare"))
	assert.Equal(t, 1, p.StageIndex("Rare"))
	assert.Equal(t, -1, p.StageIndex("Epic"))
}

func TestTargets(t *testing.T) {
	p := DefaultPlan()
	require.NoError(t, p.Validate())

	assert.Equal(t, beacon.Counts{beacon.Unassigned: 22276, beacon.Standard: 25619}, p.Targets(0))
	assert.Equal(t, beacon.Counts{beacon.Unassigned: 8625, beacon.Standard: 25619, beacon.Rare: 13651}, p.Targets(1))
	assert.Equal(t, beacon.Counts{
		beacon.Standard: 25619,
		beacon.Rare:     13651,
		beacon.Mythic:   6439,
		beacon.Ultra:    2186,
	}, p.Targets(2))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Plan)
		errMsg string
	}{
		{
			name:   "empty collection",
			mutate: func(p *Plan) { p.Collection.Size = 0 },
			errMsg: "collection size",
		},
		{
			name:   "no stages",
			mutate: func(p *Plan) { p.Stages = nil },
			errMsg: "at least one stage",
		},
		{
			name:   "over allocation",
			mutate: func(p *Plan) { p.Stages[1].Quantity = 30000 },
			errMsg: "only has 47895",
		},
		{
			name:   "repeated tier",
			mutate: func(p *Plan) { p.Stages[1].Tier = "Standard" },
			errMsg: "already allocated",
		},
		{
			name:   "remainder repeats tier",
			mutate: func(p *Plan) { p.Stages[2].Remainder = "Rare" },
			errMsg: "already allocated",
		},
		{
			name:   "remainder before last stage",
			mutate: func(p *Plan) { p.Stages[0].Remainder = "Ultra" },
			errMsg: "only the last stage",
		},
		{
			name:   "unassigned tier",
			mutate: func(p *Plan) { p.Stages[0].Tier = "unknown" },
			errMsg: "concrete",
		},
		{
			name:   "duplicate label",
			mutate: func(p *Plan) { p.Stages[1].Label = "Standard" },
			errMsg: "duplicate label",
		},
		{
			name:   "bad block",
			mutate: func(p *Plan) { p.Stages[0].Block = "yesterday" },
			errMsg: "invalid block",
		},
		{
			name:   "bad reduction",
			mutate: func(p *Plan) { p.Shuffle.Reduction = "xor" },
			errMsg: "unknown reduction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPlan()
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	p, err := Load(filepath.Join(dir, "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlan(), p)

	path := filepath.Join(dir, "plan.hcl")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o644))
	p, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1500, p.Collection.Size)

	require.NoError(t, os.WriteFile(path, []byte(`collection {`), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse HCL")
}

func TestSampleRevealPlan(t *testing.T) {
	p, err := Load(filepath.Join("..", "..", "reveal.hcl"))
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	def := DefaultPlan()
	assert.Equal(t, def.Collection.Size, p.Collection.Size)
	assert.Equal(t, def.Stages, p.Stages)

	opts, err := p.ShuffleOptions()
	require.NoError(t, err)
	assert.Equal(t, beacon.DefaultOptions(), opts)

	p.Shuffle.Reduction = "pool"
	opts, err = p.ShuffleOptions()
	require.NoError(t, err)
	assert.Equal(t, beacon.ReducePool, opts.Reduction)
}
