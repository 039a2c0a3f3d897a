package beacon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		input   string
		want    Tier
		wantErr bool
	}{
		{input: "unknown", want: Unassigned},
		{input: "Standard", want: Standard},
		{input: "Rare", want: Rare},
		{input: "Mythic", want: Mythic},
		{input: "Ultra", want: Ultra},
		{input: "ultra", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestTierJSON(t *testing.T) {
	data, err := json.Marshal([]Tier{Unassigned, Mythic})
	require.NoError(t, err)
	assert.JSONEq(t, `["unknown","Mythic"]`, string(data))

	var back []Tier
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Tier{Unassigned, Mythic}, back)

	assert.Error(t, json.Unmarshal([]byte(`["Legendary"]`), &back))
}

func TestCounts(t *testing.T) {
	tokens := Tokens{Unassigned, Standard, Standard, Rare, Ultra}
	counts := tokens.Counts()

	assert.Equal(t, Counts{Unassigned: 1, Standard: 2, Rare: 1, Ultra: 1}, counts)
	assert.Equal(t, 5, counts.Total())
	assert.Equal(t, 4, counts.Assigned())
	assert.Equal(t, 1, tokens.Unassigned())
}
