package chain

import (
	"context"
	"fmt"

	"github.com/lox/beaconmixer/beacon"
)

// Static serves blocks from memory. It backs offline rehearsals where the
// operator supplies the block hash directly.
type Static struct {
	Blocks []Block
}

// BlockByRef returns the block with the requested height, or the highest one
// for Latest.
func (s *Static) BlockByRef(_ context.Context, ref BlockRef) (*Block, error) {
	var found *Block
	for i := range s.Blocks {
		b := &s.Blocks[i]
		switch {
		case ref.Latest:
			if found == nil || b.Number > found.Number {
				found = b
			}
		case b.Number == ref.Number:
			found = b
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %w: %s", beacon.ErrSourceUnavailable, ErrBlockNotFound, ref)
	}
	block := *found
	return &block, nil
}
