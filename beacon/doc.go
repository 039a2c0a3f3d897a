// Package beacon allocates rarity tiers ("beacon types") to a fixed token
// collection from a publicly verifiable seed, one tier per reveal stage.
//
// The main entry point is Allocate, which picks exactly quantity of the
// still-unassigned tokens and gives them a tier. Everything else stays put,
// so each stage only ever relabels tokens that were unassigned.
//
// # Basic Usage
//
//	tokens := beacon.NewTokens(47895)
//	tokens, err := beacon.Allocate(blockHash, tokens, 25619, beacon.Standard)
//	if err != nil {
//	    return err
//	}
//	// ...later stages...
//	tokens, err = beacon.FillUnknown(tokens, beacon.Ultra)
//
// # Determinism
//
// The outcome is a pure function of the seed, the pool size and the starting
// arrangement. The permutation is driven by keccak256 over the ABI encoding
// of the seed and a cursor, so anyone holding the block hash can replay a
// stage. See Permuter for the exact derivation.
package beacon
