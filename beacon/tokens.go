package beacon

// Tokens is an ordered token collection. Token IDs are 1-based, so the tier
// of token n lives at index n-1.
type Tokens []Tier

// NewTokens returns a collection of size unassigned tokens.
func NewTokens(size int) Tokens {
	return make(Tokens, size)
}

// Labels returns the record labels of the collection in token order.
func (t Tokens) Labels() []string {
	labels := make([]string, len(t))
	for i, tier := range t {
		labels[i] = tier.String()
	}
	return labels
}

// Count returns how many tokens carry tier.
func (t Tokens) Count(tier Tier) int {
	n := 0
	for _, v := range t {
		if v == tier {
			n++
		}
	}
	return n
}

// Unassigned returns the size of the unassigned pool.
func (t Tokens) Unassigned() int {
	return t.Count(Unassigned)
}

// Counts tallies every tier in one pass.
func (t Tokens) Counts() Counts {
	var c Counts
	for _, v := range t {
		if v.Valid() {
			c[v]++
		}
	}
	return c
}

// Clone returns an independent copy.
func (t Tokens) Clone() Tokens {
	out := make(Tokens, len(t))
	copy(out, t)
	return out
}

// Equal reports whether both collections carry the same labels in order.
func (t Tokens) Equal(other Tokens) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Counts holds a per-tier tally indexed by Tier.
type Counts [len(tierNames)]int

// Total returns the sum over all tiers, unassigned included.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Assigned returns the sum over the concrete tiers.
func (c Counts) Assigned() int {
	return c.Total() - c[Unassigned]
}
