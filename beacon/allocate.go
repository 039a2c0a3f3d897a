package beacon

// Allocate assigns tier to exactly quantity of the unassigned tokens, chosen
// by a permutation seeded with seed. Assigned tokens keep their position and
// label. The input is never modified.
func Allocate(seed string, tokens Tokens, quantity int, tier Tier) (Tokens, error) {
	return AllocateWith(seed, tokens, quantity, tier, DefaultOptions())
}

// AllocateWith is Allocate with explicit permutation options.
func AllocateWith(seed string, tokens Tokens, quantity int, tier Tier, opts Options) (Tokens, error) {
	pool := tokens.Unassigned()
	if err := validate(tokens, pool, quantity, tier); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, &ValidationError{Tier: tier, Quantity: quantity, Pool: pool, Reason: err.Error()}
	}

	// Candidate pool: the new tier first, then filler for later stages.
	candidates := make(Tokens, pool)
	for i := range quantity {
		candidates[i] = tier
	}

	NewPermuter(seed, opts).Permute(candidates)
	return merge(tokens, candidates), nil
}

// FillUnknown gives every unassigned token tier. Applying it twice is the
// same as applying it once.
func FillUnknown(tokens Tokens, tier Tier) (Tokens, error) {
	if !tier.Concrete() {
		return nil, &ValidationError{Tier: tier, Pool: tokens.Unassigned(), Reason: "fill tier must be a concrete beacon type"}
	}
	out := tokens.Clone()
	for i, v := range out {
		if v == Unassigned {
			out[i] = tier
		}
	}
	return out, nil
}

func validate(tokens Tokens, pool, quantity int, tier Tier) error {
	fail := func(reason string) error {
		return &ValidationError{Tier: tier, Quantity: quantity, Pool: pool, Reason: reason}
	}
	switch {
	case !tier.Concrete():
		return fail("tier must be a concrete beacon type")
	case quantity < 0:
		return fail("quantity must not be negative")
	case quantity > pool:
		return fail("quantity exceeds unassigned tokens")
	}
	for _, v := range tokens {
		if v == tier {
			return fail("tier already allocated")
		}
		if !v.Valid() {
			return fail("collection holds an invalid tier")
		}
	}
	return nil
}

// merge walks tokens in order, handing the next pool entry to every
// unassigned slot.
func merge(tokens, pool Tokens) Tokens {
	out := make(Tokens, len(tokens))
	next := 0
	for i, v := range tokens {
		if v != Unassigned {
			out[i] = v
			continue
		}
		out[i] = pool[next]
		next++
	}
	return out
}
