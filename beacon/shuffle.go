package beacon

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultPasses is the number of successive shuffles applied to every pool.
// Published reveals were produced with three passes.
const DefaultPasses = 3

// Reduction selects how a digest is folded into a swap index.
type Reduction uint8

const (
	// ReduceCursor takes the digest modulo the number of elements not yet
	// fixed, which is a textbook Fisher–Yates step.
	ReduceCursor Reduction = iota
	// ReducePool takes the digest modulo the full pool length. Reveals
	// produced by the first reveal tool used this reduction.
	ReducePool
)

func (r Reduction) String() string {
	switch r {
	case ReduceCursor:
		return "cursor"
	case ReducePool:
		return "pool"
	default:
		return fmt.Sprintf("Reduction(%d)", uint8(r))
	}
}

// ParseReduction accepts "cursor" or "pool".
func ParseReduction(s string) (Reduction, error) {
	switch s {
	case "", "cursor":
		return ReduceCursor, nil
	case "pool":
		return ReducePool, nil
	default:
		return ReduceCursor, fmt.Errorf("unknown reduction %q (want cursor or pool)", s)
	}
}

// Options tunes the permutation. Passes must be at least one; start from
// DefaultOptions.
type Options struct {
	Passes    int
	Reduction Reduction
}

// DefaultOptions returns three passes with cursor reduction.
func DefaultOptions() Options {
	return Options{Passes: DefaultPasses, Reduction: ReduceCursor}
}

// Validate reports options that cannot drive a permutation.
func (o Options) Validate() error {
	if o.Passes < 1 {
		return fmt.Errorf("passes must be at least 1, got %d", o.Passes)
	}
	if o.Reduction != ReduceCursor && o.Reduction != ReducePool {
		return fmt.Errorf("unknown reduction %s", o.Reduction)
	}
	return nil
}

// seedArguments is the ABI tuple (bytes seed, uint256 cursor) hashed for
// every cursor.
var seedArguments = abi.Arguments{
	{Type: mustType("bytes")},
	{Type: mustType("uint256")},
}

func mustType(name string) abi.Type {
	typ, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// Permuter derives a reproducible permutation from a seed string. The swap
// target for cursor i is keccak256(abi.encode(bytes(seed), uint256(hex(i))))
// reduced by the configured Reduction.
type Permuter struct {
	seed []byte
	opts Options

	buf     []byte
	cursor  big.Int
	digest  big.Int
	modulus big.Int
	rem     big.Int
}

// NewPermuter creates a permuter for one seed. Passes below one are treated
// as a single pass.
func NewPermuter(seed string, opts Options) *Permuter {
	if opts.Passes < 1 {
		opts.Passes = 1
	}
	return &Permuter{
		seed: []byte(seed),
		opts: opts,
	}
}

// Swaps returns the swap target for every cursor of a pool of n elements.
// Element k of the result is the partner of position k, applied while the
// cursor walks from n down to 1.
func (p *Permuter) Swaps(n int) []int {
	swaps := make([]int, n)
	for i := n; i > 0; i-- {
		swaps[i-1] = p.index(i, n)
	}
	return swaps
}

// index returns the swap target in [0, i) (or [0, n) for ReducePool) for
// cursor value i >= 1 over a pool of n elements.
func (p *Permuter) index(i, n int) int {
	mod := i
	if p.opts.Reduction == ReducePool {
		mod = n
	}
	p.digest.SetBytes(p.sum(i))
	p.modulus.SetInt64(int64(mod))
	p.rem.Mod(&p.digest, &p.modulus)
	return int(p.rem.Int64())
}

// Shuffle permutes n elements through swap, in the manner of rand.Shuffle.
// The swap sequence depends only on the seed and n, so it is derived once and
// replayed for every pass.
func (p *Permuter) Shuffle(n int, swap func(i, j int)) {
	if n < 2 {
		return
	}
	swaps := p.Swaps(n)
	for range p.opts.Passes {
		for i := n - 1; i >= 0; i-- {
			if j := swaps[i]; j != i {
				swap(i, j)
			}
		}
	}
}

// Permute shuffles tokens in place.
func (p *Permuter) Permute(tokens Tokens) {
	p.Shuffle(len(tokens), func(i, j int) {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	})
}

// sum hashes the ABI encoding of (bytes seed, uint256 cursor). The cursor
// word holds the ASCII characters of the even-length hex rendering of i.
func (p *Permuter) sum(i int) []byte {
	p.cursor.SetBytes(cursorDigits(i))
	enc, err := seedArguments.Pack(p.seed, &p.cursor)
	if err != nil {
		panic(fmt.Sprintf("beacon: encoding cursor %d: %v", i, err))
	}
	p.buf = enc
	return crypto.Keccak256(enc)
}

func cursorDigits(i int) []byte {
	digits := strconv.FormatInt(int64(i), 16)
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	return []byte(digits)
}
