package beacon

import "fmt"

// Tier is the rarity category carried by a token.
type Tier uint8

const (
	Unassigned Tier = iota
	Standard
	Rare
	Mythic
	Ultra
)

// Tiers lists the concrete tiers in reveal order.
var Tiers = []Tier{Standard, Rare, Mythic, Ultra}

var tierNames = [...]string{
	Unassigned: "unknown",
	Standard:   "Standard",
	Rare:       "Rare",
	Mythic:     "Mythic",
	Ultra:      "Ultra",
}

// String returns the label used in stage records.
func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("Tier(%d)", uint8(t))
}

// Valid reports whether t is one of the known tiers, including Unassigned.
func (t Tier) Valid() bool {
	return int(t) < len(tierNames)
}

// Concrete reports whether t is a real rarity rather than the placeholder.
func (t Tier) Concrete() bool {
	return t != Unassigned && t.Valid()
}

// ParseTier converts a record label into a Tier.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return Unassigned, fmt.Errorf("unknown beacon type %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
