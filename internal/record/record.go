// Package record reads and writes stage records, the JSON files that carry
// the full token list from one reveal stage to the next.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/fileutil"
)

// Record is the persisted outcome of one stage.
type Record struct {
	Datetime    string `json:"datetime"`
	BlockHash   string `json:"blockHash"`
	BlockNumber uint64 `json:"blockNumber"`
	RunID       string `json:"runId,omitempty"`
	Stage       string `json:"stage,omitempty"`

	TotalStandard *int `json:"totalStandard,omitempty"`
	TotalRare     *int `json:"totalRare,omitempty"`
	TotalMythic   *int `json:"totalMythic,omitempty"`
	TotalUltra    *int `json:"totalUltra,omitempty"`

	Tokens []Entry `json:"tokens"`
}

// Entry is one token of a record.
type Entry struct {
	TokenID int         `json:"tokenId"`
	Beacon  beacon.Tier `json:"beacon"`
}

// New builds a record for tokens. Totals are written for every tier that
// has at least one token.
func New(tokens beacon.Tokens, blockHash string, blockNumber uint64, at time.Time) *Record {
	r := &Record{
		Datetime:    FormatDatetime(at),
		BlockHash:   blockHash,
		BlockNumber: blockNumber,
		Tokens:      make([]Entry, len(tokens)),
	}
	for i, tier := range tokens {
		r.Tokens[i] = Entry{TokenID: i + 1, Beacon: tier}
	}

	counts := tokens.Counts()
	for _, tier := range beacon.Tiers {
		if n := counts[tier]; n > 0 {
			*r.total(tier) = &n
		}
	}
	return r
}

func (r *Record) total(tier beacon.Tier) **int {
	switch tier {
	case beacon.Standard:
		return &r.TotalStandard
	case beacon.Rare:
		return &r.TotalRare
	case beacon.Mythic:
		return &r.TotalMythic
	case beacon.Ultra:
		return &r.TotalUltra
	}
	return nil
}

// Collection rebuilds the ordered token collection. Token IDs must run from
// 1 without gaps.
func (r *Record) Collection() (beacon.Tokens, error) {
	tokens := make(beacon.Tokens, len(r.Tokens))
	for i, e := range r.Tokens {
		if e.TokenID != i+1 {
			return nil, fmt.Errorf("record token %d has id %d", i+1, e.TokenID)
		}
		tokens[i] = e.Beacon
	}
	return tokens, nil
}

// Totals returns the counters carried by the record. Tiers without a counter
// read as zero; unassigned is derived from the token count.
func (r *Record) Totals() beacon.Counts {
	var c beacon.Counts
	for _, tier := range beacon.Tiers {
		if p := *r.total(tier); p != nil {
			c[tier] = *p
		}
	}
	c[beacon.Unassigned] = len(r.Tokens) - c.Assigned()
	return c
}

// Check rebuilds the collection and confirms the record's counters agree
// with its tokens.
func (r *Record) Check() (beacon.Tokens, error) {
	tokens, err := r.Collection()
	if err != nil {
		return nil, err
	}
	if err := beacon.CheckCounts(r.Stage, tokens, r.Totals()); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Fingerprint is a short identity for a token arrangement: the hex SHA-256
// of its comma-joined labels.
func Fingerprint(tokens beacon.Tokens) string {
	sum := sha256.Sum256([]byte(strings.Join(tokens.Labels(), ",")))
	return hex.EncodeToString(sum[:])
}

// Load reads a record from disk.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &r, nil
}

// Save writes the record atomically, creating the directory if needed.
func Save(path string, r *Record) error {
	return fileutil.WriteJSON(path, r, 0o644)
}

// FormatDatetime renders t the way published records do, e.g.
// "Monday, March 28th 2022, 3:04:05 pm".
func FormatDatetime(t time.Time) string {
	return t.Format("Monday, January ") + ordinal(t.Day()) + t.Format(" 2006, 3:04:05 pm")
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
