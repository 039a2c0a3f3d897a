package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/beaconmixer/internal/archive"
	"github.com/lox/beaconmixer/internal/chain"
	"github.com/lox/beaconmixer/internal/display"
	"github.com/lox/beaconmixer/internal/plan"
	"github.com/lox/beaconmixer/internal/reveal"
)

// RevealCmd runs one stage, or every stage from a given one onwards.
type RevealCmd struct {
	Stage     string   `short:"s" help:"Run only this stage" xor:"which"`
	From      string   `help:"Run this stage and every later one" xor:"which"`
	RPCURL    string   `name:"rpc-url" env:"BEACON_RPC_URL" help:"JSON-RPC endpoint (overrides the environment)"`
	Block     []string `help:"Use NUMBER:HASH instead of querying a node (repeatable)" placeholder:"NUMBER:HASH"`
	NoArchive bool     `help:"Do not record runs in the archive"`
	RunID     string   `help:"Run identifier (default: random UUID)"`
}

func (c *RevealCmd) Run(g *Globals) error {
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	p, err := plan.Load(g.Plan)
	if err != nil {
		return err
	}

	source, closeSource, err := c.source(ctx, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	var options []reveal.Option
	if c.RunID != "" {
		options = append(options, reveal.WithRunID(c.RunID))
	}
	if p.Collection.Archive != "" && !c.NoArchive {
		a, err := openArchive(p.Collection.Archive)
		if err != nil {
			return err
		}
		defer a.Close()
		options = append(options, reveal.WithArchive(a))
	}

	runner, err := reveal.NewRunner(p, source, logger, options...)
	if err != nil {
		return err
	}
	logger.Info("Starting reveal", "plan", g.Plan, "run_id", runner.RunID(), "tokens", p.Collection.Size)

	var results []*reveal.Result
	if c.Stage != "" {
		var res *reveal.Result
		res, err = runner.RunStage(ctx, c.Stage)
		if res != nil {
			results = append(results, res)
		}
	} else {
		results, err = runner.Run(ctx, c.From)
	}

	for _, res := range results {
		printResult(res)
	}
	return err
}

func printResult(res *reveal.Result) {
	title := fmt.Sprintf("%s · block %d", res.Stage.Label, res.Block.Number)
	fmt.Println(display.Counts(title, res.Counts))
	fmt.Println(res.Path)
}

// source returns the block source and a function releasing it.
func (c *RevealCmd) source(ctx context.Context, logger *log.Logger) (chain.Source, func(), error) {
	if len(c.Block) > 0 {
		static, err := parseBlocks(c.Block)
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("Using supplied block hashes, no node will be queried", "blocks", len(static.Blocks))
		return static, func() {}, nil
	}

	cfg, err := chain.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if c.RPCURL != "" {
		cfg.URL = c.RPCURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client, err := chain.Dial(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func parseBlocks(specs []string) (*chain.Static, error) {
	static := &chain.Static{}
	for _, s := range specs {
		num, hash, ok := strings.Cut(s, ":")
		if !ok || hash == "" {
			return nil, fmt.Errorf("invalid block %q: want NUMBER:HASH", s)
		}
		n, err := strconv.ParseUint(num, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid block number %q: %w", num, err)
		}
		static.Blocks = append(static.Blocks, chain.Block{Number: n, Hash: hash})
	}
	return static, nil
}

func openArchive(path string) (*archive.Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return archive.Open(path)
}
