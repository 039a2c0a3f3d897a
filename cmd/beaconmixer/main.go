package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version    kong.VersionFlag `short:"v" help:"Show version"`
	Reveal     RevealCmd        `cmd:"" help:"Run reveal stages against block hashes"`
	Verify     VerifyCmd        `cmd:"" help:"Recompute recorded stages and compare them"`
	Audit      AuditCmd         `cmd:"" help:"Test how evenly each beacon type is spread"`
	Export     ExportCmd        `cmd:"" help:"Write a stage record as an xlsx workbook"`
	Serve      ServeCmd         `cmd:"" help:"Serve token lookups for a stage record"`
	History    HistoryCmd       `cmd:"" help:"List archived stage runs"`
	Env        EnvCmd           `cmd:"" help:"Show the environment variables for the node connection"`
	VersionCmd VersionCmd       `cmd:"version" name:"version" help:"Print the version"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("beaconmixer"),
		kong.Description("Verifiable staged reveal of beacon types seeded by block hashes"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
