package main

import (
	"fmt"
	"os"

	"github.com/lox/beaconmixer/internal/chain"
)

// EnvCmd documents the node settings read from the environment.
type EnvCmd struct{}

func (c *EnvCmd) Run() error {
	return chain.Usage(os.Stdout)
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(version)
	return nil
}
