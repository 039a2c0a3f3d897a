package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// Globals are flags shared by every command.
type Globals struct {
	Plan     string `short:"p" default:"reveal.hcl" help:"Path to the HCL reveal plan" type:"path"`
	Debug    bool   `help:"Enable debug logging"`
	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level"`
}

// Logger builds the stderr logger for a command.
func (g *Globals) Logger() (*log.Logger, error) {
	level, err := log.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if g.Debug {
		level = log.DebugLevel
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	}), nil
}
