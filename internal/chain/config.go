package chain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BEACON"

// Config describes how to reach the node that supplies block hashes.
type Config struct {
	URL     string        `envconfig:"RPC_URL" desc:"JSON-RPC endpoint of an Ethereum node (http, https, ws or wss)"`
	Timeout time.Duration `envconfig:"RPC_TIMEOUT" default:"30s" desc:"Timeout for a single RPC request"`
}

// LoadConfig reads the node settings from the environment, after loading a
// .env file from the working directory when one exists.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load dotenv: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed parsing node config: %w", err)
	}
	return cfg, nil
}

// Validate checks that an endpoint has been configured.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("no node endpoint configured (set %s_RPC_URL or --rpc-url)", envPrefix)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid rpc timeout: %s", c.Timeout)
	}
	return nil
}

// Usage writes the supported environment variables to w.
func Usage(w io.Writer) error {
	tabs := tabwriter.NewWriter(w, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(envPrefix, &Config{}, tabs, usageFormat); err != nil {
		return err
	}
	return tabs.Flush()
}

const usageFormat = `KEY	DESCRIPTION	DEFAULT
{{range .}}{{usage_key .}}	{{usage_description .}}	{{usage_default .}}
{{end}}`
