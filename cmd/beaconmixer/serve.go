package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/beaconmixer/internal/api"
	"github.com/lox/beaconmixer/internal/archive"
	"github.com/lox/beaconmixer/internal/display"
	"github.com/lox/beaconmixer/internal/export"
	"github.com/lox/beaconmixer/internal/plan"
)

// ExportCmd writes a stage record as a spreadsheet.
type ExportCmd struct {
	Stage string `short:"s" help:"Stage to export (default: latest recorded)"`
	Out   string `short:"o" help:"Output path (default: next to the record)" type:"path"`
}

func (c *ExportCmd) Run(g *Globals) error {
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	p, err := plan.Load(g.Plan)
	if err != nil {
		return err
	}
	rec, label, err := stageRecord(p, c.Stage)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = strings.TrimSuffix(p.RecordPath(label), filepath.Ext(p.RecordPath(label))) + ".xlsx"
	}
	if err := export.SaveXLSX(out, rec); err != nil {
		return err
	}
	logger.Info("Exported stage", "stage", label, "path", out, "tokens", len(rec.Tokens))
	return nil
}

// ServeCmd serves lookups for a stage record.
type ServeCmd struct {
	Stage string `short:"s" help:"Stage to serve (default: latest recorded)"`
	Addr  string `default:":8080" help:"Listen address"`
}

func (c *ServeCmd) Run(g *Globals) error {
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	p, err := plan.Load(g.Plan)
	if err != nil {
		return err
	}
	rec, label, err := stageRecord(p, c.Stage)
	if err != nil {
		return err
	}

	handler, err := api.NewServer(rec, logger)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("Serving stage", "stage", label, "address", c.Addr, "block", rec.BlockNumber)

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// HistoryCmd lists archived runs.
type HistoryCmd struct {
	Stage  string `short:"s" help:"Only show runs of this stage"`
	Latest bool   `help:"Show only the most recent run of each stage"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	p, err := plan.Load(g.Plan)
	if err != nil {
		return err
	}
	if p.Collection.Archive == "" {
		return fmt.Errorf("plan %s has no archive configured", g.Plan)
	}

	a, err := openArchive(p.Collection.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	var entries []archive.Entry
	if c.Latest {
		entries, err = latestRuns(a, p, c.Stage)
	} else {
		entries, err = a.List(c.Stage)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No archived runs")
		return nil
	}
	fmt.Println(display.History(entries))
	return nil
}

// latestRuns returns the newest archived run of each plan stage, in plan
// order, skipping stages that never ran.
func latestRuns(a *archive.Archive, p *plan.Plan, only string) ([]archive.Entry, error) {
	var entries []archive.Entry
	for _, stage := range p.Stages {
		if only != "" && stage.Label != only {
			continue
		}
		e, err := a.Latest(stage.Label)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}
