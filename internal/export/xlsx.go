// Package export renders a stage record as a spreadsheet for people who
// want to browse a reveal without reading JSON.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/fileutil"
	"github.com/lox/beaconmixer/internal/record"
)

const (
	tokensSheet  = "Tokens"
	summarySheet = "Summary"
)

// WriteXLSX writes a workbook with a Tokens sheet (one row per token) and a
// Summary sheet (seed and per-tier totals).
func WriteXLSX(w io.Writer, rec *record.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tokensSheet); err != nil {
		return err
	}
	if err := writeTokens(f, rec); err != nil {
		return fmt.Errorf("tokens sheet: %w", err)
	}
	if err := writeSummary(f, rec); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}

	_, err := f.WriteTo(w)
	return err
}

// SaveXLSX writes the workbook atomically to path.
func SaveXLSX(path string, rec *record.Record) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return WriteXLSX(w, rec)
	})
}

func writeTokens(f *excelize.File, rec *record.Record) error {
	sw, err := f.NewStreamWriter(tokensSheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", []any{"Token ID", "Beacon"}); err != nil {
		return err
	}
	for i, e := range rec.Tokens {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []any{e.TokenID, e.Beacon.String()}); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeSummary(f *excelize.File, rec *record.Record) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Stage", rec.Stage},
		{"Datetime", rec.Datetime},
		{"Block number", rec.BlockNumber},
		{"Block hash", rec.BlockHash},
		{},
		{"Beacon", "Tokens"},
	}
	totals := rec.Totals()
	for _, tier := range append([]beacon.Tier{beacon.Unassigned}, beacon.Tiers...) {
		rows = append(rows, []any{tier.String(), totals[tier]})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
