package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/record"
)

func TestWriteXLSX(t *testing.T) {
	rec := record.New(beacon.Tokens{beacon.Standard, beacon.Unassigned, beacon.Rare}, "0xabc", 42, time.Now())
	rec.Stage = "Rare"

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rec))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(tokensSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Token ID", "Beacon"},
		{"1", "Standard"},
		{"2", "unknown"},
		{"3", "Rare"},
	}, rows)

	hash, err := f.GetCellValue(summarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", hash)

	standard, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "1", standard)
}

func TestSaveXLSX(t *testing.T) {
	rec := record.New(beacon.Tokens{beacon.Ultra}, "0x1", 1, time.Now())
	path := filepath.Join(t.TempDir(), "exports", "final.xlsx")

	require.NoError(t, SaveXLSX(path, rec))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{tokensSheet, summarySheet}, f.GetSheetList())
}
