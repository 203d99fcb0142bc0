package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = ` Ledger ,Closing CY,CLOSING py
Sales,-5000000,-4500000
Rent,"1,200,000",1000000

Salaries,3800000,3500000
`

func TestCSVParser_Parse(t *testing.T) {
	p := &CSVParser{}
	res, err := p.Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	assert.Empty(t, res.Errors)

	assert.Equal(t, "Sales", res.Rows[0].LedgerName)
	assert.Equal(t, 2, res.Rows[0].Row)
	assert.Equal(t, "-5000000", res.Rows[0].ClosingCy.String())
	assert.Equal(t, "1200000", res.Rows[1].ClosingCy.String())
	assert.Equal(t, 5, res.Rows[2].Row, "blank line still counts toward row numbers")

	cy, py := res.Balanced(decimal.NewFromInt(1))
	assert.True(t, cy)
	assert.True(t, py)
}

func TestCSVParser_RowErrors(t *testing.T) {
	in := "ledger,closingCy,closingPy\n" +
		"Sales,-100,\n" +
		",50,0\n" +
		"Rent,abc,0\n" +
		"Interest,(25.50),x\n"
	res, err := (&CSVParser{}).Parse(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Sales", res.Rows[0].LedgerName)
	assert.True(t, res.Rows[0].ClosingPy.IsZero())
	assert.Equal(t, "-25.5", res.Rows[1].ClosingCy.String())
	assert.True(t, res.Rows[1].ClosingPy.IsZero(), "non-numeric prior year defaults to zero")

	require.Len(t, res.Errors, 2)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.ErrorIs(t, res.Errors[0], ErrEmptyLedger)
	assert.Equal(t, 4, res.Errors[1].Row)
	assert.ErrorIs(t, res.Errors[1], ErrInvalidAmount)
	assert.Contains(t, res.Errors[1].Error(), "row 4")
}

func TestCSVParser_Windows1252(t *testing.T) {
	// "Café Expenses" saved by a Windows spreadsheet: é is 0xE9, not UTF-8.
	in := []byte("ledger,closingCy\nCaf\xe9 Expenses,100\n")
	res, err := (&CSVParser{}).Parse(bytes.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Café Expenses", res.Rows[0].LedgerName)
}

func TestCSVParser_NoPriorYearColumn(t *testing.T) {
	res, err := (&CSVParser{}).Parse(strings.NewReader("ledger,closingcy\nCash,10\n"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, res.Rows[0].ClosingPy.IsZero())
}

func TestCSVParser_MissingColumn(t *testing.T) {
	_, err := (&CSVParser{}).Parse(strings.NewReader("name,closingCy\nCash,10\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = (&CSVParser{}).Parse(strings.NewReader("ledger,amount\nCash,10\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = (&CSVParser{}).Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestUnbalancedImportIsNotRejected(t *testing.T) {
	in := "ledger,closingCy\nSales,5000000\nRent,-4999998\n"
	res, err := (&CSVParser{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	cy, _ := res.Balanced(decimal.NewFromInt(1))
	assert.False(t, cy)
	assert.Equal(t, "2", res.TotalCy.String())
}

func writeWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestXLSXParser_Parse(t *testing.T) {
	data := writeWorkbook(t, [][]any{
		{"Ledger", "ClosingCy", "ClosingPy"},
		{"Land Plot", 1200000, 1200000},
		{"HQ Building", 2500000.5, 0},
		{"Capital", -3700000.5, -1200000},
	})

	res, err := (&XLSXParser{}).Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "HQ Building", res.Rows[1].LedgerName)
	assert.Equal(t, "2500000.5", res.Rows[1].ClosingCy.String())
	assert.True(t, res.TotalCy.IsZero())
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.NotNil(t, reg.ForFile("tb.CSV"))
	assert.NotNil(t, reg.ForFile("/tmp/tb.xlsx"))
	assert.Equal(t, "xls", reg.ForFile("Tally TB.XLS").Format())
	assert.Nil(t, reg.ForFile("tb.pdf"))
	assert.Panics(t, func() { reg.Register(&CSVParser{}) })
}

func TestScanAndMarkProcessed(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "import")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tb.csv"), []byte(sampleCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitkeep"), nil, 0o644))

	reg := DefaultRegistry()
	files, err := Scan(root, reg)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "tb.csv", files[0].Name)

	res, err := reg.ParseFile(files[0].Path)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)

	require.NoError(t, MarkProcessed(root, "tb.csv"))
	_, err = os.Stat(filepath.Join(root, "import", "processed", "tb.csv"))
	assert.NoError(t, err)

	files, err = Scan(root, reg)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScan_NoImportDir(t *testing.T) {
	files, err := Scan(t.TempDir(), DefaultRegistry())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed_KeepsEarlierFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "processed"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "processed", "tb.csv"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tb.csv"), []byte("new"), 0o644))

	require.NoError(t, MarkProcessed(root, "tb.csv"))

	old, err := os.ReadFile(filepath.Join(dir, "processed", "tb.csv"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
	matches, err := filepath.Glob(filepath.Join(dir, "processed", "tb-*.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestXLSParser_RejectsNonWorkbook(t *testing.T) {
	_, err := (&XLSParser{}).Parse(strings.NewReader(sampleCSV))
	assert.Error(t, err)
}
