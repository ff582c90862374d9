package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nsvirk/nsequotes/internal/models"
	"github.com/nsvirk/nsequotes/internal/quote"
	"github.com/nsvirk/nsequotes/internal/quote/quotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "quote_timestamp,underlyingValue,openPrice,highPrice,lowPrice,closePrice,lastPrice,change,pChange,numberOfContractsTraded,totalBuyQuantity,totalSellQuantity,vmap,openInterest,changeinOpenInterest,pchangeinOpenInterest,dailyvolatility,impliedVolatility"

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	dir := t.TempDir()
	clock := time.Date(2024, time.January, 25, 10, 30, 15, 123456000, loc)
	w := NewWriter(Config{
		DataDir:  dir,
		Location: loc,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	return w, dir
}

func parse(t *testing.T, raw []byte) *models.QuoteDocument {
	t.Helper()
	doc, err := quote.Parse(raw)
	require.NoError(t, err)
	return doc
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"), "file must end with a newline")
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestWriter_CallAndPut(t *testing.T) {
	w, dir := newTestWriter(t)
	raw := quotetest.Document("SBIN",
		quotetest.Call("25-Jan-2024", "X1", 600),
		quotetest.Put("25-Jan-2024", "X2", 600),
	)

	result, err := w.Write("SBIN", raw, parse(t, raw))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 0, result.Failed)

	for _, id := range []string{"X1", "X2"} {
		lines := readLines(t, filepath.Join(dir, "SBIN", "25-Jan-2024", id))
		require.Len(t, lines, 2)
		assert.Equal(t, header, lines[0])
		assert.Equal(t,
			"25-Jan-2024 15:30:00,601.45,11.2,14.1,10.05,0,12.5,0.9,7.758620689655173,1520,45000,52500,12.34,3000,150,5.26,1.85,28.11",
			lines[1])
		assert.Len(t, strings.Split(lines[1], ","), 18)
	}

	assert.Equal(t, filepath.Join(dir, "SBIN", "2024-01-25", "103115.123456"), result.ArchivePath)
	archived, err := os.ReadFile(result.ArchivePath)
	require.NoError(t, err)
	assert.Equal(t, raw, archived)
}

func TestWriter_AppendsInCycleOrder(t *testing.T) {
	w, dir := newTestWriter(t)

	const cycles = 5
	for i := 0; i < cycles; i++ {
		c := quotetest.Call("25-Jan-2024", "X1", 600)
		c.OpenInterest = int64(1000 + i)
		raw := quotetest.Document("SBIN", c)
		_, err := w.Write("SBIN", raw, parse(t, raw))
		require.NoError(t, err)
	}

	lines := readLines(t, filepath.Join(dir, "SBIN", "25-Jan-2024", "X1"))
	require.Len(t, lines, 1+cycles)
	assert.Equal(t, header, lines[0])
	for i := 0; i < cycles; i++ {
		fields := strings.Split(lines[1+i], ",")
		assert.Equal(t, "100"+string(rune('0'+i)), fields[13], "row %d", i)
	}

	archives, err := os.ReadDir(filepath.Join(dir, "SBIN", "2024-01-25"))
	require.NoError(t, err)
	assert.Len(t, archives, cycles)
}

func TestWriter_SkipsNonOptionContracts(t *testing.T) {
	w, dir := newTestWriter(t)

	weird := quotetest.Call("25-Jan-2024", "WEIRD", 600)
	weird.InstrumentType = "Currency Options"
	raw := quotetest.Document("SBIN",
		quotetest.Future("25-Jan-2024", "FUT1"),
		weird,
		quotetest.Put("25-Jan-2024", "P1", 600),
	)

	result, err := w.Write("SBIN", raw, parse(t, raw))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 2, result.Skipped)

	assert.NoFileExists(t, filepath.Join(dir, "SBIN", "25-Jan-2024", "FUT1"))
	assert.NoFileExists(t, filepath.Join(dir, "SBIN", "25-Jan-2024", "WEIRD"))
	assert.FileExists(t, filepath.Join(dir, "SBIN", "25-Jan-2024", "P1"))
}

func TestWriter_IndexOptions(t *testing.T) {
	w, dir := newTestWriter(t)

	c := quotetest.Call("25-Jan-2024", "OPTIDXNIFTY", 21500)
	c.InstrumentType = "Index Options"
	raw := quotetest.Document("NIFTY", c)

	result, err := w.Write("NIFTY", raw, parse(t, raw))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)
	assert.FileExists(t, filepath.Join(dir, "NIFTY", "25-Jan-2024", "OPTIDXNIFTY"))
}

func TestWriter_ContractFailureDoesNotAbortOthers(t *testing.T) {
	w, dir := newTestWriter(t)

	// a directory squatting on a contract path makes that append fail
	blocked := filepath.Join(dir, "SBIN", "25-Jan-2024", "X1")
	require.NoError(t, os.MkdirAll(blocked, 0o755))

	raw := quotetest.Document("SBIN",
		quotetest.Call("25-Jan-2024", "X1", 600),
		quotetest.Put("25-Jan-2024", "X2", 600),
	)

	result, err := w.Write("SBIN", raw, parse(t, raw))
	require.Error(t, err)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, blocked, perr.Path)

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 1, result.Failed)
	assert.FileExists(t, filepath.Join(dir, "SBIN", "25-Jan-2024", "X2"))
	assert.FileExists(t, result.ArchivePath)
}

func TestWriter_ExistingFileIsNotReheadered(t *testing.T) {
	w, dir := newTestWriter(t)

	path := filepath.Join(dir, "SBIN", "25-Jan-2024", "X1")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(header+"\n"), 0o644))

	raw := quotetest.Document("SBIN", quotetest.Call("25-Jan-2024", "X1", 600))
	_, err := w.Write("SBIN", raw, parse(t, raw))
	require.NoError(t, err)

	lines := readLines(t, path)
	assert.Len(t, lines, 2)
	assert.Equal(t, header, lines[0])
}

func TestWriter_RejectsUnsafeIdentifiers(t *testing.T) {
	w, dir := newTestWriter(t)

	raw := quotetest.Document("SBIN",
		quotetest.Call("25-Jan-2024", "../../../escaped", 600),
		quotetest.Call("25-Jan-2024", "..", 610),
		quotetest.Put("25-Jan-2024", "X2", 600),
	)

	result, err := w.Write("SBIN", raw, parse(t, raw))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafePath)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "SBIN", perr.Symbol)

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 2, result.Failed)
	assert.FileExists(t, filepath.Join(dir, "SBIN", "25-Jan-2024", "X2"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escaped"))
	assert.FileExists(t, result.ArchivePath)
}

func TestWriter_RejectsUnsafeSymbol(t *testing.T) {
	w, dir := newTestWriter(t)
	raw := quotetest.Document("SBIN", quotetest.Call("25-Jan-2024", "X1", 600))

	for _, symbol := range []string{"", "..", "../SBIN", `a\b`} {
		result, err := w.Write(symbol, raw, parse(t, raw))
		assert.ErrorIs(t, err, ErrUnsafePath, symbol)
		assert.Zero(t, result.Written, symbol)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriter_ContractPath(t *testing.T) {
	w := NewWriter(Config{DataDir: "data"})

	path, err := w.ContractPath("M&M", "25-Jan-2024", "OPTSTKM&M25-01-2024CE1600.00")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "M&M", "25-Jan-2024", "OPTSTKM&M25-01-2024CE1600.00"), path)

	for _, tt := range [][3]string{
		{"SBIN", "25-Jan-2024", ""},
		{"SBIN", ".", "X1"},
		{"SBIN", "25/Jan/2024", "X1"},
		{"..", "25-Jan-2024", "X1"},
	} {
		_, err := w.ContractPath(tt[0], tt[1], tt[2])
		assert.ErrorIs(t, err, ErrUnsafePath, "%v", tt)
	}
}

func TestWriter_DefaultsToUTC(t *testing.T) {
	w := NewWriter(Config{DataDir: "data"})

	at := time.Date(2024, time.January, 25, 10, 30, 15, 0, time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, filepath.Join("data", "SBIN", "2024-01-25", "050015.000000"), w.ArchivePath("SBIN", at))
}
