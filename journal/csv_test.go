package journal

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	tradesPath := filepath.Join(t.TempDir(), "trades.csv")

	j, err := NewCSV(tradesPath)
	require.NoError(t, err)
	assert.NoError(t, j.Close())

	data, err := os.ReadFile(tradesPath)
	require.NoError(t, err)

	header, err := csv.NewReader(strings.NewReader(string(data))).Read()
	require.NoError(t, err)
	assert.Equal(t, tradeHeader, header)
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	tradesPath := filepath.Join(t.TempDir(), "trades.csv")

	j, err := NewCSV(tradesPath)
	require.NoError(t, err)
	require.NoError(t, j.RecordTrade(sampleTrade()))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(tradesPath)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	want := []string{
		"T1", "paper", "AAPL", "Long", "12.500000", "101.250000", "99.750000",
		"2024-01-02T14:30:00Z", "2024-01-02T15:45:30.5Z", "-18.750000",
		"F1", "F2", "A1", "A2", "R1",
	}
	assert.Equal(t, want, rows[1])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "trades.csv"))
	assert.Error(t, err)
}

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	a := sampleTrade()
	b := sampleTrade()
	b.TradeID = "T2"
	b.Symbol = "MSFT"

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, []TradeRecord{a, b}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tradeHeader, rows[0])
	assert.Equal(t, "AAPL", rows[1][2])
	assert.Equal(t, "MSFT", rows[2][2])

	buf.Reset()
	require.NoError(t, WriteTradesCSV(&buf, nil))
	assert.Equal(t, strings.Join(tradeHeader, ",")+"\n", buf.String())
}
