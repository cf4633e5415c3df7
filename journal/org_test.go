package journal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEntryOrgOpen(t *testing.T) {
	t.Parallel()

	open, _ := roundTrip()
	out := FormatEntryOrg(open)

	assert.True(t, strings.HasPrefix(out, "** Open: LONG EUR_USD ("))
	assert.Contains(t, out, ":ORDER_ID: O1\n")
	assert.Contains(t, out, ":POSITION_ID: "+open.Order.PositionID.String()+"\n")
	assert.Contains(t, out, ":EXEC_PRICE: 1.20000\n")
	assert.Contains(t, out, ":TIME: 2024-01-02T03:04:05Z\n")
	assert.NotContains(t, out, ":REALIZED_PL:")
	assert.True(t, strings.HasSuffix(out, ":END:\n"))
}

func TestFormatEntryOrgClose(t *testing.T) {
	t.Parallel()

	_, closeEntry := roundTrip()
	out := FormatEntryOrg(closeEntry)

	assert.True(t, strings.HasPrefix(out, "** Close: SHORT EUR_USD ("))
	assert.Contains(t, out, ":PIPS: 50.0\n")
	assert.Contains(t, out, ":REALIZED_PL: 500.00\n")
}

func TestFormatEntriesOrg(t *testing.T) {
	t.Parallel()

	open, closeEntry := roundTrip()
	out := FormatEntriesOrg([]HistoryEntry{open, closeEntry})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, ":END:\n\n** Close")
	assert.Empty(t, FormatEntriesOrg(nil))
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "abcdefgh", shortID("abcdefghijkl"))
}
