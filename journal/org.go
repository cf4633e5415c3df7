package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatEntryOrg renders a HistoryEntry as an Org-mode block suitable for
// pasting into a trading journal. Structured facts go into a PROPERTIES
// drawer for easy search.
func FormatEntryOrg(e HistoryEntry) string {
	kind := "Open"
	if e.IsClose() {
		kind = "Close"
	}
	heading := fmt.Sprintf("** %s: %s %s (%s)", kind, e.Order.Direction, e.Order.Symbol, shortID(e.Order.PositionID.String()))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ORDER_ID: %s\n", e.Order.ID))
	b.WriteString(fmt.Sprintf(":POSITION_ID: %s\n", e.Order.PositionID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", e.Order.Symbol))
	b.WriteString(fmt.Sprintf(":QUANTITY: %g\n", e.Order.Quantity))
	b.WriteString(fmt.Sprintf(":EXEC_PRICE: %.5f\n", e.ExecPrice))
	b.WriteString(fmt.Sprintf(":TIME: %s\n", e.Time.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":BALANCE: %.2f\n", e.Balance))
	b.WriteString(fmt.Sprintf(":MARGIN_BALANCE: %.2f\n", e.MarginBalance))
	if e.IsClose() {
		b.WriteString(fmt.Sprintf(":PIPS: %.1f\n", e.PriceDeltaPips))
		b.WriteString(fmt.Sprintf(":GAIN_LOSS: %.2f\n", e.GainLoss))
		b.WriteString(fmt.Sprintf(":GAIN_LOSS_RATE: %.2f%%\n", e.GainLossRate*100))
		b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", e.GainLossAccount))
	}
	b.WriteString(":END:\n")

	return b.String()
}

// FormatEntriesOrg renders multiple entries separated by blank lines.
func FormatEntriesOrg(entries []HistoryEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatEntryOrg(e))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
