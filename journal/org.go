package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for pasting into a journal.
// Structured facts go in a PROPERTIES drawer; Review is left for notes.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Symbol, t.Type, shortID(t.TradeID))
	entry := t.EntryTime.UTC().Format(time.RFC3339)
	exit := t.ExitTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.TradeID))
	b.WriteString(fmt.Sprintf(":PROFILE: %s\n", t.Strategy))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":TYPE: %s\n", t.Type))
	b.WriteString(fmt.Sprintf(":QTY: %g\n", t.Qty))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.4f\n", t.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.4f\n", t.ExitPrice))
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", entry))
	b.WriteString(fmt.Sprintf(":EXIT_TIME: %s\n", exit))
	b.WriteString(fmt.Sprintf(":PNL: %.2f\n", t.PnL))
	b.WriteString(fmt.Sprintf(":ENTRY_FILL: %s\n", t.EntryFillID))
	b.WriteString(fmt.Sprintf(":EXIT_FILL: %s\n", t.ExitFillID))
	if t.EntryRef != "" && t.EntryRef != t.EntryFillID {
		b.WriteString(fmt.Sprintf(":ENTRY_REF: %s\n", t.EntryRef))
	}
	if t.ExitRef != "" && t.ExitRef != t.ExitFillID {
		b.WriteString(fmt.Sprintf(":EXIT_REF: %s\n", t.ExitRef))
	}
	if t.RunID != "" {
		b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", t.RunID))
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
