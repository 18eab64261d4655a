// Package fill holds the executed-order slices fed into P&L reconciliation
// and the conversion from loosely typed broker records into them.
package fill

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide accepts the broker spellings of a side. sell_short is a sell.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell", "sell_short":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Fill is one executed slice of an order.
type Fill struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64
	Time   time.Time
	ID     string // order id; partial fills of one order share it
	Ref    string // activity id, unique per fill when the broker sends one
}

// Validate reports the first invariant the fill breaks, or nil.
func (f Fill) Validate() error {
	switch {
	case f.Symbol == "":
		return fmt.Errorf("empty symbol")
	case f.Side != Buy && f.Side != Sell:
		return fmt.Errorf("unknown side %q", f.Side)
	case !finite(f.Qty) || f.Qty <= 0:
		return fmt.Errorf("quantity must be positive, got %v", f.Qty)
	case !finite(f.Price) || f.Price <= 0:
		return fmt.Errorf("price must be positive, got %v", f.Price)
	case f.Time.IsZero():
		return fmt.Errorf("missing timestamp")
	case f.ID == "":
		return fmt.Errorf("missing fill id")
	}
	return nil
}

func (f Fill) String() string {
	return fmt.Sprintf("%s %s %g@%g %s (%s)", f.Symbol, f.Side, f.Qty, f.Price,
		f.Time.UTC().Format(time.RFC3339Nano), f.ID)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
