package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/pnl/fill"
)

// ActivitySource pages through an account's fill activity. It never fails
// as a whole: whatever was retrieved is returned alongside the errors met
// on the way.
type ActivitySource interface {
	FetchFills(ctx context.Context, creds Credentials, start, end time.Time) FetchResult
}

// PositionSource reports the broker's view of the open positions.
type PositionSource interface {
	Positions(ctx context.Context, creds Credentials) (PositionSnapshot, error)
}

// Credentials selects and authenticates one account.
type Credentials struct {
	Profile   string
	KeyID     string
	SecretKey string
	Paper     bool
}

func (c Credentials) Validate() error {
	if c.KeyID == "" || c.SecretKey == "" {
		return fmt.Errorf("credentials for profile %q are incomplete", c.Profile)
	}
	return nil
}

type FetchResult struct {
	Records []fill.Raw
	Errors  []string
	Pages   int
}

type Position struct {
	Symbol          string
	Side            string // long or short
	Qty             float64
	AvgEntryPrice   float64
	CurrentPrice    float64
	MarketValue     float64
	UnrealizedPL    float64
	UnrealizedPLPct float64
}

// SignedQty is positive for long positions and negative for short ones.
func (p Position) SignedQty() float64 {
	q := p.Qty
	if q < 0 {
		q = -q
	}
	if p.Side == "short" {
		return -q
	}
	return q
}

type PositionSnapshot struct {
	Positions         []Position
	TotalUnrealizedPL float64
	TotalMarketValue  float64
	Errors            []string
}

// RetrievalError is a failed page fetch after retries were given up.
type RetrievalError struct {
	Page     int
	Attempts int
	Status   int
	Err      error
}

func (e *RetrievalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("page %d failed after %d attempt(s): http %d: %v", e.Page, e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("page %d failed after %d attempt(s): %v", e.Page, e.Attempts, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
