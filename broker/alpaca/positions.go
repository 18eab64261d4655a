package alpaca

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/rustyeddy/pnl/broker"
)

type apiPosition struct {
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Qty            string `json:"qty"`
	AvgEntryPrice  string `json:"avg_entry_price"`
	CurrentPrice   string `json:"current_price"`
	MarketValue    string `json:"market_value"`
	UnrealizedPL   string `json:"unrealized_pl"`
	UnrealizedPLPC string `json:"unrealized_plpc"`
}

// Positions returns the open positions with their totals. A position that
// fails to parse is left out and noted in the snapshot's Errors.
func (c *Client) Positions(ctx context.Context, creds broker.Credentials) (broker.PositionSnapshot, error) {
	var snap broker.PositionSnapshot
	if err := creds.Validate(); err != nil {
		return snap, err
	}

	var raw []apiPosition
	if err := c.get(ctx, creds, "/v2/positions", url.Values{}, &raw); err != nil {
		return snap, fmt.Errorf("get positions: %w", err)
	}

	for _, ap := range raw {
		p, err := ap.convert()
		if err != nil {
			c.log.Warn("skipping position", zap.String("symbol", ap.Symbol), zap.Error(err))
			snap.Errors = append(snap.Errors, fmt.Sprintf("position %s: %v", ap.Symbol, err))
			continue
		}
		snap.Positions = append(snap.Positions, p)
		snap.TotalUnrealizedPL += p.UnrealizedPL
		snap.TotalMarketValue += p.MarketValue
	}
	return snap, nil
}

func (ap apiPosition) convert() (broker.Position, error) {
	p := broker.Position{Symbol: ap.Symbol, Side: ap.Side}
	fields := []struct {
		name string
		in   string
		out  *float64
	}{
		{"qty", ap.Qty, &p.Qty},
		{"avg_entry_price", ap.AvgEntryPrice, &p.AvgEntryPrice},
		{"current_price", ap.CurrentPrice, &p.CurrentPrice},
		{"market_value", ap.MarketValue, &p.MarketValue},
		{"unrealized_pl", ap.UnrealizedPL, &p.UnrealizedPL},
		{"unrealized_plpc", ap.UnrealizedPLPC, &p.UnrealizedPLPct},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.in, 64)
		if err != nil {
			return broker.Position{}, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.out = v
	}
	p.UnrealizedPLPct *= 100
	return p, nil
}
