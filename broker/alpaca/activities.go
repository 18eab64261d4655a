package alpaca

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/pnl/broker"
	"github.com/rustyeddy/pnl/fill"
)

const activitiesPath = "/v2/account/activities/FILL"

// FetchFills pages through FILL activities in ascending order between
// start and end. Each page is retried on transient failures; a page that
// still fails ends pagination and is reported in Errors, and everything
// fetched before it is kept.
//
// Pages are chained with page_token set to the last activity id. Activities
// without an id fall back to moving after past the last timestamp by 1ms,
// which can skip fills sharing that millisecond.
func (c *Client) FetchFills(ctx context.Context, creds broker.Credentials, start, end time.Time) broker.FetchResult {
	res := broker.FetchResult{}
	if err := creds.Validate(); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	after := start.UTC()
	token := ""
	until := end.UTC().Format(time.RFC3339Nano)
	log := c.log.With(zap.String("profile", creds.Profile))

	capped := true
	for page := 1; page <= c.opts.MaxPages; page++ {
		params := url.Values{}
		params.Set("direction", "asc")
		params.Set("after", after.Format(time.RFC3339Nano))
		params.Set("until", until)
		params.Set("page_size", strconv.Itoa(c.opts.PageSize))
		if token != "" {
			params.Set("page_token", token)
		}

		records, err := c.fetchPage(ctx, creds, page, params, log)
		res.Pages = page
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			capped = false
			break
		}
		if len(records) == 0 {
			capped = false
			break
		}
		res.Records = append(res.Records, records...)

		next, nextAfter, err := cursor(records[len(records)-1])
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: cannot advance pagination: %v", page, err))
			capped = false
			break
		}
		token = next
		if token == "" {
			after = nextAfter
		}

		if len(records) < c.opts.PageSize {
			capped = false
			break
		}
		if err := c.sleep(ctx, c.opts.PageDelay); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", page+1, err))
			capped = false
			break
		}
	}
	if capped {
		res.Errors = append(res.Errors, fmt.Sprintf("reached max pagination limit of %d pages", c.opts.MaxPages))
	}

	log.Info("fetched fill activities",
		zap.Int("records", len(res.Records)),
		zap.Int("pages", res.Pages),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

func (c *Client) fetchPage(ctx context.Context, creds broker.Credentials, page int, params url.Values, log *zap.Logger) ([]fill.Raw, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		var records []fill.Raw
		err := c.get(ctx, creds, activitiesPath, params, &records)
		if err == nil {
			return records, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.opts.MaxRetries {
			return nil, &broker.RetrievalError{Page: page, Attempts: attempt, Status: statusOf(err), Err: err}
		}
		log.Warn("activity page failed, retrying",
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.opts.MaxRetries),
			zap.Error(err),
		)
		if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
			return nil, &broker.RetrievalError{Page: page, Attempts: attempt, Err: err}
		}
	}
	return nil, &broker.RetrievalError{Page: page, Attempts: c.opts.MaxRetries, Err: lastErr}
}

// cursor returns where the page after last starts: its activity id, or
// failing that its timestamp plus 1ms.
func cursor(last fill.Raw) (string, time.Time, error) {
	if id, ok := last["id"].(string); ok && id != "" {
		return id, time.Time{}, nil
	}
	t, err := recordTime(last)
	if err != nil {
		return "", time.Time{}, err
	}
	return "", t.Add(time.Millisecond), nil
}

func recordTime(r fill.Raw) (time.Time, error) {
	for _, k := range []string{"transaction_time", "timestamp"} {
		s, ok := r[k].(string)
		if !ok || s == "" {
			continue
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	return time.Time{}, fmt.Errorf("last activity has no timestamp")
}
