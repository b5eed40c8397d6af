package clob

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type midpointResponse struct {
	Mid json.RawMessage `json:"mid"`
}

func parseMidpoint(body []byte) (decimal.Decimal, error) {
	var resp midpointResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("invalid midpoint response: %w", err)
	}
	if len(resp.Mid) == 0 {
		return decimal.Zero, fmt.Errorf("midpoint response missing mid")
	}
	return parseDecimalRaw(resp.Mid)
}

// parseDecimalRaw accepts both string and number encodings; the CLOB API
// has used both over time.
func parseDecimalRaw(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		val, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
		}
		return val, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return decimal.NewFromFloat(f), nil
	}
	return decimal.Zero, fmt.Errorf("invalid decimal: %s", string(raw))
}
