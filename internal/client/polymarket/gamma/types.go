package gamma

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarketListing is a single market as returned by the Gamma /markets API.
// Several fields arrive as JSON-encoded strings inside the JSON payload;
// the accessors below decode them.
type MarketListing struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	EndDate       *time.Time `json:"endDate"`
	Closed        bool       `json:"closed"`
	Active        bool       `json:"active"`
	Archived      bool       `json:"archived"`
	Volume        flexNumber `json:"volumeNum"`
	Liquidity     flexNumber `json:"liquidityNum"`
	ClobTokenIDs  string     `json:"clobTokenIds"`
	Outcomes      string     `json:"outcomes"`
	OutcomePrices string     `json:"outcomePrices"`

	Raw json.RawMessage `json:"-"`
}

// flexNumber tolerates number, string and null encodings.
type flexNumber struct {
	decimal.Decimal
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		n.Decimal = decimal.Zero
		return nil
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	n.Decimal = d
	return nil
}

// outcomeIndexes locates the Yes and No outcomes by label, case-insensitively
// and in either order. Token IDs and outcome prices are positional against
// the outcomes array, so everything label-dependent goes through here.
func (m *MarketListing) outcomeIndexes() (yesIdx, noIdx int, err error) {
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return 0, 0, fmt.Errorf("invalid outcomes: %w", err)
	}
	if len(outcomes) != 2 {
		return 0, 0, fmt.Errorf("expected 2 outcomes, got %d", len(outcomes))
	}
	yesIdx, noIdx = -1, -1
	for i, o := range outcomes {
		switch strings.ToUpper(strings.TrimSpace(o)) {
		case "YES":
			yesIdx = i
		case "NO":
			noIdx = i
		}
	}
	if yesIdx < 0 || noIdx < 0 {
		return 0, 0, fmt.Errorf("not a yes/no market: %s", m.Outcomes)
	}
	return yesIdx, noIdx, nil
}

// TokenIDs decodes the clobTokenIds field into the YES and NO token IDs,
// mapped through the outcome labels rather than assumed positions.
func (m *MarketListing) TokenIDs() (yes, no string, err error) {
	yesIdx, noIdx, err := m.outcomeIndexes()
	if err != nil {
		return "", "", err
	}
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err != nil {
		return "", "", fmt.Errorf("invalid clobTokenIds: %w", err)
	}
	if len(ids) != 2 {
		return "", "", fmt.Errorf("expected 2 token ids, got %d", len(ids))
	}
	return ids[yesIdx], ids[noIdx], nil
}

// Binary reports whether the listing is a plain Yes/No market.
func (m *MarketListing) Binary() bool {
	_, _, err := m.outcomeIndexes()
	return err == nil
}

// ResolvedOutcome inspects a closed market's outcome prices and reports
// "YES", "NO", "CANCELLED", or "" when the market has not resolved yet.
// Resolved binary markets carry prices of 1 and 0; markets voided by the
// oracle settle both sides at 0.5.
func (m *MarketListing) ResolvedOutcome() (string, error) {
	if !m.Closed {
		return "", nil
	}
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return "", fmt.Errorf("invalid outcomes: %w", err)
	}
	var rawPrices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &rawPrices); err != nil {
		return "", fmt.Errorf("invalid outcomePrices: %w", err)
	}
	if len(outcomes) != len(rawPrices) || len(outcomes) != 2 {
		return "", fmt.Errorf("unexpected outcome shape: %d outcomes, %d prices", len(outcomes), len(rawPrices))
	}

	prices := make([]decimal.Decimal, len(rawPrices))
	for i, rp := range rawPrices {
		p, err := decimal.NewFromString(rp)
		if err != nil {
			return "", fmt.Errorf("invalid outcome price %q: %w", rp, err)
		}
		prices[i] = p
	}

	half := decimal.NewFromFloat(0.5)
	if prices[0].Equal(half) && prices[1].Equal(half) {
		return "CANCELLED", nil
	}

	one := decimal.NewFromInt(1)
	winner := -1
	for i, p := range prices {
		if p.Equal(one) {
			if winner >= 0 {
				return "", fmt.Errorf("multiple winning outcomes")
			}
			winner = i
		}
	}
	if winner < 0 {
		// Closed but prices not final yet.
		return "", nil
	}
	switch strings.ToLower(outcomes[winner]) {
	case "yes":
		return "YES", nil
	case "no":
		return "NO", nil
	default:
		return "", fmt.Errorf("unexpected winning outcome %q", outcomes[winner])
	}
}

func parseListings(body []byte) ([]MarketListing, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("invalid markets response: %w", err)
	}
	listings := make([]MarketListing, 0, len(raws))
	for _, raw := range raws {
		var l MarketListing
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("invalid market listing: %w", err)
		}
		l.Raw = raw
		listings = append(listings, l)
	}
	return listings, nil
}

func parseListing(body []byte) (*MarketListing, error) {
	var l MarketListing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("invalid market response: %w", err)
	}
	l.Raw = json.RawMessage(body)
	return &l, nil
}
