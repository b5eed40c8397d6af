package gamma

import "testing"

func closedListing(outcomes, prices string) *MarketListing {
	return &MarketListing{
		ID:            "1",
		Closed:        true,
		Outcomes:      outcomes,
		OutcomePrices: prices,
	}
}

func TestResolvedOutcome(t *testing.T) {
	cases := []struct {
		name    string
		listing *MarketListing
		want    string
		wantErr bool
	}{
		{
			name:    "yes wins",
			listing: closedListing(`["Yes","No"]`, `["1","0"]`),
			want:    "YES",
		},
		{
			name:    "no wins",
			listing: closedListing(`["Yes","No"]`, `["0","1"]`),
			want:    "NO",
		},
		{
			name:    "reversed outcome order",
			listing: closedListing(`["No","Yes"]`, `["0","1"]`),
			want:    "YES",
		},
		{
			name:    "voided at half",
			listing: closedListing(`["Yes","No"]`, `["0.5","0.5"]`),
			want:    "CANCELLED",
		},
		{
			name:    "closed but prices not final",
			listing: closedListing(`["Yes","No"]`, `["0.97","0.03"]`),
			want:    "",
		},
		{
			name:    "still open",
			listing: &MarketListing{ID: "1", Closed: false},
			want:    "",
		},
		{
			name:    "malformed prices",
			listing: closedListing(`["Yes","No"]`, `["1"]`),
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.listing.ResolvedOutcome()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvedOutcome: %v", err)
			}
			if got != tc.want {
				t.Fatalf("outcome = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTokenIDs(t *testing.T) {
	l := &MarketListing{Outcomes: `["Yes","No"]`, ClobTokenIDs: `["yes-token","no-token"]`}
	yes, no, err := l.TokenIDs()
	if err != nil {
		t.Fatalf("TokenIDs: %v", err)
	}
	if yes != "yes-token" || no != "no-token" {
		t.Fatalf("tokens = %s/%s", yes, no)
	}

	l = &MarketListing{Outcomes: `["Yes","No"]`, ClobTokenIDs: `["one"]`}
	if _, _, err := l.TokenIDs(); err == nil {
		t.Fatal("single token id accepted")
	}
}

func TestTokenIDs_FollowsOutcomeOrder(t *testing.T) {
	// Token IDs are positional against the outcomes array, so a No-first
	// listing must swap them.
	l := &MarketListing{Outcomes: `["No","Yes"]`, ClobTokenIDs: `["no-token","yes-token"]`}
	yes, no, err := l.TokenIDs()
	if err != nil {
		t.Fatalf("TokenIDs: %v", err)
	}
	if yes != "yes-token" || no != "no-token" {
		t.Fatalf("tokens = %s/%s, want yes-token/no-token", yes, no)
	}
}

func TestBinary(t *testing.T) {
	if !(&MarketListing{Outcomes: `["Yes","No"]`}).Binary() {
		t.Fatal("Yes/No market not detected as binary")
	}
	if !(&MarketListing{Outcomes: `["No","Yes"]`}).Binary() {
		t.Fatal("No-first market not detected as binary")
	}
	if !(&MarketListing{Outcomes: `["YES","no"]`}).Binary() {
		t.Fatal("label casing must not matter")
	}
	if (&MarketListing{Outcomes: `["Trump","Biden"]`}).Binary() {
		t.Fatal("candidate market detected as binary")
	}
	if (&MarketListing{Outcomes: `bad json`}).Binary() {
		t.Fatal("malformed outcomes detected as binary")
	}
}

func TestParseListings_KeepsRawPayload(t *testing.T) {
	body := []byte(`[{"id":"7","question":"Q?","volumeNum":"123.5"}]`)
	listings, err := parseListings(body)
	if err != nil {
		t.Fatalf("parseListings: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(listings))
	}
	if listings[0].Volume.String() != "123.5" {
		t.Fatalf("volume = %s", listings[0].Volume)
	}
	if len(listings[0].Raw) == 0 {
		t.Fatal("raw payload dropped")
	}
}
