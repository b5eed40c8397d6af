package clob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetMidpoint_StringAndNumberEncodings(t *testing.T) {
	bodies := map[string]string{
		"string": `{"mid":"0.475"}`,
		"number": `{"mid":0.475}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/midpoint" {
					t.Fatalf("path = %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("token_id"); got != "tok-1" {
					t.Fatalf("token_id = %s", got)
				}
				w.Write([]byte(body))
			}))
			defer srv.Close()

			client := NewClient(srv.Client(), srv.URL)
			mid, err := client.GetMidpoint(context.Background(), "tok-1")
			if err != nil {
				t.Fatalf("GetMidpoint: %v", err)
			}
			if mid.String() != "0.475" {
				t.Fatalf("mid = %s, want 0.475", mid)
			}
		})
	}
}

func TestGetMidpoint_HTTPErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no orderbook", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL)
	_, err := client.GetMidpoint(context.Background(), "tok-1")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", apiErr.Status)
	}
}

func TestMidpointProbability_RejectsDegeneratePrices(t *testing.T) {
	for _, body := range []string{`{"mid":"0"}`, `{"mid":"1"}`, `{"mid":"1.2"}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		client := NewClient(srv.Client(), srv.URL)
		if _, err := client.MidpointProbability(context.Background(), "tok-1"); err == nil {
			t.Fatalf("midpoint %s accepted, want rejection", body)
		}
		srv.Close()
	}
}
