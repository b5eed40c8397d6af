package auth

import (
	"testing"
	"time"
)

func TestNonceStore_IssueAndConsume(t *testing.T) {
	store := NewNonceStore(time.Minute)

	nonce := store.Issue("0xABC")
	if nonce == "" {
		t.Fatal("expected a nonce")
	}

	got, ok := store.Consume("0xabc")
	if !ok || got != nonce {
		t.Fatalf("consume = %q/%v, want issued nonce", got, ok)
	}

	// Single use.
	if _, ok := store.Consume("0xabc"); ok {
		t.Fatal("nonce consumed twice")
	}
}

func TestNonceStore_ReissueReplaces(t *testing.T) {
	store := NewNonceStore(time.Minute)
	first := store.Issue("0xabc")
	second := store.Issue("0xabc")
	if first == second {
		t.Fatal("reissue returned the same nonce")
	}
	got, ok := store.Consume("0xabc")
	if !ok || got != second {
		t.Fatalf("consume = %q, want latest nonce", got)
	}
}

func TestNonceStore_Expiry(t *testing.T) {
	store := NewNonceStore(time.Millisecond)
	store.Issue("0xabc")
	time.Sleep(5 * time.Millisecond)
	if _, ok := store.Consume("0xabc"); ok {
		t.Fatal("expired nonce consumed")
	}
}

func TestNonceStore_WalletsAreIndependent(t *testing.T) {
	store := NewNonceStore(time.Minute)
	a := store.Issue("0xaaa")
	b := store.Issue("0xbbb")
	if got, ok := store.Consume("0xbbb"); !ok || got != b {
		t.Fatalf("wallet b consume = %q/%v", got, ok)
	}
	if got, ok := store.Consume("0xaaa"); !ok || got != a {
		t.Fatalf("wallet a consume = %q/%v", got, ok)
	}
}
