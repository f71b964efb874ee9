package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenManagerRefreshesOnlyWhenExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var calls atomic.Int32
	now := time.Unix(1000, 0)
	mgr := NewTokenManager(store, func(context.Context) (Token, error) {
		n := calls.Add(1)
		return Token{Value: "tok-" + string(rune('a'+n-1)), ExpiresAt: now.Unix() + 3600}, nil
	})
	mgr.now = func() time.Time { return now }

	tok, err := mgr.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "tok-a" {
		t.Fatalf("token = %q, want tok-a", tok)
	}
	if calls.Load() != 1 {
		t.Fatalf("auth calls = %d, want 1", calls.Load())
	}

	// Still valid: no refresh.
	if _, err := mgr.Token(ctx); err != nil {
		t.Fatalf("token: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("auth calls after valid read = %d, want 1", calls.Load())
	}

	// Past expiry: refresh happens.
	now = now.Add(2 * time.Hour)
	tok, err = mgr.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "tok-b" {
		t.Fatalf("token after expiry = %q, want tok-b", tok)
	}
	if calls.Load() != 2 {
		t.Fatalf("auth calls after expiry = %d, want 2", calls.Load())
	}
}

func TestTokenManagerPrimeSeedsToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	mgr := NewTokenManager(store, func(context.Context) (Token, error) {
		return Token{Value: "seeded", ExpiresAt: time.Now().Unix() + 60}, nil
	})

	if err := mgr.Prime(ctx); err != nil {
		t.Fatalf("prime: %v", err)
	}
	tok, err := mgr.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "seeded" {
		t.Fatalf("token = %q, want seeded", tok)
	}
}

func TestTokenManagerConcurrentRefreshSingleAuth(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var calls atomic.Int32
	mgr := NewTokenManager(store, func(context.Context) (Token, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return Token{Value: "shared", ExpiresAt: time.Now().Unix() + 3600}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := mgr.Token(ctx)
			if err != nil {
				t.Errorf("token: %v", err)
				return
			}
			if tok != "shared" {
				t.Errorf("token = %q, want shared", tok)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("auth calls = %d, want 1 (refresh re-checks under lock)", calls.Load())
	}
}

func TestTokenManagerCorruptRecordForcesReauth(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, tokenKey, []byte("??")); err != nil {
		t.Fatalf("set: %v", err)
	}

	mgr := NewTokenManager(store, func(context.Context) (Token, error) {
		return Token{Value: "fresh", ExpiresAt: time.Now().Unix() + 60}, nil
	})
	tok, err := mgr.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "fresh" {
		t.Fatalf("token = %q, want fresh", tok)
	}
}
