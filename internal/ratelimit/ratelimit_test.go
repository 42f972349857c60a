package ratelimit_test

import (
	"testing"
	"time"

	"arena-server/internal/ratelimit"
)

func TestAllowRespectsShortWindowLimit(t *testing.T) {
	cfg := ratelimit.Config{
		ShortWindow: 50 * time.Millisecond, ShortLimit: 3,
		LongWindow: time.Second, LongLimit: 1000,
		AuthBackoffBase: time.Second, AuthBackoffMax: time.Minute,
		StaleAfter: time.Minute,
	}
	l := ratelimit.New(cfg)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("player-1") {
			t.Fatalf("request %d: expected allowed within short limit", i)
		}
	}
	if l.Allow("player-1") {
		t.Error("4th request within the short window should be rejected")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow("player-1") {
		t.Error("request after short window reset should be allowed")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	cfg := ratelimit.Config{
		ShortWindow: time.Second, ShortLimit: 1,
		LongWindow: time.Minute, LongLimit: 1000,
		AuthBackoffBase: time.Second, AuthBackoffMax: time.Minute,
		StaleAfter: time.Minute,
	}
	l := ratelimit.New(cfg)
	defer l.Stop()

	if !l.Allow("a") {
		t.Fatal("first request for key a should be allowed")
	}
	if !l.Allow("b") {
		t.Error("key b should have its own independent window")
	}
	if l.Allow("a") {
		t.Error("second request for key a should be rejected")
	}
}

func TestRecordAuthFailureBacksOffExponentially(t *testing.T) {
	cfg := ratelimit.Config{
		ShortWindow: time.Second, ShortLimit: 1000,
		LongWindow: time.Minute, LongLimit: 1000,
		AuthBackoffBase: 20 * time.Millisecond, AuthBackoffMax: time.Hour,
		StaleAfter: time.Minute,
	}
	l := ratelimit.New(cfg)
	defer l.Stop()

	l.RecordAuthFailure("attacker")
	if l.Allow("attacker") {
		t.Fatal("key should be blocked immediately after an auth failure")
	}

	time.Sleep(25 * time.Millisecond)
	if !l.Allow("attacker") {
		t.Fatal("key should be unblocked after the base backoff elapses")
	}

	// Second failure should back off for roughly double the base.
	l.RecordAuthFailure("attacker")
	time.Sleep(25 * time.Millisecond)
	if l.Allow("attacker") {
		t.Error("key should still be blocked after only the base interval on a second failure")
	}
}

func TestRecordAuthSuccessClearsBackoff(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	l := ratelimit.New(cfg)
	defer l.Stop()

	l.RecordAuthFailure("user")
	l.RecordAuthSuccess("user")
	if !l.Allow("user") {
		t.Error("a successful auth should clear any pending backoff")
	}
}

func TestConnectionLimiterCapsBurst(t *testing.T) {
	cl := ratelimit.NewConnectionLimiter(1, 2)

	allowed := 0
	for i := 0; i < 5; i++ {
		if cl.Allow("10.0.0.1:1234") {
			allowed++
		}
	}
	if allowed > 2 {
		t.Errorf("burst of 2 exceeded: got %d allowed calls", allowed)
	}

	if !cl.Allow("10.0.0.2:1234") {
		t.Error("a different source address should have its own bucket")
	}
}
