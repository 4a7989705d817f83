package api

import (
	"testing"
	"time"
)

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if got := envInt("TEST_ENV_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := envInt("TEST_ENV_INT_UNSET", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
	t.Setenv("TEST_ENV_INT_BAD", "many")
	if got := envInt("TEST_ENV_INT_BAD", 7); got != 7 {
		t.Fatalf("expected default on parse failure, got %d", got)
	}
}

func TestEnvDur(t *testing.T) {
	t.Setenv("TEST_ENV_DUR", "250ms")
	if got := envDur("TEST_ENV_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}
	if got := envDur("TEST_ENV_DUR_UNSET", time.Second); got != time.Second {
		t.Fatalf("expected default, got %v", got)
	}
	t.Setenv("TEST_ENV_DUR_NEG", "-5s")
	if got := envDur("TEST_ENV_DUR_NEG", time.Second); got != time.Second {
		t.Fatalf("expected default for negative duration, got %v", got)
	}
}
