package utils

import (
	"testing"
	"time"
)

func TestSafeEnv(t *testing.T) {
	const key = "_GRADTRACK_TEST_SAFEENV"
	t.Setenv(key, "")
	if got := SafeEnv(key, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv(key, "value")
	if got := SafeEnv(key, "fallback"); got != "value" {
		t.Fatalf("expected 'value', got %q", got)
	}
}

func TestSafeEnvTyped(t *testing.T) {
	t.Setenv("_GRADTRACK_TEST_INT", "12")
	t.Setenv("_GRADTRACK_TEST_BADINT", "x")
	t.Setenv("_GRADTRACK_TEST_DUR", "1200ms")
	t.Setenv("_GRADTRACK_TEST_BADDUR", "-1s")
	if got := SafeEnvInt("_GRADTRACK_TEST_INT", 3); got != 12 {
		t.Fatalf("int = %d", got)
	}
	if got := SafeEnvInt("_GRADTRACK_TEST_BADINT", 3); got != 3 {
		t.Fatalf("bad int = %d", got)
	}
	if got := SafeEnvDuration("_GRADTRACK_TEST_DUR", time.Second); got != 1200*time.Millisecond {
		t.Fatalf("duration = %s", got)
	}
	if got := SafeEnvDuration("_GRADTRACK_TEST_BADDUR", time.Second); got != time.Second {
		t.Fatalf("bad duration = %s", got)
	}
}
