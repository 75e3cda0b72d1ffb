package config

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("SC_TEST_STR", "value")
	if got := GetEnv("SC_TEST_STR", "fallback"); got != "value" {
		t.Errorf("expected value, got %q", got)
	}
	if got := GetEnv("SC_TEST_STR_UNSET", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SC_TEST_INT", "42")
	if got := GetEnvInt("SC_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("SC_TEST_INT", "not-a-number")
	if got := GetEnvInt("SC_TEST_INT", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	for value, want := range map[string]bool{"true": true, "1": true, "TRUE": true, "false": false, "0": false} {
		t.Setenv("SC_TEST_BOOL", value)
		if got := GetEnvBool("SC_TEST_BOOL", !want); got != want {
			t.Errorf("%q: expected %v, got %v", value, want, got)
		}
	}
	t.Setenv("SC_TEST_BOOL", "maybe")
	if !GetEnvBool("SC_TEST_BOOL", true) {
		t.Error("expected fallback on unparseable value")
	}
}
