package env

import "testing"

func TestGetFallsBack(t *testing.T) {
	if got := Get("IMMOFIND_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("IMMOFIND_TEST_SET", "value")
	if got := Get("IMMOFIND_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("got %q", got)
	}
}

func TestGetBool(t *testing.T) {
	if !GetBool("IMMOFIND_TEST_UNSET", true) {
		t.Fatal("expected fallback true")
	}
	t.Setenv("IMMOFIND_TEST_BOOL", "true")
	if !GetBool("IMMOFIND_TEST_BOOL", false) {
		t.Fatal("expected parsed true")
	}
	t.Setenv("IMMOFIND_TEST_BOOL", "not-a-bool")
	if GetBool("IMMOFIND_TEST_BOOL", false) {
		t.Fatal("expected fallback on parse failure")
	}
}
