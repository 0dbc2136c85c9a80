package resolver

import "testing"

func TestPickPreferred_PrefersXName(t *testing.T) {
	names := []string{"generic-name.example.com.", "x1000c0s0b0n0.example.com."}
	got := pickPreferred(names, "fallback")
	if got != "x1000c0s0b0n0.example.com" {
		t.Errorf("pickPreferred() = %q, want x-prefixed name", got)
	}
}

func TestPickPreferred_NoXNameUsesFirstNonAddress(t *testing.T) {
	names := []string{"10.0.0.1", "generic-name.example.com."}
	got := pickPreferred(names, "fallback")
	if got != "generic-name.example.com" {
		t.Errorf("pickPreferred() = %q, want first non-address name", got)
	}
}

func TestPickPreferred_EmptyFallsBackToInput(t *testing.T) {
	got := pickPreferred(nil, "fallback")
	if got != "fallback" {
		t.Errorf("pickPreferred() = %q, want fallback", got)
	}
}

func TestResolve_CachesResult(t *testing.T) {
	r := New()
	r.cache["bmc01"] = "x1000c0s0b0n0"

	got := r.Resolve("bmc01")
	if got != "x1000c0s0b0n0" {
		t.Errorf("Resolve() = %q, want cached value", got)
	}
}

func TestResolve_UnresolvableHostReturnsInputUnchanged(t *testing.T) {
	r := New()
	got := r.Resolve("definitely-not-a-real-host.invalid")
	if got != "definitely-not-a-real-host.invalid" {
		t.Errorf("Resolve() = %q, want input unchanged on lookup failure", got)
	}
}
