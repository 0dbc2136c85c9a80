package config

import "testing"

func TestParse_Defaults(t *testing.T) {
	doc := []byte(`
general:
  context_prefix: "relay-"
endpoints:
  bmc01:
    username: root
    password: secret
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	if cfg.General.RefreshInterval != 300 {
		t.Errorf("RefreshInterval = %d, want 300", cfg.General.RefreshInterval)
	}
	if cfg.General.MaxWorkers != 50 {
		t.Errorf("MaxWorkers = %d, want 50", cfg.General.MaxWorkers)
	}
	if cfg.General.Port != 9127 {
		t.Errorf("Port = %d, want 9127", cfg.General.Port)
	}
	if cfg.General.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.General.LogLevel)
	}
}

func TestValidate_MissingContextPrefix(t *testing.T) {
	doc := []byte(`
endpoints:
  bmc01:
    username: root
    password: secret
`)
	_, err := Parse(doc)
	if err == nil {
		t.Fatal("expected error for missing context_prefix, got nil")
	}
}

func TestValidate_NoEndpoints(t *testing.T) {
	doc := []byte(`
general:
  context_prefix: "relay-"
`)
	_, err := Parse(doc)
	if err == nil {
		t.Fatal("expected error for no endpoints, got nil")
	}
}

func TestValidate_SubscriptionContextPrefixMismatch(t *testing.T) {
	doc := []byte(`
general:
  context_prefix: "relay-"
endpoints:
  bmc01:
    username: root
    password: secret
subscriptions:
  - servers: "bmc01"
    context: "other-sub"
`)
	_, err := Parse(doc)
	if err == nil {
		t.Fatal("expected error for context not matching namespace prefix, got nil")
	}
}

func TestDesiredSubscriptions(t *testing.T) {
	doc := []byte(`
general:
  context_prefix: "relay-"
  port: 9127
endpoints:
  cmm01:
    username: root
    password: secret
  cmm02:
    username: root
    password: secret
subscriptions:
  - servers: "cmm[01-02]"
    context: "relay-sub"
    properties:
      RegistryPrefixes:
        - "CrayTelemetry"
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	subs, err := cfg.DesiredSubscriptions("cmm01")
	if err != nil {
		t.Fatalf("DesiredSubscriptions() returned error: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("len(subs) = %d, want 1", len(subs))
	}
	if subs[0].Context != "relay-sub" {
		t.Errorf("Context = %q, want relay-sub", subs[0].Context)
	}
	if len(subs[0].RegistryPrefixes) != 1 || subs[0].RegistryPrefixes[0] != "CrayTelemetry" {
		t.Errorf("RegistryPrefixes = %v, want [CrayTelemetry]", subs[0].RegistryPrefixes)
	}

	subs, err = cfg.DesiredSubscriptions("cmm03")
	if err != nil {
		t.Fatalf("DesiredSubscriptions() returned error: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("len(subs) = %d, want 0 for host not in server list", len(subs))
	}
}

func TestDesiredSubscriptions_DestinationFallsBackToWildcard(t *testing.T) {
	doc := []byte(`
general:
  context_prefix: "relay-"
  port: 9127
endpoints:
  cmm01:
    username: root
    password: secret
subscriptions:
  - servers: "cmm01"
    context: "relay-sub"
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	subs, err := cfg.DesiredSubscriptions("cmm01")
	if err != nil {
		t.Fatalf("DesiredSubscriptions() returned error: %v", err)
	}
	if want := "0.0.0.0:9127/redfish"; subs[0].Destination != want {
		t.Errorf("Destination = %q, want %q", subs[0].Destination, want)
	}
}

func TestDesiredSubscriptions_DestinationUsesIPWhenRequested(t *testing.T) {
	doc := []byte(`
general:
  context_prefix: "relay-"
  port: 9127
  address: "10.1.2.3"
endpoints:
  cmm01:
    username: root
    password: secret
subscriptions:
  - servers: "cmm01"
    context: "relay-sub"
    destinations_use_ip: true
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	subs, err := cfg.DesiredSubscriptions("cmm01")
	if err != nil {
		t.Fatalf("DesiredSubscriptions() returned error: %v", err)
	}
	if want := "10.1.2.3:9127/redfish"; subs[0].Destination != want {
		t.Errorf("Destination = %q, want %q (a configured non-wildcard general.address should be used as-is)", subs[0].Destination, want)
	}
}

func TestDesiredSubscriptions_ExplicitDestinationsWinOverUseIP(t *testing.T) {
	doc := []byte(`
general:
  context_prefix: "relay-"
  port: 9127
  address: "10.1.2.3"
endpoints:
  cmm01:
    username: root
    password: secret
subscriptions:
  - servers: "cmm01"
    context: "relay-sub"
    destinations_use_ip: true
    destinations:
      - "10.9.9.9"
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	subs, err := cfg.DesiredSubscriptions("cmm01")
	if err != nil {
		t.Fatalf("DesiredSubscriptions() returned error: %v", err)
	}
	if want := "10.9.9.9:9127/redfish"; subs[0].Destination != want {
		t.Errorf("Destination = %q, want %q (explicit destinations list takes priority)", subs[0].Destination, want)
	}
}

func TestRelayIP_UsesConfiguredNonWildcardAddress(t *testing.T) {
	if got := relayIP("192.168.1.50"); got != "192.168.1.50" {
		t.Errorf("relayIP(%q) = %q, want it returned unchanged", "192.168.1.50", got)
	}
}

func TestRelayIP_WildcardResolvesToSomeAddress(t *testing.T) {
	for _, wildcard := range []string{"0.0.0.0", "::", ""} {
		if got := relayIP(wildcard); got == "" {
			t.Errorf("relayIP(%q) returned empty string, want a best-effort address", wildcard)
		}
	}
}

func TestExpandHostlist(t *testing.T) {
	cases := []struct {
		spec string
		want []string
	}{
		{"bmc01", []string{"bmc01"}},
		{"cmm[1-3]", []string{"cmm1", "cmm2", "cmm3"}},
		{"cmm[01-03]", []string{"cmm01", "cmm02", "cmm03"}},
		{"a,b[1-2]", []string{"a", "b1", "b2"}},
	}

	for _, c := range cases {
		got, err := ExpandHostlist(c.spec)
		if err != nil {
			t.Errorf("ExpandHostlist(%q) returned error: %v", c.spec, err)
			continue
		}
		if len(got) != len(c.want) {
			t.Errorf("ExpandHostlist(%q) = %v, want %v", c.spec, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("ExpandHostlist(%q)[%d] = %q, want %q", c.spec, i, got[i], c.want[i])
			}
		}
	}
}

func TestExpandHostlist_InvalidRange(t *testing.T) {
	if _, err := ExpandHostlist("cmm[3-1]"); err == nil {
		t.Error("expected error for descending range, got nil")
	}
	if _, err := ExpandHostlist("cmm[abc]"); err == nil {
		t.Error("expected error for non-numeric range, got nil")
	}
}
