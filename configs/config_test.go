package configs

import (
	"testing"
	"time"
)

func TestParseCurrencyDefinitions(t *testing.T) {
	set := CurrencySetConfig{Definitions: "coins:local:2:true:0:0.05, gems:GLOBAL:0:false:100:0"}

	parsed, err := set.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 currencies, got %d", len(parsed))
	}

	coins := parsed[0]
	if coins.Identifier != "coins" || coins.Scope != "LOCAL" || coins.DecimalPlaces != 2 || !coins.Payable {
		t.Fatalf("unexpected coins config: %+v", coins)
	}
	if coins.TaxRate != "0.05" {
		t.Fatalf("expected tax rate 0.05, got %q", coins.TaxRate)
	}

	gems := parsed[1]
	if gems.Scope != "GLOBAL" || gems.Payable || gems.DefaultBalance != "100" {
		t.Fatalf("unexpected gems config: %+v", gems)
	}
}

func TestParseRejectsMalformedDefinition(t *testing.T) {
	cases := []string{
		"coins:LOCAL:2:true:0",          // missing tax rate
		"coins:LOCAL:two:true:0:0",      // bad decimal places
		"coins:LOCAL:2:sometimes:0:0",   // bad payable flag
		"",                              // nothing configured
	}
	for _, definitions := range cases {
		set := CurrencySetConfig{Definitions: definitions}
		if _, err := set.Parse(); err == nil {
			t.Fatalf("expected parse error for %q", definitions)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Storage.Type == "" {
		t.Fatal("expected a default storage type")
	}
	if cfg.Storage.SaveInterval < time.Second {
		t.Fatalf("expected a sane default save interval, got %s", cfg.Storage.SaveInterval)
	}
	if cfg.Server.Name == "" {
		t.Fatal("expected a default server tag for local currency scoping")
	}
}
