package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hexarena.live/internal/hexgrid"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return p
}

func TestLoad_EmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Arena.Radius != hexgrid.RadiusLarge {
		t.Fatalf("default radius: got %d", cfg.Arena.Radius)
	}
	if cfg.Stream.BackoffBaseMS != 200 || cfg.Stream.BackoffCapMS != 5000 {
		t.Fatalf("default backoff: %+v", cfg.Stream)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad_OverridesAndNormalize(t *testing.T) {
	p := writeTemp(t, `
stream:
  url_template: "ws://localhost:9000/battles/%s/ws"
  backoff_base_ms: 100
arena:
  radius: 1
  hex_size: 24
effects:
  lifetimes_ms:
    attack: 900
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Arena.Radius != hexgrid.RadiusSmall || cfg.Arena.HexSize != 24 {
		t.Fatalf("arena overrides: %+v", cfg.Arena)
	}
	// Unset fields fall back to defaults.
	if cfg.Stream.ReadTimeoutMS != 60000 {
		t.Fatalf("read timeout should default: %d", cfg.Stream.ReadTimeoutMS)
	}
	if cfg.Stream.BackoffCapMS < cfg.Stream.BackoffBaseMS {
		t.Fatalf("cap below base after normalize: %+v", cfg.Stream)
	}
	lifetimes := cfg.EffectLifetimes()
	if lifetimes["attack"] != 900*time.Millisecond {
		t.Fatalf("lifetime override: %v", lifetimes["attack"])
	}
}

func TestLoad_RejectsBadRadius(t *testing.T) {
	p := writeTemp(t, "arena:\n  radius: 5\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("radius 5 should be rejected")
	}
}

func TestLoad_RejectsTemplateWithoutPlaceholder(t *testing.T) {
	p := writeTemp(t, `stream:
  url_template: "ws://localhost:9000/battles/ws"
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("template without %%s should be rejected")
	}
}

func TestLoad_RejectsNonPositiveLifetime(t *testing.T) {
	p := writeTemp(t, `effects:
  lifetimes_ms:
    defend: 0
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("zero lifetime should be rejected")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file should error")
	}
}
