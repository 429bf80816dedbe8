package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "SLAB", "DISPLAY_EXTENT", "LOG_LEVEL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Slab.Width != 1000 || cfg.Slab.Height != 2000 {
		t.Fatalf("expected default slab 1000x2000, got %+v", cfg.Slab)
	}
	if cfg.DisplayExtent != 300 {
		t.Fatalf("expected display extent 300, got %v", cfg.DisplayExtent)
	}
	if len(cfg.Pieces) != 0 {
		t.Fatalf("expected no configured pieces, got %v", cfg.Pieces)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if !cfg.EnableRequestLogging || cfg.RateLimitRPS != defaultRateLimitRPS || cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SLAB", "1200 x 2400")
	t.Setenv("DISPLAY_EXTENT", "600")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := Load(&CLIOverrides{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.Slab.Width != 1200 || cfg.Slab.Height != 2400 {
		t.Fatalf("unexpected slab: %+v", cfg.Slab)
	}
	if cfg.DisplayExtent != 600 || cfg.RateLimitRPS != 5 {
		t.Fatalf("unexpected extent/rps: %v/%v", cfg.DisplayExtent, cfg.RateLimitRPS)
	}
}

func TestLoadIgnoresMalformedEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLAB", "huge")
	t.Setenv("DISPLAY_EXTENT", "-1")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Slab.Width != 1000 || cfg.DisplayExtent != 300 {
		t.Fatalf("expected defaults to survive malformed env, got %+v", cfg)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "test.env", "SLAB=500x700\nPORT=7070\n")
	t.Setenv("PORT", "6060")

	cfg, err := Load(&CLIOverrides{EnvFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Slab.Width != 500 || cfg.Slab.Height != 700 {
		t.Fatalf("expected slab from env file, got %+v", cfg.Slab)
	}
	if cfg.Port != "6060" {
		t.Fatalf("expected process environment to win over env file, got %s", cfg.Port)
	}
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(&CLIOverrides{EnvFile: filepath.Join(t.TempDir(), "missing.env")}); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	path := writeFile(t, "config.yaml", `
port: "8181"
slab:
  width: 600
  height: 900
pieces:
  - name: Door
    width: 200
    height: 300
  - name: Shelf
    width: 150
    height: 40
    color: "#00ff00"
display_extent: 450
write_timeout: 30s
enable_request_logging: false
rate_limit:
  burst: 10
`)

	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "8181" {
		t.Fatalf("expected YAML port to win over env, got %s", cfg.Port)
	}
	if cfg.Slab.Width != 600 || cfg.Slab.Height != 900 {
		t.Fatalf("unexpected slab: %+v", cfg.Slab)
	}
	if len(cfg.Pieces) != 2 || cfg.Pieces[1].Name != "Shelf" || cfg.Pieces[1].Color != "#00ff00" {
		t.Fatalf("unexpected pieces: %+v", cfg.Pieces)
	}
	if cfg.DisplayExtent != 450 || cfg.WriteTimeout != 30*time.Second {
		t.Fatalf("unexpected extent/timeout: %v/%s", cfg.DisplayExtent, cfg.WriteTimeout)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging to be disabled")
	}
	if cfg.RateLimitBurst != 10 || cfg.RateLimitRPS != defaultRateLimitRPS {
		t.Fatalf("expected only burst to change, got rps=%v burst=%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	clearEnv(t)

	tests := map[string]string{
		"bad duration":  "idle_timeout: soon\n",
		"bad syntax":    "slab: [\n",
		"invalid piece": "pieces:\n  - name: Flat\n    width: 10\n    height: 0\n",
		"invalid slab":  "slab:\n  width: 0\n  height: 10\n",
		"huge extent":   "display_extent: 1000000\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", content)
			if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadCLIOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLAB", "10x10")
	port := "9999"
	slab := "1000x2000"
	extent := 150.0
	burst := 3

	cfg, err := Load(&CLIOverrides{
		Port:           &port,
		Slab:           &slab,
		Pieces:         []string{"Left door:200x300", "Shelf:150x40:#00ff00"},
		DisplayExtent:  &extent,
		RateLimitBurst: &burst,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != port || cfg.Slab.Width != 1000 || cfg.DisplayExtent != 150 || cfg.RateLimitBurst != 3 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Pieces) != 2 || cfg.Pieces[0].Name != "Left door" || cfg.Pieces[1].Color != "#00ff00" {
		t.Fatalf("unexpected pieces: %+v", cfg.Pieces)
	}
}

func TestLoadCLIOverridesRejectMalformedValues(t *testing.T) {
	clearEnv(t)
	slab := "wide"

	if _, err := Load(&CLIOverrides{Slab: &slab}); err == nil {
		t.Fatalf("expected error for malformed slab")
	}
	if _, err := Load(&CLIOverrides{Pieces: []string{"no size"}}); err == nil {
		t.Fatalf("expected error for malformed piece")
	}
}
