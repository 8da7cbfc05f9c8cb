package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const validConfig = `
app:
  name: zingers
  version: 1.0.0
server:
  base_url: http://venue.test
  ws_url: ws://venue.test/asset/%s
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Session.InboxSize != 1024 {
		t.Errorf("inbox default: got %d", cfg.Session.InboxSize)
	}
	if cfg.Limits.MinPrice != 1 || cfg.Limits.MaxPrice != 200 {
		t.Errorf("price limit defaults: %d..%d", cfg.Limits.MinPrice, cfg.Limits.MaxPrice)
	}
	if cfg.Display.LeaderboardPollSec != 10 {
		t.Errorf("poll default: got %d", cfg.Display.LeaderboardPollSec)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ZINGERS_SERVER_URL", "http://other.test")
	t.Setenv("ZINGERS_WS_URL", "ws://other.test/asset/%s")

	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.BaseURL != "http://other.test" {
		t.Errorf("base URL not overridden: %s", cfg.Server.BaseURL)
	}
	if cfg.Server.WSURL != "ws://other.test/asset/%s" {
		t.Errorf("WS URL not overridden: %s", cfg.Server.WSURL)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing base url", "server:\n  ws_url: ws://x/asset/%s\n"},
		{"http ws url", "server:\n  base_url: http://x\n  ws_url: http://x/asset/%s\n"},
		{"no placeholder", "server:\n  base_url: http://x\n  ws_url: ws://x/asset/rye\n"},
		{"bad price bounds", validConfig + "limits:\n  min_price: 50\n  max_price: 10\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
