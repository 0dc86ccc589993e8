package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 9090
storage:
  db_path: /tmp/chatdb
chat:
  populate_depth: 5
  max_body_len: 2048
  default_author: ghost
hub:
  send_buffer: 128
rate_limit:
  rps: 2.5
  burst: 5
janitor:
  enabled: true
  cron: "*/5 * * * *"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/tmp/chatdb" {
		t.Fatalf("db path: %s", cfg.Storage.DBPath)
	}
	if cfg.PopulateDepth() != 5 {
		t.Fatalf("depth: %d", cfg.PopulateDepth())
	}
	if cfg.Chat.MaxBodyLen != 2048 || cfg.Chat.DefaultAuthor != "ghost" {
		t.Fatalf("chat section: %+v", cfg.Chat)
	}
	if cfg.Hub.SendBuffer != 128 {
		t.Fatalf("hub section: %+v", cfg.Hub)
	}
	if cfg.RateLimit.RPS != 2.5 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("rate limit: %+v", cfg.RateLimit)
	}
	if !cfg.Janitor.Enabled || cfg.Janitor.Cron != "*/5 * * * *" {
		t.Fatalf("janitor: %+v", cfg.Janitor)
	}
}

func TestPopulateDepthDefault(t *testing.T) {
	var cfg Config
	if cfg.PopulateDepth() != 3 {
		t.Fatalf("unset depth must default to 3, got %d", cfg.PopulateDepth())
	}
}

func TestEffectiveConfigExplicitFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9999\nstorage:\n  db_path: /data/db\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	flags := Flags{Addr: ":8080", DB: "./.database", Config: path, Set: map[string]bool{"config": true}}
	eff, err := LoadEffectiveConfig(flags, cfg, true, &Config{}, false)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Source != "config" {
		t.Fatalf("source: %s", eff.Source)
	}
	if eff.Addr != ":9999" || eff.DBPath != "/data/db" {
		t.Fatalf("merged values: addr=%s db=%s", eff.Addr, eff.DBPath)
	}
}

func TestEffectiveConfigExplicitFileMissing(t *testing.T) {
	flags := Flags{Config: "/does/not/exist.yaml", Set: map[string]bool{"config": true}}
	if _, err := LoadEffectiveConfig(flags, &Config{}, false, &Config{}, false); err == nil {
		t.Fatalf("explicit --config pointing nowhere must fail")
	}
}

func TestEffectiveConfigFlagsWin(t *testing.T) {
	fileCfg := &Config{}
	fileCfg.Server.Port = 7000
	fileCfg.Storage.DBPath = "/file/db"

	flags := Flags{Addr: ":6000", DB: "/flag/db", Set: map[string]bool{"addr": true, "db": true}}
	eff, err := LoadEffectiveConfig(flags, fileCfg, true, &Config{}, false)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Source != "flags" || eff.Addr != ":6000" || eff.DBPath != "/flag/db" {
		t.Fatalf("flags must win: %+v", eff)
	}
}

func TestEffectiveConfigEnvFallback(t *testing.T) {
	envCfg := &Config{}
	envCfg.Server.Address = "0.0.0.0"
	envCfg.Server.Port = 8888
	envCfg.Storage.DBPath = "/env/db"

	flags := Flags{Addr: ":8080", DB: "./.database", Set: map[string]bool{}}
	eff, err := LoadEffectiveConfig(flags, &Config{}, false, envCfg, true)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Source != "env" || eff.Addr != "0.0.0.0:8888" || eff.DBPath != "/env/db" {
		t.Fatalf("env must apply without flags/file: %+v", eff)
	}
}

func TestEffectiveConfigFlagDefaults(t *testing.T) {
	flags := Flags{Addr: ":8080", DB: "./.database", Set: map[string]bool{}}
	eff, err := LoadEffectiveConfig(flags, &Config{}, false, &Config{}, false)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Source != "flags" || eff.Addr != ":8080" || eff.DBPath != "./.database" {
		t.Fatalf("flag defaults must apply last: %+v", eff)
	}
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("THREADCHAT_ADDR", "127.0.0.1:7777")
	t.Setenv("THREADCHAT_DB_PATH", "/env/db")
	t.Setenv("THREADCHAT_POPULATE_DEPTH", "4")
	t.Setenv("THREADCHAT_RATE_RPS", "1.5")

	cfg, used := ParseConfigEnvs()
	if !used {
		t.Fatalf("env vars present but not detected")
	}
	if cfg.Addr() != "127.0.0.1:7777" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/env/db" || cfg.Chat.PopulateDepth != 4 || cfg.RateLimit.RPS != 1.5 {
		t.Fatalf("env parsing: %+v", cfg)
	}
}
