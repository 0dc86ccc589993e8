package app

import (
	"fmt"
	"strings"

	"threadchat/pkg/config"
)

// validateConfig rejects merged configurations the server cannot run with.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("no configuration resolved")
	}
	if strings.TrimSpace(eff.DBPath) == "" {
		return fmt.Errorf("db path is required (set --db, storage.db_path, or THREADCHAT_DB_PATH)")
	}
	if strings.TrimSpace(eff.Addr) == "" {
		return fmt.Errorf("listen address is required (set --addr, server.address, or THREADCHAT_ADDR)")
	}

	cfg := eff.Config
	if cfg.Chat.PopulateDepth < 0 {
		return fmt.Errorf("chat.populate_depth must not be negative")
	}
	if cfg.Chat.MaxBodyLen < 0 {
		return fmt.Errorf("chat.max_body_len must not be negative")
	}
	if cfg.Hub.SendBuffer < 0 {
		return fmt.Errorf("hub.send_buffer must not be negative")
	}
	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}

	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert == "") != (key == "") {
		return fmt.Errorf("TLS requires both cert_file and key_file")
	}
	return nil
}
