package banner

import (
	"fmt"

	"threadchat/pkg/config"
)

const banner = `
████████╗██╗  ██╗██████╗ ███████╗ █████╗ ██████╗  ██████╗██╗  ██╗ █████╗ ████████╗
╚══██╔══╝██║  ██║██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
   ██║   ███████║██████╔╝█████╗  ███████║██║  ██║██║     ███████║███████║   ██║
   ██║   ██╔══██║██╔══██╗██╔══╝  ██╔══██║██║  ██║██║     ██╔══██║██╔══██║   ██║
   ██║   ██║  ██║██║  ██║███████╗██║  ██║██████╔╝╚██████╗██║  ██║██║  ██║   ██║
   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with runtime info from the effective
// config.
func Print(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)
	if eff.Config != nil {
		fmt.Printf("Depth:    %d\n", eff.Config.PopulateDepth())
		if eff.Config.Janitor.Enabled {
			cron := eff.Config.Janitor.Cron
			if cron == "" {
				cron = "(default)"
			}
			fmt.Printf("Janitor:  enabled, cron=%s\n", cron)
		} else {
			fmt.Println("Janitor:  disabled")
		}
		if eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
			fmt.Println("TLS:      configured")
		} else {
			fmt.Println("TLS:      unconfigured")
		}
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /messages  - Full forest snapshot (populated root trees)")
	fmt.Println("POST /messages  - Submit a message (JSON: body, author, parent_id)")
	fmt.Println("GET  /ws        - Realtime channel (submit in, broadcast out)")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/messages' -d '{\"body\":\"hi\",\"author\":\"Alice\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/messages'\n", addr)
	fmt.Println("\n== Logs: ======================================================")
}
