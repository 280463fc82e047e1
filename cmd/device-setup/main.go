// Command device-setup logs in to the telemetry server and registers a device,
// printing the API key the device must send as X-API-KEY.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

const defaultServerURL = "http://localhost:3536"

func main() {
	serverURL := flag.String("server", envOr("TELEMETRY_SERVER_URL", defaultServerURL), "telemetry server base URL")
	flag.Parse()

	p := tea.NewProgram(initialModel(newAPIClient(*serverURL)))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
