package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string         `json:"name"`
	State         string         `json:"state"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	RegistrySize  int            `json:"registry_size"`
	Disk          map[string]any `json:"disk,omitempty"`
}

// VersionResponse mirrors the JSON returned by GET /api/version.
type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	BuiltAt   string `json:"built_at"`
}

// StatusOptions controls the status command.
type StatusOptions struct {
	JSON bool
}

// Status fetches the monitor daemon's status and version and prints a
// formatted summary.
func Status(baseURL string, opts StatusOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	var v VersionResponse
	if err := getJSON(baseURL, "/api/version", &v); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(map[string]any{"status": s, "version": v})
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	stateStr := colorize(stateColor(s.State), s.State)

	fmt.Println()
	fmt.Println(header("  FLEET MONITOR STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-14s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-14s %s\n", colorize(dim, "State:"), stateStr)
	fmt.Printf("  %-14s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-14s %d\n", colorize(dim, "Devices:"), s.RegistrySize)
	fmt.Printf("  %-14s %s (%s)\n", colorize(dim, "Version:"), v.Version, v.GoVersion)
	if s.Disk != nil {
		if free, ok := s.Disk["available_bytes"].(float64); ok {
			fmt.Printf("  %-14s %s free\n", colorize(dim, "Disk:"), formatBytes(int64(free)))
		}
	}
	fmt.Printf("  %-14s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Println()

	return nil
}
