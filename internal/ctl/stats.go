package ctl

import (
	"fmt"
	"strconv"
	"strings"
)

// statsMetrics lists the Prometheus metric names stats renders, in
// display order.
var statsMetrics = []struct {
	name  string
	label string
}{
	{"fleetcore_heartbeats_accepted_total", "Heartbeats accepted"},
	{"fleetcore_heartbeats_rejected_total", "Heartbeats rejected"},
	{"fleetcore_announces_accepted_total", "Announces accepted"},
	{"fleetcore_bundles_sent_total", "Bundles sent"},
	{"fleetcore_transport_errors_total", "Transport errors"},
	{"fleetcore_encryption_failures_total", "Encryption failures"},
	{"fleetcore_registry_size", "Registry size"},
	{"fleetcore_ws_clients", "WS clients connected"},
}

// StatsOptions controls the stats command.
type StatsOptions struct {
	JSON bool
}

// Stats scrapes the daemon's Prometheus text exposition at /metrics and
// prints the fleet's counters and gauges.
func Stats(baseURL string, opts StatsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	status, body, err := getRaw(baseURL, "/metrics")
	if err != nil {
		return err
	}
	if status != 200 {
		return fmt.Errorf("HTTP %d from /metrics", status)
	}

	values := parsePrometheusText(string(body))

	if opts.JSON {
		out := make(map[string]float64, len(statsMetrics))
		for _, m := range statsMetrics {
			if v, ok := values[m.name]; ok {
				out[m.name] = v
			}
		}
		return printJSON(out)
	}

	fmt.Println()
	fmt.Println(header("  FLEET STATISTICS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	for _, m := range statsMetrics {
		v, ok := values[m.name]
		if !ok {
			continue
		}
		fmt.Printf("  %-22s %s\n", colorize(dim, m.label+":"), formatMetricValue(v))
	}
	fmt.Println()

	return nil
}

// parsePrometheusText extracts the last value for each metric name from
// a Prometheus text-exposition body, skipping comment and HELP/TYPE
// lines and ignoring any label set.
func parsePrometheusText(body string) map[string]float64 {
	values := make(map[string]float64)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := fields[0]
		if idx := strings.IndexByte(name, '{'); idx >= 0 {
			name = name[:idx]
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		values[name] = v
	}
	return values
}

func formatMetricValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
