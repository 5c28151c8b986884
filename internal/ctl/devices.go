package ctl

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DeviceView mirrors one entry of the registry.State JSON returned by
// GET /api/devices.
type DeviceView struct {
	ID              string  `json:"ID"`
	Mac             string  `json:"Mac"`
	FirmwareVersion string  `json:"FirmwareVersion"`
	Alias           *string `json:"Alias"`
	LastSeen        string  `json:"LastSeen"`
	Heartbeat       struct {
		Count  uint64  `json:"Count"`
		MeanMs float64 `json:"MeanMs"`
	} `json:"Heartbeat"`
}

// DevicesOptions controls the devices command.
type DevicesOptions struct {
	JSON bool
}

// Devices lists every device known to the registry, most recently seen
// first.
func Devices(baseURL string, opts DevicesOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Devices []DeviceView `json:"devices"`
	}
	if err := getJSON(baseURL, "/api/devices", &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	views := make([]DeviceView, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		views = append(views, d)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].LastSeen > views[j].LastSeen })

	fmt.Println()
	fmt.Println(header("  DEVICE REGISTRY"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 70)))
	fmt.Printf("  %s %s %s %s %s\n",
		padRight(colorize(dim, "ID"), 24),
		padRight(colorize(dim, "ALIAS"), 16),
		padRight(colorize(dim, "FIRMWARE"), 12),
		padRight(colorize(dim, "LATENCY"), 12),
		colorize(dim, "LAST SEEN"),
	)
	for _, d := range views {
		alias := "-"
		if d.Alias != nil && *d.Alias != "" {
			alias = *d.Alias
		}
		latency := "-"
		if d.Heartbeat.Count > 0 {
			latency = fmt.Sprintf("%.1f ms", d.Heartbeat.MeanMs)
		}
		lastSeen := d.LastSeen
		if t, err := time.Parse(time.RFC3339Nano, d.LastSeen); err == nil {
			lastSeen = t.Local().Format("15:04:05")
		}
		fmt.Printf("  %s %s %s %s %s\n",
			padRight(d.ID, 24),
			padRight(alias, 16),
			padRight(d.FirmwareVersion, 12),
			padRight(latency, 12),
			lastSeen,
		)
	}
	fmt.Println()
	fmt.Printf("  %d device(s)\n\n", len(views))

	return nil
}
