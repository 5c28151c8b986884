package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/large-farva/fleetcore/internal/wsclient"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// Watch connects to the monitor daemon's telemetry WebSocket endpoint and
// streams events to the terminal until interrupted. Reconnects with
// backoff across transient disconnects, via internal/wsclient.
func Watch(baseURL string, opts WatchOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	client, err := wsclient.New(baseURL+"/ws", log.New(os.Stderr, "", 0))
	if err != nil {
		return err
	}

	if !opts.JSON {
		fmt.Println()
		fmt.Printf("  %s %s\n", colorize(green, "connected"), colorize(dim, baseURL))
		if len(opts.Filter) > 0 {
			fmt.Printf("  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))
		fmt.Println()
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		if !opts.JSON {
			fmt.Println()
			fmt.Println(colorize(dim, "  disconnecting..."))
		}
		cancel()
	}()

	err = client.Run(ctx, func(raw []byte) {
		if len(filterSet) > 0 {
			var ev map[string]any
			if err := json.Unmarshal(raw, &ev); err == nil {
				evType, _ := ev["type"].(string)
				if !filterSet[evType] {
					return
				}
			}
		}
		if opts.JSON {
			fmt.Println(string(raw))
		} else {
			renderEvent(raw)
		}
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

// renderEvent parses a JSON telemetry event and prints it in a
// human-friendly format. Falls back to raw JSON for unrecognized types.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Printf("  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := formatEventTime(ev)

	switch evType {
	case "hello":
		count, _ := ev["device_count"].(float64)
		fmt.Printf("  %s %s  %d device(s) known\n", colorize(dim, ts), colorize(bold, "HELLO"), int(count))

	case "heartbeat":
		deviceID, _ := ev["device_id"].(string)
		latency, _ := ev["latency_ms"].(float64)
		seq, _ := ev["sequence"].(float64)
		fmt.Printf("  %s %s  %s  seq=%d  %.2f ms\n",
			colorize(dim, ts),
			colorize(dim, "heartbeat"),
			colorize(cyan, padRight(deviceID, 20)),
			int64(seq),
			latency,
		)

	case "announce":
		deviceID, _ := ev["device_id"].(string)
		mac, _ := ev["mac"].(string)
		fw, _ := ev["fw_version"].(string)
		fmt.Printf("  %s %s  %s  mac=%s fw=%s\n",
			colorize(dim, ts),
			colorize(bold, "ANNOUNCE"),
			colorize(cyan, deviceID),
			mac, fw,
		)

	case "diagnostics":
		severity, _ := ev["severity"].(string)
		deviceID, _ := ev["device_id"].(string)
		reason, _ := ev["reason"].(string)
		fmt.Printf("  %s %s  %s  %s\n",
			colorize(dim, ts),
			colorize(severityColor(severity), strings.ToUpper(severity)),
			colorize(cyan, deviceID),
			reason,
		)

	case "log":
		from, _ := ev["from"].(string)
		to, _ := ev["to"].(string)
		fmt.Printf("  %s %s  %s %s %s\n",
			colorize(dim, ts),
			colorize(bold, "STATE"),
			colorize(stateColor(from), fmt.Sprint(from)),
			colorize(dim, "->"),
			colorize(stateColor(to), fmt.Sprint(to)),
		)

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Printf("  %s\n", string(raw))
			return
		}
		fmt.Printf("  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["timestamp"].(string)
	if !ok || tsRaw == "" {
		return "          "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		if len(tsRaw) >= 10 {
			return tsRaw[:10]
		}
		return tsRaw
	}
	return t.Local().Format("15:04:05")
}
