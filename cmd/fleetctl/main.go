// Fleetctl is the command-line client for monitoring and controlling a
// running monitor daemon. It connects over HTTP and WebSocket to query
// device status and diagnostics and to stream live telemetry, and can
// also drive the scheduler directly against a timeline document.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/large-farva/fleetcore/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "Monitor daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter heartbeat,announce)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags are not rejected by the global set.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, ctl.StatusOptions{JSON: *jsonOut})

	case "devices":
		err = ctl.Devices(*host, ctl.DevicesOptions{JSON: *jsonOut})

	case "diagnostics":
		err = ctl.Diagnostics(*host, ctl.DiagnosticsOptions{JSON: *jsonOut})

	case "stats":
		err = ctl.Stats(*host, ctl.StatsOptions{JSON: *jsonOut})

	case "set-note":
		noteFlags := pflag.NewFlagSet("set-note", pflag.ContinueOnError)
		note := noteFlags.String("note", "", "Note text (empty clears the note)")
		_ = noteFlags.Parse(subArgs)
		if noteFlags.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "error: set-note requires a device or event id")
			os.Exit(2)
		}
		err = ctl.SetNote(*host, noteFlags.Arg(0), *note, ctl.SetNoteOptions{JSON: *jsonOut})

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	// ── Control ───────────────────────────────────────────────────
	case "send":
		opts := ctl.SendOptions{JSON: *jsonOut}
		sendFlags := pflag.NewFlagSet("send", pflag.ContinueOnError)
		sendFlags.StringVar(&opts.Host, "dest-host", "255.255.255.255", "OSC destination host")
		sendFlags.IntVar(&opts.Port, "dest-port", 9000, "OSC destination port")
		sendFlags.Float64Var(&opts.LeadTimeOverride, "lead-time", -1, "Lead-time override in seconds (negative uses the timeline default)")
		sendFlags.Float64Var(&opts.BundleSpacing, "spacing", 0.05, "Seconds between bundle sends")
		sendFlags.BoolVar(&opts.Broadcast, "broadcast", true, "Send with SO_BROADCAST enabled")
		sendFlags.BoolVar(&opts.DryRun, "dry-run", false, "Compute the schedule without sending")
		sendFlags.StringVar(&opts.BaseTime, "base-time", "", "Base time override (ISO-8601); empty means now")
		sendFlags.StringVar(&opts.TargetMapPath, "target-map", "", "Path to a logical-id to device-id target map")
		sendFlags.StringSliceVar(&opts.DefaultTargets, "default-targets", nil, "Device ids to use for events that list no targets")
		sendFlags.BoolVar(&opts.KeyFromEnv, "key-from-env", false, "Load OSC key material from OSC_KEY_HEX/OSC_IV_HEX")
		sendFlags.StringVar(&opts.AgeKeyFile, "age-key-file", "", "Path to an age-encrypted key file")
		sendFlags.StringVar(&opts.AgeIdentityFile, "age-identity-file", "", "Path to the age identity used to decrypt --age-key-file")
		_ = sendFlags.Parse(subArgs)
		if sendFlags.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "error: send requires a timeline path")
			os.Exit(2)
		}
		opts.TimelinePath = sendFlags.Arg(0)
		err = ctl.Send(opts)

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  fleetctl — fleet monitor control CLI

  USAGE
    fleetctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show daemon state, uptime, and registry size
    devices         List devices known to the registry
    diagnostics     List operator notes attached to devices or events
    set-note        Attach or clear an operator note
    stats           Show dispatch and heartbeat counters from /metrics

  COMMANDS (control)
    send            Schedule and dispatch a timeline document over OSC

  COMMANDS (live)
    watch           Stream live telemetry events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    set-note <id>:
        --note TEXT          Note text (empty clears the note)

    send <timeline.json>:
        --dest-host HOST     OSC destination host (default: 255.255.255.255)
        --dest-port PORT     OSC destination port (default: 9000)
        --lead-time SECS     Lead-time override (negative uses the timeline default)
        --spacing SECS       Seconds between bundle sends (default: 0.05)
        --broadcast          Send with SO_BROADCAST enabled (default: true)
        --dry-run            Compute the schedule without sending
        --base-time TIME     Base time override (ISO-8601); empty means now
        --target-map PATH    Path to a logical-id to device-id target map
        --default-targets    Device ids to use for events that list no targets
        --key-from-env       Load OSC key material from OSC_KEY_HEX/OSC_IV_HEX
        --age-key-file PATH  Path to an age-encrypted key file
        --age-identity-file  Path to the age identity used to decrypt --age-key-file

  EXAMPLES
    fleetctl status
    fleetctl --json devices
    fleetctl diagnostics
    fleetctl set-note dev-aabbccddeeff --note "swapped speaker, 2026-08-01"
    fleetctl --filter heartbeat,announce watch
    fleetctl send show.json --dry-run
    fleetctl send show.json --key-from-env --dest-host 10.0.1.255

`)
}
