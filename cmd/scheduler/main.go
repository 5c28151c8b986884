// Scheduler is a standalone, single-purpose dispatcher: it loads one
// timeline document, computes its scheduled bundles against a lead-time
// floor, and sends them over OSC. It is the tool a show runs under cron
// or a process supervisor, independent of the monitor daemon.
package main

import (
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/large-farva/fleetcore/internal/osccrypto"
	"github.com/large-farva/fleetcore/internal/scheduler"
	"github.com/large-farva/fleetcore/internal/secrets"
)

func main() {
	var (
		host            = pflag.String("host", "255.255.255.255", "OSC destination host")
		port            = pflag.Int("port", 9000, "OSC destination port")
		leadTime        = pflag.Float64("lead-time", -1, "Lead-time override in seconds (negative uses the timeline default)")
		spacing         = pflag.Float64("spacing", 0.05, "Seconds between bundle sends")
		broadcast       = pflag.Bool("broadcast", true, "Send with SO_BROADCAST enabled")
		dryRun          = pflag.Bool("dry-run", false, "Compute the schedule without sending")
		baseTime        = pflag.String("base-time", "", "Base time override (ISO-8601); empty means now")
		targetMapPath   = pflag.String("target-map", "", "Path to a logical-id to device-id target map")
		defaultTargets  = pflag.StringSlice("default-targets", nil, "Device ids to use for events that list no targets")
		keyFromEnv      = pflag.Bool("key-from-env", false, "Load OSC key material from OSC_KEY_HEX/OSC_IV_HEX")
		ageKeyFile      = pflag.String("age-key-file", "", "Path to an age-encrypted key file")
		ageIdentityFile = pflag.String("age-identity-file", "", "Path to the age identity used to decrypt --age-key-file")
		envFile         = pflag.String("env-file", "", "Path to a .env file of development overrides")
	)
	pflag.Parse()

	if pflag.NArg() < 1 {
		log.Fatal("usage: scheduler [flags] <timeline.json>")
	}

	if *envFile != "" {
		if err := secrets.LoadDotEnv(*envFile); err != nil {
			log.Fatalf("env file load failed: %v", err)
		}
	}

	logger := log.New(os.Stderr, "scheduler ", log.LstdFlags|log.Lmicroseconds)

	baseTimeVal, err := scheduler.ParseBaseTime(*baseTime)
	if err != nil {
		logger.Fatalf("invalid base time: %v", err)
	}

	var km *osccrypto.KeyMaterial
	switch {
	case *ageKeyFile != "":
		m, err := secrets.KeyMaterialFromAgeFile(*ageKeyFile, *ageIdentityFile)
		if err != nil {
			logger.Fatalf("loading key material from age file: %v", err)
		}
		km = &m
	case *keyFromEnv:
		m, err := secrets.KeyMaterialFromEnv()
		if err != nil {
			logger.Fatalf("loading key material from environment: %v", err)
		}
		km = &m
	}

	cfg := scheduler.Config{
		TimelinePath:     pflag.Arg(0),
		Host:             *host,
		Port:             *port,
		LeadTimeOverride: *leadTime,
		BundleSpacing:    *spacing,
		Broadcast:        *broadcast,
		DryRun:           *dryRun,
		BaseTime:         &baseTimeVal,
		TargetMapPath:    *targetMapPath,
		DefaultTargets:   *defaultTargets,
		KeyMaterial:      km,
		Logger:           logger,
	}

	report, err := scheduler.Execute(cfg)
	if err != nil {
		logger.Fatalf("schedule failed: %v", err)
	}

	logger.Printf("scheduled %d bundle(s)", len(report.Bundles))
	if report.Sent {
		if len(report.SendFailures) > 0 {
			logger.Printf("%d bundle(s) failed to send", len(report.SendFailures))
			os.Exit(1)
		}
		logger.Printf("all bundles sent")
	} else {
		logger.Printf("dry run, nothing sent")
	}
}
