package ctl

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/large-farva/fleetcore/internal/osccrypto"
	"github.com/large-farva/fleetcore/internal/scheduler"
	"github.com/large-farva/fleetcore/internal/secrets"
)

// SendOptions controls the send command, which drives the scheduler
// directly against a timeline document rather than going through the
// monitor daemon's HTTP API.
type SendOptions struct {
	TimelinePath     string
	Host             string
	Port             int
	LeadTimeOverride float64
	BundleSpacing    float64
	Broadcast        bool
	DryRun           bool
	BaseTime         string
	TargetMapPath    string
	DefaultTargets   []string
	KeyFromEnv       bool
	AgeKeyFile       string
	AgeIdentityFile  string
	JSON             bool
}

// Send loads the timeline at opts.TimelinePath, schedules its bundles,
// and dispatches them over UDP unless DryRun is set.
func Send(opts SendOptions) error {
	baseTime, err := scheduler.ParseBaseTime(opts.BaseTime)
	if err != nil {
		return err
	}

	var km *osccrypto.KeyMaterial
	switch {
	case opts.AgeKeyFile != "":
		m, err := secrets.KeyMaterialFromAgeFile(opts.AgeKeyFile, opts.AgeIdentityFile)
		if err != nil {
			return fmt.Errorf("loading key material from age file: %w", err)
		}
		km = &m
	case opts.KeyFromEnv:
		m, err := secrets.KeyMaterialFromEnv()
		if err != nil {
			return fmt.Errorf("loading key material from environment: %w", err)
		}
		km = &m
	}

	cfg := scheduler.Config{
		TimelinePath:     opts.TimelinePath,
		Host:             opts.Host,
		Port:             opts.Port,
		LeadTimeOverride: opts.LeadTimeOverride,
		BundleSpacing:    opts.BundleSpacing,
		Broadcast:        opts.Broadcast,
		DryRun:           opts.DryRun,
		BaseTime:         &baseTime,
		TargetMapPath:    opts.TargetMapPath,
		DefaultTargets:   opts.DefaultTargets,
		KeyMaterial:      km,
		Logger:           log.New(os.Stderr, "send ", log.LstdFlags|log.Lmicroseconds),
	}

	report, err := scheduler.Execute(cfg)
	if err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(report)
	}

	fmt.Println()
	fmt.Println(header("  TIMELINE SEND"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-14s %d\n", colorize(dim, "Bundles:"), len(report.Bundles))
	fmt.Printf("  %-14s %s:%d\n", colorize(dim, "Destination:"), opts.Host, opts.Port)
	if report.Sent {
		if len(report.SendFailures) == 0 {
			fmt.Printf("  %-14s %s\n", colorize(dim, "Result:"), colorize(green, "all bundles sent"))
		} else {
			fmt.Printf("  %-14s %s (%d failed)\n", colorize(dim, "Result:"), colorize(yellow, "partial"), len(report.SendFailures))
			for _, f := range report.SendFailures {
				fmt.Printf("    %s %v\n", colorize(red, "-"), f)
			}
		}
	} else {
		fmt.Printf("  %-14s %s\n", colorize(dim, "Result:"), colorize(dim, "dry run, nothing sent"))
	}
	fmt.Println()

	return nil
}
