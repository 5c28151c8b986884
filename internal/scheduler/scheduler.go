// Package scheduler orchestrates load -> resolve -> schedule -> send for a
// timeline document, honouring the lead-time floor and inter-bundle
// spacing.
package scheduler

import (
	"log"
	"net"
	"strconv"
	"time"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
	"github.com/large-farva/fleetcore/internal/oscwire"
	"github.com/large-farva/fleetcore/internal/osccrypto"
	"github.com/large-farva/fleetcore/internal/resolver"
	"github.com/large-farva/fleetcore/internal/timeline"
	"github.com/large-farva/fleetcore/internal/udptransport"
)

// Config describes one scheduler run: where the timeline lives, where to
// send it, and the overrides that shape scheduling and dispatch.
type Config struct {
	TimelinePath     string
	Host             string
	Port             int
	LeadTimeOverride float64 // negative means "use the timeline's default"
	BundleSpacing    float64 // seconds between sends; must be >= 0.01
	Broadcast        bool
	DryRun           bool
	BaseTime         *time.Time // nil means "now"
	TargetMapPath    string
	DefaultTargets   []string
	KeyMaterial      *osccrypto.KeyMaterial
	Logger           *log.Logger
}

// Report is the outcome of a scheduler run: the computed bundles, whether
// they were actually sent, and per-bundle transport errors encountered
// along the way (the controller keeps going after one).
type Report struct {
	Bundles      []timeline.ScheduledBundle
	Sent         bool
	SendFailures []error
}

// Execute loads the timeline, builds the resolver, computes scheduled
// bundles, and — unless DryRun — dispatches them over UDP with the
// configured spacing. Lead-time floor and spacing validation happen
// before any socket I/O opens, so a bad override fails fast.
func Execute(cfg Config) (Report, error) {
	if cfg.TimelinePath == "" {
		return Report{}, fleeterrors.New(fleeterrors.TimelineInvalid, "scheduler.Execute", "timeline path is required")
	}

	doc, err := timeline.LoadDocument(cfg.TimelinePath)
	if err != nil {
		return Report{}, err
	}

	lead := doc.DefaultLeadTime
	if cfg.LeadTimeOverride >= 0.0 {
		lead = cfg.LeadTimeOverride
		if lead < timeline.MinimumLeadTimeSeconds {
			return Report{}, fleeterrors.Newf(fleeterrors.TimelineInvalid, "scheduler.Execute", "override lead time must be at least %.1f seconds", timeline.MinimumLeadTimeSeconds)
		}
	}

	res, err := buildResolver(cfg)
	if err != nil {
		return Report{}, err
	}

	baseTime := time.Now()
	if cfg.BaseTime != nil {
		baseTime = *cfg.BaseTime
	}

	bundles, err := timeline.Schedule(doc, baseTime, lead, res)
	if err != nil {
		return Report{}, err
	}

	report := Report{Bundles: bundles}
	if cfg.DryRun {
		return report, nil
	}

	if cfg.BundleSpacing < 0.01 {
		return report, fleeterrors.New(fleeterrors.TimelineInvalid, "scheduler.Execute", "bundle spacing must be at least 0.01 seconds")
	}

	failures, err := sendBundles(bundles, cfg)
	report.Sent = true
	report.SendFailures = failures
	return report, err
}

func buildResolver(cfg Config) (*resolver.Resolver, error) {
	res := resolver.New()
	if cfg.TargetMapPath != "" {
		entries, err := resolver.LoadTargetMap(cfg.TargetMapPath)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			res.SetMapping(entry.Logical, entry.Devices)
		}
	}
	if len(cfg.DefaultTargets) > 0 {
		res.SetDefaults(cfg.DefaultTargets)
	}
	return res, nil
}

// sendBundles opens a sender for the run's destination and dispatches
// each bundle in order, sleeping BundleSpacing seconds between sends (not
// after the last one). A per-bundle TransportError is collected but does
// not stop the run — the caller decides whether to treat any as fatal.
func sendBundles(bundles []timeline.ScheduledBundle, cfg Config) ([]error, error) {
	dest := &net.UDPAddr{IP: net.ParseIP(cfg.Host), Port: cfg.Port}
	if dest.IP == nil {
		resolved, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
		if err != nil {
			return nil, fleeterrors.Wrap(fleeterrors.TransportError, "scheduler.sendBundles", err)
		}
		dest = resolved
	}

	sender, err := udptransport.NewSender(dest, cfg.Broadcast, cfg.KeyMaterial)
	if err != nil {
		return nil, err
	}
	defer sender.Close()

	var failures []error
	for i, bundle := range bundles {
		packet := toOscBundle(bundle)
		if err := sender.SendPacket(packet); err != nil {
			failures = append(failures, err)
			if cfg.Logger != nil {
				cfg.Logger.Printf("scheduler: bundle %d failed to send: %v", i, err)
			}
		}
		if cfg.BundleSpacing > 0 && i+1 < len(bundles) {
			time.Sleep(time.Duration(cfg.BundleSpacing * float64(time.Second)))
		}
	}
	return failures, nil
}

func toOscBundle(b timeline.ScheduledBundle) oscwire.Bundle {
	elements := make([]oscwire.Packet, 0, len(b.Messages))
	for _, m := range b.Messages {
		elements = append(elements, m.Message)
	}
	return oscwire.Bundle{Timetag: timeline.ToTimetag(b.ExecTime), Elements: elements}
}
