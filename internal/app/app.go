// Package app wires together the monitor daemon's HTTP control/status
// server, telemetry WebSocket fan-out, heartbeat monitor, and device
// registry. It owns the daemon's lifecycle and is the single source of
// truth for the current operating state.
package app

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/large-farva/fleetcore/internal/config"
	"github.com/large-farva/fleetcore/internal/diagnostics"
	"github.com/large-farva/fleetcore/internal/heartbeat"
	"github.com/large-farva/fleetcore/internal/metrics"
	"github.com/large-farva/fleetcore/internal/registry"
	"github.com/large-farva/fleetcore/internal/wsfanout"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
	Bind   string
}

// App is the monitor daemon's top-level process: the HTTP control/status
// server, the telemetry fan-out hub, the heartbeat monitor, and the
// device registry.
type App struct {
	log  *log.Logger
	bind string

	cfgMu sync.Mutex
	cfg   config.Config

	startedAt time.Time
	state     atomic.Value // current state string (BOOTING, RUNNING, etc.)

	reg     *registry.Registry
	notes   *diagnostics.NoteStore
	hub     *wsfanout.Hub
	met     *metrics.Metrics
	monitor *heartbeat.Monitor

	server *http.Server
}

// New creates an App in the BOOTING state. Call Run to start serving.
func New(opts Options) *App {
	reg := registry.New(opts.Cfg.Heartbeat.RegistryPath)
	notes := diagnostics.NewNoteStore(opts.Cfg.Heartbeat.RegistryPath + ".notes.json")
	hub := wsfanout.NewHub(reg)
	met := metrics.New()

	a := &App{
		log:       opts.Logger,
		cfg:       opts.Cfg,
		bind:      opts.Bind,
		startedAt: time.Now(),
		reg:       reg,
		notes:     notes,
		hub:       hub,
		met:       met,
	}
	a.state.Store("BOOTING")
	return a
}

// Run loads the registry and diagnostics notes from disk, starts the HTTP
// server, telemetry hub, and heartbeat monitor, and blocks until ctx is
// cancelled or the server returns an error.
func (a *App) Run(ctx context.Context) error {
	if err := a.reg.Load(); err != nil {
		a.log.Printf("registry load failed, starting empty: %v", err)
	}
	if err := a.notes.Load(); err != nil {
		a.log.Printf("diagnostics notes load failed, starting empty: %v", err)
	}

	bind := a.bind
	if bind == "" {
		bind = a.getConfig().Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	r := chi.NewRouter()
	r.Get("/healthz", a.handleHealthz)
	r.Get("/api/status", a.handleStatus)
	r.Get("/api/version", a.handleVersion)
	r.Get("/api/devices", a.handleDevices)
	r.Get("/api/diagnostics", a.handleDiagnosticsNotes)
	r.Post("/api/diagnostics/{id}", a.handleSetDiagnosticNote)
	r.Get(a.getConfig().Telemetry.Path, func(w http.ResponseWriter, req *http.Request) { a.hub.Handler().ServeHTTP(w, req) })
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		a.met.Handler(func() {
			a.met.SetRegistrySize(a.reg.Size())
		}).ServeHTTP(w, req)
	})

	a.server = &http.Server{
		Addr:              bind,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Printf("listening on http://%s", bind)

	go a.hub.Run(ctx)
	a.transition("RUNNING")

	cfg := a.getConfig()
	var csvSink *heartbeat.CSVSink
	if cfg.Heartbeat.CSVPath != "" {
		s, err := heartbeat.OpenCSVSink(cfg.Heartbeat.CSVPath)
		if err != nil {
			a.log.Printf("heartbeat csv open failed, continuing without csv: %v", err)
		} else {
			csvSink = s
		}
	}
	a.monitor = heartbeat.New(heartbeat.Config{
		Host:     cfg.Heartbeat.Host,
		Port:     cfg.Heartbeat.Port,
		Registry: a.reg,
		CSV:      csvSink,
		Quiet:    cfg.Heartbeat.Quiet,
		Hub:      a.hub,
		Metrics:  a.met,
		Logger:   a.log,
	})
	go func() {
		if err := a.monitor.Run(); err != nil {
			a.log.Printf("heartbeat monitor stopped: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		_ = a.monitor.Stop()
		if csvSink != nil {
			_ = csvSink.Close()
		}
		_ = a.server.Shutdown(context.Background())
	}()

	return a.server.Serve(ln)
}

func (a *App) getConfig() config.Config {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	return a.cfg
}

// transition atomically updates the daemon state and broadcasts the
// change to all connected WebSocket clients.
func (a *App) transition(newState string) {
	old := a.state.Load()
	if old != nil && old.(string) == newState {
		return
	}
	a.state.Store(newState)

	a.hub.BroadcastJSON(map[string]any{
		"type":      "log",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"from":      old,
		"to":        newState,
	})
}

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"name":           "fleetcore-monitor",
		"state":          a.state.Load(),
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"registry_size":  a.reg.Size(),
	}
	if du := diskUsage(filepath.Dir(a.getConfig().Heartbeat.RegistryPath)); du != nil {
		resp["disk"] = du
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
