// Monitor is the main daemon for the fleet's device registry and
// heartbeat monitor.
//
// It loads configuration, starts the HTTP control/status server, the
// telemetry WebSocket fan-out, and the OSC heartbeat listener. Shutdown
// is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/fleetcore/internal/app"
	"github.com/large-farva/fleetcore/internal/config"
	"github.com/large-farva/fleetcore/internal/secrets"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/fleetcore/fleetcore.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides the config file's server.bind)")
		envFile    = pflag.String("env-file", "", "Path to a .env file of development overrides")
	)
	pflag.Parse()

	if *envFile != "" {
		if err := secrets.LoadDotEnv(*envFile); err != nil {
			log.Fatalf("env file load failed: %v", err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := log.New(os.Stdout, "monitor ", log.LstdFlags|log.Lmicroseconds)

	a := app.New(app.Options{
		Logger: logger,
		Cfg:    cfg,
		Bind:   *bind,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("monitor failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
