package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/soar/dsmapper/internal/config"
	"github.com/soar/dsmapper/internal/console"
	"github.com/soar/dsmapper/internal/engine"
	"github.com/soar/dsmapper/internal/gamepad/sdldriver"
	"github.com/soar/dsmapper/internal/hub"
	"github.com/soar/dsmapper/internal/inject"
	"github.com/soar/dsmapper/internal/server"
	"github.com/soar/dsmapper/internal/tray"
)

// os.Interrupt is Ctrl+C on every platform; SIGTERM covers service managers.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// quitFunc adapts a function to hub.Quitter.
type quitFunc func()

func (f quitFunc) Quit() { f() }

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Printf("Configuration error: %v", err)
		return 2
	}
	if cfg.File != "" {
		log.Printf("Using config file %s", cfg.File)
	}

	withConsole := console.IsRunningFromConsole()
	showTray := cfg.Tray || !withConsole

	injector, err := inject.Open(cfg.Uinput)
	if err != nil {
		log.Printf("Failed to open input injector: %v", err)
		return 1
	}
	defer func() {
		if err := injector.Close(); err != nil {
			log.Printf("Error closing input injector: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stopOnce sync.Once
	stop := func(reason string) {
		stopOnce.Do(func() {
			log.Println(reason)
			cancel()
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	defer signal.Stop(sigCh)

	consoleShutdown := make(chan struct{})
	reregister := console.SetupConsoleHandler(consoleShutdown)

	engineCfg := cfg.Engine()
	engineCfg.AfterInit = reregister
	eng := engine.New(sdldriver.New(cfg.Debug), injector, engineCfg)

	h := hub.NewHub()
	go h.Run()
	broadcaster := hub.NewBroadcaster(h, eng.Changes())
	go broadcaster.Run()

	var srv *server.Server
	serverErrCh := make(chan error, 1)
	pageURL := ""
	if cfg.Listen != "" {
		srv, err = server.New(h, broadcaster, quitFunc(func() { stop("Quit requested from status page") }), eng, frontendFS(), cfg.Listen)
		if err != nil {
			log.Printf("Failed to start status page: %v", err)
			return 1
		}
		pageURL = "http://" + cfg.Listen
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
	}

	var t *tray.Tray
	if showTray {
		t = tray.New(pageURL, func() { stop("Shutdown requested from tray") })
		go t.Run()
		go t.Watch(ctx, eng)
	} else {
		log.Println("Press Ctrl+C to exit")
	}

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- eng.Run(ctx)
	}()

	var runErr error
	select {
	case <-sigCh:
		stop("Shutting down...")
		runErr = <-engineErr
	case <-consoleShutdown:
		stop("Shutting down...")
		runErr = <-engineErr
	case err := <-serverErrCh:
		log.Printf("HTTP server error: %v", err)
		stop("Shutting down...")
		runErr = <-engineErr
	case runErr = <-engineErr:
		cancel()
	case <-ctx.Done():
		runErr = <-engineErr
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}
	if t != nil {
		t.Quit()
	}

	if runErr != nil {
		log.Printf("Mapper stopped: %v", runErr)
		return 1
	}
	log.Println("Mapper stopped")
	return 0
}
