package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dixieflatline76/Retouch/asset"
	"github.com/dixieflatline76/Retouch/config"
	"github.com/dixieflatline76/Retouch/pkg/api"
	"github.com/dixieflatline76/Retouch/pkg/editor"
	"github.com/dixieflatline76/Retouch/pkg/export"
	"github.com/dixieflatline76/Retouch/util/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfgFile := flag.String("config", config.GetFilename(), "path to the JSON configuration file")
	addr := flag.String("addr", "", "listen address, overrides listen_addr from the configuration")
	writeDefaults := flag.Bool("write-config", false, "write the effective configuration to -config and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(config.AppName, config.Version())
		return
	}

	cfg := config.GetConfig()
	if *cfgFile != config.GetFilename() {
		if err := cfg.LoadFromFile(*cfgFile); err != nil && !(*writeDefaults && os.IsNotExist(err)) {
			log.Fatalf("Failed to load configuration %s: %v", *cfgFile, err)
		}
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *writeDefaults {
		if err := cfg.SaveTo(*cfgFile); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		log.Printf("Configuration written to %s", *cfgFile)
		return
	}

	if code := serve(cfg, run); code != 0 {
		os.Exit(code)
	}
}

// serve holds the single-instance lock while run executes and returns the
// process exit code. The lock is released before returning.
func serve(cfg *config.Config, run func(*config.Config) error) int {
	locked, err := acquireLock()
	if err != nil {
		log.Printf("Failed to acquire instance lock: %v", err)
		return 1
	}
	if !locked {
		log.Printf("Another instance of %s is already running.", config.AppName)
		return 0
	}
	defer releaseLock()

	if err := run(cfg); err != nil {
		log.Printf("%s stopped: %v", config.AppName, err)
		return 1
	}
	return 0
}

func run(cfg *config.Config) error {
	hub := api.NewHub()
	notifier := editor.MultiNotifier{editor.LogNotifier{}, hub}
	previews := export.NewPreviewStore()

	session, err := editor.NewSession(editor.Options{
		Faces:          asset.NewManager(),
		Previews:       previews,
		Notifier:       notifier,
		Resampler:      cfg.Resampler,
		DefaultQuality: cfg.DefaultQuality,
	})
	if err != nil {
		return err
	}

	enhancer := editor.NewEnhancer(session, editor.EnhancerOptions{
		Scheduler:        editor.TimerScheduler{},
		Notifier:         notifier,
		StepDelay:        time.Duration(cfg.StepDelay),
		DoneDisplayDelay: time.Duration(cfg.DoneDisplayDelay),
	})

	server := api.NewServer(session, enhancer, previews, hub, api.Options{
		Addr:              cfg.ListenAddr,
		RequestsPerSecond: cfg.RequestsPerSecond,
		RequestBurst:      cfg.RequestBurst,
		UpscaleFactor:     cfg.UpscaleFactor,
		MaxUploadMB:       cfg.MaxUploadMB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	log.Printf("%s %s ready on http://%s", config.AppName, config.Version(), cfg.ListenAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}
