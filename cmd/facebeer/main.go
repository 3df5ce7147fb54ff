// cmd/facebeer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"facebeer-go/bus"
	"facebeer-go/errcode"
	"facebeer-go/services/classifier"
	"facebeer-go/services/config"
	"facebeer-go/services/hal"
	"facebeer-go/services/heartbeat"
	"facebeer-go/services/journal"
	"facebeer-go/services/kiosk"
	"facebeer-go/services/recorder"
	"facebeer-go/services/telemetry"

	"golang.org/x/sync/errgroup"
)

// configEnv names the optional YAML config file.
const configEnv = "FACEBEER_CONFIG"

func main() {
	threshold, set, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	cfg, err := loadConfig(os.Getenv(configEnv), threshold, set)
	if err != nil {
		fmt.Fprintln(os.Stderr, "facebeer:", err)
		os.Exit(2)
	}
	log := cfg.Log.Logger(os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	reload := func() (config.Config, error) {
		return loadConfig(os.Getenv(configEnv), threshold, set)
	}

	if err := run(ctx, cfg, log, hup, reload); err != nil {
		log.Error("kiosk stopped", "code", errcode.Of(err), "err", err)
		stop()
		os.Exit(1)
	}
	log.Info("kiosk stopped")
}

// parseFlags reads -t/--threshold. set reports whether it was given.
func parseFlags(fs *flag.FlagSet, args []string) (threshold float64, set bool, err error) {
	fs.Float64Var(&threshold, "t", config.DefaultThreshold, "guest confidence threshold in (0,1)")
	fs.Float64Var(&threshold, "threshold", config.DefaultThreshold, "guest confidence threshold in (0,1)")
	if err := fs.Parse(args); err != nil {
		return 0, false, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return 0, false, flag.ErrHelp
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" || f.Name == "threshold" {
			set = true
		}
	})
	return threshold, set, nil
}

// loadConfig layers defaults, the config file, the environment and finally
// the command line.
func loadConfig(path string, threshold float64, set bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if set {
		cfg.Threshold = threshold
	}
	return cfg, cfg.Validate()
}

// run wires the kiosk. Each value on hup re-reads the configuration with
// reload and republishes what changed.
func run(ctx context.Context, cfg config.Config, log *slog.Logger, hup <-chan os.Signal, reload func() (config.Config, error)) error {
	b := bus.NewBus(32)
	cfgSvc := config.NewConfigService(cfg)
	cfgConn := b.NewConnection("config")
	cfgSvc.Start(ctx, cfgConn)

	kit, err := hal.Open(cfg.Hardware)
	if err != nil {
		return err
	}
	defer closeLogged(log, "hardware", kit)
	halConn := b.NewConnection("hal")
	kit.Publish(halConn)

	labels, err := classifier.ReadLabels(cfg.Classifier.Labels)
	if err != nil {
		return err
	}
	engine, err := classifier.NewExecEngine(cfg.Classifier.Command, cfg.Classifier.Model, cfg.Classifier.InputSize, cfg.Classifier.Timeout)
	if err != nil {
		return err
	}
	clf, err := classifier.New(labels, engine, cfg.Classifier.InputSize)
	if err != nil {
		return err
	}
	rec, err := recorder.New(cfg.Recorder.URL, cfg.Recorder.Timeout)
	if err != nil {
		return err
	}
	store, err := openJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	telOpts := telemetry.Options{Logger: log}
	if store != nil {
		defer closeLogged(log, "journal", store)
		telOpts.Journal = store
	} else {
		log.Warn("journal disabled, failed remote writes are not kept")
	}

	ctrl, err := kiosk.New(kiosk.Deps{
		Button:     kit.Button,
		Camera:     kit.Camera,
		Gas:        kit.Gas,
		Classifier: clf,
		Recorder:   rec,
		Display: kiosk.DisplayFunc(func(text string) kiosk.DisplayTask {
			return kit.Display.Start(text)
		}),
	}, cfg.Threshold,
		kiosk.WithLogger(log),
		kiosk.WithBus(b.NewConnection("kiosk")),
		kiosk.WithTimings(kiosk.Timings{
			ConfirmWindow: cfg.Kiosk.ConfirmWindow,
			BlowWindow:    cfg.Kiosk.BlowWindow,
			Settle:        cfg.Kiosk.Settle,
			Poll:          cfg.Kiosk.Poll,
		}),
	)
	if err != nil {
		return err
	}
	tel := telemetry.New(telOpts)

	g, gctx := errgroup.WithContext(ctx)
	if store != nil {
		g.Go(func() error { return store.Run(gctx, b.NewConnection("journal"), log) })
	}
	g.Go(func() error { return tel.Consume(gctx, b.NewConnection("telemetry")) })
	if cfg.Telemetry.Listen != "" {
		g.Go(func() error {
			// The kiosk keeps running without its status page.
			if err := tel.Serve(gctx, cfg.Telemetry.Listen); err != nil {
				log.Error("status server failed", "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		hb := &heartbeat.Service{Interval: cfg.Telemetry.Heartbeat, Log: log}
		return hb.Run(gctx, b.NewConnection("heartbeat"))
	})
	g.Go(func() error { return kit.WatchDisplay(gctx, halConn) })
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return reloadLoop(gctx, hup, reload, cfgSvc, cfgConn, log) })
	return g.Wait()
}

// reloadLoop republishes the configuration each time trigger fires. A
// config that fails to load or validate is logged and the old one kept.
// Only the heartbeat interval follows a reload live; other sections are
// republished for the status page and take effect on restart.
func reloadLoop(ctx context.Context, trigger <-chan os.Signal, load func() (config.Config, error),
	svc *config.ConfigService, conn *bus.Connection, log *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			cfg, err := load()
			if err != nil {
				log.Error("config reload rejected", "err", err)
				continue
			}
			log.Info("config reloaded", "changed", svc.Reload(conn, cfg))
		}
	}
}

// openJournal returns a nil store when path is empty.
func openJournal(path string) (*journal.Store, error) {
	if path == "" {
		return nil, nil
	}
	return journal.Open(path)
}

func closeLogged(log *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", "what", what, "err", err)
	}
}
