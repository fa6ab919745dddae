package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendbot/internal/cache"
	"attendbot/internal/config"
	"attendbot/internal/jobs"
	appLog "attendbot/internal/log"
	"attendbot/internal/schedule"
	"attendbot/internal/sheet"
	"attendbot/internal/web"
)

type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	noPrewarm  bool
}

func main() {
	appLog.Info("attendbot starting", "version", "0.1.0")

	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("attendbot failed", err)
		os.Exit(1)
	}
	appLog.Info("attendbot exiting")
}

func run(flags flagConfig) error {
	if err := config.LoadDotEnv(flags.envPath); err != nil {
		return err
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if err := conf.ApplyEnv(); err != nil {
		return err
	}
	// CLI --listen overrides config file and env.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"cache_backend", conf.Cache.Backend,
		"storage_backend", conf.Storage.Backend,
		"admin_sheet", conf.Sheets.Admin,
		"current_sheet", conf.Sheets.Current,
		"testing", conf.Testing,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeCache, err := openCache(ctx, conf)
	if err != nil {
		return err
	}
	defer closeCache()

	book, closeBook, err := openWorkbook(ctx, conf)
	if err != nil {
		return err
	}
	defer closeBook()

	opts, err := conf.ScheduleOptions()
	if err != nil {
		return err
	}
	svc := schedule.NewService(book, cache.New(backend), opts)

	sched, err := jobs.New(svc, jobs.Specs{
		Clear:   conf.Cache.ClearCron,
		Prewarm: conf.Cache.PrewarmCron,
	}, opts.Location, 0)
	if err != nil {
		return err
	}

	if !flags.noPrewarm {
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := svc.Prewarm(warmCtx); err != nil {
			// The first request will fill the cache instead.
			appLog.Warn("initial prewarm failed", "error", err.Error())
		}
		cancel()
	}

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched.Start()
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", "addr", conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			sched.Stop(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
	sched.Stop(shutdownCtx)
	return nil
}

func openCache(ctx context.Context, conf *config.Config) (cache.Backend, func(), error) {
	if conf.Cache.Backend != "redis" {
		return cache.NewMemory(), func() {}, nil
	}
	r := cache.NewRedis(conf.RedisOptions())
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		_ = r.Close()
		return nil, nil, err
	}
	appLog.Info("redis cache connected", "addr", conf.Cache.RedisAddr, "db", conf.Cache.RedisDB)
	return r, func() {
		if err := r.Close(); err != nil {
			appLog.Warn("redis close failed", "error", err.Error())
		}
	}, nil
}

func openWorkbook(ctx context.Context, conf *config.Config) (sheet.Workbook, func(), error) {
	if conf.Storage.Backend != "mysql" {
		book, err := sheet.LoadMemoryWorkbook(conf.Storage.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		appLog.Info("memory workbook loaded", "seed", conf.Storage.SeedFile)
		return book, func() {}, nil
	}
	book, err := sheet.OpenMySQL(ctx, conf.MySQL())
	if err != nil {
		return nil, nil, err
	}
	return book, func() {
		if err := book.Close(); err != nil {
			appLog.Warn("mysql close failed", "error", err.Error())
		}
	}, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/attendbot/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to an optional dotenv file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.noPrewarm, "no-prewarm", false, "Skip warming the cache at startup")

	flag.Parse()

	return cfg
}
