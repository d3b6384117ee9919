/*
dayclockd is the day planner daemon: it wires the timer engine, coin
ledger, day finalizer, notification scheduler, midnight cron and the
local HTTP control surface together, then runs until signaled.

Startup/shutdown sequence mirrors the teacher's cmd/server/main.go:
1. Parse flags / config (spf13/cobra + spf13/viper, ambient-stack upgrade
   over the teacher's bare flag package)
2. Open the SQLite store
3. Load and start the timer engine, notification scheduler and cron
4. Start the HTTP server
5. On SIGINT/SIGTERM, stop workers, shut the HTTP server down with a
   timeout, close the store
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/api"
	"github.com/kvaranth/dayclock/config"
	"github.com/kvaranth/dayclock/cron"
	"github.com/kvaranth/dayclock/gamify"
	"github.com/kvaranth/dayclock/metrics"
	"github.com/kvaranth/dayclock/notify"
	"github.com/kvaranth/dayclock/plan"
	"github.com/kvaranth/dayclock/store/sqlite"
	"github.com/kvaranth/dayclock/timer"
)

func main() {
	root := &cobra.Command{
		Use:   "dayclockd",
		Short: "Chess-clock day planner daemon",
		RunE:  run,
	}

	v := viper.GetViper()
	if err := config.BindFlags(root, v); err != nil {
		fmt.Fprintf(os.Stderr, "bind flags: %v\n", err)
		os.Exit(1)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	store, err := sqlite.New(cfg.DBPath, cfg.UserID)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	clock := plan.SystemClock{}
	ledger := gamify.NewLedger(store, clock, sugar)
	finalizer := gamify.NewFinalizer(store, clock, sugar)

	engine := timer.New(store, clock, sugar, cfg.UserID, cfg.SaveInterval, nil)
	if err := engine.Load(context.Background()); err != nil {
		return fmt.Errorf("load engine: %w", err)
	}
	engine.Start()
	defer engine.Stop(context.Background())

	notifyAhead := func() time.Duration {
		st, err := store.GetSettings(context.Background(), cfg.UserID)
		if err != nil {
			return time.Duration(cfg.NotifyAheadMins) * time.Minute
		}
		return time.Duration(st.NotifyBeforeMinutes) * time.Minute
	}
	scheduler := notify.New(engine, clock, notifyAhead, func(title, message string) {
		sugar.Infow("notification", "title", title, "message", message)
	}, sugar)
	scheduler.Start()
	defer scheduler.Stop()

	dailyCron, err := cron.New(cfg.CronSpec, finalizer, cfg.UserID, func(ctx context.Context) error {
		tomorrow := time.Now().Format("2006-01-02")
		return engine.CarryOverAllCandidates(ctx, tomorrow)
	}, sugar)
	if err != nil {
		return fmt.Errorf("init cron: %w", err)
	}
	dailyCron.Start()
	defer dailyCron.Stop()

	reg := metrics.Registry()

	handler := api.NewHandler(engine, ledger, store, clock, cfg.UserID, sugar)
	router := api.NewRouter(handler, reg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	sugar.Infow("server stopped")
	return nil
}
