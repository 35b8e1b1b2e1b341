package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/convograph/internal/logging"
	"github.com/rendis/convograph/internal/panel"
	"github.com/rendis/convograph/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the panel API, the watch scheduler and metrics",
	Long: `Starts the HTTP API used by the conversation editor. SIGHUP reloads
settings.json: log level and metrics apply live, other changes need a restart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.serve(ctx, settingsFile(cmd))
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", "", "address to listen on")
	f.Bool("metrics", true, "expose /metrics")
	f.Duration("scheduler-interval", 0, "how often due watches are checked; 0 disables the scheduler")
	rootCmd.AddCommand(serveCmd)
}

func settingsFile(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("settings")
	return path
}

func (a *app) serve(ctx context.Context, settings string) error {
	var sched *scheduler.Scheduler
	if a.cfg.SchedulerInterval > 0 {
		sched = scheduler.New(a.store, a.service, a.logger, scheduler.WithInterval(a.cfg.SchedulerInterval))
		if err := sched.RecoverMissed(ctx); err != nil {
			a.logger.Warn("recover missed watches", "error", err)
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = sched.Stop() }()
	}

	handler := newHandlerSwapper(a.panelHandler(sched))
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("listening", "addr", a.cfg.ListenAddr, "metrics", a.cfg.Metrics, "scheduler", sched != nil)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				a.reload(settings, handler, sched)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) panelHandler(sched *scheduler.Scheduler) http.Handler {
	deps := panel.Deps{
		Service: a.service,
		Hub:     a.hub,
		Logger:  a.logger,
	}
	if a.cfg.Metrics {
		deps.Metrics = a.metrics
	}
	// A nil *Scheduler must not become a non-nil Watcher.
	if sched != nil {
		deps.Watcher = sched
	}
	return panel.NewServer(deps).Handler()
}

// reload re-reads the settings file. Environment variables still apply;
// flags given at startup are not re-applied.
func (a *app) reload(settings string, handler *handlerSwapper, sched *scheduler.Scheduler) {
	next := loadConfig(settings)
	diff := diffConfigs(a.cfg, next)

	if diff.LogLevelChanged {
		a.level.Set(logging.ParseLevel(next.LogLevel))
		a.cfg.LogLevel = next.LogLevel
	}
	if diff.MetricsChanged {
		// Collectors registered at startup keep counting either way.
		if next.Metrics && a.metrics == nil {
			a.logger.Warn("metrics were disabled at startup; restart to enable them")
		} else {
			a.cfg.Metrics = next.Metrics
			handler.Swap(a.panelHandler(sched))
		}
	}
	for _, field := range diff.RestartNeeded {
		a.logger.Warn("setting changed; restart to apply", "field", field)
	}
	a.logger.Info("settings reloaded", "log_level", a.cfg.LogLevel, "metrics", a.cfg.Metrics)
}
