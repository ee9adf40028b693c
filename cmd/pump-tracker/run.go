package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stepamak/pump-tracker/internal/audit"
	"github.com/stepamak/pump-tracker/internal/config"
	"github.com/stepamak/pump-tracker/internal/devlist"
	"github.com/stepamak/pump-tracker/internal/health"
	"github.com/stepamak/pump-tracker/internal/httpapi"
	"github.com/stepamak/pump-tracker/internal/logger"
	"github.com/stepamak/pump-tracker/internal/tracker"
)

var (
	quiet    bool
	httpAddr string
)

func init() {
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print admitted tokens to stdout")
	runCmd.Flags().StringVar(&httpAddr, "http-addr", "", "status API address (overrides http.addr, \"-\" disables)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the feed and track matching tokens",
	Long: `Connect to the configured feed endpoint and print every admitted token.

Examples:
  # Run with a config file
  pump-tracker run -c tracker.yaml

  # Endpoint and key from the environment, no console output
  PUMP_FEED_ENDPOINT=wss://feed.example.com/ws PUMP_FEED_API_KEY=... pump-tracker run -q`,
	Args: cobra.NoArgs,
	RunE: runTracker,
}

func runTracker(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	switch httpAddr {
	case "":
	case "-":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := openStores(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer st.Close()

	return serve(ctx, cfg, st, log)
}

// serve runs the tracker and its companions until ctx is cancelled or the
// HTTP server fails.
func serve(ctx context.Context, cfg *config.Config, st *stores, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dirs := cfg.DevLists.Dirs
	if len(dirs) == 0 {
		dirs = devlist.DefaultDirs()
	}
	loader := devlist.NewLoader(devlist.NewFileStore(dirs), st.devLists, log.Named("devlist"))

	opts := tracker.Options{
		Endpoint: cfg.Feed.Endpoint,
		APIKey:   cfg.Feed.APIKey,
		Feed:     cfg.Feed.Config,
		Criteria: cfg.Filter,
		DevLists: loader,
		Logger:   log.Named("tracker"),
	}

	var wg sync.WaitGroup
	if st.admissions != nil {
		rec := audit.NewRecorder(audit.Options{
			Store:         st.admissions,
			QueueSize:     cfg.Storage.AuditBuffer,
			BatchSize:     cfg.Storage.AuditBatch,
			FlushInterval: cfg.Storage.AuditFlush,
			Logger:        log.Named("audit"),
		})
		opts.Auditor = rec
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(ctx)
		}()
	}

	tr := tracker.New(opts)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = tr.Run(ctx)
	}()

	var ping httpapi.PingSource
	if cfg.Health.Enabled {
		pinger, err := health.NewPinger(cfg.Feed.Endpoint, cfg.Feed.APIKey, cfg.Health,
			health.WithLogger(log.Named("health")))
		if err != nil {
			log.Warn("health check disabled", logger.FieldErr(err))
		} else {
			ping = pinger
			wg.Add(1)
			go func() {
				defer wg.Done()
				pinger.Run(ctx, nil)
			}()
		}
	}

	errCh := make(chan error, 1)
	var srv *httpapi.Server
	if cfg.HTTP.Addr != "" {
		var err error
		srv, err = httpapi.NewServer(tr, ping, log.Named("http"), cfg.HTTP.Addr)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Start(); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if !quiet {
		updates, unsubscribe := tr.Subscribe()
		defer unsubscribe()
		p := newPresenter(os.Stdout, ping)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx, updates)
		}()
	}

	var runErr error
	if err := tr.Start(ctx); err != nil {
		runErr = err
	} else {
		select {
		case <-ctx.Done():
		case runErr = <-errCh:
		}
	}

	cancel()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", logger.FieldErr(err))
		}
		shutdownCancel()
	}
	wg.Wait()

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
