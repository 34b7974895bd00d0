package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cyp0633/caldora-sync/cache"
	"github.com/cyp0633/caldora-sync/davclient"
	"github.com/cyp0633/caldora-sync/provider"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the local cache with the server",
	Long: "sync runs one reconciliation pass and saves the cache. With --schedule " +
		"(a cron expression) it keeps running and syncs on every tick until interrupted.",
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("schedule", "", "cron expression, e.g. \"*/15 * * * *\"")
	syncCmd.Flags().Bool("verify", false, "compare both sides after syncing and report differences")
	_ = v.BindPFlag("sync.schedule", syncCmd.Flags().Lookup("schedule"))
}

// syncer runs sync passes for one account and one cache file.
type syncer struct {
	client   *davclient.Client
	local    *cache.Cache
	provider *provider.Provider
	verify   bool
	out      io.Writer
	logger   *slog.Logger
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	verify, _ := cmd.Flags().GetBool("verify")

	client, err := davclient.NewClient(cfg.Server.URL, cfg.Server.Username, cfg.Server.Password,
		davclient.WithLogger(logger))
	if err != nil {
		return err
	}
	local, err := cache.Open(cfg.Cache.Path, cache.WithLogger(logger))
	if err != nil {
		return err
	}

	s := &syncer{
		client:   client,
		local:    local,
		provider: provider.New(local, client, provider.WithLogger(logger)),
		verify:   verify,
		out:      cmd.OutOrStdout(),
		logger:   logger,
	}

	ctx := cmd.Context()
	if cfg.Sync.Schedule == "" {
		return s.run(ctx)
	}
	return s.schedule(ctx, cfg.Sync.Schedule)
}

// run performs one pass. The cache is saved even when some calendars were
// aborted, so the progress they made is kept.
func (s *syncer) run(ctx context.Context) error {
	s.client.Refresh()

	report, syncErr := s.provider.Sync(ctx)
	if report == nil {
		return syncErr
	}
	fmt.Fprintln(s.out, report.String())

	if err := s.local.Save(); err != nil {
		return errors.Join(syncErr, fmt.Errorf("failed to save cache: %w", err))
	}

	if s.verify && syncErr == nil {
		diffs, err := cache.Compare(ctx, s.local, s.client)
		if err != nil {
			return fmt.Errorf("failed to verify: %w", err)
		}
		for _, d := range diffs {
			fmt.Fprintln(s.out, "differs:", d.String())
		}
		if len(diffs) > 0 {
			return fmt.Errorf("%d differences remain after sync", len(diffs))
		}
	}
	return syncErr
}

// schedule syncs once now and then on every tick of spec until ctx is done.
// A tick that fires while a pass is still running is skipped.
func (s *syncer) schedule(ctx context.Context, spec string) error {
	if err := s.run(ctx); err != nil {
		s.logger.Error("sync failed", "error", err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, func() {
		if err := s.run(ctx); err != nil {
			s.logger.Error("sync failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sync %q: %w", spec, err)
	}

	c.Start()
	s.logger.Info("sync scheduled", "schedule", spec)

	<-ctx.Done()
	s.logger.Info("shutting down")
	<-c.Stop().Done()
	return nil
}
