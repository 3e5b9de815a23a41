package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ilkoid/creative-sorter/internal/reorganizer"
	"github.com/ilkoid/creative-sorter/pkg/config"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var schedule string
	var keepFiles bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sort/validate/rebalance pipeline once or on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if err := utils.InitLogger(utils.LoggerOptions{
				Dir:    cfg.App.LogDir,
				Prefix: "creative-sorter",
				Debug:  cfg.App.Debug,
			}); err != nil {
				return err
			}

			runCtx, shutdown := utils.SetupGracefulShutdownWithContext()
			defer shutdown()

			unlock, err := acquireRunLock(cfg.App.LockFile)
			if err != nil {
				return err
			}
			defer unlock()

			if schedule == "" {
				schedule = cfg.App.Schedule
			}

			out := cmd.OutOrStdout()
			job := func(jobCtx context.Context) error {
				return runOnce(jobCtx, out, cfg, keepFiles)
			}

			if schedule == "" {
				return job(runCtx)
			}
			return runScheduled(runCtx, out, schedule, job)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression with seconds (overrides app.schedule)")
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep downloaded and processed files in tmp_dir")
	return cmd
}

// acquireRunLock не даёт двум прогонам работать одновременно.
func acquireRunLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another run holds the lock %s", path)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			utils.Warn("Failed to release run lock", "path", path, "error", err)
		}
	}, nil
}

func runOnce(ctx context.Context, out io.Writer, cfg *config.AppConfig, keepFiles bool) error {
	r, err := buildReorganizer(cfg, keepFiles)
	if err != nil {
		return err
	}

	res, err := r.Run(ctx)
	if errors.Is(err, reorganizer.ErrNoHierarchy) {
		fmt.Fprintln(out, warnStyle.Render("No hierarchy levels configured in the UI tab, nothing to do."))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderRunSummary(res))
	return nil
}

// runScheduled запускает job по cron выражению до отмены контекста.
// Если предыдущий запуск ещё идёт, очередной пропускается.
func runScheduled(ctx context.Context, out io.Writer, schedule string, job func(context.Context) error) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if _, err := c.AddFunc(schedule, func() {
		if err := job(ctx); err != nil {
			utils.Error("Scheduled run failed", "error", err)
			fmt.Fprintln(out, errorStyle.Render("Run failed: ")+err.Error())
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	utils.Info("Scheduler started", "schedule", schedule)
	fmt.Fprintln(out, titleStyle.Render("Scheduler started")+" "+schedule)

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	utils.Info("Scheduler stopped")
	return nil
}
