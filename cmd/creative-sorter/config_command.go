package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ilkoid/creative-sorter/pkg/ads"
	"github.com/ilkoid/creative-sorter/pkg/config"
	"github.com/ilkoid/creative-sorter/pkg/vision"
	"github.com/ilkoid/creative-sorter/pkg/workbook"
)

func newCheckConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load the configuration and workbook and print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Config ")+ctx.configPath())
			fmt.Fprintln(out, renderConfig(cfg))

			wb, err := workbook.Load(cfg.Workbook.Path)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderWorkbook(wb))
			return nil
		},
	}
}

func renderConfig(cfg *config.AppConfig) string {
	visionModel := cfg.Models.DefaultVision
	if visionModel == "" {
		visionModel = "(not set)"
	} else if m, ok := cfg.GetVisionModel(""); ok {
		visionModel = fmt.Sprintf("%s (%s)", visionModel, m.ModelName)
		if m.APIKey == vision.DemoKey {
			visionModel += " [simulated]"
		}
	}

	adsMode := cfg.Ads.BaseURL
	if cfg.Ads.APIKey == ads.DemoKey {
		adsMode = "simulated"
	}

	schedule := cfg.App.Schedule
	if schedule == "" {
		schedule = "(single run)"
	}

	rows := [][]string{
		{"s3.endpoint", cfg.S3.Endpoint},
		{"s3.bucket", cfg.S3.Bucket},
		{"s3.source_prefix", cfg.S3.SourcePrefix},
		{"s3.target_prefix", cfg.S3.TargetPrefix},
		{"models.default_vision", visionModel},
		{"ads", adsMode},
		{"ads.rate_limit", strconv.Itoa(cfg.Ads.RateLimit) + "/min"},
		{"validation.max_retries", strconv.Itoa(cfg.Validation.MaxRetries)},
		{"budget.thresholds", fmt.Sprintf("%.2f / %.2f", cfg.Budget.LowThreshold, cfg.Budget.HighThreshold)},
		{"budget.factors", fmt.Sprintf("x%.2f / x%.2f", cfg.Budget.DecreaseFactor, cfg.Budget.IncreaseFactor)},
		{"image_processing.max_size_kb", strconv.Itoa(cfg.ImageProcessing.MaxSizeKB)},
		{"workbook.path", cfg.Workbook.Path},
		{"app.tmp_dir", cfg.App.TmpDir},
		{"app.reports_dir", cfg.App.ReportsDir},
		{"app.lock_file", cfg.App.LockFile},
		{"app.schedule", schedule},
	}
	return renderTable([]string{"Setting", "Value"}, rows, nil)
}

func renderWorkbook(wb *workbook.Workbook) string {
	settings := wb.HierarchySettings()
	levels := "(none)"
	if names := settings.FieldNames(); len(names) > 0 {
		levels = strings.Join(names, " / ")
	}

	rows := [][]string{
		{"hierarchy", levels},
		{"buyouts", strconv.Itoa(len(wb.Buyouts()))},
		{"asset rows", strconv.Itoa(len(wb.AssetRows()))},
		{"ad rows", strconv.Itoa(len(wb.AdsRows()))},
	}
	return titleStyle.Render("Workbook") + "\n" + renderTable([]string{"Tab", "Value"}, rows, nil)
}
