package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	flagPeriodID = "period-id"
	flagOutput   = "output"
)

func newReconcileAllCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-all",
		Short: "Re-run reconciliation for every unlocked period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), cfg, func(ctx context.Context, service *collection.Service) error {
				summary, err := reconcileAll(ctx, service, cmd.ErrOrStderr())
				fmt.Fprintf(cmd.OutOrStdout(), "periods: %d reconciled: %d skipped (locked): %d failed: %d\n",
					summary.Total, summary.Reconciled, summary.Skipped, summary.Failed)
				return err
			})
		},
	}
}

func reconcileAll(ctx context.Context, service *collection.Service, progressOutput io.Writer) (collection.ReconcileSummary, error) {
	var bar *progressbar.ProgressBar
	summary, err := service.ReconcileAll(ctx, func(done int, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(progressOutput),
				progressbar.OptionSetDescription("reconciling periods"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	})
	if bar != nil {
		_ = bar.Finish()
	}
	return summary, err
}

func newExportCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a period's workbook to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			periodID, err := cmd.Flags().GetUint(flagPeriodID)
			if err != nil {
				return err
			}
			if periodID == 0 {
				return fmt.Errorf("%s is required", flagPeriodID)
			}
			output, err := cmd.Flags().GetString(flagOutput)
			if err != nil {
				return err
			}
			return withApplication(cmd.Context(), cfg, func(ctx context.Context, service *collection.Service) error {
				path, err := exportPeriod(ctx, service, periodID, output)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().Uint(flagPeriodID, 0, "period to export (required)")
	cmd.Flags().String(flagOutput, "", "output file or directory (defaults to the generated file name)")
	return cmd
}

// exportPeriod writes the workbook to output; an empty output or a directory uses the generated file name.
func exportPeriod(ctx context.Context, service *collection.Service, periodID uint, output string) (string, error) {
	workbook, err := service.ExportSpreadsheet(ctx, periodID)
	if err != nil {
		return "", err
	}
	path := output
	if path == "" {
		path = workbook.Filename
	} else if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		path = filepath.Join(path, workbook.Filename)
	}
	if err := os.WriteFile(path, workbook.Data, 0o644); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}
	return path, nil
}

func withApplication(ctx context.Context, cfg *runtimeConfig, run func(ctx context.Context, service *collection.Service) error) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := openApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.cleanup() }()
	return run(ctx, app.service)
}
