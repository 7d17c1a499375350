// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command fixturelint enforces delegation ordering in test fixture
// lifecycle methods: in any class inheriting from unittest's TestCase,
// the methods setUp, tearDown, setUpClass and tearDownClass must end
// with the call that forwards to the ancestor implementation
// (super().setUp() and friends).
//
// Usage:
//
//	# Report violations (exit 1 if any)
//	fixturelint tests/test_app.py tests/test_db.py
//
//	# Rewrite files in place (exit 1 if anything changed)
//	fixturelint --fix tests/test_app.py
//
//	# Per-file timing on stderr
//	fixturelint --profile $(git diff --name-only -- '*.py')
//
//	# Re-check files as they change, with metrics
//	fixturelint watch ./tests --metrics-addr :9123
//
// Diagnostics and profiling output go to stderr; the exit code is the
// only machine-readable pass/fail signal.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/fixturelint/services/lint/config"
	"github.com/AleutianAI/fixturelint/services/lint/driver"
	"github.com/AleutianAI/fixturelint/services/lint/watch"
)

// Flag values for the root and watch commands.
var (
	flagFix         bool
	flagProfile     bool
	flagConfig      string
	flagDebug       bool
	flagMetricsAddr string
)

// exitCode is the process exit status, set by the command handlers.
var exitCode int

func main() {
	rootCmd := &cobra.Command{
		Use:   "fixturelint [files...]",
		Short: "Check that fixture lifecycle methods end with their super call",
		Long: "fixturelint verifies that setUp/tearDown/setUpClass/tearDownClass in\n" +
			"TestCase subclasses end with the delegation to the ancestor\n" +
			"implementation, and can rewrite violations in place with --fix.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
		RunE: runLint,
	}
	rootCmd.Flags().BoolVar(&flagFix, "fix", false, "Auto-correct violations in place")
	rootCmd.Flags().BoolVar(&flagProfile, "profile", false, "Print per-file timing to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	watchCmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-check Python files as they change (report only, never fixes)",
		Args:  cobra.ArbitraryArgs,
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9123)")
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("fixturelint failed", slog.String("error", err.Error()))
		exitCode = 1
	}
	os.Exit(exitCode)
}

// runLint is the root command: check or fix the given files.
func runLint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	drv := driver.New(cfg)
	summary, err := drv.Run(cmd.Context(), args, flagFix)
	if err != nil {
		return err
	}

	if flagProfile {
		summary.WriteProfile(os.Stderr)
	}
	for _, d := range summary.Diagnostics() {
		fmt.Fprintln(os.Stderr, d)
	}

	exitCode = summary.ExitCode(flagFix)
	return nil
}

// runWatch is the watch subcommand: recursive filesystem watch with
// re-checks on change.
func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(driver.New(cfg), slog.Default())
	if err := w.Run(ctx, args, flagMetricsAddr); err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("watch stopped")
	return nil
}

// loadConfig resolves the effective configuration: the embedded defaults,
// or the file named by --config.
func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

// setupLogging installs the process-wide slog handler: human-readable
// text on a TTY, JSON otherwise (CI logs, pre-commit capture).
func setupLogging() {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
