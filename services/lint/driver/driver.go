// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package driver runs the lint pipeline over a set of files: prescreen,
// parse, detect, and optionally rewrite. Files are fully independent, so
// they are dispatched in parallel; diagnostics stay grouped per file and
// are reported in input order.
package driver

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/fixturelint/services/lint/ast"
	"github.com/AleutianAI/fixturelint/services/lint/check"
	"github.com/AleutianAI/fixturelint/services/lint/config"
	"github.com/AleutianAI/fixturelint/services/lint/rewrite"
)

// Driver processes files against one configuration.
//
// Thread Safety: Driver is immutable after construction and safe for
// concurrent use; Run itself fans out across files.
type Driver struct {
	cfg    *config.Config
	parser check.Parser
	log    *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithParser replaces the default Python parser. Used by tests to count
// parser invocations and by future frontends.
func WithParser(p check.Parser) Option {
	return func(d *Driver) {
		d.parser = p
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// New creates a Driver for the given configuration.
func New(cfg *config.Config, opts ...Option) *Driver {
	d := &Driver{
		cfg: cfg,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.parser == nil {
		d.parser = ast.NewPythonParser(ast.WithMaxFileSize(cfg.MaxFileSizeBytes))
	}
	return d
}

// FileOutcome is the result of processing one file.
type FileOutcome struct {
	// Path is the processed file.
	Path string

	// Diagnostics are the violation/error lines for this file, in source
	// order.
	Diagnostics []string

	// Modified reports whether fix mode rewrote the file.
	Modified bool

	// Elapsed is the wall time spent on this file.
	Elapsed time.Duration
}

// Summary aggregates outcomes for one Run, in input order.
type Summary struct {
	Outcomes []FileOutcome
}

// Diagnostics returns all diagnostic lines, grouped per file in input
// order.
func (s *Summary) Diagnostics() []string {
	var out []string
	for _, o := range s.Outcomes {
		out = append(out, o.Diagnostics...)
	}
	return out
}

// AnyModified reports whether any file was rewritten.
func (s *Summary) AnyModified() bool {
	for _, o := range s.Outcomes {
		if o.Modified {
			return true
		}
	}
	return false
}

// ExitCode computes the process exit status. In check mode any diagnostic
// fails the run; in fix mode the code signals whether the working tree
// changed and must be re-staged.
func (s *Summary) ExitCode(fix bool) int {
	if fix {
		if s.AnyModified() {
			return 1
		}
		return 0
	}
	if len(s.Diagnostics()) > 0 {
		return 1
	}
	return 0
}

// WriteProfile writes per-file timings and a total to w.
func (s *Summary) WriteProfile(w io.Writer) {
	var total time.Duration
	for _, o := range s.Outcomes {
		fmt.Fprintf(w, "%.2fms  %s\n", float64(o.Elapsed.Microseconds())/1000.0, o.Path)
		total += o.Elapsed
	}
	fmt.Fprintf(w, "--- %.2fms total (%d files)\n", float64(total.Microseconds())/1000.0, len(s.Outcomes))
}

// Run processes all paths and aggregates the outcomes in input order.
//
// Per-file work is fully independent, so files are dispatched across a
// bounded worker pool. Violations and parse failures are findings, not
// errors; only I/O failures (unreadable or unwritable files) and context
// cancellation abort the run.
func (d *Driver) Run(ctx context.Context, paths []string, fix bool) (*Summary, error) {
	outcomes := make([]FileOutcome, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		g.Go(func() error {
			out, err := d.processFile(ctx, path, fix)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Summary{Outcomes: outcomes}, nil
}

// processFile runs the pipeline for one file: prescreen, parse, detect,
// and in fix mode rewrite and persist.
func (d *Driver) processFile(ctx context.Context, path string, fix bool) (FileOutcome, error) {
	ctx, span := otel.Tracer(driverTracerName).Start(ctx, "driver.process_file",
		oteltrace.WithAttributes(
			attribute.String("file", path),
			attribute.Bool("fix", fix),
		),
	)
	defer span.End()

	start := time.Now()
	out := FileOutcome{Path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}

	// Prescreen: the fixture marker is a necessary condition for a
	// qualifying class, so its absence skips the parse entirely.
	if !check.ContainsFixtureMarker(content, d.cfg.FixtureBase) {
		filesTotal.WithLabelValues("skipped").Inc()
		out.Elapsed = time.Since(start)
		return out, nil
	}

	mod, err := d.parser.Parse(ctx, content, path)
	if err != nil {
		if ctx.Err() != nil {
			return out, err
		}
		// Parse failure is a per-file finding; remaining files proceed.
		filesTotal.WithLabelValues("parse_error").Inc()
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s: %v", path, err))
		out.Elapsed = time.Since(start)
		return out, nil
	}

	findings := check.FindViolations(mod, check.Options{
		FixtureBase:    d.cfg.FixtureBase,
		DelegationRoot: d.cfg.DelegationRoot,
		CheckedMethods: d.cfg.CheckedMethods,
	})

	if len(findings) == 0 {
		filesTotal.WithLabelValues("clean").Inc()
		out.Elapsed = time.Since(start)
		return out, nil
	}
	filesTotal.WithLabelValues("violations").Inc()

	if !fix {
		for _, f := range findings {
			out.Diagnostics = append(out.Diagnostics, f.Violation(path).String())
		}
		violationsTotal.Add(float64(len(findings)))
		out.Elapsed = time.Since(start)
		return out, nil
	}

	fixed, res := rewrite.Apply(content, findings, d.cfg.DelegationRoot)
	if res.Modified() {
		mode := fs.FileMode(0o644)
		if fi, statErr := os.Stat(path); statErr == nil {
			mode = fi.Mode()
		}
		// Fix mode that cannot persist must not report success.
		if err := os.WriteFile(path, fixed, mode); err != nil {
			return out, fmt.Errorf("write %s: %w", path, err)
		}
		out.Modified = true
		fixesTotal.WithLabelValues("relocate").Add(float64(res.Relocated))
		fixesTotal.WithLabelValues("insert").Add(float64(res.Inserted))
		d.log.Info("rewrote file",
			slog.String("file", path),
			slog.Int("relocated", res.Relocated),
			slog.Int("inserted", res.Inserted))
	}

	out.Elapsed = time.Since(start)
	return out, nil
}
