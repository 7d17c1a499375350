// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// astTracerName is the shared OTel tracer name for the parser adapter.
const astTracerName = "fixturelint.ast"

// Package-level Prometheus metrics for parse operations.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// parseDuration measures the duration of tree-sitter parses.
	//
	// Labels:
	//   - status: "success" or "error"
	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fixturelint",
			Subsystem: "parser",
			Name:      "parse_duration_seconds",
			Help:      "Duration of source file parses in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"status"},
	)

	// parsesTotal counts parse attempts.
	//
	// Labels:
	//   - status: "success" or "error"
	parsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixturelint",
			Subsystem: "parser",
			Name:      "parses_total",
			Help:      "Total number of source file parses.",
		},
		[]string{"status"},
	)
)

// startParseSpan starts an OTel span for a parse operation.
func startParseSpan(ctx context.Context, filePath string, sizeBytes int) (context.Context, oteltrace.Span) {
	return otel.Tracer(astTracerName).Start(ctx, "ast.parse",
		oteltrace.WithAttributes(
			attribute.String("file", filePath),
			attribute.Int("size_bytes", sizeBytes),
		),
	)
}

// setParseSpanResult records the parse outcome on the span.
func setParseSpanResult(span oteltrace.Span, classes int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return
	}
	span.SetAttributes(attribute.Int("classes", classes))
	span.SetStatus(codes.Ok, "")
}

// recordParseMetrics records duration and count for one parse attempt.
func recordParseMetrics(d time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	parseDuration.WithLabelValues(status).Observe(d.Seconds())
	parsesTotal.WithLabelValues(status).Inc()
}
