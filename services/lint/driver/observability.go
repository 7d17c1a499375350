// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// driverTracerName is the shared OTel tracer name for file processing.
const driverTracerName = "fixturelint.driver"

// Package-level Prometheus metrics for file processing.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// filesTotal counts processed files by outcome.
	//
	// Labels:
	//   - result: "skipped", "clean", "violations", "parse_error"
	filesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixturelint",
			Subsystem: "driver",
			Name:      "files_total",
			Help:      "Total number of files processed, by outcome.",
		},
		[]string{"result"},
	)

	// violationsTotal counts detected ordering violations.
	violationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fixturelint",
			Subsystem: "driver",
			Name:      "violations_total",
			Help:      "Total number of delegation-ordering violations detected.",
		},
	)

	// fixesTotal counts applied edits by kind.
	//
	// Labels:
	//   - kind: "relocate" or "insert"
	fixesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fixturelint",
			Subsystem: "driver",
			Name:      "fixes_total",
			Help:      "Total number of applied fixes, by edit kind.",
		},
		[]string{"kind"},
	)
)
