// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-pkgtrust.
//
// go-pkgtrust is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for trust operations:
// signature check outcomes, key imports and lookup activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all pkgtrust metrics
	Namespace = "pkgtrust"

	// Label names
	LabelResult = "result"
	LabelStatus = "status"

	// Import status values
	StatusImported       = "imported"
	StatusAlreadyTrusted = "already_trusted"
	StatusError          = "error"
)

var (
	// SignatureChecksTotal counts signature checks by classification result.
	SignatureChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "signature_checks_total",
			Help:      "Total number of package signature checks by result",
		},
		[]string{LabelResult},
	)

	// SignatureCheckDuration observes the wall time of signature checks.
	SignatureCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "signature_check_duration_seconds",
			Help:      "Duration of package signature checks",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// KeyImportsTotal counts key import attempts by status.
	KeyImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "key_imports_total",
			Help:      "Total number of public key import attempts by status",
		},
		[]string{LabelStatus},
	)

	// KeyLookupsTotal counts trust-database presence lookups.
	KeyLookupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "key_lookups_total",
			Help:      "Total number of trust database key lookups",
		},
	)
)

// RecordCheck records one signature check outcome and its duration.
func RecordCheck(result string, seconds float64) {
	SignatureChecksTotal.WithLabelValues(result).Inc()
	SignatureCheckDuration.Observe(seconds)
}

// RecordImport records one key import attempt.
func RecordImport(status string) {
	KeyImportsTotal.WithLabelValues(status).Inc()
}

// RecordLookup records one trust database lookup.
func RecordLookup() {
	KeyLookupsTotal.Inc()
}
