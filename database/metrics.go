/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolMetrics exposes statement timings, failures and connection checkouts.
type PoolMetrics struct {
	Duration   *prometheus.HistogramVec
	Errors     *prometheus.CounterVec
	CheckedOut prometheus.Gauge
}

// NewPoolMetrics creates the pool collectors and registers them with reg
// when reg is not nil.
func NewPoolMetrics(reg prometheus.Registerer, namespace string) *PoolMetrics {
	m := &PoolMetrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "statement_duration_seconds",
			Help:      "Duration of statements executed through the pool.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "statement_errors_total",
			Help:      "Statements that returned an error.",
		}, []string{"operation"}),
		CheckedOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_checked_out",
			Help:      "Connections currently acquired from the pool.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Duration, m.Errors, m.CheckedOut)
	}
	return m
}

func (m *PoolMetrics) observe(query string, d time.Duration, err error) {
	if m == nil {
		return
	}
	op := operation(query)
	m.Duration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(op).Inc()
	}
}

func (m *PoolMetrics) checkout(delta float64) {
	if m == nil {
		return
	}
	m.CheckedOut.Add(delta)
}

func operation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	switch op := strings.ToUpper(fields[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "TRUNCATE", "CREATE", "DROP", "ALTER", "REPLACE", "WITH":
		return op
	default:
		return "OTHER"
	}
}
