// Package metrics counts analysis work and writes it as a Prometheus text file.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the run counters on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	unitsTotal    *prometheus.CounterVec
	rowsTested    *prometheus.CounterVec
	rowsNaN       *prometheus.CounterVec
	fitsTotal     *prometheus.CounterVec
	fitsFailed    prometheus.Counter
	lastRunErrors prometheus.Gauge
}

// NewRecorder creates and registers the run counters.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		unitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isostat_units_total",
				Help: "Total number of analysis units processed.",
			},
			[]string{"analysis", "kind"},
		),
		rowsTested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isostat_rows_tested_total",
				Help: "Total number of rows that received a statistic.",
			},
			[]string{"analysis", "test"},
		),
		rowsNaN: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isostat_rows_nan_pvalue_total",
				Help: "Total number of result rows reported with a NaN p-value.",
			},
			[]string{"analysis", "test"},
		),
		fitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isostat_distribution_fits_total",
				Help: "Total number of null distribution fits, by winning distribution and tail.",
			},
			[]string{"distribution", "tail"},
		),
		fitsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "isostat_distribution_fit_failures_total",
				Help: "Total number of units where no distribution could be fitted.",
			},
		),
		lastRunErrors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "isostat_last_run_failed",
				Help: "1 if the last run stopped on an error, 0 otherwise.",
			},
		),
	}
	r.registry.MustRegister(r.unitsTotal, r.rowsTested, r.rowsNaN, r.fitsTotal, r.fitsFailed, r.lastRunErrors)
	return r
}

// RecordUnit counts one processed unit.
func (r *Recorder) RecordUnit(analysis, kind string) {
	r.unitsTotal.WithLabelValues(analysis, kind).Inc()
}

// RecordRows counts tested rows and rows left with a NaN p-value.
func (r *Recorder) RecordRows(analysis, test string, tested, nan int) {
	r.rowsTested.WithLabelValues(analysis, test).Add(float64(tested))
	r.rowsNaN.WithLabelValues(analysis, test).Add(float64(nan))
}

// RecordFit counts a fitted null distribution.
func (r *Recorder) RecordFit(distribution, tail string) {
	r.fitsTotal.WithLabelValues(distribution, tail).Inc()
}

// RecordFitFailure counts a unit without a usable fit.
func (r *Recorder) RecordFitFailure() {
	r.fitsFailed.Inc()
}

// SetFailed records whether the run stopped on an error.
func (r *Recorder) SetFailed(failed bool) {
	if failed {
		r.lastRunErrors.Set(1)
		return
	}
	r.lastRunErrors.Set(0)
}

// Registry exposes the registry, for scraping or tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteFile writes the counters in the Prometheus text format.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
