/*
 * metrics.go, part of qmmm.
 *
 * Copyright 2026 the goChem authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package metrics exports the activity of the QM/MM coupling as Prometheus
//metrics. A Collector can be set as recorder both for a qm.Dispatcher and
//for a qmmm.Coupler.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rmera/qmmm"
)

//Collector bundles the Prometheus metrics of a QM/MM run.
type Collector struct {
	gatherer prometheus.Gatherer

	Evaluations     *prometheus.CounterVec
	Durations       *prometheus.HistogramVec
	Initializations *prometheus.CounterVec
	Steps           prometheus.Counter
	Embedded        prometheus.Gauge
	Energy          prometheus.Gauge
	BoundaryEnergy  *prometheus.GaugeVec
}

//NewCollector registers the QM/MM metrics against reg, or the default
//Prometheus registry if reg is nil. Registering twice against the same
//registry returns the already registered metrics.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	C := &Collector{gatherer: gatherer}
	var err error
	C.Evaluations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qmmm_evaluations_total",
		Help: "QM calculations run, labeled by backend and result.",
	}, []string{"backend", "result"}), "qmmm_evaluations_total")
	if err != nil {
		return nil, err
	}
	C.Durations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qmmm_evaluation_duration_seconds",
		Help:    "Wall time of the QM calculations, in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.5, 12),
	}, []string{"backend"}), "qmmm_evaluation_duration_seconds")
	if err != nil {
		return nil, err
	}
	C.Initializations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qmmm_sessions_total",
		Help: "Backend sessions started, labeled by backend.",
	}, []string{"backend"}), "qmmm_sessions_total")
	if err != nil {
		return nil, err
	}
	C.Steps, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qmmm_steps_total",
		Help: "QM/MM steps completed.",
	}), "qmmm_steps_total")
	if err != nil {
		return nil, err
	}
	C.Embedded, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qmmm_embedding_charges",
		Help: "Number of MM point charges in the last step.",
	}), "qmmm_embedding_charges")
	if err != nil {
		return nil, err
	}
	C.Energy, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qmmm_energy_kj_mol",
		Help: "QM energy of the last step, in kJ/mol.",
	}), "qmmm_energy_kj_mol")
	if err != nil {
		return nil, err
	}
	C.BoundaryEnergy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qmmm_boundary_energy_kj_mol",
		Help: "High minus low level energy of each inner layer in the last step, in kJ/mol.",
	}, []string{"layer"}), "qmmm_boundary_energy_kj_mol")
	if err != nil {
		return nil, err
	}
	return C, nil
}

//ObserveInitialization counts a new session of backend.
func (C *Collector) ObserveInitialization(backend string) {
	if C == nil {
		return
	}
	C.Initializations.WithLabelValues(backend).Inc()
}

//ObserveEvaluation records one QM calculation.
func (C *Collector) ObserveEvaluation(backend string, elapsed time.Duration, err error) {
	if C == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	C.Evaluations.WithLabelValues(backend, result).Inc()
	C.Durations.WithLabelValues(backend).Observe(elapsed.Seconds())
}

//ObserveStep records the energies and embedding size of a finished step.
func (C *Collector) ObserveStep(E qmmm.Energies, embedded int) {
	if C == nil {
		return
	}
	C.Steps.Inc()
	C.Embedded.Set(float64(embedded))
	C.Energy.Set(E.Total)
	for i, b := range E.Boundaries {
		C.BoundaryEnergy.WithLabelValues(fmt.Sprint(i)).Set(b)
	}
}

//Handler returns a /metrics handler for the collector's registry.
func (C *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(C.gatherer, promhttp.HandlerOpts{})
}

//WriteFile writes the current metrics to filename in the text format.
//The collector must be registered against a Gatherer for this to work.
func (C *Collector) WriteFile(filename string) error {
	return prometheus.WriteToTextfile(filename, C.gatherer)
}

//register registers c, or returns the collector of the same type already
//registered under name.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
