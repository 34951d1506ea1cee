/*
 * dispatcher.go, part of qmmm.
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

package qm

import (
	"time"

	v3 "github.com/rmera/qmmm/v3"
)

//Recorder receives the outcome of backend calls. *metrics.Collector
//implements it.
type Recorder interface {
	ObserveInitialization(backend string)
	ObserveEvaluation(backend string, elapsed time.Duration, err error)
}

//Result is the outcome of one evaluation. Gradients and ShiftForces have
//one row per QM atom followed by one row per embedding charge.
type Result struct {
	Energy      float64
	Gradients   *v3.Matrix
	ShiftForces *v3.Matrix
	Backend     string
}

//Dispatcher routes each calculation to one of the registered backends and
//owns the session of the backend in use. Backends are tried in the order
//they were registered. At most one session is alive at any time: asking for
//a calculation on a different layer closes the current session first.
type Dispatcher struct {
	backends []Backend
	backend  Backend
	session  Session
	owner    string
	rec      Recorder
}

//NewDispatcher returns a dispatcher with the given backends, in priority order.
func NewDispatcher(backends ...Backend) *Dispatcher {
	D := new(Dispatcher)
	for _, b := range backends {
		D.Register(b)
	}
	return D
}

//Register adds a backend with the lowest priority so far.
func (D *Dispatcher) Register(b Backend) {
	if b == nil {
		return
	}
	D.backends = append(D.backends, b)
}

//Backends returns the names of the registered backends, in priority order.
func (D *Dispatcher) Backends() []string {
	ret := make([]string, 0, len(D.backends))
	for _, b := range D.backends {
		ret = append(ret, b.Name())
	}
	return ret
}

//SetRecorder sets the recorder for backend calls. nil disables recording.
func (D *Dispatcher) SetRecorder(r Recorder) {
	D.rec = r
}

//Route selects the backend for a calculation with settings S and ncharges
//embedding point charges. Semiempirical methods need a semiempirical backend
//and no point charges. CASSCF with surface hopping needs a backend with
//surface hopping support. Everything else goes to the first ab initio backend
//that can deal with the requested point charges.
func (D *Dispatcher) Route(S *Settings, ncharges int) (Backend, error) {
	if S.Method.Semiempirical() {
		if ncharges > 0 {
			return nil, unsupported("Route", "semi-empirical method %s only supported without embedding charges (%d requested)", S.Method, ncharges)
		}
		for _, b := range D.backends {
			c := b.Capabilities()
			if c.Semiempirical && (!S.SurfaceHopping || c.SurfaceHopping) {
				return b, nil
			}
		}
		if S.SurfaceHopping {
			return nil, unsupported("Route", "no semi-empirical backend with surface hopping for method %s (registered: %v)", S.Method, D.Backends())
		}
		return nil, unsupported("Route", "no semi-empirical backend for method %s (registered: %v)", S.Method, D.Backends())
	}
	if S.SurfaceHopping && S.Method == CASSCF {
		for _, b := range D.backends {
			c := b.Capabilities()
			if c.AbInitio && c.SurfaceHopping && (ncharges == 0 || c.PointCharges) {
				return b, nil
			}
		}
		return nil, unsupported("Route", "ab-initio surface hopping with %s needs a backend with surface hopping support (registered: %v)", S.Method, D.Backends())
	}
	for _, b := range D.backends {
		c := b.Capabilities()
		if c.AbInitio && (ncharges == 0 || c.PointCharges) {
			return b, nil
		}
	}
	if ncharges > 0 {
		return nil, unsupported("Route", "no ab-initio backend for method %s with %d embedding charges (registered: %v)", S.Label(), ncharges, D.Backends())
	}
	return nil, unsupported("Route", "no ab-initio backend for method %s (registered: %v)", S.Label(), D.Backends())
}

//Initialize routes the calculation and starts a new session for the layer
//called owner, closing the previous session, if any. It always starts a new
//session, even if owner already has one.
func (D *Dispatcher) Initialize(owner string, S *Settings, ncharges int) error {
	b, err := D.Route(S, ncharges)
	if err != nil {
		return errDecorate(err, "Initialize")
	}
	if err := D.release(); err != nil {
		return errDecorate(err, "Initialize")
	}
	s, err := b.Initialize(S)
	if err != nil {
		return errDecorate(err, "Initialize")
	}
	D.backend = b
	D.session = s
	D.owner = owner
	if D.rec != nil {
		D.rec.ObserveInitialization(b.Name())
	}
	logger.Debug("backend session started", "backend", b.Name(), "layer", owner, "method", S.Label())
	return nil
}

//Evaluate runs one synchronous calculation for the layer owner. If the
//current session belongs to a different layer (or there is none) a new
//session is started first.
func (D *Dispatcher) Evaluate(owner string, S *Settings, in *Input) (*Result, error) {
	if D.session == nil || D.owner != owner {
		if err := D.Initialize(owner, S, in.NCharges()); err != nil {
			return nil, errDecorate(err, "Evaluate")
		}
	}
	if in.NCharges() > 0 && !D.backend.Capabilities().PointCharges {
		return nil, unsupported("Evaluate", "backend %s can't take the %d embedding charges of layer %s", D.backend.Name(), in.NCharges(), owner)
	}
	start := time.Now()
	out, err := D.session.Evaluate(in)
	if err == nil {
		err = checkOutput(D.backend.Name(), owner, in, out)
	}
	if D.rec != nil {
		D.rec.ObserveEvaluation(D.backend.Name(), time.Since(start), err)
	}
	if err != nil {
		return nil, errDecorate(err, "Evaluate")
	}
	//The shift forces are the same gradients, bucketed by the caller.
	sf := v3.Zeros(out.Gradients.NVecs())
	sf.Copy(out.Gradients)
	return &Result{Energy: out.Energy, Gradients: out.Gradients, ShiftForces: sf, Backend: D.backend.Name()}, nil
}

func checkOutput(backend, owner string, in *Input, out *Output) error {
	if out == nil || out.Gradients == nil {
		return backendError(backend, owner, "Evaluate", "no gradients returned")
	}
	want := in.NAtoms() + in.NCharges()
	if got := out.Gradients.NVecs(); got != want {
		return backendError(backend, owner, "Evaluate", "%d gradients returned, %d expected", got, want)
	}
	return nil
}

//Close ends the current session, if any.
func (D *Dispatcher) Close() error {
	return D.release()
}

func (D *Dispatcher) release() error {
	if D.session == nil {
		return nil
	}
	err := D.session.Close()
	D.session = nil
	D.owner = ""
	D.backend = nil
	return err
}
