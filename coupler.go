/*
 * coupler.go, part of qmmm.
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

package qmmm

import (
	"fmt"

	v3 "github.com/rmera/qmmm/v3"
)

//StepRecorder receives the outcome of each step. *metrics.Collector
//implements it.
type StepRecorder interface {
	ObserveStep(E Energies, embedded int)
}

//Coupler couples one or more QM layers to the MM system. It is created
//once at setup, then Update and Calculate are called every step, in that
//order. A Coupler is not safe for concurrent use.
type Coupler struct {
	opts    Options
	natoms  int
	layers  []*Layer
	env     *Environment //Normal scheme only
	qmflags []bool
	chargeA []float64 //base charges, from the topology
	chargeB []float64
	effA    []float64 //charges for the classical force field
	effB    []float64
	comp    compositor
	pbc     *PBC
	fresh   bool //shifts and coordinates are from the last Update
	last    Energies
	rec     StepRecorder
}

//NewCoupler checks the options, classifies the atoms of top into QM
//layers and, for a single layer, starts the backend session. Setup errors
//are ConfigurationErrors. A method with no backend able to run it gives an
//UnsupportedConfiguration error.
func NewCoupler(top Topologer, O Options, ev Evaluator) (*Coupler, error) {
	if err := O.check(); err != nil {
		return nil, errDecorate(err, "NewCoupler")
	}
	ngroups := len(O.Groups)
	layers, err := classify(top, ngroups, O.Scheme)
	if err != nil {
		return nil, errDecorate(err, "NewCoupler")
	}
	C := &Coupler{opts: O, natoms: top.Len(), comp: compositor{ev}}
	C.qmflags = make([]bool, C.natoms)
	C.chargeA = make([]float64, C.natoms)
	C.chargeB = make([]float64, C.natoms)
	for i := 0; i < C.natoms; i++ {
		at := top.Atom(i)
		C.qmflags[i] = at.Group >= 0 && at.Group < ngroups
		C.chargeA[i] = at.ChargeA
		C.chargeB[i] = at.ChargeB
	}
	for k, atoms := range layers {
		L := newLayer(k, atoms, top, O.Groups[k])
		C.layers = append(C.layers, L)
		logger.Info("QM layer", "layer", k, "atoms", L.Len(), "method", L.Settings.Method.String(), "basis", L.Settings.Basis, "electrons", L.Electrons)
	}
	//the QM atoms' charges are zeroed here, once, in the Normal scheme.
	C.effA, C.effB = effectiveCharges(top, C.qmflags, O.Scheme)
	if O.Scheme == Normal {
		C.env = &Environment{ScaleFactor: O.ScaleFactor}
	}
	if len(C.layers) == 1 {
		L := C.layers[0]
		ncharges := 0
		if C.env != nil {
			ncharges = C.natoms - L.Len()
		}
		if err := ev.Initialize(L.Name(), &L.Settings, ncharges); err != nil {
			return nil, errDecorate(err, "NewCoupler")
		}
	}
	return C, nil
}

//Update computes the periodic shifts, shifted coordinates and, in the
//Normal scheme, the embedding set from the current coordinates X (nm,
//one row per atom), box and QM pair list. The pair list is not used in the
//Layered scheme and can be nil. The coordinates must be in the box, as
//returned by (*PBC).Wrap, and the pair list must be built from the same
//coordinates. Otherwise, atoms more than two boxes apart make Update
//panic.
func (C *Coupler) Update(X, box *v3.Matrix, pl *PairList) error {
	return C.update(X, box, pl)
}

//UpdateDistributed is like Update, for a neighbor search split over
//several units, each of which found part of the pair list. parts are
//given in rank order, and the result is that of Update with the rows of
//all the parts concatenated in that order. The embedding sets of all the
//parts are combined with Reduce.
func (C *Coupler) UpdateDistributed(X, box *v3.Matrix, parts []*PairList) error {
	if C.opts.Scheme != Normal {
		return C.update(X, box, nil)
	}
	all := new(PairList)
	for _, p := range parts {
		if p != nil {
			all.Rows = append(all.Rows, p.Rows...)
		}
	}
	return C.update(X, box, all, parts...)
}

func (C *Coupler) update(X, box *v3.Matrix, pl *PairList, parts ...*PairList) error {
	if X == nil || X.NVecs() != C.natoms {
		panic(ErrCoordinates)
	}
	P, err := NewPBC(box)
	if err != nil {
		return errDecorate(err, "Update")
	}
	C.pbc = P
	if C.opts.Scheme != Normal {
		for _, L := range C.layers {
			L.Shifts = layerShifts(L, X, P)
			L.setCoords(X, P)
		}
		C.fresh = true
		return nil
	}
	L := C.layers[0]
	shifts, nb := partition(L, pl, X, P, C.embeddable)
	if len(parts) > 0 {
		mem := make([]*Membership, 0, len(parts))
		for rank, p := range parts {
			if p == nil || len(p.Rows) == 0 {
				continue
			}
			_, pnb := partition(L, p, X, P, C.embeddable)
			mem = append(mem, NewMembership(C.natoms, rank, pnb))
		}
		nb = Reduce(mem...).Extract()
	}
	L.Shifts = shifts
	L.setCoords(X, P)
	C.env.set(nb, X, P, C.chargeA)
	C.fresh = true
	return nil
}

//embeddable returns true for the atoms that can be embedding charges:
//not QM, and with a nonzero charge in one of the states.
func (C *Coupler) embeddable(i int) bool {
	return !C.qmflags[i] && (C.chargeA[i] != 0 || C.chargeB[i] != 0)
}

//Calculate runs the QM calculations for the last update and adds the
//results to the forces F (one row per atom) and the shift forces fshift
//(one row per shift index). F gets the negative QM gradients, fshift the
//shift forces. It returns the QM energy in kJ/mol. If any calculation
//fails, F and fshift are not modified and the error is returned.
func (C *Coupler) Calculate(F, fshift *v3.Matrix) (float64, error) {
	if F == nil || fshift == nil || F.NVecs() != C.natoms || fshift.NVecs() != NShifts {
		panic(ErrForceBuffers)
	}
	if !C.fresh {
		return 0, configError("Calculate", "step", "Calculate needs an Update for the current coordinates")
	}
	var E Energies
	var con []contribution
	var err error
	if len(C.layers) == 1 {
		E, con, err = C.comp.normal(C.layers[0], C.env)
	} else {
		E, con, err = C.comp.layered(C.layers)
	}
	if err != nil {
		return 0, errDecorate(err, "Calculate")
	}
	for _, c := range con {
		c.commit(F, fshift)
	}
	C.fresh = false
	C.last = E
	if C.rec != nil {
		C.rec.ObserveStep(E, C.Embedded())
	}
	return E.Total, nil
}

//LastEnergies returns the energies of the last successful step.
func (C *Coupler) LastEnergies() Energies {
	return C.last
}

//EffectiveCharge returns the state A and B charges that the classical
//force field should use for atom i.
func (C *Coupler) EffectiveCharge(i int) (float64, float64) {
	return C.effA[i], C.effB[i]
}

//Charges returns copies of the effective charges of all atoms.
func (C *Coupler) Charges() ([]float64, []float64) {
	a := make([]float64, len(C.effA))
	b := make([]float64, len(C.effB))
	copy(a, C.effA)
	copy(b, C.effB)
	return a, b
}

//IsQM returns true if the atom i is in a QM group.
func (C *Coupler) IsQM(i int) bool {
	return C.qmflags[i]
}

//Layers returns the QM layers, from the innermost to the outermost.
func (C *Coupler) Layers() []*Layer {
	return C.layers
}

//Environment returns the embedding of the last update, or nil in the
//Layered scheme.
func (C *Coupler) Environment() *Environment {
	return C.env
}

//Embedded returns the number of embedding charges of the last update.
func (C *Coupler) Embedded() int {
	if C.env == nil {
		return 0
	}
	return C.env.Len()
}

//ShiftVecs returns the shift vectors of the last update.
func (C *Coupler) ShiftVecs() *v3.Matrix {
	if C.pbc == nil {
		return nil
	}
	return C.pbc.ShiftVecs()
}

//SetRecorder sets the recorder for steps. nil disables recording.
func (C *Coupler) SetRecorder(r StepRecorder) {
	C.rec = r
}

//Options returns the options of the coupler.
func (C *Coupler) Options() Options {
	return C.opts
}

func (C *Coupler) String() string {
	return fmt.Sprintf("%s QM/MM, %d layers, %d atoms", C.opts.Scheme, len(C.layers), C.natoms)
}

//Close ends the backend sessions.
func (C *Coupler) Close() error {
	return C.comp.ev.Close()
}
