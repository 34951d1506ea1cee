/*
 * compose.go, part of qmmm.
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
	"github.com/rmera/qmmm/qm"
	v3 "github.com/rmera/qmmm/v3"
)

//Evaluator runs the QM calculations. *qm.Dispatcher implements it.
type Evaluator interface {
	Initialize(owner string, S *qm.Settings, ncharges int) error
	Evaluate(owner string, S *qm.Settings, in *qm.Input) (*qm.Result, error)
	Close() error
}

//Energies of one step, in kJ/mol. Boundaries holds, for each layer but
//the last, the high minus low level energy of that layer. Outer is the
//energy of the last layer, or of the only layer.
type Energies struct {
	Total      float64
	Boundaries []float64
	Outer      float64
}

//contribution is a set of gradients and shift forces to be added to the
//global buffers at the given atoms and shifts.
type contribution struct {
	atoms  []int
	shifts []int
	grad   *v3.Matrix
	sf     *v3.Matrix
	offset int //first row of grad and sf to use
}

//commit subtracts the gradients from the forces and adds the shift forces
//to their buckets.
func (c contribution) commit(F, fshift *v3.Matrix) {
	for i, a := range c.atoms {
		r := i + c.offset
		F.SubFromVec(a, c.grad.RawRowView(r))
		fshift.AddToVec(c.shifts[i], c.sf.RawRowView(r))
	}
}

//compositor evaluates the layers and combines their results.
type compositor struct {
	ev Evaluator
}

//normal evaluates the single layer L with the embedding env. The session
//must have been initialized at setup under the name of L.
func (c compositor) normal(L *Layer, env *Environment) (Energies, []contribution, error) {
	r, err := c.ev.Evaluate(L.Name(), &L.Settings, L.input(env))
	if err != nil {
		return Energies{}, nil, errDecorate(err, "normal")
	}
	con := []contribution{{atoms: L.Atoms, shifts: L.Shifts, grad: r.Gradients, sf: r.ShiftForces}}
	if env != nil && env.Len() > 0 {
		con = append(con, contribution{atoms: env.Atoms, shifts: env.Shifts, grad: r.Gradients, sf: r.ShiftForces, offset: L.Len()})
	}
	return Energies{Total: r.Energy, Outer: r.Energy}, con, nil
}

//fresh starts a new backend session for L and evaluates it without
//embedding charges.
func (c compositor) fresh(L *Layer) (*qm.Result, error) {
	if err := c.ev.Initialize(L.Name(), &L.Settings, 0); err != nil {
		return nil, err
	}
	return c.ev.Evaluate(L.Name(), &L.Settings, L.input(nil))
}

//layered evaluates each layer but the last at its own method (high) and at
//the method of the next layer (low), and the last layer once. The total
//energy is the sum of the high minus low energies plus the energy of the
//last layer. Every evaluation starts a new backend session.
func (c compositor) layered(layers []*Layer) (Energies, []contribution, error) {
	var E Energies
	var con []contribution
	last := len(layers) - 1
	for i := 0; i < last; i++ {
		L := layers[i]
		high, err := c.fresh(L)
		if err != nil {
			return Energies{}, nil, errDecorate(err, "layered")
		}
		low, err := c.fresh(L.companion(layers[i+1]))
		if err != nil {
			return Energies{}, nil, errDecorate(err, "layered")
		}
		n := L.Len()
		dg := v3.Zeros(n)
		dg.Sub(high.Gradients.View(0, n), low.Gradients.View(0, n))
		dsf := v3.Zeros(n)
		dsf.Sub(high.ShiftForces.View(0, n), low.ShiftForces.View(0, n))
		de := high.Energy - low.Energy
		E.Boundaries = append(E.Boundaries, de)
		E.Total += de
		con = append(con, contribution{atoms: L.Atoms, shifts: L.Shifts, grad: dg, sf: dsf})
		logger.Debug("layer boundary", "layer", i, "high", high.Energy, "low", low.Energy)
	}
	outer, err := c.fresh(layers[last])
	if err != nil {
		return Energies{}, nil, errDecorate(err, "layered")
	}
	E.Outer = outer.Energy
	E.Total += outer.Energy
	con = append(con, contribution{atoms: layers[last].Atoms, shifts: layers[last].Shifts, grad: outer.Gradients, sf: outer.ShiftForces})
	return E, con, nil
}
