/*
 * records.go, part of qmmm.
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

	"github.com/rmera/qmmm/qm"
	v3 "github.com/rmera/qmmm/v3"
)

//Layer is one QM region: its atoms, in index order, with their atomic
//numbers, and the periodic shifts and shifted coordinates of the last update.
type Layer struct {
	Index         int
	Atoms         []int
	AtomicNumbers []int
	Shifts        []int
	Coords        *v3.Matrix //nm, shifted into the image of the first atom
	Settings      qm.Settings
	Electrons     int
}

func newLayer(index int, atoms []int, top Topologer, S qm.Settings) *Layer {
	L := &Layer{Index: index, Atoms: atoms, Settings: S}
	L.AtomicNumbers = make([]int, len(atoms))
	L.Shifts = make([]int, len(atoms))
	for i, a := range atoms {
		L.AtomicNumbers[i] = top.Atom(a).Z
		L.Shifts[i] = CentralShift
	}
	L.Coords = v3.Zeros(len(atoms))
	L.setElectrons()
	return L
}

func (L *Layer) setElectrons() {
	L.Electrons = -L.Settings.Charge
	for _, z := range L.AtomicNumbers {
		L.Electrons += z
	}
}

//Len returns the number of atoms in the layer.
func (L *Layer) Len() int {
	return len(L.Atoms)
}

//Name identifies the layer and method level in logs and backend sessions.
func (L *Layer) Name() string {
	return fmt.Sprintf("layer%d-%s", L.Index, L.Settings.Label())
}

//companion returns a layer with the atoms, shifts and coordinates of L, and
//the method of outer, but the net charge of L.
func (L *Layer) companion(outer *Layer) *Layer {
	C := &Layer{
		Index:         L.Index,
		Atoms:         L.Atoms,
		AtomicNumbers: L.AtomicNumbers,
		Shifts:        L.Shifts,
		Coords:        L.Coords,
		Settings:      outer.Settings,
	}
	C.Settings.Charge = L.Settings.Charge
	C.setElectrons()
	return C
}

//setCoords places the layer atoms in their shifted positions.
func (L *Layer) setCoords(X *v3.Matrix, P *PBC) {
	L.Coords.SomeVecs(X, L.Atoms)
	for i, is := range L.Shifts {
		L.Coords.SetVec(i, P.Shifted(L.Coords.Vec(i), is))
	}
}

//input builds the backend input for L, with env as embedding, if not nil.
func (L *Layer) input(env *Environment) *qm.Input {
	in := &qm.Input{Coords: L.Coords, AtomicNumbers: L.AtomicNumbers}
	if env != nil && env.Len() > 0 {
		in.EmbeddingCoords = env.Coords
		in.EmbeddingCharges = env.Charges
	}
	return in
}

//Environment is the set of MM atoms that embed a Normal QM layer as point
//charges.
type Environment struct {
	Atoms       []int
	Shifts      []int
	Coords      *v3.Matrix
	Charges     []float64
	ScaleFactor float64
}

//Len returns the number of embedding atoms.
func (E *Environment) Len() int {
	return len(E.Atoms)
}

//set fills the environment with the neighbors nb: shifted coordinates and
//scaled state A charges.
func (E *Environment) set(nb []Neighbor, X *v3.Matrix, P *PBC, chargeA []float64) {
	E.Atoms = make([]int, len(nb))
	E.Shifts = make([]int, len(nb))
	E.Charges = make([]float64, len(nb))
	E.Coords = v3.Zeros(len(nb))
	for i, n := range nb {
		E.Atoms[i] = n.Atom
		E.Shifts[i] = n.Shift
		E.Charges[i] = chargeA[n.Atom] * E.ScaleFactor
	}
	E.Coords.SomeVecs(X, E.Atoms)
	for i, is := range E.Shifts {
		E.Coords.SetVec(i, P.Shifted(E.Coords.Vec(i), is))
	}
}
