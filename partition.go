/*
 * partition.go, part of qmmm.
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
	"slices"

	v3 "github.com/rmera/qmmm/v3"
)

//Neighbor is an atom found by the neighbor search of a QM atom, with the
//shift that brings it next to the QM layer.
type Neighbor struct {
	Atom  int
	Shift int
}

func byAtom(a, b Neighbor) int {
	return a.Atom - b.Atom
}

//dedup removes, from a slice sorted by atom, all but the first entry of
//each atom, and the atoms for which keep returns false. keep can be nil.
func dedup(nb []Neighbor, keep func(int) bool) []Neighbor {
	ret := nb[:0]
	for i, n := range nb {
		if i > 0 && n.Atom == nb[i-1].Atom {
			continue
		}
		if keep != nil && !keep(n.Atom) {
			continue
		}
		ret = append(ret, n)
	}
	return ret
}

//layerShifts returns, for each atom of L, the shift of its minimum image
//with respect to the first atom of the layer.
func layerShifts(L *Layer, X *v3.Matrix, P *PBC) []int {
	shifts := make([]int, L.Len())
	if L.Len() == 0 {
		return shifts
	}
	ref := X.Vec(L.Atoms[0])
	shifts[0] = CentralShift
	for i := 1; i < L.Len(); i++ {
		_, shifts[i] = P.Dx(ref, X.Vec(L.Atoms[i]))
	}
	return shifts
}

//partition finds the shifts of the atoms in L and the embedding set from
//the pair list. Each row atom gets the shift of its minimum image with
//respect to the first atom of the layer, and the J atoms of the row get
//that shift combined with the row shift. Both lists are sorted by atom,
//keeping the first occurrence of each, and the embedding atoms for which
//keep is false are left out. Layer atoms that are in no row take the
//shift of the previous layer atom. It panics if the layer is not empty
//and the pair list is.
func partition(L *Layer, pl *PairList, X *v3.Matrix, P *PBC, keep func(int) bool) ([]int, []Neighbor) {
	if L.Len() > 0 && (pl == nil || len(pl.Rows) == 0) {
		panic(ErrEmptyPairList)
	}
	shifts := make([]int, L.Len())
	if L.Len() == 0 {
		return shifts, nil
	}
	ref := X.Vec(L.Atoms[0])
	qmp := make([]Neighbor, 0, len(pl.Rows))
	mmp := make([]Neighbor, 0, pl.Len())
	for _, r := range pl.Rows {
		_, qs := P.Dx(ref, X.Vec(r.I))
		qmp = append(qmp, Neighbor{r.I, qs})
		is := CombineShifts(r.Shift, qs)
		for _, j := range r.J {
			mmp = append(mmp, Neighbor{j, is})
		}
	}
	slices.SortStableFunc(qmp, byAtom)
	slices.SortStableFunc(mmp, byAtom)
	qmp = dedup(qmp, nil)
	mmp = dedup(mmp, keep)
	k := 0
	shift := CentralShift
	for i, a := range L.Atoms {
		//rows of atoms that are not in the layer are skipped.
		for k < len(qmp) && qmp[k].Atom < a {
			k++
		}
		if k < len(qmp) && qmp[k].Atom == a {
			shift = qmp[k].Shift
			k++
		}
		shifts[i] = shift
	}
	return shifts, mmp
}
