/*
 * pairlist.go, part of qmmm.
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
	"gonum.org/v1/gonum/floats"
)

//PairRow is one row of a QM pair list: the QM atom I, a shift index such
//that x[J] - sv(Shift) is the image of each J closest to x[I], and the J atoms.
type PairRow struct {
	I     int
	Shift int
	J     []int
}

//PairList is a neighbor list restricted to QM rows, as built by the
//neighbor search of the surrounding engine. A QM atom can appear in
//several rows, one per shift.
type PairList struct {
	Rows []PairRow
}

//Len returns the number of pairs in the list.
func (L *PairList) Len() int {
	if L == nil {
		return 0
	}
	n := 0
	for _, r := range L.Rows {
		n += len(r.J)
	}
	return n
}

//NewPairList builds by brute force the pair list of the atoms in rows
//against all other atoms within cutoff nm. Every row atom gets at least
//one row, even if it has no neighbors. X should be in the box (see
//(*PBC).Wrap). It panics if cutoff is negative.
func NewPairList(X *v3.Matrix, P *PBC, rows []int, cutoff float64) *PairList {
	if cutoff < 0 {
		panic(ErrNegativeCutoff)
	}
	L := new(PairList)
	n := X.NVecs()
	for _, I := range rows {
		xi := X.Vec(I)
		byshift := make(map[int][]int)
		for j := 0; j < n; j++ {
			if j == I {
				continue
			}
			dx, is := P.Dx(xi, X.Vec(j))
			if floats.Norm(dx[:], 2) < cutoff {
				byshift[is] = append(byshift[is], j)
			}
		}
		if len(byshift) == 0 {
			L.Rows = append(L.Rows, PairRow{I: I, Shift: CentralShift})
			continue
		}
		shifts := make([]int, 0, len(byshift))
		for is := range byshift {
			shifts = append(shifts, is)
		}
		slices.Sort(shifts)
		for _, is := range shifts {
			L.Rows = append(L.Rows, PairRow{I: I, Shift: is, J: byshift[is]})
		}
	}
	return L
}
