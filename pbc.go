/*
 * pbc.go, part of qmmm.
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
	"math"

	v3 "github.com/rmera/qmmm/v3"
	"gonum.org/v1/gonum/floats"
)

//Periodic shifts go from -shiftMax to shiftMax box vectors in each direction.
const (
	shiftMax     = 2
	shiftsDim    = 2*shiftMax + 1
	NShifts      = shiftsDim * shiftsDim * shiftsDim
	CentralShift = (shiftMax*shiftsDim+shiftMax)*shiftsDim + shiftMax
)

//ShiftIndex returns the index of the shift of x, y and z box vectors.
func ShiftIndex(x, y, z int) int {
	if abs(x) > shiftMax || abs(y) > shiftMax || abs(z) > shiftMax {
		panic(ErrShiftRange)
	}
	return ((z+shiftMax)*shiftsDim+(y+shiftMax))*shiftsDim + x + shiftMax
}

//ShiftXYZ returns the number of box vectors in each direction for the
//shift index is.
func ShiftXYZ(is int) (int, int, int) {
	return is%shiftsDim - shiftMax, (is/shiftsDim)%shiftsDim - shiftMax, is/(shiftsDim*shiftsDim) - shiftMax
}

//CombineShifts returns the shift index of the sum of the shifts a and b.
func CombineShifts(a, b int) int {
	ax, ay, az := ShiftXYZ(a)
	bx, by, bz := ShiftXYZ(b)
	return ShiftIndex(ax+bx, ay+by, az+bz)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

//PBC holds a periodic box and the shift vectors built from it.
//The box vectors are the rows of the box matrix, with the triclinic
//convention of a lower triangular box. Directions with a zero box
//length are not periodic.
type PBC struct {
	box       [3][3]float64
	shiftvecs *v3.Matrix
}

//NewPBC returns the periodic boundary conditions for box, which must have
//3 rows.
func NewPBC(box *v3.Matrix) (*PBC, error) {
	if box == nil || box.NVecs() != 3 {
		return nil, configError("NewPBC", "box", "the box must have 3 vectors")
	}
	P := new(PBC)
	for i := 0; i < 3; i++ {
		P.box[i] = box.Vec(i)
		if P.box[i][i] < 0 {
			return nil, configError("NewPBC", fmt.Sprintf("box[%d][%d]=%g", i, i, P.box[i][i]), "negative box length")
		}
	}
	P.shiftvecs = v3.Zeros(NShifts)
	for is := 0; is < NShifts; is++ {
		x, y, z := ShiftXYZ(is)
		sv := make([]float64, 3)
		floats.AddScaled(sv, float64(x), P.box[0][:])
		floats.AddScaled(sv, float64(y), P.box[1][:])
		floats.AddScaled(sv, float64(z), P.box[2][:])
		P.shiftvecs.SetVec(is, [3]float64{sv[0], sv[1], sv[2]})
	}
	return P, nil
}

//ShiftVecs returns the shift vectors, one row per shift index.
func (P *PBC) ShiftVecs() *v3.Matrix {
	return P.shiftvecs
}

//ShiftVec returns the shift vector for the index is.
func (P *PBC) ShiftVec(is int) [3]float64 {
	return P.shiftvecs.Vec(is)
}

//Dx returns the minimum image dx = x1 - x2 + sv(is) and the shift index is.
//x2 - sv(is) is then the image of x2 closest to x1. It panics if x1 and
//x2 are so far apart that the shift has no index, which does not happen
//for points in the box (see Wrap).
func (P *PBC) Dx(x1, x2 [3]float64) ([3]float64, int) {
	dx := x1
	floats.Sub(dx[:], x2[:])
	var s [3]int
	for m := 2; m >= 0; m-- {
		l := P.box[m][m]
		if l == 0 {
			continue
		}
		for dx[m] > 0.5*l {
			floats.Sub(dx[:], P.box[m][:])
			s[m]--
		}
		for dx[m] <= -0.5*l {
			floats.Add(dx[:], P.box[m][:])
			s[m]++
		}
	}
	return dx, ShiftIndex(s[0], s[1], s[2])
}

//Wrap returns a copy of X with every point moved into the box by whole
//box vectors. Points that are more than two boxes apart along a
//periodic direction have no shift index, so coordinates given to Dx,
//NewPairList and the Coupler should be wrapped first.
func (P *PBC) Wrap(X *v3.Matrix) *v3.Matrix {
	W := v3.Zeros(X.NVecs())
	for i := 0; i < X.NVecs(); i++ {
		x := X.Vec(i)
		for m := 2; m >= 0; m-- {
			l := P.box[m][m]
			if l == 0 {
				continue
			}
			n := math.Floor(x[m] / l)
			floats.AddScaled(x[:], -n, P.box[m][:])
			if x[m] >= l {
				floats.Sub(x[:], P.box[m][:])
			}
		}
		W.SetVec(i, x)
	}
	return W
}

//Shifted returns x - sv(is).
func (P *PBC) Shifted(x [3]float64, is int) [3]float64 {
	sv := P.ShiftVec(is)
	floats.Sub(x[:], sv[:])
	return x
}
