/*
 * v3_test.go, part of qmmm.
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

package v3

import (
	"fmt"
	"testing"
)

func TestSomeVecs(Te *testing.T) {
	a := []float64{1.0, 2.0, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}
	A, err := NewMatrix(a)
	if err != nil {
		Te.Fatal(err)
	}
	B := Zeros(3)
	cind := []int{1, 3, 5}
	B.SomeVecs(A, cind)
	if B.At(2, 0) != 16 || B.At(0, 2) != 6 {
		Te.Errorf("SomeVecs picked the wrong vectors: %v", B)
	}
	B.Set(1, 1, 55)
	if A.At(3, 1) == 55 {
		Te.Error("SomeVecs should copy the vectors")
	}
	Zeros(0).SomeVecs(A, nil)
	func() {
		defer func() {
			if r := recover(); r != ErrShape {
				Te.Errorf("expected a shape panic for a mismatched receiver, got %v", r)
			}
		}()
		Zeros(2).SomeVecs(A, cind)
	}()
	fmt.Println(A, "\n", B)
}

func TestAddSubFromVec(Te *testing.T) {
	A, err := NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		Te.Fatal(err)
	}
	A.AddToVec(1, []float64{10, 20, 30})
	if A.At(1, 1) != 25 || A.At(0, 1) != 2 {
		Te.Errorf("AddToVec result wrong: %v", A)
	}
	A.SubFromVec(0, []float64{1, 2, 3})
	if A.Vec(0) != [3]float64{0, 0, 0} {
		Te.Errorf("SubFromVec result wrong: %v", A)
	}
	A.SetVec(0, [3]float64{7, 8, 9})
	if A.At(0, 2) != 9 {
		Te.Errorf("SetVec result wrong: %v", A)
	}
}

func TestViewsAndEmpty(Te *testing.T) {
	if _, err := NewMatrix([]float64{1, 2}); err == nil {
		Te.Error("a slice of 2 elements shouldn't make a Matrix")
	}
	E := Zeros(0)
	if E.NVecs() != 0 || E.String() != "[ ]" {
		Te.Errorf("empty matrix reports %d vecs", E.NVecs())
	}
	A := Zeros(4)
	A.Set(2, 1, 7)
	w := A.View(1, 2)
	if w.NVecs() != 2 || w.At(1, 1) != 7 {
		Te.Errorf("View returned the wrong block: %v", w)
	}
	w.Set(0, 0, 3)
	if A.At(1, 0) != 3 {
		Te.Error("changes in a View should be seen in the parent matrix")
	}
}
