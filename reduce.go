/*
 * reduce.go, part of qmmm.
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

//Membership is the embedding set seen by one execution unit, as one
//(flag, key) pair per atom of the system. The key of a found atom
//encodes the rank of the unit that found it and the shift it was found
//with; it is zero for atoms the unit did not find. Memberships from
//several units are combined with Reduce.
type Membership struct {
	Flags []int
	Keys  []int
}

func membershipKey(rank, shift int) int {
	return rank*NShifts + shift + 1
}

//NewMembership returns the membership of natoms atoms in which the
//neighbors nb, found by the unit of the given rank, are flagged. Units
//of lower rank hold earlier parts of the pair list. It panics if rank
//is negative.
func NewMembership(natoms, rank int, nb []Neighbor) *Membership {
	if rank < 0 {
		panic(ErrNegativeRank)
	}
	M := &Membership{Flags: make([]int, natoms), Keys: make([]int, natoms)}
	for _, n := range nb {
		M.Flags[n.Atom] = 1
		M.Keys[n.Atom] = membershipKey(rank, n.Shift)
	}
	return M
}

//Len returns the number of atoms of the system.
func (M *Membership) Len() int {
	return len(M.Flags)
}

//Reduce sums the flags of the memberships and keeps, for each atom, the
//smallest nonzero key, that is, the shift found by the lowest ranked
//unit. The result does not depend on the order or grouping of the parts.
//It panics if the parts have different lengths.
func Reduce(parts ...*Membership) *Membership {
	if len(parts) == 0 {
		return &Membership{}
	}
	n := parts[0].Len()
	R := &Membership{Flags: make([]int, n), Keys: make([]int, n)}
	for _, p := range parts {
		if p.Len() != n {
			panic(ErrMembershipLength)
		}
		for i := 0; i < n; i++ {
			R.Flags[i] += p.Flags[i]
			if k := p.Keys[i]; k != 0 && (R.Keys[i] == 0 || k < R.Keys[i]) {
				R.Keys[i] = k
			}
		}
	}
	return R
}

//Extract returns the flagged atoms in index order, each with the shift
//found by the lowest ranked unit that found it.
func (M *Membership) Extract() []Neighbor {
	var ret []Neighbor
	for i, f := range M.Flags {
		if f == 0 {
			continue
		}
		ret = append(ret, Neighbor{Atom: i, Shift: (M.Keys[i] - 1) % NShifts})
	}
	return ret
}
