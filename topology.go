/*
 * topology.go, part of qmmm.
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

import "fmt"

//NoGroup is the group of atoms that are not in any QM group.
const NoGroup = -1

//Atom contains the static information about an atom that the QM/MM
//coupling needs.
type Atom struct {
	Name    string
	Symbol  string
	Z       int     //atomic number
	ChargeA float64 //classical charge, state A
	ChargeB float64 //classical charge, state B
	Group   int     //innermost QM group the atom belongs to, or NoGroup
}

//Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		panic("Attempted to copy a nil atom")
	}
	at := *A
	return &at
}

//VSite2 is a virtual site constructed from two atoms.
type VSite2 struct {
	Site int
	A    int
	B    int
}

//Topologer is the static topology view the coupling reads at setup.
type Topologer interface {
	//Atom returns the Atom corresponding to the index i. Should panic if
	//out of range.
	Atom(i int) *Atom

	Len() int

	//VSites2 returns the two-atom constructed virtual sites.
	VSites2() []VSite2
}

//Topology contains the information about a system which is not expected to
//change in time. It implements Topologer.
type Topology struct {
	Atoms  []*Atom
	VSites []VSite2
}

//NewTopology returns a topology with the given atoms and virtual sites. It
//returns an error if a virtual site refers to atoms out of range.
func NewTopology(ats []*Atom, vsites []VSite2) (*Topology, error) {
	if ats == nil {
		return nil, fmt.Errorf("supplied a nil atom slice")
	}
	for _, v := range vsites {
		for _, i := range []int{v.Site, v.A, v.B} {
			if i < 0 || i >= len(ats) {
				return nil, fmt.Errorf("virtual site %v refers to atom %d, out of range", v, i)
			}
		}
	}
	return &Topology{Atoms: ats, VSites: vsites}, nil
}

//Atom returns the Atom corresponding to the index i.
func (T *Topology) Atom(i int) *Atom {
	return T.Atoms[i]
}

//Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

func (T *Topology) VSites2() []VSite2 {
	return T.VSites
}
