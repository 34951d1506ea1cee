/*
 * classify.go, part of qmmm.
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
	"slices"
)

//classify returns the atoms of each QM layer, in index order. In the Normal
//scheme there is one layer with the atoms of all the groups. In the Layered
//scheme, layer k has the atoms of the groups 0 to k, and the two-atom
//virtual sites whose site and constructing atoms are all in the same group
//are removed from every layer.
func classify(top Topologer, ngroups int, scheme Scheme) ([][]int, error) {
	n := top.Len()
	if scheme == Normal {
		var atoms []int
		for i := 0; i < n; i++ {
			if g := top.Atom(i).Group; g >= 0 && g < ngroups {
				atoms = append(atoms, i)
			}
		}
		if len(atoms) == 0 {
			return nil, configError("classify", "groups", "no atoms in the QM groups")
		}
		return [][]int{atoms}, nil
	}
	removed := make(map[int]bool)
	for _, v := range top.VSites2() {
		g := top.Atom(v.Site).Group
		if g >= 0 && g == top.Atom(v.A).Group && g == top.Atom(v.B).Group {
			removed[v.Site] = true
		}
	}
	layers := make([][]int, ngroups)
	for k := 0; k < ngroups; k++ {
		for i := 0; i < n; i++ {
			if g := top.Atom(i).Group; g >= 0 && g <= k && !removed[i] {
				layers[k] = append(layers[k], i)
			}
		}
		if k == 0 {
			continue
		}
		if len(layers[k]) <= len(layers[k-1]) {
			return nil, configError("classify", fmt.Sprintf("group %d", k), "layer %d (%d atoms) is not larger than layer %d (%d atoms), groups must go from the smallest to the largest", k, len(layers[k]), k-1, len(layers[k-1]))
		}
	}
	for k, l := range layers {
		if len(l) == 0 {
			return nil, configError("classify", fmt.Sprintf("group %d", k), "empty QM layer")
		}
	}
	if len(removed) > 0 {
		sites := make([]int, 0, len(removed))
		for s := range removed {
			sites = append(sites, s)
		}
		slices.Sort(sites)
		logger.Info("removed boundary virtual sites from the QM layers", "sites", sites)
	}
	return layers, nil
}

//effectiveCharges returns the charges the classical force field should use.
//In the Normal scheme, the charges of the QM atoms are zero in both states,
//since their electrostatics are part of the QM calculation. The Layered
//scheme keeps all the charges.
func effectiveCharges(top Topologer, qmflags []bool, scheme Scheme) ([]float64, []float64) {
	a := make([]float64, top.Len())
	b := make([]float64, top.Len())
	for i := range a {
		if scheme == Normal && qmflags[i] {
			continue
		}
		at := top.Atom(i)
		a[i] = at.ChargeA
		b[i] = at.ChargeB
	}
	return a, b
}
