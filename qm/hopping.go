/*
 * hopping.go, part of qmmm.
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

package qm

//hopper follows the electronic state of a surface hopping trajectory.
//Trajectories start on the first excited state (1) and can only hop down
//to the ground state (0). When the gap between both states is smaller than
//SAOn, the two states are averaged, with weights that go from (0,1) to
//(0.5,0.5) over SASteps steps. When the gap goes under SAOff, the
//trajectory hops to the ground state and stays there.
type hopper struct {
	state    int
	averaged int
	saOn     float64
	saOff    float64
	saSteps  int
}

func newHopper(S *Settings) *hopper {
	return &hopper{state: 1, saOn: S.SAOn, saOff: S.SAOff, saSteps: S.SASteps}
}

//State returns the current electronic state.
func (h *hopper) State() int {
	return h.state
}

//weights returns the weight of the ground and the excited state for the next
//calculation, and whether the states are to be averaged at all.
func (h *hopper) weights() (float64, float64, bool) {
	if h.state == 0 || h.averaged == 0 {
		return 0, 1, false
	}
	f := 1.0
	if h.saSteps > 0 && h.averaged < h.saSteps {
		f = float64(h.averaged) / float64(h.saSteps)
	}
	w0 := 0.5 * f
	return w0, 1 - w0, true
}

//update takes the state energies of the last calculation, ground state
//first, in kJ/mol. It returns the energy of the state the calculation was
//run on, and decides the state for the next one.
func (h *hopper) update(energies []float64) float64 {
	if len(energies) == 0 {
		return 0
	}
	if h.state == 0 || len(energies) < 2 {
		return energies[0]
	}
	current := energies[h.state]
	gap := energies[1] - energies[0]
	switch {
	case gap < h.saOff:
		logger.Info("surface hop to the ground state", "gap", gap)
		h.state = 0
		h.averaged = 0
	case gap < h.saOn:
		h.averaged++
	default:
		h.averaged = 0
	}
	return current
}
