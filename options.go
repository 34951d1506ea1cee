/*
 * options.go, part of qmmm.
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
	"strings"

	"github.com/rmera/qmmm/qm"
)

//Scheme is the way QM layers are combined.
type Scheme int

const (
	//Normal is one QM layer with electrostatic embedding of the MM atoms.
	Normal Scheme = iota
	//Layered is the ONIOM-style additive combination of nested layers,
	//with mechanical embedding.
	Layered
)

func (s Scheme) String() string {
	switch s {
	case Normal:
		return "normal"
	case Layered:
		return "layered"
	}
	return fmt.Sprintf("Scheme(%d)", int(s))
}

//Integrator is the integration algorithm of the surrounding simulation.
type Integrator int

const (
	MD Integrator = iota //leap-frog
	MDVV
	SD
	BD
	Steep
	CG
)

var integratorNames = []string{"md", "md-vv", "sd", "bd", "steep", "cg"}

func (I Integrator) String() string {
	if I < 0 || int(I) >= len(integratorNames) {
		return fmt.Sprintf("Integrator(%d)", int(I))
	}
	return integratorNames[I]
}

//Dynamics returns true for the integrators that propagate in time.
func (I Integrator) Dynamics() bool {
	return I >= MD && I <= BD
}

//CutoffScheme is the neighbor search scheme of the surrounding engine.
type CutoffScheme int

const (
	GroupCutoff CutoffScheme = iota
	VerletCutoff
)

func (c CutoffScheme) String() string {
	if c == GroupCutoff {
		return "group"
	}
	return "verlet"
}

//ParseScheme, ParseIntegrator and ParseCutoffScheme return the value with the
//given name (case insensitive).
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "normal", "":
		return Normal, nil
	case "layered", "oniom":
		return Layered, nil
	}
	return 0, configError("ParseScheme", s, "unknown QM/MM scheme")
}

func ParseIntegrator(s string) (Integrator, error) {
	for i, v := range integratorNames {
		if strings.EqualFold(v, s) {
			return Integrator(i), nil
		}
	}
	return 0, configError("ParseIntegrator", s, "unknown integrator")
}

func ParseCutoffScheme(s string) (CutoffScheme, error) {
	switch strings.ToLower(s) {
	case "group", "":
		return GroupCutoff, nil
	case "verlet":
		return VerletCutoff, nil
	}
	return 0, configError("ParseCutoffScheme", s, "unknown cutoff scheme")
}

//Options for the coupling. Groups holds the method settings of each QM
//group, from the innermost (smallest) to the outermost. In the Normal
//scheme all the groups are merged into one layer, which uses the settings
//of the first group.
type Options struct {
	Scheme      Scheme
	Integrator  Integrator
	Cutoff      CutoffScheme
	Ranks       int     //execution units of the surrounding simulation
	ScaleFactor float64 //applied to the embedding charges
	Groups      []qm.Settings
}

//SetDefaults sets a Normal scheme run on one rank, with unscaled charges.
func (O *Options) SetDefaults() {
	O.Scheme = Normal
	O.Integrator = MD
	O.Cutoff = GroupCutoff
	O.Ranks = 1
	O.ScaleFactor = 1
	for i := range O.Groups {
		O.Groups[i].SetDefaults()
	}
}

//check returns a ConfigurationError for the setups the coupling can't run.
func (O *Options) check() error {
	if O.Cutoff != GroupCutoff {
		return configError("check", "cutoff-scheme="+O.Cutoff.String(), "QM/MM is only supported with the group cutoff scheme")
	}
	if !O.Integrator.Dynamics() {
		return configError("check", "integrator="+O.Integrator.String(), "QM/MM is only supported with dynamics")
	}
	if O.Ranks > 1 {
		return configError("check", fmt.Sprintf("ranks=%d", O.Ranks), "QM/MM does not work in parallel, use a single rank instead")
	}
	if len(O.Groups) == 0 {
		return configError("check", "groups=0", "no QM groups given")
	}
	for i, S := range O.Groups {
		if S.Multiplicity < 1 {
			return configError("check", fmt.Sprintf("group %d multiplicity=%d", i, S.Multiplicity), "multiplicity must be positive")
		}
	}
	return nil
}
