/*
 * qm.go, part of qmmm.
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

import (
	"fmt"
	"strings"

	v3 "github.com/rmera/qmmm/v3"
)

//Method is a level of electronic-structure theory. The methods before RHF
//are semiempirical, the rest are ab initio.
type Method int

const (
	AM1 Method = iota
	PM3
	RHF
	UHF
	DFT
	B3LYP
	MP2
	CASSCF
	B3LYPLAN
	Direct
)

var methodNames = []string{"AM1", "PM3", "RHF", "UHF", "DFT", "B3LYP", "MP2", "CASSCF", "B3LYPLAN", "DIRECT"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

//Semiempirical returns true for the methods that need a semiempirical backend.
func (m Method) Semiempirical() bool {
	return m < RHF
}

//ParseMethod returns the Method with the given name (case insensitive).
func ParseMethod(name string) (Method, error) {
	for i, v := range methodNames {
		if strings.EqualFold(v, strings.TrimSpace(name)) {
			return Method(i), nil
		}
	}
	return 0, Error{fmt.Sprintf("unknown QM method %q", name), "", "", ErrConfiguration, []string{"ParseMethod"}, true}
}

//Hints are resources that a backend may or may not honor.
type Hints struct {
	NCPU    int
	Memory  int    //Max memory in MB
	Scratch string //Directory for input/output files
	Keep    bool   //Keep the input/output files after the session is closed
}

//Settings is the method configuration of one QM layer. As in the Calc
//structure of gochem, it is kept separated from the choice of QM program.
type Settings struct {
	Method         Method
	Basis          string
	Charge         int
	Multiplicity   int
	SurfaceHopping bool
	CASOrbitals    int
	CASElectrons   int
	SAOn           float64 //gap (kJ/mol) below which states are averaged
	SAOff          float64 //gap (kJ/mol) below which the trajectory hops down
	SASteps        int     //steps to ramp the state-average weights
	Hints          Hints
}

//SetDefaults sets a closed-shell configuration, unless a multiplicity is
//already given, and one CPU.
func (S *Settings) SetDefaults() {
	if S.Multiplicity == 0 {
		S.Multiplicity = 1
	}
	if S.Hints.NCPU == 0 {
		S.Hints.NCPU = 1
	}
}

//Label returns a short method/basis string for logs.
func (S *Settings) Label() string {
	if S.Basis == "" {
		return S.Method.String()
	}
	return S.Method.String() + "/" + S.Basis
}

//Input is what a backend gets for each evaluation. Coordinates are in nm,
//already shifted into a common periodic image.
type Input struct {
	Coords           *v3.Matrix
	AtomicNumbers    []int
	EmbeddingCoords  *v3.Matrix
	EmbeddingCharges []float64
}

//NAtoms returns the number of QM atoms in the input.
func (I *Input) NAtoms() int {
	return len(I.AtomicNumbers)
}

//NCharges returns the number of embedding point charges in the input.
func (I *Input) NCharges() int {
	return len(I.EmbeddingCharges)
}

//Output is what a backend returns. Energy is in kJ/mol and Gradients, in
//kJ/mol/nm, has one row per QM atom followed by one row per embedding charge.
//Gradients are dE/dx, not forces.
type Output struct {
	Energy    float64
	Gradients *v3.Matrix
}

//Capabilities describe what kind of calculations a backend can run.
type Capabilities struct {
	Semiempirical  bool
	AbInitio       bool
	PointCharges   bool
	SurfaceHopping bool
}

//Backend is one QM program. Initialize returns a session bound to one
//method configuration, which is not safe to share between layers.
type Backend interface {
	Name() string
	Capabilities() Capabilities
	Initialize(S *Settings) (Session, error)
}

//Session is the state a backend keeps between evaluations of the same layer.
type Session interface {
	Evaluate(in *Input) (*Output, error)
	Close() error
}
