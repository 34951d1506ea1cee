/*
 * orca.go, part of qmmm.
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
	"bytes"
	"fmt"
	"os"
	"strings"

	v3 "github.com/rmera/qmmm/v3"
)

//OrcaHandle represents an ORCA calculation. As a Backend, it is a template:
//each session works on its own copy.
type OrcaHandle struct {
	defmethod string
	defbasis  string
	command   string
	inputname string
	nCPU      int
	job       *job
}

//NewOrcaHandle initializes and returns an ORCA handle
//with values set to their defaults.
func NewOrcaHandle() *OrcaHandle {
	run := new(OrcaHandle)
	run.SetDefaults()
	return run
}

//SetnCPU sets the number of CPU to be used. It is overridden by the hints
//of the layer, if given.
func (O *OrcaHandle) SetnCPU(cpu int) {
	O.nCPU = cpu
}

//SetName sets the name of the job, that will translate into the input and output files.
func (O *OrcaHandle) SetName(name string) {
	O.inputname = name
}

//SetCommand sets the name and path of the ORCA excecutable
func (O *OrcaHandle) SetCommand(name string) {
	O.command = name
}

//SetDefaults sets the defaults for ORCA calculations.
func (O *OrcaHandle) SetDefaults() {
	O.defmethod = "HF"
	O.defbasis = "def2-SVP"
	O.inputname = "gorca"
	O.command = os.ExpandEnv("${ORCA_PATH}/orca")
	if O.command == "/orca" { //if ORCA_PATH was not defined
		O.command = "./orca"
	}
	O.nCPU = 1
}

//Name returns the name of the program.
func (O *OrcaHandle) Name() string { return "orca" }

//Capabilities of ORCA: ab initio, with point charges.
func (O *OrcaHandle) Capabilities() Capabilities {
	return Capabilities{AbInitio: true, PointCharges: true}
}

//Initialize returns a new session running ORCA with the settings S.
func (O *OrcaHandle) Initialize(S *Settings) (Session, error) {
	if S.SurfaceHopping {
		return nil, unsupported("Initialize", "ORCA can't do surface hopping")
	}
	if _, err := orcaMethod(S.Method); err != nil {
		return nil, errDecorate(err, "Initialize")
	}
	h := *O
	H := S.Hints
	if H.NCPU <= 0 {
		H.NCPU = O.nCPU
	}
	j, err := newJob(O.Name(), O.command, O.inputname, H)
	if err != nil {
		return nil, errDecorate(err, "Initialize")
	}
	h.job = j
	return newSession(O.Name(), &h, S), nil
}

func orcaMethod(m Method) (string, error) {
	switch m {
	case RHF, Direct:
		return "RHF", nil
	case UHF:
		return "UHF", nil
	case DFT, B3LYP, B3LYPLAN:
		return "B3LYP", nil
	case MP2:
		return "RI-MP2 AutoAux", nil
	case CASSCF:
		return "", nil //set with the %casscf block
	}
	return "", unsupported("orcaMethod", "method %s not available in ORCA", m)
}

//BuildInput writes the ORCA input and, if there are embedding charges,
//the point charge file.
func (O *OrcaHandle) BuildInput(in *Input, S *Settings) error {
	method, err := orcaMethod(S.Method)
	if err != nil {
		return errDecorate(err, "BuildInput")
	}
	basis := S.Basis
	if basis == "" {
		basis = O.defbasis
	}
	if S.Method == B3LYPLAN {
		basis = "LANL2DZ"
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "! %s %s EnGrad TightSCF\n", method, basis)
	if O.job.nCPU > 1 {
		fmt.Fprintf(&b, "%%pal nprocs %d end\n", O.job.nCPU)
	}
	if O.job.memory > 0 {
		fmt.Fprintf(&b, "%%maxcore %d\n", O.job.memory/O.job.nCPU)
	}
	if S.Method == CASSCF {
		fmt.Fprintf(&b, "%%casscf\n nel %d\n norb %d\nend\n", S.CASElectrons, S.CASOrbitals)
	}
	if in.NCharges() > 0 {
		fmt.Fprintf(&b, "%%pointcharges \"%s\"\n", O.job.name+".pc")
		if err := O.job.write(".pc", orcaPointCharges(in)); err != nil {
			return errDecorate(err, "BuildInput")
		}
	}
	fmt.Fprintf(&b, "* xyz %d %d\n", S.Charge, S.Multiplicity)
	for i, z := range in.AtomicNumbers {
		atomLine(&b, z, in.Coords, i)
	}
	b.WriteString("*\n")
	return O.job.write(".inp", b.Bytes())
}

func orcaPointCharges(in *Input) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d\n", in.NCharges())
	c := in.EmbeddingCoords
	for i, q := range in.EmbeddingCharges {
		fmt.Fprintf(&b, "%10.6f %14.8f %14.8f %14.8f\n", q, c.At(i, 0)*Nm2A, c.At(i, 1)*Nm2A, c.At(i, 2)*Nm2A)
	}
	return b.Bytes()
}

//Run runs ORCA and waits for it to finish.
func (O *OrcaHandle) Run() error {
	if err := O.job.run(".out", O.job.name+".inp"); err != nil {
		return err
	}
	if !O.job.normalTermination(".out", "ORCA TERMINATED NORMALLY") {
		return backendError(O.Name(), O.job.name, "Run", "ORCA didn't terminate normally")
	}
	return nil
}

//Energy returns the energy of the last calculation, in kJ/mol.
func (O *OrcaHandle) Energy() (float64, error) {
	vals, err := O.engrad()
	if err != nil {
		return 0, errDecorate(err, "Energy")
	}
	return vals[1] * Hartree2KJ, nil
}

//engrad reads all the numbers in the .engrad file: number of atoms, energy and gradients.
func (O *OrcaHandle) engrad() ([]float64, error) {
	s, closef, err := O.job.lines(".engrad")
	if err != nil {
		return nil, err
	}
	defer closef()
	var vals []float64
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := parseFloat(line)
		if err != nil {
			//the coordinates block comes after the gradients.
			break
		}
		vals = append(vals, f)
	}
	if len(vals) < 2 {
		return nil, backendError(O.Name(), O.job.name, "engrad", "no energy in .engrad file")
	}
	return vals, nil
}

//Gradients returns the gradients on the natoms QM atoms followed by those on
//the ncharges point charges, in kJ/mol/nm.
func (O *OrcaHandle) Gradients(natoms, ncharges int) (*v3.Matrix, error) {
	vals, err := O.engrad()
	if err != nil {
		return nil, errDecorate(err, "Gradients")
	}
	if int(vals[0]) != natoms || len(vals) < 2+3*natoms {
		return nil, backendError(O.Name(), O.job.name, "Gradients", ".engrad file has %d atoms, %d expected", int(vals[0]), natoms)
	}
	all := vals[2 : 2+3*natoms]
	if ncharges > 0 {
		pc, err := O.pcgrad()
		if err != nil {
			return nil, errDecorate(err, "Gradients")
		}
		all = append(all, pc...)
	}
	G, err := gradMatrix(all, natoms+ncharges, HartreeBohr2KJNm)
	if err != nil {
		return nil, backendError(O.Name(), O.job.name, "Gradients", "%v", err)
	}
	return G, nil
}

func (O *OrcaHandle) pcgrad() ([]float64, error) {
	s, closef, err := O.job.lines(".pcgrad")
	if err != nil {
		return nil, err
	}
	defer closef()
	var vals []float64
	first := true
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if first { //number of charges
			first = false
			continue
		}
		if len(fields) != 3 {
			continue
		}
		f, err := parseFloats(fields)
		if err != nil {
			return nil, backendError(O.Name(), O.job.name, "pcgrad", "%v", err)
		}
		vals = append(vals, f...)
	}
	return vals, nil
}

//Close removes the scratch files of the session.
func (O *OrcaHandle) Close() error {
	if O.job == nil {
		return nil
	}
	return O.job.cleanup()
}
