/*
 * gaussian.go, part of qmmm.
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
	"strconv"
	"strings"

	v3 "github.com/rmera/qmmm/v3"
)

//GaussianHandle represents a Gaussian calculation. It is the only ab initio
//backend with surface hopping (CASSCF). Gradients on the embedding charges
//are obtained from the electric field the QM system creates at their
//positions.
type GaussianHandle struct {
	defbasis  string
	command   string
	inputname string
	nCPU      int
	job       *job
	hop       *hopper
	charges   []float64 //embedding charges of the last input
}

//NewGaussianHandle initializes and returns a Gaussian handle
//with values set to their defaults.
func NewGaussianHandle() *GaussianHandle {
	run := new(GaussianHandle)
	run.SetDefaults()
	return run
}

//SetnCPU sets the number of CPU to be used.
func (O *GaussianHandle) SetnCPU(cpu int) {
	O.nCPU = cpu
}

//SetName sets the name of the job, that will translate into the input and output files.
func (O *GaussianHandle) SetName(name string) {
	O.inputname = name
}

//SetCommand sets the name and path of the Gaussian excecutable
func (O *GaussianHandle) SetCommand(name string) {
	O.command = name
}

//SetDefaults sets the defaults for Gaussian calculations.
func (O *GaussianHandle) SetDefaults() {
	O.defbasis = "6-31G*"
	O.inputname = "ggauss"
	O.command = os.ExpandEnv("${GAUSS_EXEDIR}/g16")
	if O.command == "/g16" {
		O.command = "g16"
	}
	O.nCPU = 1
}

func (O *GaussianHandle) Name() string { return "gaussian" }

func (O *GaussianHandle) Capabilities() Capabilities {
	return Capabilities{AbInitio: true, PointCharges: true, SurfaceHopping: true}
}

//Initialize returns a new session running Gaussian with the settings S.
func (O *GaussianHandle) Initialize(S *Settings) (Session, error) {
	if _, err := gaussianMethod(S, nil); err != nil {
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
	h.hop = nil
	h.charges = nil
	if S.SurfaceHopping {
		h.hop = newHopper(S)
	}
	return newSession(O.Name(), &h, S), nil
}

//gaussianMethod returns the method part of the route line.
func gaussianMethod(S *Settings, hop *hopper) (string, error) {
	switch S.Method {
	case RHF:
		return "RHF", nil
	case UHF:
		return "UHF", nil
	case DFT, B3LYP, B3LYPLAN:
		return "B3LYP", nil
	case MP2:
		return "MP2", nil
	case Direct:
		return "RHF SCF=Direct", nil
	case CASSCF:
		if S.CASOrbitals <= 0 || S.CASElectrons <= 0 {
			return "", Error{fmt.Sprintf("CASSCF needs an active space, got (%d,%d)", S.CASElectrons, S.CASOrbitals), "gaussian", "", ErrConfiguration, []string{"gaussianMethod"}, true}
		}
		if hop == nil || hop.State() == 0 {
			if S.SurfaceHopping {
				//two roots so the gap is always known.
				return fmt.Sprintf("CASSCF(%d,%d,NRoot=2)", S.CASElectrons, S.CASOrbitals), nil
			}
			return fmt.Sprintf("CASSCF(%d,%d)", S.CASElectrons, S.CASOrbitals), nil
		}
		if _, _, avg := hop.weights(); avg {
			return fmt.Sprintf("CASSCF(%d,%d,NRoot=2,StateAverage)", S.CASElectrons, S.CASOrbitals), nil
		}
		return fmt.Sprintf("CASSCF(%d,%d,NRoot=2)", S.CASElectrons, S.CASOrbitals), nil
	}
	return "", unsupported("gaussianMethod", "method %s not available in Gaussian", S.Method)
}

//BuildInput writes the Gaussian input file.
func (O *GaussianHandle) BuildInput(in *Input, S *Settings) error {
	method, err := gaussianMethod(S, O.hop)
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
	fmt.Fprintf(&b, "%%nprocshared=%d\n", O.job.nCPU)
	if O.job.memory > 0 {
		fmt.Fprintf(&b, "%%mem=%dMB\n", O.job.memory)
	}
	extra := ""
	if in.NCharges() > 0 {
		extra = " Charge Prop=(Field,Read)"
	}
	fmt.Fprintf(&b, "#P %s/%s Force NoSymm%s\n\n", method, basis, extra)
	fmt.Fprintf(&b, "qmmm job %s\n\n", O.job.name)
	fmt.Fprintf(&b, "%d %d\n", S.Charge, S.Multiplicity)
	for i, z := range in.AtomicNumbers {
		atomLine(&b, z, in.Coords, i)
	}
	b.WriteString("\n")
	O.charges = append(O.charges[:0], in.EmbeddingCharges...)
	if in.NCharges() > 0 {
		c := in.EmbeddingCoords
		for i, q := range in.EmbeddingCharges {
			fmt.Fprintf(&b, "%14.8f %14.8f %14.8f %10.6f\n", c.At(i, 0)*Nm2A, c.At(i, 1)*Nm2A, c.At(i, 2)*Nm2A, q)
		}
		b.WriteString("\n")
		//the points where the field is to be evaluated
		for i := 0; i < in.NCharges(); i++ {
			fmt.Fprintf(&b, "%14.8f %14.8f %14.8f\n", c.At(i, 0)*Nm2A, c.At(i, 1)*Nm2A, c.At(i, 2)*Nm2A)
		}
		b.WriteString("\n")
	}
	if O.hop != nil {
		if w0, w1, avg := O.hop.weights(); avg {
			fmt.Fprintf(&b, "%.6f %.6f\n\n", w0, w1)
		}
	}
	return O.job.write(".com", b.Bytes())
}

//Run runs Gaussian and waits for it to finish.
func (O *GaussianHandle) Run() error {
	if err := O.job.run("", O.job.name+".com"); err != nil {
		return err
	}
	if !O.job.normalTermination(".log", "Normal termination") {
		return backendError(O.Name(), O.job.name, "Run", "Gaussian didn't terminate normally")
	}
	return nil
}

//Energy returns the energy of the last calculation in kJ/mol. For surface
//hopping runs, it is the energy of the state on which the calculation ran.
func (O *GaussianHandle) Energy() (float64, error) {
	s, closef, err := O.job.lines(".log")
	if err != nil {
		return 0, errDecorate(err, "Energy")
	}
	defer closef()
	var scf, mp2 float64
	var foundscf, foundmp2 bool
	roots := make(map[int]float64)
	maxroot := 0
	for s.Scan() {
		line := s.Text()
		switch {
		case strings.Contains(line, "SCF Done:"):
			fields := strings.Fields(line[strings.Index(line, "=")+1:])
			if len(fields) == 0 {
				continue
			}
			if scf, err = parseFloat(fields[0]); err != nil {
				return 0, backendError(O.Name(), O.job.name, "Energy", "can't read SCF energy: %v", err)
			}
			foundscf = true
		case strings.Contains(line, "EUMP2 ="):
			fields := strings.Fields(line[strings.Index(line, "EUMP2 =")+len("EUMP2 ="):])
			if len(fields) == 0 {
				continue
			}
			if mp2, err = parseFloat(fields[0]); err != nil {
				return 0, backendError(O.Name(), O.job.name, "Energy", "can't read MP2 energy: %v", err)
			}
			foundmp2 = true
		case strings.Contains(line, "EIGENVALUE") && strings.HasPrefix(strings.TrimSpace(line), "("):
			//( 1) EIGENVALUE   -75.9832
			l := strings.TrimSpace(line)
			end := strings.Index(l, ")")
			if end < 1 {
				continue
			}
			r, err1 := strconv.Atoi(strings.TrimSpace(l[1:end]))
			fields := strings.Fields(l[strings.Index(l, "EIGENVALUE")+len("EIGENVALUE"):])
			if err1 != nil || r < 1 || len(fields) == 0 {
				continue
			}
			e, err2 := parseFloat(fields[0])
			if err2 != nil {
				continue
			}
			roots[r-1] = e * Hartree2KJ
			if r > maxroot {
				maxroot = r
			}
		}
	}
	if maxroot > 0 {
		energies := make([]float64, maxroot)
		for i := range energies {
			energies[i] = roots[i]
		}
		if O.hop != nil {
			return O.hop.update(energies), nil
		}
		return energies[0], nil
	}
	if foundmp2 {
		return mp2 * Hartree2KJ, nil
	}
	if foundscf {
		return scf * Hartree2KJ, nil
	}
	return 0, backendError(O.Name(), O.job.name, "Energy", "output does not contain energy")
}

//Gradients returns the gradients on the natoms QM atoms followed by those on
//the ncharges point charges, in kJ/mol/nm.
func (O *GaussianHandle) Gradients(natoms, ncharges int) (*v3.Matrix, error) {
	s, closef, err := O.job.lines(".log")
	if err != nil {
		return nil, errDecorate(err, "Gradients")
	}
	defer closef()
	var forces, field []float64
	for s.Scan() {
		line := s.Text()
		switch {
		case strings.Contains(line, "Forces (Hartrees/Bohr)"):
			forces, err = readTable(s, natoms, 5)
		case ncharges > 0 && strings.Contains(line, "-------- Electric Field --------"):
			field, err = readFieldPoints(s, natoms, ncharges)
		}
		if err != nil {
			return nil, backendError(O.Name(), O.job.name, "Gradients", "%v", err)
		}
	}
	if forces == nil {
		return nil, backendError(O.Name(), O.job.name, "Gradients", "output does not contain forces")
	}
	for i := range forces {
		forces[i] = -forces[i]
	}
	if ncharges > 0 {
		if field == nil {
			return nil, backendError(O.Name(), O.job.name, "Gradients", "output does not contain the electric field at the embedding charges")
		}
		q := O.charges
		if len(q) != ncharges {
			return nil, backendError(O.Name(), O.job.name, "Gradients", "%d charges in the last input, %d expected", len(q), ncharges)
		}
		for i := 0; i < ncharges; i++ {
			for j := 0; j < 3; j++ {
				field[3*i+j] *= -q[i]
			}
		}
		forces = append(forces, field...)
	}
	G, err := gradMatrix(forces, natoms+ncharges, HartreeBohr2KJNm)
	if err != nil {
		return nil, backendError(O.Name(), O.job.name, "Gradients", "%v", err)
	}
	return G, nil
}

//scanner is the part of bufio.Scanner used by the table readers.
type scanner interface {
	Scan() bool
	Text() string
}

//readTable reads, after the header, rows of a dash-delimited table, each with
//nfields fields, of which the last 3 are returned.
func readTable(s scanner, nrows, nfields int) ([]float64, error) {
	ret := make([]float64, 0, 3*nrows)
	dashes := 0
	for s.Scan() && len(ret) < 3*nrows {
		line := strings.TrimSpace(s.Text())
		if strings.HasPrefix(line, "---") {
			dashes++
			if dashes > 1 {
				break
			}
			continue
		}
		fields := strings.Fields(line)
		if dashes == 0 || len(fields) != nfields {
			continue
		}
		f, err := parseFloats(fields[nfields-3:])
		if err != nil {
			return nil, err
		}
		ret = append(ret, f...)
	}
	if len(ret) != 3*nrows {
		return nil, fmt.Errorf("table with %d rows, %d expected", len(ret)/3, nrows)
	}
	return ret, nil
}

//readFieldPoints reads the electric field at the ncharges points that follow
//the natoms atoms in the Gaussian property table.
func readFieldPoints(s scanner, natoms, ncharges int) ([]float64, error) {
	ret := make([]float64, 0, 3*ncharges)
	dashes := 0
	row := 0
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if strings.HasPrefix(line, "---") {
			dashes++
			if dashes > 1 {
				break
			}
			continue
		}
		fields := strings.Fields(line)
		if dashes == 0 || len(fields) < 4 {
			continue
		}
		row++
		if row <= natoms {
			continue
		}
		f, err := parseFloats(fields[len(fields)-3:])
		if err != nil {
			return nil, err
		}
		ret = append(ret, f...)
	}
	if len(ret) != 3*ncharges {
		return nil, fmt.Errorf("electric field at %d points, %d expected", len(ret)/3, ncharges)
	}
	return ret, nil
}

//Close removes the scratch files of the session.
func (O *GaussianHandle) Close() error {
	if O.job == nil {
		return nil
	}
	return O.job.cleanup()
}
