/*
 * gamess.go, part of qmmm.
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

//GamessHandle represents a GAMESS calculation. This backend doesn't send
//embedding charges to GAMESS, so it is only used for layers without them.
type GamessHandle struct {
	command   string
	inputname string
	nCPU      int
	job       *job
}

//NewGamessHandle initializes and returns a GAMESS handle
//with values set to their defaults.
func NewGamessHandle() *GamessHandle {
	run := new(GamessHandle)
	run.SetDefaults()
	return run
}

//SetnCPU sets the number of CPU to be used.
func (O *GamessHandle) SetnCPU(cpu int) {
	O.nCPU = cpu
}

//SetName sets the name of the job, that will translate into the input and output files.
func (O *GamessHandle) SetName(name string) {
	O.inputname = name
}

//SetCommand sets the name and path of the rungms script
func (O *GamessHandle) SetCommand(name string) {
	O.command = name
}

//SetDefaults sets the defaults for GAMESS calculations.
func (O *GamessHandle) SetDefaults() {
	O.inputname = "ggamess"
	O.command = os.ExpandEnv("${GMS_PATH}/rungms")
	if O.command == "/rungms" {
		O.command = "rungms"
	}
	O.nCPU = 1
}

func (O *GamessHandle) Name() string { return "gamess" }

func (O *GamessHandle) Capabilities() Capabilities {
	return Capabilities{AbInitio: true}
}

//Initialize returns a new session running GAMESS with the settings S.
func (O *GamessHandle) Initialize(S *Settings) (Session, error) {
	if S.SurfaceHopping {
		return nil, unsupported("Initialize", "GAMESS can't do surface hopping")
	}
	if _, err := gamessBasis(S.Basis); err != nil {
		return nil, errDecorate(err, "Initialize")
	}
	if _, err := gamessMethod(S); err != nil {
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

//Basis sets as GAMESS $BASIS groups.
var gamessBasisSets = map[string]string{
	"":         "GBASIS=N31 NGAUSS=6 NDFUNC=1",
	"STO-3G":   "GBASIS=STO NGAUSS=3",
	"3-21G":    "GBASIS=N21 NGAUSS=3",
	"6-31G":    "GBASIS=N31 NGAUSS=6",
	"6-31G*":   "GBASIS=N31 NGAUSS=6 NDFUNC=1",
	"6-31G**":  "GBASIS=N31 NGAUSS=6 NDFUNC=1 NPFUNC=1",
	"6-311G":   "GBASIS=N311 NGAUSS=6",
	"6-311G*":  "GBASIS=N311 NGAUSS=6 NDFUNC=1",
	"6-311G**": "GBASIS=N311 NGAUSS=6 NDFUNC=1 NPFUNC=1",
}

func gamessBasis(basis string) (string, error) {
	b, ok := gamessBasisSets[strings.ToUpper(basis)]
	if !ok {
		return "", Error{fmt.Sprintf("basis set %s not known for GAMESS", basis), "gamess", "", ErrConfiguration, []string{"gamessBasis"}, true}
	}
	return b, nil
}

//gamessMethod returns the $CONTRL options for the method.
func gamessMethod(S *Settings) (string, error) {
	scf := "RHF"
	if S.Multiplicity > 1 {
		scf = "UHF"
	}
	switch S.Method {
	case RHF:
		return "SCFTYP=RHF", nil
	case UHF:
		return "SCFTYP=UHF", nil
	case DFT, B3LYP, B3LYPLAN:
		return "SCFTYP=" + scf + " DFTTYP=B3LYP", nil
	case MP2:
		return "SCFTYP=" + scf + " MPLEVL=2", nil
	case Direct:
		return "SCFTYP=" + scf, nil
	case CASSCF:
		return "SCFTYP=MCSCF", nil
	}
	return "", unsupported("gamessMethod", "method %s not available in GAMESS", S.Method)
}

//BuildInput writes the GAMESS input file.
func (O *GamessHandle) BuildInput(in *Input, S *Settings) error {
	if in.NCharges() > 0 {
		return unsupported("BuildInput", "GAMESS backend can't take embedding charges")
	}
	method, err := gamessMethod(S)
	if err != nil {
		return errDecorate(err, "BuildInput")
	}
	basis, err := gamessBasis(S.Basis)
	if err != nil {
		return errDecorate(err, "BuildInput")
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, " $CONTRL %s RUNTYP=GRADIENT ICHARG=%d MULT=%d NOSYM=1 $END\n", method, S.Charge, S.Multiplicity)
	if S.Method == Direct {
		b.WriteString(" $SCF DIRSCF=.TRUE. $END\n")
	}
	if S.Method == CASSCF {
		//the active space goes on top of the doubly occupied orbitals
		nel := 0
		for _, z := range in.AtomicNumbers {
			nel += z
		}
		nel -= S.Charge
		ncore := (nel - S.CASElectrons) / 2
		fmt.Fprintf(&b, " $DET NCORE=%d NACT=%d NELS=%d $END\n", ncore, S.CASOrbitals, S.CASElectrons)
	}
	if O.job.memory > 0 {
		//1 MWORD is 8 MB
		fmt.Fprintf(&b, " $SYSTEM MWORDS=%d $END\n", O.job.memory/8)
	}
	fmt.Fprintf(&b, " $BASIS %s $END\n", basis)
	fmt.Fprintf(&b, " $DATA\nqmmm job %s\nC1\n", O.job.name)
	c := in.Coords
	for i, z := range in.AtomicNumbers {
		fmt.Fprintf(&b, "%-2s %5.1f %14.8f %14.8f %14.8f\n", Symbol(z), float64(z), c.At(i, 0)*Nm2A, c.At(i, 1)*Nm2A, c.At(i, 2)*Nm2A)
	}
	b.WriteString(" $END\n")
	return O.job.write(".inp", b.Bytes())
}

//Run runs GAMESS and waits for it to finish.
func (O *GamessHandle) Run() error {
	if err := O.job.run(".log", O.job.name, "00", fmt.Sprint(O.job.nCPU)); err != nil {
		return err
	}
	if !O.job.normalTermination(".log", "TERMINATED NORMALLY") {
		return backendError(O.Name(), O.job.name, "Run", "GAMESS didn't terminate normally")
	}
	return nil
}

//Energy returns the energy of the last calculation in kJ/mol.
func (O *GamessHandle) Energy() (float64, error) {
	s, closef, err := O.job.lines(".log")
	if err != nil {
		return 0, errDecorate(err, "Energy")
	}
	defer closef()
	var energy, mp2 float64
	var found, foundmp2 bool
	for s.Scan() {
		line := s.Text()
		switch {
		case strings.Contains(line, "FINAL") && strings.Contains(line, "ENERGY IS"):
			fields := strings.Fields(line[strings.Index(line, "ENERGY IS")+len("ENERGY IS"):])
			if len(fields) == 0 {
				continue
			}
			if energy, err = parseFloat(fields[0]); err != nil {
				return 0, backendError(O.Name(), O.job.name, "Energy", "%v", err)
			}
			found = true
		case strings.Contains(line, "E(MP2)="):
			fields := strings.Fields(line[strings.Index(line, "E(MP2)=")+len("E(MP2)="):])
			if len(fields) == 0 {
				continue
			}
			if mp2, err = parseFloat(fields[0]); err != nil {
				return 0, backendError(O.Name(), O.job.name, "Energy", "%v", err)
			}
			foundmp2 = true
		}
	}
	if foundmp2 {
		return mp2 * Hartree2KJ, nil
	}
	if !found {
		return 0, backendError(O.Name(), O.job.name, "Energy", "output does not contain energy")
	}
	return energy * Hartree2KJ, nil
}

//Gradients returns the gradients on the natoms QM atoms, in kJ/mol/nm.
func (O *GamessHandle) Gradients(natoms, ncharges int) (*v3.Matrix, error) {
	if ncharges > 0 {
		return nil, unsupported("Gradients", "GAMESS backend can't take embedding charges")
	}
	s, closef, err := O.job.lines(".log")
	if err != nil {
		return nil, errDecorate(err, "Gradients")
	}
	defer closef()
	var g []float64
	for s.Scan() {
		if !strings.Contains(s.Text(), "GRADIENT OF THE ENERGY") {
			continue
		}
		g, err = readGamessGradient(s, natoms)
		if err != nil {
			return nil, backendError(O.Name(), O.job.name, "Gradients", "%v", err)
		}
	}
	if g == nil {
		return nil, backendError(O.Name(), O.job.name, "Gradients", "output does not contain gradients")
	}
	G, err := gradMatrix(g, natoms, HartreeBohr2KJNm)
	if err != nil {
		return nil, backendError(O.Name(), O.job.name, "Gradients", "%v", err)
	}
	return G, nil
}

//readGamessGradient reads the natoms rows of the gradient table, those
//with 5 fields after the UNITS ARE HARTREE/BOHR line.
func readGamessGradient(s scanner, natoms int) ([]float64, error) {
	ret := make([]float64, 0, 3*natoms)
	started := false
	for s.Scan() && len(ret) < 3*natoms {
		line := s.Text()
		if strings.Contains(line, "UNITS ARE") {
			started = true
			continue
		}
		fields := strings.Fields(line)
		if !started || len(fields) != 5 {
			continue
		}
		f, err := parseFloats(fields[2:])
		if err != nil {
			return nil, err
		}
		ret = append(ret, f...)
	}
	if len(ret) != 3*natoms {
		return nil, fmt.Errorf("gradient table with %d rows, %d expected", len(ret)/3, natoms)
	}
	return ret, nil
}

//Close removes the scratch files of the session.
func (O *GamessHandle) Close() error {
	if O.job == nil {
		return nil
	}
	return O.job.cleanup()
}
