/*
 * mopac.go, part of qmmm.
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

//MopacHandle represents a MOPAC calculation. MOPAC is the semiempirical
//backend. It does not take embedding charges, but it can do surface hopping
//through configuration interaction.
type MopacHandle struct {
	command   string
	inputname string
	job       *job
	hop       *hopper
}

//NewMopacHandle initializes and returns a MOPAC handle
//with values set to their defaults.
func NewMopacHandle() *MopacHandle {
	run := new(MopacHandle)
	run.SetDefaults()
	return run
}

//SetName sets the name of the job, that will translate into the input and output files.
func (O *MopacHandle) SetName(name string) {
	O.inputname = name
}

//SetCommand sets the name and path of the MOPAC excecutable
func (O *MopacHandle) SetCommand(name string) {
	O.command = name
}

//SetDefaults sets the defaults for MOPAC calculations.
func (O *MopacHandle) SetDefaults() {
	O.inputname = "gmopac"
	O.command = os.ExpandEnv("${MOPAC_PATH}/mopac")
	if O.command == "/mopac" {
		O.command = "mopac"
	}
}

func (O *MopacHandle) Name() string { return "mopac" }

func (O *MopacHandle) Capabilities() Capabilities {
	return Capabilities{Semiempirical: true, SurfaceHopping: true}
}

//Initialize returns a new session running MOPAC with the settings S.
func (O *MopacHandle) Initialize(S *Settings) (Session, error) {
	if !S.Method.Semiempirical() {
		return nil, unsupported("Initialize", "MOPAC only runs semi-empirical methods, not %s", S.Method)
	}
	h := *O
	j, err := newJob(O.Name(), O.command, O.inputname, S.Hints)
	if err != nil {
		return nil, errDecorate(err, "Initialize")
	}
	h.job = j
	h.hop = nil
	if S.SurfaceHopping {
		h.hop = newHopper(S)
	}
	return newSession(O.Name(), &h, S), nil
}

var mopacMultiplicity = map[int]string{1: "SINGLET", 2: "DOUBLET", 3: "TRIPLET", 4: "QUARTET", 5: "QUINTET"}

//BuildInput writes the MOPAC input file. All the coordinates are flagged
//for optimization, so MOPAC prints the full gradient.
func (O *MopacHandle) BuildInput(in *Input, S *Settings) error {
	if in.NCharges() > 0 {
		return unsupported("BuildInput", "MOPAC can't take embedding charges")
	}
	mult, ok := mopacMultiplicity[S.Multiplicity]
	if !ok {
		return Error{fmt.Sprintf("multiplicity %d not supported", S.Multiplicity), O.Name(), O.job.name, ErrConfiguration, []string{"BuildInput"}, true}
	}
	keys := []string{S.Method.String(), "1SCF", "GRAD", "AUX(PRECISION=9)", fmt.Sprintf("CHARGE=%d", S.Charge), mult}
	if S.Hints.NCPU > 1 {
		keys = append(keys, fmt.Sprintf("THREADS=%d", S.Hints.NCPU))
	}
	if O.hop != nil {
		//ROOT counts from 1
		keys = append(keys, "C.I.=2", fmt.Sprintf("ROOT=%d", O.hop.State()+1))
	}
	var b bytes.Buffer
	b.WriteString(strings.Join(keys, " ") + "\n")
	fmt.Fprintf(&b, "qmmm job %s\n\n", O.job.name)
	c := in.Coords
	for i, z := range in.AtomicNumbers {
		fmt.Fprintf(&b, "%-2s %14.8f 1 %14.8f 1 %14.8f 1\n", Symbol(z), c.At(i, 0)*Nm2A, c.At(i, 1)*Nm2A, c.At(i, 2)*Nm2A)
	}
	return O.job.write(".mop", b.Bytes())
}

//Run runs MOPAC and waits for it to finish.
func (O *MopacHandle) Run() error {
	if err := O.job.run("", O.job.name+".mop"); err != nil {
		return err
	}
	if !O.job.normalTermination(".aux", "HEAT_OF_FORMATION") {
		return backendError(O.Name(), O.job.name, "Run", "MOPAC didn't write a heat of formation")
	}
	return nil
}

//auxValues returns the numbers under the key in the .aux file
//(the key ends before the ':' or '[').
func (O *MopacHandle) auxValues(key string) ([]float64, error) {
	s, closef, err := O.job.lines(".aux")
	if err != nil {
		return nil, err
	}
	defer closef()
	return readAux(s, key)
}

func readAux(s scanner, key string) ([]float64, error) {
	var ret []float64
	reading := false
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if reading {
			if strings.Contains(line, "=") || strings.HasPrefix(line, "#") || line == "" {
				break
			}
			f, err := parseFloats(strings.Fields(line))
			if err != nil {
				return nil, err
			}
			ret = append(ret, f...)
			continue
		}
		if !strings.HasPrefix(line, key) {
			continue
		}
		//KEY:UNITS=value or KEY[nnnn]=
		rest := line[strings.Index(line, "=")+1:]
		if rest != "" {
			f, err := parseFloats(strings.Fields(rest))
			if err != nil {
				return nil, err
			}
			ret = append(ret, f...)
		}
		if !strings.Contains(line, "[") {
			break
		}
		reading = true
	}
	if ret == nil {
		return nil, fmt.Errorf("%s not found", key)
	}
	return ret, nil
}

//Energy returns the heat of formation in kJ/mol. In surface hopping runs,
//the state energies from the CI table are passed to the hopper.
func (O *MopacHandle) Energy() (float64, error) {
	hof, err := O.auxValues("HEAT_OF_FORMATION")
	if err != nil {
		return 0, backendError(O.Name(), O.job.name, "Energy", "%v", err)
	}
	E := hof[0] * Kcal2KJ
	if O.hop == nil {
		return E, nil
	}
	states, err := O.ciStates()
	if err != nil {
		return 0, errDecorate(err, "Energy")
	}
	//The heat of formation is that of the root used. Only the gap
	//matters to the hopper.
	rel := make([]float64, len(states))
	for i, v := range states {
		rel[i] = v - states[O.hop.State()] + E
	}
	return O.hop.update(rel), nil
}

//ciStates reads the relative energies (eV) of the CI states from the output,
//and returns them in kJ/mol.
func (O *MopacHandle) ciStates() ([]float64, error) {
	s, closef, err := O.job.lines(".out")
	if err != nil {
		return nil, err
	}
	defer closef()
	var ret []float64
	intable := false
	for s.Scan() {
		line := s.Text()
		if strings.Contains(line, "STATE") && strings.Contains(line, "ENERGY (EV)") {
			intable = true
			ret = ret[:0]
			continue
		}
		if !intable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			if len(ret) > 0 {
				intable = false
			}
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		rel, err := parseFloat(fields[2])
		if err != nil {
			return nil, backendError(O.Name(), O.job.name, "ciStates", "%v", err)
		}
		ret = append(ret, rel*EV2KJ)
	}
	if len(ret) < 2 {
		return nil, backendError(O.Name(), O.job.name, "ciStates", "%d CI states found in output, 2 needed", len(ret))
	}
	return ret, nil
}

//Gradients returns the gradients on the natoms QM atoms in kJ/mol/nm.
func (O *MopacHandle) Gradients(natoms, ncharges int) (*v3.Matrix, error) {
	if ncharges > 0 {
		return nil, unsupported("Gradients", "MOPAC can't take embedding charges")
	}
	g, err := O.auxValues("GRADIENTS")
	if err != nil {
		return nil, backendError(O.Name(), O.job.name, "Gradients", "%v", err)
	}
	G, err := gradMatrix(g, natoms, KcalA2KJNm)
	if err != nil {
		return nil, backendError(O.Name(), O.job.name, "Gradients", "%v", err)
	}
	return G, nil
}

//Close removes the scratch files of the session.
func (O *MopacHandle) Close() error {
	if O.job == nil {
		return nil
	}
	return O.job.cleanup()
}
