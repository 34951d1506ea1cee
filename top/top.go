/*
 * top.go, part of qmmm.
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

package top

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/rmera/qmmm"
)

//Atom is one line of the [ atoms ] section of a Gromacs topology.
type Atom struct {
	ID      int
	Type    string
	ResID   int
	ResName string
	Name    string
	ChargeA float64
	ChargeB float64
	Mass    float64
}

//Molecule contains the parts of a Gromacs topology the QM/MM coupling
//needs: the atoms, with their charges in both states, and the two-atom
//virtual sites. Indexes in VSites are 0-based.
type Molecule struct {
	Atoms  []*Atom
	VSites []qmmm.VSite2
}

type cond struct {
	reading bool
}

func newCond() *cond {
	return &cond{reading: true}
}

//read processes the conditional parts of Gromacs topologies depending on
//the flags in defines. It returns false if the line should be skipped.
func (c *cond) read(line string, defines []string) bool {
	f := strings.Fields(line)
	switch f[0] {
	case "#ifdef":
		c.reading = len(f) > 1 && slices.Contains(defines, f[1])
		return false
	case "#ifndef":
		c.reading = len(f) < 2 || !slices.Contains(defines, f[1])
		return false
	case "#else":
		c.reading = !c.reading
		return false
	case "#endif":
		c.reading = true
		return false
	}
	return c.reading
}

func cleanString(s string) string {
	f := strings.Split(s, ";")[0]
	return strings.Trim(f, "\n\t\r ")
}

//header returns the name of the section if s is a section header,
//like "[ atoms ]", and an empty string otherwise.
func header(s string) string {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s, "[]"))
}

//Read reads a Gromacs itp/top file from r. Only the [ atoms ] and
//[ virtual_sites2 ] sections are read; the rest is ignored. Blocks
//between #ifdef/#ifndef and #endif are read depending on the flags in
//defines. #include statements are ignored. Atoms must be numbered
//consecutively starting at 1.
func Read(r io.Reader, defines ...string) (*Molecule, error) {
	M := new(Molecule)
	read := newCond()
	section := ""
	s := bufio.NewScanner(r)
	nline := 0
	for s.Scan() {
		nline++
		l := cleanString(s.Text())
		if l == "" || strings.HasPrefix(l, "#include") || strings.HasPrefix(l, "#define") {
			continue
		}
		if !read.read(l, defines) {
			continue
		}
		if h := header(l); h != "" {
			section = h
			continue
		}
		var err error
		switch section {
		case "atoms":
			var at *Atom
			at, err = atomFromGro(l)
			if err == nil && at.ID != len(M.Atoms)+1 {
				err = fmt.Errorf("atom %d found, %d expected", at.ID, len(M.Atoms)+1)
			}
			if err == nil {
				M.Atoms = append(M.Atoms, at)
			}
		case "virtual_sites2":
			var vs qmmm.VSite2
			vs, err = vsite2FromGro(l)
			if err == nil {
				M.VSites = append(M.VSites, vs)
			}
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("Couldn't read section %s. Line %d: %s. Error: %w", section, nline, l, errors.Join(qmmm.ErrConfiguration, err))
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	for _, v := range M.VSites {
		for _, i := range []int{v.Site, v.A, v.B} {
			if i >= len(M.Atoms) {
				return nil, fmt.Errorf("virtual site %d refers to atom %d, but only %d atoms were read: %w", v.Site+1, i+1, len(M.Atoms), qmmm.ErrConfiguration)
			}
		}
	}
	return M, nil
}

//ReadFile is like Read, but reads from the file name.
func ReadFile(name string, defines ...string) (*Molecule, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, defines...)
}

//atomFromGro parses a line of the form
//nr type resnr residue atom cgnr charge [mass [typeB chargeB [massB]]]
//A missing chargeB takes the value of the state A charge.
func atomFromGro(s string) (*Atom, error) {
	f := strings.Fields(s)
	if len(f) < 7 {
		return nil, fmt.Errorf("atom line needs at least 7 fields, got %d", len(f))
	}
	at := &Atom{Type: f[1], ResName: f[3], Name: f[4]}
	var err error
	if at.ID, err = strconv.Atoi(f[0]); err != nil {
		return nil, err
	}
	if at.ResID, err = strconv.Atoi(f[2]); err != nil {
		return nil, err
	}
	if at.ChargeA, err = strconv.ParseFloat(f[6], 64); err != nil {
		return nil, err
	}
	at.ChargeB = at.ChargeA
	if len(f) > 7 {
		if at.Mass, err = strconv.ParseFloat(f[7], 64); err != nil {
			return nil, err
		}
	}
	if len(f) > 9 {
		if at.ChargeB, err = strconv.ParseFloat(f[9], 64); err != nil {
			return nil, err
		}
	}
	return at, nil
}

//vsite2FromGro parses a line of the form site ai aj funct [a].
func vsite2FromGro(s string) (qmmm.VSite2, error) {
	f := strings.Fields(s)
	if len(f) < 3 {
		return qmmm.VSite2{}, fmt.Errorf("virtual_sites2 line needs at least 3 atoms, got %d fields", len(f))
	}
	var ids [3]int
	for i := range ids {
		n, err := strconv.Atoi(f[i])
		if err != nil {
			return qmmm.VSite2{}, err
		}
		if n < 1 {
			return qmmm.VSite2{}, fmt.Errorf("atom index %d out of range", n)
		}
		ids[i] = n - 1
	}
	return qmmm.VSite2{Site: ids[0], A: ids[1], B: ids[2]}, nil
}

//Apply sets the charges and the virtual sites of T to those in the
//receiver. Names, elements and QM groups in T are not changed. T and
//the receiver must have the same number of atoms.
func (M *Molecule) Apply(T *qmmm.Topology) error {
	if T.Len() != len(M.Atoms) {
		return fmt.Errorf("topology has %d atoms, the structure has %d: %w", len(M.Atoms), T.Len(), qmmm.ErrConfiguration)
	}
	for i, v := range M.Atoms {
		at := T.Atom(i)
		at.ChargeA = v.ChargeA
		at.ChargeB = v.ChargeB
	}
	T.VSites = slices.Clone(M.VSites)
	return nil
}
