/*
 * files.go, part of qmmm.
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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rmera/qmmm/qm"
	v3 "github.com/rmera/qmmm/v3"
)

//Frame is one frame of an extended XYZ file.
type Frame struct {
	Atoms  []*Atom
	VSites []VSite2
	Coords *v3.Matrix //nm
	Box    *v3.Matrix //nm, one box vector per row
}

//XYZReader reads extended XYZ files. Each frame is:
//
//	natoms
//	box=bx by bz (or the 9 components of the 3 box vectors), in nm
//	Symbol x y z [chargeA [chargeB [group]]]   (natoms lines, nm)
//	vsite2 site a b                            (optional, 0-based indexes)
//
//chargeB defaults to chargeA, and the group to NoGroup. A group of "-" is
//also NoGroup.
type XYZReader struct {
	s       *bufio.Scanner
	name    string
	line    int
	pending string
	has     bool
}

//NewXYZReader returns a reader for r. name is only used in errors.
func NewXYZReader(r io.Reader, name string) *XYZReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &XYZReader{s: s, name: name}
}

func (R *XYZReader) next() (string, bool) {
	if R.has {
		R.has = false
		return R.pending, true
	}
	if !R.s.Scan() {
		return "", false
	}
	R.line++
	return R.s.Text(), true
}

func (R *XYZReader) unread(line string) {
	R.pending = line
	R.has = true
}

func (R *XYZReader) errorf(format string, args ...any) error {
	return configError("XYZReader", fmt.Sprintf("%s:%d", R.name, R.line), format, args...)
}

//Next reads the next frame. It returns io.EOF when there are no more
//frames.
func (R *XYZReader) Next() (*Frame, error) {
	var head string
	for {
		l, ok := R.next()
		if !ok {
			if err := R.s.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		if strings.TrimSpace(l) != "" {
			head = l
			break
		}
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || natoms < 0 {
		return nil, R.errorf("ill formatted atom number %q", head)
	}
	comment, ok := R.next()
	if !ok {
		return nil, R.errorf("missing comment line")
	}
	F := &Frame{Atoms: make([]*Atom, natoms), Coords: v3.Zeros(natoms)}
	if F.Box, err = parseBox(comment); err != nil {
		return nil, R.errorf("%v", err)
	}
	for i := 0; i < natoms; i++ {
		l, ok := R.next()
		if !ok {
			return nil, R.errorf("%d atoms read, %d expected", i, natoms)
		}
		at, c, err := parseXYZAtom(l)
		if err != nil {
			return nil, R.errorf("%v", err)
		}
		F.Atoms[i] = at
		F.Coords.SetVec(i, c)
	}
	for {
		l, ok := R.next()
		if !ok {
			break
		}
		fields := strings.Fields(l)
		if len(fields) == 0 || fields[0] != "vsite2" {
			R.unread(l)
			break
		}
		if len(fields) != 4 {
			return nil, R.errorf("vsite2 lines need 3 atom indexes")
		}
		var idx [3]int
		for j, v := range fields[1:] {
			if idx[j], err = strconv.Atoi(v); err != nil {
				return nil, R.errorf("bad vsite2 index %q", v)
			}
		}
		F.VSites = append(F.VSites, VSite2{Site: idx[0], A: idx[1], B: idx[2]})
	}
	return F, nil
}

func parseBox(comment string) (*v3.Matrix, error) {
	_, after, ok := strings.Cut(comment, "box=")
	if !ok {
		return nil, errors.New("no box in comment line")
	}
	fields := strings.Fields(after)
	var vals []float64
	for _, v := range fields {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			break
		}
		vals = append(vals, f)
	}
	switch {
	case len(vals) >= 9:
		vals = vals[:9]
	case len(vals) >= 3:
		vals = []float64{vals[0], 0, 0, 0, vals[1], 0, 0, 0, vals[2]}
	default:
		return nil, fmt.Errorf("box needs 3 or 9 numbers, got %d", len(vals))
	}
	return v3.NewMatrix(vals)
}

func parseXYZAtom(line string) (*Atom, [3]float64, error) {
	var c [3]float64
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, c, fmt.Errorf("atom line %q ill formed", line)
	}
	at := &Atom{Name: fields[0], Symbol: fields[0], Z: qm.AtomicNumber(fields[0]), Group: NoGroup}
	if at.Z == 0 {
		return nil, c, fmt.Errorf("unknown element %q", fields[0])
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, c, fmt.Errorf("bad coordinate %q", fields[i+1])
		}
		c[i] = f
	}
	var err error
	if len(fields) > 4 {
		if at.ChargeA, err = strconv.ParseFloat(fields[4], 64); err != nil {
			return nil, c, fmt.Errorf("bad charge %q", fields[4])
		}
		at.ChargeB = at.ChargeA
	}
	if len(fields) > 5 {
		if at.ChargeB, err = strconv.ParseFloat(fields[5], 64); err != nil {
			return nil, c, fmt.Errorf("bad charge %q", fields[5])
		}
	}
	if len(fields) > 6 && fields[6] != "-" {
		if at.Group, err = strconv.Atoi(fields[6]); err != nil {
			return nil, c, fmt.Errorf("bad group %q", fields[6])
		}
	}
	return at, c, nil
}

//XYZFileRead reads all the frames of the extended XYZ file xyzname. The
//topology is taken from the first frame. Later frames must have the same
//number of atoms.
func XYZFileRead(xyzname string) (*Topology, []*Frame, error) {
	f, err := os.Open(xyzname)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	R := NewXYZReader(f, xyzname)
	var frames []*Frame
	for {
		F, err := R.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, errDecorate(err, "XYZFileRead")
		}
		if len(frames) > 0 && len(F.Atoms) != len(frames[0].Atoms) {
			return nil, nil, configError("XYZFileRead", xyzname, "frame %d has %d atoms, %d expected", len(frames), len(F.Atoms), len(frames[0].Atoms))
		}
		frames = append(frames, F)
	}
	if len(frames) == 0 {
		return nil, nil, configError("XYZFileRead", xyzname, "no frames")
	}
	top, err := NewTopology(frames[0].Atoms, frames[0].VSites)
	if err != nil {
		return nil, nil, errDecorate(err, "XYZFileRead")
	}
	return top, frames, nil
}
