/*
 * files_test.go, part of qmmm.
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
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const xyzFrames = `4
frame 0 box=3.0 0 0 0 3.0 0 0 0 3.0
C  0.10 0.20 0.30 -0.1 0.2 0
H  0.20 0.20 0.30  0.1 0.1 0
Na 1.00 1.00 1.00  1.0
Cl 2.00 2.00 2.00 -1.0 -1.0 -
vsite2 1 0 3

4
box=3.1 3.1 3.1
C  0.11 0.20 0.30
H  0.21 0.20 0.30
Na 1.01 1.00 1.00
Cl 2.01 2.00 2.00
`

func TestXYZRead(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "frames.xyz")
	if err := os.WriteFile(name, []byte(xyzFrames), 0644); err != nil {
		Te.Fatal(err)
	}
	top, frames, err := XYZFileRead(name)
	if err != nil {
		Te.Fatal(err)
	}
	if top.Len() != 4 || len(frames) != 2 {
		Te.Fatalf("%d atoms, %d frames", top.Len(), len(frames))
	}
	c := top.Atom(0)
	if c.Z != 6 || c.ChargeA != -0.1 || c.ChargeB != 0.2 || c.Group != 0 {
		Te.Errorf("wrong first atom %+v", c)
	}
	if na := top.Atom(2); na.ChargeB != 1 || na.Group != NoGroup {
		Te.Errorf("state B charge should default to state A, and group to none: %+v", na)
	}
	if top.Atom(3).Group != NoGroup {
		Te.Error("a '-' group is no group")
	}
	if vs := top.VSites2(); len(vs) != 1 || vs[0] != (VSite2{Site: 1, A: 0, B: 3}) {
		Te.Errorf("wrong virtual sites %v", vs)
	}
	if frames[0].Box.At(1, 1) != 3 || frames[1].Box.At(2, 2) != 3.1 || frames[1].Box.At(0, 1) != 0 {
		Te.Errorf("wrong boxes %v %v", frames[0].Box, frames[1].Box)
	}
	if frames[1].Coords.At(3, 0) != 2.01 {
		Te.Errorf("wrong coordinates %v", frames[1].Coords)
	}
}

func TestXYZErrors(Te *testing.T) {
	bad := map[string]string{
		"atom number": "four\nbox=1 1 1\n",
		"no box":      "1\ncomment\nC 0 0 0\n",
		"short":       "2\nbox=1 1 1\nC 0 0 0\n",
		"element":     "1\nbox=1 1 1\nXx 0 0 0\n",
		"vsite":       "1\nbox=1 1 1\nC 0 0 0\nvsite2 0 1\n",
	}
	for name, src := range bad {
		R := NewXYZReader(strings.NewReader(src), name)
		if _, err := R.Next(); !errors.Is(err, ErrConfiguration) {
			Te.Errorf("%s: expected a configuration error, got %v", name, err)
		}
	}
	R := NewXYZReader(strings.NewReader("\n\n"), "empty")
	if _, err := R.Next(); !errors.Is(err, io.EOF) {
		Te.Errorf("expected EOF, got %v", err)
	}
	name := filepath.Join(Te.TempDir(), "mismatch.xyz")
	os.WriteFile(name, []byte("1\nbox=1 1 1\nC 0 0 0\n2\nbox=1 1 1\nC 0 0 0\nC 0 0 0\n"), 0644)
	if _, _, err := XYZFileRead(name); !errors.Is(err, ErrConfiguration) {
		Te.Errorf("frames of different sizes should be rejected, got %v", err)
	}
}
