/*
 * top_test.go, part of qmmm.
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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/qmmm"
)

const itp = `; a water and a dummy
[ moleculetype ]
; name  nrexcl
SOL     2

[ atoms ]
;  nr type resnr res atom cgnr charge    mass  typeB chargeB
    1  OW   1    SOL  OW   1   -0.834  15.999   OW   -0.5
    2  HW   1    SOL  HW1  1    0.417   1.008
    3  HW   1    SOL  HW2  1    0.417   1.008
#ifdef FLEXIBLE
    4  MW   1    SOL  MW   1    0.0     0.0
#else
    4  MW   1    SOL  MW   1    0.1     0.0
#endif

[ bonds ]
1 2 1 0.09572 502416.0

[ virtual_sites2 ]
; site ai aj funct a
   4    2  3   1    0.5
`

func TestRead(Te *testing.T) {
	M, err := Read(strings.NewReader(itp))
	if err != nil {
		Te.Fatal(err)
	}
	if len(M.Atoms) != 4 || len(M.VSites) != 1 {
		Te.Fatalf("%d atoms and %d virtual sites read", len(M.Atoms), len(M.VSites))
	}
	o := M.Atoms[0]
	if o.Name != "OW" || o.ChargeA != -0.834 || o.ChargeB != -0.5 || o.Mass != 15.999 || o.ResName != "SOL" {
		Te.Errorf("wrong first atom %+v", o)
	}
	if h := M.Atoms[1]; h.ChargeB != h.ChargeA {
		Te.Errorf("state B charge should default to state A: %+v", h)
	}
	if M.Atoms[3].ChargeA != 0.1 {
		Te.Errorf("the #else branch should be read without defines: %+v", M.Atoms[3])
	}
	if M.VSites[0] != (qmmm.VSite2{Site: 3, A: 1, B: 2}) {
		Te.Errorf("wrong virtual site %v", M.VSites[0])
	}
	M, err = Read(strings.NewReader(itp), "FLEXIBLE")
	if err != nil {
		Te.Fatal(err)
	}
	if M.Atoms[3].ChargeA != 0 {
		Te.Errorf("the #ifdef branch should be read with the define: %+v", M.Atoms[3])
	}
}

func TestReadErrors(Te *testing.T) {
	bad := map[string]string{
		"short atom": "[ atoms ]\n1 OW 1 SOL OW 1\n",
		"bad charge": "[ atoms ]\n1 OW 1 SOL OW 1 abc\n",
		"numbering":  "[ atoms ]\n2 OW 1 SOL OW 1 0.0\n",
		"vsite":      "[ atoms ]\n1 OW 1 SOL OW 1 0.0\n[ virtual_sites2 ]\n1 0 1 1 0.5\n",
		"range":      "[ atoms ]\n1 OW 1 SOL OW 1 0.0\n[ virtual_sites2 ]\n1 1 3 1 0.5\n",
	}
	for name, src := range bad {
		if _, err := Read(strings.NewReader(src)); !errors.Is(err, qmmm.ErrConfiguration) {
			Te.Errorf("%s: expected a configuration error, got %v", name, err)
		}
	}
}

func TestApply(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "sol.itp")
	if err := os.WriteFile(name, []byte(itp), 0644); err != nil {
		Te.Fatal(err)
	}
	M, err := ReadFile(name)
	if err != nil {
		Te.Fatal(err)
	}
	ats := make([]*qmmm.Atom, 4)
	for i, s := range []string{"O", "H", "H", "H"} {
		ats[i] = &qmmm.Atom{Name: s, Symbol: s, Group: qmmm.NoGroup}
	}
	ats[0].Group = 0
	T, err := qmmm.NewTopology(ats, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if err := M.Apply(T); err != nil {
		Te.Fatal(err)
	}
	if T.Atom(0).ChargeB != -0.5 || T.Atom(0).Group != 0 || len(T.VSites2()) != 1 {
		Te.Errorf("wrong topology after Apply %+v %v", T.Atom(0), T.VSites2())
	}
	T2, _ := qmmm.NewTopology(ats[:2], nil)
	if err := M.Apply(T2); !errors.Is(err, qmmm.ErrConfiguration) {
		Te.Errorf("a size mismatch should be a configuration error, got %v", err)
	}
}
