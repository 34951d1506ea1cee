/*
 * qmmm_test.go, part of qmmm.
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
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/rmera/qmmm/qm"
	v3 "github.com/rmera/qmmm/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const boxl = 3.0

//fakeEvaluator returns, for each owner, a fixed energy and gradients with
//that energy as x component.
type fakeEvaluator struct {
	energies map[string]float64
	inits    []string
	evals    []string
	fail     string
	closed   int
}

func (f *fakeEvaluator) Initialize(owner string, S *qm.Settings, ncharges int) error {
	f.inits = append(f.inits, owner)
	return nil
}

func (f *fakeEvaluator) Evaluate(owner string, S *qm.Settings, in *qm.Input) (*qm.Result, error) {
	f.evals = append(f.evals, owner)
	if owner == f.fail {
		return nil, fmt.Errorf("%w: %s failed", qm.ErrBackend, owner)
	}
	E := f.energies[owner]
	n := in.NAtoms() + in.NCharges()
	G := v3.Zeros(n)
	for i := 0; i < n; i++ {
		G.SetVec(i, [3]float64{E, 0, 0})
	}
	sf := v3.Zeros(n)
	sf.Copy(G)
	return &qm.Result{Energy: E, Gradients: G, ShiftForces: sf, Backend: "fake"}, nil
}

func (f *fakeEvaluator) Close() error {
	f.closed++
	return nil
}

//testSystem returns a topology and coordinates with 3 atoms in group 0,
//split across the x boundary of the box, 1 atom in group 1, and 60 MM atoms,
//some of them without charge.
func testSystem(Te *testing.T) (*Topology, *v3.Matrix, *v3.Matrix) {
	r := rand.New(rand.NewSource(7))
	ats := []*Atom{
		{Name: "O1", Symbol: "O", Z: 8, ChargeA: -0.8, ChargeB: -0.8, Group: 0},
		{Name: "H1", Symbol: "H", Z: 1, ChargeA: 0.4, ChargeB: 0.4, Group: 0},
		{Name: "H2", Symbol: "H", Z: 1, ChargeA: 0.4, ChargeB: 0.4, Group: 0},
		{Name: "C1", Symbol: "C", Z: 6, ChargeA: 0.1, ChargeB: 0.1, Group: 1},
	}
	coords := []float64{0.05, 1.5, 1.5, 2.95, 1.5, 1.5, 0.10, 1.6, 1.5, 0.2, 1.4, 1.5}
	for i := 0; i < 60; i++ {
		at := &Atom{Name: fmt.Sprintf("M%d", i), Symbol: "C", Z: 6, Group: NoGroup, ChargeA: 0.3, ChargeB: 0.3}
		switch {
		case i%5 == 0:
			at.ChargeA, at.ChargeB = 0, 0
		case i%7 == 0:
			at.ChargeA, at.ChargeB = 0, 0.3
		case i%2 == 0:
			at.ChargeA, at.ChargeB = -0.3, -0.3
		}
		ats = append(ats, at)
		coords = append(coords, r.Float64()*boxl, r.Float64()*boxl, r.Float64()*boxl)
	}
	top, err := NewTopology(ats, nil)
	if err != nil {
		Te.Fatal(err)
	}
	X, err := v3.NewMatrix(coords)
	if err != nil {
		Te.Fatal(err)
	}
	box, _ := v3.NewMatrix([]float64{boxl, 0, 0, 0, boxl, 0, 0, 0, boxl})
	return top, X, box
}

func normalOptions() Options {
	O := Options{Groups: []qm.Settings{{Method: qm.B3LYP, Basis: "6-31G*"}}}
	O.SetDefaults()
	return O
}

func layeredOptions() Options {
	O := Options{Groups: []qm.Settings{{Method: qm.B3LYP, Basis: "6-31G*"}, {Method: qm.RHF, Basis: "STO-3G"}}}
	O.SetDefaults()
	O.Scheme = Layered
	return O
}

func TestSetupErrors(Te *testing.T) {
	top, _, _ := testSystem(Te)
	ev := &fakeEvaluator{}
	cases := []struct {
		mod  func(*Options)
		want string
	}{
		{func(O *Options) { O.Cutoff = VerletCutoff }, "cutoff-scheme=verlet"},
		{func(O *Options) { O.Integrator = Steep }, "integrator=steep"},
		{func(O *Options) { O.Ranks = 4 }, "ranks=4"},
		{func(O *Options) { O.Ranks = 4; O.Integrator = CG; O.Cutoff = VerletCutoff }, "cutoff-scheme=verlet"},
		{func(O *Options) { O.Groups = nil }, "groups=0"},
	}
	for _, c := range cases {
		O := normalOptions()
		c.mod(&O)
		_, err := NewCoupler(top, O, ev)
		if !errors.Is(err, ErrConfiguration) {
			Te.Errorf("expected a configuration error for %s, got %v", c.want, err)
			continue
		}
		var e Error
		if !errors.As(err, &e) || e.Configuration() != c.want {
			Te.Errorf("the error should name %s: %v", c.want, err)
		}
		fmt.Println(err)
	}
	//group 1 adds no atoms to the layer of group 0
	O := layeredOptions()
	O.Groups = append(O.Groups, O.Groups[1])
	if _, err := NewCoupler(top, O, ev); !errors.Is(err, ErrConfiguration) {
		Te.Errorf("non nested layers should be a configuration error, got %v", err)
	}
	if len(ev.inits) != 0 {
		Te.Errorf("no session should be started for failed setups, got %v", ev.inits)
	}
	//Semiempirical with embedding charges can't be run by any backend.
	O = normalOptions()
	O.Groups[0].Method = qm.AM1
	_, err := NewCoupler(top, O, qm.NewDispatcher(qm.NewMopacHandle(), qm.NewGaussianHandle()))
	if !errors.Is(err, ErrUnsupported) {
		Te.Errorf("AM1 with MM atoms should be unsupported, got %v", err)
	}
}

func countZeroCharges(C *Coupler, n int) int {
	zeros := 0
	for i := 0; i < n; i++ {
		if a, b := C.EffectiveCharge(i); a == 0 && b == 0 {
			zeros++
		}
	}
	return zeros
}

func TestEffectiveCharges(Te *testing.T) {
	top, _, _ := testSystem(Te)
	//all charged, so the only zeros come from the QM atoms.
	for _, at := range top.Atoms {
		at.ChargeA, at.ChargeB = 0.1, -0.1
	}
	for run := 0; run < 2; run++ {
		C, err := NewCoupler(top, normalOptions(), &fakeEvaluator{})
		if err != nil {
			Te.Fatal(err)
		}
		if z := countZeroCharges(C, top.Len()); z != 3 {
			Te.Errorf("run %d: %d atoms with zero charge, expected the 3 QM atoms", run, z)
		}
		if !C.IsQM(0) || C.IsQM(3) {
			Te.Error("only group 0 is QM in the Normal scheme with one group")
		}
	}
	if top.Atoms[0].ChargeA != 0.1 {
		Te.Error("the topology charges must not be modified")
	}
	C, err := NewCoupler(top, layeredOptions(), &fakeEvaluator{})
	if err != nil {
		Te.Fatal(err)
	}
	if z := countZeroCharges(C, top.Len()); z != 0 {
		Te.Errorf("the Layered scheme zeroes no charges, got %d", z)
	}
	a, _ := C.Charges()
	a[0] = 55
	if x, _ := C.EffectiveCharge(0); x == 55 {
		Te.Error("Charges should return copies")
	}
}

func normalCoupler(Te *testing.T) (*Coupler, *fakeEvaluator, *Topology, *v3.Matrix, *v3.Matrix) {
	top, X, box := testSystem(Te)
	O := normalOptions()
	O.ScaleFactor = 0.5
	owner := "layer0-B3LYP/6-31G*"
	ev := &fakeEvaluator{energies: map[string]float64{owner: -3}}
	C, err := NewCoupler(top, O, ev)
	if err != nil {
		Te.Fatal(err)
	}
	return C, ev, top, X, box
}

func TestEmbeddingSet(Te *testing.T) {
	C, _, top, X, box := normalCoupler(Te)
	P, _ := NewPBC(box)
	cutoff := 1.2
	L := C.Layers()[0]
	pl := NewPairList(X, P, L.Atoms, cutoff)
	if err := C.Update(X, box, pl); err != nil {
		Te.Fatal(err)
	}
	env := C.Environment()
	fmt.Println("embedding atoms:", env.Atoms)
	if env.Len() == 0 {
		Te.Fatal("the test system should have embedding atoms")
	}
	if !slices.IsSorted(env.Atoms) {
		Te.Error("embedding atoms must be in index order")
	}
	for i, a := range env.Atoms {
		at := top.Atom(a)
		if C.IsQM(a) {
			Te.Errorf("QM atom %d in the embedding set", a)
		}
		if at.ChargeA == 0 && at.ChargeB == 0 {
			Te.Errorf("atom %d has no charge but is in the embedding set", a)
		}
		if env.Charges[i] != at.ChargeA*0.5 {
			Te.Errorf("atom %d: embedding charge %f, expected the scaled state A charge", a, env.Charges[i])
		}
		//the shifted coordinate must be next to the shifted QM layer.
		x := env.Coords.Vec(i)
		closest := math.Inf(1)
		for k := 0; k < L.Len(); k++ {
			q := L.Coords.Vec(k)
			floats.Sub(q[:], x[:])
			closest = math.Min(closest, floats.Norm(q[:], 2))
		}
		if closest > cutoff+1e-9 {
			Te.Errorf("atom %d is %f nm away from the QM layer", a, closest)
		}
	}
	//atom 1 is across the x boundary from atom 0.
	if L.Shifts[1] != ShiftIndex(1, 0, 0) || math.Abs(L.Coords.At(1, 0)+0.05) > 1e-9 {
		Te.Errorf("atom 1 should be shifted one box back in x: shift %d, coords %v", L.Shifts[1], L.Coords.Vec(1))
	}
	//a second update with the same frame gives the same result.
	atoms := slices.Clone(env.Atoms)
	shifts := slices.Clone(env.Shifts)
	coords := v3.Zeros(env.Len())
	coords.Copy(env.Coords)
	if err := C.Update(X, box, NewPairList(X, P, L.Atoms, cutoff)); err != nil {
		Te.Fatal(err)
	}
	env = C.Environment()
	if !slices.Equal(atoms, env.Atoms) || !slices.Equal(shifts, env.Shifts) || !mat.Equal(coords, env.Coords) {
		Te.Error("partitioning the same frame twice gave different results")
	}
}

func TestPairListContract(Te *testing.T) {
	C, _, _, X, box := normalCoupler(Te)
	P, _ := NewPBC(box)
	func() {
		defer func() {
			if r := recover(); r != ErrNegativeCutoff {
				Te.Errorf("expected a negative cutoff panic, got %v", r)
			}
		}()
		NewPairList(X, P, []int{0}, -1)
	}()
	func() {
		defer func() {
			if r := recover(); r != ErrEmptyPairList {
				Te.Errorf("expected an empty pair list panic, got %v", r)
			}
		}()
		C.Update(X, box, &PairList{})
	}()
	pl := NewPairList(X, P, []int{0, 1}, 0)
	if len(pl.Rows) != 2 || pl.Len() != 0 {
		Te.Errorf("with a zero cutoff each row atom should get one empty row, got %v", pl.Rows)
	}
}

func concatRows(parts []*PairList) *PairList {
	all := new(PairList)
	for _, p := range parts {
		if p != nil {
			all.Rows = append(all.Rows, p.Rows...)
		}
	}
	return all
}

func TestReduce(Te *testing.T) {
	C, _, _, X, box := normalCoupler(Te)
	P, _ := NewPBC(box)
	L := C.Layers()[0]
	pl := NewPairList(X, P, L.Atoms, 1.2)
	n := len(pl.Rows)
	groupings := [][]*PairList{
		{pl},
		{{Rows: pl.Rows[:n/2]}, {Rows: pl.Rows[n/2:]}},
		{{Rows: pl.Rows[n/2:]}, {Rows: pl.Rows[:n/2]}},
		{{Rows: pl.Rows[:1]}, {Rows: pl.Rows}, nil, {Rows: pl.Rows[n-1:]}},
	}
	for g, parts := range groupings {
		if err := C.Update(X, box, concatRows(parts)); err != nil {
			Te.Fatal(err)
		}
		want := C.Environment()
		wantAtoms, wantShifts := slices.Clone(want.Atoms), slices.Clone(want.Shifts)
		if err := C.UpdateDistributed(X, box, parts); err != nil {
			Te.Fatal(err)
		}
		env := C.Environment()
		if !slices.Equal(env.Atoms, wantAtoms) || !slices.Equal(env.Shifts, wantShifts) {
			Te.Errorf("grouping %d: %v %v, expected %v %v", g, env.Atoms, env.Shifts, wantAtoms, wantShifts)
		}
	}
	a := NewMembership(5, 0, []Neighbor{{1, 62}, {3, 63}})
	b := NewMembership(5, 1, []Neighbor{{3, 37}, {4, 37}})
	ab, ba := Reduce(a, b), Reduce(b, a)
	if !slices.Equal(ab.Flags, ba.Flags) || !slices.Equal(ab.Keys, ba.Keys) {
		Te.Error("Reduce is not commutative")
	}
	if got := ab.Extract(); !slices.Equal(got, []Neighbor{{1, 62}, {3, 63}, {4, 37}}) {
		Te.Errorf("wrong extraction %v", got)
	}
	c := NewMembership(5, 2, []Neighbor{{0, 124}, {3, 0}})
	left, right := Reduce(Reduce(a, b), c), Reduce(a, Reduce(b, c))
	if !slices.Equal(left.Keys, right.Keys) || !slices.Equal(left.Flags, right.Flags) {
		Te.Error("Reduce is not associative")
	}
	if got := left.Extract(); !slices.Equal(got, []Neighbor{{0, 124}, {1, 62}, {3, 63}, {4, 37}}) {
		Te.Errorf("wrong extraction %v", got)
	}
}

//An MM atom found by two QM rows at different images takes the image of
//the first row, also when the rows are split over units.
func TestReduceShifts(Te *testing.T) {
	ats := []*Atom{
		{Name: "C1", Symbol: "C", Z: 6, Group: 0},
		{Name: "C2", Symbol: "C", Z: 6, Group: 0},
		{Name: "NA", Symbol: "Na", Z: 11, ChargeA: 1, ChargeB: 1, Group: NoGroup},
	}
	top, err := NewTopology(ats, nil)
	if err != nil {
		Te.Fatal(err)
	}
	X, _ := v3.NewMatrix([]float64{1.5, 1.5, 0.1, 1.5, 1.5, 1.4, 1.5, 1.5, 2.3})
	box, _ := v3.NewMatrix([]float64{boxl, 0, 0, 0, boxl, 0, 0, 0, boxl})
	C, err := NewCoupler(top, normalOptions(), &fakeEvaluator{})
	if err != nil {
		Te.Fatal(err)
	}
	up := ShiftIndex(0, 0, 1)
	row0 := PairRow{I: 0, Shift: up, J: []int{2}}
	row1 := PairRow{I: 1, Shift: CentralShift, J: []int{2}}
	cases := []struct {
		parts []*PairList
		shift int
		z     float64
	}{
		{[]*PairList{{Rows: []PairRow{row0}}, {Rows: []PairRow{row1}}}, up, 2.3 - boxl},
		{[]*PairList{{Rows: []PairRow{row1}}, {Rows: []PairRow{row0}}}, CentralShift, 2.3},
	}
	for i, c := range cases {
		if err := C.Update(X, box, concatRows(c.parts)); err != nil {
			Te.Fatal(err)
		}
		if env := C.Environment(); env.Len() != 1 || env.Shifts[0] != c.shift {
			Te.Errorf("case %d: single unit shifts %v, expected %d", i, env.Shifts, c.shift)
		}
		if err := C.UpdateDistributed(X, box, c.parts); err != nil {
			Te.Fatal(err)
		}
		env := C.Environment()
		if env.Len() != 1 || env.Shifts[0] != c.shift {
			Te.Fatalf("case %d: distributed shifts %v, expected %d", i, env.Shifts, c.shift)
		}
		if x := env.Coords.Vec(0); math.Abs(x[2]-c.z) > 1e-9 || x[0] != 1.5 || x[1] != 1.5 {
			Te.Errorf("case %d: embedding atom at %v, expected z=%g", i, x, c.z)
		}
	}
	func() {
		defer func() {
			if r := recover(); r != ErrNegativeRank {
				Te.Errorf("expected a negative rank panic, got %v", r)
			}
		}()
		NewMembership(3, -1, nil)
	}()
}

func TestNormalStep(Te *testing.T) {
	C, ev, top, X, box := normalCoupler(Te)
	P, _ := NewPBC(box)
	L := C.Layers()[0]
	F := v3.Zeros(top.Len())
	fshift := v3.Zeros(NShifts)
	if _, err := C.Calculate(F, fshift); !errors.Is(err, ErrConfiguration) {
		Te.Errorf("Calculate without Update should fail, got %v", err)
	}
	for step := 0; step < 2; step++ {
		if err := C.Update(X, box, NewPairList(X, P, L.Atoms, 1.2)); err != nil {
			Te.Fatal(err)
		}
		E, err := C.Calculate(F, fshift)
		if err != nil {
			Te.Fatal(err)
		}
		if E != -3 {
			Te.Errorf("energy %f, expected -3", E)
		}
	}
	if len(ev.inits) != 1 {
		Te.Errorf("a single layer is initialized once, at setup, got %v", ev.inits)
	}
	//gradients of -3 on each row, twice: F = +6 on QM and embedding atoms.
	env := C.Environment()
	for i := 0; i < top.Len(); i++ {
		want := 0.0
		if C.IsQM(i) || slices.Contains(env.Atoms, i) {
			want = 6
		}
		if F.At(i, 0) != want {
			Te.Errorf("atom %d: force %f, expected %f", i, F.At(i, 0), want)
		}
	}
	//shift forces: -3 per row, 2 steps.
	total := 0.0
	for is := 0; is < NShifts; is++ {
		total += fshift.At(is, 0)
	}
	if rows := float64(L.Len() + env.Len()); math.Abs(total-(-6*rows)) > 1e-9 {
		Te.Errorf("shift forces add to %f, expected %f", total, -6*rows)
	}
	//atom 1 and any embedding atom seen across the x boundary go to the +x bucket.
	px := ShiftIndex(1, 0, 0)
	inpx := 0
	for _, is := range append(slices.Clone(L.Shifts), env.Shifts...) {
		if is == px {
			inpx++
		}
	}
	if inpx == 0 || fshift.At(px, 0) != -6*float64(inpx) {
		Te.Errorf("%d rows in the +x bucket, but its shift force is %v", inpx, fshift.Vec(px))
	}
	//a failed evaluation leaves the buffers untouched.
	ev.fail = "layer0-B3LYP/6-31G*"
	C.Update(X, box, NewPairList(X, P, L.Atoms, 1.2))
	F2 := v3.Zeros(top.Len())
	F2.Copy(F)
	if _, err := C.Calculate(F, fshift); !errors.Is(err, ErrBackend) {
		Te.Errorf("expected a backend failure, got %v", err)
	}
	if !mat.Equal(F, F2) {
		Te.Error("forces were modified by a failed step")
	}
	if err := C.Close(); err != nil || ev.closed != 1 {
		Te.Errorf("Close should end the sessions: %v", err)
	}
}

func TestLayeredAdditivity(Te *testing.T) {
	top, X, box := testSystem(Te)
	ev := &fakeEvaluator{energies: map[string]float64{
		"layer0-B3LYP/6-31G*": 10,
		"layer0-RHF/STO-3G":   4,
		"layer1-RHF/STO-3G":   20,
	}}
	C, err := NewCoupler(top, layeredOptions(), ev)
	if err != nil {
		Te.Fatal(err)
	}
	if C.Environment() != nil {
		Te.Error("the Layered scheme has no embedding")
	}
	ls := C.Layers()
	if ls[0].Len() != 3 || ls[1].Len() != 4 || ls[0].Electrons != 10 || ls[1].Electrons != 16 {
		Te.Errorf("wrong layers: %v (%d e) %v (%d e)", ls[0].Atoms, ls[0].Electrons, ls[1].Atoms, ls[1].Electrons)
	}
	F := v3.Zeros(top.Len())
	fshift := v3.Zeros(NShifts)
	if err := C.Update(X, box, nil); err != nil {
		Te.Fatal(err)
	}
	E, err := C.Calculate(F, fshift)
	if err != nil {
		Te.Fatal(err)
	}
	if E != 26 {
		Te.Errorf("layered energy %f, expected 26", E)
	}
	last := C.LastEnergies()
	if len(last.Boundaries) != 1 || last.Boundaries[0] != 6 || last.Outer != 20 {
		Te.Errorf("wrong energy terms %+v", last)
	}
	for i, want := range []float64{-26, -26, -26, -20, 0} {
		if F.At(i, 0) != want {
			Te.Errorf("atom %d: force %f, expected %f", i, F.At(i, 0), want)
		}
	}
	if len(ev.inits) != 3 || len(ev.evals) != 3 {
		Te.Errorf("each of the 3 evaluations needs its own session: %v %v", ev.inits, ev.evals)
	}
	if err := C.Update(X, box, nil); err != nil {
		Te.Fatal(err)
	}
	if _, err := C.Calculate(F, fshift); err != nil {
		Te.Fatal(err)
	}
	if len(ev.inits) != 6 {
		Te.Errorf("sessions must be started again every step, got %v", ev.inits)
	}
	//the outer layer's shift of atom 1 is the same as in the inner layer.
	if ls[1].Shifts[1] != ShiftIndex(1, 0, 0) || ls[1].Shifts[3] != CentralShift {
		Te.Errorf("wrong outer layer shifts %v", ls[1].Shifts)
	}
}

func TestVSiteRemoval(Te *testing.T) {
	ats := []*Atom{
		{Symbol: "C", Z: 6, Group: 0},
		{Symbol: "C", Z: 6, Group: 0},
		{Symbol: "H", Z: 1, Group: 0}, //vsite between 0 and 1
		{Symbol: "C", Z: 6, Group: 1},
		{Symbol: "H", Z: 1, Group: 0}, //vsite between 1 and 3, straddles the boundary
		{Symbol: "C", Z: 6, Group: 1},
		{Symbol: "O", Z: 8, Group: NoGroup},
	}
	top, err := NewTopology(ats, []VSite2{{Site: 2, A: 0, B: 1}, {Site: 4, A: 1, B: 3}})
	if err != nil {
		Te.Fatal(err)
	}
	C, err := NewCoupler(top, layeredOptions(), &fakeEvaluator{})
	if err != nil {
		Te.Fatal(err)
	}
	for _, L := range C.Layers() {
		if slices.Contains(L.Atoms, 2) {
			Te.Errorf("layer %d still has the boundary virtual site: %v", L.Index, L.Atoms)
		}
		if !slices.Contains(L.Atoms, 4) {
			Te.Errorf("layer %d lost a virtual site built across layers: %v", L.Index, L.Atoms)
		}
	}
	if !slices.Equal(C.Layers()[1].Atoms, []int{0, 1, 3, 4, 5}) {
		Te.Errorf("wrong outer layer %v", C.Layers()[1].Atoms)
	}
	//the Normal scheme keeps virtual sites.
	O := normalOptions()
	C, err = NewCoupler(top, O, &fakeEvaluator{})
	if err != nil {
		Te.Fatal(err)
	}
	if !slices.Contains(C.Layers()[0].Atoms, 2) {
		Te.Error("the Normal scheme should not remove virtual sites")
	}
	if _, err := NewTopology(ats, []VSite2{{Site: 2, A: 0, B: 70}}); err == nil {
		Te.Error("out of range virtual sites should be rejected")
	}
}

func TestPBC(Te *testing.T) {
	if ShiftIndex(0, 0, 0) != CentralShift || CentralShift != 62 || NShifts != 125 {
		Te.Errorf("wrong shift table: central %d of %d", CentralShift, NShifts)
	}
	a := ShiftIndex(1, -1, 0)
	b := ShiftIndex(-2, 1, 1)
	if x, y, z := ShiftXYZ(CombineShifts(a, b)); x != -1 || y != 0 || z != 1 {
		Te.Errorf("wrong combined shift %d %d %d", x, y, z)
	}
	box, _ := v3.NewMatrix([]float64{2, 0, 0, 0, 2, 0, 0, 0, 2})
	P, err := NewPBC(box)
	if err != nil {
		Te.Fatal(err)
	}
	dx, is := P.Dx([3]float64{0.1, 1.9, 1}, [3]float64{1.9, 0.1, 1})
	if math.Abs(dx[0]-0.2) > 1e-12 || math.Abs(dx[1]+0.2) > 1e-12 || dx[2] != 0 {
		Te.Errorf("wrong minimum image %v", dx)
	}
	sx := P.Shifted([3]float64{1.9, 0.1, 1}, is)
	if math.Abs(sx[0]+0.1) > 1e-12 || math.Abs(sx[1]-2.1) > 1e-12 {
		Te.Errorf("wrong shifted coordinates %v", sx)
	}
	if P.ShiftVecs().NVecs() != NShifts || P.ShiftVec(ShiftIndex(0, 0, -2))[2] != -4 {
		Te.Error("wrong shift vectors")
	}
	func() {
		defer func() {
			if r := recover(); r != ErrShiftRange {
				Te.Errorf("expected a shift range panic, got %v", r)
			}
		}()
		P.Dx([3]float64{0, 0, 0}, [3]float64{7, 0, 0})
	}()
	//unwrapped coordinates, several boxes away.
	U, _ := v3.NewMatrix([]float64{0, 0, 0, 7, -5.5, 2, 4.1, 0.3, -0.1})
	W := P.Wrap(U)
	if U.At(1, 0) != 7 {
		Te.Error("Wrap must not modify its argument")
	}
	want := [][3]float64{{0, 0, 0}, {1, 0.5, 0}, {0.1, 0.3, 1.9}}
	for i, w := range want {
		v := W.Vec(i)
		for m := 0; m < 3; m++ {
			if math.Abs(v[m]-w[m]) > 1e-9 {
				Te.Errorf("atom %d wrapped to %v, expected %v", i, v, w)
				break
			}
		}
	}
	if _, is := P.Dx(W.Vec(0), W.Vec(1)); is != ShiftIndex(1, 0, 0) {
		Te.Errorf("wrong shift %d after wrapping", is)
	}
	//triclinic box: z wraps move x and y too.
	tbox, _ := v3.NewMatrix([]float64{2, 0, 0, 0, 2, 0, 0.5, 0.5, 2})
	T, _ := NewPBC(tbox)
	tw := T.Wrap(U).Vec(2)
	if math.Abs(tw[0]-0.6) > 1e-9 || math.Abs(tw[1]-0.8) > 1e-9 || math.Abs(tw[2]-1.9) > 1e-9 {
		Te.Errorf("wrong triclinic wrap %v", tw)
	}
}
