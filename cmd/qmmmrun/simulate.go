/*
 * simulate.go, part of qmmm.
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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rmera/qmmm"
	"github.com/rmera/qmmm/config"
	"github.com/rmera/qmmm/energyplot"
	"github.com/rmera/qmmm/ledger"
	"github.com/rmera/qmmm/metrics"
	"github.com/rmera/qmmm/qm"
	"github.com/rmera/qmmm/qmtraj"
	grotop "github.com/rmera/qmmm/top"
	v3 "github.com/rmera/qmmm/v3"
)

//simulate runs one QM/MM step per frame and writes the outputs the
//configuration asks for.
func simulate(ctx context.Context, cc *cliConfig, outW io.Writer) (err error) {
	C, err := config.Decode(cc.ConfigPath)
	if err != nil {
		return err
	}
	O, err := C.Options()
	if err != nil {
		return err
	}
	D, err := C.Dispatcher()
	if err != nil {
		return err
	}
	top, frames, err := qmmm.XYZFileRead(cc.FramesPath)
	if err != nil {
		return err
	}
	slog.Info("Read frames.", "path", cc.FramesPath, "frames", len(frames), "atoms", top.Len())
	if C.Topology != "" {
		M, err := grotop.ReadFile(C.Topology, C.Defines...)
		if err != nil {
			return err
		}
		if err := M.Apply(top); err != nil {
			return err
		}
		slog.Info("Read charges from topology.", "path", C.Topology, "vsites", len(M.VSites))
	}
	col, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	D.SetRecorder(col)
	cp, err := qmmm.NewCoupler(top, O, D)
	if err != nil {
		return err
	}
	defer closeOutput(&err, "coupler", cp)
	cp.SetRecorder(col)
	slog.Info("Coupler ready.", "coupler", cp.String(), "backends", D.Backends())

	var led *ledger.Store
	if C.Output.Ledger != "" {
		if led, err = ledger.Open(ctx, C.Output.Ledger); err != nil {
			return err
		}
		defer closeOutput(&err, "ledger", led)
	}
	var tw *qmtraj.Writer
	if C.Output.Trajectory != "" {
		L := cp.Layers()[len(cp.Layers())-1]
		tw, err = qmtraj.NewWriter(C.Output.Trajectory, L.Len(), trajHeader(L))
		if err != nil {
			return err
		}
		defer closeOutput(&err, "trajectory", tw)
	}
	var entries []ledger.Entry
	for step, F := range frames {
		E, err := runStep(cp, F, C.Cutoff)
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		e := ledger.Entry{Step: int64(step), Energies: cp.LastEnergies(), Embedded: cp.Embedded()}
		entries = append(entries, e)
		if led != nil {
			if err := led.Record(ctx, e); err != nil {
				return err
			}
		}
		if tw != nil {
			L := cp.Layers()[len(cp.Layers())-1]
			if err := tw.WNext(L.Coords, E, F.Box.RawMatrix().Data...); err != nil {
				return err
			}
		}
		fmt.Fprintf(outW, "step %4d  E = %16.6f kJ/mol  embedded = %d\n", step, E, e.Embedded)
	}
	if C.Output.Plot != "" {
		if err := energyplot.Save(C.Output.Plot, "QM/MM energies", entries); err != nil {
			return err
		}
	}
	if C.Output.Metrics != "" {
		if err := col.WriteFile(C.Output.Metrics); err != nil {
			return err
		}
	}
	return nil
}

//closeOutput closes c, logging the error. The error is also returned
//through err if nothing else failed.
func closeOutput(err *error, name string, c io.Closer) {
	cerr := c.Close()
	if cerr == nil {
		return
	}
	slog.Error("Close failed.", "what", name, "error", cerr)
	if *err == nil {
		*err = cerr
	}
}

//runStep updates the coupler with the frame F and runs the QM
//calculations. The coordinates are wrapped into the box first. It
//returns the QM energy.
func runStep(cp *qmmm.Coupler, F *qmmm.Frame, cutoff float64) (float64, error) {
	P, err := qmmm.NewPBC(F.Box)
	if err != nil {
		return 0, err
	}
	X := P.Wrap(F.Coords)
	var pl *qmmm.PairList
	if cp.Options().Scheme == qmmm.Normal {
		pl = qmmm.NewPairList(X, P, cp.Layers()[0].Atoms, cutoff)
	}
	if err := cp.Update(X, F.Box, pl); err != nil {
		return 0, err
	}
	forces := v3.Zeros(F.Coords.NVecs())
	fshift := v3.Zeros(qmmm.NShifts)
	E, err := cp.Calculate(forces, fshift)
	if err != nil {
		return 0, err
	}
	maxf := 0.0
	for i := 0; i < forces.NVecs(); i++ {
		f := forces.Vec(i)
		maxf = math.Max(maxf, math.Sqrt(f[0]*f[0]+f[1]*f[1]+f[2]*f[2]))
	}
	slog.Debug("QM/MM step done.", "energy", E, "max_force", maxf)
	return E, nil
}

func trajHeader(L *qmmm.Layer) map[string]string {
	syms := make([]string, 0, L.Len())
	for _, z := range L.AtomicNumbers {
		syms = append(syms, qm.Symbol(z))
	}
	return map[string]string{"symbols": strings.Join(syms, " "), "layer": L.Name()}
}
