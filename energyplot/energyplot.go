/*
 * energyplot.go, part of qmmm.
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

//Package energyplot plots the QM energies of a run against the step.
package energyplot

import (
	"errors"
	"fmt"

	"github.com/rmera/qmmm/ledger"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

//Size of the saved plots.
var (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

//series is one energy term, which may be missing in some entries.
type series struct {
	name string
	get  func(e ledger.Entry) (float64, bool)
}

//New returns a plot of the total energy, the outer layer energy (only if
//there are layer boundaries) and each boundary term of entries. Energies
//are given relative to the first entry, in kJ/mol, so terms of very
//different magnitude can share the axes.
func New(title string, entries []ledger.Entry) (*plot.Plot, error) {
	if len(entries) == 0 {
		return nil, errors.New("energyplot: no entries to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "ΔE (kJ/mol)"
	p.Add(plotter.NewGrid())
	terms := []series{
		{"total", func(e ledger.Entry) (float64, bool) { return e.Energies.Total, true }},
	}
	nb := len(entries[0].Energies.Boundaries)
	if nb > 0 {
		terms = append(terms, series{"outer layer", func(e ledger.Entry) (float64, bool) { return e.Energies.Outer, true }})
	}
	for i := 0; i < nb; i++ {
		terms = append(terms, series{fmt.Sprintf("layer %d boundary", i), func(e ledger.Entry) (float64, bool) {
			if i >= len(e.Energies.Boundaries) {
				return 0, false
			}
			return e.Energies.Boundaries[i], true
		}})
	}
	for k, s := range terms {
		ref, _ := s.get(entries[0])
		pts := make(plotter.XYs, 0, len(entries))
		for _, e := range entries {
			v, ok := s.get(e)
			if !ok {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(e.Step), Y: v - ref})
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Width = vg.Points(1)
		l.LineStyle.Color = plotutil.Color(k)
		l.LineStyle.Dashes = plotutil.Dashes(k)
		p.Add(l)
		p.Legend.Add(s.name, l)
	}
	return p, nil
}

//Save plots entries with New and saves the plot to filename. The format
//is given by the extension of filename (png, svg, pdf...).
func Save(filename, title string, entries []ledger.Entry) error {
	p, err := New(title, entries)
	if err != nil {
		return err
	}
	return p.Save(Width, Height, filename)
}
