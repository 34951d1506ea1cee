/*
 * config.go, part of qmmm.
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

//Package config reads QM/MM run configurations written in HCL.
//
//A configuration looks like:
//
//	scheme        = "normal"
//	integrator    = "md"
//	scale_factor  = 1.0
//	cutoff        = 1.2
//
//	layer {
//	  method = "B3LYP"
//	  basis  = "6-31G*"
//	  charge = 0
//	  cpus   = 4
//	}
//
//	backend "orca" {
//	  command = "/opt/orca/orca"
//	}
//
//	output {
//	  trajectory = "qm.stz"
//	  ledger     = "energies.db"
//	}
//
//Layers are given from the innermost to the outermost. Backends are tried
//in the order they are given. Without backend blocks, all the supported
//programs are used, with their default commands.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rmera/qmmm"
	"github.com/rmera/qmmm/qm"
)

//DefaultCutoff is the QM pair list cutoff, in nm, used if none is given.
const DefaultCutoff = 1.0

//DefaultBackends are the programs used when the configuration gives none,
//in priority order.
var DefaultBackends = []string{"gamess", "gaussian", "orca", "mopac"}

//Config is a decoded run configuration.
type Config struct {
	Scheme       string     `hcl:"scheme,optional"`
	Integrator   string     `hcl:"integrator,optional"`
	CutoffScheme string     `hcl:"cutoff_scheme,optional"`
	Ranks        int        `hcl:"ranks,optional"`
	ScaleFactor  float64    `hcl:"scale_factor,optional"` //0 means 1
	Cutoff       float64    `hcl:"cutoff,optional"`       //QM pair list cutoff, nm
	Topology     string     `hcl:"topology,optional"`     //Gromacs itp with the charges and virtual sites
	Defines      []string   `hcl:"defines,optional"`
	Layers       []*Layer   `hcl:"layer,block"`
	Backends     []*Backend `hcl:"backend,block"`
	Output       *Output    `hcl:"output,block"`
}

//Layer is the method configuration of one QM group.
type Layer struct {
	Method         string  `hcl:"method"`
	Basis          string  `hcl:"basis,optional"`
	Charge         int     `hcl:"charge,optional"`
	Multiplicity   int     `hcl:"multiplicity,optional"`
	SurfaceHopping bool    `hcl:"surface_hopping,optional"`
	CASOrbitals    int     `hcl:"cas_orbitals,optional"`
	CASElectrons   int     `hcl:"cas_electrons,optional"`
	SAOn           float64 `hcl:"sa_on,optional"`
	SAOff          float64 `hcl:"sa_off,optional"`
	SASteps        int     `hcl:"sa_steps,optional"`
	CPUs           int     `hcl:"cpus,optional"`
	Memory         int     `hcl:"memory,optional"` //MB
	Scratch        string  `hcl:"scratch,optional"`
	Keep           bool    `hcl:"keep,optional"`
}

//Backend configures one QM program.
type Backend struct {
	Name    string `hcl:"name,label"`
	Command string `hcl:"command,optional"`
	CPUs    int    `hcl:"cpus,optional"`
}

//Output names the files a run writes. Empty names are not written.
type Output struct {
	Trajectory string `hcl:"trajectory,optional"`
	Ledger     string `hcl:"ledger,optional"`
	Plot       string `hcl:"plot,optional"`
	Metrics    string `hcl:"metrics,optional"`
}

//Decode parses and decodes the HCL file at path.
func Decode(path string) (*Config, error) {
	slog.Debug("Decoding configuration file.", "path", path)
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL file %s: %s", qmmm.ErrConfiguration, path, diags.Error())
	}
	return decode(file, path)
}

//Parse decodes a configuration from src. filename is only used in messages.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL %s: %s", qmmm.ErrConfiguration, filename, diags.Error())
	}
	return decode(file, filename)
}

func decode(file *hcl.File, name string) (*Config, error) {
	C := new(Config)
	if diags := gohcl.DecodeBody(file.Body, nil, C); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode HCL %s: %s", qmmm.ErrConfiguration, name, diags.Error())
	}
	if C.Cutoff == 0 {
		C.Cutoff = DefaultCutoff
	}
	if C.Cutoff < 0 {
		return nil, fmt.Errorf("%w: %s: negative cutoff %g", qmmm.ErrConfiguration, name, C.Cutoff)
	}
	if C.Output == nil {
		C.Output = new(Output)
	}
	slog.Debug("Successfully decoded configuration.", "name", name, "layers", len(C.Layers), "backends", len(C.Backends))
	return C, nil
}

//Options returns the coupling options of the configuration.
func (C *Config) Options() (qmmm.Options, error) {
	var O qmmm.Options
	for i, l := range C.Layers {
		S, err := l.settings()
		if err != nil {
			return O, fmt.Errorf("layer %d: %w", i, err)
		}
		O.Groups = append(O.Groups, S)
	}
	O.SetDefaults()
	var err error
	if O.Scheme, err = qmmm.ParseScheme(C.Scheme); err != nil {
		return O, err
	}
	if C.Integrator != "" {
		if O.Integrator, err = qmmm.ParseIntegrator(C.Integrator); err != nil {
			return O, err
		}
	}
	if O.Cutoff, err = qmmm.ParseCutoffScheme(C.CutoffScheme); err != nil {
		return O, err
	}
	if C.Ranks > 0 {
		O.Ranks = C.Ranks
	}
	if C.ScaleFactor != 0 {
		O.ScaleFactor = C.ScaleFactor
	}
	return O, nil
}

func (l *Layer) settings() (qm.Settings, error) {
	m, err := qm.ParseMethod(l.Method)
	if err != nil {
		return qm.Settings{}, err
	}
	return qm.Settings{
		Method:         m,
		Basis:          l.Basis,
		Charge:         l.Charge,
		Multiplicity:   l.Multiplicity,
		SurfaceHopping: l.SurfaceHopping,
		CASOrbitals:    l.CASOrbitals,
		CASElectrons:   l.CASElectrons,
		SAOn:           l.SAOn,
		SAOff:          l.SAOff,
		SASteps:        l.SASteps,
		Hints:          qm.Hints{NCPU: l.CPUs, Memory: l.Memory, Scratch: l.Scratch, Keep: l.Keep},
	}, nil
}

//commander and cpuSetter are implemented by the backend handles.
type commander interface {
	SetCommand(string)
}

type cpuSetter interface {
	SetnCPU(int)
}

//NewBackend returns the backend for the program name (gamess, gaussian,
//orca or mopac) with its default settings.
func NewBackend(name string) (qm.Backend, error) {
	switch strings.ToLower(name) {
	case "gamess":
		return qm.NewGamessHandle(), nil
	case "gaussian":
		return qm.NewGaussianHandle(), nil
	case "orca":
		return qm.NewOrcaHandle(), nil
	case "mopac":
		return qm.NewMopacHandle(), nil
	}
	return nil, fmt.Errorf("%w: unknown QM program %q", qmmm.ErrConfiguration, name)
}

//Dispatcher returns a dispatcher with the configured backends, in the
//order they were given.
func (C *Config) Dispatcher() (*qm.Dispatcher, error) {
	blocks := C.Backends
	if len(blocks) == 0 {
		for _, n := range DefaultBackends {
			blocks = append(blocks, &Backend{Name: n})
		}
	}
	D := qm.NewDispatcher()
	seen := make(map[string]bool)
	for _, b := range blocks {
		name := strings.ToLower(b.Name)
		if seen[name] {
			return nil, fmt.Errorf("%w: QM program %q given twice", qmmm.ErrConfiguration, b.Name)
		}
		seen[name] = true
		B, err := NewBackend(name)
		if err != nil {
			return nil, err
		}
		if c, ok := B.(commander); ok && b.Command != "" {
			c.SetCommand(b.Command)
		}
		if c, ok := B.(cpuSetter); ok && b.CPUs > 0 {
			c.SetnCPU(b.CPUs)
		}
		D.Register(B)
	}
	return D, nil
}
