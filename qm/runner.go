/*
 * runner.go, part of qmmm.
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
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	v3 "github.com/rmera/qmmm/v3"
)

//job is the file and process side of a QM handle: a scratch directory,
//the input name (without extension) and the command to run.
type job struct {
	program string
	command string
	name    string
	dir     string
	nCPU    int
	memory  int
	keep    bool
}

func newJob(program, command, name string, H Hints) (*job, error) {
	dir, err := os.MkdirTemp(H.Scratch, program+"-")
	if err != nil {
		return nil, backendError(program, name, "newJob", "can't create scratch directory: %v", err)
	}
	cpu := H.NCPU
	if cpu <= 0 {
		cpu = 1
	}
	return &job{program: program, command: command, name: name, dir: dir, nCPU: cpu, memory: H.Memory, keep: H.Keep}, nil
}

//path returns the full path of the job file with the given extension.
func (j *job) path(ext string) string {
	return filepath.Join(j.dir, j.name+ext)
}

func (j *job) write(ext string, content []byte) error {
	if err := os.WriteFile(j.path(ext), content, 0o644); err != nil {
		return backendError(j.program, j.name, "write", "can't write %s file: %v", ext, err)
	}
	return nil
}

//run executes the job command with args in the scratch directory and waits
//for it. If stdout is not empty, the standard output goes to the job file
//with that extension.
func (j *job) run(stdout string, args ...string) error {
	cmd := exec.Command(j.command, args...)
	cmd.Dir = j.dir
	var errb bytes.Buffer
	cmd.Stderr = &errb
	if stdout != "" {
		out, err := os.Create(j.path(stdout))
		if err != nil {
			return backendError(j.program, j.name, "run", "%v", err)
		}
		defer out.Close()
		cmd.Stdout = out
	}
	logger.Debug("running QM program", "program", j.program, "command", j.command, "args", args, "dir", j.dir)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if len(msg) > 200 {
			msg = msg[len(msg)-200:]
		}
		return backendError(j.program, j.name, "run", "%s failed: %v %s", j.command, err, msg)
	}
	return nil
}

//cleanup removes the scratch directory, unless the job was asked to keep it.
func (j *job) cleanup() error {
	if j.keep {
		logger.Info("keeping QM files", "program", j.program, "dir", j.dir)
		return nil
	}
	return os.RemoveAll(j.dir)
}

//normalTermination returns true if the job file with extension ext
//contains the string mark.
func (j *job) normalTermination(ext, mark string) bool {
	b, err := os.ReadFile(j.path(ext))
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte(mark))
}

//lines returns a scanner over the job file with extension ext, and a function
//to close the file.
func (j *job) lines(ext string) (*bufio.Scanner, func(), error) {
	f, err := os.Open(j.path(ext))
	if err != nil {
		return nil, nil, backendError(j.program, j.name, "lines", "can't open output: %v", err)
	}
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return s, func() { f.Close() }, nil
}

//parseFloat parses a float that might use Fortran's D exponent.
func parseFloat(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), "D", "E", 1)
	return strconv.ParseFloat(strings.Replace(s, "d", "e", 1), 64)
}

//parseFloats parses all the fields of fields as floats.
func parseFloats(fields []string) ([]float64, error) {
	ret := make([]float64, 0, len(fields))
	for _, v := range fields {
		f, err := parseFloat(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, f)
	}
	return ret, nil
}

//gradMatrix puts the values in vals into a Matrix with nrows rows, scaling
//them by factor.
func gradMatrix(vals []float64, nrows int, factor float64) (*v3.Matrix, error) {
	if len(vals) != 3*nrows {
		return nil, fmt.Errorf("%d gradient components read, %d expected", len(vals), 3*nrows)
	}
	for i := range vals {
		vals[i] *= factor
	}
	if nrows == 0 {
		return v3.Zeros(0), nil
	}
	return v3.NewMatrix(vals)
}

//Writes a QM atom line, symbol and coordinates in Angstrom.
func atomLine(b *bytes.Buffer, z int, coords *v3.Matrix, i int) {
	fmt.Fprintf(b, "%-2s %14.8f %14.8f %14.8f\n", Symbol(z), coords.At(i, 0)*Nm2A, coords.At(i, 1)*Nm2A, coords.At(i, 2)*Nm2A)
}
