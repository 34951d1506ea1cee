/*
 * qmtraj.go, part of qmmm.
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

package qmtraj

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	v3 "github.com/rmera/qmmm/v3"
)

//DefaultPrec is the number of decimal places kept for coordinates in
//Angstrom, if no other is given.
const DefaultPrec = 3

const nm2A = 10.0

//Writer writes QM region frames.
type Writer struct {
	f         *os.File
	h         *zstd.Encoder
	natoms    int
	filename  string
	writeable bool
	prec      int
	mult      float64
}

//NewWriter creates the file name for frames of natoms atoms. The header
//pairs are written at the beginning of the file. A "prec" key in header
//sets the precision.
func NewWriter(name string, natoms int, header map[string]string) (*Writer, error) {
	S := &Writer{natoms: natoms, filename: name, prec: DefaultPrec}
	if p, ok := header["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err != nil || prec < 0 {
			return nil, Error{fmt.Sprintf("invalid precision %q", p), name, []string{"NewWriter"}, true}
		}
		S.prec = prec
	}
	S.mult = math.Pow(10, float64(S.prec))
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"NewWriter"}, true}
	}
	S.h, err = zstd.NewWriter(S.f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		S.f.Close()
		return nil, Error{"can't start compression " + err.Error(), name, []string{"NewWriter"}, true}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "prec=%d\n", S.prec)
	for _, k := range slices.Sorted(maps.Keys(header)) {
		if k == "prec" {
			continue
		}
		if strings.ContainsAny(k, "=\n") || strings.Contains(header[k], "\n") {
			S.h.Close()
			S.f.Close()
			return nil, Error{fmt.Sprintf("invalid header entry %q", k), name, []string{"NewWriter"}, true}
		}
		fmt.Fprintf(&b, "%s=%s\n", k, header[k])
	}
	fmt.Fprintf(&b, "** %d\n", natoms)
	if _, err := S.h.Write([]byte(b.String())); err != nil {
		return nil, Error{err.Error(), name, []string{"NewWriter"}, true}
	}
	S.writeable = true
	return S, nil
}

//Len returns the number of atoms per frame.
func (S *Writer) Len() int {
	return S.natoms
}

//WNext writes a frame with the coordinates coord (nm) and the QM energy
//(kJ/mol). If given, the 9 elements of box (nm) are also written.
func (S *Writer) WNext(coord *v3.Matrix, energy float64, box ...float64) error {
	if !S.writeable {
		return Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if coord == nil {
		return Error{NilCoordinates, S.filename, []string{"WNext"}, true}
	}
	if v := coord.NVecs(); v != S.natoms {
		return Error{fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, []string{"WNext"}, true}
	}
	var b strings.Builder
	for i := 0; i < S.natoms; i++ {
		fmt.Fprintf(&b, "%d %d %d\n", S.encode(coord.At(i, 0)), S.encode(coord.At(i, 1)), S.encode(coord.At(i, 2)))
	}
	fmt.Fprintf(&b, "* %s", strconv.FormatFloat(energy, 'g', -1, 64))
	if len(box) >= 9 {
		for _, v := range box[:9] {
			fmt.Fprintf(&b, " %.4f", v*nm2A)
		}
	}
	b.WriteString("\n")
	if _, err := S.h.Write([]byte(b.String())); err != nil {
		return Error{err.Error(), S.filename, []string{"WNext"}, true}
	}
	return nil
}

func (S *Writer) encode(x float64) int {
	return int(math.RoundToEven(x * nm2A * S.mult))
}

//Close flushes and closes the file. The writer can't be used afterwards.
func (S *Writer) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.h.Close()
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	return err
}

//Reader reads QM region frames.
type Reader struct {
	f        *os.File
	z        *zstd.Decoder
	h        *bufio.Reader
	natoms   int
	filename string
	mult     float64
	readable bool
}

//New opens the trajectory name for reading, and returns the handle and
//the header.
func New(name string) (*Reader, map[string]string, error) {
	S := &Reader{natoms: -1, filename: name}
	var err error
	S.f, err = os.Open(name)
	if err != nil {
		return nil, nil, Error{err.Error(), name, []string{"New"}, true}
	}
	S.z, err = zstd.NewReader(bufio.NewReader(S.f))
	if err != nil {
		S.f.Close()
		return nil, nil, Error{"can't read header " + err.Error(), name, []string{"New"}, true}
	}
	S.h = bufio.NewReader(S.z)
	m := make(map[string]string)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.Close()
			return nil, nil, Error{"can't read header " + err.Error(), name, []string{"New"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				S.Close()
				return nil, nil, Error{fmt.Sprintf("can't read atom number from '%s'", str), name, []string{"New"}, true}
			}
			if S.natoms, err = strconv.Atoi(nat[1]); err != nil {
				S.Close()
				return nil, nil, Error{fmt.Sprintf("can't read atom number from '%s': %s", nat[1], err.Error()), name, []string{"New"}, true}
			}
			break
		}
		k, v, ok := strings.Cut(str, "=")
		if !ok {
			S.Close()
			return nil, nil, Error{"malformed header line " + str, name, []string{"New"}, true}
		}
		m[k] = v
	}
	prec, err := strconv.Atoi(m["prec"])
	if err != nil || prec < 0 {
		S.Close()
		return nil, nil, Error{fmt.Sprintf("invalid precision %q", m["prec"]), name, []string{"New"}, true}
	}
	S.mult = math.Pow(10, float64(prec))
	S.readable = true
	return S, m, nil
}

//Readable returns true if Next can be called on the handle.
func (S *Reader) Readable() bool {
	return S.readable
}

//Len returns the number of atoms per frame.
func (S *Reader) Len() int {
	return S.natoms
}

//Next puts the coordinates (nm) of the next frame in c, and, if the
//frame has it and box has at least 9 elements, the box in box. It returns
//the energy of the frame. If c is nil, the frame is read and discarded.
//At the end of the trajectory the error satisfies errors.Is(err, io.EOF).
func (S *Reader) Next(c *v3.Matrix, box ...float64) (float64, error) {
	if !S.readable {
		return 0, Error{TrajUnIniRead, S.filename, []string{"Next"}, true}
	}
	var temp [3]float64
	for i := 0; i < S.natoms; i++ {
		str, err := S.h.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && i == 0 && str == "" {
				S.Close()
				return 0, newlastFrameError(S.filename, "Next")
			}
			return 0, Error{ReadError + ": " + err.Error(), S.filename, []string{"Next"}, true}
		}
		if err := S.decode(str, &temp); err != nil {
			return 0, Error{err.Error(), S.filename, []string{"Next"}, true}
		}
		if c != nil {
			c.SetVec(i, temp)
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && S.natoms == 0 && s == "" {
			S.Close()
			return 0, newlastFrameError(S.filename, "Next")
		}
		return 0, Error{"can't read the frame termination mark: " + err.Error(), S.filename, []string{"Next"}, true}
	}
	fields := strings.Fields(s)
	if len(fields) < 2 || fields[0] != "*" {
		return 0, Error{WrongFormat + ": " + strings.TrimSpace(s), S.filename, []string{"Next"}, true}
	}
	energy, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, Error{"can't read the frame energy: " + err.Error(), S.filename, []string{"Next"}, true}
	}
	if len(box) >= 9 && len(fields) >= 11 {
		for j, v := range fields[2:11] {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0, Error{"can't read the box: " + err.Error(), S.filename, []string{"Next"}, true}
			}
			box[j] = f / nm2A
		}
	}
	return energy, nil
}

func (S *Reader) decode(str string, temp *[3]float64) error {
	s := strings.Fields(str)
	if len(s) != 3 {
		return fmt.Errorf("%s: %d fields in coordinates line", WrongFormat, len(s))
	}
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("can't parse coordinate %d (%s): %s", i, v, err.Error())
		}
		temp[i] = float64(f) / (S.mult * nm2A)
	}
	return nil
}

//Close closes the file, and marks the handle as unreadable.
func (S *Reader) Close() {
	if S.z != nil {
		S.z.Close()
		S.z = nil
	}
	if S.f != nil {
		S.f.Close()
		S.f = nil
	}
	S.readable = false
}
