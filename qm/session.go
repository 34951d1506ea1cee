/*
 * session.go, part of qmmm.
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
	v3 "github.com/rmera/qmmm/v3"
)

//handler is what a session needs from a QM program handle. One handler
//serves one session.
type handler interface {
	BuildInput(in *Input, S *Settings) error
	Run() error
	Energy() (float64, error)
	Gradients(natoms, ncharges int) (*v3.Matrix, error)
	Close() error
}

//session runs one evaluation after the other with the same handler and
//settings.
type session struct {
	h       handler
	S       Settings
	program string
	evals   int
}

func newSession(program string, h handler, S *Settings) *session {
	return &session{h: h, S: *S, program: program}
}

//Evaluate writes the input, runs the QM program and collects energy and
//gradients.
func (s *session) Evaluate(in *Input) (*Output, error) {
	if in.Coords == nil || in.Coords.NVecs() != in.NAtoms() {
		return nil, Error{"coordinates and atomic numbers don't match", s.program, "", ErrConfiguration, []string{"Evaluate"}, true}
	}
	if in.NCharges() > 0 && (in.EmbeddingCoords == nil || in.EmbeddingCoords.NVecs() != in.NCharges()) {
		return nil, Error{"embedding coordinates and charges don't match", s.program, "", ErrConfiguration, []string{"Evaluate"}, true}
	}
	if err := s.h.BuildInput(in, &s.S); err != nil {
		return nil, errDecorate(err, "Evaluate")
	}
	if err := s.h.Run(); err != nil {
		return nil, errDecorate(err, "Evaluate")
	}
	E, err := s.h.Energy()
	if err != nil {
		return nil, errDecorate(err, "Evaluate")
	}
	G, err := s.h.Gradients(in.NAtoms(), in.NCharges())
	if err != nil {
		return nil, errDecorate(err, "Evaluate")
	}
	s.evals++
	return &Output{Energy: E, Gradients: G}, nil
}

func (s *session) Close() error {
	return s.h.Close()
}
