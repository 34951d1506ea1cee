/*
 * errors.go, part of qmmm.
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
	"fmt"

	"github.com/rmera/qmmm/qm"
)

//Kinds of errors, shared with the qm package, so errors.Is works on any
//error returned by this library.
var (
	ErrConfiguration = qm.ErrConfiguration
	ErrUnsupported   = qm.ErrUnsupported
	ErrBackend       = qm.ErrBackend
)

//Error is the error type for the qmmm package. The configuration
//field names the option or value that caused the error.
type Error struct {
	message       string
	configuration string
	kind          error
	deco          []string
	critical      bool
}

func (err Error) Error() string {
	if err.configuration == "" {
		return fmt.Sprintf("%v: %s", err.kind, err.message)
	}
	return fmt.Sprintf("%v: %s (%s)", err.kind, err.message, err.configuration)
}

//Is allows matching the error kind with errors.Is.
func (err Error) Is(target error) bool {
	return target == err.kind
}

func (err Error) Unwrap() error { return err.kind }

//Decorate adds the dec string to the decoration slice of strings of the error,
//and returns the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical returns true for errors after which the simulation can't go on.
//All the errors from this package are critical.
func (err Error) Critical() bool { return err.critical }

//Configuration returns the offending configuration.
func (err Error) Configuration() string { return err.configuration }

func configError(caller, configuration, format string, args ...interface{}) Error {
	return Error{fmt.Sprintf(format, args...), configuration, ErrConfiguration, []string{caller}, true}
}

//errDecorate adds the caller to the decoration of err, if it is
//an Error from this package.
func errDecorate(err error, caller string) error {
	e, ok := err.(Error)
	if !ok {
		return err
	}
	e.deco = e.Decorate(caller)
	return e
}

//PanicMsg is the type used for the messages of panics caused by contract
//violations: programming errors, not runtime conditions.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNegativeCutoff   = PanicMsg("qmmm: negative cutoff")
	ErrEmptyPairList    = PanicMsg("qmmm: empty pair list for a non-empty QM layer")
	ErrCoordinates      = PanicMsg("qmmm: coordinates don't match the number of atoms")
	ErrShiftRange       = PanicMsg("qmmm: periodic shift out of range, atoms more than two boxes apart")
	ErrMembershipLength = PanicMsg("qmmm: memberships of different lengths")
	ErrNegativeRank     = PanicMsg("qmmm: negative unit rank")
	ErrForceBuffers     = PanicMsg("qmmm: force buffers of the wrong size")
)
