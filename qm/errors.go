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

package qm

import (
	"errors"
	"fmt"
)

//Kinds of errors. They can be matched with errors.Is on any Error from this
//library.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrUnsupported   = errors.New("unsupported configuration")
	ErrBackend       = errors.New("backend failure")
)

//Error is the error type for the qm package. It fulfills the Error
//interface of gochem (Decorate and Critical).
type Error struct {
	message  string
	program  string //the QM program involved, if any
	name     string //the job name, if any
	kind     error
	deco     []string
	critical bool
}

func (err Error) Error() string {
	s := err.kind.Error() + ": " + err.message
	if err.program != "" {
		s = fmt.Sprintf("%s (%s", s, err.program)
		if err.name != "" {
			s = s + " job " + err.name
		}
		s += ")"
	}
	return s
}

//Is allows matching the error kind with errors.Is.
func (err Error) Is(target error) bool {
	return target == err.kind
}

//Unwrap returns the kind of the error.
func (err Error) Unwrap() error { return err.kind }

//Decorate adds information to the error and returns the decoration slice.
func (err Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical returns whether the error is critical.
func (err Error) Critical() bool { return err.critical }

//Program returns the name of the QM program that failed, if any.
func (err Error) Program() string { return err.program }

func backendError(program, name, caller string, format string, args ...interface{}) Error {
	return Error{fmt.Sprintf(format, args...), program, name, ErrBackend, []string{caller}, true}
}

func unsupported(caller string, format string, args ...interface{}) Error {
	return Error{fmt.Sprintf(format, args...), "", "", ErrUnsupported, []string{caller}, true}
}

//errDecorate decorates a qm Error with the caller's name before returning it.
//Other errors are returned unchanged.
func errDecorate(err error, caller string) error {
	e, ok := err.(Error)
	if !ok {
		return err
	}
	e.deco = e.Decorate(caller)
	return e
}
